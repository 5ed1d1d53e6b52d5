package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRootCmd constructs the Cobra command tree wired to the swarmd HTTP API.
func buildRootCmd() *cobra.Command {
	defaultAddr := "http://127.0.0.1:8080"
	if v := os.Getenv("SWARMD_ADDR"); v != "" {
		defaultAddr = v
	}
	cli := &client{}

	root := &cobra.Command{
		Use:           "swarmctl",
		Short:         "Control a running swarmd daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cli.addr, "addr", defaultAddr, "Base URL of the swarmd API (defaults SWARMD_ADDR)")

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show scheduler and slot-pool status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.getJSON("/status")
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "queues",
		Short: "List registered queues and their state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.getJSON("/queues")
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "profiles",
		Short: "List the registered profile roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.getJSON("/profiles")
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start all queues in scheduling order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.post("/queues/start")
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop all queues and reset the slot pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.post("/queues/stop")
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "pause [profile-id]",
		Short: "Pause all queues, or one profile's queue",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return cli.post("/queues/" + args[0] + "/pause")
			}
			return cli.post("/queues/pause")
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "resume [profile-id]",
		Short: "Resume all queues, or one profile's queue",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return cli.post("/queues/" + args[0] + "/resume")
			}
			return cli.post("/queues/resume")
		},
	})

	return root
}
