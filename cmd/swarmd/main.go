package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"swarmd/internal/config"
	"swarmd/internal/httpapi"
	"swarmd/internal/registry"
	"swarmd/internal/scheduler"
	"swarmd/internal/slots"
)

func main() {
	// Flags with environment variable defaults
	defaultAddr := ":8080"
	if v := os.Getenv("SWARMD_ADDR"); v != "" {
		defaultAddr = v
	}
	defaultProfiles := "profiles.yaml"
	if v := os.Getenv("SWARMD_PROFILES"); v != "" {
		defaultProfiles = v
	}
	addr := flag.String("addr", defaultAddr, "HTTP listen address, e.g. :8080")
	configFile := flag.String("config", os.Getenv("SWARMD_CONFIG"), "Optional config file (.yaml/.json/.toml)")
	profilesFile := flag.String("profiles", defaultProfiles, "Profile roster file (.yaml/.json/.toml)")
	maxSlots := flag.Int("max-slots", 0, "Ceiling on concurrently active emulator slots (0=default)")
	logLevel := flag.String("log-level", os.Getenv("SWARMD_LOG_LEVEL"), "Log level: debug|info|warn|error")
	corsEnabled := flag.Bool("cors-enabled", false, "Enable CORS middleware")
	corsOrigins := flag.String("cors-origins", "", "Comma-separated allowed CORS origins")
	autostart := flag.Bool("autostart", true, "Start all queues on boot")
	flag.Parse()

	cfg := config.Config{}
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			l := zerolog.New(os.Stderr)
			l.Fatal().Err(err).Str("path", *configFile).Msg("failed to load config")
		}
	}
	// Explicit flags beat config file values; flag defaults only fill gaps.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["addr"] || cfg.Addr == "" {
		cfg.Addr = *addr
	}
	if set["profiles"] || cfg.ProfilesFile == "" {
		cfg.ProfilesFile = *profilesFile
	}
	if set["max-slots"] {
		cfg.MaxSlots = *maxSlots
	}
	if set["log-level"] || cfg.LogLevel == "" {
		cfg.LogLevel = *logLevel
	}

	logger := newLogger(cfg.LogLevel)
	httpapi.SetLogger(logger)

	profiles, err := registry.LoadFile(cfg.ProfilesFile)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.ProfilesFile).Msg("failed to load profiles")
	}

	pool := slots.New(slots.Config{
		MaxSlots:       cfg.MaxSlots,
		RerankInterval: time.Duration(cfg.RerankIntervalMs) * time.Millisecond,
		Logger:         logger,
	})
	sched := scheduler.New(scheduler.Config{
		Slots: pool,
		// TODO: wire the device automation runner once the emulator bridge
		// lands; until then queues idle at the poll cadence.
		IdleLimit:            time.Duration(cfg.IdleLimitMin) * time.Minute,
		BackgroundCheckEvery: cfg.BackgroundCheckEvery,
		StartStagger:         time.Duration(cfg.StartStaggerMs) * time.Millisecond,
		Logger:               logger,
	})
	for _, p := range profiles {
		sched.CreateQueue(p)
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetCORSOptions(*corsEnabled, splitCSV(*corsOrigins),
		[]string{"GET", "POST"}, []string{"Content-Type", "X-Log-Level"})

	mux := httpapi.NewMux(sched)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	if *autostart {
		go func() {
			if err := sched.StartAll(baseCtx); err != nil {
				logger.Error().Err(err).Msg("autostart failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Int("profiles", len(profiles)).Msg("swarmd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	sched.StopAll()
}

func newLogger(level string) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if level != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil {
			lvl = parsed
		}
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
