package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	ProfilesFile string `json:"profiles_file" yaml:"profiles_file" toml:"profiles_file"`
	// Ceiling on concurrently active emulator slots. Captured once at
	// scheduler start; not live-reloaded.
	MaxSlots int `json:"max_slots" yaml:"max_slots" toml:"max_slots"`
	// Idle tolerance in minutes used to deprioritize queues whose next
	// work is far in the future.
	IdleLimitMin int `json:"idle_limit_min" yaml:"idle_limit_min" toml:"idle_limit_min"`
	// Run expensive background diagnostics once every N task cycles.
	BackgroundCheckEvery int `json:"background_check_every" yaml:"background_check_every" toml:"background_check_every"`
	// Delay between consecutive queue starts in milliseconds.
	StartStaggerMs int `json:"start_stagger_ms" yaml:"start_stagger_ms" toml:"start_stagger_ms"`
	// How often blocked slot waiters recompute their queue rank, in
	// milliseconds.
	RerankIntervalMs int    `json:"rerank_interval_ms" yaml:"rerank_interval_ms" toml:"rerank_interval_ms"`
	LogLevel         string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
