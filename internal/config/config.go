// Package config loads engine-wide settings from a config file, flags,
// and the environment via github.com/spf13/viper, grounded on the
// teacher's cmd/main.go wiring (AddConfigPath/SetConfigName/AutomaticEnv).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ConfigDir is the default directory searched for a config file, mirroring
// the teacher's $HOME/.config/<app>/ convention.
var ConfigDir = filepath.Join(mustHomeDir(), ".config", "sos")

// Config holds the settings an engine run reads once at startup.
type Config struct {
	// WorkDir is the directory `sos run` creates to hold its run lock
	// file (see internal/runlock).
	WorkDir string `mapstructure:"work_dir"`
	// NProcs bounds concurrent step execution.
	NProcs int `mapstructure:"nprocs"`
	// Debug enables debug-level logging.
	Debug bool `mapstructure:"debug"`
	// LogFormat selects "console" or "json" log encoding.
	LogFormat string `mapstructure:"log_format"`
	// TargetCacheSize bounds the signature controller's target cache.
	TargetCacheSize int `mapstructure:"target_cache_size"`
}

func defaults() Config {
	return Config{
		WorkDir:         ".sos",
		NProcs:          1,
		Debug:           false,
		LogFormat:       "console",
		TargetCacheSize: 4096,
	}
}

// Load reads configuration from cfgFile if non-empty, otherwise searches
// ConfigDir for "config.yaml", then overlays SOS_-prefixed environment
// variables. A missing config file is not an error: defaults apply.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	for key, val := range structToMap(defaults()) {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix("SOS")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(ConfigDir)
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read %s: %w", cfgFile, err)
		}
	}

	cfg := defaults()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func structToMap(c Config) map[string]any {
	return map[string]any{
		"work_dir":          c.WorkDir,
		"nprocs":            c.NProcs,
		"debug":             c.Debug,
		"log_format":        c.LogFormat,
		"target_cache_size": c.TargetCacheSize,
	}
}

func mustHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
