package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	runware "github.com/KotikNekot/Runware-Wrapper"
)

type fileConfig struct {
	APIKey    string `toml:"api_key"`
	URL       string `toml:"url"`
	Heartbeat string `toml:"heartbeat"`
}

// loadConfig reads the environment and then overlays the keys defined in the
// TOML file at path, if any.
func loadConfig(path string) (runware.Config, error) {
	cfg, err := runware.LoadConfig()
	if err != nil {
		return runware.Config{}, fmt.Errorf("load environment: %w", err)
	}
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runware.Config{}, fmt.Errorf("load config: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return runware.Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("api_key") {
		cfg.APIKey = strings.TrimSpace(raw.APIKey)
	}

	if meta.IsDefined("url") {
		cfg.URL = strings.TrimSpace(raw.URL)
	}

	if meta.IsDefined("heartbeat") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Heartbeat))
		if err != nil {
			return runware.Config{}, fmt.Errorf("parse heartbeat: %w", err)
		}
		cfg.HeartbeatInterval = d
	}

	return cfg, nil
}
