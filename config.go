package runware

import (
	"errors"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config holds client settings that can be loaded from the environment.
type Config struct {
	// APIKey authenticates the connection. ENV: RUNWARE_API_KEY
	APIKey string `env:"RUNWARE_API_KEY"`
	// URL is the WebSocket endpoint. ENV: RUNWARE_URL
	URL string `env:"RUNWARE_URL,default=wss://ws-api.runware.ai/v1"`
	// HeartbeatInterval between ping tasks. ENV: RUNWARE_HEARTBEAT_INTERVAL
	HeartbeatInterval time.Duration `env:"RUNWARE_HEARTBEAT_INTERVAL,default=100s,strict"`
}

// LoadConfig reads Config from the environment. Unset variables take their
// defaults.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, err
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	return cfg, nil
}

// Validate reports whether cfg can be used to build a client.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return &ValidationError{Field: "apiKey", Message: "must not be empty"}
	}
	if !strings.HasPrefix(cfg.URL, "ws://") && !strings.HasPrefix(cfg.URL, "wss://") {
		return &ValidationError{Field: "url", Message: "must be a ws:// or wss:// URL"}
	}
	return nil
}

// NewFromConfig validates cfg and builds a Client from it. Options are
// applied after the values taken from cfg.
func NewFromConfig(cfg Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := []ClientOption{
		WithURL(cfg.URL),
		WithHeartbeatInterval(cfg.HeartbeatInterval),
	}
	return New(cfg.APIKey, append(base, opts...)...), nil
}
