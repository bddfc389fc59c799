package runware

import (
	"context"
	"log/slog"
	"time"
)

// ClientOption configures a Runware client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	url         string
	heartbeat   time.Duration
	dialOptions *DialOptions
	dialer      Dialer
	logger      *slog.Logger
	onSend      func([]Task)
	onReceive   func(*Frame)
}

func defaultClientConfig() clientConfig {
	return clientConfig{
		url:       DefaultURL,
		heartbeat: DefaultHeartbeatInterval,
	}
}

// finish fills in whatever the options left unset.
func (c *clientConfig) finish() {
	if c.logger == nil {
		c.logger = slog.New(discardHandler{})
	}
	if c.dialer == nil {
		opts := c.dialOptions
		c.dialer = func(ctx context.Context, url string) (Transport, error) {
			return Dial(ctx, url, opts)
		}
	}
}

// WithURL overrides the WebSocket endpoint.
func WithURL(url string) ClientOption {
	return func(c *clientConfig) {
		if url != "" {
			c.url = url
		}
	}
}

// WithHeartbeatInterval sets how often ping tasks are sent. Zero or a
// negative interval disables the heartbeat.
func WithHeartbeatInterval(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.heartbeat = d
	}
}

// WithDialOptions sets options for the default WebSocket dialer.
func WithDialOptions(opts *DialOptions) ClientOption {
	return func(c *clientConfig) {
		c.dialOptions = opts
	}
}

// WithDialer replaces the WebSocket dialer, e.g. with an in-memory transport.
func WithDialer(d Dialer) ClientOption {
	return func(c *clientConfig) {
		c.dialer = d
	}
}

// WithLogger sets a structured logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithOnSend sets a callback invoked before each frame is sent.
func WithOnSend(fn func([]Task)) ClientOption {
	return func(c *clientConfig) {
		c.onSend = fn
	}
}

// WithOnReceive sets a callback invoked for each frame received.
func WithOnReceive(fn func(*Frame)) ClientOption {
	return func(c *clientConfig) {
		c.onReceive = fn
	}
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
