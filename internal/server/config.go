package server

import "log/slog"

// Config holds the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on, e.g. "127.0.0.1:8787".
	ListenAddr string

	// AllowedOrigins lists the browser origins allowed to open the event
	// stream. Empty allows any origin.
	AllowedOrigins []string

	Logger *slog.Logger
}

// DefaultConfig returns a Config listening on loopback.
func DefaultConfig() Config {
	return Config{
		ListenAddr: "127.0.0.1:8787",
		Logger:     slog.New(slog.DiscardHandler),
	}
}

// ConfigOption modifies a Config.
type ConfigOption func(*Config)

// WithListenAddr sets the listen address.
func WithListenAddr(addr string) ConfigOption {
	return func(c *Config) {
		c.ListenAddr = addr
	}
}

// WithAllowedOrigins restricts which origins may open the event stream.
func WithAllowedOrigins(origins ...string) ConfigOption {
	return func(c *Config) {
		c.AllowedOrigins = origins
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ConfigOption {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// NewConfig creates a Config from the defaults and opts.
func NewConfig(opts ...ConfigOption) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
