// Package config provides configuration loading for tutord.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig indicates invalid configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root configuration for the tutord daemon.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Store      StoreConfig      `koanf:"store"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Generator  GeneratorConfig  `koanf:"generator"`
	Session    SessionConfig    `koanf:"session"`
	Analytics  AnalyticsConfig  `koanf:"analytics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// StoreConfig configures durable session/state storage.
type StoreConfig struct {
	// Path is the SQLite database file. Default: ~/.config/tutord/tutord.db
	Path string `koanf:"path"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "tei" or "mock".
	Provider string `koanf:"provider"`
	// BaseURL is the TEI-compatible embedding endpoint.
	BaseURL string `koanf:"base_url"`
	// Model is the embedding model name.
	Model string `koanf:"model"`
	// Dimension is the embedding dimension for the mock provider.
	Dimension int `koanf:"dimension"`
	// Timeout bounds a single embedding request.
	Timeout time.Duration `koanf:"timeout"`
}

// GeneratorConfig configures the content generator collaborator.
type GeneratorConfig struct {
	// BaseURL is an OpenAI-compatible completion endpoint. Leaving both
	// BaseURL and APIKey empty disables the LLM; content comes from the
	// deterministic fallbacks instead.
	BaseURL string `koanf:"base_url"`
	// APIKey authenticates against the provider.
	APIKey string `koanf:"api_key"`
	// Model is the LLM model name passed to the provider.
	Model string `koanf:"model"`
	// Timeout bounds a single generation call. The deterministic
	// fallback is used when the deadline is exceeded.
	Timeout time.Duration `koanf:"timeout"`
	// RateLimit is requests per second against the provider.
	RateLimit float64 `koanf:"rate_limit"`
}

// SessionConfig configures tutoring session defaults.
type SessionConfig struct {
	// TotalSteps is the fixed step count for new sessions.
	TotalSteps int `koanf:"total_steps"`
	// MaxHistoryPerUser caps the per-user performance history.
	MaxHistoryPerUser int `koanf:"max_history_per_user"`
}

// AnalyticsConfig configures the best-effort event sink.
type AnalyticsConfig struct {
	// NATSURL enables the NATS event sink when set. Empty disables it.
	NATSURL string `koanf:"nats_url"`
	// SubjectPrefix prefixes published subjects. Default: "tutord".
	SubjectPrefix string `koanf:"subject_prefix"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: logging format %q (want json or console)", ErrInvalidConfig, c.Logging.Format)
	}
	switch c.Embeddings.Provider {
	case "tei", "mock":
	default:
		return fmt.Errorf("%w: embeddings provider %q (want tei or mock)", ErrInvalidConfig, c.Embeddings.Provider)
	}
	if c.Embeddings.Provider == "tei" && c.Embeddings.BaseURL == "" {
		return fmt.Errorf("%w: embeddings base_url required for tei provider", ErrInvalidConfig)
	}
	if c.Session.TotalSteps < 1 {
		return fmt.Errorf("%w: session total_steps must be positive", ErrInvalidConfig)
	}
	if c.Session.MaxHistoryPerUser < 1 {
		return fmt.Errorf("%w: session max_history_per_user must be positive", ErrInvalidConfig)
	}
	return nil
}
