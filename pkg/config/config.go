package config

// Config holds the operation engine's tunables. It covers the engine
// only; the embedding application keeps its own configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Trash   TrashConfig   `yaml:"trash"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig holds execution-related settings
type EngineConfig struct {
	// MaxConcurrent bounds the number of operations executing at once;
	// 0 means unlimited
	MaxConcurrent int `yaml:"max_concurrent"`

	// CopyBufferSize is the buffer size for file copies, in bytes
	CopyBufferSize int `yaml:"copy_buffer_size"`

	// CopyRateLimit caps copy bandwidth in bytes per second across all
	// running operations; 0 means unlimited
	CopyRateLimit int64 `yaml:"copy_rate_limit"`

	// KeepBothLimit caps the numeric suffix tried when synthesizing a
	// keep-both destination name
	KeepBothLimit int `yaml:"keep_both_limit"`
}

// TrashConfig holds trash store settings
type TrashConfig struct {
	// Directory overrides the trash store location; empty selects the
	// platform default
	Directory string `yaml:"directory"`
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`   // "debug", "info", "warn", "error"
	File    string `yaml:"file"`    // Log file path (empty = stderr)
	Console bool   `yaml:"console"` // Human-readable instead of JSON
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxConcurrent:  0,
			CopyBufferSize: 65536,
			CopyRateLimit:  0,
			KeepBothLimit:  1000,
		},
		Trash: TrashConfig{
			Directory: "",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			File:    "",
			Console: false,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Engine.MaxConcurrent < 0 {
		return &ValidationError{Field: "engine.max_concurrent", Message: "must not be negative"}
	}
	if c.Engine.CopyBufferSize < 1024 {
		return &ValidationError{Field: "engine.copy_buffer_size", Message: "must be at least 1024 bytes"}
	}
	if c.Engine.CopyRateLimit < 0 {
		return &ValidationError{Field: "engine.copy_rate_limit", Message: "must not be negative"}
	}
	if c.Engine.KeepBothLimit < 1 {
		return &ValidationError{Field: "engine.keep_both_limit", Message: "must be at least 1"}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Field: "logging.level", Message: "must be one of debug, info, warn, error"}
	}
	return nil
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
