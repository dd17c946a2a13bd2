package logging

import (
	"github.com/sdejongh/filenorris/pkg/config"
)

// FromConfig builds the logger the engine configuration describes: the
// null logger when logging is disabled, a zerolog-backed logger
// otherwise.
func FromConfig(cfg config.LoggingConfig) (Logger, error) {
	if !cfg.Enabled {
		return NewNullLogger(), nil
	}
	return NewZerologLogger(ZerologConfig{
		Level:   ParseLevel(cfg.Level),
		File:    cfg.File,
		Console: cfg.Console,
	})
}
