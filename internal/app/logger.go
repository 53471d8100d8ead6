package app

import (
	"strings"

	"github.com/lifeloop/lifeloop/pkg/logger"
)

// ConfigureLogging initialises the global logger with the provided level and format, defaulting to info/json.
func ConfigureLogging(level, format string) error {
	level = strings.TrimSpace(level)
	if level == "" {
		level = "info"
	}
	return logger.Configure(logger.Options{
		Level:  level,
		Format: strings.ToLower(strings.TrimSpace(format)),
	})
}
