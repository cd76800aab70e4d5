package config

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger builds a zap logger at the configured level. Debug level switches
// to the human readable development encoder.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}

	zc := zap.NewProductionConfig()
	if level.Level() == zap.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
