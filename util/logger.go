package util

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a console logger for dev mode and a JSON logger for prod.
func NewLogger(mode, level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch mode {
	case "prod":
		cfg = zap.NewProductionConfig()
	case "dev", "":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build(zap.Fields(zap.String("service", "social-service")))
}
