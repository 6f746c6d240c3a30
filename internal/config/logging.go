package config

import (
	"strings"

	"go.uber.org/zap"
)

// NewLogger builds the zap logger for APP_ENV and installs it as the global
// logger.
func NewLogger(env string) (*zap.Logger, error) {
	logger, err := setLogger(env)
	if err != nil {
		return nil, err
	}
	_ = zap.ReplaceGlobals(logger)
	return logger, nil
}

func setLogger(env string) (*zap.Logger, error) {
	switch strings.ToLower(env) {
	case "prod", "production":
		return zap.NewProduction()
	case "local":
		return zap.NewExample(), nil
	default:
		return zap.NewDevelopment()
	}
}
