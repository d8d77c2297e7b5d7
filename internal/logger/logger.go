package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "genfity-pricing-service"

// New builds the process logger. Development environments get the console
// encoder; level, when set, overrides the environment default.
func New(env string, level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if env == "development" || env == "local" {
		cfg = zap.NewDevelopmentConfig()
	}

	if strings.TrimSpace(level) != "" {
		lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]any{"service": serviceName}
	return cfg.Build()
}
