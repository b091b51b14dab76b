// Package logging provides zap logger helpers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// New builds a zap.Logger configured for development or production.
func New(development bool) (*zap.Logger, error) {
	if development {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build dev logger: %w", err)
		}
		return logger, nil
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = false
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build prod logger: %w", err)
	}
	return logger, nil
}

// ForPass tags every entry with the pass identifier.
func ForPass(logger *zap.Logger, passID string) *zap.Logger {
	return logger.With(zap.String("pass_id", passID))
}

// Product returns the fields identifying a product in log entries.
func Product(p monitor.Product) []zap.Field {
	return []zap.Field{
		zap.String("product", p.Name),
		zap.String("store", p.Store),
		zap.String("url", p.URL),
	}
}
