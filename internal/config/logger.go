package config

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger собирает zap-логгер по конфигу: debug-уровень даёт цветной
// консольный вывод для локальной разработки, остальные - production JSON
// с ISO8601-временем.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level := parseLogLevel(cfg.Level)

	if level == zapcore.DebugLevel {
		dev := zap.NewDevelopmentConfig()
		dev.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return dev.Build()
	}

	prod := zap.NewProductionConfig()
	prod.Level = zap.NewAtomicLevelAt(level)
	prod.EncoderConfig.TimeKey = "timestamp"
	prod.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	prod.EncoderConfig.CallerKey = "caller"
	prod.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	return prod.Build()
}

// parseLogLevel понимает и "warning" как синоним "warn";
// нераспознанный уровень тихо превращается в info.
func parseLogLevel(level string) zapcore.Level {
	s := strings.ToLower(strings.TrimSpace(level))
	if s == "warning" {
		s = "warn"
	}
	l, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}
