package services

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines common logging interface for all services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// ZapLogger is the production Logger, backed by a zap SugaredLogger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger builds a JSON logger in production and a console logger
// otherwise. level is one of debug, info, warn, error.
func NewZapLogger(service string, production bool, level string) (*ZapLogger, error) {
	var cfg zap.Config
	if production {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: base.Sugar().With("service", service)}, nil
}

// NewZapLoggerFrom wraps an existing zap logger (tests use zaptest/observer).
func NewZapLoggerFrom(base *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: base.Sugar()}
}

func (l *ZapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *ZapLogger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *ZapLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *ZapLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// With returns a logger that adds keysAndValues to every entry.
func (l *ZapLogger) With(keysAndValues ...interface{}) *ZapLogger {
	return &ZapLogger{sugar: l.sugar.With(keysAndValues...)}
}

func (l *ZapLogger) Sync() {
	_ = l.sugar.Sync()
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NoOpLogger is a logger that does nothing (for testing)
type NoOpLogger struct{}

func (n *NoOpLogger) Info(msg string, keysAndValues ...interface{})  {}
func (n *NoOpLogger) Error(msg string, keysAndValues ...interface{}) {}
func (n *NoOpLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (n *NoOpLogger) Warn(msg string, keysAndValues ...interface{})  {}
