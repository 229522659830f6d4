package globalcache

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a go.uber.org/zap logger to Logger
type ZapLogger struct {
	logger *zap.SugaredLogger
}

// NewZapLogger creates a new Zap logger adapter
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{
		logger: logger.Sugar(),
	}
}

// NewZapLoggerFromSugar creates a logger from an existing sugared logger
func NewZapLoggerFromSugar(logger *zap.SugaredLogger) *ZapLogger {
	return &ZapLogger{
		logger: logger,
	}
}

// NewProductionZapLogger creates a JSON logger at info level with ISO8601
// timestamps under the "timestamp" key.
func NewProductionZapLogger() (*ZapLogger, error) {
	return NewZapLoggerAtLevel("info")
}

// NewZapLoggerAtLevel is NewProductionZapLogger with a configurable minimum
// level ("debug", "info", "warn", "error").
func NewZapLoggerAtLevel(level string) (*ZapLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, WithContext(fmt.Errorf("%w: %w", ErrInvalidConfig, err), map[string]interface{}{
			"field": "log level",
			"value": level,
		})
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(logger), nil
}

// NewDevelopmentZapLogger creates a human-readable console logger at debug level
func NewDevelopmentZapLogger() (*ZapLogger, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}

	return NewZapLogger(logger), nil
}

func (l *ZapLogger) Debug(msg string, fields ...interface{}) {
	l.logger.Debugw(msg, fields...)
}

func (l *ZapLogger) Info(msg string, fields ...interface{}) {
	l.logger.Infow(msg, fields...)
}

func (l *ZapLogger) Warn(msg string, fields ...interface{}) {
	l.logger.Warnw(msg, fields...)
}

func (l *ZapLogger) Error(msg string, fields ...interface{}) {
	l.logger.Errorw(msg, fields...)
}

// With returns a child logger that adds fields to every entry
func (l *ZapLogger) With(fields ...interface{}) Logger {
	return &ZapLogger{logger: l.logger.With(fields...)}
}

// Sync flushes buffered entries; call it before exit.
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}
