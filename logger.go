package globalcache

// Logger provides structured logging for cache operations.
// fields are alternating key/value pairs.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// ScopedLogger is a Logger that can derive a child carrying fixed fields.
// ZapLogger implements it; other loggers are wrapped by WithFields.
type ScopedLogger interface {
	Logger
	With(fields ...interface{}) Logger
}

// NoOpLogger is a logger that does nothing
type NoOpLogger struct{}

func (l *NoOpLogger) Debug(msg string, fields ...interface{}) {}
func (l *NoOpLogger) Info(msg string, fields ...interface{})  {}
func (l *NoOpLogger) Warn(msg string, fields ...interface{})  {}
func (l *NoOpLogger) Error(msg string, fields ...interface{}) {}

// WithFields returns a logger that adds fields to every entry.
func WithFields(logger Logger, fields ...interface{}) Logger {
	logger = orNoOp(logger)
	if len(fields) == 0 {
		return logger
	}
	switch l := logger.(type) {
	case *NoOpLogger:
		return l
	case ScopedLogger:
		return l.With(fields...)
	}
	return &fieldLogger{next: logger, fields: fields}
}

// fieldLogger prepends fixed fields for loggers without native scoping
type fieldLogger struct {
	next   Logger
	fields []interface{}
}

func (l *fieldLogger) merge(fields []interface{}) []interface{} {
	out := make([]interface{}, 0, len(l.fields)+len(fields))
	out = append(out, l.fields...)
	return append(out, fields...)
}

func (l *fieldLogger) Debug(msg string, fields ...interface{}) { l.next.Debug(msg, l.merge(fields)...) }
func (l *fieldLogger) Info(msg string, fields ...interface{})  { l.next.Info(msg, l.merge(fields)...) }
func (l *fieldLogger) Warn(msg string, fields ...interface{})  { l.next.Warn(msg, l.merge(fields)...) }
func (l *fieldLogger) Error(msg string, fields ...interface{}) { l.next.Error(msg, l.merge(fields)...) }

// orNoOp returns logger, or a NoOpLogger when logger is nil. A nil
// *ZapLogger stored in the interface counts as nil too.
func orNoOp(logger Logger) Logger {
	switch l := logger.(type) {
	case nil:
		return &NoOpLogger{}
	case *ZapLogger:
		if l == nil || l.logger == nil {
			return &NoOpLogger{}
		}
	}
	return logger
}
