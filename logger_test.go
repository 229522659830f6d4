package globalcache

import (
	"fmt"
	"sync"
	"testing"
)

// recordingLogger captures log lines for assertions
type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *recordingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf("%s %s", level, msg))
}

func (l *recordingLogger) Debug(msg string, fields ...interface{}) { l.record("DEBUG", msg) }
func (l *recordingLogger) Info(msg string, fields ...interface{})  { l.record("INFO", msg) }
func (l *recordingLogger) Warn(msg string, fields ...interface{})  { l.record("WARN", msg) }
func (l *recordingLogger) Error(msg string, fields ...interface{}) { l.record("ERROR", msg) }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if len(e) > len(level) && e[:len(level)+1] == level+" " {
			n++
		}
	}
	return n
}

func TestNoOpLogger(t *testing.T) {
	logger := &NoOpLogger{}

	logger.Debug("test message", "key", "value")
	logger.Info("test message", "key", "value")
	logger.Warn("test message", "key", "value")
	logger.Error("test message", "key", "value")
}

func TestLoggerInterface(t *testing.T) {
	var _ Logger = &NoOpLogger{}
	var _ ScopedLogger = &ZapLogger{}
	var _ Logger = &recordingLogger{}
}

// fieldRecorder keeps the fields of the last entry
type fieldRecorder struct {
	recordingLogger
	last []interface{}
}

func (l *fieldRecorder) Warn(msg string, fields ...interface{}) {
	l.last = fields
	l.recordingLogger.Warn(msg, fields...)
}

func TestWithFields_Wraps(t *testing.T) {
	rec := &fieldRecorder{}
	logger := WithFields(rec, "backend", "redis")

	logger.Warn("backend operation failed", "key", "INDUSTRIAL:device:id:1")

	want := []interface{}{"backend", "redis", "key", "INDUSTRIAL:device:id:1"}
	if len(rec.last) != len(want) {
		t.Fatalf("fields = %v, want %v", rec.last, want)
	}
	for i := range want {
		if rec.last[i] != want[i] {
			t.Errorf("field %d = %v, want %v", i, rec.last[i], want[i])
		}
	}
	if rec.count("WARN") != 1 {
		t.Error("entry not forwarded")
	}
}

func TestWithFields_NoFields(t *testing.T) {
	rec := &recordingLogger{}
	if WithFields(rec) != Logger(rec) {
		t.Error("WithFields without fields should return the logger unchanged")
	}
	if _, ok := WithFields(nil, "k", "v").(*NoOpLogger); !ok {
		t.Error("WithFields(nil) should return a NoOpLogger")
	}
}

func TestWithFields_DoesNotShareFields(t *testing.T) {
	rec := &fieldRecorder{}
	logger := WithFields(rec, "component", "cache")

	logger.Warn("first", "a", 1)
	logger.Warn("second")

	if len(rec.last) != 2 {
		t.Errorf("fields leaked between entries: %v", rec.last)
	}
}

func TestOrNoOp(t *testing.T) {
	if _, ok := orNoOp(nil).(*NoOpLogger); !ok {
		t.Error("orNoOp(nil) should return a NoOpLogger")
	}
	rec := &recordingLogger{}
	if orNoOp(rec) != Logger(rec) {
		t.Error("orNoOp should return a non-nil logger unchanged")
	}
}

func TestOrNoOp_TypedNilZap(t *testing.T) {
	var z *ZapLogger
	if _, ok := orNoOp(z).(*NoOpLogger); !ok {
		t.Error("orNoOp((*ZapLogger)(nil)) should return a NoOpLogger")
	}

	// Must not panic: the typed nil never reaches ZapLogger.With.
	WithFields(z, "backend", "redis").Warn("scoped")
	if _, ok := NewRedisBackend(nil, WithBackendLogger(z)).logger.(*NoOpLogger); !ok {
		t.Error("backend built with a nil *ZapLogger should log to a NoOpLogger")
	}
	if _, ok := orNoOp(&ZapLogger{}).(*NoOpLogger); !ok {
		t.Error("orNoOp(&ZapLogger{}) should return a NoOpLogger")
	}
}
