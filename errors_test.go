package globalcache

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrBackendUnavailable", ErrBackendUnavailable, "backend unavailable"},
		{"ErrUDFNotRegistered", ErrUDFNotRegistered, "set udf not registered"},
		{"ErrInvalidConfig", ErrInvalidConfig, "invalid configuration"},
		{"ErrMapperFailed", ErrMapperFailed, "attribute mapper failed"},
		{"ErrNoSource", ErrNoSource, "entity has no source object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("error message = %q, want %q", tt.err.Error(), tt.want)
			}
		})
	}
}

func TestWithContext(t *testing.T) {
	baseErr := errors.New("base error")
	ctx := map[string]interface{}{
		"key":   "INDUSTRIAL:device:id:1",
		"field": "label",
	}

	err := WithContext(baseErr, ctx)

	var errWithCtx *ErrorWithContext
	if !errors.As(err, &errWithCtx) {
		t.Fatalf("expected ErrorWithContext, got %T", err)
	}
	if !errors.Is(err, baseErr) {
		t.Error("expected error to wrap base error")
	}
	if errWithCtx.Context["field"] != "label" {
		t.Errorf("context field = %v, want 'label'", errWithCtx.Context["field"])
	}
	if err.Error() == baseErr.Error() {
		t.Error("error message should include context")
	}
}

func TestWithContext_Nil(t *testing.T) {
	if err := WithContext(nil, map[string]interface{}{"k": "v"}); err != nil {
		t.Errorf("WithContext(nil) = %v, want nil", err)
	}
	if msg := WithContext(ErrTimeout, nil).Error(); msg != ErrTimeout.Error() {
		t.Errorf("message without context = %q, want %q", msg, ErrTimeout.Error())
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", ErrTimeout, true},
		{"unavailable", ErrBackendUnavailable, true},
		{"joined unavailable", fmt.Errorf("redis GET: %w", errors.Join(ErrBackendUnavailable, errors.New("dial"))), true},
		{"with context", WithContext(ErrTimeout, map[string]interface{}{"op": "get"}), true},
		{"not counter", ErrNotCounter, false},
		{"mapper", ErrMapperFailed, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"invalid config", ErrInvalidConfig, true},
		{"invalid field", WithContext(ErrInvalidField, nil), true},
		{"mapper", fmt.Errorf("%w: boom", ErrMapperFailed), true},
		{"udf missing", ErrUDFNotRegistered, true},
		{"timeout", ErrTimeout, false},
		{"other", errors.New("other"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPermanent(tt.err); got != tt.want {
				t.Errorf("IsPermanent(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
