package globalcache

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	// Backend errors
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrTimeout            = errors.New("operation timed out")
	ErrUDFNotRegistered   = errors.New("set udf not registered")
	ErrNotCounter         = errors.New("field does not hold an integer counter")

	// Key and record errors
	ErrInvalidKey      = errors.New("invalid cache key")
	ErrInvalidField    = errors.New("invalid record field")
	ErrMissingKeyField = errors.New("natural key field missing from source")

	// Entity errors
	ErrNoSource           = errors.New("entity has no source object")
	ErrUnknownEntityType  = errors.New("unknown entity type")
	ErrUnknownAttribute   = errors.New("unknown attribute")
	ErrMapperFailed       = errors.New("attribute mapper failed")
	ErrUnsupportedValue   = errors.New("value cannot be encoded for storage")
	ErrDuplicateAttribute = errors.New("attribute declared twice")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ErrorWithContext adds additional context to errors for better debugging and logging
type ErrorWithContext struct {
	Err     error
	Context map[string]interface{}
}

func (e *ErrorWithContext) Error() string {
	if len(e.Context) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v (context: %+v)", e.Err, e.Context)
}

func (e *ErrorWithContext) Unwrap() error {
	return e.Err
}

// WithContext adds context to an error
func WithContext(err error, context map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &ErrorWithContext{
		Err:     err,
		Context: context,
	}
}

// IsRetryable checks if an error is safe to retry.
// The cache itself never retries; callers decide.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrBackendUnavailable)
}

// IsPermanent checks if an error is permanent (not retryable)
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidKey) ||
		errors.Is(err, ErrInvalidField) ||
		errors.Is(err, ErrMissingKeyField) ||
		errors.Is(err, ErrMapperFailed) ||
		errors.Is(err, ErrUnsupportedValue) ||
		errors.Is(err, ErrUDFNotRegistered)
}
