package messaging

import "errors"

// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when attempting operations on a disconnected client.
	ErrNotConnected = errors.New("messaging: client not connected")

	// ErrConnectionFailed is returned when the connection attempt fails.
	ErrConnectionFailed = errors.New("messaging: connection failed")

	// ErrSendFailed is returned when a message cannot be published.
	ErrSendFailed = errors.New("messaging: send failed")

	// ErrSubscribeFailed is returned when a subscription cannot be created.
	ErrSubscribeFailed = errors.New("messaging: subscribe failed")

	// ErrUnsubscribeFailed is returned when a subscription cannot be removed.
	ErrUnsubscribeFailed = errors.New("messaging: unsubscribe failed")

	// ErrInvalidDestination is returned for an empty destination.
	ErrInvalidDestination = errors.New("messaging: destination cannot be empty")

	// ErrInvalidListener is returned when a nil listener is registered.
	ErrInvalidListener = errors.New("messaging: listener cannot be nil")

	// ErrInvalidConfig is returned when Config fails validation.
	ErrInvalidConfig = errors.New("messaging: invalid configuration")

	// ErrStopped is returned by Subscribe after Stop.
	ErrStopped = errors.New("messaging: client stopped")
)
