package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError is a socket-level failure on a specific connection.
type NetworkError struct {
	Op        string // "dial", "read", "write", "watchdog"
	ConnID    string // identity of the socket the error belongs to, may be empty
	Err       error
	Retriable bool
}

func (e *NetworkError) Error() string {
	if e.ConnID == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " [" + e.ConnID + "]: " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op, connID string, err error) *NetworkError {
	return &NetworkError{Op: op, ConnID: connID, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op, connID string, err error) *NetworkError {
	return &NetworkError{Op: op, ConnID: connID, Err: err, Retriable: false}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrConnectionFailed is returned when the websocket dial fails. It's usually retriable.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrNotConnected is returned when a frame is written without an open socket.
	ErrNotConnected = errors.New("not connected")

	// ErrStaleConnection is reported when no frame arrives within the read timeout.
	ErrStaleConnection = errors.New("connection stale (no data)")

	// ErrMaxRetriesExceeded is the payload of the noreconnect event. Not retriable.
	ErrMaxRetriesExceeded = errors.New("max reconnect attempts exceeded")

	// ErrClientStopped is returned by operations on a stopped ticker.
	ErrClientStopped = errors.New("ticker stopped")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrMissingValue marks a required configuration field left empty.
	ErrMissingValue = errors.New("required value is empty")
)
