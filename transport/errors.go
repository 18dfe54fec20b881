package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout means the request's bounded interval elapsed.
	ErrTimeout = errors.New("request timed out")

	// ErrAborted means the caller cancelled the request. Callers treat it as
	// a non-event rather than a failure.
	ErrAborted = errors.New("request aborted")
)

// NetworkError is a connection-level failure: DNS, refused, reset.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerError is a non-2xx reply. Message carries the server's optional
// {"response": ...} fallback text, which is safe to show to the user.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.Status)
}

// UploadError means the audio upload was rejected under every content type tried.
type UploadError struct {
	Status int
	Body   string
}

func (e *UploadError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("audio upload failed (%d): %s", e.Status, e.Body)
	}
	return fmt.Sprintf("audio upload failed (%d)", e.Status)
}

// IsRetryable reports whether err is a transient connectivity failure that
// should prompt a fresh status probe.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	return errors.Is(err, ErrTimeout) || errors.As(err, &netErr)
}

// FallbackMessage returns the server-supplied fallback text carried by err, if any.
func FallbackMessage(err error) (string, bool) {
	var srvErr *ServerError
	if errors.As(err, &srvErr) && srvErr.Message != "" {
		return srvErr.Message, true
	}
	return "", false
}
