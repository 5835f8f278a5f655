package remote

import (
	"fmt"

	"github.com/tbourn/go-content-studio/internal/domain"
)

// NetworkError reports a transport-level failure: the backend could not be
// reached, or the connection broke before a full response was read.
type NetworkError struct {
	Op  domain.OpKind
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteError reports a backend that was reached but failed: a non-2xx
// status, a body that is not the expected JSON, or a missing payload.
// StatusCode is the HTTP status; Message is the backend's "error" field when
// it sent one.
type RemoteError struct {
	Op         domain.OpKind
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: remote error (status %d): %s", e.Op, e.StatusCode, e.Message)
}
