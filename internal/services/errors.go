// Package services holds the workflow orchestrator and the session manager
// that hosts one orchestrator per session. This file centralizes the
// service-level error values so callers can check them with errors.Is and the
// handler layer can map them to HTTP results consistently.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrPrecondition matches every *PreconditionError.
	ErrPrecondition = errors.New("precondition not met")

	// ErrEmptyPrompt is returned when image generation is requested without
	// a prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrEmptyImage is returned when an upload carries no bytes.
	ErrEmptyImage = errors.New("uploaded image is empty")

	// ErrNoImage is returned when captioning or SEO is requested before any
	// image has been generated or uploaded.
	ErrNoImage = errors.New("no current image")

	// ErrNoCaption is returned when SEO is requested for an image that has
	// no caption yet.
	ErrNoCaption = errors.New("current image has no caption")

	// ErrBusy is returned when a request of the same kind is still pending.
	// Requests are never queued.
	ErrBusy = errors.New("a request of this kind is already pending")

	// ErrSessionNotFound indicates an unknown or already closed session.
	ErrSessionNotFound = errors.New("session not found")
)

// PreconditionError reports an intent rejected before any network call
// because a required input is missing. The user can always recover by
// supplying it.
type PreconditionError struct {
	Intent string
	Err    error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Intent, e.Err)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// Is reports ErrPrecondition as a match so callers need not know the cause.
func (e *PreconditionError) Is(target error) bool { return target == ErrPrecondition }
