// Package service holds what the external-service clients share: the
// failure classification that pairs an error with the pipeline stage
// it came from.
package service

import (
	"errors"
	"fmt"
	"net/http"

	pkgerrors "github.com/pkg/errors"
)

// Stage identifies the external step that failed, so callers know
// which one to retry.
type Stage string

const (
	StageTranscription Stage = "transcription"
	StageGeneration    Stage = "generation"
)

// Error is a transfer failure from an external collaborator. Never
// retried internally; the message is surfaced verbatim alongside the
// stage.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err as a classified transfer failure for a stage.
func NewError(stage Stage, err error) *Error {
	return &Error{Stage: stage, Err: err}
}

// StageOf extracts the failed stage from err, if it is classified.
func StageOf(err error) (Stage, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// ClassifyStatus turns a non-200 response into a descriptive error.
// The service's own message is kept verbatim for the user.
func ClassifyStatus(status int, body []byte) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.Errorf("authentication rejected (HTTP %d): %s", status, body)
	case http.StatusRequestEntityTooLarge:
		return pkgerrors.Errorf("media payload too large (HTTP %d): %s", status, body)
	case http.StatusUnsupportedMediaType:
		return pkgerrors.Errorf("media format not supported (HTTP %d): %s", status, body)
	default:
		return pkgerrors.Errorf("service error (HTTP %d): %s", status, body)
	}
}
