package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a referenced row no longer exists.
	ErrNotFound = errors.New("not found")
	// ErrCanceled is returned when the operation is canceled by the caller.
	ErrCanceled = errors.New("operation canceled")
	// ErrDeclined is returned when a confirmation prompt is answered with no.
	ErrDeclined = errors.New("confirmation declined")
)

// ErrorKind classifies API failures by how the caller should react.
type ErrorKind string

const (
	// KindNetwork covers transport failures; the same request may be retried.
	KindNetwork ErrorKind = "network"
	// KindValidation covers 4xx rejections; not retryable, the message is
	// surfaced to the user verbatim.
	KindValidation ErrorKind = "validation"
	// KindNotFound covers missing rows; pruned silently from selections.
	KindNotFound ErrorKind = "not_found"
	// KindServer covers 5xx failures; surfaced with a retry affordance.
	KindServer ErrorKind = "server"
)

// APIError is a classified failure from the resource API.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Is makes not-found API errors match the ErrNotFound sentinel.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Kind == KindNotFound
}

// Retryable reports whether re-issuing the same request can succeed.
func (e *APIError) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindServer
}

// BulkError reports a bulk operation where some but not all requested ids
// succeeded. Both counts are always carried; a bulk outcome is never
// collapsed into a single boolean.
type BulkError struct {
	Requested int
	Succeeded int
	// FailedIDs lists the ids to keep selected for retry: the exact failures
	// when the backend attributes them, the whole requested set otherwise.
	FailedIDs []string
	// Attributed is true when FailedIDs is exact rather than the full set.
	Attributed bool
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("%d of %d succeeded, %d failed",
		e.Succeeded, e.Requested, e.Requested-e.Succeeded)
}

// WrapError normalizes context cancellation to ErrCanceled.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsCanceled(err) {
		return ErrCanceled
	}
	return err
}

// IsCanceled returns true if the error is due to context cancellation or
// deadline exceeded, including wrapped transport variants.
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, ErrCanceled) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "context canceled") || strings.Contains(errStr, "context deadline exceeded")
}
