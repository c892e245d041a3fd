package model

import (
	"errors"
	"fmt"
)

// FailureKind categorizes failures surfaced to callers. The coordinator
// never retries on its own; the caller decides what each kind warrants.
type FailureKind string

const (
	FailureUnauthorized  FailureKind = "unauthorized"
	FailureRateLimited   FailureKind = "rate_limited"
	FailureTransport     FailureKind = "transport"
	FailureNotFound      FailureKind = "not_found"
	FailureLocalConflict FailureKind = "local_state_conflict"
)

// RefreshError wraps an underlying failure with its category.
type RefreshError struct {
	Kind FailureKind
	Err  error
}

func (e *RefreshError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// NewRefreshError builds a categorized error wrapping err.
func NewRefreshError(kind FailureKind, err error) *RefreshError {
	return &RefreshError{Kind: kind, Err: err}
}

// KindOf extracts the failure category from an error chain. Uncategorized
// errors report FailureTransport, the catch-all for network-shaped failures.
func KindOf(err error) FailureKind {
	var re *RefreshError
	if errors.As(err, &re) {
		return re.Kind
	}
	return FailureTransport
}

// IsKind reports whether the error chain carries the given category.
func IsKind(err error, kind FailureKind) bool {
	var re *RefreshError
	return errors.As(err, &re) && re.Kind == kind
}
