package models

import "errors"

// Sentinel errors surfaced by the locate pipeline. Callers match with
// errors.Is to pick the right HTTP status.
var (
	// ErrNotFound is returned when a ticker or broker has no reference data.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a request fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAuditWriteFailed is returned when the audit record cannot be
	// persisted. The calculation result is discarded in that case.
	ErrAuditWriteFailed = errors.New("audit write failed")
)
