package service

import "errors"

// Validation errors — rejected before any storage or metadata write, safe for
// the caller to retry with corrected input.
var (
	ErrReaderNil      = errors.New("reader is nil")
	ErrIDRequired     = errors.New("id is required")
	ErrTenantRequired = errors.New("tenant is required")
	ErrEmptyContent   = errors.New("empty content")
	ErrContentTooBig  = errors.New("content exceeds size limit")
	ErrMimeNotAllowed = errors.New("mime type not allowed")
)

var (
	// ErrNotFound covers both a missing identifier and one belonging to a
	// different tenant; callers cannot tell the two apart.
	ErrNotFound = errors.New("document not found")

	// ErrStorageWrite wraps blob backend failures. No metadata row exists,
	// the whole ingestion is safe to retry.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrMetadataCommit wraps metadata store failures after a successful blob
	// write. The orphaned blob is recorded for reconciliation; a retry issues
	// a fresh id and storage key, never reusing the orphaned one.
	ErrMetadataCommit = errors.New("metadata commit failed")

	// ErrInconsistentState marks a metadata row referencing missing bytes,
	// detected at read time. Surfaced as transient and flagged for
	// reconciliation, never as a successful read.
	ErrInconsistentState = errors.New("inconsistent document state")
)
