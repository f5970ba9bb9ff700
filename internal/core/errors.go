package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies storage failures. Kinds drive retry policy and
// user-facing behavior, so they are a first-class enum rather than matched
// out of error strings.
type ErrorKind int

const (
	// KindTransient covers failures expected to clear on retry (I/O timeouts,
	// busy database, flaky mounts).
	KindTransient ErrorKind = iota

	// KindCapabilityUnavailable means the environment cannot grant directory
	// access at all. Non-fatal; triggers tier fallback.
	KindCapabilityUnavailable

	// KindUserCancelled means the user dismissed a grant prompt. Never
	// retried, never shown as an error.
	KindUserCancelled

	// KindPermissionDenied means a grant exists but write access was refused.
	// Retried at most once before surfacing.
	KindPermissionDenied

	// KindStaleHandle means a previously granted handle no longer resolves.
	KindStaleHandle

	// KindCorruptionDetected means the primary document failed integrity
	// parsing.
	KindCorruptionDetected

	// KindValidationFailed means the integrity check found critical or high
	// severity issues.
	KindValidationFailed

	// KindRepairFailed means a specific repair step could not be applied.
	KindRepairFailed

	// KindStorageUnavailable means the embedded store backing handles or the
	// cache could not be reached.
	KindStorageUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindCapabilityUnavailable:
		return "capability_unavailable"
	case KindUserCancelled:
		return "user_cancelled"
	case KindPermissionDenied:
		return "permission_denied"
	case KindStaleHandle:
		return "stale_handle"
	case KindCorruptionDetected:
		return "corruption_detected"
	case KindValidationFailed:
		return "validation_failed"
	case KindRepairFailed:
		return "repair_failed"
	case KindStorageUnavailable:
		return "storage_unavailable"
	}
	return "unknown"
}

// StorageError is a typed failure from the storage core. Suggestions, when
// present, are actionable remediations shown to the user.
type StorageError struct {
	Kind        ErrorKind
	Op          string
	Err         error
	Suggestions []string
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewError builds a StorageError for op with the given kind.
func NewError(kind ErrorKind, op string, err error) *StorageError {
	return &StorageError{Kind: kind, Op: op, Err: err}
}

// WithSuggestions attaches remediation hints and returns the error.
func (e *StorageError) WithSuggestions(s ...string) *StorageError {
	e.Suggestions = append(e.Suggestions, s...)
	return e
}

// KindOf extracts the ErrorKind from err. Errors that are not StorageErrors
// are treated as transient.
func KindOf(err error) ErrorKind {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindTransient
}

// Retryable reports whether err may be retried at all. User cancellation is
// never retried; permission denials get a single retry handled by the caller.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindUserCancelled, KindCorruptionDetected, KindValidationFailed, KindRepairFailed:
		return false
	}
	return true
}

// SuggestionsOf returns remediation hints attached to err, if any.
func SuggestionsOf(err error) []string {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Suggestions
	}
	return nil
}
