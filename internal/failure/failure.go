package failure

import (
	"gitlab.com/tozd/go/errors"
)

// Kind classifies an operation failure for callers
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindUnsupportedFormat Kind = "unsupported_format"
	KindMalformedSource   Kind = "malformed_source"
	KindNoViableRules     Kind = "no_viable_rules"
	KindEmptyBatch        Kind = "empty_batch"
	KindNotFound          Kind = "not_found"
	KindStoreFailure      Kind = "store_failure"
)

// Error is a classified failure. Message is safe to show to the caller,
// Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, failure.ErrEmptyBatch) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is checks
var (
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat}
	ErrMalformedSource   = &Error{Kind: KindMalformedSource}
	ErrNoViableRules     = &Error{Kind: KindNoViableRules}
	ErrEmptyBatch        = &Error{Kind: KindEmptyBatch}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrStoreFailure      = &Error{Kind: KindStoreFailure}
)

func InvalidInput(message string) error {
	return errors.WithStack(&Error{Kind: KindInvalidInput, Message: message})
}

func UnsupportedFormat(format string) error {
	return errors.WithStack(&Error{Kind: KindUnsupportedFormat, Message: "unsupported file format: " + format})
}

func MalformedSource(message string, cause error) error {
	return errors.WithStack(&Error{Kind: KindMalformedSource, Message: message, Err: cause})
}

func NoViableRules(message string) error {
	return errors.WithStack(&Error{Kind: KindNoViableRules, Message: message})
}

func EmptyBatch() error {
	return errors.WithStack(&Error{Kind: KindEmptyBatch, Message: "nothing to commit: batch has no accepted rules"})
}

func NotFound(message string) error {
	return errors.WithStack(&Error{Kind: KindNotFound, Message: message})
}

// Store wraps a datastore or rule store error. Already classified errors pass through.
func Store(message string, cause error) error {
	if cause == nil {
		return nil
	}
	var fe *Error
	if errors.As(cause, &fe) {
		return cause
	}
	return errors.WithStack(&Error{Kind: KindStoreFailure, Message: message, Err: cause})
}

// KindOf returns the kind of err. Unclassified errors are store failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindStoreFailure
}

// MessageOf returns the caller-facing message of err
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		if fe.Kind == KindMalformedSource && fe.Err != nil {
			return fe.Message + ": " + fe.Err.Error()
		}
		return fe.Message
	}
	return "internal store failure"
}
