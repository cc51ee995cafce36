// Package apperrors defines the error taxonomy shared by services and the
// HTTP boundary. Every error that reaches a client carries a stable key.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error independently of its key.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindNameConflict
	KindInvalidFormat
	KindInvalidReference
	KindInferenceFailure
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindNameConflict:
		return "name_conflict"
	case KindInvalidFormat:
		return "invalid_format"
	case KindInvalidReference:
		return "invalid_reference"
	case KindInferenceFailure:
		return "inference_failure"
	case KindStorage:
		return "storage"
	default:
		return "internal"
	}
}

// Sentinels returned by repositories. Services translate them into keyed
// errors for their own entity.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Error is a keyed application error.
type Error struct {
	Kind    Kind
	Key     string
	Message string
	Detail  string
	Err     error
}

// New builds an error whose message is looked up from the catalogue.
func New(kind Kind, key string) *Error {
	return &Error{Kind: kind, Key: key, Message: MessageFor(key)}
}

// Wrap is New with an underlying cause.
func Wrap(kind Kind, key string, err error) *Error {
	e := New(kind, key)
	e.Err = err
	return e
}

// WithDetail returns a copy of e carrying detail.
func (e *Error) WithDetail(format string, args ...any) *Error {
	c := *e
	c.Detail = fmt.Sprintf(format, args...)
	return &c
}

func (e *Error) Error() string {
	msg := e.Key + ": " + e.Message
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by key, so errors.Is(err, apperrors.New(k, key))
// works without comparing pointers.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Key == e.Key
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err. Untagged errors are internal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// HasKey reports whether err carries key.
func HasKey(err error, key string) bool {
	e, ok := As(err)
	return ok && e.Key == key
}

// Storage wraps a data-store failure.
func Storage(err error) *Error {
	return Wrap(KindStorage, KeyDatabaseError, err)
}

// FromStore gives a repository error its entity's key. ErrNotFound becomes
// notFoundKey and ErrConflict becomes conflictKey when those are non-empty.
// Keyed errors pass through; anything else is a storage error.
func FromStore(err error, notFoundKey, conflictKey string) error {
	switch {
	case err == nil:
		return nil
	case notFoundKey != "" && errors.Is(err, ErrNotFound):
		return Wrap(KindNotFound, notFoundKey, err)
	case conflictKey != "" && errors.Is(err, ErrConflict):
		return Wrap(KindNameConflict, conflictKey, err)
	}
	if _, ok := As(err); ok {
		return err
	}
	return Storage(err)
}

// Reference reports a lookup of a referenced entity that came back empty as
// an invalid reference under key. Other errors go through FromStore.
func Reference(err error, key string) error {
	if errors.Is(err, ErrNotFound) {
		return Wrap(KindInvalidReference, key, err)
	}
	return FromStore(err, "", "")
}
