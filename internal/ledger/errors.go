package ledger

import (
	"errors"
	"fmt"
)

// Kind classifies a ledger error.
type Kind string

const (
	KindInvalidArgument        Kind = "InvalidArgument"
	KindAlreadyExists          Kind = "AlreadyExists"
	KindNotFound               Kind = "NotFound"
	KindUnauthorized           Kind = "Unauthorized"
	KindInvalidStateTransition Kind = "InvalidStateTransition"
	KindUnknownOperation       Kind = "UnknownOperation"
	KindPersistenceFailure     Kind = "PersistenceFailure"
)

// Error is returned by every engine operation that rejects a request.
// Two Errors match under errors.Is when their kinds are equal, so callers can
// compare against the sentinel values below.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err == nil:
		return string(e.Kind)
	case e.Err == nil:
		return e.Msg
	case e.Msg == "":
		return e.Err.Error()
	default:
		return e.Msg + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a ledger Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidArgument        = &Error{Kind: KindInvalidArgument}
	ErrAlreadyExists          = &Error{Kind: KindAlreadyExists}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrUnauthorized           = &Error{Kind: KindUnauthorized}
	ErrInvalidStateTransition = &Error{Kind: KindInvalidStateTransition}
	ErrUnknownOperation       = &Error{Kind: KindUnknownOperation}
	ErrPersistenceFailure     = &Error{Kind: KindPersistenceFailure}
)

// Errorf builds an Error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Persistence wraps a store error as a PersistenceFailure.
func Persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistenceFailure, Msg: op, Err: err}
}

// KindOf returns the kind of the first ledger Error in err's chain, or "" when
// err carries none.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}
