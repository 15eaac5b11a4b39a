package auth

import "errors"

// ErrorKind classifies identity failures.
type ErrorKind string

const (
	KindWeakCredential    ErrorKind = "weak-credential"
	KindAlreadyRegistered ErrorKind = "already-registered"
	KindUnknownAccount    ErrorKind = "unknown-account"
	KindBadCredential     ErrorKind = "bad-credential"
	KindInactiveAccount   ErrorKind = "inactive-account"
)

// Error is the single failure type returned by identity operations.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "auth: " + string(e.Kind)
	}
	return "auth: " + string(e.Kind) + ": " + e.Message
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrWeakCredential    = &Error{Kind: KindWeakCredential}
	ErrAlreadyRegistered = &Error{Kind: KindAlreadyRegistered}
	ErrUnknownAccount    = &Error{Kind: KindUnknownAccount}
	ErrBadCredential     = &Error{Kind: KindBadCredential}
	ErrInactiveAccount   = &Error{Kind: KindInactiveAccount}
)

// KindOf returns the kind carried by err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}
