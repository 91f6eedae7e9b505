// Package services holds the storefront's domain logic. Services return
// *Error for every failure a client can act on; anything else is internal.
package services

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindConflict
)

// Error is a domain failure with a client-facing message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error { return newError(KindValidation, format, args...) }
func NotFound(format string, args ...any) *Error   { return newError(KindNotFound, format, args...) }
func Unauthorized(format string, args ...any) *Error {
	return newError(KindUnauthorized, format, args...)
}
func Forbidden(format string, args ...any) *Error { return newError(KindForbidden, format, args...) }
func Conflict(format string, args ...any) *Error  { return newError(KindConflict, format, args...) }

// KindOf returns the kind of a domain error, or 0 for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
