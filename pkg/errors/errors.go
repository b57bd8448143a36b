// Package errors augments the standard errors
// provided by fmt (https://golang.org/src/fmt/errors.go)
// with a Wrap() method to chain errors without resorting
// to fmt.Errorf("%w", err).
//
// Sentinel errors declared with New may be wrapped repeatedly:
// Wrap derives a new value and never mutates its receiver, so
// package-level sentinels stay safe under concurrent use.
package errors

import (
	stderr "errors"
)

var _ error = New("")

// New creates an Error with the given message.
func New(msg string) *Error {
	return &Error{msg: msg}
}

// Error augments the standard error interface with a Wrap method.
//
// The main difference with github.com/pkg/errors is that we are wrapping
// errors with errors, not with text.
type Error struct {
	msg string
	err error
}

// Error message
func (e *Error) Error() string {
	return e.msg
}

// Unwrap the nested error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Wrap returns a copy of this error with a nested cause attached.
// The receiver is left untouched, so sentinels may be wrapped freely.
func (e *Error) Wrap(err error) *Error {
	return &Error{msg: e.msg, err: err}
}

// Is reports a match with another error. Two Errors match when they are
// the same value or carry the same message, so a sentinel matches any of
// its Wrap derivatives.
func (e *Error) Is(target error) bool {
	if e == target || e.err == target {
		return true
	}
	t, ok := target.(*Error)
	return ok && t.msg == e.msg
}

// As finds the first error in err's chain that matches target, and if so, sets target to that error value and returns true
// (a shortcut to the standard lib errors.As).
func As(err error, target interface{}) bool {
	return stderr.As(err, target)
}

// Is reports whether any error in err's chain matches target
// (a shortcut to the standard lib errors.Is).
func Is(err, target error) bool {
	return stderr.Is(err, target)
}
