// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package errors contains the domain error type used across the service.
// Errors form a chain: the outer message describes what failed, the
// wrapped error carries the cause. Errors are matched by message, so a
// sentinel survives being sent over the wire and decoded again.
package errors

import "encoding/json"

const separator = " : "

// Error is a link in an error chain.
type Error interface {
	error

	// Msg returns the message of this link only.
	Msg() string

	// Err returns the wrapped cause, nil at the end of the chain.
	Err() Error

	MarshalJSON() ([]byte, error)
}

var _ Error = (*link)(nil)

type link struct {
	msg   string
	cause Error
}

// New returns an Error that formats as the given text.
func New(text string) Error {
	return &link{msg: text}
}

func (l *link) Error() string {
	if l == nil {
		return ""
	}
	if l.cause == nil {
		return l.msg
	}
	return l.msg + separator + l.cause.Error()
}

func (l *link) Msg() string {
	return l.msg
}

func (l *link) Err() Error {
	return l.cause
}

// Unwrap exposes the cause to the standard library.
func (l *link) Unwrap() error {
	if l.cause == nil {
		return nil
	}
	return l.cause
}

// Is matches target by message so errors.Is agrees with Contains.
func (l *link) Is(target error) bool {
	return target != nil && l.msg == target.Error()
}

// MarshalJSON encodes the outer message and the message of its direct cause.
func (l *link) MarshalJSON() ([]byte, error) {
	body := struct {
		Err string `json:"error"`
		Msg string `json:"message"`
	}{Msg: l.msg}
	if l.cause != nil {
		body.Err = l.cause.Msg()
	}
	return json.Marshal(body)
}

// Contains reports whether target appears at any level of err's chain.
func Contains(err, target error) bool {
	if err == nil || target == nil {
		return err == target
	}
	want := target.Error()
	for {
		e, ok := err.(Error)
		if !ok {
			return err.Error() == want
		}
		if e.Msg() == want {
			return true
		}
		next := e.Err()
		if next == nil {
			return false
		}
		err = next
	}
}

// Wrap returns an Error that wraps err with wrapper. Only the outer message
// of wrapper is kept.
func Wrap(wrapper, err error) error {
	if wrapper == nil || err == nil {
		return wrapper
	}
	return &link{msg: message(wrapper), cause: asError(err)}
}

// Unwrap splits err into its outer message and its cause. An error that
// is not a chain is returned as the cause with a nil wrapper.
func Unwrap(err error) (error, error) {
	e, ok := err.(Error)
	if !ok {
		return nil, err
	}
	if e.Err() == nil {
		return nil, New(e.Msg())
	}
	return New(e.Msg()), e.Err()
}

func message(err error) string {
	if e, ok := err.(Error); ok {
		return e.Msg()
	}
	return err.Error()
}

func asError(err error) Error {
	switch e := err.(type) {
	case nil:
		return nil
	case Error:
		return e
	default:
		return New(err.Error())
	}
}
