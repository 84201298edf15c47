// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package clm

import (
	stderrors "errors"
	"time"

	"github.com/absmach/clm/pkg/errors"
)

var (
	// ErrValidation indicates a malformed or unacceptable intent.
	ErrValidation = errors.New("intent validation failed")

	// ErrConflict indicates the target already has an operation in flight or the entity exists.
	ErrConflict = errors.New("entity already exists or is being modified")

	// ErrAuthentication indicates the authority rejected the client credentials.
	ErrAuthentication = errors.New("authentication with certificate authority failed")

	// ErrClient indicates the authority rejected the request.
	ErrClient = errors.New("certificate authority rejected the request")

	// ErrRateLimited indicates the authority throttled the client.
	ErrRateLimited = errors.New("rate limited by certificate authority")

	// ErrServiceUnavailable indicates the authority could not be reached or failed.
	ErrServiceUnavailable = errors.New("certificate authority unavailable")

	// ErrNotFound indicates a missing entity.
	ErrNotFound = errors.New("entity not found")

	// ErrTimeout indicates an operation was not confirmed in time.
	ErrTimeout = errors.New("operation timed out awaiting confirmation")

	// ErrPartialFailure indicates a renewal issued a new certificate but failed to revoke the old one.
	ErrPartialFailure = errors.New("renewal partially failed")

	// ErrCancelled indicates the operation was cancelled.
	ErrCancelled = errors.New("operation cancelled")

	// ErrInvalidTransition indicates a forbidden certificate status change.
	ErrInvalidTransition = errors.New("invalid certificate status transition")

	ErrMalformedEntity = errors.New("malformed entity specification")
	ErrCreateEntity    = errors.New("failed to create entity")
	ErrViewEntity      = errors.New("view entity failed")
	ErrUpdateEntity    = errors.New("update entity failed")
)

// Error kinds reported in operation status.
const (
	KindValidationError     = "ValidationError"
	KindConflictError       = "ConflictError"
	KindAuthenticationError = "AuthenticationError"
	KindClientError         = "ClientError"
	KindRateLimited         = "RateLimited"
	KindServiceUnavailable  = "ServiceUnavailable"
	KindNotFound            = "NotFound"
	KindTimeout             = "Timeout"
	KindPartialFailure      = "PartialFailure"
	KindCancelled           = "Cancelled"
	KindInternal            = "InternalError"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrPartialFailure, KindPartialFailure},
	{ErrCancelled, KindCancelled},
	{ErrTimeout, KindTimeout},
	{ErrValidation, KindValidationError},
	{ErrConflict, KindConflictError},
	{ErrAuthentication, KindAuthenticationError},
	{ErrRateLimited, KindRateLimited},
	{ErrServiceUnavailable, KindServiceUnavailable},
	{ErrClient, KindClientError},
	{ErrNotFound, KindNotFound},
}

// ErrorKind classifies err into one of the reported error kinds.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Contains(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Contains(err, ErrServiceUnavailable) || errors.Contains(err, ErrRateLimited)
}

// RateLimitedError carries the delay the authority asked for.
type RateLimitedError struct {
	err        errors.Error
	RetryAfter time.Duration
}

var _ errors.Error = (*RateLimitedError)(nil)

// NewRateLimitedError wraps cause into a rate limit error.
func NewRateLimitedError(retryAfter time.Duration, cause error) error {
	e := ErrRateLimited
	if ce, ok := errors.Wrap(ErrRateLimited, cause).(errors.Error); ok {
		e = ce
	}
	return &RateLimitedError{err: e, RetryAfter: retryAfter}
}

func (e *RateLimitedError) Error() string {
	return e.err.Error()
}

func (e *RateLimitedError) Msg() string {
	return e.err.Msg()
}

func (e *RateLimitedError) Err() errors.Error {
	return e.err.Err()
}

func (e *RateLimitedError) MarshalJSON() ([]byte, error) {
	return e.err.MarshalJSON()
}

func (e *RateLimitedError) Unwrap() error {
	if cause := e.err.Err(); cause != nil {
		return cause
	}
	return nil
}

// RetryAfter returns the delay requested by a rate limited authority.
func RetryAfter(err error) (time.Duration, bool) {
	var rl *RateLimitedError
	if stderrors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter, true
	}
	return 0, false
}
