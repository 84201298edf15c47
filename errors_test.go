// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package clm_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		kind string
	}{
		{nil, ""},
		{errors.Wrap(clm.ErrValidation, errors.New("missing subject")), clm.KindValidationError},
		{clm.ErrConflict, clm.KindConflictError},
		{clm.ErrAuthentication, clm.KindAuthenticationError},
		{errors.Wrap(clm.ErrClient, errors.New("bad csr")), clm.KindClientError},
		{clm.NewRateLimitedError(time.Second, errors.New("429")), clm.KindRateLimited},
		{clm.ErrServiceUnavailable, clm.KindServiceUnavailable},
		{clm.ErrTimeout, clm.KindTimeout},
		{errors.Wrap(clm.ErrPartialFailure, clm.ErrServiceUnavailable), clm.KindPartialFailure},
		{clm.ErrCancelled, clm.KindCancelled},
		{clm.ErrNotFound, clm.KindNotFound},
		{errors.New("disk full"), clm.KindInternal},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.kind, clm.ErrorKind(tc.err), "%v", tc.err)
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, clm.IsTransient(errors.Wrap(clm.ErrServiceUnavailable, errors.New("connection refused"))))
	assert.True(t, clm.IsTransient(clm.NewRateLimitedError(0, nil)))
	assert.False(t, clm.IsTransient(clm.ErrClient))
	assert.False(t, clm.IsTransient(clm.ErrAuthentication))
	assert.False(t, clm.IsTransient(nil))
}

func TestRetryAfter(t *testing.T) {
	err := clm.NewRateLimitedError(30*time.Second, errors.New("too many requests"))
	d, ok := clm.RetryAfter(err)
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, d)
	assert.True(t, errors.Contains(err, clm.ErrRateLimited))

	_, ok = clm.RetryAfter(clm.ErrRateLimited)
	assert.False(t, ok)

	data, err := json.Marshal(err)
	require.Nil(t, err)
	assert.JSONEq(t, `{"error":"too many requests","message":"rate limited by certificate authority"}`, string(data))
}

func TestParseRevocationReason(t *testing.T) {
	cases := []struct {
		input  string
		reason clm.RevocationReason
		code   int
		fails  bool
	}{
		{input: "", reason: clm.ReasonUnspecified, code: 0},
		{input: "keyCompromise", fails: true},
		{input: "key compromise", reason: clm.ReasonKeyCompromise, code: 1},
		{input: "KEY_COMPROMISE", reason: clm.ReasonKeyCompromise, code: 1},
		{input: "superseded", reason: clm.ReasonSuperseded, code: 4},
		{input: "cessation-of-operation", reason: clm.ReasonCessationOfOperation, code: 5},
		{input: "privileges_withdrawn", reason: clm.ReasonPrivilegesWithdrawn, code: 9},
		{input: "bored", fails: true},
	}

	for _, tc := range cases {
		reason, err := clm.ParseRevocationReason(tc.input)
		if tc.fails {
			assert.NotNil(t, err, tc.input)
			continue
		}
		assert.Nil(t, err, tc.input)
		assert.Equal(t, tc.reason, reason)
		assert.Equal(t, tc.code, reason.Code())
		assert.Equal(t, tc.reason, clm.ReasonFromCode(tc.code))
	}
}
