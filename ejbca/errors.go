// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ejbca

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/pkg/errors"
)

// checkResponse maps a non-2xx response onto the error taxonomy.
func checkResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	cause := responseError(resp.StatusCode, body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.Wrap(clm.ErrAuthentication, cause)
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrap(clm.ErrNotFound, cause)
	case resp.StatusCode == http.StatusTooManyRequests:
		return clm.NewRateLimitedError(retryAfter(resp.Header.Get("Retry-After")), cause)
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		return errors.Wrap(clm.ErrClient, cause)
	default:
		return errors.Wrap(clm.ErrServiceUnavailable, cause)
	}
}

func responseError(status int, body []byte) error {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.ErrorMessage != "" {
		return errors.New(fmt.Sprintf("%d: %s", status, er.ErrorMessage))
	}
	msg := string(body)
	if len(msg) > 256 {
		msg = msg[:256]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return errors.New(fmt.Sprintf("%d: %s", status, msg))
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func transportError(err error) error {
	if tlsRejected(err) {
		return errors.Wrap(clm.ErrAuthentication, err)
	}
	return errors.Wrap(clm.ErrServiceUnavailable, err)
}
