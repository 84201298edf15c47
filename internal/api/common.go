// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/absmach/clm"
	"github.com/absmach/clm/pkg/apiutil"
	"github.com/absmach/clm/pkg/errors"
)

const (
	// ContentType represents JSON content type.
	ContentType = "application/json"
)

// Response contains HTTP response specific methods.
type Response interface {
	// Code returns HTTP response code.
	Code() int

	// Headers returns map of HTTP headers with their values.
	Headers() map[string]string

	// Empty indicates if HTTP response has content.
	Empty() bool
}

// EncodeResponse encodes successful response.
func EncodeResponse(_ context.Context, w http.ResponseWriter, response any) error {
	if ar, ok := response.(Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	return json.NewEncoder(w).Encode(response)
}

// StatusCode maps a service error to the HTTP status it is reported with.
func StatusCode(err error) int {
	switch {
	case errors.Contains(err, clm.ErrNotFound):
		return http.StatusNotFound

	case errors.Contains(err, clm.ErrConflict):
		return http.StatusConflict

	case errors.Contains(err, apiutil.ErrUnsupportedContentType):
		return http.StatusUnsupportedMediaType

	case errors.Contains(err, clm.ErrValidation),
		errors.Contains(err, clm.ErrMalformedEntity),
		errors.Contains(err, apiutil.ErrValidation),
		errors.Contains(err, apiutil.ErrMissingID),
		errors.Contains(err, apiutil.ErrMissingSerial),
		errors.Contains(err, apiutil.ErrLimitSize),
		errors.Contains(err, apiutil.ErrInvalidState),
		errors.Contains(err, apiutil.ErrInvalidQueryParams),
		errors.Contains(err, apiutil.ErrInvalidRequest):
		return http.StatusBadRequest

	case errors.Contains(err, clm.ErrAuthentication):
		return http.StatusBadGateway

	case errors.Contains(err, clm.ErrServiceUnavailable),
		errors.Contains(err, clm.ErrRateLimited):
		return http.StatusServiceUnavailable

	case errors.Contains(err, clm.ErrCreateEntity),
		errors.Contains(err, clm.ErrUpdateEntity),
		errors.Contains(err, clm.ErrViewEntity):
		return http.StatusUnprocessableEntity

	default:
		return http.StatusInternalServerError
	}
}

// EncodeError encodes an error response.
func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	code := StatusCode(err)
	w.Header().Set("Content-Type", ContentType)
	if code == http.StatusServiceUnavailable {
		if d, ok := clm.RetryAfter(err); ok && d > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.Seconds()))))
		}
	}
	w.WriteHeader(code)

	if code == http.StatusInternalServerError {
		err = errors.New(http.StatusText(code))
	}
	errorVal, ok := err.(errors.Error)
	if !ok {
		errorVal = errors.New(err.Error())
	}
	if err := json.NewEncoder(w).Encode(errorVal); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
