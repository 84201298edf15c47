// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package apiutil contains helpers shared by the HTTP transport.
package apiutil

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/absmach/clm/pkg/errors"
	kithttp "github.com/go-kit/kit/transport/http"
)

// LoggingErrorEncoder is a go-kit error encoder logging decorator.
func LoggingErrorEncoder(logger *slog.Logger, enc kithttp.ErrorEncoder) kithttp.ErrorEncoder {
	return func(ctx context.Context, err error, w http.ResponseWriter) {
		switch {
		case errors.Contains(err, ErrValidation),
			errors.Contains(err, ErrInvalidQueryParams),
			errors.Contains(err, ErrUnsupportedContentType):
			logger.Error(err.Error())
		}

		enc(ctx, err, w)
	}
}

// ReadStringQuery reads the value of string http query parameters for a given key.
func ReadStringQuery(r *http.Request, key, def string) (string, error) {
	vals := r.URL.Query()[key]
	if len(vals) > 1 {
		return "", ErrInvalidQueryParams
	}

	if len(vals) == 0 {
		return def, nil
	}

	return vals[0], nil
}

// ReadUintQuery reads the value of uint64 http query parameters for a given key.
func ReadUintQuery(r *http.Request, key string, def uint64) (uint64, error) {
	vals := r.URL.Query()[key]
	if len(vals) > 1 {
		return 0, ErrInvalidQueryParams
	}

	if len(vals) == 0 {
		return def, nil
	}

	val, err := strconv.ParseUint(vals[0], 10, 64)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidQueryParams, err)
	}

	return val, nil
}

// ReadBoolQuery reads boolean query parameters in a given http request.
func ReadBoolQuery(r *http.Request, key string, def bool) (bool, error) {
	vals := r.URL.Query()[key]
	if len(vals) > 1 {
		return false, ErrInvalidQueryParams
	}

	if len(vals) == 0 {
		return def, nil
	}

	b, err := strconv.ParseBool(vals[0])
	if err != nil {
		return false, errors.Wrap(ErrInvalidQueryParams, err)
	}

	return b, nil
}

// ReadTimeQuery reads an RFC 3339 timestamp query parameter.
func ReadTimeQuery(r *http.Request, key string, def time.Time) (time.Time, error) {
	vals := r.URL.Query()[key]
	if len(vals) > 1 {
		return time.Time{}, ErrInvalidQueryParams
	}

	if len(vals) == 0 {
		return def, nil
	}

	t, err := time.Parse(time.RFC3339, vals[0])
	if err != nil {
		return time.Time{}, errors.Wrap(ErrInvalidQueryParams, err)
	}

	return t, nil
}
