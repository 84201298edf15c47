// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const errorKey = "error"

// SDKError is an error returned by the SDK, carrying the HTTP status code.
type SDKError interface {
	Error
	StatusCode() int
}

var _ SDKError = (*sdkError)(nil)

type sdkError struct {
	*link
	statusCode int
}

func (se *sdkError) Error() string {
	if se == nil {
		return ""
	}
	if se.link == nil {
		return http.StatusText(se.statusCode)
	}
	return fmt.Sprintf("Status: %s: %s", http.StatusText(se.statusCode), se.link.Error())
}

func (se *sdkError) StatusCode() int {
	return se.statusCode
}

// NewSDKError returns an SDK error without a status code.
func NewSDKError(err error) SDKError {
	return NewSDKErrorWithStatus(err, 0)
}

// NewSDKErrorWithStatus returns an SDK error with the given status code.
func NewSDKErrorWithStatus(err error, statusCode int) SDKError {
	if err == nil {
		return nil
	}
	l := &link{msg: message(err)}
	if e, ok := err.(Error); ok {
		l.cause = e.Err()
	}
	return &sdkError{link: l, statusCode: statusCode}
}

// CheckError checks the HTTP response for an unexpected status code and
// decodes the error body the service encoded.
func CheckError(resp *http.Response, expectedStatusCodes ...int) SDKError {
	for _, expectedStatusCode := range expectedStatusCodes {
		if resp.StatusCode == expectedStatusCode {
			return nil
		}
	}

	var content map[string]any
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &content); err != nil {
		return NewSDKErrorWithStatus(New(string(body)), resp.StatusCode)
	}

	msg, _ := content["message"].(string)
	if errMsg, ok := content[errorKey].(string); ok && errMsg != "" {
		if msg == "" {
			return NewSDKErrorWithStatus(New(errMsg), resp.StatusCode)
		}
		return NewSDKErrorWithStatus(Wrap(New(msg), New(errMsg)), resp.StatusCode)
	}
	if msg != "" {
		return NewSDKErrorWithStatus(New(msg), resp.StatusCode)
	}

	return NewSDKErrorWithStatus(New(string(body)), resp.StatusCode)
}
