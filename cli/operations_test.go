// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package cli_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/absmach/clm"
	"github.com/absmach/clm/cli"
	"github.com/absmach/clm/pkg/errors"
	"github.com/absmach/clm/sdk"
	sdkmocks "github.com/absmach/clm/sdk/mocks"
	"github.com/stretchr/testify/assert"
)

func TestGetOperationCmd(t *testing.T) {
	notFound := errors.NewSDKErrorWithStatus(clm.ErrNotFound, http.StatusNotFound)
	op := sdk.Operation{ID: id, Kind: "renew", State: "compensated", ErrorKind: "PartialFailure", TargetSerial: serialNumber}

	cases := []struct {
		desc    string
		args    []string
		op      sdk.Operation
		sdkErr  errors.SDKError
		logType outputLog
	}{
		{
			desc:    "get operation",
			args:    []string{"get", id},
			op:      op,
			logType: entityLog,
		},
		{
			desc:    "get unknown operation",
			args:    []string{"get", id},
			sdkErr:  notFound,
			logType: errLog,
		},
		{
			desc:    "get operation without id",
			args:    []string{"get"},
			logType: usageLog,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			sdkMock := sdkmocks.NewSDK(t)
			cli.SetSDK(sdkMock)
			rootCmd := setFlags(cli.NewOperationsCmd())

			if tc.logType != usageLog {
				sdkMock.On("Operation", id).Return(tc.op, tc.sdkErr).Once()
			}

			out := executeCommand(t, rootCmd, tc.args...)
			switch tc.logType {
			case entityLog:
				var got sdk.Operation
				assert.Nil(t, json.Unmarshal([]byte(out), &got))
				assert.Equal(t, tc.op.State, got.State)
				assert.Equal(t, tc.op.ErrorKind, got.ErrorKind)
			case errLog:
				assert.Equal(t, fmt.Sprintf("\nerror: %s\n\n", tc.sdkErr), out)
			case usageLog:
				assert.True(t, strings.Contains(out, "usage:"), out)
			}
		})
	}
}

func TestListOperationsCmd(t *testing.T) {
	sdkMock := sdkmocks.NewSDK(t)
	cli.SetSDK(sdkMock)
	rootCmd := setFlags(cli.NewOperationsCmd())

	page := sdk.OperationsPage{Total: 1, Limit: 5, Operations: []sdk.Operation{{ID: id, State: "failed"}}}
	sdkMock.On("ListOperations", sdk.PageMetadata{Limit: 5, State: "failed", Kind: "renew"}).Return(page, nil).Once()

	out := executeCommand(t, rootCmd, "list", "--state", "failed", "--kind", "renew", "-l", "5")
	var got sdk.OperationsPage
	assert.Nil(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, page, got)
}

func TestCancelOperationCmd(t *testing.T) {
	conflict := errors.NewSDKErrorWithStatus(clm.ErrConflict, http.StatusConflict)

	cases := []struct {
		desc   string
		sdkErr errors.SDKError
		out    string
	}{
		{
			desc: "cancel operation",
			out:  "\nok\n\n",
		},
		{
			desc:   "cancel finished operation",
			sdkErr: conflict,
			out:    fmt.Sprintf("\nerror: %s\n\n", conflict),
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			sdkMock := sdkmocks.NewSDK(t)
			cli.SetSDK(sdkMock)
			rootCmd := setFlags(cli.NewOperationsCmd())

			sdkMock.On("CancelOperation", id).Return(tc.sdkErr).Once()
			out := executeCommand(t, rootCmd, "cancel", id)
			assert.Equal(t, tc.out, out)
		})
	}
}

func TestWaitOperationCmd(t *testing.T) {
	sdkMock := sdkmocks.NewSDK(t)
	cli.SetSDK(sdkMock)
	rootCmd := setFlags(cli.NewOperationsCmd())

	sdkMock.On("Operation", id).Return(sdk.Operation{ID: id, State: "submitted"}, nil).Twice()
	sdkMock.On("Operation", id).Return(sdk.Operation{ID: id, State: "completed", CertificateSerial: "0f"}, nil).Once()

	out := executeCommand(t, rootCmd, "wait", id, "--interval", "1ms")
	var got sdk.Operation
	assert.Nil(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "completed", got.State)
	assert.Equal(t, "0f", got.CertificateSerial)
}
