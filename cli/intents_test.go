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

const (
	issueCmd  = "issue"
	renewCmd  = "renew"
	revokeCmd = "revoke"
)

var (
	serialNumber = "1a:2b:3c"
	id           = "5b4c9ee3-e719-4a0a-9ee5-354932c5e6a4"
	extraArg     = "extra-arg"
)

func TestIntentsCmd(t *testing.T) {
	conflict := errors.NewSDKErrorWithStatus(clm.ErrConflict, http.StatusConflict)

	cases := []struct {
		desc          string
		args          []string
		intent        sdk.Intent
		sdkErr        errors.SDKError
		errLogMessage string
		logType       outputLog
	}{
		{
			desc:    "issue certificate with names",
			args:    []string{issueCmd, "CN=svc.example.com,O=Acme", "svc.example.com", "api.example.com", "--profile", "webserver", "--validity", "90"},
			intent:  sdk.Intent{Kind: sdk.KindIssue, Subject: "CN=svc.example.com,O=Acme", DNSNames: []string{"svc.example.com", "api.example.com"}, CertificateProfile: "webserver", ValidityDays: 90},
			logType: entityLog,
		},
		{
			desc:    "issue certificate without subject",
			args:    []string{issueCmd},
			logType: usageLog,
		},
		{
			desc:    "renew certificate with token",
			args:    []string{renewCmd, serialNumber, "-t", "renew-1"},
			intent:  sdk.Intent{Kind: sdk.KindRenew, TargetSerial: serialNumber, IdempotencyToken: "renew-1"},
			logType: entityLog,
		},
		{
			desc:    "renew certificate with extra argument",
			args:    []string{renewCmd, serialNumber, extraArg},
			logType: usageLog,
		},
		{
			desc:    "revoke certificate with reason",
			args:    []string{revokeCmd, serialNumber, "keyCompromise"},
			intent:  sdk.Intent{Kind: sdk.KindRevoke, TargetSerial: serialNumber, RevocationReason: "keyCompromise"},
			logType: entityLog,
		},
		{
			desc:    "revoke certificate of a named issuer",
			args:    []string{revokeCmd, serialNumber, "--issuer", "CN=ManagementCA"},
			intent:  sdk.Intent{Kind: sdk.KindRevoke, TargetSerial: serialNumber, TargetIssuer: "CN=ManagementCA"},
			logType: entityLog,
		},
		{
			desc:          "revoke certificate in flight",
			args:          []string{revokeCmd, serialNumber},
			intent:        sdk.Intent{Kind: sdk.KindRevoke, TargetSerial: serialNumber},
			sdkErr:        conflict,
			errLogMessage: fmt.Sprintf("\nerror: %s\n\n", conflict),
			logType:       errLog,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			sdkMock := sdkmocks.NewSDK(t)
			cli.SetSDK(sdkMock)
			rootCmd := setFlags(cli.NewIntentsCmd())

			if tc.logType != usageLog {
				opID := id
				if tc.sdkErr != nil {
					opID = ""
				}
				sdkMock.On("SubmitIntent", tc.intent).Return(opID, tc.sdkErr).Once()
			}

			out := executeCommand(t, rootCmd, tc.args...)
			switch tc.logType {
			case entityLog:
				var res map[string]string
				assert.Nil(t, json.Unmarshal([]byte(out), &res), out)
				assert.Equal(t, id, res["operation_id"])
			case errLog:
				assert.Equal(t, tc.errLogMessage, out, fmt.Sprintf("%s unexpected error response: expected %s got %s", tc.desc, tc.errLogMessage, out))
			case usageLog:
				assert.True(t, strings.Contains(out, "usage:"), fmt.Sprintf("%s invalid usage: %s", tc.desc, out))
			}
		})
	}
}
