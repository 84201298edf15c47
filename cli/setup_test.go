// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package cli_test

import (
	"bytes"
	"testing"

	"github.com/absmach/clm/cli"
	"github.com/absmach/clm/sdk"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

type outputLog uint8

const (
	usageLog outputLog = iota
	errLog
	entityLog
	okLog
)

// executeCommand runs root with args and returns everything written to
// stdout and stderr. Output settings changed by flags are reset afterwards.
func executeCommand(t *testing.T, root *cobra.Command, args ...string) string {
	t.Cleanup(func() {
		cli.RawOutput = false
		cli.Limit = 10
		cli.Offset = 0
	})
	if args == nil {
		// cobra falls back to os.Args when no arguments are set.
		args = []string{}
	}
	buffer := new(bytes.Buffer)
	root.SetOut(buffer)
	root.SetErr(buffer)
	root.SetArgs(args)
	assert.NoError(t, root.Execute(), "Error executing command")

	return buffer.String()
}

func setFlags(cmd *cobra.Command) *cobra.Command {
	cli.AddFlags(cmd, &sdk.Config{})
	// Commands print JSON that tests decode.
	cli.RawOutput = true

	return cmd
}
