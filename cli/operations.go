// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"time"

	"github.com/absmach/clm/pkg/errors"
	clmsdk "github.com/absmach/clm/sdk"
	"github.com/spf13/cobra"
)

var errWaitTimeout = errors.New("operation did not finish in time")

func terminal(state string) bool {
	switch state {
	case "completed", "failed", "compensated":
		return true
	default:
		return false
	}
}

// NewOperationsCmd returns operations command.
func NewOperationsCmd() *cobra.Command {
	var (
		state, kind, target string
		interval, timeout   time.Duration
	)

	get := &cobra.Command{
		Use:   "get <operation_id>",
		Short: "Get operation",
		Long:  `Gets the status of an operation.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			op, err := sdk.Operation(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			logJSONCmd(*cmd, op)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List operations",
		Long:  `Lists operations, optionally filtered by state, kind or target serial number.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			page, err := sdk.ListOperations(clmsdk.PageMetadata{
				Offset:       Offset,
				Limit:        Limit,
				State:        state,
				Kind:         kind,
				TargetSerial: target,
			})
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			logJSONCmd(*cmd, page)
		},
	}
	list.Flags().StringVar(&state, "state", "", "Operation state filter")
	list.Flags().StringVar(&kind, "kind", "", "Operation kind filter")
	list.Flags().StringVar(&target, "target", "", "Target serial number filter")

	cancel := &cobra.Command{
		Use:   "cancel <operation_id>",
		Short: "Cancel operation",
		Long:  `Requests cancellation of an operation that has not finished.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			if err := sdk.CancelOperation(args[0]); err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			logOKCmd(*cmd)
		},
	}

	wait := &cobra.Command{
		Use:   "wait <operation_id>",
		Short: "Wait for operation",
		Long:  `Polls an operation until it finishes and prints its final status.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			deadline := time.Now().Add(timeout)
			for {
				op, err := sdk.Operation(args[0])
				if err != nil {
					logErrorCmd(*cmd, err)
					return
				}
				if terminal(op.State) {
					logJSONCmd(*cmd, op)
					return
				}
				if time.Now().After(deadline) {
					logErrorCmd(*cmd, errWaitTimeout)
					return
				}
				time.Sleep(interval)
			}
		},
	}
	wait.Flags().DurationVar(&interval, "interval", time.Second, "Polling interval")
	wait.Flags().DurationVar(&timeout, "timeout", 15*time.Minute, "Maximum time to wait")

	cmd := cobra.Command{
		Use:   "operations [get | list | cancel | wait]",
		Short: "Operations management",
		Long:  `Operations management: get, list, cancel, wait.`,
	}
	cmd.AddCommand(get, list, cancel, wait)

	return &cmd
}
