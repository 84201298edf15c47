// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	clmsdk "github.com/absmach/clm/sdk"
	"github.com/spf13/cobra"
)

// Keep SDK handle in global var.
var sdk clmsdk.SDK

// SetSDK sets the client used by every command.
func SetSDK(s clmsdk.SDK) {
	sdk = s
}

type intentFlags struct {
	profile  string
	validity int
	token    string
	issuer   string
}

func (f *intentFlags) register(cmd *cobra.Command, withProfile bool) {
	if withProfile {
		cmd.Flags().StringVarP(&f.profile, "profile", "p", "", "Certificate profile")
		cmd.Flags().IntVarP(&f.validity, "validity", "d", 0, "Validity in days")
	}
	cmd.Flags().StringVarP(&f.token, "token", "t", "", "Idempotency token")
}

// registerTarget adds the flag disambiguating a serial number held by more
// than one issuer.
func (f *intentFlags) registerTarget(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.issuer, "issuer", "i", "", "Issuer DN of the target certificate")
}

func submit(cmd *cobra.Command, intent clmsdk.Intent) {
	if intent.Kind != clmsdk.KindRevoke {
		if intent.CertificateProfile == "" {
			intent.CertificateProfile = DefaultProfile
		}
		if intent.ValidityDays == 0 {
			intent.ValidityDays = DefaultValidity
		}
	}
	id, err := sdk.SubmitIntent(intent)
	if err != nil {
		logErrorCmd(*cmd, err)
		return
	}
	logJSONCmd(*cmd, map[string]string{"operation_id": id})
}

// NewIntentsCmd returns intents command.
func NewIntentsCmd() *cobra.Command {
	var issueFlags, renewFlags, revokeFlags intentFlags

	issue := &cobra.Command{
		Use:   "issue <subject_dn> [<dns_name> ...]",
		Short: "Issue certificate",
		Long:  `Submits an intent to issue a certificate for the given subject.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			submit(cmd, clmsdk.Intent{
				Kind:               clmsdk.KindIssue,
				Subject:            args[0],
				DNSNames:           args[1:],
				CertificateProfile: issueFlags.profile,
				ValidityDays:       issueFlags.validity,
				IdempotencyToken:   issueFlags.token,
			})
		},
	}
	issueFlags.register(issue, true)

	renew := &cobra.Command{
		Use:   "renew <serial_number>",
		Short: "Renew certificate",
		Long:  `Submits an intent to replace a certificate and revoke the old one.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			submit(cmd, clmsdk.Intent{
				Kind:               clmsdk.KindRenew,
				TargetSerial:       args[0],
				TargetIssuer:       renewFlags.issuer,
				CertificateProfile: renewFlags.profile,
				ValidityDays:       renewFlags.validity,
				IdempotencyToken:   renewFlags.token,
			})
		},
	}
	renewFlags.register(renew, true)
	renewFlags.registerTarget(renew)

	revoke := &cobra.Command{
		Use:   "revoke <serial_number> [<reason>]",
		Short: "Revoke certificate",
		Long:  `Submits an intent to revoke a certificate. The reason defaults to unspecified.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 || len(args) > 2 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			intent := clmsdk.Intent{
				Kind:             clmsdk.KindRevoke,
				TargetSerial:     args[0],
				TargetIssuer:     revokeFlags.issuer,
				IdempotencyToken: revokeFlags.token,
			}
			if len(args) == 2 {
				intent.RevocationReason = args[1]
			}
			submit(cmd, intent)
		},
	}
	revokeFlags.register(revoke, false)
	revokeFlags.registerTarget(revoke)

	cmd := cobra.Command{
		Use:   "intents [issue | renew | revoke]",
		Short: "Lifecycle intents",
		Long:  `Submit lifecycle intents: issue, renew, revoke.`,
	}
	cmd.AddCommand(issue, renew, revoke)

	return &cmd
}
