// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"path/filepath"
	"strings"

	"github.com/absmach/clm/pkg/errors"
	clmsdk "github.com/absmach/clm/sdk"
	"github.com/spf13/cobra"
)

var errMissingCRL = errors.New("revocation list has no PEM content")

// NewCAsCmd returns certificate authorities command.
func NewCAsCmd() *cobra.Command {
	chain := &cobra.Command{
		Use:   "chain [subject_dn]",
		Short: "Get CA certificate chain",
		Long:  `Gets the certificate chain of a CA, the CA certificate first. Without a subject DN the default CA is used.`,
		Run: func(cmd *cobra.Command, args []string) {
			caChain(cmd, args, false)
		},
	}

	cert := &cobra.Command{
		Use:   "cert [subject_dn]",
		Short: "Get CA certificate",
		Long:  `Gets the certificate of a CA. Without a subject DN the default CA is used.`,
		Run: func(cmd *cobra.Command, args []string) {
			caChain(cmd, args, true)
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Get authority status",
		Long:  `Reports the status and version of the certificate authority APIs.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			statuses, err := sdk.AuthorityStatus()
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			logJSONCmd(*cmd, statuses)
		},
	}

	cmd := cobra.Command{
		Use:   "cas [chain | cert | status]",
		Short: "List certificate authorities",
		Long:  `Lists the certificate authorities the service issues from.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			cas, err := sdk.ListCAs()
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			logJSONCmd(*cmd, cas)
		},
	}
	cmd.AddCommand(chain, cert, status)

	return &cmd
}

func caChain(cmd *cobra.Command, args []string, caOnly bool) {
	if len(args) > 1 {
		logUsageCmd(*cmd, cmd.Use)
		return
	}
	var subject string
	if len(args) == 1 {
		subject = args[0]
	}
	chain, err := sdk.CAChain(subject, caOnly)
	if err != nil {
		logErrorCmd(*cmd, err)
		return
	}
	if caOnly && len(chain) > 0 {
		logJSONCmd(*cmd, chain[0])
		return
	}
	logJSONCmd(*cmd, chain)
}

// NewCRLsCmd returns revocation lists command.
func NewCRLsCmd() *cobra.Command {
	var (
		delta     bool
		partition uint64
		info      bool
		dir       string
		force     bool
	)

	get := &cobra.Command{
		Use:   "get [issuer_dn]",
		Short: "Get revocation list",
		Long:  `Gets the latest revocation list of a CA. Without an issuer DN the default CA is used.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) > 1 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			crl, err := sdk.ViewCRL(crlQuery(args, delta, partition, info))
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			logJSONCmd(*cmd, crl)
		},
	}
	get.Flags().BoolVar(&delta, "delta", false, "Get the delta CRL")
	get.Flags().Uint64Var(&partition, "partition", 0, "CRL partition index")
	get.Flags().BoolVar(&info, "info", false, "Only show CRL information")

	create := &cobra.Command{
		Use:   "create [issuer_dn]",
		Short: "Create revocation list",
		Long:  `Makes a CA generate a new CRL, and a delta CRL when --delta is given.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) > 1 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			var issuer string
			if len(args) == 1 {
				issuer = args[0]
			}
			gen, err := sdk.CreateCRL(issuer, delta)
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			logJSONCmd(*cmd, gen)
		},
	}
	create.Flags().BoolVar(&delta, "delta", false, "Also generate the delta CRL")

	download := &cobra.Command{
		Use:   "download [issuer_dn]",
		Short: "Download revocation list",
		Long:  `Saves the PEM encoded CRL to crl_<number>.crl. Existing files are kept unless --force is given.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) > 1 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			crl, err := sdk.ViewCRL(crlQuery(args, delta, partition, false))
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			if crl.CRL == "" {
				logErrorCmd(*cmd, errMissingCRL)
				return
			}
			logSaveFileCmd(*cmd, filepath.Join(dir, crlFileName(crl)), []byte(crl.CRL), force)
		},
	}
	download.Flags().BoolVar(&delta, "delta", false, "Download the delta CRL")
	download.Flags().Uint64Var(&partition, "partition", 0, "CRL partition index")
	download.Flags().StringVar(&dir, "dir", ".", "Directory to save the CRL in")
	download.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	cmd := cobra.Command{
		Use:   "crls [get | create | download]",
		Short: "Revocation lists management",
		Long:  `Revocation lists management: get, create, download.`,
	}
	cmd.AddCommand(get, create, download)

	return &cmd
}

func crlQuery(args []string, delta bool, partition uint64, info bool) clmsdk.CRLQuery {
	q := clmsdk.CRLQuery{Delta: delta, Partition: partition, Info: info}
	if len(args) == 1 {
		q.IssuerDN = args[0]
	}
	return q
}

func crlFileName(crl clmsdk.CRL) string {
	name := "crl"
	if crl.Number != "" {
		name += "_" + crl.Number
	}
	if crl.Delta {
		name += "_delta"
	}
	return strings.ReplaceAll(name, string(filepath.Separator), "_") + ".crl"
}
