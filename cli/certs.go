// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/absmach/clm/pkg/errors"
	clmsdk "github.com/absmach/clm/sdk"
	"github.com/spf13/cobra"
)

var errMissingPEM = errors.New("certificate record has no PEM content")

// NewCertsCmd returns certificate command.
func NewCertsCmd() *cobra.Command {
	var (
		status      string
		within      time.Duration
		remediation bool
		archived    bool
		dir         string
		force       bool
	)

	get := &cobra.Command{
		Use:   "get <serial_number>",
		Short: "Get certificate",
		Long:  `Gets the record of a certificate by serial number.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			cert, err := sdk.ViewCert(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			logJSONCmd(*cmd, cert)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List certificates",
		Long:  `Lists certificate records, optionally only those expiring within a duration.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			pm := clmsdk.PageMetadata{
				Offset:      Offset,
				Limit:       Limit,
				Status:      status,
				Remediation: remediation,
				Archived:    archived,
			}
			if within > 0 {
				pm.ExpiresBefore = time.Now().Add(within)
			}
			page, err := sdk.ListCerts(pm)
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			logJSONCmd(*cmd, page)
		},
	}
	list.Flags().StringVar(&status, "status", "", "Certificate status filter")
	list.Flags().DurationVar(&within, "expiring-within", 0, "Only certificates expiring within this duration")
	list.Flags().BoolVar(&remediation, "remediation", false, "Only certificates flagged for remediation")
	list.Flags().BoolVar(&archived, "archived", false, "Include archived certificates")

	download := &cobra.Command{
		Use:   "download <serial_number>",
		Short: "Download certificate",
		Long:  `Saves the PEM encoded certificate to <serial_number>.pem. Existing files are kept unless --force is given.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			cert, err := sdk.ViewCert(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			if cert.Certificate == "" {
				logErrorCmd(*cmd, errMissingPEM)
				return
			}
			logSaveFileCmd(*cmd, filepath.Join(dir, fileName(cert.SerialNumber)), []byte(cert.Certificate), force)
		},
	}
	download.Flags().StringVar(&dir, "dir", ".", "Directory to save the certificate in")
	download.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	cmd := cobra.Command{
		Use:   "certs [get | list | download]",
		Short: "Certificates management",
		Long:  `Certificates management: get, list, download.`,
	}
	cmd.AddCommand(get, list, download)

	return &cmd
}

func fileName(serial string) string {
	return strings.ReplaceAll(serial, ":", "_") + ".pem"
}
