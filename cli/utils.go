// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/absmach/clm/pkg/errors"
	clmsdk "github.com/absmach/clm/sdk"
	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"
)

const pemFileMode = 0o644

var (
	// Limit query parameter.
	Limit = defLimit
	// Offset query parameter.
	Offset uint64
	// ConfigPath overrides the config file location.
	ConfigPath string
	// RawOutput prints compact JSON without colors.
	RawOutput bool
	// DefaultProfile is used by issue and renew when no profile is given.
	DefaultProfile string
	// DefaultValidity is used by issue and renew when no validity is given.
	DefaultValidity int

	errFileExists = errors.New("file already exists")
	errWriteFile  = errors.New("failed to write file")
)

// AddFlags registers the flags shared by every command on root.
func AddFlags(root *cobra.Command, sdkConf *clmsdk.Config) {
	flags := root.PersistentFlags()
	flags.StringVarP(&sdkConf.URL, "url", "u", sdkConf.URL, "Lifecycle service URL")
	flags.BoolVarP(&sdkConf.TLSVerification, "tls-verify", "i", sdkConf.TLSVerification, "Verify the service TLS certificate")
	flags.BoolVarP(&sdkConf.CurlFlag, "curl", "x", false, "Print each request as a cURL command")
	flags.StringVarP(&ConfigPath, "config", "c", ConfigPath, "Config file path")
	flags.BoolVarP(&RawOutput, "raw", "r", RawOutput, "Print compact JSON for easier parsing")
	flags.Uint64VarP(&Limit, "limit", "l", defLimit, "Limit query parameter")
	flags.Uint64VarP(&Offset, "offset", "o", 0, "Offset query parameter")
}

func logJSONCmd(cmd cobra.Command, values ...any) {
	for _, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			logErrorCmd(cmd, err)
			return
		}

		if RawOutput {
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			continue
		}

		pretty, err := prettyjson.Format(data)
		if err != nil {
			logErrorCmd(cmd, err)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n\n", string(pretty))
	}
}

func logUsageCmd(cmd cobra.Command, u string) {
	fmt.Fprintf(cmd.OutOrStdout(), color.YellowString("\nusage: %s\n\n"), u)
}

func logErrorCmd(cmd cobra.Command, err error) {
	boldRed := color.New(color.FgRed, color.Bold)
	boldRed.Fprintf(cmd.ErrOrStderr(), "\nerror: ")

	fmt.Fprintf(cmd.ErrOrStderr(), "%s\n\n", color.RedString(err.Error()))
}

func logOKCmd(cmd cobra.Command) {
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n\n", color.BlueString("ok"))
}

func logSaveFileCmd(cmd cobra.Command, filename string, content []byte, force bool) {
	if err := writeFile(filename, content, force); err != nil {
		logErrorCmd(cmd, err)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", filename)
}

// writeFile refuses to replace an existing file unless force is set.
func writeFile(filename string, content []byte, force bool) error {
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flag = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(filename, flag, pemFileMode)
	if err != nil {
		if os.IsExist(err) {
			return errors.Wrap(errFileExists, errors.New(filename))
		}
		return errors.Wrap(errWriteFile, err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return errors.Wrap(errWriteFile, err)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errWriteFile, err)
	}
	return nil
}
