// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package main contains cli main function to run the cli.
package main

import (
	"log"

	"github.com/absmach/clm/cli"
	"github.com/absmach/clm/sdk"
	"github.com/spf13/cobra"
)

func main() {
	sdkConf := sdk.Config{}

	rootCmd := &cobra.Command{
		Use:   "clm-cli",
		Short: "Certificate lifecycle management client",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			conf, err := cli.ParseConfig(cmd, sdkConf)
			if err != nil {
				log.Fatalf("Failed to parse config: %s", err)
			}
			cli.SetSDK(sdk.NewSDK(conf))
		},
	}
	cli.AddFlags(rootCmd, &sdkConf)

	rootCmd.AddCommand(
		cli.NewIntentsCmd(),
		cli.NewOperationsCmd(),
		cli.NewCertsCmd(),
		cli.NewCAsCmd(),
		cli.NewCRLsCmd(),
		cli.NewConfigCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
