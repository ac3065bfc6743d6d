/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package main is a holder wallet CLI: it receives credentials over OpenID4VCI and presents them over
// OpenID4VP and SIOPv2.
package main

import (
	"github.com/spf13/cobra"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/vcwallet/cmd/wallet-cli/walletcmd"
)

var logger = log.New("wallet-cli")

func main() {
	rootCmd := &cobra.Command{
		Use:          "wallet-cli",
		Short:        "Verifiable credential wallet",
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	walletcmd.AddCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Fatal("Failed to run wallet-cli", log.WithError(err))
	}
}
