/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package walletcmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/vcwallet/internal/logfields"
)

var logger = log.New("wallet-cli")

// AddCommands registers the wallet flags and sub-commands on root.
func AddCommands(root *cobra.Command) {
	createFlags(root)

	root.AddCommand(
		newPresentCmd(),
		newReceiveCmd(),
		newAccountsCmd(),
		newCredentialsCmd(),
		newHistoryCmd(),
		newBackupCmd(),
		newRestoreCmd(),
	)
}

// runWithServices is the RunE body shared by the sub-commands: it wires the wallet, runs fn and prints its
// result as JSON.
func runWithServices(
	cmd *cobra.Command,
	fn func(ctx context.Context, svc *services) (interface{}, error),
) error {
	params, err := getWalletParameters(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svc, err := initServices(ctx, params)
	if err != nil {
		return err
	}

	defer svc.Close()

	logger.Debugc(ctx, "Running command", logfields.WithCommand(cmd.Name()))

	out, err := fn(ctx, svc)
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), out)
}

func printJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	_, err = fmt.Fprintln(w, string(b))

	return err
}
