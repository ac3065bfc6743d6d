/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package walletcmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trustbloc/vcwallet/internal/logfields"
	"github.com/trustbloc/vcwallet/pkg/storage"
)

const (
	offerURIFlagName = "offer-uri"
	txCodeFlagName   = "tx-code"
)

type receiveFlags struct {
	offerURI string
	txCode   string
}

func newReceiveCmd() *cobra.Command {
	flags := &receiveFlags{}

	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Receives credentials through the OpenID4VCI pre-authorized code flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd, func(ctx context.Context, svc *services) (interface{}, error) {
				return receive(ctx, svc, flags)
			})
		},
	}

	cmd.Flags().StringVar(&flags.offerURI, offerURIFlagName, "", "credential offer URI")
	cmd.Flags().StringVar(&flags.txCode, txCodeFlagName, "", "transaction code, if the offer requires one")

	_ = cmd.MarkFlagRequired(offerURIFlagName)

	return cmd
}

func receive(ctx context.Context, svc *services, flags *receiveFlags) ([]*storage.Credential, error) {
	credentials, err := svc.issuance.Receive(ctx, flags.offerURI, flags.txCode)
	if err != nil {
		return nil, err
	}

	for _, c := range credentials {
		if err = svc.credentials.Save(ctx, c); err != nil {
			return nil, fmt.Errorf("save credential %s: %w", c.ID, err)
		}

		logger.Infoc(ctx, "Credential stored", logfields.WithCredentialID(c.ID),
			logfields.WithCredentialFormat(c.Format), logfields.WithCredentialIssuer(c.Issuer))
	}

	return credentials, nil
}
