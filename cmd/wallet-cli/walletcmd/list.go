/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package walletcmd

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/trustbloc/vcwallet/pkg/account"
	"github.com/trustbloc/vcwallet/pkg/storage"
)

const (
	rpFlagName      = "rp"
	useCaseFlagName = "use-case"
	deleteFlagName  = "delete"
)

type accountView struct {
	Index      int             `json:"index"`
	RP         string          `json:"rp"`
	UseCase    account.UseCase `json:"use_case"`
	Subject    string          `json:"subject"`
	Thumbprint string          `json:"thumbprint"`
}

type historyView struct {
	IDTokens    []*storage.IDTokenSharing    `json:"id_tokens"`
	Credentials []*storage.CredentialSharing `json:"credentials"`
}

func newAccountsCmd() *cobra.Command {
	var rp, useCase string

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Lists the pairwise accounts recorded in the sharing history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd, func(ctx context.Context, svc *services) (interface{}, error) {
				return accounts(ctx, svc, rp, account.UseCase(useCase))
			})
		},
	}

	cmd.Flags().StringVar(&rp, rpFlagName, "", "relying party client_id; all relying parties when not set")
	cmd.Flags().StringVar(&useCase, useCaseFlagName, "", "account use case filter: "+
		string(account.DefaultAnonymous)+", "+string(account.DefaultIdentified)+" or "+
		string(account.UserCreatedAlterEgo))

	return cmd
}

func accounts(ctx context.Context, svc *services, rp string, useCase account.UseCase) ([]*accountView, error) {
	if useCase != "" && !useCase.Valid() {
		return nil, fmt.Errorf("unknown use case: %s", useCase)
	}

	if err := svc.loadAccounts(ctx); err != nil {
		return nil, err
	}

	known := lo.Filter(svc.accounts.Accounts(), func(a *account.Account, _ int) bool {
		return (rp == "" || a.RP == rp) && (useCase == "" || a.UseCase == useCase)
	})

	views := make([]*accountView, 0, len(known))

	for _, a := range known {
		sub, err := a.Subject()
		if err != nil {
			return nil, err
		}

		views = append(views, &accountView{
			Index:      a.Index,
			RP:         a.RP,
			UseCase:    a.UseCase,
			Subject:    sub,
			Thumbprint: a.Thumbprint,
		})
	}

	return views, nil
}

func newCredentialsCmd() *cobra.Command {
	var deleteIDs []string

	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Lists the stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd, func(ctx context.Context, svc *services) (interface{}, error) {
				return credentials(ctx, svc, deleteIDs)
			})
		},
	}

	cmd.Flags().StringSliceVar(&deleteIDs, deleteFlagName, nil, "IDs of stored credentials to delete first")

	return cmd
}

func credentials(ctx context.Context, svc *services, deleteIDs []string) ([]*storage.Credential, error) {
	for _, id := range deleteIDs {
		if err := svc.credentials.Delete(ctx, id); err != nil {
			return nil, fmt.Errorf("delete credential %s: %w", id, err)
		}
	}

	return svc.credentials.GetAll(ctx)
}

func newHistoryCmd() *cobra.Command {
	var rp string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Lists what was shared with relying parties",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd, func(ctx context.Context, svc *services) (interface{}, error) {
				return history(ctx, svc, rp)
			})
		},
	}

	cmd.Flags().StringVar(&rp, rpFlagName, "", "relying party client_id; all relying parties when not set")

	return cmd
}

func history(ctx context.Context, svc *services, rp string) (*historyView, error) {
	idTokens, err := svc.history.IDTokenSharings(ctx, rp)
	if err != nil {
		return nil, fmt.Errorf("id token history: %w", err)
	}

	creds, err := svc.history.CredentialSharings(ctx, rp)
	if err != nil {
		return nil, fmt.Errorf("credential history: %w", err)
	}

	return &historyView{IDTokens: idTokens, Credentials: creds}, nil
}
