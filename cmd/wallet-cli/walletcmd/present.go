/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package walletcmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/trustbloc/vcwallet/internal/logfields"
	"github.com/trustbloc/vcwallet/pkg/credential"
	"github.com/trustbloc/vcwallet/pkg/service/oidc4vp"
	"github.com/trustbloc/vcwallet/pkg/service/sharing"
)

const (
	requestURIFlagName   = "request-uri"
	credentialIDFlagName = "credential-id"
	noCommentFlagName    = "no-comment"
)

var errNoMatchingCredential = errors.New("no stored credential matches the request")

type presentFlags struct {
	requestURI    string
	credentialIDs []string
	noComment     bool
}

type presentResult struct {
	ClientID          string                      `json:"client_id"`
	ClientName        string                      `json:"client_name,omitempty"`
	StatusCode        int                         `json:"status_code"`
	Location          string                      `json:"location,omitempty"`
	Subject           string                      `json:"subject,omitempty"`
	SharedCredentials []*oidc4vp.SharedCredential `json:"shared_credentials,omitempty"`
}

func newPresentCmd() *cobra.Command {
	flags := &presentFlags{}

	cmd := &cobra.Command{
		Use:   "present",
		Short: "Presents stored credentials to a verifier",
		Long: "Resolves an OpenID4VP or SIOPv2 authorization request, matches the stored credentials against its " +
			"presentation definition and sends the authorization response.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd, func(ctx context.Context, svc *services) (interface{}, error) {
				return present(ctx, svc, flags)
			})
		},
	}

	cmd.Flags().StringVar(&flags.requestURI, requestURIFlagName, "", "authorization request URI")
	cmd.Flags().StringSliceVar(&flags.credentialIDs, credentialIDFlagName, nil,
		"IDs of the credentials to present. The first match of every input descriptor is used when not set.")
	cmd.Flags().BoolVar(&flags.noComment, noCommentFlagName, false,
		"do not send a comment credential even if the verifier asks for one")

	_ = cmd.MarkFlagRequired(requestURIFlagName)

	return cmd
}

func present(ctx context.Context, svc *services, flags *presentFlags) (*presentResult, error) {
	req, err := svc.resolver.Resolve(ctx, flags.requestURI)
	if err != nil {
		return nil, err
	}

	candidates, err := svc.sharing.Candidates(ctx, req)
	if err != nil {
		return nil, err
	}

	selected, err := selectCandidates(candidates, flags.credentialIDs)
	if err != nil {
		return nil, err
	}

	sr := &sharing.ShareRequest{
		Credentials: lo.Map(selected, func(c *sharing.Candidate, _ int) *credential.SubmissionCredential {
			return c.Submission()
		}),
	}

	if !flags.noComment && svc.sharing.CommentRequested(req) {
		// A comment sent on its own is anonymous.
		sr.Comment, err = svc.sharing.PrepareComment(ctx, req, len(selected) == 0)
		if err != nil {
			return nil, err
		}
	}

	if req.RequiresVPToken() && len(sr.Credentials) == 0 && sr.Comment == nil {
		return nil, errNoMatchingCredential
	}

	result, err := svc.sharing.Share(ctx, req, sr)
	if err != nil {
		return nil, err
	}

	out := &presentResult{
		ClientID:          req.ClientID(),
		ClientName:        req.ClientMetadata().ClientName,
		StatusCode:        result.StatusCode,
		Location:          result.Location,
		SharedCredentials: result.SharedCredentials,
	}

	if result.SharedIDToken != nil {
		out.Subject = result.SharedIDToken.Subject
	}

	logger.Infoc(ctx, "Credentials presented", logfields.WithClientID(req.ClientID()),
		logfields.WithHTTPStatus(result.StatusCode))

	return out, nil
}

// selectCandidates picks the candidates named by ids, or the first candidate of every input descriptor.
func selectCandidates(candidates []*sharing.Candidate, ids []string) ([]*sharing.Candidate, error) {
	if len(ids) == 0 {
		return lo.UniqBy(candidates, func(c *sharing.Candidate) string {
			return c.Match.InputDescriptor.ID
		}), nil
	}

	selected := make([]*sharing.Candidate, 0, len(ids))

	for _, id := range ids {
		c, ok := lo.Find(candidates, func(c *sharing.Candidate) bool { return c.Credential.ID == id })
		if !ok {
			return nil, fmt.Errorf("%w: %s", errNoMatchingCredential, id)
		}

		selected = append(selected, c)
	}

	return selected, nil
}
