/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/trustbloc/vcwallet/pkg/doc/presexch"
	"github.com/trustbloc/vcwallet/pkg/doc/sdjwt"
)

// SDJWT is the vc+sd-jwt format.
type SDJWT struct{}

func (SDJWT) Name() string { return FormatSDJWT }

func (SDJWT) closed() {}

func (SDJWT) Match(pd *presexch.PresentationDefinition, raw string) (*presexch.MatchResult, error) {
	parsed, err := sdjwt.Parse(raw)
	if err != nil {
		return nil, err
	}

	return presexch.MatchSDJWT(pd, parsed.Disclosures)
}

// BuildVPToken presents the issuer-signed JWT with the submitted disclosures and a key binding JWT
// addressed to the verifier.
func (SDJWT) BuildVPToken(_ context.Context, req *VPTokenRequest) (*VPToken, error) {
	if req.Signer == nil {
		return nil, fmt.Errorf("%w: key binding", ErrMissingSigner)
	}

	cred := req.Credential

	parsed, err := sdjwt.Parse(cred.RawCredential)
	if err != nil {
		return nil, err
	}

	selected := lo.FilterMap(cred.DiscloseClaims, func(c presexch.DisclosureWithOptionality, _ int) (sdjwt.Disclosure, bool) {
		return c.Disclosure, c.IsSubmit
	})

	kb, err := sdjwt.CreateKeyBinding(req.Signer, parsed.IssuerSignedJWT, selected, req.ClientID, req.Nonce, req.now())
	if err != nil {
		return nil, fmt.Errorf("create key binding jwt: %w", err)
	}

	token, err := sdjwt.NewPresentation(parsed.IssuerSignedJWT, selected, kb)
	if err != nil {
		return nil, err
	}

	result := &VPToken{
		CredentialID: cred.ID,
		Token:        token,
		Descriptor: &presexch.DescriptorMap{
			ID:     descriptorID(cred),
			Format: FormatSDJWT,
			Path:   tokenPath(req.Index),
		},
	}

	if cred.InputDescriptor != nil {
		result.Purpose = cred.InputDescriptor.Purpose
	}

	for _, d := range selected {
		if d.Key != "" {
			result.DisclosedClaims = append(result.DisclosedClaims, DisclosedClaim{Name: d.Key, Value: d.Value})
		}
	}

	return result, nil
}

func descriptorID(cred *SubmissionCredential) string {
	if cred.InputDescriptor == nil {
		return ""
	}

	return cred.InputDescriptor.ID
}
