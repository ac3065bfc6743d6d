/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trustbloc/vcwallet/pkg/doc/jwt"
	"github.com/trustbloc/vcwallet/pkg/doc/presexch"
)

const (
	vpTokenTTL = 2 * time.Hour

	credentialsContext = "https://www.w3.org/2018/credentials/v1"
	presentationType   = "VerifiablePresentation"
)

// JWTVCJSON is the jwt_vc_json format. It is presented inside a jwt_vp_json envelope.
type JWTVCJSON struct{}

func (JWTVCJSON) Name() string { return FormatJWTVCJSON }

func (JWTVCJSON) closed() {}

func (JWTVCJSON) Match(pd *presexch.PresentationDefinition, raw string) (*presexch.MatchResult, error) {
	var payload map[string]interface{}

	if err := jwt.Decode(raw, &payload); err != nil {
		return nil, err
	}

	return presexch.MatchJWTVC(pd, payload)
}

type vpClaims struct {
	Context              []string `json:"@context"`
	Type                 []string `json:"type"`
	VerifiableCredential []string `json:"verifiableCredential"`
}

type vpPayload struct {
	Issuer    string    `json:"iss"`
	JTI       string    `json:"jti"`
	Audience  string    `json:"aud"`
	NotBefore int64     `json:"nbf"`
	IssuedAt  int64     `json:"iat"`
	Expiry    int64     `json:"exp"`
	Nonce     string    `json:"nonce"`
	VP        *vpClaims `json:"vp"`
}

// BuildVPToken wraps the credential JWT in a signed VerifiablePresentation.
// Every credential subject claim is disclosed.
func (JWTVCJSON) BuildVPToken(_ context.Context, req *VPTokenRequest) (*VPToken, error) {
	if req.Signer == nil || req.PublicJWK == nil {
		return nil, fmt.Errorf("%w: jwt_vp_json", ErrMissingSigner)
	}

	cred := req.Credential

	var vc struct {
		VC struct {
			CredentialSubject map[string]interface{} `json:"credentialSubject"`
		} `json:"vc"`
	}

	if err := jwt.Decode(cred.RawCredential, &vc); err != nil {
		return nil, err
	}

	if vc.VC.CredentialSubject == nil {
		return nil, fmt.Errorf("%w: missing vc.credentialSubject", ErrUnsupportedFormat)
	}

	iss, err := req.PublicJWK.Thumbprint()
	if err != nil {
		return nil, err
	}

	now := req.now().Unix()

	payload := &vpPayload{
		Issuer:    iss,
		JTI:       uuid.NewString(),
		Audience:  req.ClientID,
		NotBefore: now,
		IssuedAt:  now,
		Expiry:    now + int64(vpTokenTTL.Seconds()),
		Nonce:     req.Nonce,
		VP: &vpClaims{
			Context:              []string{credentialsContext},
			Type:                 []string{presentationType},
			VerifiableCredential: []string{cred.RawCredential},
		},
	}

	header := map[string]interface{}{
		jwt.HeaderTyp: "JWT",
		jwt.HeaderJWK: req.PublicJWK.Public(),
	}

	token, err := jwt.Sign(header, payload, req.Signer)
	if err != nil {
		return nil, fmt.Errorf("sign jwt_vp_json: %w", err)
	}

	keys := make([]string, 0, len(vc.VC.CredentialSubject))
	for k := range vc.VC.CredentialSubject {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	claims := make([]DisclosedClaim, 0, len(keys))
	for _, k := range keys {
		claims = append(claims, DisclosedClaim{Name: k, Value: vc.VC.CredentialSubject[k]})
	}

	return &VPToken{
		CredentialID: cred.ID,
		Token:        token,
		Descriptor: &presexch.DescriptorMap{
			ID:     descriptorID(cred),
			Format: FormatJWTVPJSON,
			Path:   tokenPath(req.Index),
			PathNested: &presexch.DescriptorMap{
				ID:     descriptorID(cred),
				Format: FormatJWTVCJSON,
				Path:   "$.vp.verifiableCredential[0]",
			},
		},
		DisclosedClaims: claims,
	}, nil
}
