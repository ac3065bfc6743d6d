/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trustbloc/vcwallet/pkg/doc/jwt"
	"github.com/trustbloc/vcwallet/pkg/doc/presexch"
)

const (
	FormatSDJWT     = "vc+sd-jwt"
	FormatJWTVCJSON = "jwt_vc_json"
	FormatJWTVPJSON = "jwt_vp_json"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported credential format")
	ErrMissingSigner     = errors.New("missing signer")
)

// Format is a credential format the wallet can match and present.
// The set of formats is closed: only this package implements it.
type Format interface {
	Name() string
	// Match evaluates pd against a raw credential of this format.
	Match(pd *presexch.PresentationDefinition, raw string) (*presexch.MatchResult, error)
	// BuildVPToken produces the vp_token entry for one submitted credential.
	BuildVPToken(ctx context.Context, req *VPTokenRequest) (*VPToken, error)

	closed()
}

// FormatFor returns the Format registered under name.
func FormatFor(name string) (Format, error) {
	switch name {
	case FormatSDJWT:
		return SDJWT{}, nil
	case FormatJWTVCJSON:
		return JWTVCJSON{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// SubmissionCredential is a stored credential selected for a presentation.
type SubmissionCredential struct {
	ID              string
	Format          string
	Types           []string
	RawCredential   string
	InputDescriptor *presexch.InputDescriptor
	DiscloseClaims  []presexch.DisclosureWithOptionality
}

// VPTokenRequest carries what a Format needs to present one credential.
type VPTokenRequest struct {
	Credential *SubmissionCredential
	// Index is the position of the token in an array-valued vp_token, or -1 when it is sent alone.
	Index    int
	ClientID string
	Nonce    string
	Signer   jwt.Signer
	// PublicJWK is the public key of Signer. Required for jwt_vc_json.
	PublicJWK *jwt.JWK
	Now       time.Time
}

// DisclosedClaim is a claim revealed to the verifier.
type DisclosedClaim struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// VPToken is one entry of the vp_token with its descriptor map.
type VPToken struct {
	CredentialID    string
	Token           string
	Descriptor      *presexch.DescriptorMap
	DisclosedClaims []DisclosedClaim
	Purpose         string
}

func tokenPath(index int) string {
	if index < 0 {
		return "$"
	}

	return fmt.Sprintf("$[%d]", index)
}

func (r *VPTokenRequest) now() time.Time {
	if r.Now.IsZero() {
		return time.Now()
	}

	return r.Now
}
