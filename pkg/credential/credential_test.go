/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/vcwallet/pkg/credential"
	"github.com/trustbloc/vcwallet/pkg/doc/jwt"
	"github.com/trustbloc/vcwallet/pkg/doc/presexch"
	"github.com/trustbloc/vcwallet/pkg/doc/sdjwt"
)

func TestFormatFor(t *testing.T) {
	f, err := credential.FormatFor(credential.FormatSDJWT)
	require.NoError(t, err)
	require.Equal(t, credential.FormatSDJWT, f.Name())

	f, err = credential.FormatFor(credential.FormatJWTVCJSON)
	require.NoError(t, err)
	require.Equal(t, credential.FormatJWTVCJSON, f.Name())

	_, err = credential.FormatFor("mso_mdoc")
	require.ErrorIs(t, err, credential.ErrUnsupportedFormat)
}

func TestSDJWT(t *testing.T) {
	issuer := newSigner(t)
	holder := newSigner(t)

	raw, _ := issueSDJWT(t, issuer, map[string]interface{}{
		"given_name":  "Taro",
		"family_name": "Yamada",
		"age":         20,
	})

	pd := &presexch.PresentationDefinition{
		ID: "pd",
		InputDescriptors: []*presexch.InputDescriptor{{
			ID:      "identity",
			Purpose: "age check",
			Constraints: &presexch.Constraints{Fields: []*presexch.Field{
				{Path: []string{"$.given_name"}},
				{Path: []string{"$.age"}, Optional: true},
			}},
		}},
	}

	format := credential.SDJWT{}

	match, err := format.Match(pd, raw)
	require.NoError(t, err)
	require.Equal(t, "identity", match.InputDescriptor.ID)

	sub := &credential.SubmissionCredential{
		ID:              "cred-1",
		Format:          credential.FormatSDJWT,
		RawCredential:   raw,
		InputDescriptor: match.InputDescriptor,
		DiscloseClaims:  match.Claims,
	}

	now := time.Unix(1700000000, 0)

	t.Run("single token", func(t *testing.T) {
		vp, err := format.BuildVPToken(context.Background(), &credential.VPTokenRequest{
			Credential: sub,
			Index:      -1,
			ClientID:   "https://verifier.example.com",
			Nonce:      "nonce-1",
			Signer:     holder,
			Now:        now,
		})
		require.NoError(t, err)
		require.Equal(t, "cred-1", vp.CredentialID)
		require.Equal(t, "age check", vp.Purpose)
		require.Equal(t, &presexch.DescriptorMap{ID: "identity", Format: credential.FormatSDJWT, Path: "$"}, vp.Descriptor)
		require.Equal(t, []credential.DisclosedClaim{{Name: "given_name", Value: "Taro"}}, vp.DisclosedClaims)

		parsed, err := sdjwt.Parse(vp.Token)
		require.NoError(t, err)
		require.Len(t, parsed.Disclosures, 1)
		require.Equal(t, "given_name", parsed.Disclosures[0].Key)

		kb, err := jwt.Verify(parsed.KeyBindingJWT, &holder.key.PublicKey)
		require.NoError(t, err)
		require.Equal(t, sdjwt.KeyBindingJWTType, kb.Typ())

		var claims sdjwt.KeyBindingClaims
		require.NoError(t, kb.DecodePayload(&claims))
		require.Equal(t, "https://verifier.example.com", claims.Audience)
		require.Equal(t, "nonce-1", claims.Nonce)
		require.Equal(t, now.Unix(), claims.IssuedAt)

		withoutKB := strings.TrimSuffix(vp.Token, parsed.KeyBindingJWT)
		require.Equal(t, sdjwt.Digest(withoutKB), claims.SDHash)
	})

	t.Run("indexed path", func(t *testing.T) {
		vp, err := format.BuildVPToken(context.Background(), &credential.VPTokenRequest{
			Credential: sub,
			Index:      1,
			Signer:     holder,
		})
		require.NoError(t, err)
		require.Equal(t, "$[1]", vp.Descriptor.Path)
	})

	t.Run("disclosure without raw", func(t *testing.T) {
		broken := *sub
		broken.DiscloseClaims = []presexch.DisclosureWithOptionality{{
			Disclosure: sdjwt.Disclosure{Key: "given_name", Value: "Taro"},
			IsSubmit:   true,
		}}

		_, err := format.BuildVPToken(context.Background(), &credential.VPTokenRequest{
			Credential: &broken,
			Index:      -1,
			Signer:     holder,
		})
		require.ErrorIs(t, err, sdjwt.ErrMissingRawDisclosure)
	})

	t.Run("missing key binding signer", func(t *testing.T) {
		_, err := format.BuildVPToken(context.Background(), &credential.VPTokenRequest{Credential: sub, Index: -1})
		require.ErrorIs(t, err, credential.ErrMissingSigner)
	})
}

func TestJWTVCJSON(t *testing.T) {
	issuer := newSigner(t)
	holder := newSigner(t)

	vcJWT, err := jwt.Sign(map[string]interface{}{jwt.HeaderTyp: "JWT"}, map[string]interface{}{
		"iss": "issuer",
		"vc": map[string]interface{}{
			"type": []string{"VerifiableCredential", "CommentCredential"},
			"credentialSubject": map[string]interface{}{
				"comment":    "hello",
				"url":        "https://example.com",
				"bool_value": 1,
			},
		},
	}, issuer)
	require.NoError(t, err)

	pd := &presexch.PresentationDefinition{
		ID: "pd",
		InputDescriptors: []*presexch.InputDescriptor{{
			ID: "true_false_comment",
			Constraints: &presexch.Constraints{Fields: []*presexch.Field{{
				Path:   []string{"$.vc.credentialSubject.comment"},
				Filter: &presexch.Filter{Const: "hello"},
			}}},
		}},
	}

	format := credential.JWTVCJSON{}

	match, err := format.Match(pd, vcJWT)
	require.NoError(t, err)

	for _, c := range match.Claims {
		if c.Disclosure.Key == "comment" {
			require.True(t, c.IsSubmit)
		}
	}

	holderJWK, err := jwt.JWKFromPublicKey(&holder.key.PublicKey)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0)

	vp, err := format.BuildVPToken(context.Background(), &credential.VPTokenRequest{
		Credential: &credential.SubmissionCredential{
			ID:              "cred-2",
			Format:          credential.FormatJWTVCJSON,
			RawCredential:   vcJWT,
			InputDescriptor: match.InputDescriptor,
		},
		Index:     0,
		ClientID:  "https://verifier.example.com",
		Nonce:     "nonce-2",
		Signer:    holder,
		PublicJWK: holderJWK,
		Now:       now,
	})
	require.NoError(t, err)

	require.Equal(t, "$[0]", vp.Descriptor.Path)
	require.Equal(t, credential.FormatJWTVPJSON, vp.Descriptor.Format)
	require.Equal(t, credential.FormatJWTVCJSON, vp.Descriptor.PathNested.Format)
	require.Equal(t, "$.vp.verifiableCredential[0]", vp.Descriptor.PathNested.Path)
	require.Len(t, vp.DisclosedClaims, 3)

	token, err := jwt.Verify(vp.Token, &holder.key.PublicKey)
	require.NoError(t, err)
	require.Equal(t, "JWT", token.Typ())
	require.Equal(t, jwt.AlgES256, token.Alg())
	require.NotNil(t, token.Header[jwt.HeaderJWK])

	var payload struct {
		Iss   string `json:"iss"`
		JTI   string `json:"jti"`
		Aud   string `json:"aud"`
		Nbf   int64  `json:"nbf"`
		Iat   int64  `json:"iat"`
		Exp   int64  `json:"exp"`
		Nonce string `json:"nonce"`
		VP    struct {
			Context              []string `json:"@context"`
			Type                 []string `json:"type"`
			VerifiableCredential []string `json:"verifiableCredential"`
		} `json:"vp"`
	}

	require.NoError(t, token.DecodePayload(&payload))

	thumbprint, err := holderJWK.Thumbprint()
	require.NoError(t, err)

	require.Equal(t, thumbprint, payload.Iss)
	require.NotEmpty(t, payload.JTI)
	require.Equal(t, "https://verifier.example.com", payload.Aud)
	require.Equal(t, now.Unix(), payload.Iat)
	require.Equal(t, now.Unix(), payload.Nbf)
	require.Equal(t, now.Unix()+7200, payload.Exp)
	require.Equal(t, "nonce-2", payload.Nonce)
	require.Equal(t, []string{"https://www.w3.org/2018/credentials/v1"}, payload.VP.Context)
	require.Equal(t, []string{"VerifiablePresentation"}, payload.VP.Type)
	require.Equal(t, []string{vcJWT}, payload.VP.VerifiableCredential)

	t.Run("missing public key", func(t *testing.T) {
		_, err := format.BuildVPToken(context.Background(), &credential.VPTokenRequest{
			Credential: &credential.SubmissionCredential{RawCredential: vcJWT},
			Signer:     holder,
		})
		require.ErrorIs(t, err, credential.ErrMissingSigner)
	})

	t.Run("not a credential", func(t *testing.T) {
		notVC, err := jwt.Sign(nil, map[string]interface{}{"iss": "x"}, issuer)
		require.NoError(t, err)

		_, err = format.BuildVPToken(context.Background(), &credential.VPTokenRequest{
			Credential: &credential.SubmissionCredential{RawCredential: notVC},
			Signer:     holder,
			PublicJWK:  holderJWK,
		})
		require.ErrorIs(t, err, credential.ErrUnsupportedFormat)
	})
}

type testSigner struct {
	*jwt.ECDSASigner
	key *ecdsa.PrivateKey
}

func newSigner(t *testing.T) *testSigner {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	signer, err := jwt.NewECDSASigner(key)
	require.NoError(t, err)

	return &testSigner{ECDSASigner: signer, key: key}
}

func issueSDJWT(t *testing.T, signer jwt.Signer, claims map[string]interface{}) (string, []*sdjwt.Disclosure) {
	t.Helper()

	var (
		digests     []interface{}
		disclosures []*sdjwt.Disclosure
		parts       []string
	)

	for _, key := range []string{"given_name", "family_name", "age"} {
		d, err := sdjwt.EncodeDisclosure("salt-"+key, key, claims[key])
		require.NoError(t, err)

		disclosures = append(disclosures, d)
		digests = append(digests, sdjwt.Digest(d.Raw))
		parts = append(parts, d.Raw)
	}

	issuerJWT, err := jwt.Sign(map[string]interface{}{jwt.HeaderTyp: "vc+sd-jwt"}, map[string]interface{}{
		"iss":     "https://issuer.example.com",
		"vct":     "IdentityCredential",
		"_sd":     digests,
		"_sd_alg": "sha-256",
	}, signer)
	require.NoError(t, err)

	return issuerJWT + "~" + strings.Join(parts, "~") + "~", disclosures
}
