/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sharing

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/vcwallet/pkg/account"
	"github.com/trustbloc/vcwallet/pkg/credential"
	"github.com/trustbloc/vcwallet/pkg/doc/jwt"
	"github.com/trustbloc/vcwallet/pkg/doc/presexch"
	"github.com/trustbloc/vcwallet/pkg/doc/sdjwt"
	"github.com/trustbloc/vcwallet/pkg/keystore"
	"github.com/trustbloc/vcwallet/pkg/service/commentvc"
	"github.com/trustbloc/vcwallet/pkg/service/oidc4vp"
	"github.com/trustbloc/vcwallet/pkg/storage"
	"github.com/trustbloc/vcwallet/pkg/storage/mem"
	"github.com/trustbloc/vcwallet/pkg/walleterr"
)

const (
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

	verifier        = "https://verifier.example.com/cb"
	commentVerifier = "https://app.boolcheck.com/cb"
)

var testNow = time.Unix(1700000000, 0).UTC() //nolint:gochecknoglobals

const identityDefinition = `{"id":"pd-identity","input_descriptors":[{"id":"identity","purpose":"login",
"constraints":{"fields":[{"path":["$.given_name"]}]}}]}`

const commentDefinition = `{"id":"pd-comment","input_descriptors":[{"id":"true_false_comment",
"constraints":{"fields":[
{"path":["$.vc.credentialSubject.url"],"filter":{"type":"string","const":"https://news.example.com/a"}},
{"path":["$.vc.credentialSubject.comment"],"filter":{"type":"string","const":"looks right"}},
{"path":["$.vc.credentialSubject.bool_value"],"filter":{"type":"number","minimum":1,"maximum":1}}]}}]}`

type fixture struct {
	svc       *Service
	responder *Mockresponder
	store     *mem.Provider
	keyStore  *keystore.Local
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	keyring, err := account.NewKeyring(testMnemonic, "")
	require.NoError(t, err)

	store := mem.NewProvider()
	responder := NewMockresponder(gomock.NewController(t))
	ks := keystore.NewLocal()

	return &fixture{
		svc: NewService(&Config{
			Responder:   responder,
			Accounts:    account.NewManager(keyring),
			Credentials: store,
			History:     store,
			KeyStore:    ks,
			Now:         func() time.Time { return testNow },
		}),
		responder: responder,
		store:     store,
		keyStore:  ks,
	}
}

const exampleMetadata = `{"client_name":"Example Verifier","logo_uri":"https://verifier.example.com/logo.png",` +
	`"policy_uri":"https://verifier.example.com/policy"}`

func resolve(t *testing.T, scheme, clientID, definition string) *oidc4vp.ResolvedRequest {
	t.Helper()

	return resolveWithMetadata(t, scheme, clientID, definition, exampleMetadata)
}

func resolveWithMetadata(t *testing.T, scheme, clientID, definition, metadata string) *oidc4vp.ResolvedRequest {
	t.Helper()

	params := url.Values{
		"client_id":               {clientID},
		"response_type":           {"vp_token id_token"},
		"response_mode":           {"direct_post"},
		"response_uri":            {clientID},
		"nonce":                   {"n-1"},
		"state":                   {"st-1"},
		"presentation_definition": {definition},
	}

	if metadata != "" {
		params.Set("client_metadata", metadata)
	}

	req, err := oidc4vp.NewResolver(&oidc4vp.ResolverConfig{}).Resolve(context.Background(),
		scheme+"://?"+params.Encode())
	require.NoError(t, err)

	return req
}

func sdJWTCredential(t *testing.T, id, givenName string) *storage.Credential {
	t.Helper()

	issuerKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	signer, err := jwt.NewECDSASigner(issuerKey)
	require.NoError(t, err)

	d, err := sdjwt.EncodeDisclosure("salt-"+id, "given_name", givenName)
	require.NoError(t, err)

	issuerJWT, err := jwt.Sign(map[string]interface{}{jwt.HeaderTyp: "vc+sd-jwt"}, map[string]interface{}{
		"iss":     "https://issuer.example.com",
		"vct":     "IdentityCredential",
		"_sd":     []interface{}{sdjwt.Digest(d.Raw)},
		"_sd_alg": "sha-256",
	}, signer)
	require.NoError(t, err)

	return &storage.Credential{
		ID:     id,
		Format: credential.FormatSDJWT,
		Types:  []string{"IdentityCredential"},
		Raw:    issuerJWT + "~" + d.Raw + "~",
	}
}

func sentResult(rr *oidc4vp.RespondRequest) *oidc4vp.TokenSendResult {
	result := &oidc4vp.TokenSendResult{
		StatusCode:    200,
		SharedIDToken: &oidc4vp.SharedIDToken{Token: "id.token.sig", Subject: "sub"},
	}

	for _, c := range rr.Credentials {
		result.SharedCredentials = append(result.SharedCredentials, &oidc4vp.SharedCredential{
			ID:                c.ID,
			Format:            c.Format,
			Types:             c.Types,
			InputDescriptorID: c.InputDescriptor.ID,
			Purpose:           c.InputDescriptor.Purpose,
			SharedClaims:      []oidc4vp.SharedClaim{{Name: "given_name", Value: "Alice"}},
		})
	}

	return result
}

func TestService_Candidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.store.Save(ctx, sdJWTCredential(t, "alice", "Alice")))
	require.NoError(t, f.store.Save(ctx, &storage.Credential{ID: "mdoc", Format: "mso_mdoc", Raw: "x"}))
	require.NoError(t, f.store.Save(ctx, &storage.Credential{ID: "broken", Format: credential.FormatJWTVCJSON,
		Raw: "not-a-jwt"}))

	candidates, err := f.svc.Candidates(ctx, resolve(t, oidc4vp.SchemeOpenID4VP, verifier, identityDefinition))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "alice", candidates[0].Credential.ID)
	require.Equal(t, "identity", candidates[0].Match.InputDescriptor.ID)

	submission := candidates[0].Submission()
	require.Equal(t, credential.FormatSDJWT, submission.Format)
	require.Equal(t, "identity", submission.InputDescriptor.ID)
	require.NotEmpty(t, submission.DiscloseClaims)
}

func TestService_Share(t *testing.T) {
	ctx := context.Background()

	t.Run("identified account is reused", func(t *testing.T) {
		f := newFixture(t)
		req := resolve(t, oidc4vp.SchemeOpenID4VP, verifier, identityDefinition)

		require.NoError(t, f.store.Save(ctx, sdJWTCredential(t, "alice", "Alice")))

		candidates, err := f.svc.Candidates(ctx, req)
		require.NoError(t, err)

		var indices []int

		f.responder.EXPECT().Respond(ctx, req, gomock.Any()).Times(2).DoAndReturn(
			func(_ context.Context, _ *oidc4vp.ResolvedRequest, rr *oidc4vp.RespondRequest) (*oidc4vp.TokenSendResult, error) {
				require.Equal(t, account.DefaultIdentified, rr.IDTokenAccount.UseCase)
				require.Equal(t, keystore.JWTVPJSON, rr.KeyAliases[credential.FormatJWTVCJSON])
				require.Equal(t, keystore.KeyBinding, rr.KeyAliases[credential.FormatSDJWT])
				indices = append(indices, rr.IDTokenAccount.Index)

				return sentResult(rr), nil
			})

		for i := 0; i < 2; i++ {
			result, err := f.svc.Share(ctx, req, &ShareRequest{
				Credentials: []*credential.SubmissionCredential{candidates[0].Submission()},
			})
			require.NoError(t, err)
			require.Equal(t, 200, result.StatusCode)
		}

		require.Equal(t, []int{0, 0}, indices)

		idTokens, err := f.store.IDTokenSharings(ctx, verifier)
		require.NoError(t, err)
		require.Len(t, idTokens, 2)
		require.Equal(t, account.DefaultIdentified, idTokens[0].UseCase)
		require.NotEmpty(t, idTokens[0].Thumbprint)
		require.Equal(t, testNow, idTokens[0].CreatedAt)

		shared, err := f.store.CredentialSharings(ctx, verifier)
		require.NoError(t, err)
		require.Len(t, shared, 2)
		require.Equal(t, storage.CredentialSharing{
			RP:           verifier,
			RPName:       "Example Verifier",
			LogoURI:      "https://verifier.example.com/logo.png",
			PolicyURI:    "https://verifier.example.com/policy",
			AccountIndex: 0,
			CredentialID: "alice",
			Format:       credential.FormatSDJWT,
			Types:        []string{"IdentityCredential"},
			Purpose:      "login",
			Claims:       []storage.SharedClaim{{Name: "given_name", Value: "Alice"}},
			CreatedAt:    testNow,
		}, *shared[0])
	})

	t.Run("anonymous comment", func(t *testing.T) {
		f := newFixture(t)
		req := resolve(t, oidc4vp.SchemeOpenID4VP, commentVerifier, commentDefinition)

		require.True(t, f.svc.CommentRequested(req))

		comment, err := f.svc.PrepareComment(ctx, req, true)
		require.NoError(t, err)
		require.NotEqual(t, keystore.KeyBinding, comment.KeyAlias)
		require.Equal(t, commentvc.InputDescriptorID, comment.Submission.InputDescriptor.ID)

		f.responder.EXPECT().Respond(ctx, req, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ *oidc4vp.ResolvedRequest, rr *oidc4vp.RespondRequest) (*oidc4vp.TokenSendResult, error) {
				require.Len(t, rr.Credentials, 1)
				require.Equal(t, account.DefaultAnonymous, rr.IDTokenAccount.UseCase)
				require.Equal(t, comment.KeyAlias, rr.KeyAliases[credential.FormatJWTVCJSON])

				return sentResult(rr), nil
			})

		_, err = f.svc.Share(ctx, req, &ShareRequest{Comment: comment})
		require.NoError(t, err)

		stored, err := f.store.Get(ctx, comment.Credential.ID)
		require.NoError(t, err)
		require.Equal(t, []string{commentvc.CredentialType}, stored.Types)

		idTokens, err := f.store.IDTokenSharings(ctx, commentVerifier)
		require.NoError(t, err)
		require.Len(t, idTokens, 1)
		require.Equal(t, account.DefaultAnonymous, idTokens[0].UseCase)
	})

	t.Run("named comment with another credential", func(t *testing.T) {
		f := newFixture(t)
		req := resolve(t, oidc4vp.SchemeOpenID4VP, commentVerifier, commentDefinition)

		comment, err := f.svc.PrepareComment(ctx, req, false)
		require.NoError(t, err)
		require.Equal(t, keystore.KeyBinding, comment.KeyAlias)

		other := &credential.SubmissionCredential{
			ID:              "alice",
			Format:          credential.FormatSDJWT,
			InputDescriptor: &presexch.InputDescriptor{ID: "identity"},
		}

		f.responder.EXPECT().Respond(ctx, req, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ *oidc4vp.ResolvedRequest, rr *oidc4vp.RespondRequest) (*oidc4vp.TokenSendResult, error) {
				require.Len(t, rr.Credentials, 2)
				require.Equal(t, comment.Submission.ID, rr.Credentials[0].ID)
				require.Equal(t, account.DefaultIdentified, rr.IDTokenAccount.UseCase)
				require.Equal(t, keystore.KeyBinding, rr.KeyAliases[credential.FormatJWTVCJSON])

				return &oidc4vp.TokenSendResult{StatusCode: 200}, nil
			})

		_, err = f.svc.Share(ctx, req, &ShareRequest{
			Credentials: []*credential.SubmissionCredential{other},
			Comment:     comment,
		})
		require.NoError(t, err)

		idTokens, err := f.store.IDTokenSharings(ctx, "")
		require.NoError(t, err)
		require.Empty(t, idTokens)
	})

	t.Run("verifier rejects", func(t *testing.T) {
		f := newFixture(t)
		req := resolve(t, oidc4vp.SchemeOpenID4VP, verifier, identityDefinition)

		f.responder.EXPECT().Respond(ctx, req, gomock.Any()).Return(nil, errors.New("status 400"))

		_, err := f.svc.Share(ctx, req, &ShareRequest{})
		require.ErrorContains(t, err, "status 400")

		idTokens, err := f.store.IDTokenSharings(ctx, "")
		require.NoError(t, err)
		require.Empty(t, idTokens)
	})

	t.Run("missing request", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Share(ctx, nil, &ShareRequest{})
		require.True(t, walleterr.IsKind(err, walleterr.KindState))
	})
}

func TestService_HistoryFromClientMetadata(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		metadata string
		want     storage.CredentialSharing
		wantName string
	}{
		{
			name: "name and logo from metadata",
			metadata: `{"client_id":"https://verifier.example.com","client_name":"Metadata Verifier",` +
				`"logo_uri":"https://verifier.example.com/m.png","policy_uri":"https://verifier.example.com/p"}`,
			want: storage.CredentialSharing{
				RP:        "https://verifier.example.com",
				RPName:    "Metadata Verifier",
				LogoURI:   "https://verifier.example.com/m.png",
				PolicyURI: "https://verifier.example.com/p",
			},
			wantName: "Metadata Verifier",
		},
		{
			name: "no metadata",
			want: storage.CredentialSharing{RP: verifier},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := resolveWithMetadata(t, oidc4vp.SchemeOpenID4VP, verifier, identityDefinition, tt.metadata)

			require.NoError(t, f.store.Save(ctx, sdJWTCredential(t, "alice", "Alice")))

			candidates, err := f.svc.Candidates(ctx, req)
			require.NoError(t, err)
			require.Len(t, candidates, 1)

			f.responder.EXPECT().Respond(ctx, req, gomock.Any()).DoAndReturn(
				func(_ context.Context, _ *oidc4vp.ResolvedRequest, rr *oidc4vp.RespondRequest) (*oidc4vp.TokenSendResult, error) {
					return sentResult(rr), nil
				})

			_, err = f.svc.Share(ctx, req, &ShareRequest{
				Credentials: []*credential.SubmissionCredential{candidates[0].Submission()},
			})
			require.NoError(t, err)

			shared, err := f.store.CredentialSharings(ctx, "")
			require.NoError(t, err)
			require.Len(t, shared, 1)
			require.Equal(t, tt.want.RP, shared[0].RP)
			require.Equal(t, tt.want.RPName, shared[0].RPName)
			require.Equal(t, tt.want.LogoURI, shared[0].LogoURI)
			require.Equal(t, tt.want.PolicyURI, shared[0].PolicyURI)

			idTokens, err := f.store.IDTokenSharings(ctx, verifier)
			require.NoError(t, err)
			require.Len(t, idTokens, 1)
			require.Equal(t, tt.wantName, idTokens[0].RPName)
		})
	}
}

func TestService_AccountErrors(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)

	accounts := NewMockaccountManager(ctrl)
	store := mem.NewProvider()

	svc := NewService(&Config{
		Responder:   NewMockresponder(ctrl),
		Accounts:    accounts,
		Credentials: store,
		History:     store,
	})

	req := resolve(t, oidc4vp.SchemeOpenID4VP, verifier, identityDefinition)

	t.Run("load fails", func(t *testing.T) {
		accounts.EXPECT().Load(gomock.Any()).Return(errors.New("bad seed"))

		_, err := svc.Share(ctx, req, &ShareRequest{})

		var sharingErr *Error
		require.ErrorAs(t, err, &sharingErr)
		require.Equal(t, string(IllegalState), sharingErr.Code())
	})

	t.Run("default account fails", func(t *testing.T) {
		accounts.EXPECT().Load(gomock.Any()).Return(nil)
		accounts.EXPECT().DefaultAccount(verifier, account.DefaultIdentified).Return(nil, errors.New("derive"))

		_, err := svc.Share(ctx, req, &ShareRequest{})
		require.ErrorContains(t, err, "derive")
	})
}

func TestService_CommentRequested(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		scheme     string
		clientID   string
		definition string
		want       bool
	}{
		{"comment client", oidc4vp.SchemeOpenID4VP, commentVerifier, commentDefinition, true},
		{"siopv2 scheme", oidc4vp.SchemeSIOPv2, commentVerifier, commentDefinition, false},
		{"other client", oidc4vp.SchemeOpenID4VP, verifier, commentDefinition, false},
		{"no comment descriptor", oidc4vp.SchemeOpenID4VP, commentVerifier, identityDefinition, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, f.svc.CommentRequested(resolve(t, tc.scheme, tc.clientID, tc.definition)))
		})
	}

	_, err := f.svc.PrepareComment(context.Background(),
		resolve(t, oidc4vp.SchemeOpenID4VP, commentVerifier, identityDefinition), true)
	require.ErrorIs(t, err, commentvc.ErrNoCommentDescriptor)
}
