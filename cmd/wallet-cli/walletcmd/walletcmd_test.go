/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package walletcmd

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/vcwallet/cmd/common"
	"github.com/trustbloc/vcwallet/pkg/account"
	"github.com/trustbloc/vcwallet/pkg/credential"
	"github.com/trustbloc/vcwallet/pkg/doc/jwt"
	"github.com/trustbloc/vcwallet/pkg/doc/sdjwt"
	"github.com/trustbloc/vcwallet/pkg/kms"
	"github.com/trustbloc/vcwallet/pkg/storage"
)

const (
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

	identityDefinition = `{"id":"pd-identity","input_descriptors":[{"id":"identity","purpose":"login",
"constraints":{"fields":[{"path":["$.given_name"]}]}}]}`
)

func newTestServices(t *testing.T) *services {
	t.Helper()

	svc, err := initServices(context.Background(), &walletParameters{
		mnemonic:      testMnemonic,
		dbParameters:  &common.DBParameters{Name: "test", Timeout: 1},
		kmsConfig:     &kms.Config{KMSType: kms.Local},
		tracingParams: &tracingParams{serviceName: defaultTracingServiceName},
	})
	require.NoError(t, err)

	t.Cleanup(svc.Close)

	return svc
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

type mockVerifier struct {
	*httptest.Server

	mu    sync.Mutex
	forms []url.Values
}

func newMockVerifier(t *testing.T) *mockVerifier {
	t.Helper()

	v := &mockVerifier{}

	v.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		v.mu.Lock()
		v.forms = append(v.forms, r.PostForm)
		v.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"redirect_uri":"https://verifier.example.com/done"}`))
	}))

	t.Cleanup(v.Close)

	return v
}

func (v *mockVerifier) requestURI(definition string) string {
	params := url.Values{
		"client_id":               {v.URL + "/cb"},
		"response_type":           {"vp_token id_token"},
		"response_mode":           {"direct_post"},
		"response_uri":            {v.URL + "/cb"},
		"nonce":                   {"n-1"},
		"state":                   {"st-1"},
		"presentation_definition": {definition},
		"client_metadata":         {`{"client_name":"Example Verifier"}`},
	}

	return "openid4vp://?" + params.Encode()
}

func TestPresent(t *testing.T) {
	ctx := context.Background()

	t.Run("first match per descriptor", func(t *testing.T) {
		svc := newTestServices(t)
		verifier := newMockVerifier(t)

		require.NoError(t, svc.credentials.Save(ctx, sdJWTCredential(t, "cred-1", "Alice")))
		require.NoError(t, svc.credentials.Save(ctx, sdJWTCredential(t, "cred-2", "Bob")))

		result, err := present(ctx, svc, &presentFlags{requestURI: verifier.requestURI(identityDefinition)})
		require.NoError(t, err)

		require.Equal(t, http.StatusOK, result.StatusCode)
		require.Equal(t, "https://verifier.example.com/done", result.Location)
		require.Equal(t, "Example Verifier", result.ClientName)
		require.Len(t, result.SharedCredentials, 1)
		require.Equal(t, "cred-1", result.SharedCredentials[0].ID)
		require.True(t, strings.HasPrefix(result.Subject, "urn:ietf:params:oauth:jwk-thumbprint:sha-256:"))

		require.Len(t, verifier.forms, 1)
		require.NotEmpty(t, verifier.forms[0].Get("vp_token"))
		require.NotEmpty(t, verifier.forms[0].Get("id_token"))
		require.Equal(t, "st-1", verifier.forms[0].Get("state"))

		accts, err := accounts(ctx, svc, verifier.URL+"/cb", "")
		require.NoError(t, err)
		require.Len(t, accts, 1)
		require.Equal(t, 0, accts[0].Index)
		require.Equal(t, account.DefaultIdentified, accts[0].UseCase)
		require.Equal(t, result.Subject, accts[0].Subject)

		h, err := history(ctx, svc, "")
		require.NoError(t, err)
		require.Len(t, h.IDTokens, 1)
		require.Len(t, h.Credentials, 1)
		require.Equal(t, "cred-1", h.Credentials[0].CredentialID)
	})

	t.Run("selected credential", func(t *testing.T) {
		svc := newTestServices(t)
		verifier := newMockVerifier(t)

		require.NoError(t, svc.credentials.Save(ctx, sdJWTCredential(t, "cred-1", "Alice")))
		require.NoError(t, svc.credentials.Save(ctx, sdJWTCredential(t, "cred-2", "Bob")))

		result, err := present(ctx, svc, &presentFlags{
			requestURI:    verifier.requestURI(identityDefinition),
			credentialIDs: []string{"cred-2"},
		})
		require.NoError(t, err)
		require.Len(t, result.SharedCredentials, 1)
		require.Equal(t, "cred-2", result.SharedCredentials[0].ID)
	})

	t.Run("unknown credential", func(t *testing.T) {
		svc := newTestServices(t)
		verifier := newMockVerifier(t)

		require.NoError(t, svc.credentials.Save(ctx, sdJWTCredential(t, "cred-1", "Alice")))

		_, err := present(ctx, svc, &presentFlags{
			requestURI:    verifier.requestURI(identityDefinition),
			credentialIDs: []string{"cred-9"},
		})
		require.ErrorIs(t, err, errNoMatchingCredential)
		require.Empty(t, verifier.forms)
	})

	t.Run("nothing to present", func(t *testing.T) {
		svc := newTestServices(t)
		verifier := newMockVerifier(t)

		_, err := present(ctx, svc, &presentFlags{requestURI: verifier.requestURI(identityDefinition)})
		require.ErrorIs(t, err, errNoMatchingCredential)
		require.Empty(t, verifier.forms)
	})

	t.Run("invalid request", func(t *testing.T) {
		svc := newTestServices(t)

		_, err := present(ctx, svc, &presentFlags{requestURI: "openid4vp://?response_type=vp_token"})
		require.Error(t, err)
	})
}

func TestCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newTestServices(t)

	require.NoError(t, svc.credentials.Save(ctx, sdJWTCredential(t, "cred-1", "Alice")))
	require.NoError(t, svc.credentials.Save(ctx, sdJWTCredential(t, "cred-2", "Bob")))

	creds, err := credentials(ctx, svc, []string{"cred-1"})
	require.NoError(t, err)
	require.Len(t, creds, 1)
	require.Equal(t, "cred-2", creds[0].ID)

	_, err = credentials(ctx, svc, []string{"cred-1"})
	require.ErrorIs(t, err, storage.ErrDataNotFound)
}

func TestAccounts(t *testing.T) {
	svc := newTestServices(t)

	accts, err := accounts(context.Background(), svc, "", "")
	require.NoError(t, err)
	require.Empty(t, accts)

	_, err = accounts(context.Background(), svc, "", "unknown")
	require.ErrorContains(t, err, "unknown use case")
}

func TestReceive(t *testing.T) {
	svc := newTestServices(t)

	_, err := receive(context.Background(), svc, &receiveFlags{offerURI: "openid-credential-offer://?foo=bar"})
	require.Error(t, err)

	creds, err := svc.credentials.GetAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, creds)
}

func newRootCmd() (*cobra.Command, *bytes.Buffer) {
	root := &cobra.Command{Use: "wallet-cli", SilenceUsage: true, SilenceErrors: true}
	AddCommands(root)

	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})

	return root, out
}

func TestCommands(t *testing.T) {
	t.Run("credentials", func(t *testing.T) {
		t.Setenv(mnemonicEnvKey, testMnemonic)

		root, out := newRootCmd()
		root.SetArgs([]string{"credentials", "--log-level", "ERROR"})

		require.NoError(t, root.Execute())

		var creds []*storage.Credential
		require.NoError(t, json.Unmarshal(out.Bytes(), &creds))
		require.Empty(t, creds)
	})

	t.Run("history", func(t *testing.T) {
		root, out := newRootCmd()
		root.SetArgs([]string{"history", "--mnemonic", testMnemonic, "--rp", "https://verifier.example.com"})

		require.NoError(t, root.Execute())
		require.Contains(t, out.String(), `"id_tokens"`)
	})

	t.Run("missing mnemonic", func(t *testing.T) {
		root, _ := newRootCmd()
		root.SetArgs([]string{"accounts"})

		require.ErrorContains(t, root.Execute(), mnemonicFlagName)
	})

	t.Run("invalid mnemonic", func(t *testing.T) {
		root, _ := newRootCmd()
		root.SetArgs([]string{"accounts", "--mnemonic", "too short"})

		require.ErrorIs(t, root.Execute(), account.ErrInvalidMnemonic)
	})

	t.Run("present requires request uri", func(t *testing.T) {
		root, _ := newRootCmd()
		root.SetArgs([]string{"present", "--mnemonic", testMnemonic})

		require.ErrorContains(t, root.Execute(), requestURIFlagName)
	})
}
