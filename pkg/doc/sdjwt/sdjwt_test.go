/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdjwt_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/vcwallet/pkg/doc/jwt"
	"github.com/trustbloc/vcwallet/pkg/doc/sdjwt"
)

func TestParseSerialize(t *testing.T) {
	issuerJWT, disclosures := newIssuerJWT(t)

	kbKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	kbSigner, err := jwt.NewECDSASigner(kbKey)
	require.NoError(t, err)

	kb, err := sdjwt.CreateKeyBinding(kbSigner, issuerJWT, disclosures, "https://verifier.example.com", "nonce-1",
		time.Unix(1700000000, 0))
	require.NoError(t, err)

	withKB, err := sdjwt.NewPresentation(issuerJWT, disclosures, kb)
	require.NoError(t, err)

	issuance, err := sdjwt.NewPresentation(issuerJWT, disclosures, "")
	require.NoError(t, err)

	for _, combined := range []string{
		withKB,
		issuance,
		issuance[:len(issuance)-1],
		issuerJWT,
		issuerJWT + "~",
	} {
		parsed, parseErr := sdjwt.Parse(combined)
		require.NoError(t, parseErr)
		require.Equal(t, issuerJWT, parsed.IssuerSignedJWT)
		require.Equal(t, combined, parsed.Serialize())
	}

	parsed, err := sdjwt.Parse(withKB)
	require.NoError(t, err)
	require.Equal(t, kb, parsed.KeyBindingJWT)
	require.Len(t, parsed.Disclosures, 2)
	require.Equal(t, "given_name", parsed.Disclosures[0].Key)
	require.Equal(t, "Taro", parsed.Disclosures[0].Value)

	keyed := parsed.KeyedDisclosures()
	require.Contains(t, keyed, "given_name")
	require.Contains(t, keyed, "age")

	var kbClaims sdjwt.KeyBindingClaims

	kbToken, err := jwt.Verify(kb, &kbKey.PublicKey)
	require.NoError(t, err)
	require.Equal(t, sdjwt.KeyBindingJWTType, kbToken.Typ())
	require.NoError(t, kbToken.DecodePayload(&kbClaims))
	require.Equal(t, "https://verifier.example.com", kbClaims.Audience)
	require.Equal(t, "nonce-1", kbClaims.Nonce)
	require.Equal(t, int64(1700000000), kbClaims.IssuedAt)
	require.Equal(t, sdjwt.Digest(issuance), kbClaims.SDHash)
}

func TestParseErrors(t *testing.T) {
	_, err := sdjwt.Parse("")
	require.ErrorIs(t, err, sdjwt.ErrMalformedSDJWT)

	_, err = sdjwt.Parse("a.b.c~~")
	require.ErrorIs(t, err, sdjwt.ErrMalformedSDJWT)

	_, err = sdjwt.Parse("a.b.c~not-base64!~")
	require.ErrorIs(t, err, sdjwt.ErrMalformedDisclosure)
}

func TestDecodeDisclosure(t *testing.T) {
	t.Run("object property", func(t *testing.T) {
		// ["2GLC42sKQveCfGfryNRN9w", "given_name", "John"]
		d, err := sdjwt.DecodeDisclosure("WyIyR0xDNDJzS1F2ZUNmR2ZyeU5STjl3IiwgImdpdmVuX25hbWUiLCAiSm9obiJd")
		require.NoError(t, err)
		require.Equal(t, "2GLC42sKQveCfGfryNRN9w", d.Salt)
		require.Equal(t, "given_name", d.Key)
		require.Equal(t, "John", d.Value)
	})

	t.Run("array element", func(t *testing.T) {
		encoded, err := sdjwt.EncodeDisclosure("salt", "k", "v")
		require.NoError(t, err)
		require.NotEmpty(t, encoded.Raw)

		// ["lklxF5jMYlGTPUovMNIvCA", "US"]
		d, err := sdjwt.DecodeDisclosure("WyJsa2x4RjVqTVlsR1RQVW92TU5JdkNBIiwgIlVTIl0")
		require.NoError(t, err)
		require.Empty(t, d.Key)
		require.Equal(t, "US", d.Value)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, raw := range []string{
			"%%%",
			"eyJhIjoxfQ",   // {"a":1}
			"WzEsMiwzXQ",   // [1,2,3]
			"WyJzIiwxLDJd", // ["s",1,2]
			"WyJzIl0",      // ["s"]
		} {
			_, err := sdjwt.DecodeDisclosure(raw)
			require.ErrorIs(t, err, sdjwt.ErrMalformedDisclosure, raw)
		}
	})
}

func TestNewPresentationMissingRaw(t *testing.T) {
	_, err := sdjwt.NewPresentation("a.b.c", []sdjwt.Disclosure{{Key: "given_name", Value: "Taro"}}, "")
	require.ErrorIs(t, err, sdjwt.ErrMissingRawDisclosure)
}

func TestClaims(t *testing.T) {
	issuerJWT, disclosures := newIssuerJWT(t)

	full, err := sdjwt.Parse(issuerJWT + "~" + disclosures[0].Raw + "~" + disclosures[1].Raw + "~")
	require.NoError(t, err)

	claims, err := full.Claims()
	require.NoError(t, err)
	require.Equal(t, "Taro", claims["given_name"])
	require.EqualValues(t, 20, claims["age"])
	require.Equal(t, "https://issuer.example.com", claims["iss"])
	require.NotContains(t, claims, "_sd")
	require.NotContains(t, claims, "_sd_alg")

	partial, err := sdjwt.Parse(issuerJWT + "~" + disclosures[0].Raw + "~")
	require.NoError(t, err)

	claims, err = partial.Claims()
	require.NoError(t, err)
	require.Contains(t, claims, "given_name")
	require.NotContains(t, claims, "age")
}

func newIssuerJWT(t *testing.T) (string, []sdjwt.Disclosure) {
	t.Helper()

	name, err := sdjwt.EncodeDisclosure("salt-1", "given_name", "Taro")
	require.NoError(t, err)

	age, err := sdjwt.EncodeDisclosure("salt-2", "age", 20)
	require.NoError(t, err)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	signer, err := jwt.NewECDSASigner(key)
	require.NoError(t, err)

	issuerJWT, err := jwt.Sign(map[string]interface{}{jwt.HeaderTyp: "vc+sd-jwt"}, map[string]interface{}{
		"iss":     "https://issuer.example.com",
		"vct":     "IdentityCredential",
		"_sd_alg": "sha-256",
		"_sd":     []string{sdjwt.Digest(name.Raw), sdjwt.Digest(age.Raw)},
	}, signer)
	require.NoError(t, err)

	return issuerJWT, []sdjwt.Disclosure{*name, *age}
}
