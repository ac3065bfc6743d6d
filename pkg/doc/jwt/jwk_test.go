/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcd/btcec"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/vcwallet/pkg/doc/jwt"
)

func TestJWK(t *testing.T) {
	t.Run("secp256k1 round trip", func(t *testing.T) {
		key, err := ecdsa.GenerateKey(btcec.S256(), rand.Reader)
		require.NoError(t, err)

		jwk, err := jwt.JWKFromPrivateKey(key)
		require.NoError(t, err)
		require.Equal(t, "EC", jwk.Kty)
		require.Equal(t, jwt.CurveSecp256k1, jwk.Crv)
		require.NotEmpty(t, jwk.D)

		priv, err := jwk.PrivateKey()
		require.NoError(t, err)
		require.Zero(t, priv.D.Cmp(key.D))
		require.Zero(t, priv.X.Cmp(key.X))

		pub, err := jwk.Public().PublicKey()
		require.NoError(t, err)
		require.Zero(t, pub.Y.Cmp(key.Y))

		_, err = jwk.Public().PrivateKey()
		require.Error(t, err)
	})

	t.Run("thumbprints", func(t *testing.T) {
		// RFC 7638 canonical member order is crv, kty, x, y.
		jwk := &jwt.JWK{
			Kty: "EC",
			Crv: "P-256",
			X:   "f83OJ3D2xF1Bg8vub9tLe1gHMzV76e8Tus9uPHvRVEU",
			Y:   "x_FEzRu9m36HLN_tue659LNpXW6pCyStikYjKIWI5a0",
		}

		canonical := `{"crv":"P-256","kty":"EC","x":"f83OJ3D2xF1Bg8vub9tLe1gHMzV76e8Tus9uPHvRVEU",` +
			`"y":"x_FEzRu9m36HLN_tue659LNpXW6pCyStikYjKIWI5a0"}`
		digest := sha256.Sum256([]byte(canonical))

		thumbprint, err := jwk.Thumbprint()
		require.NoError(t, err)
		require.Equal(t, base64.RawURLEncoding.EncodeToString(digest[:]), thumbprint)

		sorted, err := jwk.SortedKeyThumbprint()
		require.NoError(t, err)
		require.Equal(t, base64.RawStdEncoding.EncodeToString(digest[:]), sorted)

		withPrivate := *jwk
		withPrivate.D = "ignored"

		same, err := withPrivate.Thumbprint()
		require.NoError(t, err)
		require.Equal(t, thumbprint, same)

		_, err = (&jwt.JWK{Kty: "EC"}).Thumbprint()
		require.Error(t, err)
	})

	t.Run("json encoding omits d for public keys", func(t *testing.T) {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)

		jwk, err := jwt.JWKFromPublicKey(&key.PublicKey)
		require.NoError(t, err)

		b, err := json.Marshal(jwk)
		require.NoError(t, err)
		require.NotContains(t, string(b), `"d"`)
	})

	t.Run("invalid point", func(t *testing.T) {
		jwk := &jwt.JWK{Kty: "EC", Crv: "P-256", X: "AQ", Y: "Ag"}

		_, err := jwk.PublicKey()
		require.Error(t, err)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := (&jwt.JWK{Kty: "RSA"}).PublicKey()
		require.ErrorIs(t, err, jwt.ErrUnsupportedKey)

		_, err = (&jwt.JWK{Kty: "EC", Crv: "Ed25519"}).PublicKey()
		require.ErrorIs(t, err, jwt.ErrUnsupportedKey)
	})
}
