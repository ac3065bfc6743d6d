/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

const ecKeyType = "EC"

// JWK is an elliptic curve JSON Web Key. D is set only for private keys.
type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
	D   string `json:"d,omitempty"`
}

// JWKFromPublicKey converts an ECDSA public key into a JWK.
func JWKFromPublicKey(pub *ecdsa.PublicKey) (*JWK, error) {
	if pub == nil {
		return nil, fmt.Errorf("%w: nil public key", ErrUnsupportedKey)
	}

	crv, err := CurveName(pub.Curve)
	if err != nil {
		return nil, err
	}

	size := curveSize(pub.Curve)

	return &JWK{
		Kty: ecKeyType,
		Crv: crv,
		X:   encodeCoordinate(pub.X, size),
		Y:   encodeCoordinate(pub.Y, size),
	}, nil
}

// JWKFromPrivateKey converts an ECDSA private key into a JWK carrying d.
func JWKFromPrivateKey(priv *ecdsa.PrivateKey) (*JWK, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: nil private key", ErrUnsupportedKey)
	}

	jwk, err := JWKFromPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}

	jwk.D = encodeCoordinate(priv.D, curveSize(priv.Curve))

	return jwk, nil
}

// Public returns a copy of the key without private material.
func (j *JWK) Public() *JWK {
	return &JWK{Kty: j.Kty, Crv: j.Crv, X: j.X, Y: j.Y}
}

// PublicKey decodes the JWK into an ECDSA public key and checks that the point is on the curve.
func (j *JWK) PublicKey() (*ecdsa.PublicKey, error) {
	if j.Kty != ecKeyType {
		return nil, fmt.Errorf("%w: kty %q", ErrUnsupportedKey, j.Kty)
	}

	curve, err := CurveByName(j.Crv)
	if err != nil {
		return nil, err
	}

	x, err := decodeCoordinate(j.X)
	if err != nil {
		return nil, fmt.Errorf("decode x: %w", err)
	}

	y, err := decodeCoordinate(j.Y)
	if err != nil {
		return nil, fmt.Errorf("decode y: %w", err)
	}

	if !curve.IsOnCurve(x, y) {
		return nil, errors.New("public key point is not on curve")
	}

	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// PrivateKey decodes the JWK into an ECDSA private key.
func (j *JWK) PrivateKey() (*ecdsa.PrivateKey, error) {
	if j.D == "" {
		return nil, errors.New("jwk has no private key")
	}

	pub, err := j.PublicKey()
	if err != nil {
		return nil, err
	}

	d, err := decodeCoordinate(j.D)
	if err != nil {
		return nil, fmt.Errorf("decode d: %w", err)
	}

	return &ecdsa.PrivateKey{PublicKey: *pub, D: d}, nil
}

// Thumbprint returns the RFC 7638 SHA-256 thumbprint, base64url encoded.
func (j *JWK) Thumbprint() (string, error) {
	digest, err := j.thumbprintDigest()
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(digest), nil
}

// SortedKeyThumbprint returns the SHA-256 digest of the sorted-key public JWK JSON in standard base64
// without padding. Pairwise account thumbprints persisted in history use this form.
func (j *JWK) SortedKeyThumbprint() (string, error) {
	digest, err := j.thumbprintDigest()
	if err != nil {
		return "", err
	}

	return base64.RawStdEncoding.EncodeToString(digest), nil
}

func (j *JWK) thumbprintDigest() ([]byte, error) {
	if j.Kty == "" || j.Crv == "" || j.X == "" || j.Y == "" {
		return nil, errors.New("incomplete jwk")
	}

	// encoding/json sorts map keys, which yields the canonical member order.
	canonical, err := json.Marshal(map[string]string{
		"crv": j.Crv,
		"kty": j.Kty,
		"x":   j.X,
		"y":   j.Y,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal jwk: %w", err)
	}

	digest := sha256.Sum256(canonical)

	return digest[:], nil
}

func encodeCoordinate(v *big.Int, size int) string {
	return base64.RawURLEncoding.EncodeToString(v.FillBytes(make([]byte, size)))
}

func decodeCoordinate(s string) (*big.Int, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}

	return new(big.Int).SetBytes(b), nil
}
