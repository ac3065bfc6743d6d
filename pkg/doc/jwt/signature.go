/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	_ "crypto/sha256" // register SHA-256 for crypto.Hash
	_ "crypto/sha512" // register SHA-384/512 for crypto.Hash

	"github.com/btcsuite/btcd/btcec"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

const (
	AlgES256  = "ES256"
	AlgES384  = "ES384"
	AlgES512  = "ES512"
	AlgES256K = "ES256K"
	AlgRS256  = "RS256"
	AlgRS384  = "RS384"
	AlgRS512  = "RS512"

	CurveP256      = "P-256"
	CurveP384      = "P-384"
	CurveP521      = "P-521"
	CurveSecp256k1 = "secp256k1"
)

var (
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrUnsupportedKey       = errors.New("unsupported key")
	ErrVerificationFailed   = errors.New("signature verification failed")
)

// Signer produces JWS signatures. Sign returns the signature in its JWS form (raw r||s for ECDSA).
type Signer interface {
	Algorithm() string
	Sign(data []byte) ([]byte, error)
}

// ECDSASigner signs with an in-memory ECDSA private key.
type ECDSASigner struct {
	key *ecdsa.PrivateKey
	alg string
}

// NewECDSASigner returns a signer for key. The algorithm is derived from the key curve.
func NewECDSASigner(key *ecdsa.PrivateKey) (*ECDSASigner, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil private key", ErrUnsupportedKey)
	}

	alg, err := algorithmForCurve(key.Curve)
	if err != nil {
		return nil, err
	}

	return &ECDSASigner{key: key, alg: alg}, nil
}

func (s *ECDSASigner) Algorithm() string {
	return s.alg
}

func (s *ECDSASigner) Sign(data []byte) ([]byte, error) {
	digest, err := hashData(s.alg, data)
	if err != nil {
		return nil, err
	}

	der, err := ecdsa.SignASN1(rand.Reader, s.key, digest)
	if err != nil {
		return nil, fmt.Errorf("ecdsa sign: %w", err)
	}

	return DERToRaw(der, curveSize(s.key.Curve))
}

// DERToRaw converts an ASN.1 DER ECDSA signature into the fixed-size r||s form used by JWS.
func DERToRaw(der []byte, size int) ([]byte, error) {
	var (
		r, s  = new(big.Int), new(big.Int)
		inner cryptobyte.String
	)

	input := cryptobyte.String(der)

	if !input.ReadASN1(&inner, asn1.SEQUENCE) || !input.Empty() ||
		!inner.ReadASN1Integer(r) || !inner.ReadASN1Integer(s) || !inner.Empty() {
		return nil, errors.New("invalid DER signature")
	}

	if r.Sign() < 0 || s.Sign() < 0 || (r.BitLen()+7)/8 > size || (s.BitLen()+7)/8 > size {
		return nil, errors.New("signature component does not fit curve size")
	}

	raw := make([]byte, 2*size)
	r.FillBytes(raw[:size])
	s.FillBytes(raw[size:])

	return raw, nil
}

// RawToDER converts a JWS r||s ECDSA signature into ASN.1 DER.
func RawToDER(raw []byte) ([]byte, error) {
	if len(raw) == 0 || len(raw)%2 != 0 {
		return nil, errors.New("invalid raw signature length")
	}

	half := len(raw) / 2
	r := new(big.Int).SetBytes(raw[:half])
	s := new(big.Int).SetBytes(raw[half:])

	var b cryptobyte.Builder

	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(r)
		b.AddASN1BigInt(s)
	})

	return b.Bytes()
}

func hashFor(alg string) (crypto.Hash, error) {
	switch alg {
	case AlgES256, AlgES256K, AlgRS256:
		return crypto.SHA256, nil
	case AlgES384, AlgRS384:
		return crypto.SHA384, nil
	case AlgES512, AlgRS512:
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
}

func hashData(alg string, data []byte) ([]byte, error) {
	h, err := hashFor(alg)
	if err != nil {
		return nil, err
	}

	hasher := h.New()
	hasher.Write(data)

	return hasher.Sum(nil), nil
}

func algorithmForCurve(c elliptic.Curve) (string, error) {
	switch c.Params() {
	case elliptic.P256().Params():
		return AlgES256, nil
	case elliptic.P384().Params():
		return AlgES384, nil
	case elliptic.P521().Params():
		return AlgES512, nil
	case btcec.S256().Params():
		return AlgES256K, nil
	default:
		return "", fmt.Errorf("%w: curve %s", ErrUnsupportedKey, c.Params().Name)
	}
}

// CurveName returns the JWK crv name of c.
func CurveName(c elliptic.Curve) (string, error) {
	switch c.Params() {
	case elliptic.P256().Params():
		return CurveP256, nil
	case elliptic.P384().Params():
		return CurveP384, nil
	case elliptic.P521().Params():
		return CurveP521, nil
	case btcec.S256().Params():
		return CurveSecp256k1, nil
	default:
		return "", fmt.Errorf("%w: curve %s", ErrUnsupportedKey, c.Params().Name)
	}
}

// CurveByName returns the curve for a JWK crv name.
func CurveByName(name string) (elliptic.Curve, error) {
	switch name {
	case CurveP256:
		return elliptic.P256(), nil
	case CurveP384:
		return elliptic.P384(), nil
	case CurveP521:
		return elliptic.P521(), nil
	case CurveSecp256k1:
		return btcec.S256(), nil
	default:
		return nil, fmt.Errorf("%w: crv %q", ErrUnsupportedKey, name)
	}
}

func curveSize(c elliptic.Curve) int {
	return (c.Params().BitSize + 7) / 8
}
