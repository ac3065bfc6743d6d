/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	HeaderAlg = "alg"
	HeaderTyp = "typ"
	HeaderKid = "kid"
	HeaderJWK = "jwk"
	HeaderX5C = "x5c"
	HeaderX5U = "x5u"

	compactParts = 3
)

var ErrMalformedToken = errors.New("malformed jwt")

// Token is a parsed, not yet verified, compact JWS.
type Token struct {
	Raw          string
	Header       map[string]interface{}
	Payload      []byte
	SigningInput string
	Signature    []byte
}

// Sign builds base64url(header).base64url(payload) and signs it with signer. The alg header is always
// taken from the signer. payload may be a map or any JSON-marshalable struct.
func Sign(header map[string]interface{}, payload interface{}, signer Signer) (string, error) {
	if signer == nil {
		return "", errors.New("signer is not configured")
	}

	h := make(map[string]interface{}, len(header)+1)
	for k, v := range header {
		h[k] = v
	}

	h[HeaderAlg] = signer.Algorithm()

	headerBytes, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("marshal header: %w", err)
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	signingInput := base64.RawURLEncoding.EncodeToString(headerBytes) + "." +
		base64.RawURLEncoding.EncodeToString(payloadBytes)

	sig, err := signer.Sign([]byte(signingInput))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}

	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// Parse splits and decodes a compact JWS without verifying it.
func Parse(token string) (*Token, error) {
	parts := strings.Split(token, ".")
	if len(parts) != compactParts {
		return nil, fmt.Errorf("%w: expected %d parts, got %d", ErrMalformedToken, compactParts, len(parts))
	}

	headerBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: decode header: %v", ErrMalformedToken, err)
	}

	var header map[string]interface{}

	if err = json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("%w: unmarshal header: %v", ErrMalformedToken, err)
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", ErrMalformedToken, err)
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: decode signature: %v", ErrMalformedToken, err)
	}

	return &Token{
		Raw:          token,
		Header:       header,
		Payload:      payload,
		SigningInput: parts[0] + "." + parts[1],
		Signature:    sig,
	}, nil
}

// Decode parses token and unmarshals its payload into v without verifying the signature.
func Decode(token string, v interface{}) error {
	t, err := Parse(token)
	if err != nil {
		return err
	}

	return t.DecodePayload(v)
}

// Verify parses token and verifies its signature with pub.
func Verify(token string, pub crypto.PublicKey) (*Token, error) {
	t, err := Parse(token)
	if err != nil {
		return nil, err
	}

	if err = t.VerifySignature(pub); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Token) DecodePayload(v interface{}) error {
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return fmt.Errorf("%w: unmarshal payload: %v", ErrMalformedToken, err)
	}

	return nil
}

func (t *Token) Alg() string {
	return t.headerString(HeaderAlg)
}

func (t *Token) Kid() string {
	return t.headerString(HeaderKid)
}

func (t *Token) Typ() string {
	return t.headerString(HeaderTyp)
}

func (t *Token) headerString(name string) string {
	s, _ := t.Header[name].(string) //nolint:errcheck

	return s
}

// VerifySignature checks the signature against pub. The declared alg must agree with the key type and curve;
// every mismatch is reported as ErrVerificationFailed.
func (t *Token) VerifySignature(pub crypto.PublicKey) error {
	alg := t.Alg()

	switch key := pub.(type) {
	case *rsa.PublicKey:
		return t.verifyRSA(alg, key)
	case *ecdsa.PublicKey:
		return t.verifyECDSA(alg, key)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedKey, pub)
	}
}

func (t *Token) verifyRSA(alg string, key *rsa.PublicKey) error {
	if alg != AlgRS256 && alg != AlgRS384 && alg != AlgRS512 {
		return fmt.Errorf("%w: alg %q does not match RSA key", ErrVerificationFailed, alg)
	}

	h, err := hashFor(alg)
	if err != nil {
		return err
	}

	digest, err := hashData(alg, []byte(t.SigningInput))
	if err != nil {
		return err
	}

	if err = rsa.VerifyPKCS1v15(key, h, digest, t.Signature); err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	return nil
}

func (t *Token) verifyECDSA(alg string, key *ecdsa.PublicKey) error {
	expectedAlg, err := algorithmForCurve(key.Curve)
	if err != nil {
		return err
	}

	if alg != expectedAlg {
		return fmt.Errorf("%w: alg %q does not match key curve", ErrVerificationFailed, alg)
	}

	if len(t.Signature) != 2*curveSize(key.Curve) {
		return fmt.Errorf("%w: invalid signature length", ErrVerificationFailed)
	}

	der, err := RawToDER(t.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	digest, err := hashData(alg, []byte(t.SigningInput))
	if err != nil {
		return err
	}

	if !ecdsa.VerifyASN1(key, digest, der) {
		return ErrVerificationFailed
	}

	return nil
}
