/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package sdjwt splits and assembles selective disclosure JWTs in the combined
// issuerJwt~disclosure~...~keyBindingJwt form.
package sdjwt

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/trustbloc/vcwallet/pkg/doc/jwt"
)

const (
	// CombinedFormatSeparator separates the issuer-signed JWT, the disclosures and the key binding JWT.
	CombinedFormatSeparator = "~"

	// KeyBindingJWTType is the typ header of a key binding JWT.
	KeyBindingJWTType = "kb+jwt"

	sdKey            = "_sd"
	sdAlgKey         = "_sd_alg"
	arrayElementKey  = "..."
	objectDisclosure = 3
	arrayDisclosure  = 2
)

var (
	ErrMalformedSDJWT       = errors.New("malformed sd-jwt")
	ErrMalformedDisclosure  = errors.New("malformed disclosure")
	ErrMissingRawDisclosure = errors.New("disclosure has no raw segment")
)

// Disclosure is one decoded disclosure segment. Raw is the original base64url segment and is required to
// rebuild a presentation.
type Disclosure struct {
	Raw          string      `json:"raw"`
	Salt         string      `json:"salt"`
	Key          string      `json:"key"`
	Value        interface{} `json:"value"`
	LocalizedKey string      `json:"localizedKey,omitempty"`
}

// SDJWT is a parsed SD-JWT.
type SDJWT struct {
	IssuerSignedJWT string
	Disclosures     []Disclosure
	KeyBindingJWT   string

	trailingSeparator bool
}

// Parse splits an SD-JWT into the issuer-signed JWT, its disclosures and an optional key binding JWT.
// The last segment is taken as the key binding JWT when it is a compact JWS.
func Parse(combined string) (*SDJWT, error) {
	parts := strings.Split(combined, CombinedFormatSeparator)

	if parts[0] == "" {
		return nil, fmt.Errorf("%w: empty issuer-signed jwt", ErrMalformedSDJWT)
	}

	result := &SDJWT{IssuerSignedJWT: parts[0]}

	rest := parts[1:]

	if len(rest) > 0 {
		last := rest[len(rest)-1]

		switch {
		case last == "":
			result.trailingSeparator = true
			rest = rest[:len(rest)-1]
		case strings.Contains(last, "."):
			result.KeyBindingJWT = last
			rest = rest[:len(rest)-1]
		}
	}

	for i, raw := range rest {
		if raw == "" {
			return nil, fmt.Errorf("%w: empty disclosure at position %d", ErrMalformedSDJWT, i)
		}

		d, err := DecodeDisclosure(raw)
		if err != nil {
			return nil, err
		}

		result.Disclosures = append(result.Disclosures, *d)
	}

	return result, nil
}

// Serialize rebuilds the combined form. For a parsed value the output equals the parser input.
func (s *SDJWT) Serialize() string {
	var b strings.Builder

	b.WriteString(s.IssuerSignedJWT)

	for _, d := range s.Disclosures {
		b.WriteString(CombinedFormatSeparator)
		b.WriteString(d.Raw)
	}

	switch {
	case s.KeyBindingJWT != "":
		b.WriteString(CombinedFormatSeparator)
		b.WriteString(s.KeyBindingJWT)
	case s.trailingSeparator:
		b.WriteString(CombinedFormatSeparator)
	}

	return b.String()
}

// KeyedDisclosures returns the object-property disclosures indexed by claim name.
func (s *SDJWT) KeyedDisclosures() map[string]Disclosure {
	return lo.SliceToMap(
		lo.Filter(s.Disclosures, func(d Disclosure, _ int) bool { return d.Key != "" }),
		func(d Disclosure) (string, Disclosure) { return d.Key, d },
	)
}

// DecodeDisclosure decodes a base64url disclosure into (salt, key, value). Array element disclosures
// ([salt, value]) are returned with an empty key.
func DecodeDisclosure(raw string) (*Disclosure, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrMalformedDisclosure, err)
	}

	var arr []interface{}

	if err = json.Unmarshal(decoded, &arr); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", ErrMalformedDisclosure, err)
	}

	salt, ok := firstString(arr)
	if !ok {
		return nil, fmt.Errorf("%w: salt must be a string", ErrMalformedDisclosure)
	}

	switch len(arr) {
	case objectDisclosure:
		key, isString := arr[1].(string)
		if !isString {
			return nil, fmt.Errorf("%w: claim name must be a string", ErrMalformedDisclosure)
		}

		return &Disclosure{Raw: raw, Salt: salt, Key: key, Value: arr[2]}, nil
	case arrayDisclosure:
		return &Disclosure{Raw: raw, Salt: salt, Value: arr[1]}, nil
	default:
		return nil, fmt.Errorf("%w: expected 2 or 3 elements, got %d", ErrMalformedDisclosure, len(arr))
	}
}

// EncodeDisclosure creates a disclosure for an object property.
func EncodeDisclosure(salt, key string, value interface{}) (*Disclosure, error) {
	b, err := json.Marshal([]interface{}{salt, key, value})
	if err != nil {
		return nil, fmt.Errorf("marshal disclosure: %w", err)
	}

	return &Disclosure{
		Raw:   base64.RawURLEncoding.EncodeToString(b),
		Salt:  salt,
		Key:   key,
		Value: value,
	}, nil
}

// Digest returns the SHA-256 digest of a raw disclosure as it appears in _sd arrays.
func Digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))

	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// NewPresentation serializes issuerJWT with the selected disclosures and an optional key binding JWT.
// Every disclosure must carry its raw segment.
func NewPresentation(issuerJWT string, disclosures []Disclosure, keyBindingJWT string) (string, error) {
	for _, d := range disclosures {
		if d.Raw == "" {
			return "", fmt.Errorf("%w: %s", ErrMissingRawDisclosure, d.Key)
		}
	}

	p := &SDJWT{
		IssuerSignedJWT:   issuerJWT,
		Disclosures:       disclosures,
		KeyBindingJWT:     keyBindingJWT,
		trailingSeparator: true,
	}

	return p.Serialize(), nil
}

// KeyBindingClaims is the payload of a key binding JWT.
type KeyBindingClaims struct {
	IssuedAt int64  `json:"iat"`
	Audience string `json:"aud"`
	Nonce    string `json:"nonce"`
	SDHash   string `json:"sd_hash"`
}

// CreateKeyBinding signs a key binding JWT over the issuer-signed JWT and the selected disclosures.
func CreateKeyBinding(
	signer jwt.Signer,
	issuerJWT string,
	disclosures []Disclosure,
	aud, nonce string,
	iat time.Time,
) (string, error) {
	withoutKB, err := NewPresentation(issuerJWT, disclosures, "")
	if err != nil {
		return "", err
	}

	claims := &KeyBindingClaims{
		IssuedAt: iat.Unix(),
		Audience: aud,
		Nonce:    nonce,
		SDHash:   Digest(withoutKB),
	}

	return jwt.Sign(map[string]interface{}{jwt.HeaderTyp: KeyBindingJWTType}, claims, signer)
}

// Claims decodes the issuer-signed payload and replaces _sd digests with the disclosed values.
// Undisclosed claims are omitted.
func (s *SDJWT) Claims() (map[string]interface{}, error) {
	var payload map[string]interface{}

	if err := jwt.Decode(s.IssuerSignedJWT, &payload); err != nil {
		return nil, fmt.Errorf("decode issuer-signed jwt: %w", err)
	}

	byDigest := make(map[string]Disclosure, len(s.Disclosures))
	for _, d := range s.Disclosures {
		byDigest[Digest(d.Raw)] = d
	}

	resolved, ok := resolve(payload, byDigest).(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: payload is not an object", ErrMalformedSDJWT)
	}

	delete(resolved, sdAlgKey)

	return resolved, nil
}

func resolve(v interface{}, byDigest map[string]Disclosure) interface{} {
	switch node := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(node))

		for k, child := range node {
			if k == sdKey {
				continue
			}

			out[k] = resolve(child, byDigest)
		}

		digests, _ := node[sdKey].([]interface{}) //nolint:errcheck

		for _, digest := range digests {
			ds, isString := digest.(string)
			if !isString {
				continue
			}

			if d, found := byDigest[ds]; found && d.Key != "" {
				out[d.Key] = resolve(d.Value, byDigest)
			}
		}

		return out
	case []interface{}:
		out := make([]interface{}, 0, len(node))

		for _, el := range node {
			if ref, isRef := el.(map[string]interface{}); isRef && len(ref) == 1 {
				if ds, hasDigest := ref[arrayElementKey].(string); hasDigest {
					if d, found := byDigest[ds]; found {
						out = append(out, resolve(d.Value, byDigest))
					}

					continue
				}
			}

			out = append(out, resolve(el, byDigest))
		}

		return out
	default:
		return v
	}
}

func firstString(arr []interface{}) (string, bool) {
	if len(arr) == 0 {
		return "", false
	}

	s, ok := arr[0].(string)

	return s, ok
}
