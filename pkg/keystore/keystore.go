/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keystore

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/trustbloc/vcwallet/pkg/doc/jwt"
)

// Alias names a key held by a KeyStore.
type Alias string

const (
	// KeyBinding is the stable holder key used for SD-JWT key binding and identified presentations.
	KeyBinding Alias = "bindingKey"
	// JWTVPJSON is the default key for jwt_vp_json presentations.
	JWTVPJSON Alias = "jwtVpJsonKey"
)

var (
	ErrKeyNotFound   = errors.New("key not found")
	ErrCurveMismatch = errors.New("key curve mismatch")
)

// KeyStore holds the holder's non-derived signing keys.
type KeyStore interface {
	Signer(ctx context.Context, alias Alias) (jwt.Signer, error)
	PublicJWK(ctx context.Context, alias Alias) (*jwt.JWK, error)
	Generate(ctx context.Context, alias Alias, curve string) (*jwt.JWK, error)
}

// OneTime returns a fresh alias for a key that signs a single presentation.
func OneTime() Alias {
	return Alias("onetime-" + uuid.NewString())
}

// Ensure generates a key under alias unless one already exists and returns its public JWK.
// An existing key on a different curve fails with ErrCurveMismatch.
func Ensure(ctx context.Context, ks KeyStore, alias Alias, curve string) (*jwt.JWK, error) {
	key, err := ks.PublicJWK(ctx, alias)
	if err == nil {
		if key.Crv != curve {
			return nil, fmt.Errorf("%w: %s is %s, want %s", ErrCurveMismatch, alias, key.Crv, curve)
		}

		return key, nil
	}

	if !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}

	return ks.Generate(ctx, alias, curve)
}

// Local is an in-memory KeyStore.
type Local struct {
	mu   sync.RWMutex
	keys map[Alias]*ecdsa.PrivateKey
}

// NewLocal returns an empty in-memory key store.
func NewLocal() *Local {
	return &Local{keys: map[Alias]*ecdsa.PrivateKey{}}
}

// Import stores key under alias, replacing any existing key.
func (l *Local) Import(alias Alias, key *ecdsa.PrivateKey) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.keys[alias] = key
}

func (l *Local) Signer(_ context.Context, alias Alias) (jwt.Signer, error) {
	key, err := l.get(alias)
	if err != nil {
		return nil, err
	}

	return jwt.NewECDSASigner(key)
}

func (l *Local) PublicJWK(_ context.Context, alias Alias) (*jwt.JWK, error) {
	key, err := l.get(alias)
	if err != nil {
		return nil, err
	}

	return jwt.JWKFromPublicKey(&key.PublicKey)
}

func (l *Local) Generate(_ context.Context, alias Alias, curve string) (*jwt.JWK, error) {
	c, err := jwt.CurveByName(curve)
	if err != nil {
		return nil, err
	}

	key, err := ecdsa.GenerateKey(c, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key %s: %w", alias, err)
	}

	l.Import(alias, key)

	return jwt.JWKFromPublicKey(&key.PublicKey)
}

func (l *Local) get(alias Alias) (*ecdsa.PrivateKey, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	key, ok := l.keys[alias]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, alias)
	}

	return key, nil
}
