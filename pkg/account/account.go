/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package account

import (
	"github.com/trustbloc/vcwallet/pkg/doc/jwt"
)

// UseCase is the role an account plays towards a relying party.
type UseCase string

const (
	DefaultAnonymous    UseCase = "defaultAnonymousAccount"
	DefaultIdentified   UseCase = "defaultIdentifiedAccount"
	UserCreatedAlterEgo UseCase = "userCreatedAlterEgo"

	subjectPrefix = "urn:ietf:params:oauth:jwk-thumbprint:sha-256:"
)

// Valid reports whether u is a known use case.
func (u UseCase) Valid() bool {
	switch u {
	case DefaultAnonymous, DefaultIdentified, UserCreatedAlterEgo:
		return true
	default:
		return false
	}
}

// Record is the persisted part of an account: enough to re-derive it.
type Record struct {
	Index   int
	RP      string
	UseCase UseCase
}

// Account is a pairwise key pair bound to a relying party.
type Account struct {
	Index      int
	PublicJWK  *jwt.JWK
	PrivateJWK *jwt.JWK `json:"-"`
	Thumbprint string
	RP         string
	UseCase    UseCase
}

// Record strips the key material.
func (a *Account) Record() Record {
	return Record{Index: a.Index, RP: a.RP, UseCase: a.UseCase}
}

// Signer returns an ES256K signer for the account key.
func (a *Account) Signer() (jwt.Signer, error) {
	priv, err := a.PrivateJWK.PrivateKey()
	if err != nil {
		return nil, err
	}

	return jwt.NewECDSASigner(priv)
}

// Subject returns the self-issued subject identifier of the account.
func (a *Account) Subject() (string, error) {
	thumbprint, err := a.PublicJWK.Thumbprint()
	if err != nil {
		return "", err
	}

	return subjectPrefix + thumbprint, nil
}
