/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package storage

import (
	"context"
	"time"

	"github.com/trustbloc/vcwallet/pkg/account"
	"github.com/trustbloc/vcwallet/pkg/walleterr"
)

// ErrDataNotFound is returned by stores when the requested record does not exist.
var ErrDataNotFound = walleterr.ErrDataNotFound

// Provider opens the stores of one wallet.
type Provider interface {
	OpenCredentialStore() (CredentialStore, error)
	OpenHistoryStore() (HistoryStore, error)
	Close() error
}

// CredentialStore keeps the credentials the holder received.
type CredentialStore interface {
	GetAll(ctx context.Context) ([]*Credential, error)
	Get(ctx context.Context, id string) (*Credential, error)
	// Save inserts the credential or replaces the one with the same ID.
	Save(ctx context.Context, cred *Credential) error
	Delete(ctx context.Context, id string) error
}

// HistoryStore keeps what was shared with relying parties.
// An empty rp on the list operations returns the records of every relying party.
type HistoryStore interface {
	SaveIDTokenSharing(ctx context.Context, rec *IDTokenSharing) error
	SaveCredentialSharing(ctx context.Context, rec *CredentialSharing) error
	IDTokenSharings(ctx context.Context, rp string) ([]*IDTokenSharing, error)
	CredentialSharings(ctx context.Context, rp string) ([]*CredentialSharing, error)
}

// Credential is a stored credential in its original encoding.
type Credential struct {
	ID         string    `json:"id"`
	Format     string    `json:"format"`
	Types      []string  `json:"types,omitempty"`
	Raw        string    `json:"raw"`
	Issuer     string    `json:"issuer,omitempty"`
	IssuerName string    `json:"issuerName,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// IDTokenSharing records that an ID token of an account was sent to a relying party.
type IDTokenSharing struct {
	RP           string          `json:"rp"`
	RPName       string          `json:"rpName,omitempty"`
	AccountIndex int             `json:"accountIndex"`
	UseCase      account.UseCase `json:"useCase"`
	Thumbprint   string          `json:"thumbprint"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// AccountRecord returns the account the record was made for.
func (r *IDTokenSharing) AccountRecord() account.Record {
	return account.Record{Index: r.AccountIndex, RP: r.RP, UseCase: r.UseCase}
}

// SharedClaim is one claim revealed to a relying party.
type SharedClaim struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// CredentialSharing records that a credential was presented to a relying party.
type CredentialSharing struct {
	RP           string        `json:"rp"`
	RPName       string        `json:"rpName,omitempty"`
	LogoURI      string        `json:"logoUri,omitempty"`
	PolicyURI    string        `json:"policyUri,omitempty"`
	AccountIndex int           `json:"accountIndex"`
	CredentialID string        `json:"credentialId"`
	Format       string        `json:"format"`
	Types        []string      `json:"types,omitempty"`
	Purpose      string        `json:"purpose,omitempty"`
	Claims       []SharedClaim `json:"claims,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// AccountRecords converts ID-token history into the records an account manager loads.
func AccountRecords(history []*IDTokenSharing) []account.Record {
	records := make([]account.Record, 0, len(history))

	for _, h := range history {
		records = append(records, h.AccountRecord())
	}

	return records
}
