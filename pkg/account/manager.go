/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package account

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/vcwallet/internal/logfields"
	"github.com/trustbloc/vcwallet/pkg/doc/jwt"
)

var logger = log.New("pairwise-account")

var ErrAccountNotFound = errors.New("account not found")

// Manager derives pairwise accounts and tracks the accounts seen in sharing history.
// All indices are allocated from one counter shared by every relying party.
type Manager struct {
	mu       sync.Mutex
	keyring  *Keyring
	accounts []*Account
}

// NewManager returns a manager with no known accounts.
func NewManager(keyring *Keyring) *Manager {
	return &Manager{keyring: keyring}
}

// Load replaces the known accounts with those derived from records.
// Records with an unknown use case are skipped.
func (m *Manager) Load(records []Record) error {
	accounts := make([]*Account, 0, len(records))

	for _, r := range records {
		if !r.UseCase.Valid() {
			logger.Warn("skipping account record with unknown use case",
				logfields.WithUseCase(string(r.UseCase)), logfields.WithAccountIndex(r.Index))

			continue
		}

		a, err := m.IndexToAccount(r.Index, r.RP, r.UseCase)
		if err != nil {
			return err
		}

		accounts = append(accounts, a)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts = accounts

	return nil
}

// Accounts returns the known accounts.
func (m *Manager) Accounts() []*Account {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*Account(nil), m.accounts...)
}

// Add appends accounts to the known list.
func (m *Manager) Add(accounts ...*Account) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts = append(m.accounts, accounts...)
}

// IndexToAccount derives the account at index. It is deterministic and does not change the known list.
func (m *Manager) IndexToAccount(index int, rp string, useCase UseCase) (*Account, error) {
	priv, err := m.keyring.PrivateKey(index)
	if err != nil {
		return nil, err
	}

	privateJWK, err := jwt.JWKFromPrivateKey(priv)
	if err != nil {
		return nil, err
	}

	publicJWK := privateJWK.Public()

	thumbprint, err := publicJWK.SortedKeyThumbprint()
	if err != nil {
		return nil, err
	}

	return &Account{
		Index:      index,
		PublicJWK:  publicJWK,
		PrivateJWK: privateJWK,
		Thumbprint: thumbprint,
		RP:         rp,
		UseCase:    useCase,
	}, nil
}

// NextAccount derives the account after the highest known index. It does not add it to the known list.
func (m *Manager) NextAccount(rp string, useCase UseCase) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.nextAccount(rp, useCase)
}

func (m *Manager) nextAccount(rp string, useCase UseCase) (*Account, error) {
	latest := -1

	for _, a := range m.accounts {
		if a.Index > latest {
			latest = a.Index
		}
	}

	return m.IndexToAccount(latest+1, rp, useCase)
}

// GetAccounts returns the distinct known accounts of (rp, useCase), highest index first.
func (m *Manager) GetAccounts(rp string, useCase UseCase) []*Account {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.getAccounts(rp, useCase)
}

func (m *Manager) getAccounts(rp string, useCase UseCase) []*Account {
	matching := lo.UniqBy(
		lo.Filter(m.accounts, func(a *Account, _ int) bool { return a.RP == rp && a.UseCase == useCase }),
		func(a *Account) Record { return a.Record() },
	)

	sort.SliceStable(matching, func(i, j int) bool { return matching[i].Index > matching[j].Index })

	return matching
}

// DefaultAccount selects the account to present to rp.
// An anonymous account is always a fresh one. Any other use case reuses the single known account,
// mints one when none is known, and takes the most recent when several are known.
// Minted accounts are added to the known list.
func (m *Manager) DefaultAccount(rp string, useCase UseCase) (*Account, error) {
	if !useCase.Valid() {
		return nil, fmt.Errorf("unknown account use case %q", useCase)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if useCase != DefaultAnonymous {
		candidates := m.getAccounts(rp, useCase)

		switch len(candidates) {
		case 0:
		case 1:
			return candidates[0], nil
		default:
			for _, c := range candidates {
				logger.Warn("multiple default accounts found for relying party",
					logfields.WithRelyingParty(rp), logfields.WithUseCase(string(useCase)),
					logfields.WithAccountIndex(c.Index))
			}

			return candidates[0], nil
		}
	}

	a, err := m.nextAccount(rp, useCase)
	if err != nil {
		return nil, err
	}

	m.accounts = append(m.accounts, a)

	logger.Debug("account minted", logfields.WithRelyingParty(rp), logfields.WithUseCase(string(useCase)),
		logfields.WithAccountIndex(a.Index))

	return a, nil
}

// Find returns the known account of rp with the given index.
func (m *Manager) Find(rp string, index int) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := lo.Find(m.accounts, func(a *Account) bool { return a.RP == rp && a.Index == index })
	if !ok {
		return nil, fmt.Errorf("%w: rp %s index %d", ErrAccountNotFound, rp, index)
	}

	return a, nil
}
