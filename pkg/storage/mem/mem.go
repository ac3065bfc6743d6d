/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mem

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/trustbloc/vcwallet/pkg/storage"
)

// Provider keeps credentials and histories in memory.
type Provider struct {
	mu                 sync.RWMutex
	credentials        []*storage.Credential
	idTokenSharings    []*storage.IDTokenSharing
	credentialSharings []*storage.CredentialSharing
}

// NewProvider returns an empty provider.
func NewProvider() *Provider {
	return &Provider{}
}

func (p *Provider) OpenCredentialStore() (storage.CredentialStore, error) {
	return p, nil
}

func (p *Provider) OpenHistoryStore() (storage.HistoryStore, error) {
	return p, nil
}

func (p *Provider) Close() error {
	return nil
}

func (p *Provider) GetAll(_ context.Context) ([]*storage.Credential, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return lo.Map(p.credentials, func(c *storage.Credential, _ int) *storage.Credential {
		return copyCredential(c)
	}), nil
}

func (p *Provider) Get(_ context.Context, id string) (*storage.Credential, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	cred, ok := lo.Find(p.credentials, func(c *storage.Credential) bool { return c.ID == id })
	if !ok {
		return nil, fmt.Errorf("credential %s: %w", id, storage.ErrDataNotFound)
	}

	return copyCredential(cred), nil
}

func (p *Provider) Save(_ context.Context, cred *storage.Credential) error {
	if cred == nil || cred.ID == "" {
		return fmt.Errorf("save credential: missing id")
	}

	stored := copyCredential(cred)

	p.mu.Lock()
	defer p.mu.Unlock()

	_, i, ok := lo.FindIndexOf(p.credentials, func(c *storage.Credential) bool { return c.ID == cred.ID })
	if ok {
		p.credentials[i] = stored

		return nil
	}

	p.credentials = append(p.credentials, stored)

	return nil
}

func (p *Provider) Delete(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, i, ok := lo.FindIndexOf(p.credentials, func(c *storage.Credential) bool { return c.ID == id })
	if !ok {
		return fmt.Errorf("credential %s: %w", id, storage.ErrDataNotFound)
	}

	p.credentials = append(p.credentials[:i], p.credentials[i+1:]...)

	return nil
}

func (p *Provider) SaveIDTokenSharing(_ context.Context, rec *storage.IDTokenSharing) error {
	if rec == nil {
		return fmt.Errorf("save id token sharing: missing record")
	}

	stored := *rec

	p.mu.Lock()
	defer p.mu.Unlock()

	p.idTokenSharings = append(p.idTokenSharings, &stored)

	return nil
}

func (p *Provider) SaveCredentialSharing(_ context.Context, rec *storage.CredentialSharing) error {
	if rec == nil {
		return fmt.Errorf("save credential sharing: missing record")
	}

	stored := copyCredentialSharing(rec)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.credentialSharings = append(p.credentialSharings, stored)

	return nil
}

func (p *Provider) IDTokenSharings(_ context.Context, rp string) ([]*storage.IDTokenSharing, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return lo.FilterMap(p.idTokenSharings, func(r *storage.IDTokenSharing, _ int) (*storage.IDTokenSharing, bool) {
		c := *r

		return &c, rp == "" || r.RP == rp
	}), nil
}

func (p *Provider) CredentialSharings(_ context.Context, rp string) ([]*storage.CredentialSharing, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return lo.FilterMap(p.credentialSharings, func(r *storage.CredentialSharing, _ int) (*storage.CredentialSharing, bool) {
		return copyCredentialSharing(r), rp == "" || r.RP == rp
	}), nil
}

func copyCredential(c *storage.Credential) *storage.Credential {
	out := *c
	out.Types = append([]string(nil), c.Types...)

	return &out
}

func copyCredentialSharing(r *storage.CredentialSharing) *storage.CredentialSharing {
	out := *r
	out.Types = append([]string(nil), r.Types...)
	out.Claims = append([]storage.SharedClaim(nil), r.Claims...)

	return &out
}

var _ storage.Provider = (*Provider)(nil)
