/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package backup exports the wallet's credentials and sharing history into a sealed archive and restores them.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/vcwallet/internal/logfields"
	"github.com/trustbloc/vcwallet/pkg/account"
	"github.com/trustbloc/vcwallet/pkg/dataprotect"
	"github.com/trustbloc/vcwallet/pkg/storage"
)

var logger = log.New("backup")

const (
	archiveVersion = 1

	// keyIndex sits below the holder keys at the top of the non-hardened range.
	keyIndex = 1<<31 - 3
	keyInfo  = "vcwallet backup v1"
)

var ErrUnsupportedVersion = errors.New("unsupported backup version")

// Archive is the content of a backup. The mnemonic is not part of it; restoring needs the same mnemonic.
type Archive struct {
	Version                    int                          `json:"version"`
	CreatedAt                  time.Time                    `json:"createdAt"`
	Credentials                []*storage.Credential        `json:"credentials"`
	IDTokenSharingHistories    []*storage.IDTokenSharing    `json:"idTokenSharingHistories"`
	CredentialSharingHistories []*storage.CredentialSharing `json:"credentialSharingHistories"`
}

// Summary counts what a backup or restore handled.
type Summary struct {
	Location                   string `json:"location"`
	Credentials                int    `json:"credentials"`
	IDTokenSharingHistories    int    `json:"idTokenSharingHistories"`
	CredentialSharingHistories int    `json:"credentialSharingHistories"`
}

type sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// Sink stores sealed archives by name.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

type Config struct {
	Credentials storage.CredentialStore
	History     storage.HistoryStore
	Sealer      sealer
	Sink        Sink
	Now         func() time.Time
}

type Service struct {
	credentials storage.CredentialStore
	history     storage.HistoryStore
	sealer      sealer
	sink        Sink
	now         func() time.Time
}

func NewService(cfg *Config) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		credentials: cfg.Credentials,
		history:     cfg.History,
		sealer:      cfg.Sealer,
		sink:        cfg.Sink,
		now:         now,
	}
}

// NewSealer returns the sealer for backups of the wallet whose accounts keyring derives.
func NewSealer(keyring *account.Keyring) (*dataprotect.Sealer, error) {
	priv, err := keyring.PrivateKey(keyIndex)
	if err != nil {
		return nil, fmt.Errorf("derive backup key: %w", err)
	}

	secret := make([]byte, 32) //nolint:gomnd
	priv.D.FillBytes(secret)

	key, err := dataprotect.DeriveKey(secret, keyInfo)
	if err != nil {
		return nil, err
	}

	return dataprotect.NewSealer(key)
}

// Export writes every credential and sharing record to name.
func (s *Service) Export(ctx context.Context, name string) (*Summary, error) {
	creds, err := s.credentials.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get credentials: %w", err)
	}

	idTokens, err := s.history.IDTokenSharings(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("get id token history: %w", err)
	}

	credSharings, err := s.history.CredentialSharings(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("get credential history: %w", err)
	}

	b, err := json.Marshal(&Archive{
		Version:                    archiveVersion,
		CreatedAt:                  s.now().UTC(),
		Credentials:                creds,
		IDTokenSharingHistories:    idTokens,
		CredentialSharingHistories: credSharings,
	})
	if err != nil {
		return nil, fmt.Errorf("encode archive: %w", err)
	}

	sealed, err := s.sealer.Seal(b)
	if err != nil {
		return nil, fmt.Errorf("seal archive: %w", err)
	}

	if err = s.sink.Put(ctx, name, sealed); err != nil {
		return nil, fmt.Errorf("store archive: %w", err)
	}

	logger.Infoc(ctx, "Backup written", logfields.WithBackupLocation(name))

	return &Summary{
		Location:                   name,
		Credentials:                len(creds),
		IDTokenSharingHistories:    len(idTokens),
		CredentialSharingHistories: len(credSharings),
	}, nil
}

// Restore reads the archive at name back into the stores. Credentials replace stored ones with the same ID.
// Sharing records already present are skipped, so restoring the same archive twice changes nothing.
// The summary counts what was written.
func (s *Service) Restore(ctx context.Context, name string) (*Summary, error) {
	sealed, err := s.sink.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	b, err := s.sealer.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	archive := &Archive{}
	if err = json.Unmarshal(b, archive); err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}

	if archive.Version != archiveVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, archive.Version)
	}

	summary := &Summary{Location: name}

	for _, c := range archive.Credentials {
		if err = s.credentials.Save(ctx, c); err != nil {
			return nil, fmt.Errorf("restore credential %s: %w", c.ID, err)
		}

		summary.Credentials++
	}

	if summary.IDTokenSharingHistories, err = s.restoreIDTokenSharings(ctx, archive.IDTokenSharingHistories); err != nil {
		return nil, err
	}

	summary.CredentialSharingHistories, err = s.restoreCredentialSharings(ctx, archive.CredentialSharingHistories)
	if err != nil {
		return nil, err
	}

	logger.Infoc(ctx, "Backup restored", logfields.WithBackupLocation(name))

	return summary, nil
}

func (s *Service) restoreIDTokenSharings(ctx context.Context, records []*storage.IDTokenSharing) (int, error) {
	existing, err := s.history.IDTokenSharings(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("get id token history: %w", err)
	}

	seen := lo.SliceToMap(existing, func(r *storage.IDTokenSharing) (string, struct{}) {
		return idTokenSharingKey(r), struct{}{}
	})

	restored := 0

	for _, r := range records {
		if _, ok := seen[idTokenSharingKey(r)]; ok {
			continue
		}

		if err = s.history.SaveIDTokenSharing(ctx, r); err != nil {
			return 0, fmt.Errorf("restore id token history: %w", err)
		}

		seen[idTokenSharingKey(r)] = struct{}{}
		restored++
	}

	return restored, nil
}

func (s *Service) restoreCredentialSharings(ctx context.Context, records []*storage.CredentialSharing) (int, error) {
	existing, err := s.history.CredentialSharings(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("get credential history: %w", err)
	}

	seen := lo.SliceToMap(existing, func(r *storage.CredentialSharing) (string, struct{}) {
		return credentialSharingKey(r), struct{}{}
	})

	restored := 0

	for _, r := range records {
		if _, ok := seen[credentialSharingKey(r)]; ok {
			continue
		}

		if err = s.history.SaveCredentialSharing(ctx, r); err != nil {
			return 0, fmt.Errorf("restore credential history: %w", err)
		}

		seen[credentialSharingKey(r)] = struct{}{}
		restored++
	}

	return restored, nil
}

func idTokenSharingKey(r *storage.IDTokenSharing) string {
	return r.RP + "|" + strconv.Itoa(r.AccountIndex) + "|" + string(r.UseCase) + "|" +
		strconv.FormatInt(r.CreatedAt.UnixNano(), 10)
}

func credentialSharingKey(r *storage.CredentialSharing) string {
	return r.RP + "|" + strconv.Itoa(r.AccountIndex) + "|" + r.CredentialID + "|" +
		strconv.FormatInt(r.CreatedAt.UnixNano(), 10)
}
