/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package historystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/trustbloc/vcwallet/pkg/storage"
	"github.com/trustbloc/vcwallet/pkg/storage/redis"
)

const (
	idTokenSharingKey    = "history:id_token"
	credentialSharingKey = "history:credential"
)

// Store appends sharing history to redis lists, one per record kind.
type Store struct {
	redisClient *redis.Client
}

// NewStore creates Store.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{redisClient: redisClient}
}

func (s *Store) SaveIDTokenSharing(ctx context.Context, rec *storage.IDTokenSharing) error {
	if rec == nil {
		return errors.New("save id token sharing: missing record")
	}

	return s.push(ctx, idTokenSharingKey, rec)
}

func (s *Store) SaveCredentialSharing(ctx context.Context, rec *storage.CredentialSharing) error {
	if rec == nil {
		return errors.New("save credential sharing: missing record")
	}

	return s.push(ctx, credentialSharingKey, rec)
}

func (s *Store) IDTokenSharings(ctx context.Context, rp string) ([]*storage.IDTokenSharing, error) {
	return list(ctx, s.redisClient, idTokenSharingKey, func(r *storage.IDTokenSharing) bool {
		return rp == "" || r.RP == rp
	})
}

func (s *Store) CredentialSharings(ctx context.Context, rp string) ([]*storage.CredentialSharing, error) {
	return list(ctx, s.redisClient, credentialSharingKey, func(r *storage.CredentialSharing) bool {
		return rp == "" || r.RP == rp
	})
}

func (s *Store) push(ctx context.Context, key string, rec interface{}) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", key, err)
	}

	ctxWithTimeout, cancel := s.redisClient.ContextWithTimeout(ctx)
	defer cancel()

	if err = s.redisClient.API().RPush(ctxWithTimeout, s.redisClient.Key(key), b).Err(); err != nil {
		return fmt.Errorf("save %s record: %w", key, err)
	}

	return nil
}

// list returns the records of key in insertion order.
func list[T any](ctx context.Context, client *redis.Client, key string, keep func(*T) bool) ([]*T, error) {
	ctxWithTimeout, cancel := client.ContextWithTimeout(ctx)
	defer cancel()

	values, err := client.API().LRange(ctxWithTimeout, client.Key(key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("find %s records: %w", key, err)
	}

	out := make([]*T, 0, len(values))

	for _, v := range values {
		rec := new(T)
		if err = json.Unmarshal([]byte(v), rec); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", key, err)
		}

		if keep(rec) {
			out = append(out, rec)
		}
	}

	return out, nil
}

var _ storage.HistoryStore = (*Store)(nil)
