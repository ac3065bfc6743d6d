/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credentialstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	redisapi "github.com/redis/go-redis/v9"

	"github.com/trustbloc/vcwallet/pkg/storage"
	"github.com/trustbloc/vcwallet/pkg/storage/redis"
)

const (
	credentialsKey = "credentials"
)

// Store keeps received credentials in one redis hash keyed by credential ID.
type Store struct {
	redisClient *redis.Client
}

// NewStore creates Store.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{redisClient: redisClient}
}

func (s *Store) Save(ctx context.Context, cred *storage.Credential) error {
	if cred == nil || cred.ID == "" {
		return errors.New("save credential: missing id")
	}

	b, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	ctxWithTimeout, cancel := s.redisClient.ContextWithTimeout(ctx)
	defer cancel()

	if err = s.redisClient.API().HSet(ctxWithTimeout, s.redisClient.Key(credentialsKey), cred.ID, b).Err(); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*storage.Credential, error) {
	ctxWithTimeout, cancel := s.redisClient.ContextWithTimeout(ctx)
	defer cancel()

	b, err := s.redisClient.API().HGet(ctxWithTimeout, s.redisClient.Key(credentialsKey), id).Bytes()
	if errors.Is(err, redisapi.Nil) {
		return nil, fmt.Errorf("credential %s: %w", id, storage.ErrDataNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("credential find failed: %w", err)
	}

	cred := &storage.Credential{}
	if err = json.Unmarshal(b, cred); err != nil {
		return nil, fmt.Errorf("credential decode failed: %w", err)
	}

	return cred, nil
}

// GetAll returns the credentials oldest first.
func (s *Store) GetAll(ctx context.Context) ([]*storage.Credential, error) {
	ctxWithTimeout, cancel := s.redisClient.ContextWithTimeout(ctx)
	defer cancel()

	values, err := s.redisClient.API().HVals(ctxWithTimeout, s.redisClient.Key(credentialsKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("find credentials: %w", err)
	}

	out := make([]*storage.Credential, 0, len(values))

	for _, v := range values {
		cred := &storage.Credential{}
		if err = json.Unmarshal([]byte(v), cred); err != nil {
			return nil, fmt.Errorf("decode credentials: %w", err)
		}

		out = append(out, cred)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}

		return out[i].ID < out[j].ID
	})

	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	ctxWithTimeout, cancel := s.redisClient.ContextWithTimeout(ctx)
	defer cancel()

	n, err := s.redisClient.API().HDel(ctxWithTimeout, s.redisClient.Key(credentialsKey), id).Result()
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("credential %s: %w", id, storage.ErrDataNotFound)
	}

	return nil
}

var _ storage.CredentialStore = (*Store)(nil)
