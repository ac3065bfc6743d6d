/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package redisprovider

import (
	"context"

	"github.com/trustbloc/vcwallet/pkg/storage"
	"github.com/trustbloc/vcwallet/pkg/storage/redis"
	"github.com/trustbloc/vcwallet/pkg/storage/redis/credentialstore"
	"github.com/trustbloc/vcwallet/pkg/storage/redis/historystore"
)

// RedisWalletProvider is a wallet storage provider backed by a redis server. Keys are prefixed with the
// wallet name.
type RedisWalletProvider struct {
	client *redis.Client
}

// New connects to the redis:// or rediss:// URL and returns a provider over the key space of name.
func New(redisURL, name string, opts ...redis.ClientOpt) (*RedisWalletProvider, error) {
	client, err := redis.NewFromURL(redisURL, name, opts...)
	if err != nil {
		return nil, err
	}

	return &RedisWalletProvider{client: client}, nil
}

func (r *RedisWalletProvider) OpenCredentialStore() (storage.CredentialStore, error) {
	return credentialstore.NewStore(r.client), nil
}

func (r *RedisWalletProvider) OpenHistoryStore() (storage.HistoryStore, error) {
	return historystore.NewStore(r.client), nil
}

func (r *RedisWalletProvider) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

func (r *RedisWalletProvider) Close() error {
	return r.client.Close()
}

var _ storage.Provider = (*RedisWalletProvider)(nil)
