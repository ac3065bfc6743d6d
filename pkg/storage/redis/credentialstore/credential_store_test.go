/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credentialstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/vcwallet/internal/testutil"
	"github.com/trustbloc/vcwallet/pkg/storage"
	"github.com/trustbloc/vcwallet/pkg/storage/redis"
)

func TestStore(t *testing.T) {
	addr := testutil.StartRedis(t, "6392")

	client, err := redis.New([]string{addr}, "testwallet", redis.WithTimeout(time.Second*10))
	require.NoError(t, err)

	defer func() {
		require.NoError(t, client.Close(), "failed to close redis client")
	}()

	store := NewStore(client)
	ctx := context.Background()
	now := time.Now().Round(time.Second).UTC()

	first := &storage.Credential{
		ID:         "urn:uuid:1",
		Format:     "vc+sd-jwt",
		Types:      []string{"VerifiedEmail"},
		Raw:        "eyJhbGciOiJFUzI1NiJ9.e30.c2ln~WyJzIiwiZW1haWwiLCJhQGIuYyJd~",
		Issuer:     "https://issuer.example.com",
		IssuerName: "Example Issuer",
		CreatedAt:  now,
	}

	t.Run("empty", func(t *testing.T) {
		all, err := store.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("save and get", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, first))

		got, err := store.Get(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, first, got)
	})

	t.Run("save replaces", func(t *testing.T) {
		updated := *first
		updated.IssuerName = "Renamed Issuer"

		require.NoError(t, store.Save(ctx, &storage.Credential{
			ID: "urn:uuid:2", Format: "jwt_vc_json", Raw: "a.b.c", CreatedAt: now.Add(time.Minute),
		}))
		require.NoError(t, store.Save(ctx, &updated))

		all, err := store.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Renamed Issuer", all[0].IssuerName)
		assert.Equal(t, "urn:uuid:2", all[1].ID)
	})

	t.Run("missing id", func(t *testing.T) {
		require.Error(t, store.Save(ctx, &storage.Credential{Raw: "x"}))
		require.Error(t, store.Save(ctx, nil))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "urn:uuid:2"))

		_, err := store.Get(ctx, "urn:uuid:2")
		require.ErrorIs(t, err, storage.ErrDataNotFound)

		require.ErrorIs(t, store.Delete(ctx, "urn:uuid:2"), storage.ErrDataNotFound)
	})

	t.Run("key space", func(t *testing.T) {
		other, err := redis.New([]string{addr}, "otherwallet")
		require.NoError(t, err)

		defer func() {
			require.NoError(t, other.Close())
		}()

		all, err := NewStore(other).GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("corrupt record", func(t *testing.T) {
		require.NoError(t, client.API().HSet(ctx, client.Key(credentialsKey), "urn:uuid:bad", "{").Err())

		_, err := store.Get(ctx, "urn:uuid:bad")
		require.ErrorContains(t, err, "credential decode failed")

		_, err = store.GetAll(ctx)
		require.ErrorContains(t, err, "decode credentials")
	})
}
