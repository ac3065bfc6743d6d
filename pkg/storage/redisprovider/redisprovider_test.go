/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package redisprovider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/vcwallet/internal/testutil"
	"github.com/trustbloc/vcwallet/pkg/storage"
)

func TestProvider(t *testing.T) {
	addr := testutil.StartRedis(t, "6394")

	provider, err := New("redis://"+addr, "testwallet")
	require.NoError(t, err)

	defer func() {
		require.NoError(t, provider.Close())
	}()

	ctx := context.Background()

	require.NoError(t, provider.Ping(ctx))

	creds, err := provider.OpenCredentialStore()
	require.NoError(t, err)

	require.NoError(t, creds.Save(ctx, &storage.Credential{ID: "urn:uuid:1", Format: "jwt_vc_json", Raw: "a.b.c"}))

	got, err := creds.Get(ctx, "urn:uuid:1")
	require.NoError(t, err)
	require.Equal(t, "a.b.c", got.Raw)

	history, err := provider.OpenHistoryStore()
	require.NoError(t, err)

	records, err := history.IDTokenSharings(ctx, "")
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestProviderInvalidURL(t *testing.T) {
	_, err := New("mongodb://localhost", "testwallet")
	require.Error(t, err)
}
