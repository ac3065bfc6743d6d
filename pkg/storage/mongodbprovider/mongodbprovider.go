/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mongodbprovider

import (
	"context"

	"github.com/trustbloc/vcwallet/pkg/storage"
	"github.com/trustbloc/vcwallet/pkg/storage/mongodb"
	"github.com/trustbloc/vcwallet/pkg/storage/mongodb/credentialstore"
	"github.com/trustbloc/vcwallet/pkg/storage/mongodb/historystore"
)

// MongoDBWalletProvider is a wallet storage provider backed by one MongoDB database.
type MongoDBWalletProvider struct {
	client *mongodb.Client
}

// New connects to connString and returns a provider over databaseName.
func New(connString, databaseName string, opts ...mongodb.ClientOpt) (*MongoDBWalletProvider, error) {
	client, err := mongodb.New(connString, databaseName, opts...)
	if err != nil {
		return nil, err
	}

	return &MongoDBWalletProvider{client: client}, nil
}

func (m *MongoDBWalletProvider) OpenCredentialStore() (storage.CredentialStore, error) {
	return credentialstore.NewStore(m.client), nil
}

func (m *MongoDBWalletProvider) OpenHistoryStore() (storage.HistoryStore, error) {
	return historystore.NewStore(m.client), nil
}

// Ping checks that the database is reachable.
func (m *MongoDBWalletProvider) Ping(ctx context.Context) error {
	return m.client.Ping(ctx)
}

// Close disconnects the underlying client.
func (m *MongoDBWalletProvider) Close() error {
	return m.client.Close()
}

var _ storage.Provider = (*MongoDBWalletProvider)(nil)
