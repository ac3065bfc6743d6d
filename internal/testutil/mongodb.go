/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	dctest "github.com/ory/dockertest/v3"
	dc "github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	dockerMongoDBImage = "mongo"
	dockerMongoDBTag   = "4.0.0"
	pingRetries        = 30
)

// StartMongoDB runs a disposable MongoDB container bound to hostPort and returns its connection string.
// The container is purged when the test ends.
func StartMongoDB(t *testing.T, hostPort string) string {
	t.Helper()

	pool, err := dctest.NewPool("")
	require.NoError(t, err)

	resource, err := pool.RunWithOptions(&dctest.RunOptions{
		Repository: dockerMongoDBImage,
		Tag:        dockerMongoDBTag,
		PortBindings: map[dc.Port][]dc.PortBinding{
			"27017/tcp": {{HostIP: "", HostPort: hostPort}},
		},
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pool.Purge(resource), "failed to purge MongoDB resource")
	})

	connString := fmt.Sprintf("mongodb://localhost:%s", hostPort)

	require.NoError(t, waitForMongoDB(connString))

	return connString
}

func waitForMongoDB(connString string) error {
	return backoff.Retry(func() error {
		return pingMongoDB(connString)
	}, backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), pingRetries))
}

func pingMongoDB(connString string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connString))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Disconnect(ctx)
	}()

	return client.Ping(ctx, nil)
}
