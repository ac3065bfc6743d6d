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
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	dockerRedisImage = "redis"
	dockerRedisTag   = "alpine3.17"
)

// StartRedis runs a disposable Redis container bound to hostPort and returns its address.
// The container is purged when the test ends.
func StartRedis(t *testing.T, hostPort string) string {
	t.Helper()

	pool, err := dctest.NewPool("")
	require.NoError(t, err)

	resource, err := pool.RunWithOptions(&dctest.RunOptions{
		Repository: dockerRedisImage,
		Tag:        dockerRedisTag,
		PortBindings: map[dc.Port][]dc.PortBinding{
			"6379/tcp": {{HostIP: "", HostPort: hostPort}},
		},
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pool.Purge(resource), "failed to purge Redis resource")
	})

	addr := fmt.Sprintf("localhost:%s", hostPort)

	require.NoError(t, backoff.Retry(func() error {
		return pingRedis(addr)
	}, backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), pingRetries)))

	return addr
}

func pingRedis(addr string) error {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	defer func() {
		_ = rdb.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return rdb.Ping(ctx).Err()
}
