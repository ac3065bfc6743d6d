/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"
	cmdutils "github.com/trustbloc/cmdutil-go/pkg/utils/cmd"
	"github.com/trustbloc/logutil-go/pkg/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/trustbloc/vcwallet/internal/logfields"
	"github.com/trustbloc/vcwallet/pkg/storage"
	"github.com/trustbloc/vcwallet/pkg/storage/mem"
	"github.com/trustbloc/vcwallet/pkg/storage/mongodb"
	"github.com/trustbloc/vcwallet/pkg/storage/mongodbprovider"
	"github.com/trustbloc/vcwallet/pkg/storage/redis"
	"github.com/trustbloc/vcwallet/pkg/storage/redisprovider"
)

const (
	// DatabaseURLFlagName is the database url.
	DatabaseURLFlagName = "database-url"
	// DatabaseURLFlagUsage describes the usage.
	DatabaseURLFlagUsage = "Database URL with credentials if required." +
		" Examples: 'mongodb://mongodb.example.com:27017', 'redis://:secret@redis.example.com:6379/0', 'mem://wallet'." +
		" Credentials and sharing history are kept in memory when not set." +
		" Alternatively, this can be set with the following environment variable: " + DatabaseURLEnvKey
	// DatabaseURLEnvKey is the database url.
	DatabaseURLEnvKey = "WALLET_DATABASE_URL"

	// DatabaseNameFlagName is the wallet database name.
	DatabaseNameFlagName = "database-name"
	// DatabaseNameEnvKey is the wallet database name.
	DatabaseNameEnvKey = "WALLET_DATABASE_NAME"
	// DatabaseNameFlagUsage describes the usage.
	DatabaseNameFlagUsage = "Name of the MongoDB database, or the Redis key prefix, holding the wallet." +
		" Default: " + DatabaseNameDefault + "." +
		" Alternatively, this can be set with the following environment variable: " + DatabaseNameEnvKey

	// DatabaseTimeoutFlagName is the database timeout.
	DatabaseTimeoutFlagName = "database-timeout"
	// DatabaseTimeoutFlagUsage describes the usage.
	DatabaseTimeoutFlagUsage = "Total time in seconds to wait until the datasource is available before giving up." +
		" Default: 10 seconds." +
		" Alternatively, this can be set with the following environment variable: " + DatabaseTimeoutEnvKey
	// DatabaseTimeoutEnvKey is the database timeout.
	DatabaseTimeoutEnvKey = "WALLET_DATABASE_TIMEOUT"

	// DatabaseNameDefault is the default wallet database name.
	DatabaseNameDefault = "vcwallet"
	// DatabaseTimeoutDefault is the default storage timeout.
	DatabaseTimeoutDefault = 10
)

// DBParameters holds database configuration.
type DBParameters struct {
	URL     string
	Name    string
	Timeout uint64
}

type pinger interface {
	Ping(ctx context.Context) error
}

type providerFunc func(dbURL, name string, traceProvider trace.TracerProvider) (storage.Provider, error)

// nolint:gochecknoglobals
var supportedStorageProviders = map[string]providerFunc{
	"mem": func(_, _ string, _ trace.TracerProvider) (storage.Provider, error) { // nolint:unparam
		return mem.NewProvider(), nil
	},
	"mongodb":     newMongoDBProvider,
	"mongodb+srv": newMongoDBProvider,
	"redis":       newRedisProvider,
	"rediss":      newRedisProvider,
}

func newMongoDBProvider(dbURL, name string, traceProvider trace.TracerProvider) (storage.Provider, error) {
	var opts []mongodb.ClientOpt

	if traceProvider != nil {
		opts = append(opts, mongodb.WithTraceProvider(traceProvider))
	}

	return mongodbprovider.New(dbURL, name, opts...)
}

func newRedisProvider(dbURL, name string, traceProvider trace.TracerProvider) (storage.Provider, error) {
	var opts []redis.ClientOpt

	if traceProvider != nil {
		opts = append(opts, redis.WithTraceProvider(traceProvider))
	}

	return redisprovider.New(dbURL, name, opts...)
}

// Flags registers common storage flags.
func Flags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP(DatabaseURLFlagName, "", "", DatabaseURLFlagUsage)
	cmd.PersistentFlags().StringP(DatabaseNameFlagName, "", "", DatabaseNameFlagUsage)
	cmd.PersistentFlags().StringP(DatabaseTimeoutFlagName, "", "", DatabaseTimeoutFlagUsage)
}

// DBParams fetches the DB parameters configured for this command.
func DBParams(cmd *cobra.Command) (*DBParameters, error) {
	var err error

	params := &DBParameters{
		URL:  cmdutils.GetUserSetOptionalVarFromString(cmd, DatabaseURLFlagName, DatabaseURLEnvKey),
		Name: cmdutils.GetUserSetOptionalVarFromString(cmd, DatabaseNameFlagName, DatabaseNameEnvKey),
	}

	if params.Name == "" {
		params.Name = DatabaseNameDefault
	}

	timeout := cmdutils.GetUserSetOptionalVarFromString(cmd, DatabaseTimeoutFlagName, DatabaseTimeoutEnvKey)
	if timeout == "" {
		timeout = strconv.Itoa(DatabaseTimeoutDefault)
	}

	params.Timeout, err = strconv.ParseUint(timeout, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dbTimeout %s: %w", timeout, err)
	}

	return params, nil
}

// InitStore opens the wallet storage provider, retrying once a second until the database answers a ping or
// params.Timeout attempts have failed. An empty URL selects the in-memory provider.
// Database calls are traced when traceProvider is not nil.
func InitStore(params *DBParameters, logger *log.Log, traceProvider trace.TracerProvider) (storage.Provider, error) {
	if params.URL == "" {
		logger.Warn("No database URL configured, credentials will not outlive this process")

		return mem.NewProvider(), nil
	}

	driver, err := parseURL(params.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", params.URL, err)
	}

	newProvider, supported := supportedStorageProviders[driver]
	if !supported {
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}

	var provider storage.Provider

	err = retry(
		func() error {
			p, openErr := newProvider(params.URL, params.Name, traceProvider)
			if openErr != nil {
				return openErr
			}

			if pg, ok := p.(pinger); ok {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()

				if pingErr := pg.Ping(ctx); pingErr != nil {
					_ = p.Close()

					return fmt.Errorf("ping database: %w", pingErr)
				}
			}

			provider = p

			return nil
		},
		params.Timeout,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage provider: %w", err)
	}

	logger.Info("Storage provider initialized", logfields.WithDatabase(params.Name))

	return provider, nil
}

func parseURL(u string) (string, error) {
	const urlParts = 2

	parsed := strings.SplitN(u, "://", urlParts)

	if len(parsed) != urlParts || parsed[0] == "" {
		return "", fmt.Errorf("invalid dbURL %s", u)
	}

	return parsed[0], nil
}

func retry(task func() error, numRetries uint64, logger *log.Log) error {
	const sleep = 1 * time.Second

	return backoff.RetryNotify(
		task,
		backoff.WithMaxRetries(backoff.NewConstantBackOff(sleep), numRetries),
		func(retryErr error, t time.Duration) {
			logger.Warn("Failed to connect to storage, will sleep before trying again.",
				logfields.WithDuration(t), log.WithError(retryErr))
		},
	)
}
