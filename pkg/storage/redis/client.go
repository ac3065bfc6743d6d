/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout = 15 * time.Second
)

type clientOpts struct {
	masterName    string
	password      string
	db            int
	tlsConfig     *tls.Config
	timeout       time.Duration
	traceProvider trace.TracerProvider
}

type ClientOpt func(opts *clientOpts)

func WithTraceProvider(traceProvider trace.TracerProvider) ClientOpt {
	return func(opts *clientOpts) {
		opts.traceProvider = traceProvider
	}
}

func WithMasterName(masterName string) ClientOpt {
	return func(opts *clientOpts) {
		opts.masterName = masterName
	}
}

func WithPassword(password string) ClientOpt {
	return func(opts *clientOpts) {
		opts.password = password
	}
}

func WithDB(db int) ClientOpt {
	return func(opts *clientOpts) {
		opts.db = db
	}
}

func WithTLSConfig(tlsConfig *tls.Config) ClientOpt {
	return func(opts *clientOpts) {
		opts.tlsConfig = tlsConfig
	}
}

func WithTimeout(timeout time.Duration) ClientOpt {
	return func(opts *clientOpts) {
		opts.timeout = timeout
	}
}

// Client is a redis client whose keys share one prefix, so several wallets can use the same server.
type Client struct {
	client    redis.UniversalClient
	keyPrefix string
	timeout   time.Duration
}

// New returns a Client over redis.UniversalClient.
// The type of the underlying client depends
// on the following conditions:
//
// 1. If the MasterName option is specified, a sentinel-backed FailoverClient is used.
// 2. if the number of Addrs is two or more, a ClusterClient is used.
// 3. Otherwise, a single-node Client is used.
func New(addrs []string, keyPrefix string, opts ...ClientOpt) (*Client, error) {
	opt := &clientOpts{
		timeout: defaultTimeout,
	}

	for _, f := range opts {
		f(opt)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:                 addrs,
		DB:                    opt.db,
		ContextTimeoutEnabled: true,
		MasterName:            opt.masterName,
		Password:              opt.password,
		TLSConfig:             opt.tlsConfig,
	})

	if opt.traceProvider != nil {
		err := redisotel.InstrumentTracing(client, redisotel.WithTracerProvider(opt.traceProvider))
		if err != nil {
			return nil, fmt.Errorf("instrument with tracing: %w", err)
		}
	}

	c := &Client{
		client:    client,
		keyPrefix: keyPrefix,
		timeout:   opt.timeout,
	}

	if err := c.Ping(context.Background()); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return c, nil
}

// NewFromURL connects to the server named by a redis:// or rediss:// URL.
// The password, database number and TLS settings of the URL are applied before opts.
func NewFromURL(rawURL, keyPrefix string, opts ...ClientOpt) (*Client, error) {
	parsed, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	urlOpts := []ClientOpt{
		WithPassword(parsed.Password),
		WithDB(parsed.DB),
		WithTLSConfig(parsed.TLSConfig),
	}

	return New([]string{parsed.Addr}, keyPrefix, append(urlOpts, opts...)...)
}

// ContextWithTimeout bounds ctx by the client timeout.
func (c *Client) ContextWithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// Key returns name in the key space of the client.
func (c *Client) Key(name string) string {
	if c.keyPrefix == "" {
		return name
	}

	return c.keyPrefix + ":" + name
}

func (c *Client) API() redis.UniversalClient {
	return c.client
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := c.ContextWithTimeout(ctx)
	defer cancel()

	return c.client.Ping(ctxWithTimeout).Err()
}

func (c *Client) Close() error {
	return c.client.Close()
}
