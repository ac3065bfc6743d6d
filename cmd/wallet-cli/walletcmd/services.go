/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package walletcmd

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/trustbloc/logutil-go/pkg/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/trustbloc/vcwallet/cmd/common"
	"github.com/trustbloc/vcwallet/internal/httputil"
	"github.com/trustbloc/vcwallet/pkg/account"
	"github.com/trustbloc/vcwallet/pkg/backup"
	"github.com/trustbloc/vcwallet/pkg/dataprotect"
	"github.com/trustbloc/vcwallet/pkg/keystore"
	"github.com/trustbloc/vcwallet/pkg/kms"
	"github.com/trustbloc/vcwallet/pkg/observability/metrics"
	"github.com/trustbloc/vcwallet/pkg/observability/metrics/noop"
	"github.com/trustbloc/vcwallet/pkg/observability/metrics/prometheus"
	"github.com/trustbloc/vcwallet/pkg/observability/tracing"
	oidc4vptracing "github.com/trustbloc/vcwallet/pkg/observability/tracing/wrappers/oidc4vp"
	"github.com/trustbloc/vcwallet/pkg/service/oidc4vci"
	"github.com/trustbloc/vcwallet/pkg/service/oidc4vp"
	"github.com/trustbloc/vcwallet/pkg/service/sharing"
	"github.com/trustbloc/vcwallet/pkg/storage"
)

const httpClientTimeout = 15 * time.Second

type services struct {
	storageProvider storage.Provider
	credentials     storage.CredentialStore
	history         storage.HistoryStore
	accounts        *account.Manager
	keyStore        keystore.KeyStore
	resolver        oidc4vp.ResolverService
	responder       oidc4vp.ResponderService
	sharing         *sharing.Service
	issuance        *oidc4vci.Client
	backupSealer    *dataprotect.Sealer
	s3Region        string
	s3Endpoint      string
	closers         []func()
}

// initServices wires the wallet components configured by params. Close must be called once the command is done.
func initServices(ctx context.Context, params *walletParameters) (*services, error) {
	if params.logLevel != "" {
		common.SetDefaultLogLevel(logger, params.logLevel)
	}

	svc := &services{}

	if err := svc.init(ctx, params); err != nil {
		svc.Close()

		return nil, err
	}

	return svc, nil
}

func (s *services) init(ctx context.Context, params *walletParameters) error {
	shutdownTracer, tracer, err := tracing.Initialize(params.tracingParams.exporter, params.tracingParams.serviceName)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}

	s.closers = append(s.closers, shutdownTracer)

	m, err := s.initMetrics(params)
	if err != nil {
		return err
	}

	var traceProvider trace.TracerProvider

	if params.tracingParams.exporter != tracing.None {
		traceProvider = otel.GetTracerProvider()
	}

	s.storageProvider, err = common.InitStore(params.dbParameters, logger, traceProvider)
	if err != nil {
		return err
	}

	s.closers = append(s.closers, func() {
		if closeErr := s.storageProvider.Close(); closeErr != nil {
			logger.Warn("close storage provider", log.WithError(closeErr))
		}
	})

	if s.credentials, err = s.storageProvider.OpenCredentialStore(); err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}

	if s.history, err = s.storageProvider.OpenHistoryStore(); err != nil {
		return fmt.Errorf("open history store: %w", err)
	}

	keyring, err := account.NewKeyring(params.mnemonic, params.passphrase)
	if err != nil {
		return fmt.Errorf("create keyring: %w", err)
	}

	s.accounts = account.NewManager(keyring)

	if s.backupSealer, err = backup.NewSealer(keyring); err != nil {
		return err
	}

	s.s3Region, s.s3Endpoint = params.s3Region, params.s3Endpoint

	if s.keyStore, err = kms.NewKeyStore(ctx, params.kmsConfig, keyring, m); err != nil {
		return fmt.Errorf("create key store: %w", err)
	}

	tlsConfig := &tls.Config{
		InsecureSkipVerify: params.tlsInsecure, //nolint:gosec
		MinVersion:         tls.VersionTLS12,
	}

	verifierClient := &http.Client{
		Timeout:   httpClientTimeout,
		Transport: m.InstrumentHTTPTransport(metrics.ClientVerifier, &http.Transport{TLSClientConfig: tlsConfig}),
	}

	responseClient := httputil.NewNoRedirectClient(tlsConfig)
	responseClient.Transport = m.InstrumentHTTPTransport(metrics.ClientVerifier, responseClient.Transport)

	issuerClient := &http.Client{
		Timeout:   httpClientTimeout,
		Transport: m.InstrumentHTTPTransport(metrics.ClientIssuer, &http.Transport{TLSClientConfig: tlsConfig}),
	}

	s.resolver = oidc4vptracing.WrapResolver(oidc4vp.NewResolver(&oidc4vp.ResolverConfig{
		HTTPClient: verifierClient,
		Metrics:    m,
	}), tracer)

	s.responder = oidc4vptracing.WrapResponder(oidc4vp.NewResponder(&oidc4vp.ResponderConfig{
		HTTPClient: responseClient,
		KeyStore:   s.keyStore,
		Metrics:    m,
	}), tracer)

	s.sharing = sharing.NewService(&sharing.Config{
		Responder:      s.responder,
		Accounts:       s.accounts,
		Credentials:    s.credentials,
		History:        s.history,
		KeyStore:       s.keyStore,
		CommentDomains: params.commentDomains,
	})

	s.issuance = oidc4vci.NewClient(&oidc4vci.Config{
		HTTPClient: issuerClient,
		KeyStore:   s.keyStore,
		ClientID:   params.clientID,
		Locale:     params.locale,
	})

	return nil
}

func (s *services) initMetrics(params *walletParameters) (metrics.Metrics, error) {
	if params.metricsProvider != prometheusProviderName {
		return noop.GetMetrics(), nil
	}

	provider := prometheus.NewPrometheusProvider(params.promHTTPURL)

	if err := provider.Create(); err != nil {
		return nil, fmt.Errorf("create metrics provider: %w", err)
	}

	s.closers = append(s.closers, func() {
		if err := provider.Destroy(); err != nil {
			logger.Warn("destroy metrics provider", log.WithError(err))
		}
	})

	return provider.Metrics(), nil
}

// loadAccounts restores the pairwise accounts recorded in the ID-token sharing history.
func (s *services) loadAccounts(ctx context.Context) error {
	history, err := s.history.IDTokenSharings(ctx, "")
	if err != nil {
		return fmt.Errorf("load sharing history: %w", err)
	}

	return s.accounts.Load(storage.AccountRecords(history))
}

// Close releases the resources in reverse order of creation.
func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
