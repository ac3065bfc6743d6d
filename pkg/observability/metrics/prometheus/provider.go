/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package prometheus

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/vcwallet/internal/logfields"
	"github.com/trustbloc/vcwallet/pkg/observability/metrics"
)

const readHeaderTimeout = 5 * time.Second

var logger = metrics.Logger

var (
	createOnce sync.Once    //nolint:gochecknoglobals
	instance   *PromMetrics //nolint:gochecknoglobals
)

type promProvider struct {
	httpServer *http.Server
}

// NewPrometheusProvider creates new instance of Prometheus Metrics Provider serving /metrics on addr.
// An empty addr records metrics without serving them.
func NewPrometheusProvider(addr string) metrics.Provider {
	if addr == "" {
		return &promProvider{}
	}

	mux := http.NewServeMux()
	mux.Handle(MetricsPath, NewHandler())

	return &promProvider{httpServer: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}}
}

// Create creates/initializes the prometheus metrics provider.
func (pp *promProvider) Create() error {
	if pp.httpServer == nil {
		return nil
	}

	go func() {
		if err := pp.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics HTTP server stopped", log.WithURL(pp.httpServer.Addr), log.WithError(err))
		}
	}()

	return nil
}

// Metrics returns supported metrics.
func (pp *promProvider) Metrics() metrics.Metrics {
	return GetMetrics()
}

// Destroy destroys the prometheus metrics provider.
func (pp *promProvider) Destroy() error {
	if pp.httpServer != nil {
		return pp.httpServer.Shutdown(context.Background())
	}

	return nil
}

// GetMetrics returns metrics implementation.
func GetMetrics() metrics.Metrics {
	createOnce.Do(func() {
		instance = NewMetrics()
	})

	return instance
}

// PromMetrics manages the metrics for the wallet.
type PromMetrics struct {
	signTime        prometheus.Histogram
	resolveTime     prometheus.Histogram
	respondTime     prometheus.Histogram
	clientDurations *prometheus.HistogramVec
}

// NewMetrics creates instance of prometheus metrics.
func NewMetrics() *PromMetrics {
	pm := &PromMetrics{
		signTime:        newSignTime(),
		resolveTime:     newResolveTime(),
		respondTime:     newRespondTime(),
		clientDurations: newHTTPClientDurations(),
	}

	registerMetrics(pm)

	return pm
}

// SignTime records the time for sign.
func (pm *PromMetrics) SignTime(value time.Duration) {
	pm.signTime.Observe(value.Seconds())

	logger.Debug("crypto sign time", logfields.WithDuration(value))
}

// ResolveTime records the time to resolve an authorization request.
func (pm *PromMetrics) ResolveTime(value time.Duration) {
	pm.resolveTime.Observe(value.Seconds())

	logger.Debug("authorization request resolve time", logfields.WithDuration(value))
}

// RespondTime records the time to build and send an authorization response.
func (pm *PromMetrics) RespondTime(value time.Duration) {
	pm.respondTime.Observe(value.Seconds())

	logger.Debug("authorization response time", logfields.WithDuration(value))
}

// InstrumentHTTPTransport records request durations of next labelled by client, status code and method.
func (pm *PromMetrics) InstrumentHTTPTransport(client metrics.ClientID, next http.RoundTripper) http.RoundTripper {
	return promhttp.InstrumentRoundTripperDuration(
		pm.clientDurations.MustCurryWith(prometheus.Labels{"client": string(client)}),
		next,
	)
}

func registerMetrics(pm *PromMetrics) {
	prometheus.MustRegister(
		pm.signTime, pm.resolveTime, pm.respondTime, pm.clientDurations,
	)
}

func newCounter(subsystem, name, help string, labels prometheus.Labels) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   metrics.Namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: labels,
	})
}

func newHistogram(subsystem, name, help string, labels prometheus.Labels) prometheus.Histogram {
	return prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   metrics.Namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: labels,
	})
}

func newSignTime() prometheus.Histogram {
	return newHistogram(
		metrics.Crypto, metrics.CryptoSignTimeMetric,
		"The time (in seconds) it takes to run crypto sign.",
		nil,
	)
}

func newResolveTime() prometheus.Histogram {
	return newHistogram(
		metrics.Presentation, metrics.ResolveTimeMetric,
		"The time (in seconds) it takes to resolve an authorization request.",
		nil,
	)
}

func newRespondTime() prometheus.Histogram {
	return newHistogram(
		metrics.Presentation, metrics.RespondTimeMetric,
		"The time (in seconds) it takes to build and send an authorization response.",
		nil,
	)
}

func newHTTPClientDurations() *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metrics.Namespace,
		Subsystem: metrics.Presentation,
		Name:      metrics.HTTPClientDurations,
		Help:      "The time (in seconds) outbound requests to verifiers and issuers take.",
	}, []string{"client", "code", "method"})
}
