/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"net/http"
	"time"

	"github.com/trustbloc/logutil-go/pkg/log"
)

// Logger used by different metrics provider.
var Logger = log.New("metrics-provider")

// Constants used by different metrics provider.
const (
	// Namespace Organization namespace.
	Namespace = "vcwallet"

	// Crypto plain crypto operations.
	Crypto               = "crypto"
	CryptoSignTimeMetric = "crypto_sign_seconds"

	// Presentation operations.
	Presentation        = "presentation"
	ResolveTimeMetric   = "presentation_resolve_seconds"
	RespondTimeMetric   = "presentation_respond_seconds"
	HTTPClientDurations = "http_client_request_duration_seconds"
)

// ClientID names the remote party of an outbound HTTP client.
type ClientID string

const (
	ClientVerifier ClientID = "verifier"
	ClientIssuer   ClientID = "issuer"
)

// Provider is an interface for metrics provider.
type Provider interface {
	// Create creates a metrics provider instance
	Create() error
	// Destroy destroys the metrics provider instance
	Destroy() error
	// Metrics providers metrics
	Metrics() Metrics
}

// Metrics is an interface for the metrics to be supported by the provider.
type Metrics interface {
	SignTime(value time.Duration)
	ResolveTime(value time.Duration)
	RespondTime(value time.Duration)
	InstrumentHTTPTransport(client ClientID, next http.RoundTripper) http.RoundTripper
}
