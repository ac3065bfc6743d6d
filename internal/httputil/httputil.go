/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package httputil

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/trustbloc/logutil-go/pkg/log"
)

const defaultTimeout = 15 * time.Second

var logger = log.New("http-util")

// Doer is the subset of *http.Client used by the wallet engine.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned when an endpoint responds with an unexpected HTTP status.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// NewNoRedirectClient returns an http client that surfaces redirects to the caller instead of following them.
func NewNoRedirectClient(tlsConfig *tls.Config) *http.Client {
	return &http.Client{
		Timeout: defaultTimeout,
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error { // do not follow redirects
			return http.ErrUseLastResponse
		},
	}
}

// Get fetches url and returns the body of a 200 response. Any other status yields *StatusError.
func Get(ctx context.Context, client Doer, url string, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}

	defer CloseResponseBody(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: body}
	}

	return body, nil
}

// CloseResponseBody closes the response body.
func CloseResponseBody(respBody io.Closer) {
	if err := respBody.Close(); err != nil {
		logger.Warn("Failed to close response body", log.WithError(err))
	}
}
