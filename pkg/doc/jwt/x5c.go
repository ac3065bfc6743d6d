/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"context"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/trustbloc/vcwallet/internal/httputil"
)

var (
	ErrMissingCertificateChain = errors.New("missing certificate chain")
	ErrUntrustedChain          = errors.New("untrusted certificate chain")
	ErrSANMismatch             = errors.New("host is not a dNSName SAN of the certificate")
)

type trustOptions struct {
	roots           *x509.CertPool
	skipChain       bool
	allowSelfSigned bool
	currentTime     time.Time
}

// TrustOpt configures certificate chain validation.
type TrustOpt func(*trustOptions)

// WithRootCAs sets the trust anchors. The system pool is used when not set.
func WithRootCAs(pool *x509.CertPool) TrustOpt {
	return func(o *trustOptions) {
		o.roots = pool
	}
}

// WithSkipChainValidation verifies only the signature with the leaf key.
func WithSkipChainValidation() TrustOpt {
	return func(o *trustOptions) {
		o.skipChain = true
	}
}

// WithAllowSelfSigned accepts a chain whose last certificate is its own anchor.
func WithAllowSelfSigned() TrustOpt {
	return func(o *trustOptions) {
		o.allowSelfSigned = true
	}
}

// WithCurrentTime sets the time the chain validity is checked at.
func WithCurrentTime(t time.Time) TrustOpt {
	return func(o *trustOptions) {
		o.currentTime = t
	}
}

// ParseX5C decodes the x5c header (standard base64 DER certificates, leaf first).
func (t *Token) ParseX5C() ([]*x509.Certificate, error) {
	raw, ok := t.Header[HeaderX5C].([]interface{})
	if !ok || len(raw) == 0 {
		return nil, ErrMissingCertificateChain
	}

	certs := make([]*x509.Certificate, 0, len(raw))

	for i, entry := range raw {
		s, isString := entry.(string)
		if !isString {
			return nil, fmt.Errorf("x5c[%d] is not a string", i)
		}

		der, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("decode x5c[%d]: %w", i, err)
		}

		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("parse x5c[%d]: %w", i, err)
		}

		certs = append(certs, cert)
	}

	return certs, nil
}

// VerifyByX5C verifies the token with the public key of the leaf certificate in its x5c header and then
// validates the certificate chain. Both steps must pass.
func VerifyByX5C(token string, opts ...TrustOpt) (*Token, []*x509.Certificate, error) {
	t, err := Parse(token)
	if err != nil {
		return nil, nil, err
	}

	certs, err := t.ParseX5C()
	if err != nil {
		return nil, nil, err
	}

	if err = verifyWithChain(t, certs, opts...); err != nil {
		return nil, nil, err
	}

	return t, certs, nil
}

// VerifyByX5U is VerifyByX5C with the certificate chain fetched from the x5u header URL as PEM or DER.
func VerifyByX5U(
	ctx context.Context,
	token string,
	client httputil.Doer,
	opts ...TrustOpt,
) (*Token, []*x509.Certificate, error) {
	t, err := Parse(token)
	if err != nil {
		return nil, nil, err
	}

	x5u := t.headerString(HeaderX5U)
	if x5u == "" {
		return nil, nil, ErrMissingCertificateChain
	}

	body, err := httputil.Get(ctx, client, x5u, "")
	if err != nil {
		return nil, nil, fmt.Errorf("fetch x5u: %w", err)
	}

	certs, err := parseCertificates(body)
	if err != nil {
		return nil, nil, err
	}

	if err = verifyWithChain(t, certs, opts...); err != nil {
		return nil, nil, err
	}

	return t, certs, nil
}

func verifyWithChain(t *Token, certs []*x509.Certificate, opts ...TrustOpt) error {
	if len(certs) == 0 {
		return ErrMissingCertificateChain
	}

	if err := t.VerifySignature(certs[0].PublicKey); err != nil {
		return err
	}

	return VerifyCertificateChain(certs, opts...)
}

// VerifyCertificateChain validates certs (leaf first) against the configured roots.
func VerifyCertificateChain(certs []*x509.Certificate, opts ...TrustOpt) error {
	o := &trustOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.skipChain {
		return nil
	}

	if len(certs) == 0 {
		return ErrMissingCertificateChain
	}

	roots := o.roots

	if o.allowSelfSigned {
		if roots == nil {
			roots = x509.NewCertPool()
		} else {
			roots = roots.Clone()
		}

		roots.AddCert(certs[len(certs)-1])
	}

	intermediates := x509.NewCertPool()

	if len(certs) > 1 {
		lo.ForEach(certs[1:], func(c *x509.Certificate, _ int) {
			intermediates.AddCert(c)
		})
	}

	verifyOpts := x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
		CurrentTime:   o.currentTime,
	}

	if _, err := certs[0].Verify(verifyOpts); err != nil {
		return fmt.Errorf("%w: %v", ErrUntrustedChain, err)
	}

	return nil
}

// VerifySANDNSName checks that host is listed as a dNSName subject alternative name of cert.
func VerifySANDNSName(cert *x509.Certificate, host string) error {
	if cert == nil || !lo.Contains(cert.DNSNames, host) {
		return fmt.Errorf("%w: %s", ErrSANMismatch, host)
	}

	return nil
}

func parseCertificates(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate

	rest := data

	for {
		var block *pem.Block

		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse certificate: %w", err)
		}

		certs = append(certs, cert)
	}

	if len(certs) > 0 {
		return certs, nil
	}

	certs, err := x509.ParseCertificates(data)
	if err != nil {
		return nil, fmt.Errorf("parse certificates: %w", err)
	}

	if len(certs) == 0 {
		return nil, ErrMissingCertificateChain
	}

	return certs, nil
}
