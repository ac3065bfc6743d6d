/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package testutil creates throwaway PKI material for tests.
package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// PKI is a root CA and a leaf certificate issued by it.
type PKI struct {
	RootKey  *ecdsa.PrivateKey
	Root     *x509.Certificate
	LeafKey  *ecdsa.PrivateKey
	Leaf     *x509.Certificate
	RootPool *x509.CertPool
}

// NewPKI creates a P-256 root CA and a leaf certificate with the given dNSName SANs.
func NewPKI(t *testing.T, dnsNames ...string) *PKI {
	t.Helper()

	rootKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	rootTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test Root CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().AddDate(10, 0, 0),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            1,
	}

	rootDER, err := x509.CreateCertificate(rand.Reader, rootTemplate, rootTemplate, &rootKey.PublicKey, rootKey)
	require.NoError(t, err)

	root, err := x509.ParseCertificate(rootDER)
	require.NoError(t, err)

	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	leafTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "Test Verifier"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().AddDate(1, 0, 0),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     dnsNames,
	}

	leafDER, err := x509.CreateCertificate(rand.Reader, leafTemplate, root, &leafKey.PublicKey, rootKey)
	require.NoError(t, err)

	leaf, err := x509.ParseCertificate(leafDER)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(root)

	return &PKI{
		RootKey:  rootKey,
		Root:     root,
		LeafKey:  leafKey,
		Leaf:     leaf,
		RootPool: pool,
	}
}

// X5C returns the leaf-first chain in x5c header form.
func (p *PKI) X5C() []interface{} {
	return []interface{}{
		base64.StdEncoding.EncodeToString(p.Leaf.Raw),
		base64.StdEncoding.EncodeToString(p.Root.Raw),
	}
}

// ChainPEM returns the leaf-first chain PEM encoded.
func (p *PKI) ChainPEM() []byte {
	var out []byte

	for _, c := range []*x509.Certificate{p.Leaf, p.Root} {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.Raw})...)
	}

	return out
}
