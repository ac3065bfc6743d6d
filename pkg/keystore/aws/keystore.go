/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

//go:generate mockgen -destination keystore_mocks_test.go -package aws -source=keystore.go

package aws

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"hash"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/btcsuite/btcd/btcec"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/vcwallet/pkg/doc/jwt"
	"github.com/trustbloc/vcwallet/pkg/keystore"
)

var logger = log.New("aws-keystore")

type awsClient interface {
	Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error)
	GetPublicKey(ctx context.Context, params *kms.GetPublicKeyInput,
		optFns ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error)
	DescribeKey(ctx context.Context, params *kms.DescribeKeyInput,
		optFns ...func(*kms.Options)) (*kms.DescribeKeyOutput, error)
	CreateKey(ctx context.Context, params *kms.CreateKeyInput,
		optFns ...func(*kms.Options)) (*kms.CreateKeyOutput, error)
	CreateAlias(ctx context.Context, params *kms.CreateAliasInput,
		optFns ...func(*kms.Options)) (*kms.CreateAliasOutput, error)
}

type metricsProvider interface {
	SignTime(value time.Duration)
}

type keySpecInfo struct {
	alg     string
	signAlg types.SigningAlgorithmSpec
	size    int
}

// nolint: gochecknoglobals
var keySpecs = map[types.KeySpec]keySpecInfo{
	types.KeySpecEccNistP256:   {alg: jwt.AlgES256, signAlg: types.SigningAlgorithmSpecEcdsaSha256, size: 32},
	types.KeySpecEccNistP384:   {alg: jwt.AlgES384, signAlg: types.SigningAlgorithmSpecEcdsaSha384, size: 48},
	types.KeySpecEccNistP521:   {alg: jwt.AlgES512, signAlg: types.SigningAlgorithmSpecEcdsaSha512, size: 66},
	types.KeySpecEccSecgP256k1: {alg: jwt.AlgES256K, signAlg: types.SigningAlgorithmSpecEcdsaSha256, size: 32},
}

// nolint: gochecknoglobals
var curveKeySpecs = map[string]types.KeySpec{
	jwt.CurveP256:      types.KeySpecEccNistP256,
	jwt.CurveP384:      types.KeySpecEccNistP384,
	jwt.CurveP521:      types.KeySpecEccNistP521,
	jwt.CurveSecp256k1: types.KeySpecEccSecgP256k1,
}

// KeyStore is a keystore.KeyStore whose keys live in AWS KMS under alias names.
type KeyStore struct {
	options *opts
	client  awsClient
	metrics metricsProvider
}

var _ keystore.KeyStore = (*KeyStore)(nil)

// New return aws key store.
func New(awsConfig *aws.Config, metrics metricsProvider, opts ...Opts) *KeyStore {
	options := newOpts()

	for _, opt := range opts {
		opt(options)
	}

	client := options.awsClient
	if client == nil {
		client = kms.NewFromConfig(*awsConfig)
	}

	return &KeyStore{
		options: options,
		client:  client,
		metrics: metrics,
	}
}

// Signer returns a signer bound to the KMS key behind alias.
func (k *KeyStore) Signer(ctx context.Context, alias keystore.Alias) (jwt.Signer, error) {
	keyID := k.keyID(alias)

	describeKey, err := k.client.DescribeKey(ctx, &kms.DescribeKeyInput{KeyId: aws.String(keyID)})
	if err != nil {
		return nil, k.wrapNotFound(alias, err)
	}

	spec, ok := keySpecs[describeKey.KeyMetadata.KeySpec]
	if !ok {
		return nil, fmt.Errorf("%w: kms key spec %s", jwt.ErrUnsupportedKey, describeKey.KeyMetadata.KeySpec)
	}

	return &signer{ctx: ctx, store: k, keyID: keyID, spec: spec}, nil
}

// PublicJWK exports the public key behind alias.
func (k *KeyStore) PublicJWK(ctx context.Context, alias keystore.Alias) (*jwt.JWK, error) {
	result, err := k.client.GetPublicKey(ctx, &kms.GetPublicKeyInput{KeyId: aws.String(k.keyID(alias))})
	if err != nil {
		return nil, k.wrapNotFound(alias, err)
	}

	pub, err := parsePublicKey(result.PublicKey, result.KeySpec)
	if err != nil {
		return nil, fmt.Errorf("parse kms public key: %w", err)
	}

	return jwt.JWKFromPublicKey(pub)
}

// Generate creates a KMS signing key on curve and points alias at it.
func (k *KeyStore) Generate(ctx context.Context, alias keystore.Alias, curve string) (*jwt.JWK, error) {
	keySpec, ok := curveKeySpecs[curve]
	if !ok {
		return nil, fmt.Errorf("%w: crv %q", jwt.ErrUnsupportedKey, curve)
	}

	result, err := k.client.CreateKey(ctx,
		&kms.CreateKeyInput{KeySpec: keySpec, KeyUsage: types.KeyUsageTypeSignVerify})
	if err != nil {
		return nil, fmt.Errorf("create kms key: %w", err)
	}

	aliasName := k.keyID(alias)

	_, err = k.client.CreateAlias(ctx,
		&kms.CreateAliasInput{AliasName: &aliasName, TargetKeyId: result.KeyMetadata.KeyId})
	if err != nil {
		return nil, fmt.Errorf("create kms alias: %w", err)
	}

	logger.Infoc(ctx, "kms key created", log.WithID(aws.ToString(result.KeyMetadata.KeyId)))

	return k.PublicJWK(ctx, alias)
}

func (k *KeyStore) keyID(alias keystore.Alias) string {
	if prefix := strings.TrimSpace(k.options.keyAliasPrefix); prefix != "" {
		return fmt.Sprintf("alias/%s_%s", prefix, alias)
	}

	return fmt.Sprintf("alias/%s", alias)
}

func (k *KeyStore) wrapNotFound(alias keystore.Alias, err error) error {
	var notFound *types.NotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s", keystore.ErrKeyNotFound, alias)
	}

	return fmt.Errorf("kms key %s: %w", alias, err)
}

type signer struct {
	ctx   context.Context //nolint:containedctx
	store *KeyStore
	keyID string
	spec  keySpecInfo
}

func (s *signer) Algorithm() string {
	return s.spec.alg
}

func (s *signer) Sign(data []byte) ([]byte, error) {
	startTime := time.Now()

	defer func() {
		if s.store.metrics != nil {
			s.store.metrics.SignTime(time.Since(startTime))
		}
	}()

	digest, err := hashMessage(data, s.spec.signAlg)
	if err != nil {
		return nil, err
	}

	result, err := s.store.client.Sign(s.ctx, &kms.SignInput{
		KeyId:            aws.String(s.keyID),
		Message:          digest,
		MessageType:      types.MessageTypeDigest,
		SigningAlgorithm: s.spec.signAlg,
	})
	if err != nil {
		return nil, fmt.Errorf("kms sign: %w", err)
	}

	return jwt.DERToRaw(result.Signature, s.spec.size)
}

type subjectPublicKeyInfo struct {
	Algorithm pkix.AlgorithmIdentifier
	PublicKey asn1.BitString
}

func parsePublicKey(der []byte, keySpec types.KeySpec) (*ecdsa.PublicKey, error) {
	if keySpec == types.KeySpecEccSecgP256k1 {
		var spki subjectPublicKeyInfo

		if _, err := asn1.Unmarshal(der, &spki); err != nil {
			return nil, err
		}

		pub, err := btcec.ParsePubKey(spki.PublicKey.Bytes, btcec.S256())
		if err != nil {
			return nil, err
		}

		return pub.ToECDSA(), nil
	}

	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, err
	}

	pub, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: %T", jwt.ErrUnsupportedKey, key)
	}

	return pub, nil
}

func hashMessage(message []byte, algorithm types.SigningAlgorithmSpec) ([]byte, error) {
	var digest hash.Hash

	switch algorithm { //nolint: exhaustive
	case types.SigningAlgorithmSpecEcdsaSha256:
		digest = sha256.New()
	case types.SigningAlgorithmSpecEcdsaSha384:
		digest = sha512.New384()
	case types.SigningAlgorithmSpecEcdsaSha512:
		digest = sha512.New()
	default:
		return nil, fmt.Errorf("unknown signing algorithm %s", algorithm)
	}

	digest.Write(message)

	return digest.Sum(nil), nil
}
