/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kms

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awskms "github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/vcwallet/pkg/account"
	"github.com/trustbloc/vcwallet/pkg/keystore"
	awsks "github.com/trustbloc/vcwallet/pkg/keystore/aws"
)

var logger = log.New("kms")

type Type string

const (
	AWS   Type = "aws"
	Local Type = "local"
)

// Holder keys of the local key store are P-256 keys derived from the seed at the top of the non-hardened
// index range, far above any pairwise account index.
const (
	bindingKeyIndex = 1<<31 - 1
	jwtVPJSONIndex  = 1<<31 - 2
)

// Config configures the key store that holds the holder's non-derived signing keys.
type Config struct {
	KMSType     Type `json:"kmsType"`
	Endpoint    string
	Region      string
	AliasPrefix string
}

type metricsProvider interface {
	SignTime(value time.Duration)
}

// NewKeyStore creates the key store selected by cfg.KMSType. The local key store is seeded from keyring so that
// credentials bound to the holder key stay presentable across runs.
func NewKeyStore(
	ctx context.Context,
	cfg *Config,
	keyring *account.Keyring,
	metrics metricsProvider,
) (keystore.KeyStore, error) {
	switch cfg.KMSType {
	case Local, "":
		local := keystore.NewLocal()

		if err := importHolderKeys(local, keyring); err != nil {
			return nil, err
		}

		return local, nil
	case AWS:
		var opts []func(*awsconfig.LoadOptions) error

		if cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Region))
		}

		if cfg.Endpoint != "" {
			opts = append(opts, awsconfig.WithEndpointResolverWithOptions(endpointResolver(cfg.Endpoint, cfg.Region)))
		}

		awsConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}

		logger.Debug("using AWS KMS key store", log.WithURL(cfg.Endpoint))

		return awsks.New(&awsConfig, metrics, awsks.WithKeyAliasPrefix(cfg.AliasPrefix)), nil
	default:
		return nil, fmt.Errorf("unsupported kms type: %s", cfg.KMSType)
	}
}

func importHolderKeys(local *keystore.Local, keyring *account.Keyring) error {
	if keyring == nil {
		return nil
	}

	for alias, index := range map[keystore.Alias]int{
		keystore.KeyBinding: bindingKeyIndex,
		keystore.JWTVPJSON:  jwtVPJSONIndex,
	} {
		key, err := keyring.P256PrivateKey(index)
		if err != nil {
			return fmt.Errorf("derive %s: %w", alias, err)
		}

		local.Import(alias, key)
	}

	return nil
}

func endpointResolver(endpoint, signingRegion string) aws.EndpointResolverWithOptionsFunc {
	return func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if service == awskms.ServiceID {
			return aws.Endpoint{
				URL:           endpoint,
				SigningRegion: signingRegion,
			}, nil
		}

		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	}
}
