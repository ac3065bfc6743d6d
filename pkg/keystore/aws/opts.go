/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package aws

import (
	"os"
)

type opts struct {
	keyAliasPrefix string
	awsClient      awsClient
}

func newOpts() *opts {
	value, _ := os.LookupEnv("AWS_KEY_ALIAS_PREFIX")

	return &opts{
		keyAliasPrefix: value,
	}
}

// Opts a Functional Options.
type Opts func(opts *opts)

// WithKeyAliasPrefix sets the prefix of the KMS alias names created for key store aliases.
func WithKeyAliasPrefix(prefix string) Opts {
	return func(opts *opts) { opts.keyAliasPrefix = prefix }
}

// WithAWSClient sets custom AWS client.
func WithAWSClient(client awsClient) Opts {
	return func(opts *opts) { opts.awsClient = client }
}
