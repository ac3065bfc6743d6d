/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package walletcmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	cmdutils "github.com/trustbloc/cmdutil-go/pkg/utils/cmd"

	"github.com/trustbloc/vcwallet/cmd/common"
	"github.com/trustbloc/vcwallet/pkg/kms"
	"github.com/trustbloc/vcwallet/pkg/observability/tracing"
)

const (
	commonEnvVarUsageText = "Alternatively, this can be set with the following environment variable: "

	mnemonicFlagName  = "mnemonic"
	mnemonicEnvKey    = "WALLET_MNEMONIC"
	mnemonicFlagUsage = "BIP39 mnemonic the pairwise accounts and holder keys are derived from. " +
		commonEnvVarUsageText + mnemonicEnvKey

	passphraseFlagName  = "passphrase"
	passphraseEnvKey    = "WALLET_PASSPHRASE"
	passphraseFlagUsage = "Optional BIP39 passphrase. " + commonEnvVarUsageText + passphraseEnvKey

	tlsInsecureFlagName  = "tls-insecure"
	tlsInsecureEnvKey    = "WALLET_TLS_INSECURE"
	tlsInsecureFlagUsage = "Skip TLS certificate verification of verifier and issuer endpoints. " +
		"Possible values: true, false (default: false). " + commonEnvVarUsageText + tlsInsecureEnvKey

	awsKMSRegionFlagName  = "aws-kms-region"
	awsKMSRegionEnvKey    = "WALLET_AWS_KMS_REGION"
	awsKMSRegionFlagUsage = "Keep the holder keys in AWS KMS in the given region instead of deriving them " +
		"from the mnemonic. " + commonEnvVarUsageText + awsKMSRegionEnvKey

	awsKMSEndpointFlagName  = "aws-kms-endpoint"
	awsKMSEndpointEnvKey    = "WALLET_AWS_KMS_ENDPOINT"
	awsKMSEndpointFlagUsage = "Optional AWS KMS endpoint override. " + commonEnvVarUsageText + awsKMSEndpointEnvKey

	awsKMSAliasPrefixFlagName  = "aws-kms-alias-prefix"
	awsKMSAliasPrefixEnvKey    = "WALLET_AWS_KMS_ALIAS_PREFIX"
	awsKMSAliasPrefixFlagUsage = "Optional prefix of the AWS KMS key aliases. " +
		commonEnvVarUsageText + awsKMSAliasPrefixEnvKey

	commentDomainsFlagName  = "comment-domains"
	commentDomainsEnvKey    = "WALLET_COMMENT_DOMAINS"
	commentDomainsFlagUsage = "Comma-separated relying-party host suffixes that receive comment credentials. " +
		commonEnvVarUsageText + commentDomainsEnvKey

	localeFlagName  = "locale"
	localeEnvKey    = "WALLET_LOCALE"
	localeFlagUsage = "Locale of issuer and credential display names. " + commonEnvVarUsageText + localeEnvKey

	clientIDFlagName  = "client-id"
	clientIDEnvKey    = "WALLET_CLIENT_ID"
	clientIDFlagUsage = "Wallet client_id sent to credential issuers. " + commonEnvVarUsageText + clientIDEnvKey

	metricsProviderFlagName  = "metrics-provider-name"
	metricsProviderEnvKey    = "WALLET_METRICS_PROVIDER_NAME"
	metricsProviderFlagUsage = "The metrics provider name (for example: 'prometheus' etc.). " +
		commonEnvVarUsageText + metricsProviderEnvKey

	promHTTPURLFlagName  = "prom-http-url"
	promHTTPURLEnvKey    = "WALLET_PROM_HTTP_URL"
	promHTTPURLFlagUsage = "Address the prometheus metrics endpoint is served on while a command runs. " +
		"Format: HostName:Port. " + commonEnvVarUsageText + promHTTPURLEnvKey

	tracingExporterFlagName  = "tracing-exporter"
	tracingExporterEnvKey    = "WALLET_TRACING_EXPORTER"
	tracingExporterFlagUsage = "Span exporter type. Supported options: JAEGER, STDOUT. Tracing is off when not set. " +
		commonEnvVarUsageText + tracingExporterEnvKey

	tracingServiceNameFlagName  = "tracing-service-name"
	tracingServiceNameEnvKey    = "WALLET_TRACING_SERVICE_NAME"
	tracingServiceNameFlagUsage = "Service name reported with the spans. Default: " + defaultTracingServiceName + ". " +
		commonEnvVarUsageText + tracingServiceNameEnvKey

	s3RegionFlagName  = "s3-region"
	s3RegionEnvKey    = "WALLET_S3_REGION"
	s3RegionFlagUsage = "Region of the S3 bucket used by s3:// backup locations. " +
		commonEnvVarUsageText + s3RegionEnvKey

	s3EndpointFlagName  = "s3-endpoint"
	s3EndpointEnvKey    = "WALLET_S3_ENDPOINT"
	s3EndpointFlagUsage = "Optional endpoint of an S3-compatible server for s3:// backup locations. " +
		commonEnvVarUsageText + s3EndpointEnvKey

	defaultTracingServiceName = "wallet-cli"
	prometheusProviderName    = "prometheus"
)

type walletParameters struct {
	logLevel        string
	mnemonic        string
	passphrase      string
	tlsInsecure     bool
	commentDomains  []string
	locale          string
	clientID        string
	dbParameters    *common.DBParameters
	kmsConfig       *kms.Config
	metricsProvider string
	promHTTPURL     string
	s3Region        string
	s3Endpoint      string
	tracingParams   *tracingParams
}

type tracingParams struct {
	exporter    tracing.SpanExporterType
	serviceName string
}

func getWalletParameters(cmd *cobra.Command) (*walletParameters, error) {
	mnemonic, err := cmdutils.GetUserSetVarFromString(cmd, mnemonicFlagName, mnemonicEnvKey, false)
	if err != nil {
		return nil, err
	}

	tlsInsecure, err := getBool(cmd, tlsInsecureFlagName, tlsInsecureEnvKey)
	if err != nil {
		return nil, err
	}

	dbParameters, err := common.DBParams(cmd)
	if err != nil {
		return nil, err
	}

	metricsProvider := cmdutils.GetUserSetOptionalVarFromString(cmd, metricsProviderFlagName, metricsProviderEnvKey)

	var promHTTPURL string

	switch metricsProvider {
	case "":
	case prometheusProviderName:
		promHTTPURL = cmdutils.GetUserSetOptionalVarFromString(cmd, promHTTPURLFlagName, promHTTPURLEnvKey)
	default:
		return nil, fmt.Errorf("unsupported metrics provider: %s", metricsProvider)
	}

	tracingParameters, err := getTracingParams(cmd)
	if err != nil {
		return nil, err
	}

	return &walletParameters{
		logLevel:        cmdutils.GetUserSetOptionalVarFromString(cmd, common.LogLevelFlagName, common.LogLevelEnvKey),
		mnemonic:        mnemonic,
		passphrase:      cmdutils.GetUserSetOptionalVarFromString(cmd, passphraseFlagName, passphraseEnvKey),
		tlsInsecure:     tlsInsecure,
		commentDomains:  cmdutils.GetUserSetOptionalCSVVar(cmd, commentDomainsFlagName, commentDomainsEnvKey),
		locale:          cmdutils.GetUserSetOptionalVarFromString(cmd, localeFlagName, localeEnvKey),
		clientID:        cmdutils.GetUserSetOptionalVarFromString(cmd, clientIDFlagName, clientIDEnvKey),
		dbParameters:    dbParameters,
		kmsConfig:       getKMSConfig(cmd),
		metricsProvider: metricsProvider,
		promHTTPURL:     promHTTPURL,
		s3Region:        cmdutils.GetUserSetOptionalVarFromString(cmd, s3RegionFlagName, s3RegionEnvKey),
		s3Endpoint:      cmdutils.GetUserSetOptionalVarFromString(cmd, s3EndpointFlagName, s3EndpointEnvKey),
		tracingParams:   tracingParameters,
	}, nil
}

func getKMSConfig(cmd *cobra.Command) *kms.Config {
	cfg := &kms.Config{
		KMSType:     kms.Local,
		Region:      cmdutils.GetUserSetOptionalVarFromString(cmd, awsKMSRegionFlagName, awsKMSRegionEnvKey),
		Endpoint:    cmdutils.GetUserSetOptionalVarFromString(cmd, awsKMSEndpointFlagName, awsKMSEndpointEnvKey),
		AliasPrefix: cmdutils.GetUserSetOptionalVarFromString(cmd, awsKMSAliasPrefixFlagName, awsKMSAliasPrefixEnvKey),
	}

	if cfg.Region != "" {
		cfg.KMSType = kms.AWS
	}

	return cfg
}

func getTracingParams(cmd *cobra.Command) (*tracingParams, error) {
	params := &tracingParams{
		exporter: strings.ToUpper(
			cmdutils.GetUserSetOptionalVarFromString(cmd, tracingExporterFlagName, tracingExporterEnvKey)),
		serviceName: cmdutils.GetUserSetOptionalVarFromString(cmd, tracingServiceNameFlagName, tracingServiceNameEnvKey),
	}

	if !tracing.IsExportedSupported(params.exporter) {
		return nil, fmt.Errorf("unsupported tracing exporter: %s", params.exporter)
	}

	if params.serviceName == "" {
		params.serviceName = defaultTracingServiceName
	}

	return params, nil
}

func getBool(cmd *cobra.Command, flagName, envKey string) (bool, error) {
	value := cmdutils.GetUserSetOptionalVarFromString(cmd, flagName, envKey)
	if value == "" {
		return false, nil
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid value of %s [%s]: %w", flagName, value, err)
	}

	return b, nil
}

func createFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringP(common.LogLevelFlagName, common.LogLevelFlagShorthand, "", common.LogLevelPrefixFlagUsage)
	flags.StringP(mnemonicFlagName, "", "", mnemonicFlagUsage)
	flags.StringP(passphraseFlagName, "", "", passphraseFlagUsage)
	flags.StringP(tlsInsecureFlagName, "", "", tlsInsecureFlagUsage)
	flags.StringP(awsKMSRegionFlagName, "", "", awsKMSRegionFlagUsage)
	flags.StringP(awsKMSEndpointFlagName, "", "", awsKMSEndpointFlagUsage)
	flags.StringP(awsKMSAliasPrefixFlagName, "", "", awsKMSAliasPrefixFlagUsage)
	flags.StringSliceP(commentDomainsFlagName, "", []string{}, commentDomainsFlagUsage)
	flags.StringP(localeFlagName, "", "", localeFlagUsage)
	flags.StringP(clientIDFlagName, "", "", clientIDFlagUsage)
	flags.StringP(metricsProviderFlagName, "", "", metricsProviderFlagUsage)
	flags.StringP(promHTTPURLFlagName, "", "", promHTTPURLFlagUsage)
	flags.StringP(tracingExporterFlagName, "", "", tracingExporterFlagUsage)
	flags.StringP(tracingServiceNameFlagName, "", "", tracingServiceNameFlagUsage)
	flags.StringP(s3RegionFlagName, "", "", s3RegionFlagUsage)
	flags.StringP(s3EndpointFlagName, "", "", s3EndpointFlagUsage)

	common.Flags(cmd)
}
