/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"strings"

	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/vcwallet/internal/logfields"
)

const (
	// LogLevelFlagName is the flag name used for setting the log levels.
	LogLevelFlagName = "log-level"
	// LogLevelEnvKey is the env var name used for setting the log levels.
	LogLevelEnvKey = "WALLET_LOG_LEVEL"
	// LogLevelFlagShorthand is the shorthand flag name used for setting the log levels.
	LogLevelFlagShorthand = "l"
	// LogLevelPrefixFlagUsage is the usage text for the log level flag.
	LogLevelPrefixFlagUsage = "Sets logging levels for individual modules as well as the default level. " +
		"The format of the string is as follows: module1=level1:module2=level2:defaultLevel. " +
		"Supported levels are: PANIC, FATAL, ERROR, WARNING, INFO, DEBUG. " +
		"Example: oidc4vp=DEBUG:sharing=WARNING:ERROR. " +
		"Defaults to info if not set. Alternatively, this can be set with the following environment variable: " +
		LogLevelEnvKey
)

const supportedLevels = "PANIC, FATAL, ERROR, WARNING, INFO, DEBUG"

// SetDefaultLogLevel applies a log spec of the form module1=level1:module2=level2:defaultLevel.
// Invalid entries are reported on logger and skipped; an invalid default level falls back to INFO.
func SetDefaultLogLevel(logger *log.Log, spec string) {
	defaultLevel := log.INFO

	for _, entry := range strings.Split(spec, ":") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		module, levelName, isModule := strings.Cut(entry, "=")
		if !isModule {
			levelName = entry
		}

		level, err := log.ParseLevel(levelName)
		if err != nil {
			logger.Warn("Invalid log level, it must be one of: "+supportedLevels,
				logfields.WithUserLogLevel(entry))

			continue
		}

		if isModule {
			log.SetLevel(module, level)

			continue
		}

		defaultLevel = level
	}

	if defaultLevel == log.DEBUG {
		logger.Info(`Log level set to "debug". Performance may be adversely impacted.`)
	}

	log.SetLevel("", defaultLevel)
}
