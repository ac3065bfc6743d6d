/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oidc4vci

import (
	"errors"

	"github.com/trustbloc/vcwallet/internal/httputil"
	"github.com/trustbloc/vcwallet/pkg/walleterr"
)

// ErrorCode of an issuance failure.
type ErrorCode string

const (
	InvalidCredentialOffer      ErrorCode = "invalid_credential_offer"
	UnsupportedGrantType        ErrorCode = "unsupported_grant_type"
	TxCodeRequired              ErrorCode = "tx_code_required"
	InvalidMetadata             ErrorCode = "invalid_metadata"
	UnsupportedCredentialFormat ErrorCode = "unsupported_credential_format"
	DeferredIssuance            ErrorCode = "deferred_issuance"
	ProofError                  ErrorCode = "proof_error"
	ServerError                 ErrorCode = "server_error"
)

// Error represents an issuance error.
type Error = walleterr.Error[ErrorCode]

func newError(kind walleterr.Kind, code ErrorCode, err error) *Error {
	return walleterr.New(kind, code, err).WithComponent(walleterr.CredentialIssuanceComponent)
}

// serverError carries the status of a non-2xx endpoint response.
func serverError(operation string, err error) *Error {
	e := newError(walleterr.KindServer, ServerError, err).WithOperation(operation)

	var statusErr *httputil.StatusError
	if errors.As(err, &statusErr) {
		e = e.WithHTTPStatusField(statusErr.StatusCode)
	}

	return e
}
