/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oidc4vp

import (
	"github.com/trustbloc/vcwallet/pkg/walleterr"
)

// ErrorCode is an OpenID4VP/SIOPv2 error code reported by the resolver and the responder.
type ErrorCode string

const (
	// InvalidRequest is a malformed or incomplete authorization request.
	InvalidRequest ErrorCode = "invalid_request"
	// InvalidClient is a verifier identity that could not be established.
	InvalidClient ErrorCode = "invalid_client"
	// ComplianceViolation is a combination of parameters forbidden by the protocol.
	ComplianceViolation   ErrorCode = "compliance_violation"
	VPFormatsNotSupported ErrorCode = "vp_formats_not_supported"
	ServerError           ErrorCode = "server_error"
	// IllegalState is the responder invoked without the data it requires.
	IllegalState ErrorCode = "illegal_state"
)

// Error represents an OpenID4VP error.
type Error = walleterr.Error[ErrorCode]

func newInputError(code ErrorCode, err error) *Error {
	return walleterr.New(walleterr.KindInput, code, err).
		WithComponent(walleterr.RequestResolverComponent)
}

func newClientError(code ErrorCode, err error) *Error {
	return walleterr.New(walleterr.KindClient, code, err).
		WithComponent(walleterr.RequestResolverComponent)
}

func newServerError(err error, status int) *Error {
	return walleterr.New(walleterr.KindServer, ServerError, err).
		WithComponent(walleterr.TokenResponderComponent).
		WithHTTPStatusField(status)
}

func newStateError(err error) *Error {
	return walleterr.New(walleterr.KindState, IllegalState, err).
		WithComponent(walleterr.TokenResponderComponent)
}
