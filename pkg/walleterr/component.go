/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package walleterr

type Component string

const (
	RequestResolverComponent      Component = "oidc4vp.request-resolver"
	TokenResponderComponent       Component = "oidc4vp.token-responder"
	PresentationExchangeComponent Component = "presentation-exchange"
	PairwiseAccountComponent      Component = "pairwise-account"
	KeyStoreComponent             Component = "key-store"
	JWTEngineComponent            Component = "jwt-engine"
	SDJWTCodecComponent           Component = "sd-jwt-codec"
	CredentialIssuanceComponent   Component = "oidc4vci.client"
	SharingServiceComponent       Component = "sharing-service"
	CredentialStoreComponent      Component = "credential-store"
	HistoryStoreComponent         Component = "history-store"
	CommentCredentialComponent    Component = "comment-credential-issuer"
)

// Kind classifies an error for the caller.
type Kind string

const (
	// KindInput is a malformed request URI, a missing required parameter or a non-compliant
	// combination of parameters.
	KindInput Kind = "input"
	// KindClient is a bad request shape or a compliance violation on the verifier/issuer side.
	KindClient Kind = "client"
	// KindServer is a non-2xx HTTP response from an issuer or verifier endpoint.
	KindServer Kind = "server"
	// KindState is an engine invoked out of order or without a configured key.
	KindState Kind = "state"
)
