/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oidc4vp

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/trustbloc/vcwallet/internal/jsonutil"
	"github.com/trustbloc/vcwallet/pkg/doc/presexch"
)

type ResponseMode string

const (
	ResponseModeFragment      ResponseMode = "fragment"
	ResponseModeQuery         ResponseMode = "query"
	ResponseModeDirectPost    ResponseMode = "direct_post"
	ResponseModeDirectPostJWT ResponseMode = "direct_post.jwt"
	ResponseModePost          ResponseMode = "post"
)

func (m ResponseMode) valid() bool {
	switch m {
	case ResponseModeFragment, ResponseModeQuery, ResponseModeDirectPost, ResponseModeDirectPostJWT, ResponseModePost:
		return true
	default:
		return false
	}
}

// posted reports whether the response is sent to response_uri rather than redirect_uri.
func (m ResponseMode) posted() bool {
	return m == ResponseModeDirectPost || m == ResponseModeDirectPostJWT || m == ResponseModePost
}

const (
	ResponseTypeIDToken = "id_token"
	ResponseTypeVPToken = "vp_token"

	ClientIDSchemePreRegistered = "pre-registered"
	ClientIDSchemeRedirectURI   = "redirect_uri"
	ClientIDSchemeX509SANDNS    = "x509_san_dns"

	SchemeOpenID4VP = "openid4vp"
	SchemeSIOPv2    = "siopv2"
)

// AuthorizationRequest holds the parameters of an authorization request URI.
type AuthorizationRequest struct {
	ResponseType              string                           `json:"response_type,omitempty"`
	ClientID                  string                           `json:"client_id,omitempty"`
	ClientIDScheme            string                           `json:"client_id_scheme,omitempty"`
	RedirectURI               string                           `json:"redirect_uri,omitempty"`
	ResponseURI               string                           `json:"response_uri,omitempty"`
	ResponseMode              string                           `json:"response_mode,omitempty"`
	Scope                     string                           `json:"scope,omitempty"`
	State                     string                           `json:"state,omitempty"`
	Nonce                     string                           `json:"nonce,omitempty"`
	Request                   string                           `json:"request,omitempty"`
	RequestURI                string                           `json:"request_uri,omitempty"`
	ClientMetadata            *ClientMetadata                  `json:"client_metadata,omitempty"`
	ClientMetadataURI         string                           `json:"client_metadata_uri,omitempty"`
	PresentationDefinition    *presexch.PresentationDefinition `json:"presentation_definition,omitempty"`
	PresentationDefinitionURI string                           `json:"presentation_definition_uri,omitempty"`
}

// RequestObject is the payload of a request object JWT. Its fields take precedence over the
// same-named fields of the authorization request.
type RequestObject struct {
	AuthorizationRequest

	Issuer    string               `json:"iss,omitempty"`
	Audience  interface{}          `json:"aud,omitempty"`
	IssuedAt  int64                `json:"iat,omitempty"`
	ExpiresAt int64                `json:"exp,omitempty"`
	Claims    *RequestObjectClaims `json:"claims,omitempty"`
}

type RequestObjectClaims struct {
	VPToken *VPTokenClaim `json:"vp_token,omitempty"`
}

type VPTokenClaim struct {
	PresentationDefinition *presexch.PresentationDefinition `json:"presentation_definition,omitempty"`
}

// ClientMetadata is the verifier metadata.
type ClientMetadata struct {
	ClientID                         string                 `json:"client_id,omitempty"`
	ClientName                       string                 `json:"client_name,omitempty"`
	LogoURI                          string                 `json:"logo_uri,omitempty"`
	PolicyURI                        string                 `json:"policy_uri,omitempty"`
	TosURI                           string                 `json:"tos_uri,omitempty"`
	ClientPurpose                    string                 `json:"client_purpose,omitempty"`
	JWKSURI                          string                 `json:"jwks_uri,omitempty"`
	JWKS                             json.RawMessage        `json:"jwks,omitempty"`
	VPFormats                        map[string]interface{} `json:"vp_formats,omitempty"`
	SubjectSyntaxTypesSupported      []string               `json:"subject_syntax_types_supported,omitempty"`
	IDTokenSigningAlgValuesSupported []string               `json:"id_token_signing_alg_values_supported,omitempty"`
}

// ResolvedRequest is a validated authorization request. It is immutable: accessors return copies.
type ResolvedRequest struct {
	requestURI             string
	authRequest            AuthorizationRequest
	requestObject          *RequestObject
	clientMetadata         ClientMetadata
	presentationDefinition *presexch.PresentationDefinition
	signed                 bool
	responseType           string
	responseMode           ResponseMode
	destination            string
	clientIDScheme         string
	nonce                  string
	state                  string
}

func (r *ResolvedRequest) RequestURI() string {
	return r.requestURI
}

func (r *ResolvedRequest) ClientID() string {
	return r.authRequest.ClientID
}

func (r *ResolvedRequest) ClientIDScheme() string {
	return r.clientIDScheme
}

func (r *ResolvedRequest) ResponseType() string {
	return r.responseType
}

func (r *ResolvedRequest) ResponseMode() ResponseMode {
	return r.responseMode
}

// Destination is the response_uri for posted response modes and the redirect_uri otherwise.
func (r *ResolvedRequest) Destination() string {
	return r.destination
}

func (r *ResolvedRequest) Nonce() string {
	return r.nonce
}

func (r *ResolvedRequest) State() string {
	return r.state
}

// Signed reports whether the request object was signed and its signature verified.
func (r *ResolvedRequest) Signed() bool {
	return r.signed
}

func (r *ResolvedRequest) RequiresIDToken() bool {
	return hasResponseType(r.responseType, ResponseTypeIDToken)
}

func (r *ResolvedRequest) RequiresVPToken() bool {
	return hasResponseType(r.responseType, ResponseTypeVPToken)
}

func (r *ResolvedRequest) AuthorizationRequest() AuthorizationRequest {
	return *r.authRequest.Clone()
}

// RequestObject returns nil when the request was passed by value.
func (r *ResolvedRequest) RequestObject() *RequestObject {
	return r.requestObject.Clone()
}

func (r *ResolvedRequest) ClientMetadata() ClientMetadata {
	return *r.clientMetadata.Clone()
}

// PresentationDefinition returns nil when no vp_token was requested.
func (r *ResolvedRequest) PresentationDefinition() *presexch.PresentationDefinition {
	return r.presentationDefinition.Clone()
}

// Clone returns a deep copy of the request.
func (a *AuthorizationRequest) Clone() *AuthorizationRequest {
	if a == nil {
		return nil
	}

	c := *a
	c.ClientMetadata = a.ClientMetadata.Clone()
	c.PresentationDefinition = a.PresentationDefinition.Clone()

	return &c
}

// Clone returns a deep copy of the request object.
func (o *RequestObject) Clone() *RequestObject {
	if o == nil {
		return nil
	}

	c := *o
	c.AuthorizationRequest = *o.AuthorizationRequest.Clone()
	c.Audience = jsonutil.Clone(o.Audience)

	if o.Claims != nil {
		c.Claims = &RequestObjectClaims{}

		if o.Claims.VPToken != nil {
			c.Claims.VPToken = &VPTokenClaim{
				PresentationDefinition: o.Claims.VPToken.PresentationDefinition.Clone(),
			}
		}
	}

	return &c
}

// Clone returns a deep copy of the metadata.
func (m *ClientMetadata) Clone() *ClientMetadata {
	if m == nil {
		return nil
	}

	c := *m
	c.JWKS = jsonutil.CloneRaw(m.JWKS)
	c.VPFormats = jsonutil.CloneMap(m.VPFormats)
	c.SubjectSyntaxTypesSupported = jsonutil.CloneStrings(m.SubjectSyntaxTypesSupported)
	c.IDTokenSigningAlgValuesSupported = jsonutil.CloneStrings(m.IDTokenSigningAlgValuesSupported)

	return &c
}

func hasResponseType(responseType, want string) bool {
	for _, t := range strings.Fields(responseType) {
		if t == want {
			return true
		}
	}

	return false
}

// TokenSendResult is the outcome of sending an authorization response to the verifier.
type TokenSendResult struct {
	StatusCode int
	// Location is the redirect_uri returned by the verifier, if any.
	Location          string
	Cookies           []*http.Cookie
	SharedIDToken     *SharedIDToken
	SharedCredentials []*SharedCredential
}

// SharedIDToken describes the ID token sent to the verifier.
type SharedIDToken struct {
	Token   string
	Subject string
}

// SharedCredential describes one credential presented to the verifier.
type SharedCredential struct {
	ID                string
	Format            string
	Types             []string
	InputDescriptorID string
	Purpose           string
	SharedClaims      []SharedClaim
}

type SharedClaim struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value,omitempty"`
}
