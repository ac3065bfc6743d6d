/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

//go:generate mockgen -destination resolver_mocks_test.go -package oidc4vp -source=resolver.go

package oidc4vp

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/jinzhu/copier"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/vcwallet/internal/httputil"
	"github.com/trustbloc/vcwallet/internal/logfields"
	"github.com/trustbloc/vcwallet/pkg/doc/jwt"
	"github.com/trustbloc/vcwallet/pkg/doc/presexch"
	"github.com/trustbloc/vcwallet/pkg/walleterr"
)

var logger = log.New("oidc4vp")

const (
	requestObjectMediaType = "application/oauth-authz-req+jwt"
	jsonMediaType          = "application/json"

	algNone = "none"
)

var supportedVPFormats = []string{"vc+sd-jwt", "jwt_vp_json", "jwt_vc_json", "jwt_vp", "jwt_vc"} //nolint:gochecknoglobals

type resolverMetrics interface {
	ResolveTime(value time.Duration)
}

// ResolverConfig defines dependencies for the authorization request resolver.
type ResolverConfig struct {
	HTTPClient httputil.Doer
	// TrustOpts configure x5c chain validation of signed request objects.
	TrustOpts []jwt.TrustOpt
	Metrics   resolverMetrics
}

// Resolver resolves and validates OpenID4VP and SIOPv2 authorization requests.
type Resolver struct {
	httpClient httputil.Doer
	trustOpts  []jwt.TrustOpt
	metrics    resolverMetrics
}

// NewResolver returns a new Resolver instance.
func NewResolver(cfg *ResolverConfig) *Resolver {
	return &Resolver{
		httpClient: cfg.HTTPClient,
		trustOpts:  cfg.TrustOpts,
		metrics:    cfg.Metrics,
	}
}

// Resolve parses requestURI, fetches and verifies its request object and resolves the client metadata,
// the presentation definition and the response destination.
func (r *Resolver) Resolve(ctx context.Context, requestURI string) (*ResolvedRequest, error) {
	st := time.Now()

	defer func() {
		if r.metrics != nil {
			r.metrics.ResolveTime(time.Since(st))
		}
	}()

	logger.Debugc(ctx, "Resolve authorization request", logfields.WithRequestURI(requestURI))

	u, err := url.Parse(requestURI)
	if err != nil {
		return nil, newInputError(InvalidRequest, fmt.Errorf("parse request uri: %w", err)).
			WithIncorrectValue("request_uri")
	}

	params, err := decodeQuery(u.RawQuery)
	if err != nil {
		return nil, newInputError(InvalidRequest, err).WithIncorrectValue("request_uri")
	}

	authReq, err := decodeAuthorizationRequest(params)
	if err != nil {
		return nil, newInputError(InvalidRequest, err)
	}

	merged := *authReq

	var (
		requestObject *RequestObject
		token         *jwt.Token
	)

	if authReq.Request != "" || authReq.RequestURI != "" {
		token, requestObject, err = r.fetchRequestObject(ctx, authReq)
		if err != nil {
			return nil, err
		}

		if err = copier.CopyWithOption(&merged, &requestObject.AuthorizationRequest,
			copier.Option{IgnoreEmpty: true, DeepCopy: true}); err != nil {
			return nil, newInputError(InvalidRequest, fmt.Errorf("merge request object: %w", err))
		}
	}

	if merged.ClientID == "" {
		return nil, newInputError(InvalidRequest, errors.New("client_id is required")).
			WithIncorrectValue("client_id")
	}

	clientMetadata, err := r.resolveClientMetadata(ctx, &merged)
	if err != nil {
		return nil, err
	}

	if err = checkSignaturePresent(token, &merged); err != nil {
		return nil, err
	}

	signed := token != nil && isSigned(token)

	var leaf *x509.Certificate

	if signed {
		leaf, err = r.verifyRequestObject(ctx, token, &merged, clientMetadata)
		if err != nil {
			return nil, err
		}
	}

	if clientMetadata == nil {
		clientMetadata = deriveClientMetadata(merged.ClientID, leaf)
	}

	if clientMetadata.ClientID == "" {
		clientMetadata.ClientID = merged.ClientID
	}

	if err = checkVPFormats(clientMetadata); err != nil {
		return nil, err
	}

	resolved := &ResolvedRequest{
		requestURI:     requestURI,
		requestObject:  requestObject,
		clientMetadata: *clientMetadata,
		signed:         signed,
		clientIDScheme: merged.ClientIDScheme,
		state:          merged.State,
	}

	if resolved.clientIDScheme == "" {
		resolved.clientIDScheme = ClientIDSchemePreRegistered
	}

	resolved.responseMode = ResponseMode(merged.ResponseMode)
	if resolved.responseMode == "" {
		resolved.responseMode = ResponseModeFragment
	}

	if !resolved.responseMode.valid() {
		return nil, newInputError(InvalidRequest, fmt.Errorf("unsupported response_mode %q", merged.ResponseMode)).
			WithIncorrectValue("response_mode")
	}

	resolved.destination, err = selectDestination(resolved.responseMode, &merged, u.Scheme == SchemeSIOPv2)
	if err != nil {
		return nil, err
	}

	if resolved.clientIDScheme == ClientIDSchemeRedirectURI && resolved.responseMode.posted() &&
		resolved.destination != merged.ClientID {
		return nil, newClientError(ComplianceViolation,
			errors.New("client_id must equal response_uri for client_id_scheme redirect_uri")).
			WithIncorrectValue("client_id")
	}

	if merged.ResponseType == "" {
		return nil, newInputError(InvalidRequest, errors.New("response_type is required")).
			WithIncorrectValue("response_type")
	}

	resolved.responseType = merged.ResponseType

	if merged.Nonce == "" {
		return nil, newInputError(InvalidRequest, errors.New("nonce is required")).
			WithIncorrectValue("nonce")
	}

	resolved.nonce = merged.Nonce

	if resolved.RequiresVPToken() {
		resolved.presentationDefinition, err = r.resolvePresentationDefinition(ctx, &merged, requestObject)
		if err != nil {
			return nil, err
		}

		merged.PresentationDefinition = resolved.presentationDefinition
	}

	resolved.authRequest = merged

	logger.Debugc(ctx, "Authorization request resolved",
		logfields.WithClientID(merged.ClientID),
		logfields.WithClientIDScheme(resolved.clientIDScheme),
		logfields.WithResponseMode(string(resolved.responseMode)),
		logfields.WithResponseURI(resolved.destination))

	return resolved, nil
}

func (r *Resolver) fetchRequestObject(
	ctx context.Context,
	authReq *AuthorizationRequest,
) (*jwt.Token, *RequestObject, error) {
	raw := authReq.Request

	if raw == "" {
		body, err := httputil.Get(ctx, r.httpClient, authReq.RequestURI, requestObjectMediaType)
		if err != nil {
			return nil, nil, fetchError("request object", err).WithIncorrectValue("request_uri")
		}

		raw = strings.TrimSpace(string(body))
	}

	token, err := jwt.Parse(raw)
	if err != nil {
		return nil, nil, newInputError(InvalidRequest, fmt.Errorf("parse request object: %w", err)).
			WithIncorrectValue("request")
	}

	requestObject := &RequestObject{}

	if err = token.DecodePayload(requestObject); err != nil {
		return nil, nil, newInputError(InvalidRequest, fmt.Errorf("decode request object: %w", err)).
			WithIncorrectValue("request")
	}

	return token, requestObject, nil
}

func isSigned(token *jwt.Token) bool {
	alg := token.Alg()

	return alg != "" && alg != algNone && len(token.Signature) > 0
}

// checkSignaturePresent rejects request objects that must be verified but are not signed:
// client_id_scheme x509_san_dns, or an x5c or x5u header, requires a signed request object.
// A token declaring an algorithm without a signature is malformed.
func checkSignaturePresent(token *jwt.Token, req *AuthorizationRequest) error {
	if token == nil {
		if req.ClientIDScheme == ClientIDSchemeX509SANDNS {
			return newClientError(ComplianceViolation,
				errors.New("client_id_scheme x509_san_dns requires a signed request object")).
				WithIncorrectValue("client_id_scheme")
		}

		return nil
	}

	if alg := token.Alg(); alg != "" && alg != algNone && len(token.Signature) == 0 {
		return newInputError(InvalidRequest,
			fmt.Errorf("request object declares alg %s but has no signature", alg)).
			WithIncorrectValue("request")
	}

	if isSigned(token) {
		return nil
	}

	_, hasX5C := token.Header[jwt.HeaderX5C]
	_, hasX5U := token.Header[jwt.HeaderX5U]

	if req.ClientIDScheme == ClientIDSchemeX509SANDNS || hasX5C || hasX5U {
		return newClientError(ComplianceViolation, errors.New("request object must be signed")).
			WithIncorrectValue("request")
	}

	return nil
}

// verifyRequestObject verifies a signed request object. With client_id_scheme x509_san_dns the key comes
// from the x5c (or x5u) certificate chain and client_id must be a SAN dNSName of the leaf certificate.
// Otherwise the key is looked up by kid in the client metadata JWKS.
func (r *Resolver) verifyRequestObject(
	ctx context.Context,
	token *jwt.Token,
	req *AuthorizationRequest,
	meta *ClientMetadata,
) (*x509.Certificate, error) {
	if req.ClientIDScheme != ClientIDSchemeX509SANDNS {
		return nil, r.verifyByJWKS(ctx, token, meta)
	}

	var (
		certs []*x509.Certificate
		err   error
	)

	if _, ok := token.Header[jwt.HeaderX5C]; !ok && token.Header[jwt.HeaderX5U] != nil {
		_, certs, err = jwt.VerifyByX5U(ctx, token.Raw, r.httpClient, r.trustOpts...)
	} else {
		_, certs, err = jwt.VerifyByX5C(token.Raw, r.trustOpts...)
	}

	if err != nil {
		return nil, newClientError(InvalidClient, fmt.Errorf("verify request object: %w", err))
	}

	leaf := certs[0]

	clientHost := hostOf(req.ClientID)

	if err = jwt.VerifySANDNSName(leaf, clientHost); err != nil {
		return nil, newClientError(ComplianceViolation, fmt.Errorf("client_id not in certificate SAN: %w", err)).
			WithIncorrectValue("client_id")
	}

	destination := req.ResponseURI
	if destination == "" {
		destination = req.RedirectURI
	}

	if destination != "" && hostOf(destination) != clientHost {
		return nil, newClientError(ComplianceViolation,
			errors.New("response_uri or redirect_uri host does not match client_id")).
			WithIncorrectValue("client_id")
	}

	return leaf, nil
}

func (r *Resolver) verifyByJWKS(ctx context.Context, token *jwt.Token, meta *ClientMetadata) error {
	if meta == nil || (len(meta.JWKS) == 0 && meta.JWKSURI == "") {
		return newClientError(InvalidClient, errors.New("no client key to verify request object"))
	}

	raw := []byte(meta.JWKS)

	if len(raw) == 0 {
		body, err := httputil.Get(ctx, r.httpClient, meta.JWKSURI, jsonMediaType)
		if err != nil {
			return fetchError("jwks", err).WithIncorrectValue("jwks_uri")
		}

		raw = body
	}

	var jwks jose.JSONWebKeySet

	if err := json.Unmarshal(raw, &jwks); err != nil {
		return newClientError(InvalidClient, fmt.Errorf("decode jwks: %w", err))
	}

	keys := jwks.Keys
	if kid := token.Kid(); kid != "" {
		keys = jwks.Key(kid)
	}

	if len(keys) != 1 {
		return newClientError(InvalidClient, fmt.Errorf("no unique key for kid %q in jwks", token.Kid()))
	}

	if err := token.VerifySignature(keys[0].Key); err != nil {
		return newClientError(InvalidClient, fmt.Errorf("verify request object: %w", err))
	}

	return nil
}

func (r *Resolver) resolveClientMetadata(ctx context.Context, req *AuthorizationRequest) (*ClientMetadata, error) {
	if req.ClientMetadata != nil {
		return req.ClientMetadata, nil
	}

	if req.ClientMetadataURI == "" {
		return nil, nil
	}

	body, err := httputil.Get(ctx, r.httpClient, req.ClientMetadataURI, jsonMediaType)
	if err != nil {
		return nil, fetchError("client metadata", err).WithIncorrectValue("client_metadata_uri")
	}

	meta := &ClientMetadata{}

	if err = json.Unmarshal(body, meta); err != nil {
		return nil, newClientError(InvalidRequest, fmt.Errorf("decode client metadata: %w", err)).
			WithIncorrectValue("client_metadata_uri")
	}

	return meta, nil
}

func (r *Resolver) resolvePresentationDefinition(
	ctx context.Context,
	req *AuthorizationRequest,
	requestObject *RequestObject,
) (*presexch.PresentationDefinition, error) {
	pd := req.PresentationDefinition

	if pd == nil && req.PresentationDefinitionURI != "" {
		body, err := httputil.Get(ctx, r.httpClient, req.PresentationDefinitionURI, jsonMediaType)
		if err != nil {
			return nil, fetchError("presentation definition", err).
				WithIncorrectValue("presentation_definition_uri")
		}

		pd = &presexch.PresentationDefinition{}

		if err = json.Unmarshal(body, pd); err != nil {
			return nil, newClientError(InvalidRequest, fmt.Errorf("decode presentation definition: %w", err)).
				WithIncorrectValue("presentation_definition_uri")
		}
	}

	if pd == nil && requestObject != nil && requestObject.Claims != nil && requestObject.Claims.VPToken != nil {
		pd = requestObject.Claims.VPToken.PresentationDefinition
	}

	if pd == nil {
		return nil, newInputError(InvalidRequest, errors.New("presentation definition is required for vp_token")).
			WithIncorrectValue("presentation_definition")
	}

	if err := pd.Validate(); err != nil {
		return nil, newInputError(InvalidRequest, err).WithIncorrectValue("presentation_definition")
	}

	logger.Debugc(ctx, "Presentation definition resolved", logfields.WithPresDefID(pd.ID))

	return pd, nil
}

// selectDestination picks response_uri for posted response modes and redirect_uri otherwise.
// A SIOPv2 request posting to redirect_uri is the only case where redirect_uri stands in for response_uri.
func selectDestination(mode ResponseMode, req *AuthorizationRequest, siopv2 bool) (string, error) {
	if req.ResponseURI != "" && req.RedirectURI != "" {
		return "", newInputError(ComplianceViolation,
			errors.New("response_uri and redirect_uri must not be present at the same time"))
	}

	responseURI := req.ResponseURI

	if mode == ResponseModeDirectPost && req.RedirectURI != "" {
		if !siopv2 {
			return "", newInputError(ComplianceViolation,
				errors.New("redirect_uri must not be present with response_mode direct_post")).
				WithIncorrectValue("redirect_uri")
		}

		responseURI = req.RedirectURI
	}

	if mode.posted() {
		if responseURI == "" {
			return "", newInputError(InvalidRequest, errors.New("response_uri is required")).
				WithIncorrectValue("response_uri")
		}

		return responseURI, nil
	}

	if req.RedirectURI == "" {
		return "", newInputError(InvalidRequest, errors.New("redirect_uri is required")).
			WithIncorrectValue("redirect_uri")
	}

	return req.RedirectURI, nil
}

func deriveClientMetadata(clientID string, leaf *x509.Certificate) *ClientMetadata {
	meta := &ClientMetadata{ClientID: clientID}

	if leaf == nil {
		return meta
	}

	if len(leaf.DNSNames) > 0 {
		meta.ClientName = leaf.DNSNames[0]
	} else {
		meta.ClientName = leaf.Subject.CommonName
	}

	return meta
}

func checkVPFormats(meta *ClientMetadata) error {
	if len(meta.VPFormats) == 0 {
		return nil
	}

	for _, f := range supportedVPFormats {
		if _, ok := meta.VPFormats[f]; ok {
			return nil
		}
	}

	return newClientError(VPFormatsNotSupported, errors.New("none of the requested vp formats is supported")).
		WithIncorrectValue("vp_formats")
}

// hostOf returns the host of a URL, or s itself when s is a bare DNS name.
func hostOf(s string) string {
	if u, err := url.Parse(s); err == nil && u.Host != "" {
		return u.Hostname()
	}

	return s
}

func fetchError(what string, err error) *Error {
	var statusErr *httputil.StatusError

	if errors.As(err, &statusErr) {
		return newServerError(fmt.Errorf("fetch %s: %w", what, err), statusErr.StatusCode).
			WithComponent(walleterr.RequestResolverComponent)
	}

	return newClientError(InvalidRequest, fmt.Errorf("fetch %s: %w", what, err))
}
