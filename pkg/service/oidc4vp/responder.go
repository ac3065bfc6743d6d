/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

//go:generate mockgen -destination responder_mocks_test.go -package oidc4vp -source=responder.go

package oidc4vp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/vcwallet/internal/httputil"
	"github.com/trustbloc/vcwallet/internal/logfields"
	"github.com/trustbloc/vcwallet/pkg/account"
	"github.com/trustbloc/vcwallet/pkg/credential"
	"github.com/trustbloc/vcwallet/pkg/doc/jwt"
	"github.com/trustbloc/vcwallet/pkg/doc/presexch"
	"github.com/trustbloc/vcwallet/pkg/keystore"
	"github.com/trustbloc/vcwallet/pkg/walleterr"
)

const (
	defaultIDTokenTTL = 600 * time.Second

	formContentType = "application/x-www-form-urlencoded"

	formIDToken                = "id_token"
	formVPToken                = "vp_token"
	formPresentationSubmission = "presentation_submission"
	formState                  = "state"
)

type responderMetrics interface {
	RespondTime(value time.Duration)
}

// ResponderConfig defines dependencies for the token responder.
type ResponderConfig struct {
	// HTTPClient must not follow redirects, see httputil.NewNoRedirectClient.
	HTTPClient httputil.Doer
	KeyStore   keystore.KeyStore
	Metrics    responderMetrics
	// IDTokenTTL defaults to 600 seconds.
	IDTokenTTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Responder builds and sends authorization responses for resolved requests.
type Responder struct {
	httpClient httputil.Doer
	keyStore   keystore.KeyStore
	metrics    responderMetrics
	idTokenTTL time.Duration
	now        func() time.Time
}

// RespondRequest carries the holder's choices for one authorization response.
type RespondRequest struct {
	// Credentials to present. Empty means no vp_token is sent.
	Credentials []*credential.SubmissionCredential
	// IDTokenAccount signs the ID token. Required when the request asks for an id_token.
	IDTokenAccount *account.Account
	// KeyAliases selects the keystore key that signs the vp_token of each credential format.
	// Missing entries default to keystore.KeyBinding for vc+sd-jwt and keystore.JWTVPJSON for jwt_vc_json.
	KeyAliases map[string]keystore.Alias
}

type idTokenClaims struct {
	Issuer    string   `json:"iss"`
	Subject   string   `json:"sub"`
	Audience  string   `json:"aud"`
	IssuedAt  int64    `json:"iat"`
	ExpiresAt int64    `json:"exp"`
	Nonce     string   `json:"nonce"`
	SubJWK    *jwt.JWK `json:"sub_jwk"`
}

type authorizationResponse struct {
	form        url.Values
	idToken     *SharedIDToken
	credentials []*SharedCredential
}

// NewResponder returns a new Responder instance.
func NewResponder(cfg *ResponderConfig) *Responder {
	ttl := cfg.IDTokenTTL
	if ttl == 0 {
		ttl = defaultIDTokenTTL
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Responder{
		httpClient: cfg.HTTPClient,
		keyStore:   cfg.KeyStore,
		metrics:    cfg.Metrics,
		idTokenTTL: ttl,
		now:        now,
	}
}

// BuildForm returns the form-encoded authorization response without sending it.
func (r *Responder) BuildForm(ctx context.Context, req *ResolvedRequest, rr *RespondRequest) (url.Values, error) {
	resp, err := r.buildResponse(ctx, req, rr)
	if err != nil {
		return nil, err
	}

	return resp.form, nil
}

// Respond builds the authorization response and delivers it to the verifier. Posted response modes
// are sent as a form POST. For fragment and query modes the result carries the redirect location
// for the caller to open.
func (r *Responder) Respond(ctx context.Context, req *ResolvedRequest, rr *RespondRequest) (*TokenSendResult, error) {
	st := time.Now()

	defer func() {
		if r.metrics != nil {
			r.metrics.RespondTime(time.Since(st))
		}
	}()

	resp, err := r.buildResponse(ctx, req, rr)
	if err != nil {
		return nil, err
	}

	var result *TokenSendResult

	if req.ResponseMode().posted() {
		result, err = r.post(ctx, req.Destination(), resp.form)
		if err != nil {
			return nil, err
		}
	} else {
		result, err = redirect(req.Destination(), req.ResponseMode(), resp.form)
		if err != nil {
			return nil, err
		}
	}

	result.SharedIDToken = resp.idToken
	result.SharedCredentials = resp.credentials

	logger.Infoc(ctx, "Authorization response sent",
		logfields.WithClientID(req.ClientID()),
		logfields.WithResponseURI(req.Destination()),
		logfields.WithHTTPStatus(result.StatusCode))

	return result, nil
}

func (r *Responder) buildResponse(
	ctx context.Context,
	req *ResolvedRequest,
	rr *RespondRequest,
) (*authorizationResponse, error) {
	if req == nil {
		return nil, newStateError(errors.New("authorization request is not resolved"))
	}

	if rr == nil {
		rr = &RespondRequest{}
	}

	if !req.RequiresIDToken() && !req.RequiresVPToken() {
		return nil, newStateError(fmt.Errorf("unsupported response_type %q", req.ResponseType()))
	}

	resp := &authorizationResponse{form: url.Values{}}

	if req.RequiresIDToken() {
		idToken, err := r.createIDToken(req, rr.IDTokenAccount)
		if err != nil {
			return nil, err
		}

		resp.form.Set(formIDToken, idToken.Token)
		resp.idToken = idToken

		logger.Debugc(ctx, "ID token created", logfields.WithIDToken(idToken.Token))
	}

	if req.RequiresVPToken() && len(rr.Credentials) > 0 {
		if err := r.addVPTokens(ctx, req, rr, resp); err != nil {
			return nil, err
		}
	}

	if req.State() != "" {
		resp.form.Set(formState, req.State())
	}

	return resp, nil
}

func (r *Responder) createIDToken(req *ResolvedRequest, acct *account.Account) (*SharedIDToken, error) {
	if acct == nil {
		return nil, newStateError(errors.New("no account to sign the id token"))
	}

	sub, err := acct.Subject()
	if err != nil {
		return nil, newStateError(fmt.Errorf("id token subject: %w", err))
	}

	signer, err := acct.Signer()
	if err != nil {
		return nil, newStateError(fmt.Errorf("id token signer: %w", err))
	}

	iat := r.now()

	claims := &idTokenClaims{
		Issuer:    sub,
		Subject:   sub,
		Audience:  req.ClientID(),
		IssuedAt:  iat.Unix(),
		ExpiresAt: iat.Add(r.idTokenTTL).Unix(),
		Nonce:     req.Nonce(),
		SubJWK:    acct.PublicJWK.Public(),
	}

	token, err := jwt.Sign(nil, claims, signer)
	if err != nil {
		return nil, newStateError(fmt.Errorf("sign id token: %w", err))
	}

	return &SharedIDToken{Token: token, Subject: sub}, nil
}

func (r *Responder) addVPTokens(
	ctx context.Context,
	req *ResolvedRequest,
	rr *RespondRequest,
	resp *authorizationResponse,
) error {
	pd := req.PresentationDefinition()
	if pd == nil {
		return newStateError(errors.New("no presentation definition"))
	}

	multiple := len(rr.Credentials) > 1

	tokens := make([]string, 0, len(rr.Credentials))
	descriptors := make([]*presexch.DescriptorMap, 0, len(rr.Credentials))

	for i, c := range rr.Credentials {
		index := -1
		if multiple {
			index = i
		}

		vpToken, err := r.buildVPToken(ctx, req, rr, c, index)
		if err != nil {
			return err
		}

		tokens = append(tokens, vpToken.Token)
		descriptors = append(descriptors, vpToken.Descriptor)
		resp.credentials = append(resp.credentials, sharedCredential(c, vpToken))

		logger.Debugc(ctx, "VP token created",
			logfields.WithCredentialID(c.ID),
			logfields.WithCredentialFormat(c.Format),
			logfields.WithVPToken(vpToken.Token))
	}

	vpTokenValue := tokens[0]

	if multiple {
		b, err := json.Marshal(tokens)
		if err != nil {
			return newStateError(fmt.Errorf("marshal vp_token: %w", err))
		}

		vpTokenValue = string(b)
	}

	submission, err := json.Marshal(&presexch.PresentationSubmission{
		ID:            uuid.NewString(),
		DefinitionID:  pd.ID,
		DescriptorMap: descriptors,
	})
	if err != nil {
		return newStateError(fmt.Errorf("marshal presentation submission: %w", err))
	}

	resp.form.Set(formVPToken, vpTokenValue)
	resp.form.Set(formPresentationSubmission, string(submission))

	return nil
}

func (r *Responder) buildVPToken(
	ctx context.Context,
	req *ResolvedRequest,
	rr *RespondRequest,
	c *credential.SubmissionCredential,
	index int,
) (*credential.VPToken, error) {
	format, err := credential.FormatFor(c.Format)
	if err != nil {
		return nil, walleterr.New(walleterr.KindInput, VPFormatsNotSupported, err).
			WithComponent(walleterr.TokenResponderComponent).
			WithIncorrectValue(c.Format)
	}

	alias := keyAlias(rr.KeyAliases, c.Format)

	var pub *jwt.JWK

	if c.Format == credential.FormatSDJWT {
		pub, err = r.keyStore.PublicJWK(ctx, alias)
	} else {
		pub, err = keystore.Ensure(ctx, r.keyStore, alias, jwt.CurveP256)
	}

	if err != nil {
		return nil, newStateError(fmt.Errorf("key %s: %w", alias, err))
	}

	signer, err := r.keyStore.Signer(ctx, alias)
	if err != nil {
		return nil, newStateError(fmt.Errorf("signer %s: %w", alias, err))
	}

	vpToken, err := format.BuildVPToken(ctx, &credential.VPTokenRequest{
		Credential: c,
		Index:      index,
		ClientID:   req.ClientID(),
		Nonce:      req.Nonce(),
		Signer:     signer,
		PublicJWK:  pub,
		Now:        r.now(),
	})
	if err != nil {
		return nil, walleterr.New(walleterr.KindState, IllegalState, err).
			WithComponent(walleterr.TokenResponderComponent).
			WithOperation("build-vp-token")
	}

	return vpToken, nil
}

func keyAlias(aliases map[string]keystore.Alias, format string) keystore.Alias {
	if alias, ok := aliases[format]; ok && alias != "" {
		return alias
	}

	if format == credential.FormatSDJWT {
		return keystore.KeyBinding
	}

	return keystore.JWTVPJSON
}

func sharedCredential(c *credential.SubmissionCredential, vpToken *credential.VPToken) *SharedCredential {
	shared := &SharedCredential{
		ID:      c.ID,
		Format:  c.Format,
		Types:   c.Types,
		Purpose: vpToken.Purpose,
	}

	if vpToken.Descriptor != nil {
		shared.InputDescriptorID = vpToken.Descriptor.ID
	}

	for _, claim := range vpToken.DisclosedClaims {
		shared.SharedClaims = append(shared.SharedClaims, SharedClaim{Name: claim.Name, Value: claim.Value})
	}

	return shared
}

func (r *Responder) post(ctx context.Context, destination string, form url.Values) (*TokenSendResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, newStateError(fmt.Errorf("new request: %w", err))
	}

	req.Header.Set("Content-Type", formContentType)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, newServerError(fmt.Errorf("send authorization response: %w", err), 0)
	}

	defer httputil.CloseResponseBody(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newServerError(fmt.Errorf("read response body: %w", err), resp.StatusCode)
	}

	result := &TokenSendResult{
		StatusCode: resp.StatusCode,
		Cookies:    resp.Cookies(),
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
			if !gjson.ValidBytes(body) {
				return nil, newServerError(errors.New("invalid json in verifier response"), resp.StatusCode)
			}

			result.Location = gjson.GetBytes(body, "redirect_uri").String()
		}
	case resp.StatusCode >= http.StatusMultipleChoices && resp.StatusCode < http.StatusBadRequest &&
		resp.Header.Get("Location") != "":
		result.Location = resp.Header.Get("Location")
	default:
		logger.Warnc(ctx, "Verifier rejected authorization response",
			logfields.WithHTTPStatus(resp.StatusCode), log.WithURL(destination))

		return nil, newServerError(
			fmt.Errorf("response from %s: status %d and body %s", destination, resp.StatusCode, body),
			resp.StatusCode)
	}

	return result, nil
}

func redirect(destination string, mode ResponseMode, form url.Values) (*TokenSendResult, error) {
	u, err := url.Parse(destination)
	if err != nil {
		return nil, newStateError(fmt.Errorf("parse redirect_uri: %w", err))
	}

	location := ""

	if mode == ResponseModeQuery {
		q := u.Query()

		for k, v := range form {
			q[k] = v
		}

		u.RawQuery = q.Encode()
		location = u.String()
	} else {
		u.Fragment, u.RawFragment = "", ""
		location = u.String() + "#" + form.Encode()
	}

	return &TokenSendResult{
		StatusCode: http.StatusFound,
		Location:   location,
	}, nil
}
