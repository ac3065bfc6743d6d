/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oidc4vci

import (
	"bytes"
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
	"github.com/trustbloc/logutil-go/pkg/log"
	"golang.org/x/oauth2"

	"github.com/trustbloc/vcwallet/internal/httputil"
	"github.com/trustbloc/vcwallet/internal/logfields"
	"github.com/trustbloc/vcwallet/pkg/credential"
	"github.com/trustbloc/vcwallet/pkg/doc/jwt"
	"github.com/trustbloc/vcwallet/pkg/keystore"
	"github.com/trustbloc/vcwallet/pkg/oauth2client"
	"github.com/trustbloc/vcwallet/pkg/storage"
	"github.com/trustbloc/vcwallet/pkg/walleterr"
)

var logger = log.New("oidc4vci-client")

const (
	credentialOfferParam    = "credential_offer"
	credentialOfferURIParam = "credential_offer_uri"

	issuerWellKnownPath     = "/.well-known/openid-credential-issuer"
	oauthServerWellKnown    = "/.well-known/oauth-authorization-server"
	openIDProviderWellKnown = "/.well-known/openid-configuration"

	jwtProofType       = "jwt"
	jwtProofTypeHeader = "openid4vci-proof+jwt"

	jsonMediaType = "application/json"
)

// Config defines dependencies for the issuance client.
type Config struct {
	HTTPClient *http.Client
	KeyStore   keystore.KeyStore
	// ProofKeyAlias is the key the issued credentials are bound to. Defaults to keystore.KeyBinding.
	ProofKeyAlias keystore.Alias
	// ClientID is sent as the proof iss and the token request client_id when set.
	ClientID string
	// Locale selects issuer and credential display names.
	Locale string
	Now    func() time.Time
}

// Client receives credentials through the OpenID4VCI pre-authorized code flow.
type Client struct {
	httpClient    *http.Client
	oauth2Client  *oauth2client.Client
	keyStore      keystore.KeyStore
	proofKeyAlias keystore.Alias
	clientID      string
	locale        string
	now           func() time.Time
}

// NewClient returns a new OpenID4VCI client.
func NewClient(cfg *Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	alias := cfg.ProofKeyAlias
	if alias == "" {
		alias = keystore.KeyBinding
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		httpClient:    httpClient,
		oauth2Client:  oauth2client.NewOAuth2Client(httpClient),
		keyStore:      cfg.KeyStore,
		proofKeyAlias: alias,
		clientID:      cfg.ClientID,
		locale:        cfg.Locale,
		now:           now,
	}
}

// Receive runs the whole pre-authorized code flow for offerURI and returns one credential per offered
// configuration.
func (c *Client) Receive(ctx context.Context, offerURI, txCode string) ([]*storage.Credential, error) {
	offer, err := c.ParseCredentialOffer(ctx, offerURI)
	if err != nil {
		return nil, err
	}

	md, err := c.FetchMetadata(ctx, offer)
	if err != nil {
		return nil, err
	}

	token, err := c.RequestToken(ctx, md, offer, txCode)
	if err != nil {
		return nil, err
	}

	credentials := make([]*storage.Credential, 0, len(offer.CredentialConfigurationIDs))

	for _, id := range offer.CredentialConfigurationIDs {
		issued, err := c.RequestCredential(ctx, md, token, id)
		if err != nil {
			return nil, err
		}

		if issued.CNonce != "" {
			token = token.WithExtra(map[string]interface{}{oauth2client.ExtraCNonce: issued.CNonce})
		}

		credentials = append(credentials, issued.Credential)
	}

	return credentials, nil
}

// ParseCredentialOffer reads the credential offer carried by value in credential_offer or by reference in
// credential_offer_uri.
func (c *Client) ParseCredentialOffer(ctx context.Context, offerURI string) (*CredentialOffer, error) {
	u, err := url.Parse(offerURI)
	if err != nil {
		return nil, offerError(fmt.Errorf("parse credential offer uri: %w", err))
	}

	var payload []byte

	query := u.Query()

	switch {
	case query.Get(credentialOfferParam) != "":
		payload = []byte(query.Get(credentialOfferParam))
	case query.Get(credentialOfferURIParam) != "":
		payload, err = httputil.Get(ctx, c.httpClient, query.Get(credentialOfferURIParam), jsonMediaType)
		if err != nil {
			return nil, serverError("fetch credential offer", err)
		}
	default:
		return nil, offerError(errors.New("both credential_offer and credential_offer_uri are empty"))
	}

	offer := &CredentialOffer{}

	if err = json.Unmarshal(payload, offer); err != nil {
		return nil, offerError(fmt.Errorf("decode credential offer: %w", err))
	}

	if offer.CredentialIssuer == "" {
		return nil, offerError(errors.New("credential_issuer is required")).WithIncorrectValue("credential_issuer")
	}

	if len(offer.CredentialConfigurationIDs) == 0 {
		return nil, offerError(errors.New("credential_configuration_ids is empty")).
			WithIncorrectValue("credential_configuration_ids")
	}

	logger.Debugc(ctx, "credential offer parsed", logfields.WithCredentialIssuer(offer.CredentialIssuer))

	return offer, nil
}

// FetchMetadata discovers the credential issuer and its authorization server. The authorization server named by
// the pre-authorized code grant wins over the first one the issuer lists; an issuer listing none is its own.
func (c *Client) FetchMetadata(ctx context.Context, offer *CredentialOffer) (*Metadata, error) {
	issuer := strings.TrimSuffix(offer.CredentialIssuer, "/")

	body, err := httputil.Get(ctx, c.httpClient, issuer+issuerWellKnownPath, jsonMediaType)
	if err != nil {
		return nil, serverError("fetch credential issuer metadata", err)
	}

	issuerMeta := &IssuerMetadata{}

	if err = json.Unmarshal(body, issuerMeta); err != nil {
		return nil, metadataError(fmt.Errorf("decode credential issuer metadata: %w", err))
	}

	if issuerMeta.CredentialEndpoint == "" {
		return nil, metadataError(errors.New("credential_endpoint is required")).
			WithIncorrectValue("credential_endpoint")
	}

	authServer := issuer
	if len(issuerMeta.AuthorizationServers) > 0 {
		authServer = issuerMeta.AuthorizationServers[0]
	}

	if grant := offer.PreAuthorizedCodeGrant(); grant != nil && grant.AuthorizationServer != "" {
		authServer = grant.AuthorizationServer
	}

	authMeta, err := c.fetchAuthorizationServerMetadata(ctx, strings.TrimSuffix(authServer, "/"))
	if err != nil {
		return nil, err
	}

	logger.Debugc(ctx, "issuer metadata fetched", logfields.WithCredentialIssuer(issuerMeta.CredentialIssuer))

	return &Metadata{CredentialIssuer: issuerMeta, AuthorizationServer: authMeta}, nil
}

func (c *Client) fetchAuthorizationServerMetadata(
	ctx context.Context,
	authServer string,
) (*AuthorizationServerMetadata, error) {
	body, err := httputil.Get(ctx, c.httpClient, authServer+oauthServerWellKnown, jsonMediaType)
	if err != nil {
		logger.Debugc(ctx, "oauth authorization server metadata unavailable, trying openid configuration",
			log.WithURL(authServer), log.WithError(err))

		body, err = httputil.Get(ctx, c.httpClient, authServer+openIDProviderWellKnown, jsonMediaType)
		if err != nil {
			return nil, serverError("fetch authorization server metadata", err)
		}
	}

	meta := &AuthorizationServerMetadata{}

	if err = json.Unmarshal(body, meta); err != nil {
		return nil, metadataError(fmt.Errorf("decode authorization server metadata: %w", err))
	}

	if meta.TokenEndpoint == "" {
		return nil, metadataError(errors.New("token_endpoint is required")).WithIncorrectValue("token_endpoint")
	}

	return meta, nil
}

// RequestToken redeems the pre-authorized code of offer. txCode is required when the offer asks for one.
func (c *Client) RequestToken(
	ctx context.Context,
	md *Metadata,
	offer *CredentialOffer,
	txCode string,
) (*oauth2.Token, error) {
	grant := offer.PreAuthorizedCodeGrant()
	if grant == nil || grant.PreAuthorizedCode == "" {
		return nil, newError(walleterr.KindInput, UnsupportedGrantType,
			errors.New("credential offer has no pre-authorized code grant")).WithIncorrectValue("grants")
	}

	if !md.AuthorizationServer.SupportsPreAuthorizedCode() {
		return nil, newError(walleterr.KindClient, UnsupportedGrantType,
			errors.New("authorization server does not support the pre-authorized code grant"))
	}

	if grant.TxCode != nil {
		if txCode == "" {
			return nil, newError(walleterr.KindInput, TxCodeRequired, errors.New("tx_code is required")).
				WithIncorrectValue("tx_code")
		}

		if grant.TxCode.Length > 0 && len(txCode) != grant.TxCode.Length {
			return nil, newError(walleterr.KindInput, TxCodeRequired,
				fmt.Errorf("tx_code must have %d characters", grant.TxCode.Length)).WithIncorrectValue("tx_code")
		}
	}

	opts := []oauth2client.TokenOption{oauth2client.WithClientID(c.clientID)}

	if grant.TxCode != nil {
		opts = append(opts, oauth2client.WithTxCode(txCode))
	}

	token, err := c.oauth2Client.ExchangePreAuthorizedCode(ctx, md.AuthorizationServer.TokenEndpoint,
		grant.PreAuthorizedCode, opts...)
	if err != nil {
		return nil, serverError("request token", err)
	}

	logger.Debugc(ctx, "access token received", log.WithURL(md.AuthorizationServer.TokenEndpoint))

	return token, nil
}

// IssuedCredential is a credential endpoint result.
type IssuedCredential struct {
	Credential *storage.Credential
	// CNonce is the nonce for the next proof, if the issuer rotated it.
	CNonce         string
	NotificationID string
}

// RequestCredential requests the credential of configurationID with a proof of possession of the binding key.
func (c *Client) RequestCredential(
	ctx context.Context,
	md *Metadata,
	token *oauth2.Token,
	configurationID string,
) (*IssuedCredential, error) {
	conf, ok := md.CredentialIssuer.CredentialConfigurationsSupported[configurationID]
	if !ok || conf == nil {
		return nil, metadataError(fmt.Errorf("credential configuration %q is not supported by the issuer",
			configurationID)).WithIncorrectValue("credential_configuration_ids")
	}

	reqBody := &credentialRequest{Format: conf.Format}

	switch conf.Format {
	case credential.FormatSDJWT:
		reqBody.Vct = conf.Vct
		if reqBody.Vct == "" {
			reqBody.Vct = configurationID
		}
	case credential.FormatJWTVCJSON:
		types := []string{verifiableCredentialType, configurationID}
		if conf.CredentialDefinition != nil && len(conf.CredentialDefinition.Type) > 0 {
			types = conf.CredentialDefinition.Type
		}

		reqBody.CredentialDefinition = &CredentialDefinition{Type: types}
	default:
		return nil, newError(walleterr.KindInput, UnsupportedCredentialFormat,
			fmt.Errorf("unsupported credential format %q", conf.Format)).WithIncorrectValue("format")
	}

	proof, err := c.buildProof(ctx, md.CredentialIssuer.CredentialIssuer, oauth2client.CNonce(token))
	if err != nil {
		return nil, err
	}

	reqBody.Proof = &jwtProof{ProofType: jwtProofType, JWT: proof}

	resp, err := c.postCredentialRequest(ctx, md.CredentialIssuer.CredentialEndpoint, token, reqBody)
	if err != nil {
		return nil, err
	}

	raw, ok := resp.Credential.(string)
	if !ok || raw == "" {
		if resp.TransactionID != "" {
			return nil, newError(walleterr.KindClient, DeferredIssuance,
				fmt.Errorf("deferred issuance (transaction %s) is not supported", resp.TransactionID))
		}

		return nil, newError(walleterr.KindClient, ServerError,
			errors.New("credential response has no credential string"))
	}

	cred := &storage.Credential{
		ID:         uuid.NewString(),
		Format:     conf.Format,
		Types:      conf.Types(),
		Raw:        raw,
		Issuer:     md.CredentialIssuer.CredentialIssuer,
		IssuerName: md.CredentialIssuer.DisplayName(c.locale),
		CreatedAt:  c.now(),
	}

	if len(cred.Types) == 0 {
		cred.Types = []string{configurationID}
	}

	logger.Infoc(ctx, "credential issued", logfields.WithCredentialID(cred.ID),
		logfields.WithCredentialFormat(cred.Format), logfields.WithCredentialIssuer(cred.Issuer))

	return &IssuedCredential{Credential: cred, CNonce: resp.CNonce, NotificationID: resp.NotificationID}, nil
}

// buildProof signs the key proof. A signing failure aborts the request; the issuer never gets an unbound request.
func (c *Client) buildProof(ctx context.Context, audience, nonce string) (string, error) {
	pub, err := keystore.Ensure(ctx, c.keyStore, c.proofKeyAlias, jwt.CurveP256)
	if err != nil {
		return "", proofError(fmt.Errorf("ensure key %s: %w", c.proofKeyAlias, err))
	}

	signer, err := c.keyStore.Signer(ctx, c.proofKeyAlias)
	if err != nil {
		return "", proofError(fmt.Errorf("signer %s: %w", c.proofKeyAlias, err))
	}

	header := map[string]interface{}{
		jwt.HeaderTyp: jwtProofTypeHeader,
		jwt.HeaderJWK: pub.Public(),
	}

	proof, err := jwt.Sign(header, &proofClaims{
		Issuer:   c.clientID,
		Audience: audience,
		IssuedAt: c.now().Unix(),
		Nonce:    nonce,
	}, signer)
	if err != nil {
		return "", proofError(fmt.Errorf("sign proof: %w", err))
	}

	return proof, nil
}

func (c *Client) postCredentialRequest(
	ctx context.Context,
	endpoint string,
	token *oauth2.Token,
	reqBody *credentialRequest,
) (*credentialResponse, error) {
	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal credential request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("new credential request: %w", err)
	}

	req.Header.Set("Content-Type", jsonMediaType)

	resp, err := c.oauth2Client.BearerClient(ctx, token).Do(req)
	if err != nil {
		return nil, serverError("request credential", fmt.Errorf("post to credential endpoint: %w", err))
	}

	defer httputil.CloseResponseBody(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, serverError("request credential", fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, serverError("request credential", &httputil.StatusError{StatusCode: resp.StatusCode, Body: body})
	}

	credResp := &credentialResponse{}

	if err = json.Unmarshal(body, credResp); err != nil {
		return nil, newError(walleterr.KindClient, ServerError, fmt.Errorf("decode credential response: %w", err))
	}

	return credResp, nil
}

func offerError(err error) *Error {
	return newError(walleterr.KindInput, InvalidCredentialOffer, err)
}

func metadataError(err error) *Error {
	return newError(walleterr.KindClient, InvalidMetadata, err)
}

func proofError(err error) *Error {
	return newError(walleterr.KindState, ProofError, err)
}
