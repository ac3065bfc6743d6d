/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oauth2client

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

	"golang.org/x/oauth2"

	"github.com/trustbloc/vcwallet/internal/httputil"
)

// Client talks to the token endpoint of an OpenID4VCI authorization server.
type Client struct {
	httpClient *http.Client
	now        func() time.Time
}

func NewOAuth2Client(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{httpClient: httpClient, now: time.Now}
}

// ExchangePreAuthorizedCode redeems a pre-authorized code for an access token. The c_nonce of the response is
// available as token.Extra(ExtraCNonce).
func (c *Client) ExchangePreAuthorizedCode(
	ctx context.Context,
	tokenURL string,
	preAuthorizedCode string,
	opts ...TokenOption,
) (*oauth2.Token, error) {
	v := url.Values{
		"grant_type":          {GrantTypePreAuthorizedCode},
		"pre-authorized_code": {preAuthorizedCode},
	}

	applyOptions(v, opts...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(v.Encode()))
	if err != nil {
		return nil, fmt.Errorf("new token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post to token endpoint: %w", err)
	}

	defer httputil.CloseResponseBody(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &httputil.StatusError{StatusCode: resp.StatusCode, Body: body}
	}

	var tr tokenResponse

	if err = json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}

	if tr.AccessToken == "" {
		return nil, errors.New("token response has no access_token")
	}

	token := &oauth2.Token{
		AccessToken:  tr.AccessToken,
		TokenType:    tr.TokenType,
		RefreshToken: tr.RefreshToken,
	}

	if tr.ExpiresIn > 0 {
		token.Expiry = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	return token.WithExtra(map[string]interface{}{
		ExtraCNonce:               tr.CNonce,
		ExtraCNonceExpiresIn:      tr.CNonceExpiresIn,
		ExtraAuthorizationDetails: tr.AuthorizationDetails,
	}), nil
}

// BearerClient returns an http client that authorizes every request with token.
func (c *Client) BearerClient(ctx context.Context, token *oauth2.Token) *http.Client {
	return oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient), oauth2.StaticTokenSource(token))
}

// CNonce returns the c_nonce the token endpoint issued with token.
func CNonce(token *oauth2.Token) string {
	nonce, _ := token.Extra(ExtraCNonce).(string)

	return nonce
}
