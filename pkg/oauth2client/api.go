/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oauth2client

const (
	GrantTypePreAuthorizedCode = "urn:ietf:params:oauth:grant-type:pre-authorized_code"

	TokenTypeBearer = "Bearer"
)

// Token response extension parameters of OpenID4VCI.
const (
	ExtraCNonce               = "c_nonce"
	ExtraCNonceExpiresIn      = "c_nonce_expires_in"
	ExtraAuthorizationDetails = "authorization_details"
)

// tokenResponse is the token endpoint response of the pre-authorized code grant.
type tokenResponse struct {
	AccessToken          string      `json:"access_token"`
	TokenType            string      `json:"token_type"`
	ExpiresIn            int64       `json:"expires_in,omitempty"`
	RefreshToken         string      `json:"refresh_token,omitempty"`
	CNonce               string      `json:"c_nonce,omitempty"`
	CNonceExpiresIn      int64       `json:"c_nonce_expires_in,omitempty"`
	AuthorizationDetails interface{} `json:"authorization_details,omitempty"`
}
