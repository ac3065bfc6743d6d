/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oidc4vci

import (
	"sort"

	"github.com/samber/lo"

	"github.com/trustbloc/vcwallet/pkg/oauth2client"
)

const (
	defaultIssuerName     = "Unknown Issuer"
	defaultCredentialName = "Unknown Credential"

	verifiableCredentialType = "VerifiableCredential"
)

// CredentialOffer is the credential_offer object an issuer hands to the wallet.
type CredentialOffer struct {
	CredentialIssuer           string   `json:"credential_issuer"`
	CredentialConfigurationIDs []string `json:"credential_configuration_ids"`
	Grants                     *Grants  `json:"grants,omitempty"`
}

// Grants of a credential offer.
type Grants struct {
	AuthorizationCode *AuthorizationCodeGrant `json:"authorization_code,omitempty"`
	PreAuthorizedCode *PreAuthorizedCodeGrant `json:"urn:ietf:params:oauth:grant-type:pre-authorized_code,omitempty"`
}

type AuthorizationCodeGrant struct {
	IssuerState         string `json:"issuer_state,omitempty"`
	AuthorizationServer string `json:"authorization_server,omitempty"`
}

type PreAuthorizedCodeGrant struct {
	PreAuthorizedCode   string  `json:"pre-authorized_code"`
	TxCode              *TxCode `json:"tx_code,omitempty"`
	Interval            int     `json:"interval,omitempty"`
	AuthorizationServer string  `json:"authorization_server,omitempty"`
}

// TxCode describes the transaction code the user has to enter.
type TxCode struct {
	InputMode   string `json:"input_mode,omitempty"`
	Length      int    `json:"length,omitempty"`
	Description string `json:"description,omitempty"`
}

// PreAuthorizedCodeGrant returns the pre-authorized code grant of the offer, or nil.
func (o *CredentialOffer) PreAuthorizedCodeGrant() *PreAuthorizedCodeGrant {
	if o.Grants == nil {
		return nil
	}

	return o.Grants.PreAuthorizedCode
}

// IsTxCodeRequired reports whether the token request needs a tx_code.
func (o *CredentialOffer) IsTxCodeRequired() bool {
	grant := o.PreAuthorizedCodeGrant()

	return grant != nil && grant.TxCode != nil
}

// Metadata is what the wallet knows about an issuer after discovery.
type Metadata struct {
	CredentialIssuer    *IssuerMetadata
	AuthorizationServer *AuthorizationServerMetadata
}

// AuthorizationServerMetadata is the subset of RFC 8414 metadata the wallet uses.
type AuthorizationServerMetadata struct {
	Issuer                            string   `json:"issuer,omitempty"`
	TokenEndpoint                     string   `json:"token_endpoint,omitempty"`
	GrantTypesSupported               []string `json:"grant_types_supported,omitempty"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported,omitempty"`
	PreAuthorizedGrantAnonymous       bool     `json:"pre-authorized_grant_anonymous_access_supported,omitempty"`
}

// SupportsPreAuthorizedCode reports whether the server accepts the pre-authorized code grant. Servers that do not
// publish grant_types_supported are assumed to accept it.
func (m *AuthorizationServerMetadata) SupportsPreAuthorizedCode() bool {
	return len(m.GrantTypesSupported) == 0 ||
		lo.Contains(m.GrantTypesSupported, oauth2client.GrantTypePreAuthorizedCode)
}

// IssuerMetadata is the credential issuer metadata served at /.well-known/openid-credential-issuer.
type IssuerMetadata struct {
	CredentialIssuer                  string                              `json:"credential_issuer"`
	AuthorizationServers              []string                            `json:"authorization_servers,omitempty"`
	CredentialEndpoint                string                              `json:"credential_endpoint"`
	BatchCredentialEndpoint           string                              `json:"batch_credential_endpoint,omitempty"`
	DeferredCredentialEndpoint        string                              `json:"deferred_credential_endpoint,omitempty"`
	NotificationEndpoint              string                              `json:"notification_endpoint,omitempty"`
	CredentialIdentifiersSupported    bool                                `json:"credential_identifiers_supported,omitempty"`
	SignedMetadata                    string                              `json:"signed_metadata,omitempty"`
	Display                           []*IssuerDisplay                    `json:"display,omitempty"`
	CredentialConfigurationsSupported map[string]*CredentialConfiguration `json:"credential_configurations_supported"`
}

type Logo struct {
	URI     string `json:"uri"`
	AltText string `json:"alt_text,omitempty"`
}

type IssuerDisplay struct {
	Name   string `json:"name,omitempty"`
	Locale string `json:"locale,omitempty"`
	Logo   *Logo  `json:"logo,omitempty"`
}

// DisplayName returns the issuer name for locale, falling back to the first named display.
func (m *IssuerMetadata) DisplayName(locale string) string {
	if d, ok := lo.Find(m.Display, func(d *IssuerDisplay) bool { return d.Locale == locale && d.Name != "" }); ok {
		return d.Name
	}

	if d, ok := lo.Find(m.Display, func(d *IssuerDisplay) bool { return d.Name != "" }); ok {
		return d.Name
	}

	return defaultIssuerName
}

type CredentialDisplay struct {
	Name            string `json:"name"`
	Locale          string `json:"locale,omitempty"`
	Logo            *Logo  `json:"logo,omitempty"`
	Description     string `json:"description,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	TextColor       string `json:"text_color,omitempty"`
}

type ClaimDisplay struct {
	Name   string `json:"name,omitempty"`
	Locale string `json:"locale,omitempty"`
}

type Claim struct {
	Mandatory bool            `json:"mandatory,omitempty"`
	ValueType string          `json:"value_type,omitempty"`
	Display   []*ClaimDisplay `json:"display,omitempty"`
}

// DisplayName returns the claim name for locale, then the first display name, then key.
func (c *Claim) DisplayName(locale, key string) string {
	if c == nil {
		return key
	}

	if d, ok := lo.Find(c.Display, func(d *ClaimDisplay) bool { return d.Locale == locale && d.Name != "" }); ok {
		return d.Name
	}

	if len(c.Display) > 0 && c.Display[0].Name != "" {
		return c.Display[0].Name
	}

	return key
}

type ProofType struct {
	ProofSigningAlgValuesSupported []string `json:"proof_signing_alg_values_supported"`
}

type CredentialDefinition struct {
	Type              []string          `json:"type"`
	CredentialSubject map[string]*Claim `json:"credentialSubject,omitempty"`
}

// CredentialConfiguration is one entry of credential_configurations_supported.
type CredentialConfiguration struct {
	Format                               string                `json:"format"`
	Scope                                string                `json:"scope,omitempty"`
	CryptographicBindingMethodsSupported []string              `json:"cryptographic_binding_methods_supported,omitempty"`
	CredentialSigningAlgValuesSupported  []string              `json:"credential_signing_alg_values_supported,omitempty"`
	ProofTypesSupported                  map[string]*ProofType `json:"proof_types_supported,omitempty"`
	Display                              []*CredentialDisplay  `json:"display,omitempty"`
	Order                                []string              `json:"order,omitempty"`

	// vc+sd-jwt
	Vct    string            `json:"vct,omitempty"`
	Claims map[string]*Claim `json:"claims,omitempty"`

	// jwt_vc_json
	CredentialDefinition *CredentialDefinition `json:"credential_definition,omitempty"`
}

// DisplayName returns the credential name for locale, falling back to the first display.
func (c *CredentialConfiguration) DisplayName(locale string) string {
	if d, ok := lo.Find(c.Display, func(d *CredentialDisplay) bool { return d.Locale == locale }); ok {
		return d.Name
	}

	if len(c.Display) > 0 {
		return c.Display[0].Name
	}

	return defaultCredentialName
}

// Types returns the credential types a wallet files the issued credential under.
func (c *CredentialConfiguration) Types() []string {
	if c.Vct != "" {
		return []string{c.Vct}
	}

	if c.CredentialDefinition == nil {
		return nil
	}

	return lo.Filter(c.CredentialDefinition.Type, func(t string, _ int) bool { return t != verifiableCredentialType })
}

func (c *CredentialConfiguration) claims() map[string]*Claim {
	if c.Claims != nil {
		return c.Claims
	}

	if c.CredentialDefinition != nil {
		return c.CredentialDefinition.CredentialSubject
	}

	return nil
}

// ClaimNames returns the localized claim names in the issuer's order. Claims missing from the order follow
// alphabetically by key.
func (c *CredentialConfiguration) ClaimNames(locale string) []string {
	claims := c.claims()

	keys := lo.Keys(claims)

	sort.SliceStable(keys, func(i, j int) bool {
		li, lj := lo.IndexOf(c.Order, keys[i]), lo.IndexOf(c.Order, keys[j])

		switch {
		case li >= 0 && lj >= 0:
			return li < lj
		case li >= 0:
			return true
		case lj >= 0:
			return false
		default:
			return keys[i] < keys[j]
		}
	})

	return lo.Map(keys, func(k string, _ int) string { return claims[k].DisplayName(locale, k) })
}

type jwtProof struct {
	ProofType string `json:"proof_type"`
	JWT       string `json:"jwt"`
}

type credentialRequest struct {
	Format               string                `json:"format"`
	Vct                  string                `json:"vct,omitempty"`
	CredentialDefinition *CredentialDefinition `json:"credential_definition,omitempty"`
	Proof                *jwtProof             `json:"proof,omitempty"`
}

type credentialResponse struct {
	Credential      interface{} `json:"credential,omitempty"`
	TransactionID   string      `json:"transaction_id,omitempty"`
	CNonce          string      `json:"c_nonce,omitempty"`
	CNonceExpiresIn int         `json:"c_nonce_expires_in,omitempty"`
	NotificationID  string      `json:"notification_id,omitempty"`
}

type proofClaims struct {
	Issuer   string `json:"iss,omitempty"`
	Audience string `json:"aud"`
	IssuedAt int64  `json:"iat"`
	Nonce    string `json:"nonce,omitempty"`
}
