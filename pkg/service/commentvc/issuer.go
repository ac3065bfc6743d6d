/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package commentvc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/vcwallet/internal/logfields"
	"github.com/trustbloc/vcwallet/pkg/credential"
	"github.com/trustbloc/vcwallet/pkg/doc/jwt"
	"github.com/trustbloc/vcwallet/pkg/doc/presexch"
	"github.com/trustbloc/vcwallet/pkg/doc/sdjwt"
	"github.com/trustbloc/vcwallet/pkg/keystore"
	"github.com/trustbloc/vcwallet/pkg/storage"
	"github.com/trustbloc/vcwallet/pkg/walleterr"
)

var logger = log.New("comment-credential-issuer")

const (
	defaultIssuerBaseURL = "https://self-issued.boolcheck.com"
	issuerName           = "Comment VC Issuer"

	credentialsContext   = "https://www.w3.org/2018/credentials/v1"
	verifiableCredential = "VerifiableCredential"
)

// ErrorCode of a comment issuance failure.
type ErrorCode string

const (
	InvalidComment ErrorCode = "invalid_comment"
	KeyError       ErrorCode = "key_error"
)

// Error represents a comment issuance error.
type Error = walleterr.Error[ErrorCode]

// Config for the comment credential issuer.
type Config struct {
	KeyStore keystore.KeyStore
	// KeyAlias names the signing key. It is generated on first use.
	KeyAlias keystore.Alias
	// IssuerBaseURL prefixes the issuer thumbprint in the stored credential metadata.
	IssuerBaseURL string
	Now           func() time.Time
}

// Issuer self-issues CommentCredentials.
type Issuer struct {
	keyStore      keystore.KeyStore
	keyAlias      keystore.Alias
	issuerBaseURL string
	now           func() time.Time
}

// NewIssuer returns an Issuer signing with cfg.KeyAlias.
func NewIssuer(cfg *Config) *Issuer {
	baseURL := cfg.IssuerBaseURL
	if baseURL == "" {
		baseURL = defaultIssuerBaseURL
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Issuer{
		keyStore:      cfg.KeyStore,
		keyAlias:      cfg.KeyAlias,
		issuerBaseURL: strings.TrimSuffix(baseURL, "/"),
		now:           now,
	}
}

// KeyAlias returns the alias of the signing key.
func (i *Issuer) KeyAlias() keystore.Alias {
	return i.keyAlias
}

type vcClaims struct {
	Context           []string `json:"@context"`
	Type              []string `json:"type"`
	CredentialSubject *Comment `json:"credentialSubject"`
}

type payload struct {
	Issuer    string    `json:"iss"`
	Subject   string    `json:"sub"`
	NotBefore int64     `json:"nbf"`
	VC        *vcClaims `json:"vc"`
}

// Issue signs a jwt_vc_json CommentCredential over the comment on url.
// The issuer and subject are the RFC 7638 thumbprint of the signing key.
func (i *Issuer) Issue(ctx context.Context, url, comment string, boolValue ContentTruth) (*storage.Credential, error) {
	if url == "" || !boolValue.Valid() {
		return nil, walleterr.New(walleterr.KindInput, InvalidComment,
			errors.New("comment needs a url and a bool_value of 0, 1 or 2")).
			WithComponent(walleterr.CommentCredentialComponent).
			WithIncorrectValue("bool_value")
	}

	pub, err := keystore.Ensure(ctx, i.keyStore, i.keyAlias, jwt.CurveP256)
	if err != nil {
		return nil, i.keyError(fmt.Errorf("ensure key %s: %w", i.keyAlias, err))
	}

	signer, err := i.keyStore.Signer(ctx, i.keyAlias)
	if err != nil {
		return nil, i.keyError(fmt.Errorf("signer %s: %w", i.keyAlias, err))
	}

	iss, err := pub.Thumbprint()
	if err != nil {
		return nil, i.keyError(err)
	}

	now := i.now()

	header := map[string]interface{}{
		jwt.HeaderTyp: "JWT",
		jwt.HeaderJWK: pub.Public(),
	}

	token, err := jwt.Sign(header, &payload{
		Issuer:    iss,
		Subject:   iss,
		NotBefore: now.Unix(),
		VC: &vcClaims{
			Context:           []string{credentialsContext},
			Type:              []string{verifiableCredential, CredentialType},
			CredentialSubject: &Comment{URL: url, Comment: comment, BoolValue: boolValue},
		},
	}, signer)
	if err != nil {
		return nil, fmt.Errorf("sign comment credential: %w", err)
	}

	logger.Debugc(ctx, "comment credential issued", logfields.WithCredentialFormat(credential.FormatJWTVCJSON))

	return &storage.Credential{
		ID:         uuid.NewString(),
		Format:     credential.FormatJWTVCJSON,
		Types:      []string{CredentialType},
		Raw:        token,
		Issuer:     i.issuerBaseURL + "/" + iss,
		IssuerName: issuerName,
		CreatedAt:  now,
	}, nil
}

func (i *Issuer) keyError(err error) *Error {
	return walleterr.New(walleterr.KindState, KeyError, err).
		WithComponent(walleterr.CommentCredentialComponent)
}

// Submission selects an issued comment credential for descriptor with every subject claim submitted.
func Submission(cred *storage.Credential, descriptor *presexch.InputDescriptor) (*credential.SubmissionCredential, error) {
	var vc struct {
		VC struct {
			CredentialSubject map[string]interface{} `json:"credentialSubject"`
		} `json:"vc"`
	}

	if err := jwt.Decode(cred.Raw, &vc); err != nil {
		return nil, fmt.Errorf("decode comment credential: %w", err)
	}

	keys := make([]string, 0, len(vc.VC.CredentialSubject))
	for k := range vc.VC.CredentialSubject {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	claims := make([]presexch.DisclosureWithOptionality, 0, len(keys))
	for _, k := range keys {
		claims = append(claims, presexch.DisclosureWithOptionality{
			Disclosure: sdjwt.Disclosure{Key: k, Value: vc.VC.CredentialSubject[k]},
			IsSubmit:   true,
		})
	}

	return &credential.SubmissionCredential{
		ID:              cred.ID,
		Format:          cred.Format,
		Types:           cred.Types,
		RawCredential:   cred.Raw,
		InputDescriptor: descriptor,
		DiscloseClaims:  claims,
	}, nil
}
