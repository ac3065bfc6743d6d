/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

//go:generate mockgen -destination service_mocks_test.go -package sharing -source=service.go

package sharing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/vcwallet/internal/logfields"
	"github.com/trustbloc/vcwallet/pkg/account"
	"github.com/trustbloc/vcwallet/pkg/credential"
	"github.com/trustbloc/vcwallet/pkg/doc/presexch"
	"github.com/trustbloc/vcwallet/pkg/keystore"
	"github.com/trustbloc/vcwallet/pkg/service/commentvc"
	"github.com/trustbloc/vcwallet/pkg/service/oidc4vp"
	"github.com/trustbloc/vcwallet/pkg/storage"
	"github.com/trustbloc/vcwallet/pkg/walleterr"
)

var logger = log.New("sharing-service")

const defaultCommentDomain = "boolcheck.com"

// ErrorCode of a sharing failure.
type ErrorCode string

const (
	IllegalState ErrorCode = "illegal_state"
	StorageError ErrorCode = "storage_error"
)

// Error represents a sharing error.
type Error = walleterr.Error[ErrorCode]

type responder interface {
	Respond(ctx context.Context, req *oidc4vp.ResolvedRequest, rr *oidc4vp.RespondRequest) (*oidc4vp.TokenSendResult, error)
}

type accountManager interface {
	Load(records []account.Record) error
	DefaultAccount(rp string, useCase account.UseCase) (*account.Account, error)
}

// Config defines dependencies for the sharing service.
type Config struct {
	Responder   responder
	Accounts    accountManager
	Credentials storage.CredentialStore
	History     storage.HistoryStore
	// KeyStore signs self-issued comment credentials.
	KeyStore keystore.KeyStore
	// CommentDomains are the relying-party host suffixes that receive anonymous comments.
	CommentDomains []string
	Now            func() time.Time
}

// Service presents stored credentials to verifiers and records what was shared.
type Service struct {
	responder      responder
	accounts       accountManager
	credentials    storage.CredentialStore
	history        storage.HistoryStore
	keyStore       keystore.KeyStore
	commentDomains []string
	now            func() time.Time
}

// NewService returns a new sharing Service.
func NewService(cfg *Config) *Service {
	domains := cfg.CommentDomains
	if len(domains) == 0 {
		domains = []string{defaultCommentDomain}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		responder:      cfg.Responder,
		accounts:       cfg.Accounts,
		credentials:    cfg.Credentials,
		history:        cfg.History,
		keyStore:       cfg.KeyStore,
		commentDomains: domains,
		now:            now,
	}
}

// Candidate is a stored credential that satisfies an input descriptor of the request.
type Candidate struct {
	Credential *storage.Credential
	Match      *presexch.MatchResult
}

// Submission selects the candidate with its default claim decisions.
func (c *Candidate) Submission() *credential.SubmissionCredential {
	return &credential.SubmissionCredential{
		ID:              c.Credential.ID,
		Format:          c.Credential.Format,
		Types:           c.Credential.Types,
		RawCredential:   c.Credential.Raw,
		InputDescriptor: c.Match.InputDescriptor,
		DiscloseClaims:  c.Match.Claims,
	}
}

// PreparedComment is a comment credential issued for one sharing.
type PreparedComment struct {
	Credential *storage.Credential
	Submission *credential.SubmissionCredential
	KeyAlias   keystore.Alias
}

// ShareRequest selects what to present.
type ShareRequest struct {
	Credentials []*credential.SubmissionCredential
	// Comment is sent ahead of Credentials and stored once the verifier accepts the response.
	Comment *PreparedComment
}

// Candidates matches every stored credential against the presentation definition of req.
// A request without a definition has no candidates.
func (s *Service) Candidates(ctx context.Context, req *oidc4vp.ResolvedRequest) ([]*Candidate, error) {
	pd := req.PresentationDefinition()
	if pd == nil {
		return nil, nil
	}

	stored, err := s.credentials.GetAll(ctx)
	if err != nil {
		return nil, storageError(fmt.Errorf("get credentials: %w", err))
	}

	var candidates []*Candidate

	for _, c := range stored {
		format, err := credential.FormatFor(c.Format)
		if err != nil {
			logger.Debugc(ctx, "skipping credential of unsupported format",
				logfields.WithCredentialID(c.ID), logfields.WithCredentialFormat(c.Format))

			continue
		}

		match, err := format.Match(pd, c.Raw)
		if err != nil {
			if !errors.Is(err, presexch.ErrNoMatch) {
				logger.Warnc(ctx, "credential match failed", logfields.WithCredentialID(c.ID), log.WithError(err))
			}

			continue
		}

		candidates = append(candidates, &Candidate{Credential: c, Match: match})
	}

	logger.Debugc(ctx, "candidates matched", logfields.WithPresDefID(pd.ID),
		logfields.WithObject(lo.Map(candidates, func(c *Candidate, _ int) string { return c.Credential.ID })))

	return candidates, nil
}

// CommentRequested reports whether req asks a comment relying party for a comment credential.
func (s *Service) CommentRequested(req *oidc4vp.ResolvedRequest) bool {
	return strings.HasPrefix(req.RequestURI(), oidc4vp.SchemeOpenID4VP+"://") &&
		s.isCommentClient(req.ClientID()) &&
		commentvc.Requested(req.PresentationDefinition())
}

// PrepareComment issues the comment credential the request asks for. An anonymous comment is signed by a
// one-time key, a named one by the key-binding key.
func (s *Service) PrepareComment(
	ctx context.Context,
	req *oidc4vp.ResolvedRequest,
	anonymous bool,
) (*PreparedComment, error) {
	target, descriptor, err := commentvc.TargetFromDefinition(req.PresentationDefinition())
	if err != nil {
		return nil, err
	}

	alias := keystore.KeyBinding
	if anonymous {
		alias = keystore.OneTime()
	}

	issuer := commentvc.NewIssuer(&commentvc.Config{KeyStore: s.keyStore, KeyAlias: alias, Now: s.now})

	cred, err := issuer.Issue(ctx, target.URL, target.Comment, target.BoolValue)
	if err != nil {
		return nil, err
	}

	submission, err := commentvc.Submission(cred, descriptor)
	if err != nil {
		return nil, err
	}

	return &PreparedComment{Credential: cred, Submission: submission, KeyAlias: alias}, nil
}

// Share selects the ID-token account and signing keys, sends the response and records the sharing.
// History is written only after the verifier accepted the response.
func (s *Service) Share(
	ctx context.Context,
	req *oidc4vp.ResolvedRequest,
	sr *ShareRequest,
) (*oidc4vp.TokenSendResult, error) {
	if req == nil || sr == nil {
		return nil, walleterr.New(walleterr.KindState, IllegalState, errors.New("missing request")).
			WithComponent(walleterr.SharingServiceComponent)
	}

	rp := req.ClientID()

	creds := sr.Credentials
	if sr.Comment != nil {
		creds = append([]*credential.SubmissionCredential{sr.Comment.Submission}, creds...)
	}

	acct, err := s.selectAccount(ctx, rp, len(creds))
	if err != nil {
		return nil, err
	}

	result, err := s.responder.Respond(ctx, req, &oidc4vp.RespondRequest{
		Credentials:    creds,
		IDTokenAccount: acct,
		KeyAliases:     s.keyAliases(rp, sr, len(creds)),
	})
	if err != nil {
		return nil, err
	}

	logger.Infoc(ctx, "authorization response accepted", logfields.WithRelyingParty(rp),
		logfields.WithHTTPStatus(result.StatusCode))

	if sr.Comment != nil {
		if err = s.credentials.Save(ctx, sr.Comment.Credential); err != nil {
			logger.Errorc(ctx, "save comment credential", log.WithError(err))
		}
	}

	s.recordHistory(ctx, req, acct, result)

	return result, nil
}

// selectAccount loads the sharing history and returns the default account for rp. A comment relying party
// receiving exactly one credential gets an anonymous account; everything else is identified.
func (s *Service) selectAccount(ctx context.Context, rp string, credentialCount int) (*account.Account, error) {
	history, err := s.history.IDTokenSharings(ctx, "")
	if err != nil {
		return nil, storageError(fmt.Errorf("get id token history: %w", err))
	}

	if err = s.accounts.Load(storage.AccountRecords(history)); err != nil {
		return nil, walleterr.New(walleterr.KindState, IllegalState, err).
			WithComponent(walleterr.SharingServiceComponent)
	}

	useCase := account.DefaultIdentified
	if s.isCommentClient(rp) && credentialCount == 1 {
		useCase = account.DefaultAnonymous
	}

	acct, err := s.accounts.DefaultAccount(rp, useCase)
	if err != nil {
		return nil, walleterr.New(walleterr.KindState, IllegalState, err).
			WithComponent(walleterr.SharingServiceComponent)
	}

	logger.Debugc(ctx, "account selected", logfields.WithRelyingParty(rp),
		logfields.WithUseCase(string(useCase)), logfields.WithAccountIndex(acct.Index))

	return acct, nil
}

// keyAliases picks the jwt_vp_json signing key. A comment relying party sees a single credential signed by
// a one-time key and several credentials signed by the key-binding key.
func (s *Service) keyAliases(rp string, sr *ShareRequest, credentialCount int) map[string]keystore.Alias {
	aliases := map[string]keystore.Alias{
		credential.FormatSDJWT:     keystore.KeyBinding,
		credential.FormatJWTVCJSON: keystore.JWTVPJSON,
	}

	if !s.isCommentClient(rp) {
		return aliases
	}

	switch {
	case credentialCount == 1:
		aliases[credential.FormatJWTVCJSON] = keystore.OneTime()

		if sr.Comment != nil {
			aliases[credential.FormatJWTVCJSON] = sr.Comment.KeyAlias
		}
	case credentialCount > 1:
		aliases[credential.FormatJWTVCJSON] = keystore.KeyBinding
	}

	return aliases
}

func (s *Service) recordHistory(
	ctx context.Context,
	req *oidc4vp.ResolvedRequest,
	acct *account.Account,
	result *oidc4vp.TokenSendResult,
) {
	now := s.now()
	rp := req.ClientID()

	metadata := req.ClientMetadata()

	for _, shared := range result.SharedCredentials {
		rec := &storage.CredentialSharing{
			RP:           lo.Ternary(metadata.ClientID != "", metadata.ClientID, rp),
			RPName:       metadata.ClientName,
			LogoURI:      metadata.LogoURI,
			PolicyURI:    metadata.PolicyURI,
			AccountIndex: acct.Index,
			CredentialID: shared.ID,
			Format:       shared.Format,
			Types:        shared.Types,
			Purpose:      shared.Purpose,
			CreatedAt:    now,
		}

		for _, c := range shared.SharedClaims {
			rec.Claims = append(rec.Claims, storage.SharedClaim{Name: c.Name, Value: c.Value})
		}

		if err := s.history.SaveCredentialSharing(ctx, rec); err != nil {
			logger.Errorc(ctx, "save credential sharing history", logfields.WithCredentialID(shared.ID),
				log.WithError(err))
		}
	}

	if result.SharedIDToken == nil {
		return
	}

	err := s.history.SaveIDTokenSharing(ctx, &storage.IDTokenSharing{
		RP:           rp,
		RPName:       metadata.ClientName,
		AccountIndex: acct.Index,
		UseCase:      acct.UseCase,
		Thumbprint:   acct.Thumbprint,
		CreatedAt:    now,
	})
	if err != nil {
		logger.Errorc(ctx, "save id token sharing history", logfields.WithRelyingParty(rp), log.WithError(err))
	}
}

func (s *Service) isCommentClient(clientID string) bool {
	u, err := url.Parse(clientID)
	if err != nil || u.Hostname() == "" {
		return false
	}

	host := u.Hostname()

	return lo.ContainsBy(s.commentDomains, func(d string) bool { return strings.HasSuffix(host, d) })
}

func storageError(err error) *Error {
	return walleterr.New(walleterr.KindServer, StorageError, err).
		WithComponent(walleterr.SharingServiceComponent)
}
