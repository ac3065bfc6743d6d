/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oidc4vp

import (
	"context"
	"net/url"
)

// ResolverService resolves authorization request URIs.
type ResolverService interface {
	Resolve(ctx context.Context, requestURI string) (*ResolvedRequest, error)
}

// ResponderService builds and sends authorization responses.
type ResponderService interface {
	BuildForm(ctx context.Context, req *ResolvedRequest, rr *RespondRequest) (url.Values, error)
	Respond(ctx context.Context, req *ResolvedRequest, rr *RespondRequest) (*TokenSendResult, error)
}

var (
	_ ResolverService  = (*Resolver)(nil)
	_ ResponderService = (*Responder)(nil)
)
