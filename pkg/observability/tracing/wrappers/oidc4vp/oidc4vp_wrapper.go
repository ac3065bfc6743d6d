/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

//go:generate mockgen -destination gomocks_test.go -package oidc4vp . ResolverService,ResponderService

package oidc4vp

import (
	"context"
	"net/url"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/trustbloc/vcwallet/pkg/credential"
	"github.com/trustbloc/vcwallet/pkg/observability/tracing/attributeutil"
	"github.com/trustbloc/vcwallet/pkg/service/oidc4vp"
)

type ResolverService oidc4vp.ResolverService

type ResponderService oidc4vp.ResponderService

// ResolverWrapper traces authorization request resolution.
type ResolverWrapper struct {
	svc    ResolverService
	tracer trace.Tracer
}

func WrapResolver(svc ResolverService, tracer trace.Tracer) *ResolverWrapper {
	return &ResolverWrapper{svc: svc, tracer: tracer}
}

func (w *ResolverWrapper) Resolve(ctx context.Context, requestURI string) (*oidc4vp.ResolvedRequest, error) {
	ctx, span := w.tracer.Start(ctx, "oidc4vp.Resolve")
	defer span.End()

	span.SetAttributes(attribute.String("request_uri", requestURI))

	req, err := w.svc.Resolve(ctx, requestURI)
	if err != nil {
		recordError(span, err)

		return nil, err
	}

	span.SetAttributes(requestAttributes(req)...)
	span.SetAttributes(attribute.Bool("signed", req.Signed()))
	span.SetAttributes(attribute.String("response_type", req.ResponseType()))
	span.SetAttributes(attributeutil.JSON("presentation_definition", req.PresentationDefinition()))

	return req, nil
}

// ResponderWrapper traces authorization responses. Tokens never reach span attributes.
type ResponderWrapper struct {
	svc    ResponderService
	tracer trace.Tracer
}

func WrapResponder(svc ResponderService, tracer trace.Tracer) *ResponderWrapper {
	return &ResponderWrapper{svc: svc, tracer: tracer}
}

func (w *ResponderWrapper) BuildForm(
	ctx context.Context,
	req *oidc4vp.ResolvedRequest,
	rr *oidc4vp.RespondRequest,
) (url.Values, error) {
	ctx, span := w.tracer.Start(ctx, "oidc4vp.BuildForm")
	defer span.End()

	span.SetAttributes(requestAttributes(req)...)
	span.SetAttributes(respondRequestAttributes(rr)...)

	form, err := w.svc.BuildForm(ctx, req, rr)
	if err != nil {
		recordError(span, err)

		return nil, err
	}

	span.SetAttributes(attributeutil.FormParams("form", form,
		attributeutil.WithRedacted(oidc4vp.ResponseTypeVPToken),
		attributeutil.WithRedacted(oidc4vp.ResponseTypeIDToken),
	))

	return form, nil
}

func (w *ResponderWrapper) Respond(
	ctx context.Context,
	req *oidc4vp.ResolvedRequest,
	rr *oidc4vp.RespondRequest,
) (*oidc4vp.TokenSendResult, error) {
	ctx, span := w.tracer.Start(ctx, "oidc4vp.Respond")
	defer span.End()

	span.SetAttributes(requestAttributes(req)...)
	span.SetAttributes(respondRequestAttributes(rr)...)

	result, err := w.svc.Respond(ctx, req, rr)
	if err != nil {
		recordError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.Int("status_code", result.StatusCode))
	span.SetAttributes(attribute.StringSlice("shared_claims", lo.FlatMap(result.SharedCredentials,
		func(c *oidc4vp.SharedCredential, _ int) []string {
			return lo.Map(c.SharedClaims, func(claim oidc4vp.SharedClaim, _ int) string { return claim.Name })
		})))

	return result, nil
}

func requestAttributes(req *oidc4vp.ResolvedRequest) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("client_id", req.ClientID()),
		attribute.String("client_id_scheme", req.ClientIDScheme()),
		attribute.String("response_mode", string(req.ResponseMode())),
		attribute.String("destination", req.Destination()),
	}
}

func respondRequestAttributes(rr *oidc4vp.RespondRequest) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.StringSlice("credential_ids", lo.Map(rr.Credentials,
			func(c *credential.SubmissionCredential, _ int) string {
				return c.ID
			})),
		attribute.Bool("id_token", rr.IDTokenAccount != nil),
	}
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
