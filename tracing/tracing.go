// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package tracing wraps the intent dispatcher with OpenTelemetry spans.
package tracing

import (
	"context"

	"github.com/absmach/clm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ clm.Service = (*tracingMiddleware)(nil)

type tracingMiddleware struct {
	tracer trace.Tracer
	svc    clm.Service
}

// New returns a new dispatcher with tracing capabilities.
func New(svc clm.Service, tracer trace.Tracer) clm.Service {
	return &tracingMiddleware{tracer, svc}
}

func (tm *tracingMiddleware) Submit(ctx context.Context, intent clm.Intent) (string, error) {
	ctx, span := tm.tracer.Start(ctx, "submit_intent", trace.WithAttributes(
		attribute.String("kind", string(intent.Kind)),
		attribute.String("target_serial", intent.TargetSerial),
	))
	defer span.End()

	id, err := tm.svc.Submit(ctx, intent)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, clm.ErrorKind(err))
		return id, err
	}
	span.SetAttributes(attribute.String("operation_id", id))

	return id, nil
}

func (tm *tracingMiddleware) GetOperationStatus(ctx context.Context, id string) (clm.OperationStatus, error) {
	ctx, span := tm.tracer.Start(ctx, "get_operation_status", trace.WithAttributes(attribute.String("operation_id", id)))
	defer span.End()
	return tm.svc.GetOperationStatus(ctx, id)
}

func (tm *tracingMiddleware) CancelOperation(ctx context.Context, id string) error {
	ctx, span := tm.tracer.Start(ctx, "cancel_operation", trace.WithAttributes(attribute.String("operation_id", id)))
	defer span.End()
	return tm.svc.CancelOperation(ctx, id)
}

func (tm *tracingMiddleware) ListOperations(ctx context.Context, pm clm.OperationPageMetadata) (clm.OperationPage, error) {
	ctx, span := tm.tracer.Start(ctx, "list_operations")
	defer span.End()
	return tm.svc.ListOperations(ctx, pm)
}

func (tm *tracingMiddleware) ViewCert(ctx context.Context, serialNumber string) (clm.Certificate, error) {
	ctx, span := tm.tracer.Start(ctx, "view_cert", trace.WithAttributes(attribute.String("serial_number", serialNumber)))
	defer span.End()
	return tm.svc.ViewCert(ctx, serialNumber)
}

func (tm *tracingMiddleware) ListCerts(ctx context.Context, pm clm.PageMetadata) (clm.CertificatePage, error) {
	ctx, span := tm.tracer.Start(ctx, "list_certs")
	defer span.End()
	return tm.svc.ListCerts(ctx, pm)
}

func (tm *tracingMiddleware) ListCAs(ctx context.Context) ([]clm.CAInfo, error) {
	ctx, span := tm.tracer.Start(ctx, "list_cas")
	defer span.End()
	return tm.svc.ListCAs(ctx)
}

func (tm *tracingMiddleware) ViewCRL(ctx context.Context, req clm.CRLRequest) (clm.CRL, error) {
	ctx, span := tm.tracer.Start(ctx, "view_crl", trace.WithAttributes(
		attribute.String("issuer_dn", req.IssuerDN),
		attribute.Bool("delta", req.Delta),
	))
	defer span.End()
	return tm.svc.ViewCRL(ctx, req)
}

func (tm *tracingMiddleware) CreateCRL(ctx context.Context, issuerDN string, delta bool) (clm.CRLGeneration, error) {
	ctx, span := tm.tracer.Start(ctx, "create_crl", trace.WithAttributes(
		attribute.String("issuer_dn", issuerDN),
		attribute.Bool("delta", delta),
	))
	defer span.End()
	return tm.svc.CreateCRL(ctx, issuerDN, delta)
}

func (tm *tracingMiddleware) ViewCAChain(ctx context.Context, subjectDN string) ([]clm.Certificate, error) {
	ctx, span := tm.tracer.Start(ctx, "view_ca_chain", trace.WithAttributes(attribute.String("subject_dn", subjectDN)))
	defer span.End()
	return tm.svc.ViewCAChain(ctx, subjectDN)
}

func (tm *tracingMiddleware) AuthorityStatus(ctx context.Context) ([]clm.APIStatus, error) {
	ctx, span := tm.tracer.Start(ctx, "authority_status")
	defer span.End()
	return tm.svc.AuthorityStatus(ctx)
}
