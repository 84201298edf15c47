// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"time"

	"github.com/absmach/clm"
	"github.com/go-kit/kit/metrics"
)

var _ clm.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     clm.Service
}

// MetricsMiddleware instruments the dispatcher by tracking request count and latency.
// Submit is labelled per intent kind so issue, renew and revoke traffic can be told apart.
func MetricsMiddleware(svc clm.Service, counter metrics.Counter, latency metrics.Histogram) clm.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) observe(method string, begin time.Time) {
	mm.counter.With("method", method).Add(1)
	mm.latency.With("method", method).Observe(time.Since(begin).Seconds())
}

func (mm *metricsMiddleware) Submit(ctx context.Context, intent clm.Intent) (string, error) {
	defer mm.observe("submit_"+string(intent.Kind), time.Now())
	return mm.svc.Submit(ctx, intent)
}

func (mm *metricsMiddleware) GetOperationStatus(ctx context.Context, id string) (clm.OperationStatus, error) {
	defer mm.observe("get_operation_status", time.Now())
	return mm.svc.GetOperationStatus(ctx, id)
}

func (mm *metricsMiddleware) CancelOperation(ctx context.Context, id string) error {
	defer mm.observe("cancel_operation", time.Now())
	return mm.svc.CancelOperation(ctx, id)
}

func (mm *metricsMiddleware) ListOperations(ctx context.Context, pm clm.OperationPageMetadata) (clm.OperationPage, error) {
	defer mm.observe("list_operations", time.Now())
	return mm.svc.ListOperations(ctx, pm)
}

func (mm *metricsMiddleware) ViewCert(ctx context.Context, serialNumber string) (clm.Certificate, error) {
	defer mm.observe("view_certificate", time.Now())
	return mm.svc.ViewCert(ctx, serialNumber)
}

func (mm *metricsMiddleware) ListCerts(ctx context.Context, pm clm.PageMetadata) (clm.CertificatePage, error) {
	defer mm.observe("list_certificates", time.Now())
	return mm.svc.ListCerts(ctx, pm)
}

func (mm *metricsMiddleware) ListCAs(ctx context.Context) ([]clm.CAInfo, error) {
	defer mm.observe("list_cas", time.Now())
	return mm.svc.ListCAs(ctx)
}

func (mm *metricsMiddleware) ViewCRL(ctx context.Context, req clm.CRLRequest) (clm.CRL, error) {
	defer mm.observe("view_crl", time.Now())
	return mm.svc.ViewCRL(ctx, req)
}

func (mm *metricsMiddleware) CreateCRL(ctx context.Context, issuerDN string, delta bool) (clm.CRLGeneration, error) {
	defer mm.observe("create_crl", time.Now())
	return mm.svc.CreateCRL(ctx, issuerDN, delta)
}

func (mm *metricsMiddleware) ViewCAChain(ctx context.Context, subjectDN string) ([]clm.Certificate, error) {
	defer mm.observe("view_ca_chain", time.Now())
	return mm.svc.ViewCAChain(ctx, subjectDN)
}

func (mm *metricsMiddleware) AuthorityStatus(ctx context.Context) ([]clm.APIStatus, error) {
	defer mm.observe("authority_status", time.Now())
	return mm.svc.AuthorityStatus(ctx)
}
