// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package api contains middlewares decorating the intent dispatcher.
package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/clm"
)

var _ clm.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    clm.Service
}

// LoggingMiddleware adds logging facilities to the core service.
func LoggingMiddleware(svc clm.Service, logger *slog.Logger) clm.Service {
	return &loggingMiddleware{logger, svc}
}

// log writes one line per call: Info on success, Warn with the error and
// its reported kind otherwise.
func (lm *loggingMiddleware) log(msg string, begin time.Time, err error, args ...any) {
	args = append(args, slog.String("duration", time.Since(begin).String()))
	if err != nil {
		args = append(args,
			slog.String("error", err.Error()),
			slog.String("error_kind", clm.ErrorKind(err)),
		)
		lm.logger.Warn(msg+" failed", args...)
		return
	}
	lm.logger.Info(msg+" completed successfully", args...)
}

func (lm *loggingMiddleware) Submit(ctx context.Context, intent clm.Intent) (id string, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.Group("intent",
				slog.String("kind", string(intent.Kind)),
				slog.String("subject", intent.Subject),
				slog.String("target_serial", intent.TargetSerial),
				slog.String("target_issuer", intent.TargetIssuer),
				slog.String("profile", intent.CertificateProfile),
			),
		}
		if id != "" {
			args = append(args, slog.String("operation_id", id))
		}
		lm.log("Submit intent", begin, err, args...)
	}(time.Now())
	return lm.svc.Submit(ctx, intent)
}

func (lm *loggingMiddleware) GetOperationStatus(ctx context.Context, id string) (status clm.OperationStatus, err error) {
	defer func(begin time.Time) {
		lm.log("Get operation status", begin, err,
			slog.String("operation_id", id),
			slog.String("state", string(status.State)),
		)
	}(time.Now())
	return lm.svc.GetOperationStatus(ctx, id)
}

func (lm *loggingMiddleware) CancelOperation(ctx context.Context, id string) (err error) {
	defer func(begin time.Time) {
		lm.log("Cancel operation", begin, err, slog.String("operation_id", id))
	}(time.Now())
	return lm.svc.CancelOperation(ctx, id)
}

func (lm *loggingMiddleware) ListOperations(ctx context.Context, pm clm.OperationPageMetadata) (page clm.OperationPage, err error) {
	defer func(begin time.Time) {
		lm.log("List operations", begin, err,
			slog.Group("page",
				slog.Uint64("offset", pm.Offset),
				slog.Uint64("limit", pm.Limit),
				slog.String("state", string(pm.State)),
				slog.String("kind", string(pm.Kind)),
				slog.Uint64("total", page.Total),
			),
		)
	}(time.Now())
	return lm.svc.ListOperations(ctx, pm)
}

func (lm *loggingMiddleware) ViewCert(ctx context.Context, serialNumber string) (cert clm.Certificate, err error) {
	defer func(begin time.Time) {
		lm.log("View certificate", begin, err, slog.String("serial_number", serialNumber))
	}(time.Now())
	return lm.svc.ViewCert(ctx, serialNumber)
}

func (lm *loggingMiddleware) ListCerts(ctx context.Context, pm clm.PageMetadata) (page clm.CertificatePage, err error) {
	defer func(begin time.Time) {
		lm.log("List certificates", begin, err,
			slog.Group("page",
				slog.Uint64("offset", pm.Offset),
				slog.Uint64("limit", pm.Limit),
				slog.String("status", string(pm.Status)),
				slog.Bool("remediation", pm.Remediation),
				slog.Uint64("total", page.Total),
			),
		)
	}(time.Now())
	return lm.svc.ListCerts(ctx, pm)
}

func (lm *loggingMiddleware) ListCAs(ctx context.Context) (cas []clm.CAInfo, err error) {
	defer func(begin time.Time) {
		lm.log("List certificate authorities", begin, err, slog.Int("count", len(cas)))
	}(time.Now())
	return lm.svc.ListCAs(ctx)
}

func (lm *loggingMiddleware) ViewCRL(ctx context.Context, req clm.CRLRequest) (crl clm.CRL, err error) {
	defer func(begin time.Time) {
		lm.log("View revocation list", begin, err,
			slog.String("issuer_dn", req.IssuerDN),
			slog.Bool("delta", req.Delta),
			slog.Int("partition", req.PartitionIndex),
			slog.String("crl_number", crl.Number),
		)
	}(time.Now())
	return lm.svc.ViewCRL(ctx, req)
}

func (lm *loggingMiddleware) CreateCRL(ctx context.Context, issuerDN string, delta bool) (gen clm.CRLGeneration, err error) {
	defer func(begin time.Time) {
		lm.log("Create revocation list", begin, err, slog.String("issuer_dn", issuerDN), slog.Bool("delta", delta))
	}(time.Now())
	return lm.svc.CreateCRL(ctx, issuerDN, delta)
}

func (lm *loggingMiddleware) ViewCAChain(ctx context.Context, subjectDN string) (chain []clm.Certificate, err error) {
	defer func(begin time.Time) {
		lm.log("View CA chain", begin, err, slog.String("subject_dn", subjectDN), slog.Int("count", len(chain)))
	}(time.Now())
	return lm.svc.ViewCAChain(ctx, subjectDN)
}

func (lm *loggingMiddleware) AuthorityStatus(ctx context.Context) (statuses []clm.APIStatus, err error) {
	defer func(begin time.Time) {
		lm.log("Authority status", begin, err, slog.Int("count", len(statuses)))
	}(time.Now())
	return lm.svc.AuthorityStatus(ctx)
}
