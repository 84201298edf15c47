// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package scheduler submits renewals for certificates approaching expiry.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/pkg/errors"
)

// TickResult summarizes one scheduler pass.
type TickResult struct {
	Submitted  int
	Skipped    int
	Remediated int
	Failed     int
}

// Scheduler turns expiring certificates into renew intents. It never
// creates a second operation for a certificate that already has one in
// flight: the dispatcher reports a conflict and the certificate is skipped.
type Scheduler struct {
	store  clm.Store
	svc    clm.Service
	policy clm.RenewalPolicy
	logger *slog.Logger
}

// New returns a renewal scheduler.
func New(store clm.Store, svc clm.Service, policy clm.RenewalPolicy, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:  store,
		svc:    svc,
		policy: policy,
		logger: logger,
	}
}

// Run ticks immediately and then once per policy interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.policy.Interval)
	defer ticker.Stop()

	for {
		res, err := s.Tick(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			s.logger.Error("renewal tick failed", slog.Any("error", err))
		case res.Submitted > 0 || res.Remediated > 0 || res.Failed > 0:
			s.logger.Info("renewal tick completed",
				slog.Int("submitted", res.Submitted),
				slog.Int("remediated", res.Remediated),
				slog.Int("skipped", res.Skipped),
				slog.Int("failed", res.Failed),
			)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Tick submits renew intents for active certificates expiring within the
// policy threshold and, with auto-remediation, revoke intents for
// certificates left active by a partially failed renewal. Imported records
// are left to the operator.
func (s *Scheduler) Tick(ctx context.Context) (TickResult, error) {
	var res TickResult

	expiring, err := s.store.ListExpiringWithin(ctx, s.policy.Threshold)
	if err != nil {
		return res, err
	}
	for _, c := range expiring {
		if c.Imported || c.SupersededBy != "" || c.RemediationRequired {
			res.Skipped++
			continue
		}
		s.submit(ctx, &res, &res.Submitted, clm.Intent{
			Kind:         clm.KindRenew,
			TargetSerial: c.SerialNumber,
			TargetIssuer: c.IssuerDN,
		})
	}

	if !s.policy.AutoRemediate {
		return res, ctx.Err()
	}

	active, err := s.store.ListByStatus(ctx, clm.StatusActive)
	if err != nil {
		return res, err
	}
	for _, c := range active {
		if c.Imported || !c.RemediationRequired || c.SupersededBy == "" {
			continue
		}
		s.submit(ctx, &res, &res.Remediated, clm.Intent{
			Kind:             clm.KindRevoke,
			TargetSerial:     c.SerialNumber,
			TargetIssuer:     c.IssuerDN,
			RevocationReason: string(clm.ReasonSuperseded),
		})
	}

	return res, ctx.Err()
}

func (s *Scheduler) submit(ctx context.Context, res *TickResult, counter *int, intent clm.Intent) {
	id, err := s.svc.Submit(ctx, intent)
	switch {
	case err == nil:
		*counter++
		s.logger.Debug("scheduled operation", slog.String("kind", string(intent.Kind)), slog.String("serial_number", intent.TargetSerial), slog.String("id", id))
	case errors.Contains(err, clm.ErrConflict), errors.Contains(err, clm.ErrValidation):
		res.Skipped++
	default:
		res.Failed++
		s.logger.Warn("failed to schedule operation", slog.String("kind", string(intent.Kind)), slog.String("serial_number", intent.TargetSerial), slog.Any("error", err))
	}
}
