// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ReconcilerConfig holds the reconciliation settings.
type ReconcilerConfig struct {
	Interval    time.Duration `env:"INTERVAL"    envDefault:"1m"`
	Staleness   time.Duration `env:"STALENESS"   envDefault:"5m"`
	Concurrency int           `env:"CONCURRENCY" envDefault:"8"`
	Retention   time.Duration `env:"RETENTION"   envDefault:"2160h"`
	// Discovery is how far ahead the authority is asked for expiring
	// certificates unknown to the store. Zero disables discovery.
	Discovery time.Duration `env:"DISCOVERY"   envDefault:"720h"`
}

// SyncResult counts the records touched by one reconciliation pass.
type SyncResult struct {
	Synced   int
	Changed  int
	Expired  int
	Imported int
	Archived int
}

// Reconciler keeps the store eventually consistent with the authority.
type Reconciler struct {
	store  clm.Store
	agent  clm.Agent
	cfg    ReconcilerConfig
	now    func() time.Time
	logger *slog.Logger
}

// NewReconciler returns a reconciler for the given store.
func NewReconciler(s clm.Store, agent clm.Agent, cfg ReconcilerConfig, logger *slog.Logger) *Reconciler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Reconciler{
		store:  s,
		agent:  agent,
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
}

// Run reconciles every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		res, err := r.Sync(ctx)
		if err != nil {
			r.logger.Warn("certificate reconciliation failed", slog.Any("error", err))
		} else if res.Changed+res.Expired+res.Imported+res.Archived > 0 {
			r.logger.Info("certificate reconciliation completed",
				slog.Int("synced", res.Synced),
				slog.Int("changed", res.Changed),
				slog.Int("expired", res.Expired),
				slog.Int("imported", res.Imported),
				slog.Int("archived", res.Archived),
			)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Sync performs one reconciliation pass.
func (r *Reconciler) Sync(ctx context.Context) (SyncResult, error) {
	var res SyncResult

	stale, err := r.store.ListStale(ctx, r.cfg.Staleness)
	if err != nil {
		return res, err
	}

	var synced, changed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for _, cert := range stale {
		g.Go(func() error {
			ok, err := r.syncOne(gctx, cert)
			switch {
			case errors.Contains(err, clm.ErrAuthentication):
				return err
			case err != nil:
				r.logger.Warn("failed to sync certificate", slog.String("serial_number", cert.SerialNumber), slog.Any("error", err))
				return nil
			}
			synced.Add(1)
			if ok {
				changed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	res.Synced, res.Changed = int(synced.Load()), int(changed.Load())

	if res.Expired, err = r.expire(ctx); err != nil {
		return res, err
	}

	if r.cfg.Discovery > 0 {
		if res.Imported, err = r.discover(ctx); err != nil {
			return res, err
		}
	}

	if r.cfg.Retention > 0 {
		if res.Archived, err = r.store.Archive(ctx, r.cfg.Retention); err != nil {
			return res, err
		}
	}

	return res, nil
}

// syncOne applies the authority's view of cert and reports whether the
// local status changed.
func (r *Reconciler) syncOne(ctx context.Context, cert clm.Certificate) (bool, error) {
	remote, err := r.agent.Get(ctx, cert.IssuerDN, cert.SerialNumber)
	if err != nil && !errors.Contains(err, clm.ErrNotFound) {
		return false, err
	}
	found := err == nil
	now := r.now().UTC()

	changed := false
	_, err = r.store.Update(ctx, cert.IssuerDN, cert.SerialNumber, func(c *clm.Certificate) error {
		c.LastSyncedAt = now
		if !found {
			r.logger.Warn("certificate unknown to authority", slog.String("serial_number", c.SerialNumber))
			return nil
		}
		next := reconcileStatus(c.Status, remote.Status)
		if next != remote.Status {
			r.logger.Warn("keeping local certificate status",
				slog.String("serial_number", c.SerialNumber),
				slog.String("local", string(c.Status)),
				slog.String("authority", string(remote.Status)),
			)
		}
		changed = next != c.Status
		c.Status = next
		if c.NotAfter.IsZero() {
			c.NotAfter = remote.NotAfter
		}
		if c.NotBefore.IsZero() {
			c.NotBefore = remote.NotBefore
		}
		if c.SubjectDN == "" {
			c.SubjectDN = remote.SubjectDN
		}
		return nil
	})
	return changed, err
}

// reconcileStatus returns the status a record takes given the authority's
// view. The authority wins unless that would be a forbidden transition, such
// as moving a revoked or expired record back to active.
func reconcileStatus(local, remote clm.Status) clm.Status {
	switch {
	case remote == "" || remote == local:
		return local
	case local == clm.StatusRenewalInProgress && remote == clm.StatusActive:
		return local
	case local.CanTransition(remote):
		return remote
	default:
		return local
	}
}

func (r *Reconciler) expire(ctx context.Context) (int, error) {
	active, err := r.store.ListByStatus(ctx, clm.StatusActive)
	if err != nil {
		return 0, err
	}
	now := r.now()
	expired := 0
	for _, c := range active {
		if c.NotAfter.IsZero() || c.NotAfter.After(now) {
			continue
		}
		if _, err := r.store.MarkStatus(ctx, c.IssuerDN, c.SerialNumber, clm.StatusExpired); err != nil {
			r.logger.Warn("failed to expire certificate", slog.String("serial_number", c.SerialNumber), slog.Any("error", err))
			continue
		}
		expired++
	}
	return expired, nil
}

func (r *Reconciler) discover(ctx context.Context) (int, error) {
	remote, err := r.agent.ListExpiringBefore(ctx, r.now().Add(r.cfg.Discovery))
	if err != nil {
		return 0, err
	}
	imported := 0
	for _, c := range remote {
		if _, err := r.store.Get(ctx, c.IssuerDN, c.SerialNumber); err == nil {
			continue
		} else if !errors.Contains(err, clm.ErrNotFound) {
			return imported, err
		}
		c.LastSyncedAt = r.now().UTC()
		c.Imported = true
		if _, err := r.store.Upsert(ctx, c); err != nil {
			r.logger.Warn("failed to import certificate", slog.String("serial_number", c.SerialNumber), slog.Any("error", err))
			continue
		}
		imported++
	}
	return imported, nil
}
