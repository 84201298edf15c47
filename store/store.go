// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package store implements the single-writer certificate store and its
// reconciliation against the certificate authority.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/pkg/errors"
)

var (
	errIdentityChanged = errors.New("issuer and serial number cannot change")
	errMissingIssuer   = errors.New("empty issuer")
	errAmbiguousSerial = errors.New("serial number is held by more than one issuer")
)

var _ clm.Store = (*store)(nil)

type store struct {
	repo   clm.CertificateRepository
	locks  *serialLocks
	now    func() time.Time
	logger *slog.Logger
}

// Option configures the store.
type Option func(*store)

// WithClock replaces the wall clock used for timestamps and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *store) {
		s.now = now
	}
}

// New returns a certificate store over repo.
func New(repo clm.CertificateRepository, logger *slog.Logger, opts ...Option) clm.Store {
	s := &store{
		repo:   repo,
		locks:  newSerialLocks(),
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *store) Upsert(ctx context.Context, cert clm.Certificate) (clm.Certificate, error) {
	cert.SerialNumber = clm.NormalizeSerialNumber(cert.SerialNumber)
	if cert.SerialNumber == "" {
		return clm.Certificate{}, errors.Wrap(clm.ErrMalformedEntity, errors.New("empty serial number"))
	}
	if cert.IssuerDN == "" {
		return clm.Certificate{}, errors.Wrap(clm.ErrMalformedEntity, errMissingIssuer)
	}
	if cert.Status == "" {
		cert.Status = clm.StatusActive
	}
	if !cert.Status.Valid() {
		return clm.Certificate{}, errors.Wrap(clm.ErrMalformedEntity, fmt.Errorf("unknown status %q", cert.Status))
	}

	unlock := s.locks.lock(clm.CertificateKey(cert.IssuerDN, cert.SerialNumber))
	defer unlock()

	now := s.now().UTC()
	existing, err := s.repo.Retrieve(ctx, cert.IssuerDN, cert.SerialNumber)
	switch {
	case errors.Contains(err, clm.ErrNotFound):
		if cert.CreatedAt.IsZero() {
			cert.CreatedAt = now
		}
		if cert.LastSyncedAt.IsZero() {
			cert.LastSyncedAt = now
		}
		cert.UpdatedAt = now
		if err := s.repo.Save(ctx, cert); err != nil {
			return clm.Certificate{}, err
		}
		return cert, nil
	case err != nil:
		return clm.Certificate{}, err
	}

	if !existing.Status.CanTransition(cert.Status) {
		return clm.Certificate{}, errors.Wrap(clm.ErrInvalidTransition, fmt.Errorf("%s: %s to %s", cert.SerialNumber, existing.Status, cert.Status))
	}

	merged := merge(existing, cert)
	merged.UpdatedAt = now
	if err := s.repo.Update(ctx, merged); err != nil {
		return clm.Certificate{}, err
	}
	return merged, nil
}

// merge overlays the known fields of next on the stored record of the same
// issuer and serial number.
func merge(cur, next clm.Certificate) clm.Certificate {
	out := cur
	out.Status = next.Status
	if next.SubjectDN != "" {
		out.SubjectDN = next.SubjectDN
	}
	if !next.NotBefore.IsZero() {
		out.NotBefore = next.NotBefore
	}
	if !next.NotAfter.IsZero() {
		out.NotAfter = next.NotAfter
	}
	if next.Fingerprint != "" {
		out.Fingerprint = next.Fingerprint
	}
	if next.Profile != "" {
		out.Profile = next.Profile
	}
	if len(next.Certificate) > 0 {
		out.Certificate = next.Certificate
	}
	if len(next.Key) > 0 {
		out.Key = next.Key
	}
	if next.SupersededBy != "" {
		out.SupersededBy = next.SupersededBy
	}
	if next.RemediationRequired {
		out.RemediationRequired = true
	}
	if next.LastSyncedAt.After(out.LastSyncedAt) {
		out.LastSyncedAt = next.LastSyncedAt
	}
	return out
}

func (s *store) Get(ctx context.Context, issuerDN, serialNumber string) (clm.Certificate, error) {
	serialNumber = clm.NormalizeSerialNumber(serialNumber)
	if issuerDN != "" {
		return s.repo.Retrieve(ctx, issuerDN, serialNumber)
	}
	certs, err := s.repo.RetrieveBySerial(ctx, serialNumber)
	if err != nil {
		return clm.Certificate{}, err
	}
	switch len(certs) {
	case 0:
		return clm.Certificate{}, errors.Wrap(clm.ErrNotFound, errors.New(serialNumber))
	case 1:
		return certs[0], nil
	default:
		return clm.Certificate{}, errors.Wrap(clm.ErrConflict, errAmbiguousSerial)
	}
}

func (s *store) List(ctx context.Context, pm clm.PageMetadata) (clm.CertificatePage, error) {
	return s.repo.List(ctx, pm)
}

func (s *store) ListByStatus(ctx context.Context, status clm.Status) ([]clm.Certificate, error) {
	page, err := s.repo.List(ctx, clm.PageMetadata{Status: status})
	if err != nil {
		return nil, err
	}
	return page.Certificates, nil
}

func (s *store) ListExpiringWithin(ctx context.Context, d time.Duration) ([]clm.Certificate, error) {
	page, err := s.repo.List(ctx, clm.PageMetadata{
		Status:        clm.StatusActive,
		ExpiresBefore: s.now().Add(d),
	})
	if err != nil {
		return nil, err
	}
	return page.Certificates, nil
}

func (s *store) ListStale(ctx context.Context, d time.Duration) ([]clm.Certificate, error) {
	return s.repo.ListStale(ctx, s.now().Add(-d), 0)
}

func (s *store) MarkStatus(ctx context.Context, issuerDN, serialNumber string, status clm.Status) (clm.Certificate, error) {
	if !status.Valid() {
		return clm.Certificate{}, errors.Wrap(clm.ErrMalformedEntity, fmt.Errorf("unknown status %q", status))
	}
	return s.Update(ctx, issuerDN, serialNumber, func(c *clm.Certificate) error {
		c.Status = status
		return nil
	})
}

func (s *store) Update(ctx context.Context, issuerDN, serialNumber string, fn func(*clm.Certificate) error) (clm.Certificate, error) {
	serialNumber = clm.NormalizeSerialNumber(serialNumber)
	if issuerDN == "" {
		cert, err := s.Get(ctx, "", serialNumber)
		if err != nil {
			return clm.Certificate{}, err
		}
		issuerDN = cert.IssuerDN
	}
	unlock := s.locks.lock(clm.CertificateKey(issuerDN, serialNumber))
	defer unlock()

	cur, err := s.repo.Retrieve(ctx, issuerDN, serialNumber)
	if err != nil {
		return clm.Certificate{}, err
	}

	next := cur
	if err := fn(&next); err != nil {
		return clm.Certificate{}, err
	}
	if next.SerialNumber != cur.SerialNumber || next.IssuerDN != cur.IssuerDN {
		return clm.Certificate{}, errors.Wrap(clm.ErrMalformedEntity, errIdentityChanged)
	}
	if !cur.Status.CanTransition(next.Status) {
		return clm.Certificate{}, errors.Wrap(clm.ErrInvalidTransition, fmt.Errorf("%s: %s to %s", serialNumber, cur.Status, next.Status))
	}

	next.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, next); err != nil {
		return clm.Certificate{}, err
	}
	if cur.Status != next.Status {
		s.logger.Debug("certificate status changed", slog.String("issuer_dn", issuerDN), slog.String("serial_number", serialNumber), slog.String("from", string(cur.Status)), slog.String("to", string(next.Status)))
	}
	return next, nil
}

func (s *store) Archive(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := s.now().Add(-retention)
	archived := 0
	for _, status := range []clm.Status{clm.StatusRevoked, clm.StatusExpired} {
		certs, err := s.ListByStatus(ctx, status)
		if err != nil {
			return archived, err
		}
		for _, c := range certs {
			if !c.UpdatedAt.Before(cutoff) {
				continue
			}
			_, err := s.Update(ctx, c.IssuerDN, c.SerialNumber, func(c *clm.Certificate) error {
				if c.ArchivedAt == nil {
					at := s.now().UTC()
					c.ArchivedAt = &at
				}
				return nil
			})
			if err != nil {
				return archived, err
			}
			archived++
		}
	}
	return archived, nil
}
