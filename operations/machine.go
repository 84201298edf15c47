// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package operations

import (
	"context"
	"crypto"
	"fmt"
	"log/slog"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/pkg/errors"
	"github.com/cenkalti/backoff/v4"
)

var (
	errUnknownKind  = errors.New("unknown operation kind")
	errUnknownState = errors.New("unknown operation state")
	errNoTarget     = errors.New("target certificate is no longer renewable")
)

// Machine advances operations through their states. Every transition is
// persisted before the authority is called for it.
type Machine struct {
	ops      clm.OperationRepository
	store    clm.Store
	agent    clm.Agent
	notifier clm.Notifier
	policy   clm.Policy
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewMachine returns the operation state machine.
func NewMachine(ops clm.OperationRepository, store clm.Store, agent clm.Agent, notifier clm.Notifier, policy clm.Policy, cfg Config, logger *slog.Logger) *Machine {
	return &Machine{
		ops:      ops,
		store:    store,
		agent:    agent,
		notifier: notifier,
		policy:   policy,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
}

// Advance moves op forward by one step and returns how long to wait before
// the next one. A zero delay on a non-terminal operation means the next step
// can run immediately. Returned errors are storage failures; op then no
// longer reflects the persisted state and must be reloaded.
func (m *Machine) Advance(ctx context.Context, op *clm.Operation) (time.Duration, error) {
	switch op.State {
	case clm.StateCompleted, clm.StateFailed, clm.StateCompensated:
		return 0, nil
	case clm.StateCreated:
		return m.start(ctx, op)
	case clm.StateSubmitted:
		return m.resume(ctx, op)
	case clm.StateAwaitingConfirmation:
		return m.poll(ctx, op)
	case clm.StateCompensating:
		return 0, m.compensate(ctx, op)
	default:
		return 0, errors.Wrap(errUnknownState, errors.New(string(op.State)))
	}
}

func (m *Machine) start(ctx context.Context, op *clm.Operation) (time.Duration, error) {
	if op.CancelRequested {
		return 0, m.abort(ctx, op, clm.ErrCancelled)
	}

	switch op.Kind {
	case clm.KindIssue:
	case clm.KindRenew:
		_, err := m.store.Update(ctx, op.TargetIssuer, op.TargetSerial, func(c *clm.Certificate) error {
			if c.Status != clm.StatusActive && c.Status != clm.StatusRenewalInProgress {
				return errors.Wrap(clm.ErrConflict, errNoTarget)
			}
			c.Status = clm.StatusRenewalInProgress
			return nil
		})
		switch {
		case errors.Contains(err, clm.ErrConflict), errors.Contains(err, clm.ErrNotFound):
			return 0, m.fail(ctx, op, errors.Wrap(clm.ErrConflict, err))
		case err != nil:
			return 0, err
		}
	case clm.KindRevoke:
	default:
		return 0, m.fail(ctx, op, errors.Wrap(clm.ErrValidation, errUnknownKind))
	}

	if op.Phase == clm.PhaseIssue && len(op.CSR) == 0 {
		if err := m.prepareCSR(ctx, op); err != nil {
			if errors.Contains(err, clm.ErrViewEntity) {
				return 0, err
			}
			return 0, m.abort(ctx, op, errors.Wrap(clm.ErrValidation, err))
		}
	}

	return m.attempt(ctx, op)
}

// prepareCSR stores the key and CSR on the operation so that a resubmission
// presents the same request.
func (m *Machine) prepareCSR(ctx context.Context, op *clm.Operation) error {
	subject, err := clm.ParseDN(op.Params.Subject)
	if err != nil {
		return err
	}

	var (
		key    crypto.Signer
		keyPEM []byte
	)
	if op.Params.ReuseKey && op.TargetSerial != "" {
		target, err := m.store.Get(ctx, op.TargetIssuer, op.TargetSerial)
		if err != nil {
			return errors.Wrap(clm.ErrViewEntity, err)
		}
		if key, err = clm.ParsePrivateKey(target.Key); err != nil {
			return err
		}
		keyPEM = target.Key
	}
	if key == nil {
		prof, _ := m.policy.Profile(op.Params.Profile)
		if key, keyPEM, err = clm.GenerateKey(prof.KeyAlgorithm, prof.KeyBits); err != nil {
			return err
		}
	}

	csr, err := clm.CreateCSR(subject, op.Params.DNSNames, key)
	if err != nil {
		return err
	}
	op.CSR = csr
	op.Key = keyPEM

	return nil
}

// resume handles an operation found in the submitted state. A positive
// attempt count means an earlier request may have reached the authority, so
// its outcome is checked before the request is sent again.
func (m *Machine) resume(ctx context.Context, op *clm.Operation) (time.Duration, error) {
	if op.CancelRequested {
		return 0, m.abort(ctx, op, clm.ErrCancelled)
	}
	if op.Attempts == 0 {
		return m.attempt(ctx, op)
	}

	cert, ok, err := m.confirm(ctx, op)
	switch {
	case err != nil && ctx.Err() != nil:
		return 0, ctx.Err()
	case err != nil && !clm.IsTransient(err):
		return 0, m.abort(ctx, op, err)
	case ok:
		return 0, m.confirmed(ctx, op, cert)
	}

	return m.attempt(ctx, op)
}

// confirm asks the authority whether the current phase already took effect.
func (m *Machine) confirm(ctx context.Context, op *clm.Operation) (clm.Certificate, bool, error) {
	var (
		cert clm.Certificate
		err  error
	)
	switch op.Phase {
	case clm.PhaseIssue:
		cert, err = m.agent.Lookup(ctx, op.IdempotencyToken, op.CSR)
	default:
		cert, err = m.agent.Get(ctx, op.TargetIssuer, op.TargetSerial)
	}
	switch {
	case errors.Contains(err, clm.ErrNotFound):
		return clm.Certificate{}, false, nil
	case err != nil:
		return clm.Certificate{}, false, err
	case op.Phase == clm.PhaseRevoke && cert.Status != clm.StatusRevoked:
		return clm.Certificate{}, false, nil
	}
	return cert, true, nil
}

func (m *Machine) confirmed(ctx context.Context, op *clm.Operation, cert clm.Certificate) error {
	if op.Phase == clm.PhaseIssue {
		return m.issued(ctx, op, cert)
	}
	return m.revoked(ctx, op, time.Time{})
}

// attempt persists the next attempt and then sends the request.
func (m *Machine) attempt(ctx context.Context, op *clm.Operation) (time.Duration, error) {
	op.State = clm.StateSubmitted
	op.Attempts++
	if err := m.save(ctx, op); err != nil {
		return 0, err
	}

	switch op.Phase {
	case clm.PhaseIssue:
		prof, _ := m.policy.Profile(op.Params.Profile)
		res, err := m.agent.Issue(ctx, clm.IssueRequest{
			Token:              op.IdempotencyToken,
			CSR:                op.CSR,
			Subject:            op.Params.Subject,
			DNSNames:           op.Params.DNSNames,
			ValidityDays:       op.Params.ValidityDays,
			CertificateProfile: prof.CertificateProfile,
			EndEntityProfile:   prof.EndEntityProfile,
			CAName:             prof.CAName,
		})
		if err != nil {
			return m.retry(ctx, op, err)
		}
		if res.Pending {
			return m.await(ctx, op)
		}
		return 0, m.issued(ctx, op, res.Certificate)
	default:
		res, err := m.agent.Revoke(ctx, op.TargetIssuer, op.TargetSerial, op.Params.RevocationReason)
		if err != nil {
			return m.retry(ctx, op, err)
		}
		if res.Pending {
			return m.await(ctx, op)
		}
		return 0, m.revoked(ctx, op, res.RevokedAt)
	}
}

// retry keeps the operation submitted after a transient failure until the
// attempt ceiling is reached.
func (m *Machine) retry(ctx context.Context, op *clm.Operation, err error) (time.Duration, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	if !clm.IsTransient(err) || op.Attempts >= m.cfg.MaxAttempts {
		return 0, m.abort(ctx, op, err)
	}

	op.LastError = err.Error()
	op.ErrorKind = clm.ErrorKind(err)
	if serr := m.save(ctx, op); serr != nil {
		return 0, serr
	}

	delay := m.backoff(op.Attempts)
	if after, ok := clm.RetryAfter(err); ok && after > delay {
		delay = after
	}
	m.logger.Debug("operation attempt failed", slog.String("id", op.ID), slog.Int("attempts", op.Attempts), slog.Duration("retry_in", delay), slog.Any("error", err))

	return delay, nil
}

func (m *Machine) backoff(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.cfg.RetryInitial
	b.MaxInterval = m.cfg.RetryMax
	b.MaxElapsedTime = 0
	b.Reset()

	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

func (m *Machine) await(ctx context.Context, op *clm.Operation) (time.Duration, error) {
	now := m.now().UTC()
	op.State = clm.StateAwaitingConfirmation
	op.AwaitingSince = &now
	if err := m.save(ctx, op); err != nil {
		return 0, err
	}
	return m.cfg.PollInterval, nil
}

func (m *Machine) poll(ctx context.Context, op *clm.Operation) (time.Duration, error) {
	if op.CancelRequested {
		return 0, m.abort(ctx, op, clm.ErrCancelled)
	}

	cert, ok, err := m.confirm(ctx, op)
	switch {
	case err != nil && ctx.Err() != nil:
		return 0, ctx.Err()
	case err != nil && !clm.IsTransient(err):
		return 0, m.abort(ctx, op, err)
	case ok:
		return 0, m.confirmed(ctx, op, cert)
	}

	since := op.CreatedAt
	if op.AwaitingSince != nil {
		since = *op.AwaitingSince
	}
	waited := m.now().Sub(since)
	if waited >= m.cfg.MaxWait {
		return 0, m.abort(ctx, op, errors.Wrap(clm.ErrTimeout, fmt.Errorf("unconfirmed after %s", waited.Round(time.Second))))
	}

	delay := min(max(waited/2, m.cfg.PollInterval), m.cfg.PollMax, m.cfg.MaxWait-waited)
	return delay, nil
}

// issued records a certificate returned by the authority.
func (m *Machine) issued(ctx context.Context, op *clm.Operation, cert clm.Certificate) error {
	cert.Status = clm.StatusActive
	cert.Profile = op.Params.Profile
	cert.Key = op.Key
	cert, err := m.store.Upsert(ctx, cert)
	switch {
	case errors.Contains(err, clm.ErrInvalidTransition), errors.Contains(err, clm.ErrMalformedEntity), errors.Contains(err, clm.ErrConflict):
		// The authority issued a certificate that cannot be recorded. Retrying
		// the step would fail the same way.
		m.logger.Error("issued certificate rejected by store", slog.String("id", op.ID), slog.String("serial_number", cert.SerialNumber), slog.String("issuer_dn", cert.IssuerDN), slog.Any("error", err))
		return m.abort(ctx, op, errors.Wrap(clm.ErrConflict, err))
	case err != nil:
		return err
	}

	op.ResultSerial = cert.SerialNumber
	op.ResultIssuer = cert.IssuerDN
	op.LastError, op.ErrorKind = "", ""
	op.AwaitingSince = nil

	if op.Kind != clm.KindRenew {
		op.State = clm.StateCompleted
		if err := m.save(ctx, op); err != nil {
			return err
		}
		m.logger.Info("certificate issued", slog.String("id", op.ID), slog.String("serial_number", cert.SerialNumber))
		return nil
	}

	if _, err := m.store.Update(ctx, op.TargetIssuer, op.TargetSerial, func(c *clm.Certificate) error {
		c.SupersededBy = cert.SerialNumber
		return nil
	}); err != nil {
		return err
	}

	op.Phase = clm.PhaseRevoke
	op.State = clm.StateSubmitted
	op.Attempts = 0
	if err := m.save(ctx, op); err != nil {
		return err
	}
	m.logger.Info("replacement certificate issued", slog.String("id", op.ID), slog.String("serial_number", cert.SerialNumber), slog.String("replaces", op.TargetSerial))

	return nil
}

func (m *Machine) revoked(ctx context.Context, op *clm.Operation, at time.Time) error {
	if _, err := m.store.MarkStatus(ctx, op.TargetIssuer, op.TargetSerial, clm.StatusRevoked); err != nil && !errors.Contains(err, clm.ErrNotFound) {
		return err
	}

	op.State = clm.StateCompleted
	op.LastError, op.ErrorKind = "", ""
	op.AwaitingSince = nil
	if err := m.save(ctx, op); err != nil {
		return err
	}

	args := []any{slog.String("id", op.ID), slog.String("serial_number", op.TargetSerial)}
	if !at.IsZero() {
		args = append(args, slog.Time("revoked_at", at))
	}
	m.logger.Info("certificate revoked", args...)

	return nil
}

// abort ends the current phase with cause. A renewal that already holds a
// replacement certificate is compensated instead of failed.
func (m *Machine) abort(ctx context.Context, op *clm.Operation, cause error) error {
	if op.Kind == clm.KindRenew && op.Phase == clm.PhaseRevoke {
		op.State = clm.StateCompensating
		op.LastError = errors.Wrap(clm.ErrPartialFailure, cause).Error()
		op.ErrorKind = clm.KindPartialFailure
		op.AwaitingSince = nil
		if err := m.save(ctx, op); err != nil {
			return err
		}
		return m.compensate(ctx, op)
	}

	if op.Kind == clm.KindRenew && op.TargetSerial != "" {
		if err := m.release(ctx, op.TargetIssuer, op.TargetSerial); err != nil {
			return err
		}
	}

	return m.fail(ctx, op, cause)
}

func (m *Machine) fail(ctx context.Context, op *clm.Operation, cause error) error {
	op.State = clm.StateFailed
	op.LastError = cause.Error()
	op.ErrorKind = clm.ErrorKind(cause)
	op.AwaitingSince = nil
	if err := m.save(ctx, op); err != nil {
		return err
	}

	m.logger.Warn("operation failed", slog.String("id", op.ID), slog.String("kind", string(op.Kind)), slog.String("error_kind", op.ErrorKind), slog.Any("error", cause))
	m.notify(ctx, clm.Event{
		Kind:         clm.EventOperationFailed,
		OperationID:  op.ID,
		TargetSerial: op.TargetSerial,
		ErrorKind:    op.ErrorKind,
		Message:      op.LastError,
	})

	return nil
}

// compensate restores the replaced certificate and flags it for operator
// attention. It is safe to run more than once.
func (m *Machine) compensate(ctx context.Context, op *clm.Operation) error {
	_, err := m.store.Update(ctx, op.TargetIssuer, op.TargetSerial, func(c *clm.Certificate) error {
		if c.Status == clm.StatusRenewalInProgress {
			c.Status = clm.StatusActive
		}
		c.RemediationRequired = true
		c.SupersededBy = op.ResultSerial
		return nil
	})
	if err != nil && !errors.Contains(err, clm.ErrNotFound) {
		return err
	}

	op.State = clm.StateCompensated
	op.ErrorKind = clm.KindPartialFailure
	if err := m.save(ctx, op); err != nil {
		return err
	}

	m.logger.Error("renewal partially failed", slog.String("id", op.ID), slog.String("serial_number", op.TargetSerial), slog.String("replacement", op.ResultSerial), slog.String("error", op.LastError))
	m.notify(ctx, clm.Event{
		Kind:         clm.EventPartialFailure,
		OperationID:  op.ID,
		TargetSerial: op.TargetSerial,
		ResultSerial: op.ResultSerial,
		ErrorKind:    clm.KindPartialFailure,
		Message:      op.LastError,
	})

	return nil
}

// release returns a target left in renewal back to active.
func (m *Machine) release(ctx context.Context, issuerDN, serial string) error {
	_, err := m.store.Update(ctx, issuerDN, serial, func(c *clm.Certificate) error {
		if c.Status == clm.StatusRenewalInProgress {
			c.Status = clm.StatusActive
		}
		return nil
	})
	if err != nil && !errors.Contains(err, clm.ErrNotFound) {
		return err
	}
	return nil
}

func (m *Machine) notify(ctx context.Context, event clm.Event) {
	if m.notifier == nil {
		return
	}
	event.OccurredAt = m.now().UTC()
	if err := m.notifier.Notify(ctx, event); err != nil {
		m.logger.Warn("failed to send notification", slog.String("kind", string(event.Kind)), slog.String("id", event.OperationID), slog.Any("error", err))
	}
}

func (m *Machine) save(ctx context.Context, op *clm.Operation) error {
	op.UpdatedAt = m.now().UTC()
	if err := m.ops.Update(ctx, *op); err != nil {
		return errors.Wrap(clm.ErrUpdateEntity, err)
	}
	return nil
}
