// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package clm

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/clm/internal/uuid"
	"github.com/absmach/clm/pkg/errors"
)

var (
	errUnknownTarget    = errors.New("target certificate not found")
	errTargetNotActive  = errors.New("target certificate is not active")
	errAlreadyRevoked   = errors.New("target certificate is already revoked")
	errTargetInFlight   = errors.New("target certificate has an operation in progress")
	errOperationDone    = errors.New("operation already finished")
	errTargetSuperseded = errors.New("target certificate was already replaced")
	errInvalidPartition = errors.New("CRL partition index must not be negative")
)

type service struct {
	store  Store
	ops    OperationRepository
	exec   Executor
	agent  Agent
	idp    uuid.IDProvider
	policy Policy
	logger *slog.Logger
}

var _ Service = (*service)(nil)

// NewService returns the intent dispatcher.
func NewService(store Store, ops OperationRepository, exec Executor, agent Agent, idp uuid.IDProvider, policy Policy, logger *slog.Logger) Service {
	return &service{
		store:  store,
		ops:    ops,
		exec:   exec,
		agent:  agent,
		idp:    idp,
		policy: policy,
		logger: logger,
	}
}

func (s *service) Submit(ctx context.Context, intent Intent) (string, error) {
	if intent.IdempotencyToken != "" {
		op, err := s.ops.RetrieveByToken(ctx, intent.IdempotencyToken)
		switch {
		case err == nil:
			return op.ID, nil
		case !errors.Contains(err, ErrNotFound):
			return "", errors.Wrap(ErrViewEntity, err)
		}
	}

	if err := intent.Validate(s.policy); err != nil {
		return "", errors.Wrap(ErrValidation, err)
	}

	op, err := s.newOperation(ctx, intent)
	if err != nil {
		return "", err
	}

	if err := s.ops.Create(ctx, op); err != nil {
		if errors.Contains(err, ErrConflict) {
			if intent.IdempotencyToken != "" {
				if existing, rerr := s.ops.RetrieveByToken(ctx, intent.IdempotencyToken); rerr == nil {
					return existing.ID, nil
				}
			}
			return "", errors.Wrap(ErrConflict, errTargetInFlight)
		}
		return "", errors.Wrap(ErrCreateEntity, err)
	}

	// The operation is durable once created; the executor picks up
	// operations it was not handed when it next recovers.
	if err := s.exec.Enqueue(ctx, op.ID); err != nil {
		s.logger.Warn("failed to enqueue operation", slog.String("id", op.ID), slog.String("kind", string(op.Kind)), slog.Any("error", err))
	}

	return op.ID, nil
}

func (s *service) newOperation(ctx context.Context, intent Intent) (Operation, error) {
	id, err := s.idp.ID()
	if err != nil {
		return Operation{}, err
	}
	token := intent.IdempotencyToken
	if token == "" {
		token = id
	}
	now := time.Now().UTC()
	op := Operation{
		ID:               id,
		Kind:             intent.Kind,
		State:            StateCreated,
		Phase:            PhaseIssue,
		IdempotencyToken: token,
		Params: Params{
			Subject:      intent.Subject,
			ValidityDays: intent.ValidityDays,
			Profile:      intent.CertificateProfile,
			DNSNames:     intent.DNSNames,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if op.Params.Profile == "" {
		op.Params.Profile = s.policy.Renewal.Profile
	}

	if intent.Kind == KindIssue {
		return op, nil
	}

	target, err := s.checkTarget(ctx, intent)
	if err != nil {
		return Operation{}, err
	}
	op.TargetSerial = target.SerialNumber
	op.TargetIssuer = target.IssuerDN

	switch intent.Kind {
	case KindRenew:
		// Renewals keep the subject and names of the certificate they replace.
		op.Params.Subject = target.SubjectDN
		if intent.CertificateProfile == "" && target.Profile != "" {
			op.Params.Profile = target.Profile
		}
		if op.Params.ValidityDays == 0 {
			op.Params.ValidityDays = s.policy.Renewal.ValidityDays
		}
		prof, err := s.policy.Profile(op.Params.Profile)
		if err != nil {
			return Operation{}, errors.Wrap(ErrValidation, err)
		}
		if prof.MaxValidityDays > 0 && op.Params.ValidityDays > prof.MaxValidityDays {
			return Operation{}, errors.Wrap(ErrValidation, errValidityTooLong)
		}
		if len(op.Params.DNSNames) == 0 {
			op.Params.DNSNames = dnsNamesOf(target)
		}
		op.Params.ReuseKey = s.policy.Renewal.ReuseKey && len(target.Key) > 0
		op.Params.RevocationReason = ReasonSuperseded
	case KindRevoke:
		reason, _ := ParseRevocationReason(intent.RevocationReason)
		op.Params.RevocationReason = reason
		op.Phase = PhaseRevoke
	}

	return op, nil
}

func (s *service) checkTarget(ctx context.Context, intent Intent) (Certificate, error) {
	serial := NormalizeSerialNumber(intent.TargetSerial)
	target, err := s.store.Get(ctx, intent.TargetIssuer, serial)
	switch {
	case errors.Contains(err, ErrNotFound):
		return Certificate{}, errors.Wrap(ErrValidation, errUnknownTarget)
	case errors.Contains(err, ErrConflict):
		return Certificate{}, errors.Wrap(ErrValidation, err)
	case err != nil:
		return Certificate{}, errors.Wrap(ErrViewEntity, err)
	}

	if _, err := s.ops.RetrieveActive(ctx, target.IssuerDN, target.SerialNumber); err == nil {
		return Certificate{}, errors.Wrap(ErrConflict, errTargetInFlight)
	} else if !errors.Contains(err, ErrNotFound) {
		return Certificate{}, errors.Wrap(ErrViewEntity, err)
	}

	switch intent.Kind {
	case KindRenew:
		if target.Status != StatusActive {
			return Certificate{}, errors.Wrap(ErrValidation, errTargetNotActive)
		}
		if target.SupersededBy != "" {
			return Certificate{}, errors.Wrap(ErrValidation, errTargetSuperseded)
		}
	case KindRevoke:
		if target.Status == StatusRevoked {
			return Certificate{}, errors.Wrap(ErrValidation, errAlreadyRevoked)
		}
	}

	return target, nil
}

func (s *service) GetOperationStatus(ctx context.Context, id string) (OperationStatus, error) {
	op, err := s.ops.Retrieve(ctx, id)
	if err != nil {
		return OperationStatus{}, errors.Wrap(ErrViewEntity, err)
	}
	return op.Status(), nil
}

func (s *service) CancelOperation(ctx context.Context, id string) error {
	op, err := s.ops.Retrieve(ctx, id)
	if err != nil {
		return errors.Wrap(ErrViewEntity, err)
	}
	if op.State.Terminal() {
		return errors.Wrap(ErrConflict, errOperationDone)
	}
	if err := s.ops.RequestCancel(ctx, id); err != nil {
		return errors.Wrap(ErrUpdateEntity, err)
	}
	s.exec.Cancel(id)

	return nil
}

func (s *service) ListOperations(ctx context.Context, pm OperationPageMetadata) (OperationPage, error) {
	page, err := s.ops.List(ctx, pm)
	if err != nil {
		return OperationPage{}, errors.Wrap(ErrViewEntity, err)
	}
	return page, nil
}

func (s *service) ViewCert(ctx context.Context, serialNumber string) (Certificate, error) {
	cert, err := s.store.Get(ctx, "", NormalizeSerialNumber(serialNumber))
	switch {
	case errors.Contains(err, ErrConflict):
		return Certificate{}, err
	case err != nil:
		return Certificate{}, errors.Wrap(ErrViewEntity, err)
	}
	return cert, nil
}

func (s *service) ListCerts(ctx context.Context, pm PageMetadata) (CertificatePage, error) {
	page, err := s.store.List(ctx, pm)
	if err != nil {
		return CertificatePage{}, errors.Wrap(ErrViewEntity, err)
	}
	return page, nil
}

func (s *service) ListCAs(ctx context.Context) ([]CAInfo, error) {
	return s.agent.CAInfo(ctx)
}

func (s *service) ViewCRL(ctx context.Context, req CRLRequest) (CRL, error) {
	if req.PartitionIndex < 0 {
		return CRL{}, errors.Wrap(ErrValidation, errInvalidPartition)
	}
	return s.agent.CRL(ctx, req)
}

func (s *service) CreateCRL(ctx context.Context, issuerDN string, delta bool) (CRLGeneration, error) {
	gen, err := s.agent.CreateCRL(ctx, issuerDN, delta)
	if err != nil {
		return CRLGeneration{}, err
	}
	s.logger.Info("revocation list generated",
		slog.String("issuer_dn", gen.IssuerDN),
		slog.Int64("crl_number", gen.CRLNumber),
		slog.Bool("delta", delta),
	)
	return gen, nil
}

func (s *service) ViewCAChain(ctx context.Context, subjectDN string) ([]Certificate, error) {
	return s.agent.CACertificates(ctx, subjectDN)
}

func (s *service) AuthorityStatus(ctx context.Context) ([]APIStatus, error) {
	return s.agent.Status(ctx)
}

func dnsNamesOf(c Certificate) []string {
	if len(c.Certificate) == 0 {
		return nil
	}
	x, err := parseX509(c.Certificate)
	if err != nil {
		return nil
	}
	return x.DNSNames
}
