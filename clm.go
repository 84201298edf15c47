// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package clm contains the certificate lifecycle domain: certificate records,
// lifecycle operations and the intent dispatcher that turns issue, renew and
// revoke requests into operations executed against a certificate authority.
package clm

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Status is the lifecycle status of a certificate record.
type Status string

const (
	StatusPending           Status = "pending"
	StatusActive            Status = "active"
	StatusRevoked           Status = "revoked"
	StatusExpired           Status = "expired"
	StatusRenewalInProgress Status = "renewal-in-progress"
)

var transitions = map[Status][]Status{
	StatusPending:           {StatusActive, StatusRevoked, StatusExpired},
	StatusActive:            {StatusRenewalInProgress, StatusRevoked, StatusExpired},
	StatusRenewalInProgress: {StatusActive, StatusRevoked, StatusExpired},
	StatusExpired:           {StatusRevoked},
	StatusRevoked:           {},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Final reports whether a record in this status can never be active again.
func (s Status) Final() bool {
	return s == StatusRevoked || s == StatusExpired
}

// CanTransition reports whether a record may move from s to next.
// Writing the same status is always allowed.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	for _, st := range transitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

// Certificate is the local record of a certificate issued by the authority.
type Certificate struct {
	SerialNumber        string     `json:"serial_number"`
	IssuerDN            string     `json:"issuer_dn"`
	SubjectDN           string     `json:"subject_dn,omitempty"`
	NotBefore           time.Time  `json:"not_before,omitempty"`
	NotAfter            time.Time  `json:"not_after,omitempty"`
	Status              Status     `json:"status"`
	Fingerprint         string     `json:"fingerprint,omitempty"`
	Profile             string     `json:"profile,omitempty"`
	Certificate         []byte     `json:"certificate,omitempty"`
	Key                 []byte     `json:"key,omitempty"`
	SupersededBy        string     `json:"superseded_by,omitempty"`
	RemediationRequired bool       `json:"remediation_required,omitempty"`
	// Imported marks records discovered at the authority rather than issued
	// through this service. They are never renewed or revoked automatically.
	Imported            bool       `json:"imported,omitempty"`
	LastSyncedAt        time.Time  `json:"last_synced_at,omitempty"`
	ArchivedAt          *time.Time `json:"archived_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at,omitempty"`
	UpdatedAt           time.Time  `json:"updated_at,omitempty"`
}

// Archived reports whether the record was moved out of default listings.
func (c Certificate) Archived() bool {
	return c.ArchivedAt != nil
}

type CertificatePage struct {
	Certificates []Certificate `json:"certificates"`
	PageMetadata
}

// PageMetadata holds certificate listing filters. A zero Limit returns every
// matching record.
type PageMetadata struct {
	Total           uint64    `json:"total"`
	Offset          uint64    `json:"offset,omitempty"`
	Limit           uint64    `json:"limit,omitempty"`
	Status          Status    `json:"status,omitempty"`
	ExpiresBefore   time.Time `json:"expires_before,omitempty"`
	Remediation     bool      `json:"remediation,omitempty"`
	IncludeArchived bool      `json:"include_archived,omitempty"`
}

// Matches reports whether c satisfies the filters of pm.
func (pm PageMetadata) Matches(c Certificate) bool {
	if !pm.IncludeArchived && c.Archived() {
		return false
	}
	if pm.Status != "" && c.Status != pm.Status {
		return false
	}
	if !pm.ExpiresBefore.IsZero() && !c.NotAfter.Before(pm.ExpiresBefore) {
		return false
	}
	if pm.Remediation && !c.RemediationRequired {
		return false
	}
	return true
}

// OperationKind is the kind of lifecycle action an operation performs.
type OperationKind string

const (
	KindIssue  OperationKind = "issue"
	KindRenew  OperationKind = "renew"
	KindRevoke OperationKind = "revoke"
)

// OperationState is a state of the operation state machine.
type OperationState string

const (
	StateCreated              OperationState = "created"
	StateSubmitted            OperationState = "submitted"
	StateAwaitingConfirmation OperationState = "awaiting-confirmation"
	StateCompleted            OperationState = "completed"
	StateFailed               OperationState = "failed"
	StateCompensating         OperationState = "compensating"
	StateCompensated          OperationState = "compensated"
)

// Terminal reports whether no further transitions are possible.
func (s OperationState) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCompensated:
		return true
	default:
		return false
	}
}

// Phase is the step of an operation talking to the authority. Renewals run
// the issue phase and then the revoke phase.
type Phase string

const (
	PhaseIssue  Phase = "issue"
	PhaseRevoke Phase = "revoke"
)

// Params are the inputs an operation was created with.
type Params struct {
	Subject          string           `json:"subject,omitempty"`
	ValidityDays     int              `json:"validity_days,omitempty"`
	Profile          string           `json:"profile,omitempty"`
	DNSNames         []string         `json:"dns_names,omitempty"`
	RevocationReason RevocationReason `json:"revocation_reason,omitempty"`
	ReuseKey         bool             `json:"reuse_key,omitempty"`
}

// Value implements driver.Valuer so params persist as a JSON column.
func (p Params) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner.
func (p *Params) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = Params{}
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return ErrMalformedEntity
	}
}

// Operation is a durable, resumable lifecycle action.
type Operation struct {
	ID               string         `json:"id"`
	Kind             OperationKind  `json:"kind"`
	TargetSerial     string         `json:"target_serial,omitempty"`
	TargetIssuer     string         `json:"target_issuer,omitempty"`
	Params           Params         `json:"params"`
	State            OperationState `json:"state"`
	Phase            Phase          `json:"phase"`
	IdempotencyToken string         `json:"idempotency_token"`
	Attempts         int            `json:"attempts"`
	LastError        string         `json:"last_error,omitempty"`
	ErrorKind        string         `json:"error_kind,omitempty"`
	ResultSerial     string         `json:"result_serial,omitempty"`
	ResultIssuer     string         `json:"result_issuer,omitempty"`
	CSR              []byte         `json:"csr,omitempty"`
	Key              []byte         `json:"key,omitempty"`
	CancelRequested  bool           `json:"cancel_requested,omitempty"`
	AwaitingSince    *time.Time     `json:"awaiting_since,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// OperationStatus is the externally visible progress of an operation.
type OperationStatus struct {
	ID                string         `json:"id"`
	Kind              OperationKind  `json:"kind"`
	State             OperationState `json:"state"`
	Attempts          int            `json:"attempts"`
	LastError         string         `json:"last_error,omitempty"`
	ErrorKind         string         `json:"error_kind,omitempty"`
	TargetSerial      string         `json:"target_serial,omitempty"`
	CertificateSerial string         `json:"certificate_serial,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Status returns the externally visible progress of op.
func (op Operation) Status() OperationStatus {
	return OperationStatus{
		ID:                op.ID,
		Kind:              op.Kind,
		State:             op.State,
		Attempts:          op.Attempts,
		LastError:         op.LastError,
		ErrorKind:         op.ErrorKind,
		TargetSerial:      op.TargetSerial,
		CertificateSerial: op.ResultSerial,
		CreatedAt:         op.CreatedAt,
		UpdatedAt:         op.UpdatedAt,
	}
}

type OperationPageMetadata struct {
	Total        uint64         `json:"total"`
	Offset       uint64         `json:"offset,omitempty"`
	Limit        uint64         `json:"limit,omitempty"`
	State        OperationState `json:"state,omitempty"`
	Kind         OperationKind  `json:"kind,omitempty"`
	TargetSerial string         `json:"target_serial,omitempty"`
}

// Matches reports whether op satisfies the filters of pm.
func (pm OperationPageMetadata) Matches(op Operation) bool {
	if pm.State != "" && op.State != pm.State {
		return false
	}
	if pm.Kind != "" && op.Kind != pm.Kind {
		return false
	}
	if pm.TargetSerial != "" && op.TargetSerial != pm.TargetSerial {
		return false
	}
	return true
}

type OperationPage struct {
	Operations []OperationStatus `json:"operations"`
	OperationPageMetadata
}

// CAInfo describes a certificate authority the client is authorized for.
type CAInfo struct {
	ID             int       `json:"id,omitempty"`
	Name           string    `json:"name"`
	SubjectDN      string    `json:"subject_dn"`
	IssuerDN       string    `json:"issuer_dn,omitempty"`
	ExpirationDate time.Time `json:"expiration_date,omitempty"`
}

// IssueRequest is a certificate signing request sent to the authority.
type IssueRequest struct {
	// Token identifies the request at the authority across retries.
	Token              string
	CSR                []byte
	Subject            string
	DNSNames           []string
	ValidityDays       int
	CertificateProfile string
	EndEntityProfile   string
	CAName             string
}

// IssueResult is the outcome of an issue call. A pending result carries no
// certificate; the caller confirms it later with Lookup.
type IssueResult struct {
	Pending     bool
	Certificate Certificate
}

// RevocationResult is the outcome of a revoke call.
type RevocationResult struct {
	Pending   bool
	RevokedAt time.Time
}

// Agent is the certificate authority client.
//
//go:generate mockery --name Agent --output=./mocks --filename agent.go --quiet --note "Copyright (c) Abstract Machines"
type Agent interface {
	// Issue submits a signing request.
	Issue(ctx context.Context, req IssueRequest) (IssueResult, error)

	// Revoke revokes the certificate. Revoking an already revoked certificate succeeds.
	Revoke(ctx context.Context, issuerDN, serialNumber string, reason RevocationReason) (RevocationResult, error)

	// Get returns the authority's view of a certificate.
	Get(ctx context.Context, issuerDN, serialNumber string) (Certificate, error)

	// Lookup returns the certificate issued for the given request token.
	// Authorities that keep no token index match the public key of csr.
	Lookup(ctx context.Context, token string, csr []byte) (Certificate, error)

	// ListExpiringBefore lists certificates expiring before t.
	ListExpiringBefore(ctx context.Context, t time.Time) ([]Certificate, error)

	// CAInfo lists the certificate authorities available to the client.
	CAInfo(ctx context.Context) ([]CAInfo, error)

	// CRL returns the latest revocation list of a CA.
	CRL(ctx context.Context, req CRLRequest) (CRL, error)

	// CreateCRL makes a CA generate a new CRL, and a delta CRL when delta is set.
	CreateCRL(ctx context.Context, issuerDN string, delta bool) (CRLGeneration, error)

	// CACertificates returns the certificate chain of a CA, starting with the
	// CA certificate. An empty subjectDN names the default CA.
	CACertificates(ctx context.Context, subjectDN string) ([]Certificate, error)

	// Status reports the health and version of the authority APIs.
	Status(ctx context.Context) ([]APIStatus, error)
}

// CertificateRepository persists certificate records.
type CertificateRepository interface {
	// Save adds a new certificate record.
	Save(ctx context.Context, cert Certificate) error

	// Retrieve retrieves the certificate record issued by issuerDN.
	Retrieve(ctx context.Context, issuerDN, serialNumber string) (Certificate, error)

	// RetrieveBySerial retrieves every record with the serial number,
	// whatever the issuer.
	RetrieveBySerial(ctx context.Context, serialNumber string) ([]Certificate, error)

	// Update replaces an existing certificate record.
	Update(ctx context.Context, cert Certificate) error

	// List retrieves certificate records matching the page filters.
	List(ctx context.Context, pm PageMetadata) (CertificatePage, error)

	// ListStale retrieves unarchived records not synced since the given time.
	ListStale(ctx context.Context, syncedBefore time.Time, limit uint64) ([]Certificate, error)
}

// OperationRepository persists operations.
//
//go:generate mockery --name OperationRepository --output=./mocks --filename operations.go --quiet --note "Copyright (c) Abstract Machines"
type OperationRepository interface {
	// Create adds an operation. It fails with ErrConflict when the token is
	// taken or another non-terminal operation holds the same target.
	Create(ctx context.Context, op Operation) error

	// Retrieve retrieves an operation by ID.
	Retrieve(ctx context.Context, id string) (Operation, error)

	// RetrieveByToken retrieves an operation by idempotency token.
	RetrieveByToken(ctx context.Context, token string) (Operation, error)

	// RetrieveActive retrieves the non-terminal operation holding a target certificate.
	RetrieveActive(ctx context.Context, targetIssuer, targetSerial string) (Operation, error)

	// Update persists the operation. A pending cancel request is never cleared.
	Update(ctx context.Context, op Operation) error

	// RequestCancel flags the operation for cancellation.
	RequestCancel(ctx context.Context, id string) error

	// List retrieves operations matching the page filters, newest first.
	List(ctx context.Context, pm OperationPageMetadata) (OperationPage, error)

	// ListActive retrieves every non-terminal operation.
	ListActive(ctx context.Context) ([]Operation, error)
}

// Store is the single-writer certificate store. Records are identified by
// issuer and serial number. Mutations of one record are serialized and
// checked against the status transition rules. Methods taking an issuer
// accept an empty one when the serial number alone is unambiguous.
//
//go:generate mockery --name Store --output=./mocks --filename store.go --quiet --note "Copyright (c) Abstract Machines"
type Store interface {
	// Upsert adds a record or replaces the known fields of an existing one.
	Upsert(ctx context.Context, cert Certificate) (Certificate, error)

	// Get returns the record for an issuer and serial number.
	Get(ctx context.Context, issuerDN, serialNumber string) (Certificate, error)

	// List returns records matching the page filters.
	List(ctx context.Context, pm PageMetadata) (CertificatePage, error)

	// ListByStatus returns every unarchived record in status.
	ListByStatus(ctx context.Context, status Status) ([]Certificate, error)

	// ListExpiringWithin returns active records expiring within d.
	ListExpiringWithin(ctx context.Context, d time.Duration) ([]Certificate, error)

	// ListStale returns records not synced with the authority for longer than d.
	ListStale(ctx context.Context, d time.Duration) ([]Certificate, error)

	// MarkStatus moves the record to status.
	MarkStatus(ctx context.Context, issuerDN, serialNumber string, status Status) (Certificate, error)

	// Update applies fn to the record under its write lock.
	Update(ctx context.Context, issuerDN, serialNumber string, fn func(*Certificate) error) (Certificate, error)

	// Archive hides final records untouched for longer than retention.
	Archive(ctx context.Context, retention time.Duration) (int, error)
}

// Executor runs operations asynchronously.
//
//go:generate mockery --name Executor --output=./mocks --filename executor.go --quiet --note "Copyright (c) Abstract Machines"
type Executor interface {
	// Enqueue schedules the operation for execution.
	Enqueue(ctx context.Context, id string) error

	// Cancel asks a running operation to stop at the next safe point.
	Cancel(id string)
}

// EventKind classifies notifications sent to operators.
type EventKind string

const (
	EventPartialFailure  EventKind = "partial_failure"
	EventOperationFailed EventKind = "operation_failed"
)

// Event is an operator notification about an operation outcome.
// CRLRequest selects a revocation list. An empty IssuerDN names the default
// CA of the authority.
type CRLRequest struct {
	IssuerDN       string
	Delta          bool
	PartitionIndex int
}

// CRL is a certificate revocation list published by a CA.
type CRL struct {
	IssuerDN     string    `json:"issuer_dn"`
	Number       string    `json:"crl_number,omitempty"`
	Delta        bool      `json:"delta,omitempty"`
	ThisUpdate   time.Time `json:"this_update"`
	NextUpdate   time.Time `json:"next_update,omitempty"`
	RevokedCount int       `json:"revoked_count"`
	// CRL is the PEM encoded list.
	CRL []byte `json:"crl,omitempty"`
}

// CRLGeneration reports the list numbers after a CA generated its CRLs.
type CRLGeneration struct {
	IssuerDN       string `json:"issuer_dn"`
	CRLNumber      int64  `json:"crl_number"`
	DeltaCRLNumber int64  `json:"delta_crl_number,omitempty"`
}

// APIStatus is the health and version of one authority API resource.
type APIStatus struct {
	Resource string `json:"resource"`
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Revision string `json:"revision,omitempty"`
}

type Event struct {
	Kind         EventKind `json:"kind"`
	OperationID  string    `json:"operation_id"`
	TargetSerial string    `json:"target_serial,omitempty"`
	ResultSerial string    `json:"result_serial,omitempty"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	Message      string    `json:"message"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Notifier delivers operator notifications.
//
//go:generate mockery --name Notifier --output=./mocks --filename notifier.go --quiet --note "Copyright (c) Abstract Machines"
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Service is the intent dispatcher.
//
//go:generate mockery --name Service --output=./mocks --filename service.go --quiet --note "Copyright (c) Abstract Machines"
type Service interface {
	// Submit validates the intent, records a new operation and hands it to
	// the executor. It returns the operation ID without waiting for the outcome.
	Submit(ctx context.Context, intent Intent) (string, error)

	// GetOperationStatus returns the progress of an operation.
	GetOperationStatus(ctx context.Context, id string) (OperationStatus, error)

	// CancelOperation requests cooperative cancellation of an operation.
	CancelOperation(ctx context.Context, id string) error

	// ListOperations lists operations.
	ListOperations(ctx context.Context, pm OperationPageMetadata) (OperationPage, error)

	// ViewCert retrieves a certificate record.
	ViewCert(ctx context.Context, serialNumber string) (Certificate, error)

	// ListCerts lists certificate records.
	ListCerts(ctx context.Context, pm PageMetadata) (CertificatePage, error)

	// ListCAs lists the certificate authorities available to the service.
	ListCAs(ctx context.Context) ([]CAInfo, error)

	// ViewCRL returns the latest revocation list of a CA.
	ViewCRL(ctx context.Context, req CRLRequest) (CRL, error)

	// CreateCRL makes a CA publish a fresh revocation list.
	CreateCRL(ctx context.Context, issuerDN string, delta bool) (CRLGeneration, error)

	// ViewCAChain returns the certificate chain of a CA.
	ViewCAChain(ctx context.Context, subjectDN string) ([]Certificate, error)

	// AuthorityStatus reports whether the authority APIs are reachable.
	AuthorityStatus(ctx context.Context) ([]APIStatus, error)
}
