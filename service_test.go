// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package clm_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/bbolt"
	"github.com/absmach/clm/internal/uuid"
	"github.com/absmach/clm/mocks"
	"github.com/absmach/clm/pkg/errors"
	clmstore "github.com/absmach/clm/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	serialNumber = "1a:2b:3c:4d"
	issuerDN     = "CN=ManagementCA,O=Example"
	operationID  = "c1a1daea-ce24-4847-b892-1780bf25b10c"
)

var errRepo = errors.New("repository error")

func newService(t *testing.T) (clm.Service, *mocks.Store, *mocks.OperationRepository, *mocks.Executor, *mocks.Agent) {
	store := mocks.NewStore(t)
	ops := mocks.NewOperationRepository(t)
	exec := mocks.NewExecutor(t)
	agent := mocks.NewAgent(t)
	svc := clm.NewService(store, ops, exec, agent, uuid.NewMock(), clm.DefaultPolicy(), slog.New(slog.DiscardHandler))

	return svc, store, ops, exec, agent
}

func TestSubmit(t *testing.T) {
	active := clm.Certificate{
		SerialNumber: serialNumber,
		IssuerDN:     issuerDN,
		SubjectDN:    "CN=svc.example.com",
		Status:       clm.StatusActive,
		Profile:      "client",
		NotAfter:     time.Now().Add(10 * 24 * time.Hour),
	}
	revoked := active
	revoked.Status = clm.StatusRevoked
	superseded := active
	superseded.SupersededBy = "ff:ee"

	cases := []struct {
		desc      string
		intent    clm.Intent
		tokenOp   clm.Operation
		tokenErr  error
		cert      clm.Certificate
		certErr   error
		activeErr  error
		createErr  error
		enqueueErr error
		check      func(op clm.Operation) bool
		id         string
		err        error
	}{
		{
			desc:     "submit issue intent",
			intent:   clm.Intent{Kind: clm.KindIssue, Subject: "CN=svc.example.com,O=Example", ValidityDays: 730, CertificateProfile: "webserver", DNSNames: []string{"svc.example.com"}},
			tokenErr: clm.ErrNotFound,
			check: func(op clm.Operation) bool {
				return op.Kind == clm.KindIssue && op.State == clm.StateCreated && op.Phase == clm.PhaseIssue &&
					op.Params.ValidityDays == 730 && op.IdempotencyToken == op.ID && op.TargetSerial == ""
			},
		},
		{
			desc:     "submit issue intent with default profile",
			intent:   clm.Intent{Kind: clm.KindIssue, Subject: "CN=svc.example.com", ValidityDays: 90, IdempotencyToken: "issue-1"},
			tokenErr: clm.ErrNotFound,
			check: func(op clm.Operation) bool {
				return op.Params.Profile == clm.DefaultProfile && op.IdempotencyToken == "issue-1"
			},
		},
		{
			desc:    "resubmit intent with known token",
			intent:  clm.Intent{Kind: clm.KindIssue, Subject: "CN=svc.example.com", ValidityDays: 90, IdempotencyToken: "issue-1"},
			tokenOp: clm.Operation{ID: operationID},
			id:      operationID,
		},
		{
			desc:     "submit issue intent without common name",
			intent:   clm.Intent{Kind: clm.KindIssue, Subject: "O=Example", ValidityDays: 90},
			tokenErr: clm.ErrNotFound,
			err:      clm.ErrValidation,
		},
		{
			desc:   "submit issue intent exceeding profile maximum",
			intent: clm.Intent{Kind: clm.KindIssue, Subject: "CN=svc.example.com", ValidityDays: 900, CertificateProfile: "webserver"},
			err:    clm.ErrValidation,
		},
		{
			desc:   "submit issue intent with unknown profile",
			intent: clm.Intent{Kind: clm.KindIssue, Subject: "CN=svc.example.com", ValidityDays: 90, CertificateProfile: "nope"},
			err:    clm.ErrValidation,
		},
		{
			desc:   "submit intent with unknown kind",
			intent: clm.Intent{Kind: "rekey", TargetSerial: serialNumber},
			err:    clm.ErrValidation,
		},
		{
			desc:      "submit renew intent",
			intent:    clm.Intent{Kind: clm.KindRenew, TargetSerial: "1A2B3C4D"},
			cert:      active,
			activeErr: clm.ErrNotFound,
			check: func(op clm.Operation) bool {
				return op.Kind == clm.KindRenew && op.TargetSerial == serialNumber && op.TargetIssuer == issuerDN &&
					op.Params.Subject == active.SubjectDN && op.Params.Profile == "client" &&
					op.Params.ValidityDays == 365 && op.Params.RevocationReason == clm.ReasonSuperseded && !op.Params.ReuseKey
			},
		},
		{
			desc:    "submit renew intent for unknown certificate",
			intent:  clm.Intent{Kind: clm.KindRenew, TargetSerial: serialNumber},
			certErr: clm.ErrNotFound,
			err:     clm.ErrValidation,
		},
		{
			desc:    "submit renew intent with failing store",
			intent:  clm.Intent{Kind: clm.KindRenew, TargetSerial: serialNumber},
			certErr: errRepo,
			err:     clm.ErrViewEntity,
		},
		{
			desc:   "submit renew intent for certificate with operation in flight",
			intent: clm.Intent{Kind: clm.KindRenew, TargetSerial: serialNumber},
			cert:   active,
			err:    clm.ErrConflict,
		},
		{
			desc:      "submit renew intent for revoked certificate",
			intent:    clm.Intent{Kind: clm.KindRenew, TargetSerial: serialNumber},
			cert:      revoked,
			activeErr: clm.ErrNotFound,
			err:       clm.ErrValidation,
		},
		{
			desc:      "submit renew intent for superseded certificate",
			intent:    clm.Intent{Kind: clm.KindRenew, TargetSerial: serialNumber},
			cert:      superseded,
			activeErr: clm.ErrNotFound,
			err:       clm.ErrValidation,
		},
		{
			desc:      "submit revoke intent",
			intent:    clm.Intent{Kind: clm.KindRevoke, TargetSerial: serialNumber, RevocationReason: "key compromise"},
			cert:      active,
			activeErr: clm.ErrNotFound,
			check: func(op clm.Operation) bool {
				return op.Kind == clm.KindRevoke && op.Phase == clm.PhaseRevoke && op.Params.RevocationReason == clm.ReasonKeyCompromise
			},
		},
		{
			desc:   "submit revoke intent with unknown reason",
			intent: clm.Intent{Kind: clm.KindRevoke, TargetSerial: serialNumber, RevocationReason: "bored"},
			err:    clm.ErrValidation,
		},
		{
			desc:      "submit revoke intent for revoked certificate",
			intent:    clm.Intent{Kind: clm.KindRevoke, TargetSerial: serialNumber},
			cert:      revoked,
			activeErr: clm.ErrNotFound,
			err:       clm.ErrValidation,
		},
		{
			desc:      "submit renew intent exceeding target profile maximum",
			intent:    clm.Intent{Kind: clm.KindRenew, TargetSerial: serialNumber, ValidityDays: 500},
			cert:      active,
			activeErr: clm.ErrNotFound,
			err:       clm.ErrValidation,
		},
		{
			desc:      "submit renew intent naming the issuer",
			intent:    clm.Intent{Kind: clm.KindRenew, TargetSerial: serialNumber, TargetIssuer: issuerDN},
			cert:      active,
			activeErr: clm.ErrNotFound,
			check: func(op clm.Operation) bool {
				return op.TargetSerial == serialNumber && op.TargetIssuer == issuerDN
			},
		},
		{
			desc:    "submit renew intent for serial held by two issuers",
			intent:  clm.Intent{Kind: clm.KindRenew, TargetSerial: serialNumber},
			certErr: errors.Wrap(clm.ErrConflict, errRepo),
			err:     clm.ErrValidation,
		},
		{
			desc:       "submit issue intent when the executor is full",
			intent:     clm.Intent{Kind: clm.KindIssue, Subject: "CN=svc.example.com", ValidityDays: 90},
			enqueueErr: errRepo,
			check: func(op clm.Operation) bool {
				return op.Kind == clm.KindIssue
			},
		},
		{
			desc:      "submit revoke intent losing a concurrent race",
			intent:    clm.Intent{Kind: clm.KindRevoke, TargetSerial: serialNumber},
			cert:      active,
			activeErr: clm.ErrNotFound,
			createErr: clm.ErrConflict,
			err:       clm.ErrConflict,
		},
		{
			desc:      "submit issue intent with failing repository",
			intent:    clm.Intent{Kind: clm.KindIssue, Subject: "CN=svc.example.com", ValidityDays: 90},
			createErr: errRepo,
			err:       clm.ErrCreateEntity,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc, store, ops, exec, _ := newService(t)

			var created clm.Operation
			ops.On("RetrieveByToken", mock.Anything, tc.intent.IdempotencyToken).Return(tc.tokenOp, tc.tokenErr).Maybe()
			store.On("Get", mock.Anything, tc.intent.TargetIssuer, serialNumber).Return(tc.cert, tc.certErr).Maybe()
			ops.On("RetrieveActive", mock.Anything, issuerDN, serialNumber).Return(clm.Operation{ID: operationID}, tc.activeErr).Maybe()
			ops.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
				created = args.Get(1).(clm.Operation)
			}).Return(tc.createErr).Maybe()
			exec.On("Enqueue", mock.Anything, mock.Anything).Return(tc.enqueueErr).Maybe()

			id, err := svc.Submit(context.Background(), tc.intent)
			assert.True(t, errors.Contains(err, tc.err), "%s: expected %s got %s", tc.desc, tc.err, err)
			switch {
			case tc.id != "":
				assert.Equal(t, tc.id, id)
				ops.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				exec.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
			case tc.err == nil:
				assert.True(t, strings.HasPrefix(id, uuid.Prefix), id)
				assert.Equal(t, id, created.ID)
				if tc.check != nil {
					assert.True(t, tc.check(created), "unexpected operation %+v", created)
				}
				exec.AssertCalled(t, "Enqueue", mock.Anything, id)
			default:
				assert.Empty(t, id)
				exec.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestGetOperationStatus(t *testing.T) {
	svc, _, ops, _, _ := newService(t)
	now := time.Now().UTC()

	op := clm.Operation{
		ID:           operationID,
		Kind:         clm.KindRenew,
		TargetSerial: serialNumber,
		State:        clm.StateCompensated,
		Attempts:     5,
		LastError:    "certificate authority unavailable",
		ErrorKind:    clm.KindPartialFailure,
		ResultSerial: "0f:0e",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	cases := []struct {
		desc   string
		id     string
		op     clm.Operation
		repErr error
		status clm.OperationStatus
		err    error
	}{
		{
			desc: "get status of existing operation",
			id:   operationID,
			op:   op,
			status: clm.OperationStatus{
				ID:                operationID,
				Kind:              clm.KindRenew,
				State:             clm.StateCompensated,
				Attempts:          5,
				LastError:         op.LastError,
				ErrorKind:         clm.KindPartialFailure,
				TargetSerial:      serialNumber,
				CertificateSerial: "0f:0e",
				CreatedAt:         now,
				UpdatedAt:         now,
			},
		},
		{
			desc:   "get status of unknown operation",
			id:     "unknown",
			repErr: clm.ErrNotFound,
			err:    clm.ErrNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			repoCall := ops.On("Retrieve", mock.Anything, tc.id).Return(tc.op, tc.repErr)
			status, err := svc.GetOperationStatus(context.Background(), tc.id)
			assert.True(t, errors.Contains(err, tc.err), "%s: expected %s got %s", tc.desc, tc.err, err)
			assert.Equal(t, tc.status, status)
			repoCall.Unset()
		})
	}
}

func TestCancelOperation(t *testing.T) {
	cases := []struct {
		desc      string
		op        clm.Operation
		repErr    error
		cancelErr error
		cancelled bool
		err       error
	}{
		{
			desc:      "cancel running operation",
			op:        clm.Operation{ID: operationID, State: clm.StateAwaitingConfirmation},
			cancelled: true,
		},
		{
			desc: "cancel finished operation",
			op:   clm.Operation{ID: operationID, State: clm.StateCompleted},
			err:  clm.ErrConflict,
		},
		{
			desc:   "cancel unknown operation",
			repErr: clm.ErrNotFound,
			err:    clm.ErrNotFound,
		},
		{
			desc:      "cancel with failing repository",
			op:        clm.Operation{ID: operationID, State: clm.StateSubmitted},
			cancelErr: errRepo,
			err:       clm.ErrUpdateEntity,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc, _, ops, exec, _ := newService(t)
			repoCall := ops.On("Retrieve", mock.Anything, operationID).Return(tc.op, tc.repErr)
			cancelCall := ops.On("RequestCancel", mock.Anything, operationID).Return(tc.cancelErr)
			execCall := exec.On("Cancel", operationID).Return()

			err := svc.CancelOperation(context.Background(), operationID)
			assert.True(t, errors.Contains(err, tc.err), "%s: expected %s got %s", tc.desc, tc.err, err)
			if tc.cancelled {
				exec.AssertCalled(t, "Cancel", operationID)
			} else {
				exec.AssertNotCalled(t, "Cancel", operationID)
			}

			repoCall.Unset()
			cancelCall.Unset()
			execCall.Unset()
		})
	}
}

func TestListOperations(t *testing.T) {
	svc, _, ops, _, _ := newService(t)

	pm := clm.OperationPageMetadata{Limit: 10, State: clm.StateFailed}
	page := clm.OperationPage{
		Operations:            []clm.OperationStatus{{ID: operationID, State: clm.StateFailed}},
		OperationPageMetadata: clm.OperationPageMetadata{Total: 1, Limit: 10},
	}

	repoCall := ops.On("List", mock.Anything, pm).Return(page, nil).Once()
	res, err := svc.ListOperations(context.Background(), pm)
	assert.Nil(t, err)
	assert.Equal(t, page, res)
	repoCall.Unset()

	repoCall = ops.On("List", mock.Anything, pm).Return(clm.OperationPage{}, errRepo).Once()
	_, err = svc.ListOperations(context.Background(), pm)
	assert.True(t, errors.Contains(err, clm.ErrViewEntity))
	repoCall.Unset()
}

func TestViewCert(t *testing.T) {
	cert := clm.Certificate{SerialNumber: serialNumber, IssuerDN: issuerDN, Status: clm.StatusActive}

	cases := []struct {
		desc   string
		serial string
		key    string
		cert   clm.Certificate
		repErr error
		err    error
	}{
		{
			desc:   "view certificate",
			serial: "1A 2B 3C 4D",
			key:    serialNumber,
			cert:   cert,
		},
		{
			desc:   "view unknown certificate",
			serial: "ff",
			key:    "ff",
			repErr: clm.ErrNotFound,
			err:    clm.ErrNotFound,
		},
		{
			desc:   "view serial held by two issuers",
			serial: serialNumber,
			key:    serialNumber,
			repErr: errors.Wrap(clm.ErrConflict, errRepo),
			err:    clm.ErrConflict,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc, store, _, _, _ := newService(t)
			store.On("Get", mock.Anything, "", tc.key).Return(tc.cert, tc.repErr).Once()

			got, err := svc.ViewCert(context.Background(), tc.serial)
			assert.True(t, errors.Contains(err, tc.err), "%s: expected %s got %s", tc.desc, tc.err, err)
			assert.Equal(t, tc.cert, got)
		})
	}
}

func TestListCerts(t *testing.T) {
	svc, store, _, _, _ := newService(t)

	pm := clm.PageMetadata{Limit: 10, Status: clm.StatusActive, Remediation: true}
	page := clm.CertificatePage{
		Certificates: []clm.Certificate{{SerialNumber: serialNumber, Status: clm.StatusActive, RemediationRequired: true}},
		PageMetadata: clm.PageMetadata{Total: 1, Limit: 10},
	}

	storeCall := store.On("List", mock.Anything, pm).Return(page, nil).Once()
	res, err := svc.ListCerts(context.Background(), pm)
	assert.Nil(t, err)
	assert.Equal(t, page, res)
	storeCall.Unset()

	storeCall = store.On("List", mock.Anything, pm).Return(clm.CertificatePage{}, errRepo).Once()
	_, err = svc.ListCerts(context.Background(), pm)
	assert.True(t, errors.Contains(err, clm.ErrViewEntity))
	storeCall.Unset()
}

func TestListCAs(t *testing.T) {
	svc, _, _, _, agent := newService(t)

	cas := []clm.CAInfo{{Name: "ManagementCA", SubjectDN: issuerDN}}
	agentCall := agent.On("CAInfo", mock.Anything).Return(cas, nil).Once()
	res, err := svc.ListCAs(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, cas, res)
	agentCall.Unset()

	agentCall = agent.On("CAInfo", mock.Anything).Return(nil, clm.ErrAuthentication).Once()
	_, err = svc.ListCAs(context.Background())
	assert.True(t, errors.Contains(err, clm.ErrAuthentication))
	agentCall.Unset()
}

func TestViewCRL(t *testing.T) {
	cases := []struct {
		desc  string
		req   clm.CRLRequest
		crl   clm.CRL
		agent bool
		err   error
	}{
		{
			desc:  "view latest CRL",
			req:   clm.CRLRequest{IssuerDN: issuerDN},
			crl:   clm.CRL{IssuerDN: issuerDN, Number: "7"},
			agent: true,
		},
		{
			desc:  "view delta CRL of unknown CA",
			req:   clm.CRLRequest{IssuerDN: "CN=Other", Delta: true},
			agent: true,
			err:   clm.ErrNotFound,
		},
		{
			desc: "view CRL with negative partition",
			req:  clm.CRLRequest{IssuerDN: issuerDN, PartitionIndex: -1},
			err:  clm.ErrValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc, _, _, _, agent := newService(t)
			if tc.agent {
				agent.On("CRL", mock.Anything, tc.req).Return(tc.crl, tc.err).Once()
			}
			crl, err := svc.ViewCRL(context.Background(), tc.req)
			assert.True(t, errors.Contains(err, tc.err), "expected %v got %v", tc.err, err)
			assert.Equal(t, tc.crl, crl)
		})
	}
}

func TestCreateCRL(t *testing.T) {
	svc, _, _, _, agent := newService(t)

	gen := clm.CRLGeneration{IssuerDN: issuerDN, CRLNumber: 8, DeltaCRLNumber: 9}
	agentCall := agent.On("CreateCRL", mock.Anything, issuerDN, true).Return(gen, nil).Once()
	res, err := svc.CreateCRL(context.Background(), issuerDN, true)
	assert.Nil(t, err)
	assert.Equal(t, gen, res)
	agentCall.Unset()

	agentCall = agent.On("CreateCRL", mock.Anything, issuerDN, false).Return(clm.CRLGeneration{}, clm.ErrServiceUnavailable).Once()
	_, err = svc.CreateCRL(context.Background(), issuerDN, false)
	assert.True(t, errors.Contains(err, clm.ErrServiceUnavailable))
	agentCall.Unset()
}

func TestViewCAChain(t *testing.T) {
	svc, _, _, _, agent := newService(t)

	chain := []clm.Certificate{{SerialNumber: "0a", SubjectDN: issuerDN}}
	agentCall := agent.On("CACertificates", mock.Anything, issuerDN).Return(chain, nil).Once()
	res, err := svc.ViewCAChain(context.Background(), issuerDN)
	assert.Nil(t, err)
	assert.Equal(t, chain, res)
	agentCall.Unset()

	agentCall = agent.On("CACertificates", mock.Anything, "CN=Other").Return(nil, clm.ErrNotFound).Once()
	_, err = svc.ViewCAChain(context.Background(), "CN=Other")
	assert.True(t, errors.Contains(err, clm.ErrNotFound))
	agentCall.Unset()
}

func TestAuthorityStatus(t *testing.T) {
	svc, _, _, _, agent := newService(t)

	statuses := []clm.APIStatus{{Resource: "pki", Status: "OK", Version: "2.5.0"}}
	agent.On("Status", mock.Anything).Return(statuses, nil).Once()
	res, err := svc.AuthorityStatus(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, statuses, res)
}

func TestSubmitConcurrentTarget(t *testing.T) {
	db, err := bbolt.Connect(filepath.Join(t.TempDir(), "clm.db"), nil)
	require.Nil(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)
	st := clmstore.New(bbolt.NewCertificateRepository(db), logger)
	ops := bbolt.NewOperationRepository(db)
	exec := mocks.NewExecutor(t)
	exec.On("Enqueue", mock.Anything, mock.Anything).Return(nil)

	_, err = st.Upsert(ctx, clm.Certificate{
		SerialNumber: serialNumber,
		IssuerDN:     issuerDN,
		SubjectDN:    "CN=svc.example.com",
		Status:       clm.StatusActive,
		Profile:      "client",
		NotAfter:     time.Now().Add(10 * 24 * time.Hour),
	})
	require.Nil(t, err)

	svc := clm.NewService(st, ops, exec, mocks.NewAgent(t), uuid.New(), clm.DefaultPolicy(), logger)

	const submitters = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ids       []string
		conflicts int
	)
	for i := 0; i < submitters; i++ {
		intent := clm.Intent{Kind: clm.KindRenew, TargetSerial: serialNumber}
		if i%2 == 1 {
			intent = clm.Intent{Kind: clm.KindRevoke, TargetSerial: serialNumber, RevocationReason: "superseded"}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := svc.Submit(ctx, intent)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ids = append(ids, id)
			case errors.Contains(err, clm.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %s", err)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 1)
	assert.Equal(t, submitters-1, conflicts)

	active, err := ops.ListActive(ctx)
	require.Nil(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, ids[0], active[0].ID)
	assert.Equal(t, issuerDN, active[0].TargetIssuer)
	exec.AssertNumberOfCalls(t, "Enqueue", 1)
}
