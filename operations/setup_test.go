// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package operations_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"log/slog"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/bbolt"
	"github.com/absmach/clm/mocks"
	"github.com/absmach/clm/operations"
	"github.com/absmach/clm/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const issuerDN = "CN=ManagementCA"

type fixture struct {
	ops      clm.OperationRepository
	store    clm.Store
	agent    *mocks.Agent
	notifier *mocks.Notifier
	cfg      operations.Config
	logger   *slog.Logger
}

func testConfig() operations.Config {
	return operations.Config{
		Workers:       4,
		QueueSize:     16,
		MaxAttempts:   5,
		MaxWait:       time.Minute,
		RetryInitial:  time.Millisecond,
		RetryMax:      2 * time.Millisecond,
		PollInterval:  time.Millisecond,
		PollMax:       2 * time.Millisecond,
		SweepInterval: time.Hour,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := bbolt.Connect(filepath.Join(t.TempDir(), "operations.db"), nil)
	require.Nil(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.DiscardHandler)
	notifier := mocks.NewNotifier(t)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Maybe()

	return &fixture{
		ops:      bbolt.NewOperationRepository(db),
		store:    store.New(bbolt.NewCertificateRepository(db), logger),
		agent:    mocks.NewAgent(t),
		notifier: notifier,
		cfg:      testConfig(),
		logger:   logger,
	}
}

func (f *fixture) machine() *operations.Machine {
	return operations.NewMachine(f.ops, f.store, f.agent, f.notifier, clm.DefaultPolicy(), f.cfg, f.logger)
}

// run advances the operation until it is terminal and returns its persisted state.
func (f *fixture) run(t *testing.T, id string) clm.Operation {
	t.Helper()
	ctx := context.Background()
	m := f.machine()

	op, err := f.ops.Retrieve(ctx, id)
	require.Nil(t, err)
	for i := 0; i < 200 && !op.State.Terminal(); i++ {
		delay, err := m.Advance(ctx, &op)
		require.Nil(t, err)
		time.Sleep(delay)
	}

	op, err = f.ops.Retrieve(ctx, id)
	require.Nil(t, err)
	require.True(t, op.State.Terminal(), "operation stuck in %s", op.State)
	return op
}

func (f *fixture) create(t *testing.T, op clm.Operation) clm.Operation {
	t.Helper()
	now := time.Now().UTC()
	if op.State == "" {
		op.State = clm.StateCreated
	}
	if op.Phase == "" {
		op.Phase = clm.PhaseIssue
	}
	if op.IdempotencyToken == "" {
		op.IdempotencyToken = "token-" + op.ID
	}
	op.CreatedAt, op.UpdatedAt = now, now
	require.Nil(t, f.ops.Create(context.Background(), op))
	return op
}

func (f *fixture) seed(t *testing.T, serial string, status clm.Status) clm.Certificate {
	t.Helper()
	c, err := f.store.Upsert(context.Background(), clm.Certificate{
		SerialNumber: serial,
		IssuerDN:     issuerDN,
		SubjectDN:    "CN=svc.example.com",
		NotBefore:    time.Now().Add(-300 * 24 * time.Hour),
		NotAfter:     time.Now().Add(10 * 24 * time.Hour),
		Status:       status,
		Profile:      "client",
	})
	require.Nil(t, err)
	return c
}

func issueOp(id string) clm.Operation {
	return clm.Operation{
		ID:   id,
		Kind: clm.KindIssue,
		Params: clm.Params{
			Subject:      "CN=svc.example.com,O=Acme",
			ValidityDays: 90,
			Profile:      "client",
			DNSNames:     []string{"svc.example.com"},
		},
	}
}

func renewOp(id, target string) clm.Operation {
	return clm.Operation{
		ID:           id,
		Kind:         clm.KindRenew,
		TargetSerial: target,
		TargetIssuer: issuerDN,
		Params: clm.Params{
			Subject:          "CN=svc.example.com",
			ValidityDays:     90,
			Profile:          "client",
			RevocationReason: clm.ReasonSuperseded,
		},
	}
}

// leaf returns a certificate as the authority would after signing.
func leaf(t *testing.T, serial int64) clm.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.Nil(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      pkix.Name{CommonName: "svc.example.com"},
		Issuer:       pkix.Name{CommonName: "ManagementCA"},
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(90 * 24 * time.Hour),
		DNSNames:     []string{"svc.example.com"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.Nil(t, err)
	c, err := clm.ParseCertificate(der)
	require.Nil(t, err)
	return c
}
