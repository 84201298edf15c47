// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/pkg/errors"
	"github.com/absmach/clm/postgres"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOperation(kind clm.OperationKind, target string) clm.Operation {
	id := uuid.Must(uuid.NewV4()).String()
	now := time.Now().UTC()
	op := clm.Operation{
		ID:               id,
		Kind:             kind,
		TargetSerial:     target,
		Params:           clm.Params{Subject: "CN=svc.example.com", ValidityDays: 90},
		State:            clm.StateCreated,
		Phase:            clm.PhaseIssue,
		IdempotencyToken: id,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if target != "" {
		op.TargetIssuer = "CN=ManagementCA"
	}
	return op
}

func cleanOperations(t *testing.T) {
	_, err := db.Exec("DELETE FROM operations")
	require.Nil(t, err)
}

func TestCreateOperation(t *testing.T) {
	t.Cleanup(func() { cleanOperations(t) })
	repo := postgres.NewOperationRepository(database)

	op := newOperation(clm.KindRenew, "0A")
	sameToken := newOperation(clm.KindIssue, "")
	sameToken.IdempotencyToken = op.IdempotencyToken
	otherIssuer := newOperation(clm.KindRevoke, "0A")
	otherIssuer.TargetIssuer = "CN=OtherCA"

	cases := []struct {
		desc string
		op   clm.Operation
		err  error
	}{
		{
			desc: "successful create",
			op:   op,
			err:  nil,
		},
		{
			desc: "create with used token",
			op:   sameToken,
			err:  clm.ErrConflict,
		},
		{
			desc: "create for target in flight",
			op:   newOperation(clm.KindRevoke, "0A"),
			err:  clm.ErrConflict,
		},
		{
			desc: "create without target",
			op:   newOperation(clm.KindIssue, ""),
			err:  nil,
		},
		{
			desc: "create another without target",
			op:   newOperation(clm.KindIssue, ""),
			err:  nil,
		},
		{
			desc: "create for same serial from another issuer",
			op:   otherIssuer,
			err:  nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := repo.Create(context.Background(), tc.op)
			assert.True(t, errors.Contains(err, tc.err), "expected %v, got %v", tc.err, err)
		})
	}
}

func TestUpdateOperation(t *testing.T) {
	t.Cleanup(func() { cleanOperations(t) })
	repo := postgres.NewOperationRepository(database)

	op := newOperation(clm.KindRenew, "0B")
	require.Nil(t, repo.Create(context.Background(), op))
	require.Nil(t, repo.RequestCancel(context.Background(), op.ID))

	op.State = clm.StateSubmitted
	op.Attempts = 2
	require.Nil(t, repo.Update(context.Background(), op))

	got, err := repo.Retrieve(context.Background(), op.ID)
	require.Nil(t, err)
	assert.Equal(t, clm.StateSubmitted, got.State)
	assert.Equal(t, 2, got.Attempts)
	assert.True(t, got.CancelRequested)
	assert.Equal(t, op.Params, got.Params)

	active, err := repo.RetrieveActive(context.Background(), "CN=ManagementCA", "0B")
	require.Nil(t, err)
	assert.Equal(t, op.ID, active.ID)

	op.State = clm.StateCompleted
	require.Nil(t, repo.Update(context.Background(), op))
	_, err = repo.RetrieveActive(context.Background(), "CN=ManagementCA", "0B")
	assert.True(t, errors.Contains(err, clm.ErrNotFound))

	require.Nil(t, repo.Create(context.Background(), newOperation(clm.KindRevoke, "0B")))

	byToken, err := repo.RetrieveByToken(context.Background(), op.IdempotencyToken)
	require.Nil(t, err)
	assert.Equal(t, op.ID, byToken.ID)

	err = repo.Update(context.Background(), newOperation(clm.KindIssue, ""))
	assert.True(t, errors.Contains(err, clm.ErrNotFound))
}

func TestListOperations(t *testing.T) {
	t.Cleanup(func() { cleanOperations(t) })
	repo := postgres.NewOperationRepository(database)

	for i := 0; i < 5; i++ {
		op := newOperation(clm.KindIssue, "")
		if i < 2 {
			op.State = clm.StateFailed
		}
		require.Nil(t, repo.Create(context.Background(), op))
	}

	page, err := repo.List(context.Background(), clm.OperationPageMetadata{Limit: 2})
	require.Nil(t, err)
	assert.Equal(t, uint64(5), page.Total)
	assert.Len(t, page.Operations, 2)

	page, err = repo.List(context.Background(), clm.OperationPageMetadata{State: clm.StateFailed})
	require.Nil(t, err)
	assert.Equal(t, uint64(2), page.Total)

	active, err := repo.ListActive(context.Background())
	require.Nil(t, err)
	assert.Len(t, active, 3)
}
