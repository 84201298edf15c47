// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/absmach/clm"
	pgclient "github.com/absmach/clm/internal/postgres"
	"github.com/absmach/clm/pkg/errors"
)

const activeStates = `state NOT IN ('completed', 'failed', 'compensated')`

const opColumns = `id, kind, target_serial, target_issuer, params, state, phase, idempotency_token,
	attempts, last_error, error_kind, result_serial, result_issuer, csr, key, cancel_requested,
	awaiting_since, created_at, updated_at`

type operationsRepo struct {
	db pgclient.Database
}

var _ clm.OperationRepository = (*operationsRepo)(nil)

// NewOperationRepository returns an operation repository. A partial unique
// index keeps at most one non-terminal operation per target certificate.
func NewOperationRepository(db pgclient.Database) clm.OperationRepository {
	return operationsRepo{
		db: db,
	}
}

func (repo operationsRepo) Create(ctx context.Context, op clm.Operation) error {
	q := `INSERT INTO operations (` + opColumns + `)
		VALUES (:id, :kind, :target_serial, :target_issuer, :params, :state, :phase, :idempotency_token,
		:attempts, :last_error, :error_kind, :result_serial, :result_issuer, :csr, :key, :cancel_requested,
		:awaiting_since, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toDBOperation(op)); err != nil {
		return handleError(clm.ErrCreateEntity, err)
	}
	return nil
}

func (repo operationsRepo) Retrieve(ctx context.Context, id string) (clm.Operation, error) {
	return repo.retrieve(ctx, `SELECT `+opColumns+` FROM operations WHERE id = $1`, id)
}

func (repo operationsRepo) RetrieveByToken(ctx context.Context, token string) (clm.Operation, error) {
	return repo.retrieve(ctx, `SELECT `+opColumns+` FROM operations WHERE idempotency_token = $1`, token)
}

func (repo operationsRepo) RetrieveActive(ctx context.Context, targetIssuer, targetSerial string) (clm.Operation, error) {
	q := `SELECT ` + opColumns + ` FROM operations WHERE target_issuer = $1 AND target_serial = $2 AND ` + activeStates
	return repo.retrieve(ctx, q, targetIssuer, targetSerial)
}

func (repo operationsRepo) retrieve(ctx context.Context, q string, args ...any) (clm.Operation, error) {
	var dbo dbOperation
	if err := repo.db.QueryRowxContext(ctx, q, args...).StructScan(&dbo); err != nil {
		if err == sql.ErrNoRows {
			return clm.Operation{}, errors.Wrap(clm.ErrNotFound, err)
		}
		return clm.Operation{}, handleError(clm.ErrViewEntity, err)
	}
	return toOperation(dbo), nil
}

func (repo operationsRepo) Update(ctx context.Context, op clm.Operation) error {
	q := `UPDATE operations SET params = :params, state = :state, phase = :phase, attempts = :attempts,
		last_error = :last_error, error_kind = :error_kind, result_serial = :result_serial,
		result_issuer = :result_issuer, csr = :csr, key = :key,
		cancel_requested = cancel_requested OR :cancel_requested,
		awaiting_since = :awaiting_since, updated_at = :updated_at
		WHERE id = :id`
	result, err := repo.db.NamedExecContext(ctx, q, toDBOperation(op))
	if err != nil {
		return handleError(clm.ErrUpdateEntity, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.Wrap(clm.ErrNotFound, errors.New(op.ID))
	}
	return nil
}

func (repo operationsRepo) RequestCancel(ctx context.Context, id string) error {
	q := `UPDATE operations SET cancel_requested = TRUE, updated_at = $2 WHERE id = $1`
	result, err := repo.db.ExecContext(ctx, q, id, time.Now().UTC())
	if err != nil {
		return handleError(clm.ErrUpdateEntity, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.Wrap(clm.ErrNotFound, errors.New(id))
	}
	return nil
}

func (repo operationsRepo) List(ctx context.Context, pm clm.OperationPageMetadata) (clm.OperationPage, error) {
	var conds []string
	params := map[string]any{}
	if pm.State != "" {
		conds = append(conds, "state = :state")
		params["state"] = string(pm.State)
	}
	if pm.Kind != "" {
		conds = append(conds, "kind = :kind")
		params["kind"] = string(pm.Kind)
	}
	if pm.TargetSerial != "" {
		conds = append(conds, "target_serial = :target_serial")
		params["target_serial"] = pm.TargetSerial
	}
	where := whereClause(conds)

	total, err := total(ctx, repo.db, `SELECT COUNT(*) FROM operations`+where, params)
	if err != nil {
		return clm.OperationPage{}, handleError(clm.ErrViewEntity, err)
	}

	q := `SELECT ` + opColumns + ` FROM operations` + where + ` ORDER BY created_at DESC` + pageQuery(pm.Offset, pm.Limit)
	ops, err := repo.query(ctx, q, params)
	if err != nil {
		return clm.OperationPage{}, err
	}

	pm.Total = total
	page := clm.OperationPage{
		Operations:            []clm.OperationStatus{},
		OperationPageMetadata: pm,
	}
	for _, op := range ops {
		page.Operations = append(page.Operations, op.Status())
	}
	return page, nil
}

func (repo operationsRepo) ListActive(ctx context.Context) ([]clm.Operation, error) {
	q := `SELECT ` + opColumns + ` FROM operations WHERE ` + activeStates + ` ORDER BY created_at`
	return repo.query(ctx, q, map[string]any{})
}

func (repo operationsRepo) query(ctx context.Context, q string, params map[string]any) ([]clm.Operation, error) {
	rows, err := repo.db.NamedQueryContext(ctx, q, params)
	if err != nil {
		return nil, handleError(clm.ErrViewEntity, err)
	}
	defer rows.Close()

	ops := []clm.Operation{}
	for rows.Next() {
		var dbo dbOperation
		if err := rows.StructScan(&dbo); err != nil {
			return nil, handleError(clm.ErrViewEntity, err)
		}
		ops = append(ops, toOperation(dbo))
	}
	if err := rows.Err(); err != nil {
		return nil, handleError(clm.ErrViewEntity, err)
	}
	return ops, nil
}

type dbOperation struct {
	ID               string       `db:"id"`
	Kind             string       `db:"kind"`
	TargetSerial     string       `db:"target_serial"`
	TargetIssuer     string       `db:"target_issuer"`
	Params           clm.Params   `db:"params"`
	State            string       `db:"state"`
	Phase            string       `db:"phase"`
	IdempotencyToken string       `db:"idempotency_token"`
	Attempts         int          `db:"attempts"`
	LastError        string       `db:"last_error"`
	ErrorKind        string       `db:"error_kind"`
	ResultSerial     string       `db:"result_serial"`
	ResultIssuer     string       `db:"result_issuer"`
	CSR              []byte       `db:"csr"`
	Key              []byte       `db:"key"`
	CancelRequested  bool         `db:"cancel_requested"`
	AwaitingSince    sql.NullTime `db:"awaiting_since"`
	CreatedAt        time.Time    `db:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at"`
}

func toDBOperation(op clm.Operation) dbOperation {
	dbo := dbOperation{
		ID:               op.ID,
		Kind:             string(op.Kind),
		TargetSerial:     op.TargetSerial,
		TargetIssuer:     op.TargetIssuer,
		Params:           op.Params,
		State:            string(op.State),
		Phase:            string(op.Phase),
		IdempotencyToken: op.IdempotencyToken,
		Attempts:         op.Attempts,
		LastError:        op.LastError,
		ErrorKind:        op.ErrorKind,
		ResultSerial:     op.ResultSerial,
		ResultIssuer:     op.ResultIssuer,
		CSR:              op.CSR,
		Key:              op.Key,
		CancelRequested:  op.CancelRequested,
		CreatedAt:        op.CreatedAt,
		UpdatedAt:        op.UpdatedAt,
	}
	if op.AwaitingSince != nil {
		dbo.AwaitingSince = nullTime(*op.AwaitingSince)
	}
	return dbo
}

func toOperation(dbo dbOperation) clm.Operation {
	op := clm.Operation{
		ID:               dbo.ID,
		Kind:             clm.OperationKind(dbo.Kind),
		TargetSerial:     dbo.TargetSerial,
		TargetIssuer:     dbo.TargetIssuer,
		Params:           dbo.Params,
		State:            clm.OperationState(dbo.State),
		Phase:            clm.Phase(dbo.Phase),
		IdempotencyToken: dbo.IdempotencyToken,
		Attempts:         dbo.Attempts,
		LastError:        dbo.LastError,
		ErrorKind:        dbo.ErrorKind,
		ResultSerial:     dbo.ResultSerial,
		ResultIssuer:     dbo.ResultIssuer,
		CSR:              dbo.CSR,
		Key:              dbo.Key,
		CancelRequested:  dbo.CancelRequested,
		CreatedAt:        dbo.CreatedAt.UTC(),
		UpdatedAt:        dbo.UpdatedAt.UTC(),
	}
	if dbo.AwaitingSince.Valid {
		t := dbo.AwaitingSince.Time.UTC()
		op.AwaitingSince = &t
	}
	return op
}
