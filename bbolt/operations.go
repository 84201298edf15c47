// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package bbolt

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/absmach/clm"
	"github.com/absmach/clm/pkg/errors"
	"go.etcd.io/bbolt"
)

var (
	errTokenTaken    = errors.New("idempotency token already used")
	errTargetHeld    = errors.New("target has a non-terminal operation")
	errCorruptRecord = errors.New("corrupt operation record")
)

type operationsRepo struct {
	db *bbolt.DB
}

var _ clm.OperationRepository = (*operationsRepo)(nil)

// NewOperationRepository returns an operation repository backed by db.
// Tokens and the target of every non-terminal operation are indexed in
// separate buckets updated in the same transaction as the operation.
func NewOperationRepository(db *bbolt.DB) clm.OperationRepository {
	return &operationsRepo{db: db}
}

func (repo *operationsRepo) Create(_ context.Context, op clm.Operation) error {
	return repo.db.Update(func(tx *bbolt.Tx) error {
		ops, tokens, targets := tx.Bucket(opsBucket), tx.Bucket(tokensBucket), tx.Bucket(targetsBucket)

		if ops.Get([]byte(op.ID)) != nil {
			return errors.Wrap(clm.ErrConflict, errors.New(op.ID))
		}
		if tokens.Get([]byte(op.IdempotencyToken)) != nil {
			return errors.Wrap(clm.ErrConflict, errTokenTaken)
		}
		target := certKey(op.TargetIssuer, op.TargetSerial)
		if op.TargetSerial != "" && targets.Get(target) != nil {
			return errors.Wrap(clm.ErrConflict, errTargetHeld)
		}

		if err := putOperation(ops, op); err != nil {
			return errors.Wrap(clm.ErrCreateEntity, err)
		}
		if err := tokens.Put([]byte(op.IdempotencyToken), []byte(op.ID)); err != nil {
			return errors.Wrap(clm.ErrCreateEntity, err)
		}
		if op.TargetSerial != "" && !op.State.Terminal() {
			if err := targets.Put(target, []byte(op.ID)); err != nil {
				return errors.Wrap(clm.ErrCreateEntity, err)
			}
		}
		return nil
	})
}

func (repo *operationsRepo) Retrieve(_ context.Context, id string) (clm.Operation, error) {
	var op clm.Operation
	err := repo.db.View(func(tx *bbolt.Tx) error {
		var err error
		op, err = getOperation(tx.Bucket(opsBucket), id)
		return err
	})
	return op, err
}

func (repo *operationsRepo) RetrieveByToken(_ context.Context, token string) (clm.Operation, error) {
	return repo.retrieveIndexed(tokensBucket, token)
}

func (repo *operationsRepo) RetrieveActive(_ context.Context, targetIssuer, targetSerial string) (clm.Operation, error) {
	return repo.retrieveIndexed(targetsBucket, clm.CertificateKey(targetIssuer, targetSerial))
}

func (repo *operationsRepo) retrieveIndexed(bucket []byte, key string) (clm.Operation, error) {
	var op clm.Operation
	err := repo.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucket).Get([]byte(key))
		if id == nil {
			return errors.Wrap(clm.ErrNotFound, errors.New(key))
		}
		var err error
		op, err = getOperation(tx.Bucket(opsBucket), string(id))
		return err
	})
	return op, err
}

func (repo *operationsRepo) Update(_ context.Context, op clm.Operation) error {
	return repo.db.Update(func(tx *bbolt.Tx) error {
		ops, targets := tx.Bucket(opsBucket), tx.Bucket(targetsBucket)
		existing, err := getOperation(ops, op.ID)
		if err != nil {
			return err
		}
		op.CancelRequested = op.CancelRequested || existing.CancelRequested

		if err := putOperation(ops, op); err != nil {
			return errors.Wrap(clm.ErrUpdateEntity, err)
		}
		if op.State.Terminal() && op.TargetSerial != "" {
			target := certKey(op.TargetIssuer, op.TargetSerial)
			if id := targets.Get(target); id != nil && string(id) == op.ID {
				return targets.Delete(target)
			}
		}
		return nil
	})
}

func (repo *operationsRepo) RequestCancel(_ context.Context, id string) error {
	return repo.db.Update(func(tx *bbolt.Tx) error {
		ops := tx.Bucket(opsBucket)
		op, err := getOperation(ops, id)
		if err != nil {
			return err
		}
		op.CancelRequested = true
		return putOperation(ops, op)
	})
}

func (repo *operationsRepo) List(_ context.Context, pm clm.OperationPageMetadata) (clm.OperationPage, error) {
	ops, err := repo.scan(pm.Matches)
	if err != nil {
		return clm.OperationPage{}, errors.Wrap(clm.ErrViewEntity, err)
	}
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].CreatedAt.After(ops[j].CreatedAt)
	})

	pm.Total = uint64(len(ops))
	page := clm.OperationPage{
		Operations:            []clm.OperationStatus{},
		OperationPageMetadata: pm,
	}
	for _, op := range paginate(ops, pm.Offset, pm.Limit) {
		page.Operations = append(page.Operations, op.Status())
	}

	return page, nil
}

func (repo *operationsRepo) ListActive(_ context.Context) ([]clm.Operation, error) {
	ops, err := repo.scan(func(op clm.Operation) bool {
		return !op.State.Terminal()
	})
	if err != nil {
		return nil, errors.Wrap(clm.ErrViewEntity, err)
	}
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].CreatedAt.Before(ops[j].CreatedAt)
	})
	return ops, nil
}

func (repo *operationsRepo) scan(match func(clm.Operation) bool) ([]clm.Operation, error) {
	ops := []clm.Operation{}
	err := repo.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(opsBucket).ForEach(func(_, v []byte) error {
			var op clm.Operation
			if err := json.Unmarshal(v, &op); err != nil {
				return errors.Wrap(errCorruptRecord, err)
			}
			if match(op) {
				ops = append(ops, op)
			}
			return nil
		})
	})
	return ops, err
}

func getOperation(b *bbolt.Bucket, id string) (clm.Operation, error) {
	data := b.Get([]byte(id))
	if data == nil {
		return clm.Operation{}, errors.Wrap(clm.ErrNotFound, errors.New(id))
	}
	var op clm.Operation
	if err := json.Unmarshal(data, &op); err != nil {
		return clm.Operation{}, errors.Wrap(errCorruptRecord, err)
	}
	return op, nil
}

func putOperation(b *bbolt.Bucket, op clm.Operation) error {
	data, err := json.Marshal(op)
	if err != nil {
		return err
	}
	return b.Put([]byte(op.ID), data)
}
