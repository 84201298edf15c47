// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package bbolt provides embedded, file backed certificate and operation
// repositories.
package bbolt

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	certsBucket   = []byte("certs")
	opsBucket     = []byte("operations")
	tokensBucket  = []byte("operation_tokens")
	targetsBucket = []byte("operation_targets")
)

// Connect opens the database at path and creates the buckets.
func Connect(path string, options *bbolt.Options) (*bbolt.DB, error) {
	if options == nil {
		options = &bbolt.Options{Timeout: 5 * time.Second}
	}
	db, err := bbolt.Open(path, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{certsBucket, opsBucket, tokensBucket, targetsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return db, nil
}

func paginate[T any](items []T, offset, limit uint64) []T {
	total := uint64(len(items))
	if offset >= total {
		return []T{}
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return items[offset:end]
}
