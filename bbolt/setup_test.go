// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package bbolt_test

import (
	"path/filepath"
	"testing"

	"github.com/absmach/clm/bbolt"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func newTestDB(t *testing.T) *bolt.DB {
	t.Helper()
	db, err := bbolt.Connect(filepath.Join(t.TempDir(), "clm-test.db"), nil)
	require.Nil(t, err, "could not open db")
	t.Cleanup(func() {
		db.Close()
	})
	return db
}
