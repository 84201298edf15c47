// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package store_test

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/bbolt"
	"github.com/absmach/clm/pkg/errors"
	"github.com/absmach/clm/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...store.Option) clm.Store {
	t.Helper()
	db, err := bbolt.Connect(filepath.Join(t.TempDir(), "store.db"), nil)
	require.Nil(t, err)
	t.Cleanup(func() { db.Close() })
	return store.New(bbolt.NewCertificateRepository(db), slog.New(slog.DiscardHandler), opts...)
}

const managementCA = "CN=ManagementCA"

func newCert(serial string, status clm.Status, notAfter time.Time) clm.Certificate {
	return clm.Certificate{
		SerialNumber: serial,
		IssuerDN:     managementCA,
		SubjectDN:    "CN=" + serial,
		NotBefore:    notAfter.Add(-90 * 24 * time.Hour),
		NotAfter:     notAfter,
		Status:       status,
	}
}

func TestUpsert(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	exp := time.Now().Add(60 * 24 * time.Hour).UTC()

	created, err := s.Upsert(ctx, newCert("0A:1B", clm.StatusActive, exp))
	require.Nil(t, err)
	assert.Equal(t, "0a:1b", created.SerialNumber)
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.LastSyncedAt.IsZero())

	cases := []struct {
		desc   string
		cert   clm.Certificate
		status clm.Status
		err    error
	}{
		{
			desc: "upsert without serial",
			cert: clm.Certificate{IssuerDN: "CN=CA"},
			err:  clm.ErrMalformedEntity,
		},
		{
			desc: "upsert without issuer",
			cert: clm.Certificate{SerialNumber: "0C"},
			err:  clm.ErrMalformedEntity,
		},
		{
			desc: "upsert unknown status",
			cert: clm.Certificate{SerialNumber: "0C", IssuerDN: managementCA, Status: "lost"},
			err:  clm.ErrMalformedEntity,
		},
		{
			desc:   "upsert keeps known fields",
			cert:   clm.Certificate{SerialNumber: "0A1B", IssuerDN: managementCA, Status: clm.StatusRenewalInProgress},
			status: clm.StatusRenewalInProgress,
		},
		{
			desc:   "upsert revoked",
			cert:   clm.Certificate{SerialNumber: "0A1B", IssuerDN: managementCA, Status: clm.StatusRevoked},
			status: clm.StatusRevoked,
		},
		{
			desc: "upsert revoked back to active",
			cert: clm.Certificate{SerialNumber: "0A1B", IssuerDN: managementCA, Status: clm.StatusActive},
			err:  clm.ErrInvalidTransition,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := s.Upsert(ctx, tc.cert)
			assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("expected %v got %v", tc.err, err))
			if tc.err == nil {
				assert.Equal(t, tc.status, got.Status)
				assert.Equal(t, created.SubjectDN, got.SubjectDN)
				assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
			}
		})
	}
}

func TestMarkStatus(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, err := s.Upsert(ctx, newCert("01", clm.StatusActive, time.Now().Add(time.Hour)))
	require.Nil(t, err)

	cases := []struct {
		desc   string
		serial string
		status clm.Status
		err    error
	}{
		{
			desc:   "mark renewal in progress",
			serial: "01",
			status: clm.StatusRenewalInProgress,
		},
		{
			desc:   "revert to active",
			serial: "01",
			status: clm.StatusActive,
		},
		{
			desc:   "mark expired",
			serial: "01",
			status: clm.StatusExpired,
		},
		{
			desc:   "expired back to active",
			serial: "01",
			status: clm.StatusActive,
			err:    clm.ErrInvalidTransition,
		},
		{
			desc:   "expired to revoked",
			serial: "01",
			status: clm.StatusRevoked,
		},
		{
			desc:   "unknown serial",
			serial: "FF",
			status: clm.StatusRevoked,
			err:    clm.ErrNotFound,
		},
		{
			desc:   "unknown status",
			serial: "01",
			status: "gone",
			err:    clm.ErrMalformedEntity,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := s.MarkStatus(ctx, managementCA, tc.serial, tc.status)
			assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("expected %v got %v", tc.err, err))
			if tc.err == nil {
				assert.Equal(t, tc.status, got.Status)
			}
		})
	}
}

func TestConcurrentUpdates(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, err := s.Upsert(ctx, newCert("02", clm.StatusActive, time.Now().Add(time.Hour)))
	require.Nil(t, err)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, managementCA, "02", func(c *clm.Certificate) error {
				c.Profile += "x"
				return nil
			})
			assert.Nil(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, managementCA, "02")
	require.Nil(t, err)
	assert.Len(t, got.Profile, writers)
}

func TestSameSerialDifferentIssuers(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	first := newCert("01", clm.StatusActive, exp)
	first.IssuerDN = "CN=CA-A"
	second := newCert("01", clm.StatusRevoked, exp)
	second.IssuerDN = "CN=CA-B"
	second.SubjectDN = "CN=other"
	for _, c := range []clm.Certificate{first, second} {
		_, err := s.Upsert(ctx, c)
		require.Nil(t, err)
	}

	page, err := s.List(ctx, clm.PageMetadata{})
	require.Nil(t, err)
	assert.Equal(t, uint64(2), page.Total)

	cases := []struct {
		desc    string
		issuer  string
		status  clm.Status
		subject string
		err     error
	}{
		{desc: "get first issuer", issuer: "CN=CA-A", status: clm.StatusActive, subject: "CN=01"},
		{desc: "get second issuer", issuer: "CN=CA-B", status: clm.StatusRevoked, subject: "CN=other"},
		{desc: "get unknown issuer", issuer: "CN=CA-C", err: clm.ErrNotFound},
		{desc: "get without issuer", issuer: "", err: clm.ErrConflict},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := s.Get(ctx, tc.issuer, "01")
			assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("expected %v got %v", tc.err, err))
			if tc.err == nil {
				assert.Equal(t, tc.issuer, got.IssuerDN)
				assert.Equal(t, tc.status, got.Status)
				assert.Equal(t, tc.subject, got.SubjectDN)
			}
		})
	}

	_, err = s.MarkStatus(ctx, "", "01", clm.StatusRevoked)
	assert.True(t, errors.Contains(err, clm.ErrConflict))

	got, err := s.MarkStatus(ctx, "CN=CA-A", "01", clm.StatusRevoked)
	require.Nil(t, err)
	assert.Equal(t, clm.StatusRevoked, got.Status)
}

func TestGetWithoutIssuer(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, err := s.Upsert(ctx, newCert("03", clm.StatusActive, time.Now().Add(time.Hour)))
	require.Nil(t, err)

	got, err := s.Get(ctx, "", "03")
	require.Nil(t, err)
	assert.Equal(t, managementCA, got.IssuerDN)

	_, err = s.Get(ctx, "", "04")
	assert.True(t, errors.Contains(err, clm.ErrNotFound))
}

func TestListExpiringWithin(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	certs := []clm.Certificate{
		newCert("10", clm.StatusActive, now.Add(10*24*time.Hour)),
		newCert("11", clm.StatusActive, now.Add(60*24*time.Hour)),
		newCert("12", clm.StatusRevoked, now.Add(5*24*time.Hour)),
		newCert("13", clm.StatusRenewalInProgress, now.Add(5*24*time.Hour)),
	}
	for _, c := range certs {
		_, err := s.Upsert(ctx, c)
		require.Nil(t, err)
	}

	got, err := s.ListExpiringWithin(ctx, 30*24*time.Hour)
	require.Nil(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "10", got[0].SerialNumber)

	revoked, err := s.ListByStatus(ctx, clm.StatusRevoked)
	require.Nil(t, err)
	assert.Len(t, revoked, 1)
}

func TestArchive(t *testing.T) {
	now := time.Now()
	clock := now.Add(-200 * 24 * time.Hour)
	s := newStore(t, store.WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	for _, c := range []clm.Certificate{
		newCert("20", clm.StatusRevoked, clock),
		newCert("21", clm.StatusExpired, clock),
		newCert("22", clm.StatusActive, now.Add(time.Hour)),
	} {
		_, err := s.Upsert(ctx, c)
		require.Nil(t, err)
	}

	clock = now
	n, err := s.Archive(ctx, 90*24*time.Hour)
	require.Nil(t, err)
	assert.Equal(t, 2, n)

	page, err := s.List(ctx, clm.PageMetadata{})
	require.Nil(t, err)
	assert.Equal(t, uint64(1), page.Total)

	archived, err := s.Get(ctx, managementCA, "20")
	require.Nil(t, err)
	assert.True(t, archived.Archived())
	assert.Equal(t, clm.StatusRevoked, archived.Status)

	n, err = s.Archive(ctx, 90*24*time.Hour)
	require.Nil(t, err)
	assert.Equal(t, 0, n)
}
