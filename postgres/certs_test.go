// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/pkg/errors"
	"github.com/absmach/clm/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const managementCA = "CN=ManagementCA"

func newCert(serial string, status clm.Status) clm.Certificate {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return clm.Certificate{
		SerialNumber: serial,
		IssuerDN:     managementCA,
		SubjectDN:    "CN=" + serial + ".example.com",
		NotBefore:    now,
		NotAfter:     now.Add(30 * 24 * time.Hour),
		Status:       status,
		Certificate:  []byte("cert"),
		LastSyncedAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func cleanCerts(t *testing.T) {
	_, err := db.Exec("DELETE FROM certs")
	require.Nil(t, err)
}

func TestSaveCert(t *testing.T) {
	t.Cleanup(func() { cleanCerts(t) })
	repo := postgres.NewCertificateRepository(database)

	cert := newCert("1A", clm.StatusActive)
	otherIssuer := newCert("1A", clm.StatusRevoked)
	otherIssuer.IssuerDN = "CN=OtherCA"

	cases := []struct {
		desc string
		cert clm.Certificate
		err  error
	}{
		{
			desc: "successful save",
			cert: cert,
			err:  nil,
		},
		{
			desc: "save duplicate serial",
			cert: cert,
			err:  clm.ErrConflict,
		},
		{
			desc: "save same serial from another issuer",
			cert: otherIssuer,
			err:  nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := repo.Save(context.Background(), tc.cert)
			assert.True(t, errors.Contains(err, tc.err), "expected %v, got %v", tc.err, err)
		})
	}
}

func TestRetrieveUpdateCert(t *testing.T) {
	t.Cleanup(func() { cleanCerts(t) })
	repo := postgres.NewCertificateRepository(database)

	cert := newCert("2B", clm.StatusActive)
	require.Nil(t, repo.Save(context.Background(), cert))

	cases := []struct {
		desc   string
		issuer string
		serial string
		err    error
	}{
		{
			desc:   "successful retrieve",
			issuer: managementCA,
			serial: cert.SerialNumber,
			err:    nil,
		},
		{
			desc:   "retrieve unknown serial",
			issuer: managementCA,
			serial: "FFFF",
			err:    clm.ErrNotFound,
		},
		{
			desc:   "retrieve with another issuer",
			issuer: "CN=OtherCA",
			serial: cert.SerialNumber,
			err:    clm.ErrNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := repo.Retrieve(context.Background(), tc.issuer, tc.serial)
			assert.True(t, errors.Contains(err, tc.err), "expected %v, got %v", tc.err, err)
			if tc.err == nil {
				assert.Equal(t, cert.SubjectDN, got.SubjectDN)
				assert.True(t, cert.NotAfter.Equal(got.NotAfter))
			}
		})
	}

	archived := time.Now().UTC()
	cert.Status = clm.StatusRevoked
	cert.ArchivedAt = &archived
	require.Nil(t, repo.Update(context.Background(), cert))

	got, err := repo.Retrieve(context.Background(), managementCA, cert.SerialNumber)
	require.Nil(t, err)
	assert.Equal(t, clm.StatusRevoked, got.Status)
	assert.True(t, got.Archived())

	other := newCert("2B", clm.StatusActive)
	other.IssuerDN = "CN=OtherCA"
	other.Imported = true
	require.Nil(t, repo.Save(context.Background(), other))

	held, err := repo.RetrieveBySerial(context.Background(), "2B")
	require.Nil(t, err)
	require.Len(t, held, 2)
	got, err = repo.Retrieve(context.Background(), "CN=OtherCA", "2B")
	require.Nil(t, err)
	assert.Equal(t, clm.StatusActive, got.Status)
	assert.True(t, got.Imported)

	err = repo.Update(context.Background(), newCert("FFFF", clm.StatusActive))
	assert.True(t, errors.Contains(err, clm.ErrNotFound))
}

func TestListCerts(t *testing.T) {
	t.Cleanup(func() { cleanCerts(t) })
	repo := postgres.NewCertificateRepository(database)

	for i := 0; i < 6; i++ {
		cert := newCert(fmt.Sprintf("3%X", i), clm.StatusActive)
		cert.CreatedAt = cert.CreatedAt.Add(time.Duration(i) * time.Second)
		if i%3 == 0 {
			cert.Status = clm.StatusExpired
		}
		if i == 5 {
			cert.LastSyncedAt = cert.LastSyncedAt.Add(-time.Hour)
		}
		require.Nil(t, repo.Save(context.Background(), cert))
	}

	cases := []struct {
		desc  string
		pm    clm.PageMetadata
		total uint64
		size  int
	}{
		{
			desc:  "list all",
			pm:    clm.PageMetadata{},
			total: 6,
			size:  6,
		},
		{
			desc:  "list page",
			pm:    clm.PageMetadata{Offset: 1, Limit: 2},
			total: 6,
			size:  2,
		},
		{
			desc:  "list expired",
			pm:    clm.PageMetadata{Status: clm.StatusExpired},
			total: 2,
			size:  2,
		},
		{
			desc:  "list expiring before now",
			pm:    clm.PageMetadata{ExpiresBefore: time.Now()},
			total: 0,
			size:  0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			page, err := repo.List(context.Background(), tc.pm)
			require.Nil(t, err)
			assert.Equal(t, tc.total, page.Total)
			assert.Len(t, page.Certificates, tc.size)
		})
	}

	stale, err := repo.ListStale(context.Background(), time.Now().Add(-30*time.Minute), 10)
	require.Nil(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "35", stale[0].SerialNumber)
}
