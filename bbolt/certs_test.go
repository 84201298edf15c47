// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package bbolt_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/bbolt"
	"github.com/absmach/clm/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const managementCA = "CN=ManagementCA"

func testCert(serial string, status clm.Status, createdAt time.Time) clm.Certificate {
	return clm.Certificate{
		SerialNumber: serial,
		IssuerDN:     managementCA,
		SubjectDN:    "CN=" + serial,
		NotBefore:    createdAt,
		NotAfter:     createdAt.Add(90 * 24 * time.Hour),
		Status:       status,
		LastSyncedAt: createdAt,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func TestCertsSave(t *testing.T) {
	repo := bbolt.NewCertificateRepository(newTestDB(t))
	cert := testCert("0A1B", clm.StatusActive, time.Now().UTC())
	otherIssuer := cert
	otherIssuer.IssuerDN = "CN=OtherCA"

	cases := []struct {
		desc string
		cert clm.Certificate
		err  error
	}{
		{
			desc: "save new certificate",
			cert: cert,
			err:  nil,
		},
		{
			desc: "save existing certificate",
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
			assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("expected %v got %v", tc.err, err))
		})
	}
}

func TestCertsRetrieveUpdate(t *testing.T) {
	repo := bbolt.NewCertificateRepository(newTestDB(t))
	cert := testCert("0A1B", clm.StatusActive, time.Now().UTC().Truncate(time.Second))
	require.Nil(t, repo.Save(context.Background(), cert))

	got, err := repo.Retrieve(context.Background(), managementCA, cert.SerialNumber)
	require.Nil(t, err)
	assert.Equal(t, cert.SubjectDN, got.SubjectDN)
	assert.True(t, cert.NotAfter.Equal(got.NotAfter))

	_, err = repo.Retrieve(context.Background(), managementCA, "FFFF")
	assert.True(t, errors.Contains(err, clm.ErrNotFound))
	_, err = repo.Retrieve(context.Background(), "CN=OtherCA", cert.SerialNumber)
	assert.True(t, errors.Contains(err, clm.ErrNotFound))

	got.Status = clm.StatusRevoked
	require.Nil(t, repo.Update(context.Background(), got))
	got, err = repo.Retrieve(context.Background(), managementCA, cert.SerialNumber)
	require.Nil(t, err)
	assert.Equal(t, clm.StatusRevoked, got.Status)

	err = repo.Update(context.Background(), testCert("FFFF", clm.StatusActive, time.Now()))
	assert.True(t, errors.Contains(err, clm.ErrNotFound))
}

func TestCertsRetrieveBySerial(t *testing.T) {
	repo := bbolt.NewCertificateRepository(newTestDB(t))
	now := time.Now().UTC()

	first := testCert("01", clm.StatusActive, now)
	second := testCert("01", clm.StatusRevoked, now)
	second.IssuerDN = "CN=OtherCA"
	for _, c := range []clm.Certificate{first, second, testCert("02", clm.StatusActive, now)} {
		require.Nil(t, repo.Save(context.Background(), c))
	}

	cases := []struct {
		desc    string
		serial  string
		issuers []string
	}{
		{desc: "serial held by two issuers", serial: "01", issuers: []string{managementCA, "CN=OtherCA"}},
		{desc: "serial held by one issuer", serial: "02", issuers: []string{managementCA}},
		{desc: "unknown serial", serial: "03", issuers: []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			certs, err := repo.RetrieveBySerial(context.Background(), tc.serial)
			require.Nil(t, err)
			issuers := []string{}
			for _, c := range certs {
				issuers = append(issuers, c.IssuerDN)
			}
			assert.ElementsMatch(t, tc.issuers, issuers)
		})
	}
}

func TestCertsList(t *testing.T) {
	repo := bbolt.NewCertificateRepository(newTestDB(t))
	now := time.Now().UTC()
	archived := now.Add(-time.Hour)

	for i := 0; i < 10; i++ {
		status := clm.StatusActive
		if i%2 == 0 {
			status = clm.StatusRevoked
		}
		cert := testCert(fmt.Sprintf("%02X", i), status, now.Add(time.Duration(i)*time.Minute))
		if i == 9 {
			cert.ArchivedAt = &archived
		}
		if i == 3 {
			cert.RemediationRequired = true
		}
		require.Nil(t, repo.Save(context.Background(), cert))
	}

	cases := []struct {
		desc  string
		pm    clm.PageMetadata
		total uint64
		size  int
		first string
	}{
		{
			desc:  "list all unarchived",
			pm:    clm.PageMetadata{},
			total: 9,
			size:  9,
			first: "08",
		},
		{
			desc:  "list with archived",
			pm:    clm.PageMetadata{IncludeArchived: true},
			total: 10,
			size:  10,
			first: "09",
		},
		{
			desc:  "list page",
			pm:    clm.PageMetadata{Offset: 2, Limit: 3},
			total: 9,
			size:  3,
			first: "06",
		},
		{
			desc:  "list by status",
			pm:    clm.PageMetadata{Status: clm.StatusActive},
			total: 4,
			size:  4,
			first: "07",
		},
		{
			desc:  "list flagged",
			pm:    clm.PageMetadata{Remediation: true},
			total: 1,
			size:  1,
			first: "03",
		},
		{
			desc:  "list offset past end",
			pm:    clm.PageMetadata{Offset: 20, Limit: 5},
			total: 9,
			size:  0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			page, err := repo.List(context.Background(), tc.pm)
			require.Nil(t, err)
			assert.Equal(t, tc.total, page.Total)
			assert.Len(t, page.Certificates, tc.size)
			if tc.size > 0 {
				assert.Equal(t, tc.first, page.Certificates[0].SerialNumber)
			}
		})
	}
}

func TestCertsListStale(t *testing.T) {
	repo := bbolt.NewCertificateRepository(newTestDB(t))
	now := time.Now().UTC()

	fresh := testCert("01", clm.StatusActive, now)
	stale := testCert("02", clm.StatusActive, now.Add(-10*time.Minute))
	older := testCert("03", clm.StatusExpired, now.Add(-20*time.Minute))
	revoked := testCert("04", clm.StatusRevoked, now.Add(-30*time.Minute))
	for _, c := range []clm.Certificate{fresh, stale, older, revoked} {
		require.Nil(t, repo.Save(context.Background(), c))
	}

	certs, err := repo.ListStale(context.Background(), now.Add(-5*time.Minute), 0)
	require.Nil(t, err)
	require.Len(t, certs, 2)
	assert.Equal(t, "03", certs[0].SerialNumber)
	assert.Equal(t, "02", certs[1].SerialNumber)

	certs, err = repo.ListStale(context.Background(), now.Add(-5*time.Minute), 1)
	require.Nil(t, err)
	assert.Len(t, certs, 1)
}
