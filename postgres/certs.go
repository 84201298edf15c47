// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/absmach/clm"
	pgclient "github.com/absmach/clm/internal/postgres"
	"github.com/absmach/clm/pkg/errors"
)

type certsRepo struct {
	db pgclient.Database
}

var _ clm.CertificateRepository = (*certsRepo)(nil)

func NewCertificateRepository(db pgclient.Database) clm.CertificateRepository {
	return certsRepo{
		db: db,
	}
}

const certColumns = `serial_number, issuer_dn, subject_dn, not_before, not_after, status, fingerprint,
	profile, certificate, key, superseded_by, remediation_required, imported, last_synced_at,
	archived_at, created_at, updated_at`

func (repo certsRepo) Save(ctx context.Context, cert clm.Certificate) error {
	q := `INSERT INTO certs (` + certColumns + `)
		VALUES (:serial_number, :issuer_dn, :subject_dn, :not_before, :not_after, :status, :fingerprint,
		:profile, :certificate, :key, :superseded_by, :remediation_required, :imported, :last_synced_at,
		:archived_at, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toDBCert(cert)); err != nil {
		return handleError(clm.ErrCreateEntity, err)
	}
	return nil
}

func (repo certsRepo) Retrieve(ctx context.Context, issuerDN, serialNumber string) (clm.Certificate, error) {
	q := `SELECT ` + certColumns + ` FROM certs WHERE issuer_dn = $1 AND serial_number = $2`
	var dbc dbCert
	if err := repo.db.QueryRowxContext(ctx, q, issuerDN, serialNumber).StructScan(&dbc); err != nil {
		if err == sql.ErrNoRows {
			return clm.Certificate{}, errors.Wrap(clm.ErrNotFound, err)
		}
		return clm.Certificate{}, handleError(clm.ErrViewEntity, err)
	}
	return toCert(dbc), nil
}

func (repo certsRepo) RetrieveBySerial(ctx context.Context, serialNumber string) ([]clm.Certificate, error) {
	q := `SELECT ` + certColumns + ` FROM certs WHERE serial_number = :serial_number ORDER BY created_at`
	return repo.query(ctx, q, map[string]any{"serial_number": serialNumber})
}

func (repo certsRepo) Update(ctx context.Context, cert clm.Certificate) error {
	q := `UPDATE certs SET subject_dn = :subject_dn, not_before = :not_before,
		not_after = :not_after, status = :status, fingerprint = :fingerprint, profile = :profile,
		certificate = :certificate, key = :key, superseded_by = :superseded_by,
		remediation_required = :remediation_required, imported = :imported,
		last_synced_at = :last_synced_at, archived_at = :archived_at, updated_at = :updated_at
		WHERE issuer_dn = :issuer_dn AND serial_number = :serial_number`
	result, err := repo.db.NamedExecContext(ctx, q, toDBCert(cert))
	if err != nil {
		return handleError(clm.ErrUpdateEntity, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.Wrap(clm.ErrNotFound, errors.New(cert.SerialNumber))
	}
	return nil
}

func (repo certsRepo) List(ctx context.Context, pm clm.PageMetadata) (clm.CertificatePage, error) {
	where, params := certsQuery(pm)

	cq := `SELECT COUNT(*) FROM certs` + where
	total, err := total(ctx, repo.db, cq, params)
	if err != nil {
		return clm.CertificatePage{}, handleError(clm.ErrViewEntity, err)
	}

	q := `SELECT ` + certColumns + ` FROM certs` + where + ` ORDER BY created_at DESC, serial_number, issuer_dn` + pageQuery(pm.Offset, pm.Limit)
	certs, err := repo.query(ctx, q, params)
	if err != nil {
		return clm.CertificatePage{}, err
	}

	pm.Total = total
	return clm.CertificatePage{
		Certificates: certs,
		PageMetadata: pm,
	}, nil
}

func (repo certsRepo) ListStale(ctx context.Context, syncedBefore time.Time, limit uint64) ([]clm.Certificate, error) {
	q := `SELECT ` + certColumns + ` FROM certs
		WHERE archived_at IS NULL AND status <> 'revoked' AND last_synced_at < :synced_before
		ORDER BY last_synced_at` + pageQuery(0, limit)
	return repo.query(ctx, q, map[string]any{"synced_before": syncedBefore})
}

func (repo certsRepo) query(ctx context.Context, q string, params map[string]any) ([]clm.Certificate, error) {
	rows, err := repo.db.NamedQueryContext(ctx, q, params)
	if err != nil {
		return nil, handleError(clm.ErrViewEntity, err)
	}
	defer rows.Close()

	certs := []clm.Certificate{}
	for rows.Next() {
		var dbc dbCert
		if err := rows.StructScan(&dbc); err != nil {
			return nil, handleError(clm.ErrViewEntity, err)
		}
		certs = append(certs, toCert(dbc))
	}
	if err := rows.Err(); err != nil {
		return nil, handleError(clm.ErrViewEntity, err)
	}

	return certs, nil
}

func certsQuery(pm clm.PageMetadata) (string, map[string]any) {
	var conds []string
	params := map[string]any{}
	if !pm.IncludeArchived {
		conds = append(conds, "archived_at IS NULL")
	}
	if pm.Status != "" {
		conds = append(conds, "status = :status")
		params["status"] = string(pm.Status)
	}
	if !pm.ExpiresBefore.IsZero() {
		conds = append(conds, "not_after < :expires_before")
		params["expires_before"] = pm.ExpiresBefore
	}
	if pm.Remediation {
		conds = append(conds, "remediation_required")
	}
	return whereClause(conds), params
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func pageQuery(offset, limit uint64) string {
	q := ""
	if limit > 0 {
		q = fmt.Sprintf(" LIMIT %d", limit)
	}
	if offset > 0 {
		q += fmt.Sprintf(" OFFSET %d", offset)
	}
	return q
}

func total(ctx context.Context, db pgclient.Database, query string, params any) (uint64, error) {
	rows, err := db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	var total uint64
	if rows.Next() {
		if err := rows.Scan(&total); err != nil {
			return 0, err
		}
	}
	return total, rows.Err()
}

type dbCert struct {
	SerialNumber        string         `db:"serial_number"`
	IssuerDN            string         `db:"issuer_dn"`
	SubjectDN           sql.NullString `db:"subject_dn"`
	NotBefore           sql.NullTime   `db:"not_before"`
	NotAfter            sql.NullTime   `db:"not_after"`
	Status              string         `db:"status"`
	Fingerprint         sql.NullString `db:"fingerprint"`
	Profile             sql.NullString `db:"profile"`
	Certificate         []byte         `db:"certificate"`
	Key                 []byte         `db:"key"`
	SupersededBy        sql.NullString `db:"superseded_by"`
	RemediationRequired bool           `db:"remediation_required"`
	Imported            bool           `db:"imported"`
	LastSyncedAt        sql.NullTime   `db:"last_synced_at"`
	ArchivedAt          sql.NullTime   `db:"archived_at"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

func toDBCert(c clm.Certificate) dbCert {
	dbc := dbCert{
		SerialNumber:        c.SerialNumber,
		IssuerDN:            c.IssuerDN,
		SubjectDN:           nullString(c.SubjectDN),
		NotBefore:           nullTime(c.NotBefore),
		NotAfter:            nullTime(c.NotAfter),
		Status:              string(c.Status),
		Fingerprint:         nullString(c.Fingerprint),
		Profile:             nullString(c.Profile),
		Certificate:         c.Certificate,
		Key:                 c.Key,
		SupersededBy:        nullString(c.SupersededBy),
		RemediationRequired: c.RemediationRequired,
		Imported:            c.Imported,
		LastSyncedAt:        nullTime(c.LastSyncedAt),
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
	if c.ArchivedAt != nil {
		dbc.ArchivedAt = nullTime(*c.ArchivedAt)
	}
	return dbc
}

func toCert(dbc dbCert) clm.Certificate {
	c := clm.Certificate{
		SerialNumber:        dbc.SerialNumber,
		IssuerDN:            dbc.IssuerDN,
		SubjectDN:           dbc.SubjectDN.String,
		NotBefore:           dbc.NotBefore.Time.UTC(),
		NotAfter:            dbc.NotAfter.Time.UTC(),
		Status:              clm.Status(dbc.Status),
		Fingerprint:         dbc.Fingerprint.String,
		Profile:             dbc.Profile.String,
		Certificate:         dbc.Certificate,
		Key:                 dbc.Key,
		SupersededBy:        dbc.SupersededBy.String,
		RemediationRequired: dbc.RemediationRequired,
		Imported:            dbc.Imported,
		LastSyncedAt:        dbc.LastSyncedAt.Time.UTC(),
		CreatedAt:           dbc.CreatedAt.UTC(),
		UpdatedAt:           dbc.UpdatedAt.UTC(),
	}
	if dbc.ArchivedAt.Valid {
		t := dbc.ArchivedAt.Time.UTC()
		c.ArchivedAt = &t
	}
	return c
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
