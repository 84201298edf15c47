// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package postgres contains the PostgreSQL certificate and operation repositories.
package postgres

import (
	_ "github.com/jackc/pgx/v5/stdlib" // required for SQL access
	migrate "github.com/rubenv/sql-migrate"
)

func Migration() *migrate.MemoryMigrationSource {
	return &migrate.MemoryMigrationSource{
		Migrations: []*migrate.Migration{
			{
				Id: "clm_certs_1",
				Up: []string{
					`CREATE TABLE IF NOT EXISTS certs (
						serial_number        VARCHAR(64) NOT NULL,
						issuer_dn            TEXT NOT NULL,
						subject_dn           TEXT,
						not_before           TIMESTAMPTZ,
						not_after            TIMESTAMPTZ,
						status               VARCHAR(32) NOT NULL,
						fingerprint          VARCHAR(64),
						profile              VARCHAR(64),
						certificate          BYTEA,
						key                  BYTEA,
						superseded_by        VARCHAR(64),
						remediation_required BOOLEAN NOT NULL DEFAULT FALSE,
						imported             BOOLEAN NOT NULL DEFAULT FALSE,
						last_synced_at       TIMESTAMPTZ,
						archived_at          TIMESTAMPTZ,
						created_at           TIMESTAMPTZ NOT NULL,
						updated_at           TIMESTAMPTZ NOT NULL,
						PRIMARY KEY (issuer_dn, serial_number)
					)`,
					`CREATE INDEX IF NOT EXISTS certs_serial_idx ON certs (serial_number)`,
					`CREATE INDEX IF NOT EXISTS certs_not_after_idx ON certs (not_after)`,
					`CREATE INDEX IF NOT EXISTS certs_last_synced_idx ON certs (last_synced_at) WHERE archived_at IS NULL`,
				},
				Down: []string{
					"DROP TABLE certs",
				},
			},
			{
				Id: "clm_operations_1",
				Up: []string{
					`CREATE TABLE IF NOT EXISTS operations (
						id                VARCHAR(36) PRIMARY KEY,
						kind              VARCHAR(16) NOT NULL,
						target_serial     VARCHAR(64) NOT NULL DEFAULT '',
						target_issuer     TEXT NOT NULL DEFAULT '',
						params            JSONB,
						state             VARCHAR(32) NOT NULL,
						phase             VARCHAR(16) NOT NULL,
						idempotency_token VARCHAR(254) UNIQUE NOT NULL,
						attempts          INTEGER NOT NULL DEFAULT 0,
						last_error        TEXT NOT NULL DEFAULT '',
						error_kind        VARCHAR(32) NOT NULL DEFAULT '',
						result_serial     VARCHAR(64) NOT NULL DEFAULT '',
						result_issuer     TEXT NOT NULL DEFAULT '',
						csr               BYTEA,
						key               BYTEA,
						cancel_requested  BOOLEAN NOT NULL DEFAULT FALSE,
						awaiting_since    TIMESTAMPTZ,
						created_at        TIMESTAMPTZ NOT NULL,
						updated_at        TIMESTAMPTZ NOT NULL
					)`,
					`CREATE UNIQUE INDEX IF NOT EXISTS operations_active_target_idx ON operations (target_issuer, target_serial)
						WHERE target_serial <> '' AND state NOT IN ('completed', 'failed', 'compensated')`,
				},
				Down: []string{
					"DROP TABLE operations",
				},
			},
		},
	}
}
