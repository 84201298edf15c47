// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package postgres connects to PostgreSQL and applies migrations.
package postgres

import (
	"fmt"

	"github.com/absmach/clm/pkg/errors"
	_ "github.com/jackc/pgx/v5/stdlib" // required for SQL access
	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
)

var (
	errConfig    = errors.New("failed to load postgres configuration")
	errConnect   = errors.New("failed to connect to postgres server")
	errMigration = errors.New("failed to apply migrations")
)

// Config defines the options used to create Postgres connection.
type Config struct {
	Host        string `env:"HOST"           envDefault:"localhost"`
	Port        string `env:"PORT"           envDefault:"5432"`
	User        string `env:"USER"           envDefault:"clm"`
	Pass        string `env:"PASS"           envDefault:"clm"`
	Name        string `env:"NAME"           envDefault:"clm"`
	SSLMode     string `env:"SSL_MODE"       envDefault:"disable"`
	SSLCert     string `env:"SSL_CERT"       envDefault:""`
	SSLKey      string `env:"SSL_KEY"        envDefault:""`
	SSLRootCert string `env:"SSL_ROOT_CERT"  envDefault:""`
}

func (cfg Config) url() string {
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s password=%s sslmode=%s sslcert=%s sslkey=%s sslrootcert=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Name, cfg.Pass, cfg.SSLMode, cfg.SSLCert, cfg.SSLKey, cfg.SSLRootCert)
}

// Setup creates a connection to the database and applies migrations.
func Setup(cfg Config, migrations migrate.MemoryMigrationSource) (*sqlx.DB, error) {
	db, err := Connect(cfg)
	if err != nil {
		return nil, err
	}

	if _, err := migrate.Exec(db.DB, "postgres", migrations, migrate.Up); err != nil {
		db.Close()
		return nil, errors.Wrap(errMigration, err)
	}

	return db, nil
}

// Connect creates a connection to the PostgreSQL instance.
func Connect(cfg Config) (*sqlx.DB, error) {
	if cfg.Host == "" || cfg.Name == "" {
		return nil, errConfig
	}
	db, err := sqlx.Open("pgx", cfg.url())
	if err != nil {
		return nil, errors.Wrap(errConnect, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(errConnect, err)
	}

	return db, nil
}
