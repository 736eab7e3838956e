// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/vinovest/sqlx"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embedMigrations embed.FS

// prepare points goose at the migration set matching the connection's driver
// and returns the directory to run.
func prepare(db *sqlx.DB) (string, error) {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	dialect, dir := "sqlite3", "migrations/sqlite"
	if db.DriverName() == DriverPostgres {
		dialect, dir = "postgres", "migrations/postgres"
	}

	if err := goose.SetDialect(dialect); err != nil {
		return "", fmt.Errorf("set goose dialect: %w", err)
	}

	return dir, nil
}

// RunMigrations runs all pending goose migrations.
func RunMigrations(ctx context.Context, db *sqlx.DB) error {
	dir, err := prepare(db)
	if err != nil {
		return err
	}
	return goose.UpContext(ctx, db.DB, dir)
}

// MigrationVersion reports the currently applied schema version.
func MigrationVersion(ctx context.Context, db *sqlx.DB) (int64, error) {
	if _, err := prepare(db); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, db.DB)
}
