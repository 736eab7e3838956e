// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/pennywise/pennywise/internal/database"
	"codeberg.org/pennywise/pennywise/internal/repository"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

// withDB connects to the configured database without migrating it and hands
// the connection to fn.
func withDB(cmd *cli.Command, fn func(db *sqlx.DB) error) error {
	db, err := database.Connect(cmd.String("database-dsn"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()
	return fn(db)
}

func purgeResetTokensCommand() *cli.Command {
	return &cli.Command{
		Name:  "purge-reset-tokens",
		Usage: "Clear expired password reset tokens",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withDB(cmd, func(db *sqlx.DB) error {
				if err := database.RunMigrations(ctx, db); err != nil {
					return err
				}
				n, err := repository.New(db).ClearExpiredResetTokens(ctx, time.Now())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.Root().Writer, "cleared %d expired reset tokens\n", n)
				return err
			})
		},
	}
}
