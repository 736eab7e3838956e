// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/pennywise/pennywise/internal/database"
	"codeberg.org/pennywise/pennywise/internal/models"
	"codeberg.org/pennywise/pennywise/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, dsn string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out

	argv := append([]string{"pennywise", "--database-dsn", dsn}, args...)
	require.NoError(t, cmd.Run(context.Background(), argv))
	return out.String()
}

func TestPurgeResetTokensCommand(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "pennywise.db")

	db, err := database.Open(dsn)
	require.NoError(t, err)
	repo := repository.New(db)
	ctx := context.Background()

	user := &models.User{Name: "Ann", Email: "ann@x.com", PasswordHash: "x"}
	require.NoError(t, repo.CreateUser(ctx, user))
	require.NoError(t, repo.SetResetToken(ctx, user.ID, "hash", time.Now().Add(-time.Minute)))
	require.NoError(t, db.Close())

	assert.Equal(t, "cleared 1 expired reset tokens\n", run(t, dsn, "purge-reset-tokens"))
	assert.Equal(t, "cleared 0 expired reset tokens\n", run(t, dsn, "purge-reset-tokens"))
}

func TestNewCommand(t *testing.T) {
	cmd := newCommand()

	assert.Equal(t, "pennywise", cmd.Name)
	assert.Nil(t, cmd.Command("migrate"))
	assert.NotNil(t, cmd.Command("purge-reset-tokens"))
}
