// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"codeberg.org/pennywise/pennywise/internal/auth"
	"codeberg.org/pennywise/pennywise/internal/services/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "text")

	logger.Debug("login_failed", "reason", "user_not_found")

	assert.Contains(t, buf.String(), "login_failed")
	assert.Contains(t, buf.String(), "user_not_found")
}

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json").With("component", "test")

	ctx := auth.WithRequestID(context.Background(), "req-42")
	ctx = auth.WithUser(ctx, &session.Claims{ID: "user-1"})
	logger.InfoContext(ctx, "login_success")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "user-1", entry["session_user_id"])
	assert.Equal(t, "test", entry["component"])
}
