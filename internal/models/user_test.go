// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"codeberg.org/pennywise/pennywise/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_JSONHidesSecrets(t *testing.T) {
	token := "abc"
	expiry := time.Now().Add(time.Hour)
	user := &models.User{
		ID:               "u-1",
		Name:             "Ann",
		Email:            "ann@example.com",
		PasswordHash:     "$2a$10$hash",
		ResetToken:       &token,
		ResetTokenExpiry: &expiry,
	}

	data, err := json.Marshal(user)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "password")
	assert.NotContains(t, string(data), "reset")
	assert.NotContains(t, string(data), "$2a$10$hash")
}

func TestUser_Public(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	user := &models.User{ID: "u-1", Name: "Ann", Email: "ann@example.com", PasswordHash: "h", CreatedAt: created}

	pub := user.Public()

	assert.Equal(t, &models.PublicUser{ID: "u-1", Name: "Ann", Email: "ann@example.com", CreatedAt: created}, pub)
}

func TestUser_ResetPending(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	token := "hash"

	t.Run("no token", func(t *testing.T) {
		assert.False(t, (&models.User{}).ResetPending(now))
	})

	t.Run("valid token", func(t *testing.T) {
		expiry := now.Add(time.Minute)
		assert.True(t, (&models.User{ResetToken: &token, ResetTokenExpiry: &expiry}).ResetPending(now))
	})

	t.Run("expiry equal to now is expired", func(t *testing.T) {
		expiry := now
		assert.False(t, (&models.User{ResetToken: &token, ResetTokenExpiry: &expiry}).ResetPending(now))
	})
}

func TestIsCategory(t *testing.T) {
	assert.True(t, models.IsCategory("Dining Out"))
	assert.True(t, models.IsCategory("Other"))
	assert.False(t, models.IsCategory("dining out"))
	assert.False(t, models.IsCategory("Gambling"))
	assert.Len(t, models.Categories, 9)
}
