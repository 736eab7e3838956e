// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth_test

import (
	"strings"
	"testing"

	"codeberg.org/pennywise/pennywise/internal/services/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_DefaultCost(t *testing.T) {
	hasher := auth.NewBcryptHasher()

	hash, err := hasher.Hash("Secret1!")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 10, cost)
}

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	hasher := auth.NewBcryptHasherWithCost(bcrypt.MinCost)

	hash, err := hasher.Hash("Secret1!")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret1!", hash)

	ok, err := hasher.Verify("Secret1!", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify("Secret2!", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_Salted(t *testing.T) {
	hasher := auth.NewBcryptHasherWithCost(bcrypt.MinCost)

	first, err := hasher.Hash("Secret1!")
	require.NoError(t, err)
	second, err := hasher.Hash("Secret1!")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestBcryptHasher_EmptyPassword(t *testing.T) {
	_, err := auth.NewBcryptHasher().Hash("")

	assert.ErrorIs(t, err, auth.ErrEmptyPassword)
}

func TestBcryptHasher_MalformedHash(t *testing.T) {
	ok, err := auth.NewBcryptHasher().Verify("Secret1!", "not-a-bcrypt-hash")

	assert.Error(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_TooLong(t *testing.T) {
	_, err := auth.NewBcryptHasherWithCost(bcrypt.MinCost).Hash(strings.Repeat("a", 73))

	assert.ErrorIs(t, err, auth.ErrValidation)
	var fieldErr *auth.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "password", fieldErr.Field)
}
