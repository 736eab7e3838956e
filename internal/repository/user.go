// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"time"

	"codeberg.org/pennywise/pennywise/internal/models"
	"github.com/google/uuid"
)

const userColumns = `id, name, email, password_hash, reset_token, reset_token_expiry, created_at, updated_at`

// CreateUser inserts a new user, assigning ID and timestamps when unset.
// A taken email yields ErrDuplicate.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.CreatedAt = dbTime(user.CreatedAt)
	user.UpdatedAt = user.CreatedAt

	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO users (id, name, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`),
		user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	return wrapError(err)
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`), email)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByResetToken retrieves the user holding the given reset token hash,
// regardless of its expiry.
func (r *Repository) GetUserByResetToken(ctx context.Context, tokenHash string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE reset_token = ?`), tokenHash)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetResetToken stores a reset token hash and expiry, replacing any pending one.
func (r *Repository) SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE users SET reset_token = ?, reset_token_expiry = ?, updated_at = ? WHERE id = ?`),
		tokenHash, dbTime(expiresAt), dbTime(time.Now()), userID)
	if err != nil {
		return wrapError(err)
	}
	return requireRow(res)
}

// ResetPasswordWithToken replaces the password hash and clears the reset
// fields in one statement, but only while the token is still valid at now.
// A missing, consumed or expired token yields sql.ErrNoRows.
func (r *Repository) ResetPasswordWithToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE users
		 SET password_hash = ?, reset_token = NULL, reset_token_expiry = NULL, updated_at = ?
		 WHERE reset_token = ? AND reset_token_expiry > ?`),
		passwordHash, dbTime(now), tokenHash, dbTime(now))
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ClearExpiredResetTokens removes reset tokens that expired before now and
// returns how many were cleared.
func (r *Repository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE users SET reset_token = NULL, reset_token_expiry = NULL
		 WHERE reset_token IS NOT NULL AND reset_token_expiry <= ?`),
		dbTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountUsers returns the total number of users
func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM users`); err != nil {
		return 0, err
	}
	return count, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
