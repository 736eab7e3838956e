// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/pennywise/pennywise/internal/models"
	"github.com/google/uuid"
)

// CreateExpenses inserts all expenses in a single transaction.
func (r *Repository) CreateExpenses(ctx context.Context, expenses []*models.Expense) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := tx.Rebind(`INSERT INTO expenses (id, user_id, category, amount_cents, spent_on, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	now := dbTime(time.Now())
	for i, e := range expenses {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		e.CreatedAt = now
		e.SpentOn = dbTime(e.SpentOn)
		if _, err := tx.ExecContext(ctx, query, e.ID, e.UserID, e.Category, e.AmountCents, e.SpentOn, e.CreatedAt); err != nil {
			return fmt.Errorf("insert expense %d: %w", i, wrapError(err))
		}
	}

	return tx.Commit()
}

// ListExpensesByUser returns a user's expenses, most recent first.
func (r *Repository) ListExpensesByUser(ctx context.Context, userID string) ([]models.Expense, error) {
	expenses := []models.Expense{}
	err := r.db.SelectContext(ctx, &expenses, r.db.Rebind(
		`SELECT id, user_id, category, amount_cents, spent_on, created_at
		 FROM expenses WHERE user_id = ? ORDER BY spent_on DESC, created_at DESC`), userID)
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

// DeleteExpense deletes an expense by ID, ensuring it belongs to the given user.
func (r *Repository) DeleteExpense(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM expenses WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}
