// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"slices"
	"time"
)

// Categories lists the accepted expense categories in display order.
var Categories = []string{
	"Rent",
	"Utilities",
	"Groceries",
	"Transportation",
	"Entertainment",
	"Dining Out",
	"Healthcare",
	"Education",
	"Other",
}

// IsCategory reports whether name is one of Categories (case-sensitive).
func IsCategory(name string) bool {
	return slices.Contains(Categories, name)
}

// Expense is a single spending record owned by a user. Amounts are stored in
// cents.
type Expense struct { //nolint:govet // fieldalignment not critical for models
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Category    string    `db:"category" json:"category"`
	AmountCents int64     `db:"amount_cents" json:"amount_cents"`
	SpentOn     time.Time `db:"spent_on" json:"spent_on"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
