// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"database/sql"
	"errors"
	"math"
	"net/http"
	"time"

	"codeberg.org/pennywise/pennywise/internal/auth"
	"codeberg.org/pennywise/pennywise/internal/i18n"
	"codeberg.org/pennywise/pennywise/internal/models"
	"github.com/labstack/echo/v4"
)

// ExpenseResponse is an expense as returned to clients.
type ExpenseResponse struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Date      string    `json:"date"`
	Amount    float64   `json:"amount"`
}

// ExpenseListResponse is the body of GET /expenses.
type ExpenseListResponse struct {
	Data    []ExpenseResponse `json:"data"`
	Success bool              `json:"success"`
}

// CreateExpensesResponse is the body of POST /expenses.
type CreateExpensesResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
	Success bool   `json:"success"`
}

func toExpenseResponse(e *models.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:        e.ID,
		Category:  e.Category,
		Amount:    float64(e.AmountCents) / 100,
		Date:      e.SpentOn.Format(time.DateOnly),
		CreatedAt: e.CreatedAt,
	}
}

// CreateExpenses stores a batch of expenses for the signed-in user.
func (h *Handlers) CreateExpenses(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.GetUser(ctx)
	if user == nil {
		return httpError(ctx, http.StatusUnauthorized, "error_unauthorized", nil)
	}

	var req CreateExpensesRequest
	if err := c.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := c.Validate(&req); err != nil {
		return validationError(ctx, err)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	expenses := make([]*models.Expense, 0, len(req.Expenses))
	for _, in := range req.Expenses {
		spentOn := today
		if in.Date != "" {
			// Format is checked by the validator.
			spentOn, _ = time.Parse(time.DateOnly, in.Date)
		}
		cents := int64(math.Round(in.Amount * 100))
		if cents <= 0 {
			return httpError(ctx, http.StatusBadRequest, "error_field_invalid", map[string]any{"Field": "amount"})
		}
		expenses = append(expenses, &models.Expense{
			UserID:      user.ID,
			Category:    in.Category,
			AmountCents: cents,
			SpentOn:     spentOn,
		})
	}

	if err := h.repo.CreateExpenses(ctx, expenses); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}

	return c.JSON(http.StatusCreated, CreateExpensesResponse{
		Success: true,
		Count:   len(expenses),
		Message: i18n.TPlural(ctx, "message_expenses_saved", len(expenses)),
	})
}

// ListExpenses returns the signed-in user's expenses, newest first.
func (h *Handlers) ListExpenses(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.GetUser(ctx)
	if user == nil {
		return httpError(ctx, http.StatusUnauthorized, "error_unauthorized", nil)
	}

	expenses, err := h.repo.ListExpensesByUser(ctx, user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}

	data := make([]ExpenseResponse, len(expenses))
	for i := range expenses {
		data[i] = toExpenseResponse(&expenses[i])
	}
	return c.JSON(http.StatusOK, ExpenseListResponse{Success: true, Data: data})
}

// DeleteExpense removes one of the signed-in user's expenses.
func (h *Handlers) DeleteExpense(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.GetUser(ctx)
	if user == nil {
		return httpError(ctx, http.StatusUnauthorized, "error_unauthorized", nil)
	}

	err := h.repo.DeleteExpense(ctx, c.Param("id"), user.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return httpError(ctx, http.StatusNotFound, "error_expense_not_found", nil)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}

	return c.NoContent(http.StatusNoContent)
}
