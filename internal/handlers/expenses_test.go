// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"codeberg.org/pennywise/pennywise/internal/handlers"
	"codeberg.org/pennywise/pennywise/internal/models"
	"codeberg.org/pennywise/pennywise/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = testutil.TestPassword

func newUser(t *testing.T, app *testApp, addr string) *models.User {
	t.Helper()
	return testutil.NewTestUser(t, app.repo, addr)
}

func listExpenses(t *testing.T, app *testApp, token string) []handlers.ExpenseResponse {
	t.Helper()
	rec := app.do(http.MethodGet, "/expenses", "", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handlers.ExpenseListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	return resp.Data
}

func TestCreateExpenses(t *testing.T) {
	app := newTestApp(t)
	newUser(t, app, "ann@x.com")
	token := app.login(t, "ann@x.com", testPassword)

	body := `{"expenses":[
		{"category":"Rent","amount":950,"date":"2020-01-01"},
		{"category":"Dining Out","amount":23.45}
	]}`
	rec := app.do(http.MethodPost, "/expenses", body, token)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp handlers.CreateExpensesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "2 expenses saved", resp.Message)

	data := listExpenses(t, app, token)
	require.Len(t, data, 2)
	assert.Equal(t, "Dining Out", data[0].Category, "newest first")
	assert.InDelta(t, 23.45, data[0].Amount, 0.001)
	assert.Equal(t, time.Now().UTC().Format(time.DateOnly), data[0].Date)
	assert.Equal(t, "Rent", data[1].Category)
	assert.Equal(t, "2020-01-01", data[1].Date)
}

func TestCreateExpenses_Invalid(t *testing.T) {
	app := newTestApp(t)
	newUser(t, app, "ann@x.com")
	token := app.login(t, "ann@x.com", testPassword)

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"empty list", `{"expenses":[]}`, "expenses is invalid"},
		{"unknown category", `{"expenses":[{"category":"Yachts","amount":1}]}`, "Unknown expense category"},
		{"zero amount", `{"expenses":[{"category":"Rent","amount":0}]}`, "amount is invalid"},
		{"negative amount", `{"expenses":[{"category":"Rent","amount":-5}]}`, "amount is invalid"},
		{"rounds to zero", `{"expenses":[{"category":"Rent","amount":0.001}]}`, "amount is invalid"},
		{"bad date", `{"expenses":[{"category":"Rent","amount":5,"date":"01/10/2026"}]}`, "date is invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPost, "/expenses", tt.body, token)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, errorBody(t, rec))
		})
	}

	assert.Empty(t, listExpenses(t, app, token), "nothing is stored")
}

func TestExpenses_RequireAuth(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/expenses", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized,
		app.do(http.MethodPost, "/expenses", `{"expenses":[{"category":"Rent","amount":1}]}`, "").Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodDelete, "/expenses/abc", "", "").Code)
}

func TestExpenses_UserIDComesFromToken(t *testing.T) {
	app := newTestApp(t)
	ann := newUser(t, app, "ann@x.com")
	bob := newUser(t, app, "bob@x.com")
	token := app.login(t, "ann@x.com", testPassword)

	body := `{"user_id":"` + bob.ID + `","expenses":[{"category":"Rent","amount":10}]}`
	require.Equal(t, http.StatusCreated, app.do(http.MethodPost, "/expenses", body, token).Code)

	annExpenses, err := app.repo.ListExpensesByUser(context.Background(), ann.ID)
	require.NoError(t, err)
	assert.Len(t, annExpenses, 1)

	bobExpenses, err := app.repo.ListExpensesByUser(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Empty(t, bobExpenses)
}

func TestDeleteExpense(t *testing.T) {
	app := newTestApp(t)
	newUser(t, app, "ann@x.com")
	newUser(t, app, "bob@x.com")
	annToken := app.login(t, "ann@x.com", testPassword)
	bobToken := app.login(t, "bob@x.com", testPassword)

	require.Equal(t, http.StatusCreated,
		app.do(http.MethodPost, "/expenses", `{"expenses":[{"category":"Groceries","amount":42.1}]}`, annToken).Code)
	id := listExpenses(t, app, annToken)[0].ID

	rec := app.do(http.MethodDelete, "/expenses/"+id, "", bobToken)
	assert.Equal(t, http.StatusNotFound, rec.Code, "cannot delete another user's expense")
	assert.Equal(t, "Expense not found", errorBody(t, rec))

	rec = app.do(http.MethodDelete, "/expenses/"+id, "", annToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, listExpenses(t, app, annToken))

	rec = app.do(http.MethodDelete, "/expenses/"+id, "", annToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
