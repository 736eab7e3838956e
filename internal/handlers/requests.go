// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"reflect"
	"strings"

	"codeberg.org/pennywise/pennywise/internal/models"
	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the go-playground/validator library to implement Echo's Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new CustomValidator. Field errors carry JSON names
// and the "category" tag accepts models.Categories.
func NewValidator() *CustomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return models.IsCategory(fl.Field().String())
	})
	return &CustomValidator{validator: v}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

// SignUpRequest is the body of POST /signup.
type SignUpRequest struct {
	Name     string `json:"name" validate:"required,max=15"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest is the body of POST /forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the body of POST /reset-password.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ExpenseInput is one expense in POST /expenses. Amount is in currency units;
// Date is YYYY-MM-DD and defaults to today.
type ExpenseInput struct {
	Category string  `json:"category" validate:"required,category"`
	Date     string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Amount   float64 `json:"amount" validate:"gt=0"`
}

// CreateExpensesRequest is the body of POST /expenses.
type CreateExpensesRequest struct {
	Expenses []ExpenseInput `json:"expenses" validate:"required,min=1,max=100,dive"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}
