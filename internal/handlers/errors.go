// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/pennywise/pennywise/internal/i18n"
	authsvc "codeberg.org/pennywise/pennywise/internal/services/auth"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/samber/oops"
)

// ErrorHandler renders every error as {"error": message}. Server errors are
// logged and answered with a generic message.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	ctx := c.Request().Context()
	code := http.StatusInternalServerError
	msg := ""

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}

	if code >= http.StatusInternalServerError {
		cause := err
		if he != nil && he.Internal != nil {
			cause = he.Internal
		}
		logError(ctx, "request_failed", cause)
		msg = i18n.T(ctx, "error_internal")
	} else if msg == "" {
		msg = http.StatusText(code)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{Error: msg})
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

// logError logs err with its oops code and context when it has them.
func logError(ctx context.Context, msg string, err error) {
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs := []any{"error", oopsErr.Error()}
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, "code", code)
		}
		if fields := oopsErr.Context(); len(fields) > 0 {
			attrs = append(attrs, "context", fields)
		}
		slog.ErrorContext(ctx, msg, attrs...)
		return
	}
	slog.ErrorContext(ctx, msg, "error", err)
}

// httpError returns a client error carrying a translated message.
func httpError(ctx context.Context, code int, messageID string, data map[string]any) *echo.HTTPError {
	msg, ok := i18n.Lookup(ctx, messageID, data)
	if !ok {
		msg = http.StatusText(code)
	}
	return echo.NewHTTPError(code, msg)
}

// bindError answers 400 for a body that does not decode.
func bindError(ctx context.Context, err error) error {
	return httpError(ctx, http.StatusBadRequest, "error_invalid_request", nil).SetInternal(err)
}

// validationError translates the first failed validator rule into a 400.
func validationError(ctx context.Context, err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return bindError(ctx, err)
	}

	fe := errs[0]
	data := map[string]any{"Field": fe.Field()}
	switch fe.Tag() {
	case "required":
		return httpError(ctx, http.StatusBadRequest, "error_field_required", data)
	case "max":
		data["Max"] = fe.Param()
		return httpError(ctx, http.StatusBadRequest, "error_field_too_long", data)
	case "category":
		return httpError(ctx, http.StatusBadRequest, "error_invalid_category", nil)
	default:
		return httpError(ctx, http.StatusBadRequest, "error_field_invalid", data)
	}
}

// passwordError translates the first policy violation.
func passwordError(ctx context.Context, err *authsvc.PasswordValidationError) error {
	if len(err.Errors) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	first := err.Errors[0]
	msg, ok := i18n.Lookup(ctx, "password_"+first.Code, first.Data)
	if !ok {
		msg = first.Message
	}
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

// authError maps auth service errors to HTTP errors. Anything unrecognized is
// a server error.
func authError(ctx context.Context, err error) error {
	var pwErr *authsvc.PasswordValidationError
	var fieldErr *authsvc.FieldError

	switch {
	case errors.As(err, &pwErr):
		return passwordError(ctx, pwErr)
	case errors.As(err, &fieldErr):
		data := map[string]any{"Field": fieldErr.Field}
		return httpError(ctx, http.StatusBadRequest, "error_field_"+fieldErr.Reason, data)
	case errors.Is(err, authsvc.ErrUserExists):
		return httpError(ctx, http.StatusBadRequest, "error_user_exists", nil)
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		return httpError(ctx, http.StatusUnauthorized, "error_invalid_credentials", nil)
	case errors.Is(err, authsvc.ErrInvalidToken):
		return httpError(ctx, http.StatusBadRequest, "error_invalid_token", nil)
	case errors.Is(err, authsvc.ErrUserNotFound):
		return httpError(ctx, http.StatusNotFound, "error_user_not_found", nil)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
}

// outcome names the result of an auth operation for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, authsvc.ErrWeakPassword):
		return "weak_password"
	case errors.Is(err, authsvc.ErrValidation):
		return "invalid_input"
	case errors.Is(err, authsvc.ErrUserExists):
		return "user_exists"
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, authsvc.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, authsvc.ErrUserNotFound):
		return "user_not_found"
	case authsvc.IsMailerError(err):
		return "mailer_error"
	case authsvc.IsStoreError(err):
		return "store_error"
	default:
		return "error"
	}
}
