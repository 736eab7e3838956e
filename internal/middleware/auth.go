// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/pennywise/pennywise/internal/auth"
	"codeberg.org/pennywise/pennywise/internal/i18n"
	"codeberg.org/pennywise/pennywise/internal/services/session"
	"github.com/labstack/echo/v4"
)

// LoadUser creates middleware that verifies the session token, if one is
// presented, and stores its claims in the request context. Invalid tokens are
// ignored here; RequireAuth decides whether a route needs them.
func LoadUser(sessions *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			claims, err := sessions.Parse(r)
			switch {
			case err == nil:
				c.SetRequest(r.WithContext(auth.WithUser(r.Context(), claims)))
			case !errors.Is(err, session.ErrNoToken):
				slog.DebugContext(r.Context(), "session_rejected", "error", err)
			}
			return next(c)
		}
	}
}

// RequireAuth answers 401 unless LoadUser stored verified claims.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if !auth.IsAuthenticated(ctx) {
				return echo.NewHTTPError(http.StatusUnauthorized, i18n.T(ctx, "error_unauthorized"))
			}
			return next(c)
		}
	}
}
