// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"codeberg.org/pennywise/pennywise/internal/config"
	"codeberg.org/pennywise/pennywise/internal/handlers"
	"codeberg.org/pennywise/pennywise/internal/middleware"
	"github.com/labstack/echo/v4"
)

func setupRoutes(e *echo.Echo, cfg *config.Config, app *App) {
	h := handlers.New(app.Repo)
	ah := handlers.NewAuth(app.Auth, app.Sessions, app.Metrics, &cfg.Auth)

	// Probes
	e.GET("/health", h.Health)
	if app.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(app.Metrics.Handler()))
	}

	// Credential lifecycle; one limiter shared by all four routes.
	var limited []echo.MiddlewareFunc
	if cfg.Auth.RateLimit > 0 {
		limited = append(limited, middleware.RateLimiter(cfg.Auth.RateLimit))
	}
	e.POST("/signup", ah.SignUp, limited...)
	e.POST("/login", ah.Login, limited...)
	e.POST("/forgot-password", ah.ForgotPassword, limited...)
	e.POST("/reset-password", ah.ResetPassword, limited...)
	e.POST("/logout", ah.Logout)
	e.GET("/password-policy", ah.PasswordPolicy)

	// Session-bound
	requireAuth := middleware.RequireAuth()
	e.GET("/me", ah.Me, requireAuth)
	e.GET("/expenses", h.ListExpenses, requireAuth)
	e.POST("/expenses", h.CreateExpenses, requireAuth)
	e.DELETE("/expenses/:id", h.DeleteExpense, requireAuth)
}
