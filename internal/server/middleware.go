// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"fmt"
	"log/slog"

	"codeberg.org/pennywise/pennywise/internal/config"
	"codeberg.org/pennywise/pennywise/internal/middleware"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

func setupMiddleware(e *echo.Echo, cfg *config.Config, app *App) {
	e.Pre(middleware.StripTrailingSlash())

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(slog.Default()))
	if app.Metrics != nil {
		e.Use(app.Metrics.Middleware())
	}
	e.Use(echomw.Secure())
	e.Use(echomw.Gzip())
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dM", cfg.Server.MaxBodySize)))
	if cfg.Server.RequestTimeout > 0 {
		e.Use(echomw.ContextTimeout(cfg.Server.RequestTimeout))
	}
	e.Use(middleware.Locale())
	e.Use(middleware.LoadUser(app.Sessions))
}
