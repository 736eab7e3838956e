// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/pennywise/pennywise/internal/config"
	"codeberg.org/pennywise/pennywise/internal/database"
	"codeberg.org/pennywise/pennywise/internal/handlers"
	"codeberg.org/pennywise/pennywise/internal/i18n"
	"codeberg.org/pennywise/pennywise/internal/observability"
	"codeberg.org/pennywise/pennywise/internal/repository"
	authsvc "codeberg.org/pennywise/pennywise/internal/services/auth"
	"codeberg.org/pennywise/pennywise/internal/services/email"
	"codeberg.org/pennywise/pennywise/internal/services/session"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// App holds the services the HTTP layer is built from.
type App struct {
	Repo     *repository.Repository
	Auth     *authsvc.Service
	Sessions *session.Manager
	Metrics  *observability.Metrics // nil when metrics are disabled
}

// NewApp wires the services for cfg on top of repo.
func NewApp(cfg *config.Config, repo *repository.Repository) (*App, error) {
	sessions, err := session.NewManager(&cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}

	mailer, err := email.NewFromConfig(&cfg.Mail, cfg.Server.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create mailer: %w", err)
	}

	app := &App{
		Repo:     repo,
		Auth:     authsvc.NewService(repo, authsvc.NewBcryptHasher(), sessions, mailer),
		Sessions: sessions,
	}
	if cfg.Metrics.Enabled {
		app.Metrics = observability.NewMetrics()
	}
	return app, nil
}

// NewRouter builds the Echo instance serving app.
func NewRouter(cfg *config.Config, app *App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = handlers.ErrorHandler

	setupMiddleware(e, cfg, app)
	setupRoutes(e, cfg, app)

	return e
}

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return err
	}

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"driver", database.DriverFor(cfg.Database.DSN),
	)

	// i18n
	if err := i18n.Init(); err != nil {
		return fmt.Errorf("failed to init i18n: %w", err)
	}

	// Database (migrations run on open)
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	if version, err := database.MigrationVersion(ctx, db); err == nil {
		slog.Info("database ready", "schema_version", version)
	}

	app, err := NewApp(cfg, repository.New(db))
	if err != nil {
		return err
	}

	e := NewRouter(cfg, app)

	return startWithGracefulShutdown(ctx, e, cfg)
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	errChan := make(chan error, 2)

	// HTTP redirect server for ACME mode
	var httpServer *http.Server

	switch tlsResult.Mode {
	case TLSModeOff:
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := e.Start(tlsResult.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeACME:
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, tlsResult.ListenAddr, tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		httpServer = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.HTTPHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("HTTP to HTTPS redirect active", "addr", ":80")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeManual:
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, tlsResult.ListenAddr, tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown main server", "error", err)
	}

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown HTTP redirect server", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.Server.Serve(e.TLSListener)
}
