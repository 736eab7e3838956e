// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

// ErrInvalidConfig is returned by Validate for unusable settings.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	TLS      TLSConfig
	Session  SessionConfig
	Auth     AuthConfig
	Mail     MailConfig
	Metrics  MetricsConfig
}

type TLSConfig struct {
	Mode     string // auto, acme, manual, off
	CertDir  string // ACME certificate cache
	Email    string // ACME email for Let's Encrypt
	CertFile string // Path to certificate file (manual mode)
	KeyFile  string // Path to private key file (manual mode)
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host           string
	Port           int
	BaseURL        string
	MaxBodySize    int // in MB
	RequestTimeout time.Duration
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string // file path, :memory:, or postgres:// URL
}

type SessionConfig struct { //nolint:govet // fieldalignment not critical
	CookieName   string
	CookieSecure bool
	Secret       string // 32-byte hex string for HS256 signing
}

type AuthConfig struct {
	// RevealUnknownAccounts makes forgot-password answer 404 for unknown emails.
	RevealUnknownAccounts bool
	RateLimit             int // requests per minute per IP on auth routes, 0 disables
}

type MailConfig struct { //nolint:govet // fieldalignment not critical
	Driver   string // smtp, log
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      string // mandatory, opportunistic, none
}

type MetricsConfig struct {
	Enabled bool
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:           cmd.String("host"),
			Port:           int(cmd.Int("port")),
			BaseURL:        cmd.String("base-url"),
			MaxBodySize:    int(cmd.Int("max-body-size")),
			RequestTimeout: cmd.Duration("request-timeout"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		TLS: TLSConfig{
			Mode:     cmd.String("tls-mode"),
			CertDir:  cmd.String("tls-cert-dir"),
			Email:    cmd.String("tls-email"),
			CertFile: cmd.String("tls-cert-file"),
			KeyFile:  cmd.String("tls-key-file"),
		},
		Session: SessionConfig{
			CookieName:   cmd.String("session-cookie-name"),
			CookieSecure: cmd.Bool("session-cookie-secure"),
			Secret:       cmd.String("session-secret"),
		},
		Auth: AuthConfig{
			RevealUnknownAccounts: cmd.Bool("auth-reveal-unknown-accounts"),
			RateLimit:             int(cmd.Int("auth-rate-limit")),
		},
		Mail: MailConfig{
			Driver:   cmd.String("mail-driver"),
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.String("smtp-tls"),
		},
		Metrics: MetricsConfig{
			Enabled: cmd.Bool("metrics-enabled"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}

	// A secure cookie over plain HTTP would never be sent back.
	if !cmd.IsSet("session-cookie-secure") {
		cfg.Session.CookieSecure = strings.HasPrefix(cfg.Server.BaseURL, "https://")
	}

	// Gmail accounts double as the sender address.
	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.Username
	}

	return cfg
}

// Validate reports settings that would make the server fail later at runtime.
func (c *Config) Validate() error {
	switch strings.ToLower(c.TLS.Mode) {
	case "", "auto", "acme", "manual", "off":
	default:
		return fmt.Errorf("%w: unknown tls mode %q", ErrInvalidConfig, c.TLS.Mode)
	}

	switch c.Mail.Driver {
	case "log":
	case "smtp":
		if c.Mail.Host == "" {
			return fmt.Errorf("%w: smtp-host is required for the smtp mail driver", ErrInvalidConfig)
		}
		if c.Mail.From == "" {
			return fmt.Errorf("%w: smtp-from is required for the smtp mail driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown mail driver %q", ErrInvalidConfig, c.Mail.Driver)
	}

	if c.Session.Secret != "" {
		key, err := hex.DecodeString(c.Session.Secret)
		if err != nil || len(key) < 32 {
			return fmt.Errorf("%w: session-secret must be at least 32 bytes hex-encoded", ErrInvalidConfig)
		}
	}

	if c.Auth.RateLimit < 0 {
		return fmt.Errorf("%w: auth-rate-limit must not be negative", ErrInvalidConfig)
	}

	return nil
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port
	mode := strings.ToLower(cfg.TLS.Mode)

	useTLS := shouldUseTLS(mode, host)

	scheme := "http"
	if useTLS {
		scheme = "https"
	}

	// ACME mode always uses port 443
	if mode == "acme" {
		return fmt.Sprintf("https://%s", host)
	}

	// Hide default ports in URL
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

func shouldUseTLS(mode, host string) bool {
	switch mode {
	case "off":
		return false
	case "acme", "manual":
		return true
	default: // "auto" or empty
		return !IsLocalhost(host)
	}
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g., app.localhost)
	return strings.HasSuffix(host, ".localhost")
}

// DatabaseFlags are the flags needed by commands that only touch the database.
func DatabaseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/pennywise.db",
			Usage:   "Database DSN (SQLite path or postgres:// URL)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), cli.EnvVar("DATABASE_URL"), toml.TOML("database.dsn", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
	}
}

func Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Public base URL, used for password reset links",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.DurationFlag{
			Name:    "request-timeout",
			Value:   15 * time.Second,
			Usage:   "Upper bound for handling a single request",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REQUEST_TIMEOUT"), toml.TOML("server.request_timeout", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-mode",
			Value:   "auto",
			Usage:   "TLS mode (auto, acme, manual, off)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_MODE"), toml.TOML("tls.mode", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-dir",
			Value:   "./data/certs",
			Usage:   "Directory for the ACME certificate cache",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_DIR"), toml.TOML("tls.cert_dir", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-email",
			Usage:   "Email for ACME/Let's Encrypt registration",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_EMAIL"), toml.TOML("tls.email", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-file",
			Usage:   "Path to TLS certificate file (manual mode)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_FILE"), toml.TOML("tls.cert_file", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-key-file",
			Usage:   "Path to TLS private key file (manual mode)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_KEY_FILE"), toml.TOML("tls.key_file", configFile)),
		},
		// Session flags
		&cli.StringFlag{
			Name:    "session-cookie-name",
			Value:   "token",
			Usage:   "Cookie carrying the session token",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_COOKIE_NAME"), toml.TOML("session.cookie_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "session-cookie-secure",
			Usage:   "Mark the session cookie Secure (defaults to true for https base URLs)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_COOKIE_SECURE"), toml.TOML("session.cookie_secure", configFile)),
		},
		&cli.StringFlag{
			Name:    "session-secret",
			Usage:   "Session signing secret (32-byte hex, auto-generated if empty in dev)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_SECRET"), cli.EnvVar("JWT_SECRET"), toml.TOML("session.secret", configFile)),
		},
		// Auth flags
		&cli.BoolFlag{
			Name:    "auth-reveal-unknown-accounts",
			Usage:   "Answer 404 on forgot-password for unknown emails",
			Sources: cli.NewValueSourceChain(cli.EnvVar("AUTH_REVEAL_UNKNOWN_ACCOUNTS"), toml.TOML("auth.reveal_unknown_accounts", configFile)),
		},
		&cli.IntFlag{
			Name:    "auth-rate-limit",
			Value:   10,
			Usage:   "Requests per minute per client on auth routes (0 disables)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("AUTH_RATE_LIMIT"), toml.TOML("auth.rate_limit", configFile)),
		},
		// Mail flags
		&cli.StringFlag{
			Name:    "mail-driver",
			Value:   "log",
			Usage:   "Mail driver (smtp, log)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAIL_DRIVER"), toml.TOML("mail.driver", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-host",
			Value:   "smtp.gmail.com",
			Usage:   "SMTP server host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("mail.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("mail.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), cli.EnvVar("GMAIL_USER"), toml.TOML("mail.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), cli.EnvVar("GMAIL_PASSWORD"), toml.TOML("mail.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address (defaults to the SMTP username)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("mail.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "Pennywise",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("mail.from_name", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-tls",
			Value:   "mandatory",
			Usage:   "SMTP TLS policy (mandatory, opportunistic, none)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("mail.tls", configFile)),
		},
		// Metrics
		&cli.BoolFlag{
			Name:    "metrics-enabled",
			Value:   true,
			Usage:   "Expose Prometheus metrics on /metrics",
			Sources: cli.NewValueSourceChain(cli.EnvVar("METRICS_ENABLED"), toml.TOML("metrics.enabled", configFile)),
		},
	}

	return append(flags, DatabaseFlags()...)
}
