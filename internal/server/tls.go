// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/pennywise/pennywise/internal/config"
	"golang.org/x/crypto/acme/autocert"
)

// TLSMode is how the server terminates TLS.
type TLSMode string

const (
	TLSModeOff    TLSMode = "off"
	TLSModeACME   TLSMode = "acme"
	TLSModeManual TLSMode = "manual"
)

// ErrNoCertificateSource is returned when auto mode serves a public host but
// has neither certificate files nor a working Let's Encrypt setup.
var ErrNoCertificateSource = errors.New("no certificate source: set tls-cert-file/tls-key-file or tls-email, or use tls-mode=off behind a TLS proxy")

// TLSResult is what the server needs to listen.
type TLSResult struct {
	TLSConfig   *tls.Config       // nil when TLS is off
	CertManager *autocert.Manager // ACME only
	HTTPHandler http.Handler      // ACME challenge and HTTPS redirect on :80
	Mode        TLSMode
	ListenAddr  string
}

// SetupTLS resolves the TLS mode and builds the listener configuration.
func SetupTLS(cfg *config.Config) (*TLSResult, error) {
	mode, err := resolveTLSMode(cfg, isPortAvailable)
	if err != nil {
		return nil, err
	}

	hostPort := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))

	switch mode {
	case TLSModeOff:
		slog.Info("tls disabled", "addr", hostPort)
		return &TLSResult{Mode: TLSModeOff, ListenAddr: hostPort}, nil
	case TLSModeACME:
		if err := acmeBlocker(cfg, isPortAvailable); err != nil {
			return nil, fmt.Errorf("acme mode: %w", err)
		}
		if cfg.Server.Port != 443 {
			slog.Warn("acme listens on :443, ignoring configured port", "port", cfg.Server.Port)
		}
		slog.Info("tls via let's encrypt", "host", cfg.Server.Host, "email", cfg.TLS.Email)
		return setupACME(cfg)
	default:
		slog.Info("tls via certificate files", "cert", cfg.TLS.CertFile, "key", cfg.TLS.KeyFile)
		result, err := setupManual(cfg)
		if err != nil {
			return nil, err
		}
		result.ListenAddr = hostPort
		return result, nil
	}
}

// resolveTLSMode maps the configured mode to a concrete one. Auto picks, in
// order: off for local hosts, manual when both certificate files are set,
// then ACME if the host can obtain a certificate.
func resolveTLSMode(cfg *config.Config, portFree func(int) bool) (TLSMode, error) {
	switch mode := TLSMode(strings.ToLower(cfg.TLS.Mode)); mode {
	case TLSModeOff, TLSModeACME, TLSModeManual:
		return mode, nil
	case "auto", "":
	default:
		return "", fmt.Errorf("unknown TLS mode: %s", cfg.TLS.Mode)
	}

	switch {
	case config.IsLocalhost(cfg.Server.Host):
		return TLSModeOff, nil
	case cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "":
		return TLSModeManual, nil
	}

	if err := acmeBlocker(cfg, portFree); err != nil {
		return "", fmt.Errorf("%w (%v)", ErrNoCertificateSource, err)
	}
	return TLSModeACME, nil
}

// acmeBlocker reports why Let's Encrypt cannot serve this host, or nil.
func acmeBlocker(cfg *config.Config, portFree func(int) bool) error {
	host := cfg.Server.Host
	switch {
	case config.IsLocalhost(host):
		return errors.New("let's encrypt does not issue certificates for localhost")
	case net.ParseIP(host) != nil:
		return errors.New("let's encrypt does not issue certificates for IP addresses")
	case cfg.TLS.Email == "":
		return errors.New("tls-email is required")
	}
	for _, port := range []int{80, 443} {
		if !portFree(port) {
			return fmt.Errorf("port %d is in use", port)
		}
	}
	return nil
}

func isPortAvailable(port int) bool {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}

func setupACME(cfg *config.Config) (*TLSResult, error) {
	cacheDir := filepath.Join(cfg.TLS.CertDir, "acme")
	if err := os.MkdirAll(cacheDir, 0o700); err != nil {
		return nil, fmt.Errorf("create acme cache: %w", err)
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Email:      cfg.TLS.Email,
		Cache:      autocert.DirCache(cacheDir),
		HostPolicy: autocert.HostWhitelist(cfg.Server.Host),
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	return &TLSResult{
		Mode:        TLSModeACME,
		ListenAddr:  ":443",
		TLSConfig:   tlsConfig,
		CertManager: manager,
		HTTPHandler: manager.HTTPHandler(nil),
	}, nil
}

func setupManual(cfg *config.Config) (*TLSResult, error) {
	if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
		return nil, errors.New("manual TLS mode requires both tls-cert-file and tls-key-file")
	}

	cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	slog.Info("certificate loaded", "sha256", certFingerprint(&cert))

	return &TLSResult{
		Mode: TLSModeManual,
		TLSConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		},
	}, nil
}

// certFingerprint formats the leaf's SHA-256 as colon-separated hex.
func certFingerprint(cert *tls.Certificate) string {
	if len(cert.Certificate) == 0 {
		return ""
	}
	sum := sha256.Sum256(cert.Certificate[0])
	return strings.ReplaceAll(fmt.Sprintf("% X", sum[:]), " ", ":")
}
