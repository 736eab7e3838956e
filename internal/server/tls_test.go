// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/pennywise/pennywise/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTLSMode(t *testing.T) {
	free := func(int) bool { return true }
	busy := func(int) bool { return false }

	tests := []struct {
		name     string
		tls      config.TLSConfig
		host     string
		portFree func(int) bool
		expected TLSMode
		wantErr  bool
	}{
		{"explicit off", config.TLSConfig{Mode: "off"}, "example.com", free, TLSModeOff, false},
		{"explicit acme", config.TLSConfig{Mode: "ACME"}, "localhost", free, TLSModeACME, false},
		{"explicit manual", config.TLSConfig{Mode: "manual"}, "localhost", free, TLSModeManual, false},
		{"auto localhost", config.TLSConfig{Mode: "auto"}, "localhost", free, TLSModeOff, false},
		{"auto with cert files", config.TLSConfig{CertFile: "c.pem", KeyFile: "k.pem"}, "example.com", free, TLSModeManual, false},
		{"auto with email", config.TLSConfig{Email: "ops@example.com"}, "example.com", free, TLSModeACME, false},
		{"auto with email on IP", config.TLSConfig{Email: "ops@example.com"}, "203.0.113.7", free, "", true},
		{"auto with ports busy", config.TLSConfig{Email: "ops@example.com"}, "example.com", busy, "", true},
		{"auto without source", config.TLSConfig{}, "example.com", free, "", true},
		{"unknown mode", config.TLSConfig{Mode: "selfsigned"}, "example.com", free, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Server: config.ServerConfig{Host: tt.host},
				TLS:    tt.tls,
			}

			mode, err := resolveTLSMode(cfg, tt.portFree)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, mode)
		})
	}
}

func TestResolveTLSMode_NoCertificateSource(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		email    string
		portFree func(int) bool
		reason   string
	}{
		{"no email", "example.com", "", func(int) bool { return true }, "tls-email is required"},
		{"ip address", "203.0.113.7", "ops@example.com", func(int) bool { return true }, "IP addresses"},
		{"port 80 busy", "example.com", "ops@example.com", func(p int) bool { return p != 80 }, "port 80 is in use"},
		{"port 443 busy", "example.com", "ops@example.com", func(p int) bool { return p != 443 }, "port 443 is in use"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Server: config.ServerConfig{Host: tt.host},
				TLS:    config.TLSConfig{Email: tt.email},
			}

			_, err := resolveTLSMode(cfg, tt.portFree)

			require.ErrorIs(t, err, ErrNoCertificateSource)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestSetupTLS_ACMERequiresEmail(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "money.example.com", Port: 443},
		TLS:    config.TLSConfig{Mode: "acme"},
	}

	_, err := SetupTLS(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "tls-email is required")
}

func writeTestCert(t *testing.T, dir string) (string, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		DNSNames:     []string{"localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certFile, keyFile
}

func TestSetupTLS_Manual(t *testing.T) {
	certFile, keyFile := writeTestCert(t, t.TempDir())
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "localhost", Port: 8443},
		TLS:    config.TLSConfig{Mode: "manual", CertFile: certFile, KeyFile: keyFile},
	}

	result, err := SetupTLS(cfg)

	require.NoError(t, err)
	assert.Equal(t, TLSModeManual, result.Mode)
	require.NotNil(t, result.TLSConfig)
	assert.Len(t, result.TLSConfig.Certificates, 1)
	assert.Nil(t, result.CertManager)
	assert.Equal(t, "localhost:8443", result.ListenAddr)

	fingerprint := certFingerprint(&result.TLSConfig.Certificates[0])
	assert.Len(t, fingerprint, 32*3-1)
	assert.Regexp(t, `^([0-9A-F]{2}:){31}[0-9A-F]{2}$`, fingerprint)
}

func TestSetupTLS_ManualMissingFiles(t *testing.T) {
	dir := t.TempDir()

	t.Run("no files configured", func(t *testing.T) {
		cfg := &config.Config{TLS: config.TLSConfig{Mode: "manual"}}
		_, err := SetupTLS(cfg)
		assert.Error(t, err)
	})

	t.Run("files do not exist", func(t *testing.T) {
		cfg := &config.Config{TLS: config.TLSConfig{
			Mode:     "manual",
			CertFile: filepath.Join(dir, "missing.pem"),
			KeyFile:  filepath.Join(dir, "missing.key"),
		}}
		_, err := SetupTLS(cfg)
		assert.Error(t, err)
	})
}

func TestSetupTLS_Off(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "localhost", Port: 8080},
		TLS:    config.TLSConfig{Mode: "off"},
	}

	result, err := SetupTLS(cfg)

	require.NoError(t, err)
	assert.Equal(t, TLSModeOff, result.Mode)
	assert.Nil(t, result.TLSConfig)
	assert.Equal(t, "localhost:8080", result.ListenAddr)
}

func TestSetupACME(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "money.example.com"},
		TLS:    config.TLSConfig{Email: "ops@example.com", CertDir: t.TempDir()},
	}

	result, err := setupACME(cfg)

	require.NoError(t, err)
	assert.Equal(t, TLSModeACME, result.Mode)
	assert.NotNil(t, result.CertManager)
	assert.NotNil(t, result.HTTPHandler)
	assert.Equal(t, ":443", result.ListenAddr)
	assert.DirExists(t, filepath.Join(cfg.TLS.CertDir, "acme"))
}
