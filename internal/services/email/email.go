// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"codeberg.org/pennywise/pennywise/internal/config"
	"codeberg.org/pennywise/pennywise/internal/i18n"
)

const (
	// TokenLength is the number of random bytes in a reset token.
	TokenLength = 32
	// TokenExpiry is how long reset tokens are valid.
	TokenExpiry = time.Hour
)

// Sender delivers a plain-text email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service builds password reset emails and hands them to a Sender.
type Service struct {
	sender  Sender
	baseURL string
}

// NewService creates a new email service.
func NewService(sender Sender, baseURL string) *Service {
	return &Service{
		sender:  sender,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// NewFromConfig picks the sender configured by cfg.Driver.
func NewFromConfig(cfg *config.MailConfig, baseURL string) (*Service, error) {
	switch cfg.Driver {
	case "smtp":
		sender, err := NewSMTPSender(cfg)
		if err != nil {
			return nil, err
		}
		return NewService(sender, baseURL), nil
	case "log", "":
		return NewService(NewLogSender(nil, cfg.From), baseURL), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
}

// GenerateToken generates a new reset token.
// Returns (plaintext token, SHA256 hash for storage, expiry time, error).
func GenerateToken(now time.Time) (string, string, time.Time, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to generate random bytes: %w", err)
	}

	plaintext := hex.EncodeToString(bytes)
	hash := HashToken(plaintext)
	expiresAt := now.Add(TokenExpiry)

	return plaintext, hash, expiresAt, nil
}

// HashToken computes the SHA256 hash of a token.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ResetURL returns the link a user follows to choose a new password.
func (s *Service) ResetURL(token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, url.QueryEscape(token))
}

// SendPasswordReset sends the reset link for token to toEmail, in the locale
// carried by ctx.
func (s *Service) SendPasswordReset(ctx context.Context, toEmail, name, token string) error {
	subject := i18n.T(ctx, "password_reset_subject")
	body := i18n.TData(ctx, "password_reset_body", map[string]any{
		"Name":     name,
		"ResetURL": s.ResetURL(token),
	})

	return s.sender.Send(ctx, toEmail, subject, body)
}
