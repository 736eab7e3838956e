// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"codeberg.org/pennywise/pennywise/internal/models"
	"codeberg.org/pennywise/pennywise/internal/repository"
	"codeberg.org/pennywise/pennywise/internal/services/email"
)

// UserStore is the credential store the service works against. Lookups
// return sql.ErrNoRows when nothing matches.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByResetToken(ctx context.Context, tokenHash string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	ResetPasswordWithToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) error
}

// SessionIssuer signs session tokens for authenticated users.
type SessionIssuer interface {
	Issue(user *models.User) (string, time.Time, error)
}

// ResetMailer delivers password reset links.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, to, name, token string) error
}

// fallbackDummyHash is a well-formed bcrypt hash (cost 10) for when the
// configured hasher cannot produce one at startup.
const fallbackDummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

type Service struct {
	store             UserStore
	hasher            PasswordHasher
	sessions          SessionIssuer
	mailer            ResetMailer
	passwordValidator *PasswordValidator
	now               func() time.Time
	// dummyHash is verified against when the email is unknown so that both
	// login failures cost one hash comparison.
	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(store UserStore, hasher PasswordHasher, sessions SessionIssuer, mailer ResetMailer, opts ...Option) *Service {
	s := &Service{
		store:             store,
		hasher:            hasher,
		sessions:          sessions,
		mailer:            mailer,
		passwordValidator: DefaultPasswordValidator(),
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	hash, err := hasher.Hash("dummy-password-for-timing")
	if err != nil {
		slog.Warn("dummy hash failed, using built-in hash", "error", err)
		hash = fallbackDummyHash
	}
	s.dummyHash = hash
	return s
}

// PasswordValidator returns the password validator for use in handlers
func (s *Service) PasswordValidator() *PasswordValidator {
	return s.passwordValidator
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUpParams holds the parameters for user registration
type SignUpParams struct {
	Name     string
	Email    string
	Password string
}

// SignUp creates a new account and returns its public fields.
func (s *Service) SignUp(ctx context.Context, params SignUpParams) (*models.PublicUser, error) {
	name := strings.TrimSpace(params.Name)
	addr := NormalizeEmail(params.Email)

	if err := requireFields("name", name, "email", addr, "password", params.Password); err != nil {
		return nil, err
	}
	// Display-name forms like "Ann <ann@x.com>" parse but are not bare addresses.
	if parsed, err := mail.ParseAddress(addr); err != nil || parsed.Address != addr {
		return nil, &FieldError{Field: "email", Reason: "invalid"}
	}

	_, err := s.store.GetUserByEmail(ctx, addr)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, storeError("GetUserByEmail", err)
	}

	passwordHash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, hashError(err)
	}

	user := &models.User{
		Name:         name,
		Email:        addr,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		// Lost a race against a concurrent sign-up with the same email.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, storeError("CreateUser", err)
	}

	slog.InfoContext(ctx, "signup_success", "user_id", user.ID)

	return user.Public(), nil
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	ExpiresAt time.Time
	User      *models.PublicUser
	Token     string
}

// Login verifies credentials and issues a session token. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, emailAddr, password string) (*LoginResult, error) {
	addr := NormalizeEmail(emailAddr)
	if err := requireFields("email", addr, "password", password); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_, _ = s.hasher.Verify(password, s.dummyHash)
			slog.WarnContext(ctx, "login_failed", "reason", "user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, storeError("GetUserByEmail", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		slog.ErrorContext(ctx, "login_failed", "user_id", user.ID, "reason", "malformed_hash", "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		slog.WarnContext(ctx, "login_failed", "user_id", user.ID, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.sessions.Issue(user)
	if err != nil {
		return nil, tokenError("Issue", err)
	}

	slog.InfoContext(ctx, "login_success", "user_id", user.ID)

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user.Public()}, nil
}

// ForgotPassword stores a fresh reset token for the account and mails the
// reset link. A pending token is replaced. If delivery fails the new token
// stays stored and a MAILER_ERROR is returned.
func (s *Service) ForgotPassword(ctx context.Context, emailAddr string) error {
	addr := NormalizeEmail(emailAddr)
	if err := requireFields("email", addr); err != nil {
		return err
	}

	user, err := s.store.GetUserByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.InfoContext(ctx, "password_reset_requested", "reason", "user_not_found")
			return ErrUserNotFound
		}
		return storeError("GetUserByEmail", err)
	}

	token, tokenHash, expiresAt, err := email.GenerateToken(s.now())
	if err != nil {
		return tokenError("GenerateToken", err)
	}

	if err := s.store.SetResetToken(ctx, user.ID, tokenHash, expiresAt); err != nil {
		return storeError("SetResetToken", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, token); err != nil {
		return mailerError(err)
	}

	slog.InfoContext(ctx, "password_reset_requested", "user_id", user.ID, "expires_at", expiresAt)
	return nil
}

// ResetPassword redeems a reset token. Unknown, consumed and expired tokens
// all yield ErrInvalidToken. The password policy is the caller's concern.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	token = strings.TrimSpace(token)
	if err := requireFields("token", token, "password", password); err != nil {
		return err
	}

	tokenHash := email.HashToken(token)
	now := s.now()

	user, err := s.store.GetUserByResetToken(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.WarnContext(ctx, "password_reset_failed", "reason", "unknown_token")
			return ErrInvalidToken
		}
		return storeError("GetUserByResetToken", err)
	}
	if !user.ResetPending(now) {
		slog.WarnContext(ctx, "password_reset_failed", "user_id", user.ID, "reason", "expired_token")
		return ErrInvalidToken
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return hashError(err)
	}

	// Expiry is checked again by the store inside the single UPDATE.
	if err := s.store.ResetPasswordWithToken(ctx, tokenHash, passwordHash, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidToken
		}
		return storeError("ResetPasswordWithToken", err)
	}

	slog.InfoContext(ctx, "password_reset_success", "user_id", user.ID)
	return nil
}
