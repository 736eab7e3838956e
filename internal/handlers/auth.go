// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"
	"time"

	"codeberg.org/pennywise/pennywise/internal/auth"
	"codeberg.org/pennywise/pennywise/internal/config"
	"codeberg.org/pennywise/pennywise/internal/i18n"
	"codeberg.org/pennywise/pennywise/internal/observability"
	authsvc "codeberg.org/pennywise/pennywise/internal/services/auth"
	"codeberg.org/pennywise/pennywise/internal/services/session"
	"github.com/labstack/echo/v4"
)

// AuthHandlers contains handlers for authentication.
type AuthHandlers struct {
	auth     *authsvc.Service
	sessions *session.Manager
	metrics  *observability.Metrics
	cfg      *config.AuthConfig
}

// NewAuth creates a new AuthHandlers instance. metrics may be nil.
func NewAuth(svc *authsvc.Service, sessions *session.Manager, metrics *observability.Metrics, cfg *config.AuthConfig) *AuthHandlers {
	return &AuthHandlers{
		auth:     svc,
		sessions: sessions,
		metrics:  metrics,
		cfg:      cfg,
	}
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
	Token     string    `json:"token"`
}

// MeResponse describes the verified session.
type MeResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
}

// PasswordPolicyResponse lists the password requirements.
type PasswordPolicyResponse struct {
	Requirements []string `json:"requirements"`
}

func (h *AuthHandlers) record(op string, err error) {
	h.metrics.RecordAuth(op, outcome(err))
}

// SignUp creates an account.
func (h *AuthHandlers) SignUp(c echo.Context) error {
	ctx := c.Request().Context()

	var req SignUpRequest
	if err := c.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := c.Validate(&req); err != nil {
		return validationError(ctx, err)
	}

	if err := h.auth.PasswordValidator().Validate(req.Password).Err(); err != nil {
		h.record("signup", err)
		return authError(ctx, err)
	}

	user, err := h.auth.SignUp(ctx, authsvc.SignUpParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	h.record("signup", err)
	if err != nil {
		return authError(ctx, err)
	}

	return c.JSON(http.StatusCreated, user)
}

// Login verifies credentials, returns a session token and sets it as a cookie.
func (h *AuthHandlers) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := c.Validate(&req); err != nil {
		return validationError(ctx, err)
	}

	result, err := h.auth.Login(ctx, req.Email, req.Password)
	h.record("login", err)
	if err != nil {
		return authError(ctx, err)
	}

	c.SetCookie(h.sessions.Cookie(result.Token, result.ExpiresAt))
	return c.JSON(http.StatusOK, LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

// ForgotPassword mails a reset link. Unknown emails get the same answer as
// known ones unless the deployment chooses to reveal them.
func (h *AuthHandlers) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()

	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := c.Validate(&req); err != nil {
		return validationError(ctx, err)
	}

	err := h.auth.ForgotPassword(ctx, req.Email)
	h.record("forgot_password", err)

	if h.cfg.RevealUnknownAccounts {
		if err != nil {
			return authError(ctx, err)
		}
		return c.JSON(http.StatusOK, MessageResponse{Message: i18n.T(ctx, "message_reset_link_sent")})
	}

	if err != nil && !errors.Is(err, authsvc.ErrUserNotFound) {
		return authError(ctx, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: i18n.T(ctx, "message_reset_link_generic")})
}

// ResetPassword redeems a reset token and sets a new password.
func (h *AuthHandlers) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()

	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := c.Validate(&req); err != nil {
		return validationError(ctx, err)
	}

	if err := h.auth.PasswordValidator().Validate(req.Password).Err(); err != nil {
		h.record("reset_password", err)
		return authError(ctx, err)
	}

	err := h.auth.ResetPassword(ctx, req.Token, req.Password)
	h.record("reset_password", err)
	if err != nil {
		return authError(ctx, err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: i18n.T(ctx, "message_password_reset")})
}

// Logout clears the session cookie. The token itself stays valid until it
// expires.
func (h *AuthHandlers) Logout(c echo.Context) error {
	c.SetCookie(h.sessions.Clear())
	return c.JSON(http.StatusOK, MessageResponse{Message: i18n.T(c.Request().Context(), "message_logged_out")})
}

// Me returns the claims of the verified session.
func (h *AuthHandlers) Me(c echo.Context) error {
	ctx := c.Request().Context()
	claims := auth.GetUser(ctx)
	if claims == nil {
		return httpError(ctx, http.StatusUnauthorized, "error_unauthorized", nil)
	}

	resp := MeResponse{
		ID:    claims.ID,
		Email: claims.Email,
		Name:  claims.Name,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}
	return c.JSON(http.StatusOK, resp)
}

// PasswordPolicy lists the password requirements for sign-up forms.
func (h *AuthHandlers) PasswordPolicy(c echo.Context) error {
	return c.JSON(http.StatusOK, PasswordPolicyResponse{
		Requirements: h.auth.PasswordValidator().GetHelpTexts(),
	})
}
