// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package session_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codeberg.org/pennywise/pennywise/internal/config"
	"codeberg.org/pennywise/pennywise/internal/models"
	"codeberg.org/pennywise/pennywise/internal/services/session"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// validSecret is a valid 32-byte hex-encoded key for testing
const validSecret = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestConfig() *config.SessionConfig {
	return &config.SessionConfig{
		CookieName: "token",
		Secret:     validSecret,
	}
}

func testUser() *models.User {
	return &models.User{ID: "user-1", Name: "Ann", Email: "ann@x.com"}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newManager(t *testing.T, c *clock) *session.Manager {
	t.Helper()
	mgr, err := session.NewManager(newTestConfig(), session.WithClock(c.now))
	require.NoError(t, err)
	return mgr
}

func TestNewManager_InvalidSecret_NotHex(t *testing.T) {
	cfg := newTestConfig()
	cfg.Secret = "not-hex-encoded"

	_, err := session.NewManager(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session secret")
}

func TestNewManager_InvalidSecret_TooShort(t *testing.T) {
	cfg := newTestConfig()
	cfg.Secret = "0123456789abcdef"

	_, err := session.NewManager(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")
}

func TestNewManager_DevMode_GeneratesKey(t *testing.T) {
	mgr, err := session.NewManager(&config.SessionConfig{})

	require.NoError(t, err)
	assert.Equal(t, "token", mgr.CookieName())

	token, _, err := mgr.Issue(testUser())
	require.NoError(t, err)
	_, err = mgr.Verify(token)
	assert.NoError(t, err)
}

func TestIssue_ClaimsAndExpiry(t *testing.T) {
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	mgr := newManager(t, c)

	token, expiresAt, err := mgr.Issue(testUser())
	require.NoError(t, err)
	assert.Equal(t, c.t.Add(time.Hour), expiresAt)

	claims, err := mgr.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.ID)
	assert.Equal(t, "ann@x.com", claims.Email)
	assert.Equal(t, "Ann", claims.Name)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, c.t, claims.IssuedAt.UTC())
	assert.Equal(t, c.t.Add(session.TokenTTL), claims.ExpiresAt.UTC())
}

func TestVerify_Expired(t *testing.T) {
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	mgr := newManager(t, c)

	token, _, err := mgr.Issue(testUser())
	require.NoError(t, err)

	c.t = c.t.Add(59 * time.Minute)
	_, err = mgr.Verify(token)
	require.NoError(t, err)

	c.t = c.t.Add(2 * time.Minute)
	_, err = mgr.Verify(token)
	assert.ErrorIs(t, err, session.ErrInvalidToken)
}

func TestVerify_Tampered(t *testing.T) {
	mgr := newManager(t, &clock{t: time.Now()})

	token, _, err := mgr.Issue(testUser())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	_, err = mgr.Verify(tampered)
	assert.ErrorIs(t, err, session.ErrInvalidToken)
}

func TestVerify_DifferentSecret(t *testing.T) {
	mgr := newManager(t, &clock{t: time.Now()})
	token, _, err := mgr.Issue(testUser())
	require.NoError(t, err)

	cfg := newTestConfig()
	cfg.Secret = "fedcba9876543210fedcba9876543210fedcba9876543210fedcba9876543210"
	other, err := session.NewManager(cfg)
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, session.ErrInvalidToken)
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	mgr := newManager(t, &clock{t: time.Now()})

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, session.Claims{
		ID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = mgr.Verify(token)
	assert.ErrorIs(t, err, session.ErrInvalidToken)
}

func TestParse_BearerHeader(t *testing.T) {
	mgr := newManager(t, &clock{t: time.Now()})
	token, _, err := mgr.Issue(testUser())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	claims, err := mgr.Parse(req)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.ID)
}

func TestParse_Cookie(t *testing.T) {
	c := &clock{t: time.Now()}
	mgr := newManager(t, c)
	token, expiresAt, err := mgr.Issue(testUser())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(mgr.Cookie(token, expiresAt))

	claims, err := mgr.Parse(req)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", claims.Email)
}

func TestParse_NoToken(t *testing.T) {
	mgr := newManager(t, &clock{t: time.Now()})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	_, err := mgr.Parse(req)

	assert.ErrorIs(t, err, session.ErrNoToken)
}

func TestParse_InvalidCookie(t *testing.T) {
	mgr := newManager(t, &clock{t: time.Now()})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "garbage"})

	_, err := mgr.Parse(req)
	assert.ErrorIs(t, err, session.ErrInvalidToken)
}

func TestCookie(t *testing.T) {
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	mgr := newManager(t, c)

	cookie := mgr.Cookie("abc", c.t.Add(time.Hour))

	assert.Equal(t, "token", cookie.Name)
	assert.Equal(t, "abc", cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 3600, cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestCookie_SecureMode(t *testing.T) {
	cfg := newTestConfig()
	cfg.CookieSecure = true
	mgr, err := session.NewManager(cfg)
	require.NoError(t, err)

	assert.True(t, mgr.Cookie("abc", time.Now().Add(time.Hour)).Secure)
	assert.True(t, mgr.Clear().Secure)
}

func TestClear(t *testing.T) {
	mgr := newManager(t, &clock{t: time.Now()})

	cookie := mgr.Clear()

	assert.Equal(t, "token", cookie.Name)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, -1, cookie.MaxAge)
}
