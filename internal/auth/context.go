// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth provides authentication context helpers.
package auth

import (
	"context"

	"codeberg.org/pennywise/pennywise/internal/ctxkeys"
	"codeberg.org/pennywise/pennywise/internal/services/session"
)

// WithUser stores verified session claims in ctx.
func WithUser(ctx context.Context, claims *session.Claims) context.Context {
	return context.WithValue(ctx, ctxkeys.User{}, claims)
}

// GetUser returns the authenticated user's claims from the context, or nil if not authenticated.
func GetUser(ctx context.Context) *session.Claims {
	if claims, ok := ctx.Value(ctxkeys.User{}).(*session.Claims); ok {
		return claims
	}
	return nil
}

// IsAuthenticated returns true if the context has an authenticated user.
func IsAuthenticated(ctx context.Context) bool {
	return GetUser(ctx) != nil
}

// WithRequestID stores the request ID in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkeys.RequestID{}, id)
}

// RequestID returns the request ID from ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkeys.RequestID{}).(string)
	return id
}
