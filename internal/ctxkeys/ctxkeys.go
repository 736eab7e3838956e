// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package ctxkeys defines typed context keys used across packages.
package ctxkeys

// User is the context key for the verified session claims.
type User struct{}

// RequestID is the context key for the request ID.
type RequestID struct{}
