// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWeakPassword       = errors.New("password does not meet requirements")
)

// Codes attached to infrastructure failures.
const (
	CodeStoreError  = "STORE_ERROR"
	CodeMailerError = "MAILER_ERROR"
	CodeTokenError  = "TOKEN_ERROR"
)

// FieldError reports a missing or malformed input field. It matches
// ErrValidation with errors.Is.
type FieldError struct {
	Field  string
	Reason string // required, invalid
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s is %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}

// requireFields takes field/value pairs and reports the first empty value.
func requireFields(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return &FieldError{Field: pairs[i], Reason: "required"}
		}
	}
	return nil
}

func storeError(op string, err error) error {
	return oops.Code(CodeStoreError).With("operation", op).Wrap(err)
}

func mailerError(err error) error {
	return oops.Code(CodeMailerError).With("operation", "SendPasswordReset").Wrap(err)
}

func tokenError(op string, err error) error {
	return oops.Code(CodeTokenError).With("operation", op).Wrap(err)
}

// hashError passes input rejections through and codes everything else.
func hashError(err error) error {
	if errors.Is(err, ErrValidation) {
		return err
	}
	return tokenError("Hash", err)
}

func hasCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	return ok && oopsErr.Code() == code
}

// IsStoreError reports whether err came from the credential store.
func IsStoreError(err error) bool { return hasCode(err, CodeStoreError) }

// IsMailerError reports whether err came from mail delivery.
func IsMailerError(err error) bool { return hasCode(err, CodeMailerError) }
