// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"fmt"
	"strings"
	"unicode"
)

// SpecialCharacters is the set of symbols accepted, and one of which is
// required, by the default policy.
const SpecialCharacters = "!@#$%^&*"

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// PasswordValidator validates passwords against various criteria
type PasswordValidator struct {
	MinLength        int
	MaxLength        int // bytes, 0 disables
	RequireUppercase bool
	RequireDigit     bool
	RequireSpecial   bool
	// RestrictCharset rejects anything but ASCII letters, digits and
	// SpecialCharacters.
	RestrictCharset bool
}

// DefaultPasswordValidator returns the policy applied on sign-up and reset:
// 8 to 72 characters with an uppercase letter, a digit and one of
// SpecialCharacters.
func DefaultPasswordValidator() *PasswordValidator {
	return &PasswordValidator{
		MinLength:        8,
		MaxLength:        MaxPasswordBytes,
		RequireUppercase: true,
		RequireDigit:     true,
		RequireSpecial:   true,
		RestrictCharset:  true,
	}
}

// ValidationError represents a single password validation error
type ValidationError struct {
	Data    map[string]any
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// PasswordValidationError wraps multiple validation errors
type PasswordValidationError struct {
	Errors []ValidationError
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return e.Errors[0].Message
}

func (e *PasswordValidationError) Unwrap() error {
	return ErrWeakPassword
}

// Messages returns all error messages
func (e *PasswordValidationError) Messages() []string {
	messages := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		messages[i] = err.Message
	}
	return messages
}

// ValidationResult holds all validation errors
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// Err returns nil for a valid result and a *PasswordValidationError otherwise.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &PasswordValidationError{Errors: r.Errors}
}

// Validate checks a password against all configured validators
func (v *PasswordValidator) Validate(password string) ValidationResult {
	var errors []ValidationError

	if len(password) < v.MinLength {
		errors = append(errors, ValidationError{
			Code:    "min_length",
			Message: fmt.Sprintf("Password must be at least %d characters long.", v.MinLength),
			Data:    map[string]any{"Min": v.MinLength},
		})
	}

	if v.MaxLength > 0 && len(password) > v.MaxLength {
		errors = append(errors, ValidationError{
			Code:    "max_length",
			Message: fmt.Sprintf("Password must be at most %d characters long.", v.MaxLength),
			Data:    map[string]any{"Max": v.MaxLength},
		})
	}

	var hasUpper, hasDigit, hasSpecial, hasInvalid bool
	for _, r := range password {
		switch {
		case r > unicode.MaxASCII:
			hasInvalid = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(SpecialCharacters, r):
			hasSpecial = true
		default:
			hasInvalid = true
		}
	}

	if v.RequireUppercase && !hasUpper {
		errors = append(errors, ValidationError{
			Code:    "no_uppercase",
			Message: "Password must contain at least one uppercase letter.",
		})
	}

	if v.RequireDigit && !hasDigit {
		errors = append(errors, ValidationError{
			Code:    "no_digit",
			Message: "Password must contain at least one digit.",
		})
	}

	if v.RequireSpecial && !hasSpecial {
		errors = append(errors, ValidationError{
			Code:    "no_special",
			Message: "Password must contain at least one special character (" + SpecialCharacters + ").",
		})
	}

	if v.RestrictCharset && hasInvalid {
		errors = append(errors, ValidationError{
			Code:    "invalid_character",
			Message: "Password may only contain letters, digits and " + SpecialCharacters + ".",
		})
	}

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

// GetHelpTexts returns help texts for password requirements
func (v *PasswordValidator) GetHelpTexts() []string {
	texts := []string{fmt.Sprintf("At least %d characters", v.MinLength)}
	if v.MaxLength > 0 {
		texts = append(texts, fmt.Sprintf("At most %d characters", v.MaxLength))
	}

	if v.RequireUppercase {
		texts = append(texts, "At least one uppercase letter")
	}
	if v.RequireDigit {
		texts = append(texts, "At least one digit")
	}
	if v.RequireSpecial {
		texts = append(texts, "At least one of "+SpecialCharacters)
	}

	return texts
}
