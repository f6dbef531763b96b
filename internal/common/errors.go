// Package common defines shared constants and sentinel errors used across
// the vidtube server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// Service-level errors.
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation error")

	// Token verification errors. Every failed verification wraps ErrInvalidToken
	// together with exactly one of the reasons below.
	ErrInvalidToken           = errors.New("invalid token")
	ErrTokenMalformed         = errors.New("token malformed")
	ErrTokenExpired           = errors.New("token expired")
	ErrTokenSignatureMismatch = errors.New("token signature mismatch")
)
