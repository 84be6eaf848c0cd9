package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// Company-email verification outcomes.
	ErrInvalidFormat          = errors.New("invalid format")
	ErrRejectedConsumerDomain = errors.New("consumer email domain rejected")
	ErrExpiredRequest         = errors.New("verification request expired")
	ErrTokenMismatch          = errors.New("verification token mismatch")
)
