package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jobportal-api/internal/domain"
)

// Stable machine-readable error kinds.
const (
	KindBadRequest             = "bad_request"
	KindInvalidFormat          = "invalid_format"
	KindRejectedConsumerDomain = "rejected_consumer_domain"
	KindExpiredRequest         = "expired_request"
	KindTokenMismatch          = "token_mismatch"
	KindUnauthorized           = "unauthorized"
	KindForbidden              = "forbidden"
	KindNotFound               = "not_found"
	KindConflict               = "conflict"
	KindInternal               = "internal"
)

// Numeric codes for the verification failures clients branch on.
const (
	CodeInvalidFormat          = 1001
	CodeRejectedConsumerDomain = 1002
	CodeExpiredRequest         = 1003
	CodeTokenMismatch          = 1004
)

// expiredMessage is shared by unknown and expired requests so the completion
// endpoint does not reveal which request ids exist.
const expiredMessage = "verification request is invalid or has expired"

type errorMapping struct {
	target error
	status int
	kind   string
	code   int
}

var errorMappings = []errorMapping{
	{domain.ErrInvalidFormat, http.StatusUnprocessableEntity, KindInvalidFormat, CodeInvalidFormat},
	{domain.ErrRejectedConsumerDomain, http.StatusUnprocessableEntity, KindRejectedConsumerDomain, CodeRejectedConsumerDomain},
	{domain.ErrExpiredRequest, http.StatusGone, KindExpiredRequest, CodeExpiredRequest},
	{domain.ErrTokenMismatch, http.StatusUnauthorized, KindTokenMismatch, CodeTokenMismatch},
	{domain.ErrUnauthorized, http.StatusUnauthorized, KindUnauthorized, 0},
	{domain.ErrForbidden, http.StatusForbidden, KindForbidden, 0},
	{domain.ErrNotFound, http.StatusNotFound, KindNotFound, 0},
	{domain.ErrConflict, http.StatusConflict, KindConflict, 0},
	{domain.ErrBadRequest, http.StatusBadRequest, KindBadRequest, 0},
}

// httpError maps a service error to a status and envelope. Unmapped errors are
// logged and reported as a generic 500.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			writeJSON(w, m.status, MessageEnvelope{Error: err.Error(), Kind: m.kind, ErrorCode: m.code})
			return
		}
	}
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	writeJSON(w, http.StatusInternalServerError, MessageEnvelope{Error: "internal server error", Kind: KindInternal})
}

func kindFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	}
	return KindInternal
}
