package handler

import (
	"errors"
	"net/http"

	"github.com/jobportal-api/internal/application/recruiter"
	"github.com/jobportal-api/internal/domain"
	"github.com/jobportal-api/internal/pkg/validate"
	"github.com/jobportal-api/internal/transport/http/middleware"
)

// CompanyVerificationHandler exposes the recruiter promotion workflow.
type CompanyVerificationHandler struct {
	svc recruiter.Service
}

func NewCompanyVerificationHandler(svc recruiter.Service) *CompanyVerificationHandler {
	return &CompanyVerificationHandler{svc: svc}
}

// Submit starts a verification for the caller. 202 when a challenge was issued,
// 200 when the account is already a verified recruiter.
func (h *CompanyVerificationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.CompanyVerificationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.Submit(r.Context(), claims.UserID, req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	status := http.StatusAccepted
	if res.AlreadyVerified {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (h *CompanyVerificationHandler) Pending(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	v, err := h.svc.Pending(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Complete redeems a challenge. Unknown and expired requests get the same 410.
func (h *CompanyVerificationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req domain.CompleteVerificationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		httpError(w, r, err)
		return
	}
	res, err := h.svc.CompleteChallenge(r.Context(), req.RequestID, req.Token)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrExpiredRequest) {
		writeJSON(w, http.StatusGone, MessageEnvelope{
			Error:     expiredMessage,
			Kind:      KindExpiredRequest,
			ErrorCode: CodeExpiredRequest,
		})
		return
	}
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CompanyVerificationHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ReconcileExpired(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ReconcileEnvelope{Expired: n, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ReconcileEnvelope{Expired: n})
}
