package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/otp-api-nosql/internal/application/verification"
	"github.com/otp-api-nosql/internal/domain"
)

const genericFailureMessage = "something went wrong, please try again later"

// OTPHandler handles verification-code issuance and verification.
type OTPHandler struct {
	svc verification.Service
	// devDetail controls whether infrastructure error detail reaches the
	// response body. Only ever true in development.
	devDetail bool
}

func NewOTPHandler(svc verification.Service, devDetail bool) *OTPHandler {
	return &OTPHandler{svc: svc, devDetail: devDetail}
}

func (h *OTPHandler) Action(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "issue":
		h.issue(w, r)
	case "verify":
		h.verify(w, r)
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}

func (h *OTPHandler) issue(w http.ResponseWriter, r *http.Request) {
	var req verification.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, IssueEnvelope{Success: false, Message: "invalid request body"})
		return
	}
	result, err := h.svc.Issue(r.Context(), req)
	if err != nil {
		status, msg := h.mapError(err)
		writeJSON(w, status, IssueEnvelope{Success: false, Message: msg})
		return
	}
	writeJSON(w, http.StatusOK, IssueEnvelope{
		Success: true,
		Message: result.Message,
		DevMode: result.DevMode,
		DevOTP:  result.DevOTP,
	})
}

func (h *OTPHandler) verify(w http.ResponseWriter, r *http.Request) {
	var req verification.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, VerifyEnvelope{Verified: false, Message: "invalid request body"})
		return
	}
	result, err := h.svc.Verify(r.Context(), req)
	if err != nil {
		status, msg := h.mapError(err)
		writeJSON(w, status, VerifyEnvelope{Verified: false, Message: msg})
		return
	}
	writeJSON(w, http.StatusOK, VerifyEnvelope{
		Verified:          true,
		Message:           result.Message,
		VerificationToken: result.ProofToken,
	})
}

// mapError turns a service error into an HTTP status and a user-facing
// message. Validation, not-found and expired messages pass through
// verbatim; infrastructure detail is withheld outside development.
func (h *OTPHandler) mapError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrExpired):
		return http.StatusGone, err.Error()
	case errors.Is(err, domain.ErrDeliveryFailed):
		if h.devDetail {
			return http.StatusBadGateway, err.Error()
		}
		return http.StatusBadGateway, "could not send verification email"
	default:
		if h.devDetail {
			return http.StatusInternalServerError, err.Error()
		}
		return http.StatusInternalServerError, genericFailureMessage
	}
}
