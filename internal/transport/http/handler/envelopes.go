package handler

import (
	"encoding/json"
	"net/http"
)

// IssueEnvelope wraps issuance responses. DevMode/DevOTP appear only on
// the degraded path where no delivery channel is configured.
type IssueEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	DevMode bool   `json:"devMode,omitempty"`
	DevOTP  string `json:"devOtp,omitempty"`
}

// VerifyEnvelope wraps verification responses.
type VerifyEnvelope struct {
	Verified          bool   `json:"verified"`
	Message           string `json:"message"`
	VerificationToken string `json:"verificationToken,omitempty"`
}

// SweepEnvelope wraps maintenance sweep responses.
type SweepEnvelope struct {
	Deleted int `json:"deleted"`
}

// MessageEnvelope is the generic response wrapper for everything else.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
