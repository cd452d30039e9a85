package handler

import (
	"net/http"
	"time"

	"github.com/otp-api-nosql/internal/application/cleanup"
)

// MaintenanceHandler exposes the expiry sweep as an on-demand
// operation. The same sweep runs periodically in the background; this
// endpoint exists for operators who want one now.
type MaintenanceHandler struct {
	svc cleanup.Service
}

func NewMaintenanceHandler(svc cleanup.Service) *MaintenanceHandler {
	return &MaintenanceHandler{svc: svc}
}

func (h *MaintenanceHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.Sweep(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}
	writeJSON(w, http.StatusOK, SweepEnvelope{Deleted: deleted})
}
