package handler

import (
	"net/http"

	"github.com/sandeepkv93/secure-login-portal/internal/health"
	"github.com/sandeepkv93/secure-login-portal/internal/http/response"
)

type HealthHandler struct {
	probes *health.ProbeRunner
}

func NewHealthHandler(probes *health.ProbeRunner) *HealthHandler {
	return &HealthHandler{probes: probes}
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ready, checks := h.probes.Ready(r.Context())
	if !ready {
		response.Error(w, r, http.StatusServiceUnavailable, "NOT_READY", "dependencies unavailable", checks)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": checks})
}
