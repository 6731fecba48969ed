package api

import (
	"log/slog"
	"net/http"

	"seedkeeper/internal/auth"
	"seedkeeper/internal/models"
)

type OpsHandler struct {
	authService *auth.AuthService
}

func NewOpsHandler(authService *auth.AuthService) *OpsHandler {
	return &OpsHandler{authService: authService}
}

// HealthHandler reports liveness and whether a secret has been provisioned.
// A store that cannot be read makes the service unhealthy.
func (h *OpsHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	provisioned, err := h.authService.Provisioned()
	if err != nil {
		slog.Error("health check failed", "kind", models.Kind(err), "error", err)
		writeJSON(w, http.StatusServiceUnavailable, models.HealthResponse{Status: "unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, models.HealthResponse{Status: "ok", Provisioned: provisioned})
}
