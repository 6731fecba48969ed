package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"seedkeeper/internal/auth"
	"seedkeeper/internal/models"
)

// Failure messages. Apart from missing input and an unprovisioned secret
// they do not say which step failed; the kind is logged instead. A body that
// is not JSON never reaches provisioning, so it is a 400 with msgInvalidBody
// on both POST routes rather than a provisioning failure.
const (
	msgDecryptionFailed   = "Decryption failed"
	msgNotProvisioned     = "Seed not decrypted yet"
	msgGenerationFailed   = "Generation failed"
	msgVerificationFailed = "Verification failed"
	msgMissingCode        = "Missing code"
	msgInvalidBody        = "Invalid request body"
)

type API struct {
	auth *auth.AuthService
}

func New(auth *auth.AuthService) *API {
	return &API{auth: auth}
}

func (a *API) DecryptSeedHandler(w http.ResponseWriter, r *http.Request) {
	var req models.DecryptSeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := a.auth.Provision(req.EncryptedSeed); err != nil {
		writeError(w, http.StatusInternalServerError, msgDecryptionFailed)
		return
	}

	writeJSON(w, http.StatusOK, models.StatusResponse{Status: "ok"})
}

func (a *API) Generate2FAHandler(w http.ResponseWriter, r *http.Request) {
	code, validFor, err := a.auth.Generate()
	if err != nil {
		writeError(w, http.StatusInternalServerError, failure(err, msgGenerationFailed))
		return
	}

	writeJSON(w, http.StatusOK, models.GenerateResponse{Code: code, ValidFor: validFor})
}

func (a *API) Verify2FAHandler(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if req.Code == nil || *req.Code == "" {
		writeError(w, http.StatusBadRequest, msgMissingCode)
		return
	}

	valid, err := a.auth.Verify(*req.Code)
	if err != nil {
		if errors.Is(err, models.ErrInput) {
			writeError(w, http.StatusBadRequest, msgMissingCode)
			return
		}
		writeError(w, http.StatusInternalServerError, failure(err, msgVerificationFailed))
		return
	}

	writeJSON(w, http.StatusOK, models.VerifyResponse{Valid: valid})
}

func failure(err error, fallback string) string {
	if errors.Is(err, models.ErrNotFound) {
		return msgNotProvisioned
	}
	return fallback
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
