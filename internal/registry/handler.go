package registry

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/lifevault-relay/pkg/logging"
)

// Handler handles HTTP requests for caller registration
type Handler struct {
	registry *Registry
	logger   *logging.Logger
}

// NewHandler creates a new registration handler
func NewHandler(registry *Registry, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{registry: registry, logger: logger}
}

// RegisterUser handles POST /api/register-user requests
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode register request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.registry.Register(r.Context(), req); err != nil {
		if errors.Is(err, ErrValidation) {
			writeError(w, http.StatusBadRequest, ValidationMessage(err))
			return
		}
		h.logger.Error("failed to register caller", "error", err, "uid", req.UID)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetCaller handles GET /admin/callers/{uid} requests
func (h *Handler) GetCaller(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	caller, err := h.registry.Lookup(r.Context(), uid)
	if err != nil {
		if errors.Is(err, ErrCallerNotFound) {
			writeError(w, http.StatusNotFound, "caller not found")
			return
		}
		h.logger.Error("failed to load caller", "error", err, "uid", uid)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, caller)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
