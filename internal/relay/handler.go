package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wolfman30/lifevault-relay/internal/completion"
	"github.com/wolfman30/lifevault-relay/internal/observability/metrics"
	"github.com/wolfman30/lifevault-relay/internal/triage"
	"github.com/wolfman30/lifevault-relay/pkg/logging"
)

// Chatter is the relay operation the handler depends on.
type Chatter interface {
	Chat(ctx context.Context, uid string, turns []completion.Turn) (string, error)
}

// Handler exposes the relay and triage operations over HTTP.
type Handler struct {
	relay   Chatter
	logger  *logging.Logger
	metrics *metrics.RelayMetrics
}

// NewHandler creates a relay HTTP handler.
func NewHandler(relay Chatter, logger *logging.Logger, m *metrics.RelayMetrics) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{relay: relay, logger: logger, metrics: m}
}

type chatRequest struct {
	UID      string          `json:"uid"`
	Messages json.RawMessage `json:"messages"`
}

type chatResponse struct {
	Message string `json:"message"`
}

type triageRequest struct {
	Text string `json:"text"`
}

// triageResponse omits severity only when no marker was found, so a genuine
// zero still appears.
type triageResponse struct {
	Severity *int `json:"severity,omitempty"`
	Urgent   bool `json:"urgent"`
}

// Chat handles POST /api/ai/chat requests.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// An undecodable body carries no uid, so it fails as unregistered.
		h.logger.Warn("failed to decode chat request", "error", err)
		req = chatRequest{}
	}

	reply, err := h.relay.Chat(r.Context(), strings.TrimSpace(req.UID), decodeTurns(req.Messages))
	if err != nil {
		status, body, outcome := classify(err)
		h.metrics.ObserveChat(outcome)
		if status >= http.StatusInternalServerError {
			h.logger.Error("chat relay failed", "error", err, "uid", req.UID, "status", status)
		} else {
			h.logger.Warn("chat relay rejected", "error", err, "uid", req.UID, "status", status)
		}
		writeJSON(w, status, body)
		return
	}

	h.metrics.ObserveChat("ok")
	if assessment := triage.Assess(reply); assessment.Found {
		h.metrics.ObserveSeverity(assessment.Severity, assessment.Urgent)
	}
	writeJSON(w, http.StatusOK, chatResponse{Message: reply})
}

// Triage handles POST /api/ai/triage requests.
func (h *Handler) Triage(w http.ResponseWriter, r *http.Request) {
	var req triageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	result := triage.Assess(req.Text)
	resp := triageResponse{Urgent: result.Urgent}
	if result.Found {
		severity := result.Severity
		resp.Severity = &severity
		h.metrics.ObserveSeverity(result.Severity, result.Urgent)
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeTurns returns nil when messages is absent, not an array or holds
// non-object entries; the service reports that as an invalid request after
// the caller check.
func decodeTurns(raw json.RawMessage) []completion.Turn {
	if len(raw) == 0 {
		return nil
	}
	var turns []completion.Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil
	}
	return turns
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
