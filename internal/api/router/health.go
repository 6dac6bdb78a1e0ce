package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wolfman30/lifevault-relay/pkg/logging"
)

// CallerCounter reports how many callers are registered.
type CallerCounter interface {
	Size(ctx context.Context) (int, error)
}

type healthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Users     int    `json:"users"`
}

// healthHandler always answers 200. A failing count degrades the status
// instead of failing the probe.
func healthHandler(counter CallerCounter, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:    "ok",
			Message:   "LifeVault backend is running",
			Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		}
		if counter != nil {
			users, err := counter.Size(r.Context())
			if err != nil {
				logger.Error("health: failed to count callers", "error", err)
				resp.Status = "degraded"
			} else {
				resp.Users = users
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
