package relay

import (
	"errors"
	"net/http"

	"github.com/wolfman30/lifevault-relay/internal/completion"
)

var (
	// ErrUnauthorized is returned when the caller has not registered.
	ErrUnauthorized = errors.New("relay: caller not registered")

	// ErrInvalidRequest is returned when the conversation is missing or malformed.
	ErrInvalidRequest = errors.New("relay: messages required")

	// ErrServiceUnavailable is returned when no completion credential is configured.
	ErrServiceUnavailable = errors.New("relay: completion service not configured")

	// ErrEmptyUpstreamResponse is returned when the service produced no text.
	ErrEmptyUpstreamResponse = completion.ErrEmptyResponse
)

// errorResponse is the JSON body written for every failed relay call.
type errorResponse struct {
	Error          string `json:"error"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

// classify maps a relay error to its HTTP status, user-visible body and
// metrics outcome label. Unknown errors are internal and leak no detail.
func classify(err error) (int, errorResponse, string) {
	var upErr *completion.UpstreamError
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorResponse{Error: "User not logged in"}, "unauthorized"
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorResponse{Error: "Messages required"}, "invalid_request"
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusInternalServerError, errorResponse{Error: "AI key missing"}, "unavailable"
	case errors.Is(err, ErrEmptyUpstreamResponse):
		return http.StatusBadGateway, errorResponse{Error: "AI returned an empty response"}, "empty_upstream"
	case errors.As(err, &upErr):
		body := errorResponse{Error: "AI failed", UpstreamStatus: upErr.Status}
		if upErr.Message != "" {
			body.Error = "AI failed: " + upErr.Message
		}
		return http.StatusBadGateway, body, "upstream_error"
	default:
		return http.StatusInternalServerError, errorResponse{Error: "Internal server error"}, "internal_error"
	}
}
