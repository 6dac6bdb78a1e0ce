package completion

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResponse is returned when the service succeeds but yields no text.
var ErrEmptyResponse = errors.New("completion: empty response from upstream")

// UpstreamError describes a failed call to the completion service: a
// non-success status, a transport failure (Status 0) or a timeout (Status 504).
type UpstreamError struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	b.WriteString("completion: ")
	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(" ")
	}
	b.WriteString("upstream failed")
	if e.Status > 0 {
		fmt.Fprintf(&b, " with status %d", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// upstreamMessage pulls a readable message out of an error body. OpenRouter
// and OpenAI-compatible services use {"error":{"message":...}}; some proxies
// send {"error":"..."} or {"message":"..."}.
func upstreamMessage(body []byte) string {
	var structured struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &structured); err == nil {
		if len(structured.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(structured.Error, &nested); err == nil && nested.Message != "" {
				return nested.Message
			}
			var plain string
			if err := json.Unmarshal(structured.Error, &plain); err == nil && plain != "" {
				return plain
			}
		}
		if structured.Message != "" {
			return structured.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 512 {
		text = text[:512]
	}
	return text
}
