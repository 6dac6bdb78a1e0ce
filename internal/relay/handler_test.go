package relay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/lifevault-relay/internal/completion"
	"github.com/wolfman30/lifevault-relay/internal/observability/metrics"
	"github.com/wolfman30/lifevault-relay/pkg/logging"
)

func postJSON(t *testing.T, handler http.HandlerFunc, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return rec, payload
}

func TestHandlerChatSuccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewRelayMetrics(reg)
	client := &fakeClient{reply: "See a doctor now.\n**Severity: 9/10**"}
	svc := NewService(registeredCallers(t, "u1"), client, Options{}, logging.Discard(), m)
	h := NewHandler(svc, logging.Discard(), m)

	rec, payload := postJSON(t, h.Chat, `{"uid":"u1","messages":[{"role":"user","content":"chest pain"}]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "See a doctor now.\n**Severity: 9/10**", payload["message"])

	count, err := testutil.GatherAndCount(reg, "lifevault_triage_severity")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHandlerChatErrors(t *testing.T) {
	upErr := &completion.UpstreamError{Provider: "fake", Status: 401, Message: "invalid api key"}

	cases := []struct {
		name     string
		client   completion.Client
		body     string
		status   int
		message  string
		upstream float64
	}{
		{name: "unregistered", client: &fakeClient{reply: "ok"}, body: `{"uid":"ghost","messages":[{"role":"user","content":"hi"}]}`, status: 401, message: "User not logged in"},
		{name: "undecodable body", client: &fakeClient{reply: "ok"}, body: `{`, status: 401, message: "User not logged in"},
		{name: "messages absent", client: &fakeClient{reply: "ok"}, body: `{"uid":"u1"}`, status: 400, message: "Messages required"},
		{name: "messages not array", client: &fakeClient{reply: "ok"}, body: `{"uid":"u1","messages":"hello"}`, status: 400, message: "Messages required"},
		{name: "messages empty", client: &fakeClient{reply: "ok"}, body: `{"uid":"u1","messages":[]}`, status: 400, message: "Messages required"},
		{name: "no credential", client: nil, body: `{"uid":"u1","messages":[{"role":"user","content":"hi"}]}`, status: 500, message: "AI key missing"},
		{name: "upstream", client: &fakeClient{err: upErr}, body: `{"uid":"u1","messages":[{"role":"user","content":"hi"}]}`, status: 502, message: "AI failed: invalid api key", upstream: 401},
		{name: "empty reply", client: &fakeClient{err: completion.ErrEmptyResponse}, body: `{"uid":"u1","messages":[{"role":"user","content":"hi"}]}`, status: 502, message: "AI returned an empty response"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(registeredCallers(t, "u1"), tc.client, Options{}, logging.Discard(), nil)
			h := NewHandler(svc, logging.Discard(), nil)

			rec, payload := postJSON(t, h.Chat, tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.message, payload["error"])
			if tc.upstream != 0 {
				assert.Equal(t, tc.upstream, payload["upstream_status"])
			} else {
				assert.NotContains(t, payload, "upstream_status")
			}
		})
	}
}

func TestHandlerChatHidesInternalErrors(t *testing.T) {
	svc := NewService(brokenAuthorizer{}, &fakeClient{reply: "ok"}, Options{}, logging.Discard(), nil)
	h := NewHandler(svc, logging.Discard(), nil)

	rec, payload := postJSON(t, h.Chat, `{"uid":"u1","messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", payload["error"])
}

func TestHandlerTriage(t *testing.T) {
	h := NewHandler(NewService(registeredCallers(t), nil, Options{}, logging.Discard(), nil), logging.Discard(), nil)

	rec, payload := postJSON(t, h.Triage, `{"text":"Rest and fluids.\n**Severity: 8/10**"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(8), payload["severity"])
	assert.Equal(t, true, payload["urgent"])

	_, payload = postJSON(t, h.Triage, `{"text":"Severity: 0/10"}`)
	assert.Equal(t, float64(0), payload["severity"])
	assert.Equal(t, false, payload["urgent"])

	_, payload = postJSON(t, h.Triage, `{"text":"no marker here"}`)
	assert.NotContains(t, payload, "severity")
	assert.Equal(t, false, payload["urgent"])

	rec, _ = postJSON(t, h.Triage, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
