package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threatdesk/threatdesk/core"
)

type fakeAdvisor struct {
	result *core.TurnResult
	err    error

	gotThreadID string
	gotMessage  string
}

func (f *fakeAdvisor) Chat(_ context.Context, threadID, message string) (*core.TurnResult, error) {
	f.gotThreadID = threadID
	f.gotMessage = message
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func post(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestChatSuccess(t *testing.T) {
	advisor := &fakeAdvisor{result: &core.TurnResult{
		Response:    "Isolate the host.",
		AgentName:   "Sarah Chen",
		AgentRole:   "incident_response",
		ToolsUsed:   []string{"ioc_analysis"},
		CompletedAt: time.Now(),
	}}
	s := New(advisor)

	rec := post(t, s, `{"message": "ransomware help", "thread_id": "t-9"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Isolate the host.", resp.Response)
	assert.Equal(t, "Sarah Chen", resp.AgentName)
	assert.Equal(t, []string{"ioc_analysis"}, resp.ToolsUsed)
	assert.Equal(t, "t-9", resp.ThreadID)
	assert.Equal(t, "t-9", advisor.gotThreadID)
	assert.Equal(t, "ransomware help", advisor.gotMessage)
}

func TestChatGeneratesThreadID(t *testing.T) {
	advisor := &fakeAdvisor{result: &core.TurnResult{Response: "hi"}}
	s := New(advisor)

	rec := post(t, s, `{"message": "hello"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ThreadID)
	assert.Equal(t, resp.ThreadID, advisor.gotThreadID)
}

func TestChatMalformedBody(t *testing.T) {
	s := New(&fakeAdvisor{})

	rec := post(t, s, `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid query", core.ErrInvalidQuery, http.StatusBadRequest},
		{"request timeout", core.ErrRequestTimeout, http.StatusGatewayTimeout},
		{"model unavailable", core.ErrModelUnavailable, http.StatusBadGateway},
		{"all specialists failed", core.ErrAllSpecialistsFailed, http.StatusServiceUnavailable},
		{"specialist failed", core.ErrSpecialistFailed, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New(&fakeAdvisor{err: tc.err})

			rec := post(t, s, `{"message": "x", "thread_id": "t"}`)

			assert.Equal(t, tc.status, rec.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotContains(t, resp.Error, tc.err.Error(),
				"internal error text must not leak to the client")
		})
	}
}

func TestHealthz(t *testing.T) {
	s := New(&fakeAdvisor{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
