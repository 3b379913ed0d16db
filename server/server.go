// Package server exposes the advisor over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/threatdesk/threatdesk/core"
	"github.com/threatdesk/threatdesk/internal/util"
	"github.com/threatdesk/threatdesk/logging"
)

// Advisor is the engine surface the server needs.
type Advisor interface {
	Chat(ctx context.Context, threadID, message string) (*core.TurnResult, error)
}

// ChatRequest is the inbound body for POST /v1/chat.
type ChatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
}

// ChatResponse is the success body for POST /v1/chat.
type ChatResponse struct {
	Response  string   `json:"response"`
	AgentName string   `json:"agent_name"`
	AgentRole string   `json:"agent_role"`
	ToolsUsed []string `json:"tools_used"`
	ThreadID  string   `json:"thread_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Options configures the server.
type Options struct {
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Server routes HTTP requests to the advisor. Error bodies carry user-safe
// messages only; internal details stay in the logs.
type Server struct {
	advisor Advisor
	logger  logging.Logger
	mux     *http.ServeMux
}

// New constructs a Server.
func New(advisor Advisor, optFns ...func(o *Options)) *Server {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{advisor: advisor, logger: opts.Logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /v1/chat", s.handleChat)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe blocks serving HTTP until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.logger.Info("server.listening", "addr", addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request body must be JSON with a message field"})
		return
	}

	threadID := req.ThreadID
	if threadID == "" {
		threadID = util.NewID()
	}

	result, err := s.advisor.Chat(r.Context(), threadID, req.Message)
	if err != nil {
		status, msg := classifyError(err)
		s.logger.Warn("server.chat.failed", "status", status, "error", err.Error())
		writeJSON(w, status, errorResponse{Error: msg})
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Response:  result.Response,
		AgentName: result.AgentName,
		AgentRole: result.AgentRole,
		ToolsUsed: result.ToolsUsed,
		ThreadID:  threadID,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// classifyError maps engine failures onto status codes and user-safe
// messages. Raw upstream errors never reach the client.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrInvalidQuery):
		return http.StatusBadRequest, "Please provide a non-empty message."
	case errors.Is(err, core.ErrRequestTimeout):
		return http.StatusGatewayTimeout, "Sorry, the request took too long to process. Please try again."
	case errors.Is(err, core.ErrModelTimeout), errors.Is(err, core.ErrModelUnavailable):
		return http.StatusBadGateway, "Sorry, our analysis service is temporarily unreachable. Please try again shortly."
	case errors.Is(err, core.ErrAllSpecialistsFailed), errors.Is(err, core.ErrSpecialistFailed):
		return http.StatusServiceUnavailable, "Sorry, we could not complete the analysis. Please try again shortly."
	default:
		return http.StatusInternalServerError, "Sorry, something went wrong on our side."
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
