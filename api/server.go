// Package api exposes the scheduling assistant over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/agents/orchestrator"
	nodex "github.com/tanpawarit/clinic-scheduling-assistant/agent/nodes"
)

const (
	Banner = "Appointment Scheduler Demo API v1.0.0!"

	maxBodyBytes = 64 << 10
)

// TurnHandler runs one conversational turn.
type TurnHandler interface {
	HandleMessage(ctx context.Context, threadID, text string) (orchestrator.Reply, error)
}

type Config struct {
	RatePerMinute int
	Now           func() time.Time
	NewThreadID   func() string
}

type ChatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id,omitempty"`
}

type ChatResponse struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
	Pending  string `json:"pending,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	turns       TurnHandler
	limiter     *threadLimiter
	newThreadID func() string
}

func NewServer(turns TurnHandler, cfg Config) *Server {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewThreadID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Server{
		turns:       turns,
		limiter:     newThreadLimiter(cfg.RatePerMinute, now),
		newThreadID: newID,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": Banner})
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/chat", s.chat)
	return r
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	threadID := strings.TrimSpace(req.ThreadID)
	if threadID == "" {
		threadID = s.newThreadID()
	}
	if !s.limiter.Allow(threadID) {
		log.Warn().Str("thread_id", threadID).Msg("rate limit exceeded")
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many messages, please slow down"})
		return
	}

	reply, err := s.turns.HandleMessage(r.Context(), threadID, req.Message)
	switch {
	case err == nil:
	case errors.Is(err, orchestrator.ErrInvalidMessage), errors.Is(err, orchestrator.ErrInvalidThread):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, context.Canceled):
		return
	default:
		log.Error().Err(err).Str("thread_id", threadID).Msg("chat turn failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: nodex.TroubleMessage})
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Message:  reply.Message,
		ThreadID: threadID,
		Pending:  reply.Pending,
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		log.Info().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(started)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
