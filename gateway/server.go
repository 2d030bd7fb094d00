// Package gateway exposes the HTTP surface: the webhook endpoint the
// messaging provider posts to, plus health and metrics.
package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studiobotics/attendant/botengine/event"
)

// Logger is the minimal logging interface used by this package.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// EventSink consumes classified webhook envelopes.
type EventSink interface {
	HandleEvent(ctx context.Context, e *event.Envelope)
}

// ServerConfig tunes the HTTP surface.
type ServerConfig struct {
	// WebhookToken, when set, must match the request's "apikey" header.
	WebhookToken string
	// MaxBodyBytes caps the webhook body. Defaults to 1 MiB.
	MaxBodyBytes int64
}

// Server routes the three endpoints. It implements http.Handler.
type Server struct {
	sink    EventSink
	cfg     ServerConfig
	logger  Logger
	metrics http.Handler
}

func NewServer(sink EventSink, cfg ServerConfig, logger Logger) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return &Server{
		sink:    sink,
		cfg:     cfg,
		logger:  logger,
		metrics: promhttp.Handler(),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/health" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case r.URL.Path == "/metrics" && r.Method == http.MethodGet:
		s.metrics.ServeHTTP(w, r)
	case r.URL.Path == "/webhook" && r.Method == http.MethodPost:
		s.handleWebhook(w, r)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "route not found"})
	}
}

// handleWebhook acknowledges before processing: the provider retries
// non-200 responses, and a retry storm of half-processed events is worse
// than occasionally losing one to a crash mid-handling.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.cfg.WebhookToken != "" && r.Header.Get("apikey") != s.cfg.WebhookToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		s.logger.Warn("webhook_body_read_failed", "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	var env event.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		s.logger.Warn("webhook_body_invalid", "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
	s.sink.HandleEvent(r.Context(), &env)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
