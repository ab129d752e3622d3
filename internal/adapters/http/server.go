// Package http exposes the inbound surface of the bot: the Telegram webhook,
// a health probe and the metrics endpoint.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vkarpenko/slotbot/internal/adapters/telegram"
	"github.com/vkarpenko/slotbot/internal/logging"
	"github.com/vkarpenko/slotbot/pkg/domain"
)

// EventHandler is the engine-side contract the webhook drives.
type EventHandler interface {
	HandleEvent(ctx context.Context, userID string, ev domain.Event) error
}

// CallbackAnswerer acknowledges callback queries. Optional.
type CallbackAnswerer interface {
	AnswerCallback(ctx context.Context, callbackID string) error
}

// Server routes inbound webhook updates into the engine.
type Server struct {
	handler  EventHandler
	answerer CallbackAnswerer
	metrics  http.Handler
	secret   string
	logger   *slog.Logger
}

type Option func(*Server)

// WithSecret enables verification of the X-Telegram-Bot-Api-Secret-Token header.
func WithSecret(secret string) Option {
	return func(s *Server) {
		s.secret = secret
	}
}

// WithCallbackAnswerer wires callback acknowledgement.
func WithCallbackAnswerer(a CallbackAnswerer) Option {
	return func(s *Server) {
		s.answerer = a
	}
}

// WithMetricsHandler mounts the metrics endpoint.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for the bot.
func NewHandler(handler EventHandler, opts ...Option) http.Handler {
	s := &Server{
		handler: handler,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Post("/webhook", s.handleWebhook)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r
}

// handleWebhook acknowledges the update immediately and processes it in the
// background: backend calls can take up to two minutes, far beyond what
// Telegram waits for a webhook response. Per-user ordering is preserved by
// the session lock, not by the HTTP layer.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.secret != "" && r.Header.Get("X-Telegram-Bot-Api-Secret-Token") != s.secret {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	userID, ev, callbackID, ok := telegram.ParseUpdate(update)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	go func() {
		// A panicking handler must not take the whole process down; the
		// webhook has already been acknowledged at this point.
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("event handling panicked", "user_id", userID, "panic", r)
			}
		}()

		ctx := context.Background()

		if callbackID != "" && s.answerer != nil {
			if err := s.answerer.AnswerCallback(ctx, callbackID); err != nil {
				s.logger.Debug("answer callback failed", "err", err)
			}
		}

		if err := s.handler.HandleEvent(ctx, userID, ev); err != nil {
			s.logger.Error("event handling failed", "user_id", userID, "err", err)
		}
	}()

	w.WriteHeader(http.StatusOK)
}
