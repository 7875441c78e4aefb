// Package rpc exposes the background context over HTTP so that other
// processes can send it messages.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/services"
	"github.com/custodia-labs/webstash/internal/logger"
)

// maxMessageBytes bounds a posted message. Imports carry base64 images.
const maxMessageBytes = 64 << 20

// Deliverer hands a message to the background context.
type Deliverer interface {
	Deliver(ctx context.Context, msg domain.Message) (*domain.Response, error)
}

// Server routes HTTP requests to the background context.
type Server struct {
	target  Deliverer
	origins []string
	log     logger.Logger
}

// NewServer creates a server that delivers to target. origins lists the
// browser origins allowed to post messages; none are allowed when empty.
func NewServer(target Deliverer, origins []string) *Server {
	return &Server{
		target:  target,
		origins: origins,
		log:     logger.With("rpc"),
	}
}

// Handler returns the HTTP handler.
//
//	GET  /healthz      liveness
//	POST /v1/messages  deliver one domain.Message, answer with its domain.Response
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/messages", s.handleMessage)

	if len(s.origins) == 0 {
		return r
	}

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
	return c.Handler(r)
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	s.log.Info("listening on %s", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMessage decodes a message and waits for the background context.
// Handler failures travel inside the 200 response; transport failures use
// HTTP status codes.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg domain.Message
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err := dec.Decode(&msg); err != nil {
		http.Error(w, fmt.Sprintf("invalid message: %v", err), http.StatusBadRequest)
		return
	}
	if msg.RequestID == "" || msg.Action == "" {
		http.Error(w, "action and requestId are required", http.StatusBadRequest)
		return
	}

	resp, err := s.target.Deliver(r.Context(), msg)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, services.ErrBackgroundStopped):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The client is gone; nobody reads this.
		s.log.Debug("request %s abandoned by client", msg.RequestID)
	default:
		s.log.Error("delivering %s: %v", msg.RequestID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
