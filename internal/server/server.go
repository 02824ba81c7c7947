// Package server exposes the inbound HTTP surface: the LINE webhook endpoint
// and the health probe.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ayato/linegpt-go/internal/line"
)

// Sink receives verified webhook batches for asynchronous processing.
type Sink interface {
	EnqueueBatch(batch line.WebhookBatch)
}

// Config holds the listener settings.
type Config struct {
	Port          int
	WebhookPath   string
	ChannelSecret string
}

// Server is the inbound HTTP server. The webhook handler does signature
// verification and nothing else before responding: the platform enforces a
// short acknowledgment deadline, so all real work is detached behind the
// Sink.
type Server struct {
	cfg    Config
	sink   Sink
	logger *zap.Logger
	http   *http.Server
}

// New creates the server.
func New(cfg Config, sink Sink, logger *zap.Logger) *Server {
	if cfg.WebhookPath == "" {
		cfg.WebhookPath = "/webhook/line"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}

	s := &Server{cfg: cfg, sink: sink, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.WebhookPath, s.handleWebhook)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.recoverer(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("http server starting",
		zap.Int("port", s.cfg.Port),
		zap.String("webhook_path", s.cfg.WebhookPath))

	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}

// handleWebhook acknowledges a verified delivery immediately, then hands the
// raw body to a detached goroutine for parsing and dispatch. Response latency
// is bounded by the HMAC check alone.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB max
	defer r.Body.Close()
	if err != nil || len(body) == 0 {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	sig := r.Header.Get("X-Line-Signature")
	if !line.ValidateSignature(s.cfg.ChannelSecret, body, sig) {
		s.logger.Warn("webhook signature rejected", zap.Int("body_len", len(body)))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	w.WriteHeader(http.StatusOK)

	go s.ingest(body)
}

// ingest parses and enqueues a verified body. Runs after the 200 has been
// written, so failures here can only be logged and dropped.
func (s *Server) ingest(body []byte) {
	var batch line.WebhookBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		s.logger.Error("webhook batch parse failed", zap.Error(err))
		return
	}
	s.logger.Info("webhook batch accepted", zap.Int("events", len(batch.Events)))
	s.sink.EnqueueBatch(batch)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// recoverer converts a handler panic into a 500 when no response has been
// written yet.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("handler panic", zap.Any("panic", rec))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
