// Package server exposes the bot over HTTP: the Telegram webhook, the
// public balances page and its JSON API, metrics and a health check.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splitbot/internal/metrics"
	"github.com/mmynk/splitbot/internal/service"
	"github.com/mmynk/splitbot/internal/telegram"
)

// BalanceReader reads a group's balance sheet.
type BalanceReader interface {
	GetGroupBalances(ctx context.Context, groupUsername string) (*service.GroupBalances, error)
}

// Server routes HTTP requests to the service.
type Server struct {
	updates  telegram.Handler
	balances BalanceReader
	metrics  *metrics.Metrics
}

// New creates a Server. m may be nil, in which case /metrics is not served.
func New(updates telegram.Handler, balances BalanceReader, m *metrics.Metrics) *Server {
	return &Server{updates: updates, balances: balances, metrics: m}
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return h2c.NewHandler(loggingMiddleware(corsMiddleware(s.routes())), &http2.Server{})
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("GET /api/balances", s.handleGetBalances)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	mux.HandleFunc("GET /{$}", s.handleBalancesPage)
	return mux
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("HTTP server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
