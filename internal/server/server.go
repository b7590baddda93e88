// Package server exposes the sniper over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"snipebot/internal/domain"
	"snipebot/internal/server/handler"
	"snipebot/internal/server/middleware"
)

// Rate limit applied to the trade-trigger endpoint per client IP.
const (
	tradeRateLimit  = 10
	tradeRateWindow = time.Minute
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIToken    string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health *handler.HealthHandler
	Sniper *handler.SniperHandler
	Trades *handler.TradesHandler
}

// Server is the headless HTTP API server for the sniper bot.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and rate-limits the trade
// endpoint when a limiter is provided.
func NewServer(cfg Config, handlers Handlers, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// The trade trigger moves funds; throttle it per client.
	var autoTrade http.Handler = http.HandlerFunc(handlers.Sniper.AutoTrade)
	if limiter != nil {
		autoTrade = middleware.RateLimit(limiter, tradeRateLimit, tradeRateWindow)(autoTrade)
	}
	mux.Handle("POST /api/sniper/auto-trade", autoTrade)

	// Trade history.
	mux.HandleFunc("GET /api/trades", handlers.Trades.ListTrades)

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIToken)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // swaps wait for on-chain confirmation
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
