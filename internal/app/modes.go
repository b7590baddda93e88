package app

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"snipebot/internal/server"
	"snipebot/internal/server/handler"
	"snipebot/internal/sniper"
)

// shutdownGrace bounds how long in-flight HTTP requests may run after the
// context is cancelled.
const shutdownGrace = 10 * time.Second

// ServerMode runs the HTTP API until the context is cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIToken:    a.cfg.Server.APIToken,
		},
		server.Handlers{
			Health: handler.NewHealthHandler(a.logger),
			Sniper: handler.NewSniperHandler(deps.Orchestrator, a.logger),
			Trades: handler.NewTradesHandler(tradeLister(deps), a.logger),
		},
		deps.RateLimiter,
		a.logger,
	)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// OneshotMode reads one message from stdin, runs the full pipeline over it,
// prints the JSON outcome, and exits. Useful for smoke-testing extraction and
// execution without the HTTP surface.
func (a *App) OneshotMode(ctx context.Context, deps *Dependencies) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("app: read stdin: %w", err)
		}
		return fmt.Errorf("app: no input on stdin")
	}
	text := scanner.Text()

	cfg := deps.SniperDefaults
	resp, err := deps.Orchestrator.Snipe(ctx, sniper.Request{
		Text:   text,
		Config: &cfg,
		UserID: "default",
	})
	if err != nil {
		return fmt.Errorf("app: snipe: %w", err)
	}
	// The process exits right after printing; wait out any in-flight trade
	// confirmations instead of dropping them.
	deps.Orchestrator.Flush()

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("app: marshal response: %w", err)
	}
	fmt.Println(string(out))

	a.logger.InfoContext(ctx, "oneshot complete",
		slog.Int("trades", len(resp.Trades)),
		slog.String("reason", string(resp.Reason)),
	)
	return nil
}

// tradeLister adapts the optional trade store for the handler; a typed nil
// pointer must not leak into the interface.
func tradeLister(deps *Dependencies) handler.TradeLister {
	if deps.TradeStore == nil {
		return nil
	}
	return deps.TradeStore
}
