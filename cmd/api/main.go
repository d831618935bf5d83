// Package main is the entry point for the tag league API server.
// Its sole responsibility is wiring dependencies together and starting the
// server. No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/mkallio/tag-league/backend/internal/config"
	"github.com/mkallio/tag-league/backend/internal/handler"
	"github.com/mkallio/tag-league/backend/internal/middleware"
	"github.com/mkallio/tag-league/backend/internal/repo"
	"github.com/mkallio/tag-league/backend/internal/service"
	"github.com/mkallio/tag-league/backend/internal/worker"
)

func main() {
	// --- Config -----------------------------------------------------------
	// .env is a local development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	// JSON handler writes machine-readable output suitable for log aggregators.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately — the first query does.
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(context.Background()); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	// --- Services ---------------------------------------------------------
	runner := repo.NewRunner(pool)
	engine := service.NewTagEngine(runner, logger)
	bets := service.NewSlogBetForfeiter(logger)
	participations := service.NewParticipationService(runner, engine, bets)
	cards := service.NewCardService(runner, engine, logger)
	eligibility := service.NewEligibilityService(runner)
	standings := service.NewStandingsService(runner, eligibility)

	// --- Stale score watchdog ---------------------------------------------
	// Observability only: flags scores stuck awaiting confirmation, never
	// mutates them.
	watcher := worker.NewStaleWatcher(standings, cfg.StaleScoreWindow, cfg.StaleCheckInterval, logger)
	if err := watcher.Start(); err != nil {
		slog.Error("failed to start stale score watcher", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := watcher.Stop(); err != nil {
			slog.Error("stale score watcher shutdown error", "error", err)
		}
	}()

	// --- Router -----------------------------------------------------------
	// Middleware order: RequestID → RealIP → Logger → Recoverer → CORS →
	// Identity → body cap. Identity runs after logging so the player id is
	// available as a log attribute on the way out.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.Identity)
	r.Use(middleware.MaxBodySize(middleware.DefaultMaxBodyBytes))

	srvHandlers := handler.NewServer(participations, cards, standings)
	r.Mount("/", srvHandlers.Routes())

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
