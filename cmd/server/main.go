package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/kingdom-capitals/internal/auth"
	"github.com/freeeve/kingdom-capitals/internal/config"
	"github.com/freeeve/kingdom-capitals/internal/handler"
	"github.com/freeeve/kingdom-capitals/internal/logger"
	"github.com/freeeve/kingdom-capitals/internal/middleware"
	"github.com/freeeve/kingdom-capitals/internal/repository/memory"
	"github.com/freeeve/kingdom-capitals/internal/repository/postgres"
	redisrepo "github.com/freeeve/kingdom-capitals/internal/repository/redis"
	"github.com/freeeve/kingdom-capitals/internal/repository/sqlite"
	"github.com/freeeve/kingdom-capitals/internal/service"
)

func main() {
	logger.Init()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log.Info().
		Str("scenario", cfg.ScenarioPath).
		Str("journal", cfg.JournalDriver).
		Bool("mirror", cfg.RedisURL != "").
		Msg("Config loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// World
	sc, err := memory.LoadScenario(cfg.ScenarioPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Scenario load failed")
	}
	world := memory.NewWorld(sc)

	wsHub := handler.NewHub()
	opts := []service.Option{
		service.WithNotifier(wsHub),
		service.WithSeed(cfg.RNGSeed),
	}

	// Journal
	switch cfg.JournalDriver {
	case config.JournalSQLite:
		journal, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("SQLite journal open failed")
		}
		defer journal.Close()
		opts = append(opts, service.WithJournal(journal))
	case config.JournalPostgres:
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer db.Close()
		opts = append(opts, service.WithJournal(postgres.NewJournal(db)))
	}

	// Redis mirror
	if cfg.RedisURL != "" {
		mirror, err := redisrepo.NewClient(ctx, cfg.RedisURL, redisrepo.DefaultPrefix)
		if err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		defer mirror.Close()
		opts = append(opts, service.WithMirror(mirror))
	}

	session := service.NewSession(world, cfg.Settings, opts...)

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)

	// Handlers
	sessionHandler := handler.NewSessionHandler(session, wsHub)
	eventHandler := handler.NewEventHandler(session, wsHub)
	capitalHandler := handler.NewCapitalHandler(session)
	wsHandler := handler.NewWSHandler(wsHub, jwtMgr)

	// Router
	mux := http.NewServeMux()
	authMw := auth.RequireHost(jwtMgr)

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Protected API routes
	api := http.NewServeMux()
	api.HandleFunc("GET /session", sessionHandler.GetSession)
	api.HandleFunc("POST /session/start", sessionHandler.Start)
	api.HandleFunc("POST /session/end", sessionHandler.End)
	api.HandleFunc("POST /ticks", sessionHandler.Tick)
	api.HandleFunc("POST /events/ownership-changed", eventHandler.OwnershipChanged)
	api.HandleFunc("POST /events/leader-died", eventHandler.LeaderDied)
	api.HandleFunc("POST /events/clan-changed-faction", eventHandler.ClanChangedFaction)
	api.HandleFunc("POST /distribution/review", eventHandler.ReviewDistribution)
	api.HandleFunc("GET /capitals", capitalHandler.ListCapitals)
	api.HandleFunc("GET /capitals/{factionId}", capitalHandler.GetCapital)
	api.HandleFunc("GET /settlements/{id}/capital", capitalHandler.SettlementStatus)
	api.HandleFunc("GET /captures", capitalHandler.ListCaptures)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", authMw(api)))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.Recover, middleware.CORS("*"), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("sessionId", session.ID()).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	cancel()
	session.End(context.Background())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}
