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
	"github.com/go-chi/chi/v5/middleware"

	"liveqa/internal/auth"
	"liveqa/internal/broadcast"
	"liveqa/internal/config"
	"liveqa/internal/db"
	"liveqa/internal/handlers"
	"liveqa/internal/notify"
	"liveqa/internal/observability"
	"liveqa/internal/presence"
	"liveqa/internal/telemetry"
	"liveqa/pkg/realtime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.Level())
	slog.SetDefault(logger)

	ctx := context.Background()
	tel, err := telemetry.NewProvider(ctx, cfg.OTLPEndpoint, "liveqa", cfg.OTLPInsecure)
	if err != nil {
		logger.Error("telemetry", "error", err)
		os.Exit(1)
	}
	tel.SetGlobal()

	store, closeStore, err := openPresenceStore(cfg, logger)
	if err != nil {
		logger.Error("presence store", "error", err)
		os.Exit(1)
	}

	reg := realtime.NewRegistry(cfg.OutboxSize)

	// Everything that emits holds the handle; the dispatcher is attached
	// once the registry and meter exist.
	emitter := broadcast.NewHandle(nil, logger)
	tracker := presence.NewTracker(store, emitter, logger, cfg.Presence())
	mapper := notify.New(emitter,
		notify.WithCache(notify.NewCache(cfg.CacheSize)),
		notify.WithLogger(logger),
		notify.WithRestrictedContent(cfg.RestrictedContent),
	)
	emitter.Set(broadcast.New(reg,
		broadcast.WithLogger(logger),
		broadcast.WithMeter(tel.MeterProvider.Meter("liveqa/broadcast")),
	))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	liveOpts := []handlers.LiveOption{handlers.WithPingInterval(cfg.Ping())}
	if cfg.JWTSecret != "" {
		verifier := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
		liveOpts = append(liveOpts, handlers.WithAuthenticator(verifier.Authenticate))
	} else {
		logger.Warn("JWT_SECRET not set, trusting client-claimed user ids")
	}
	handlers.NewLiveHandler(reg, tracker, logger, liveOpts...).RegisterRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		handlers.NewPresenceHandler(tracker, reg).RegisterRoutes(r)
		handlers.NewNotifyHandler(mapper, cfg.NotifyToken, logger).RegisterRoutes(r)
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", cfg.Addr, "restricted_content", cfg.RestrictedContent)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if err := closeStore(); err != nil {
		logger.Warn("presence store close", "error", err)
	}
	_ = tel.Shutdown(shutdownCtx)
}

// openPresenceStore picks the durable store when DATABASE_URL is set. SQLite
// databases get their schema created in place; Postgres is migrated with
// cmd/migrate.
func openPresenceStore(cfg *config.Config, logger *slog.Logger) (presence.Store, func() error, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, participants kept in memory")
		return presence.NewMemoryStore(), func() error { return nil }, nil
	}
	conn, err := db.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseDriver == db.DriverSQLite {
		if err := db.CreateSchema(conn); err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
	}
	return presence.NewSQLStore(conn), conn.Close, nil
}
