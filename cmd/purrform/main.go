package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"purrform/internal/config"
	"purrform/internal/logger"
	"purrform/internal/mysql"
	"purrform/internal/routing"
	"purrform/pkg/backend"
	"purrform/pkg/geocode"
	"purrform/pkg/middleware"
	"purrform/pkg/session"
	"purrform/pkg/token"
	"purrform/pkg/user"
)

func main() {
	cfg := config.Load() // exits when SESSION_SECRET or another required key is missing

	logger := logger.Load(cfg.LogLevel, cfg.LogFile)

	codec, err := token.New(cfg.SessionSecret, token.WithLogger(logger))
	if err != nil {
		log.Fatalf("Session codec: %v", err)
	}

	db := mysql.LoadDB(cfg.MySQLDSN)
	defer db.Close()

	h := routing.NewHandler(routing.Deps{
		Users:        user.NewService(user.NewMySQLRepo(db)),
		Sessions:     session.NewManager(codec, session.WithLogger(logger)),
		Backend:      backend.NewClient(cfg.BackendURL, cfg.BackendAPIKey, cfg.UpstreamTimeout),
		Geocoder:     geocode.NewClient(cfg.GeocodingURL, cfg.GeocodingAPIKey, cfg.UpstreamTimeout),
		LoginLimiter: middleware.NewIPRateLimiter(cfg.LoginRatePerMinute, cfg.TrustedProxies...),
		Logger:       logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := routing.StartServer(ctx, cfg.ListenAddr, h, logger); err != nil {
		log.Fatal("Server failed:", err)
	}
	logger.Info("server stopped")
}
