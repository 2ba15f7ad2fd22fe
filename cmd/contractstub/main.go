// Command contractstub runs a minimal marketplace auth backend for local
// development and integration tests of the gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/servicehub/session-gateway/internal/core/service"
	"github.com/servicehub/session-gateway/internal/infrastructure/config"
	mongodb "github.com/servicehub/session-gateway/internal/infrastructure/db/mongo"
	stubhttp "github.com/servicehub/session-gateway/internal/infrastructure/http"
	"github.com/servicehub/session-gateway/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "contract-stub",
	})

	if cfg.Stub.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect")
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()

	repo := mongodb.NewAuthRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure auth indexes")
	}

	authService := service.NewAuthService(repo, cfg.Stub.JWTSecret, stubhttp.DefaultTokenTTL)
	e := stubhttp.NewRouter(authService, cfg.Stub.JWTSecret, log, mongodb.Pinger{Client: client})

	go func() {
		log.Info().Str("port", cfg.Stub.Port).Msg("contract stub listening")
		if err := e.Start(":" + cfg.Stub.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
