// Command gateway runs the session gateway in front of the marketplace backend.
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

	"github.com/rs/zerolog"

	"github.com/servicehub/session-gateway/internal/api"
	"github.com/servicehub/session-gateway/internal/core/ports"
	"github.com/servicehub/session-gateway/internal/core/service"
	"github.com/servicehub/session-gateway/internal/infrastructure/backend"
	"github.com/servicehub/session-gateway/internal/infrastructure/config"
	mongodb "github.com/servicehub/session-gateway/internal/infrastructure/db/mongo"
	redisdb "github.com/servicehub/session-gateway/internal/infrastructure/db/redis"
	"github.com/servicehub/session-gateway/internal/infrastructure/http/handlers"
	"github.com/servicehub/session-gateway/internal/infrastructure/queue"
	"github.com/servicehub/session-gateway/internal/infrastructure/store"
	"github.com/servicehub/session-gateway/internal/pkg/access"
	"github.com/servicehub/session-gateway/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "session-gateway",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("gateway stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	policy, err := access.Load(cfg.AccessPolicyFile)
	if err != nil {
		return err
	}

	var deps []handlers.Pinger

	var stores ports.StoreFactory
	switch cfg.Store.Backend {
	case config.StoreRedis:
		rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		stores = redisdb.NewSessionStoreFactory(rdb, cfg.Redis.Prefix, cfg.Session.TTL, log)
		deps = append(deps, redisdb.Pinger{Client: rdb})
	default:
		fs, err := store.NewFileFactory(cfg.Store.Dir, log)
		if err != nil {
			return err
		}
		stores = fs
	}

	audit := service.NewAuditService(nil, log)
	if cfg.Audit.Enabled {
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = client.Disconnect(dctx)
		}()
		audit = service.NewAuditService(mongodb.NewTransitionRepository(db), log)
		deps = append(deps, mongodb.Pinger{Client: client})
	}

	// Audit workers stop only after the HTTP server has drained.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, audit, log)
	dispatcher.Start(workerCtx)
	defer func() {
		stopWorkers()
		dispatcher.Wait()
	}()

	sessions := service.NewSessionManager(stores, backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout, log), service.ManagerConfig{
		Session:    service.SessionOptions{RejectExpired: cfg.Session.RejectExpired},
		IdleTTL:    cfg.Session.IdleTTL,
		SweepEvery: cfg.Session.SweepEvery,
		Observer:   dispatcher,
	}, log)
	if err := sessions.Start(); err != nil {
		return err
	}
	defer sessions.Stop()

	e := api.NewRouter(api.RouterConfig{
		Sessions:     sessions,
		Policy:       policy,
		CookieName:   cfg.Session.Cookie,
		SecureCookie: !cfg.IsDevelopment(),
		Dependencies: deps,
		Log:          log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("store", cfg.Store.Backend).
			Str("backend", cfg.Backend.URL).
			Int("guarded_views", len(policy.Views)).
			Msg("gateway listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
