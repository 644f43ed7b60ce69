// Command server runs the citizen services portal.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	adminstore "sevasetu/internal/admin/store"
	appstore "sevasetu/internal/application/store"
	"sevasetu/internal/audit"
	citizenstore "sevasetu/internal/citizen/store"
	consentstore "sevasetu/internal/consent/store"
	"sevasetu/internal/platform/config"
	"sevasetu/internal/platform/httpserver"
	"sevasetu/internal/platform/logger"
	"sevasetu/internal/platform/metrics"
	"sevasetu/internal/platform/postgres"
	"sevasetu/internal/platform/redis"
	"sevasetu/internal/server"
	sessionstore "sevasetu/internal/session/store"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, db, outbox, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	// Redis, when configured, takes over session storage; everything else
	// stays on the primary backend.
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
		stores.Sessions = sessionstore.NewRedis(rdb.Client, cfg.Auth.SessionTTL)
		log.Info("session store on redis")
	}

	srv := server.New(stores, server.Options{
		Config:  cfg,
		Logger:  log,
		Metrics: metrics.New(),
	})

	if cfg.Admin.SeedEmail != "" && cfg.Admin.SeedPassword != "" {
		if err := srv.Admins.Seed(ctx, cfg.Admin.SeedEmail, cfg.Admin.SeedPassword); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	relay, err := audit.NewRelay(cfg.Kafka, outbox, log)
	if err != nil {
		return err
	}

	httpSrv := httpserver.New(cfg.Addr, srv.Router, cfg.Server.ReadHeaderTimeout)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCancel(srv.Worker.Run(ctx))
	})
	if relay != nil {
		g.Go(func() error {
			return ignoreCancel(relay.Run(ctx))
		})
	}
	g.Go(func() error {
		log.Info("listening", "addr", cfg.Addr, "store", cfg.Store.Backend)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return ignoreCancel(g.Wait())
}

// buildStores selects the persistence backend. The outbox is non-nil only on
// Postgres, where audit rows double as the Kafka relay source.
func buildStores(ctx context.Context, cfg config.Config) (server.Stores, *sql.DB, *audit.PostgresStore, error) {
	switch cfg.Store.Backend {
	case "memory":
		return server.Stores{
			Sessions:     sessionstore.NewInMemory(),
			Citizens:     citizenstore.NewInMemory(),
			Consents:     consentstore.NewInMemory(),
			Applications: appstore.NewInMemory(),
			Admins:       adminstore.NewInMemory(),
			Audit:        audit.NewMemoryStore(),
		}, nil, nil, nil
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Store.PostgresURL)
		if err != nil {
			return server.Stores{}, nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return server.Stores{}, nil, nil, err
		}
		outbox := audit.NewPostgresStore(db)
		return server.Stores{
			Sessions:     sessionstore.NewPostgres(db),
			Citizens:     citizenstore.NewPostgres(db),
			Consents:     consentstore.NewPostgres(db),
			Applications: appstore.NewPostgres(db),
			Admins:       adminstore.NewPostgres(db),
			Audit:        outbox,
		}, db, outbox, nil
	default:
		return server.Stores{}, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
