package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"rostergate.org/internal/auth"
	"rostergate.org/internal/config"
	"rostergate.org/internal/httpapi"
	"rostergate.org/internal/obs"
	"rostergate.org/internal/ownership"
	"rostergate.org/internal/roster"
	"rostergate.org/internal/seat"
	"rostergate.org/internal/store/pg"
)

var version = "0.1.0"

func main() {
	log.SetFlags(0)
	if err := run(); err != nil {
		obs.Error("server_exit", err, nil)
		os.Exit(1)
	}
	obs.Info("stopped", nil)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	obs.Init(version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := ownership.New()
	source, err := roster.OpenRedisSource(cfg.RedisURL, cfg.RosterKey)
	if err != nil {
		return fmt.Errorf("roster source: %w", err)
	}
	defer source.Close()

	deps := httpapi.Deps{
		Version:    version,
		Cache:      cache,
		Categories: cfg.QueueCategories,
		Workers:    auth.NewSecretSet(cfg.WorkerSecrets),
		Freshness:  cfg.SeatFreshness,
		RateBurst:  cfg.RateBurst,
		RatePerSec: cfg.RatePerSec,
		MaxBody:    cfg.MaxBody,
		TrustProxy: cfg.TrustProxy,
	}
	if deps.Workers.Len() == 0 {
		obs.Error("worker_secrets_missing", nil, map[string]any{"effect": "worker status answers 503"})
	}
	if cfg.GrantSecret != "" {
		grants, err := auth.NewGrantIssuer(cfg.GrantSecret, cfg.GrantTTL)
		if err != nil {
			return fmt.Errorf("grant issuer: %w", err)
		}
		deps.Grants = grants
	}

	var store *pg.Store
	if cfg.PGDSN != "" {
		store, err = pg.Open(cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer store.Close()
		deps.Seats = store
		deps.Messages = store
		deps.Queues = store
		deps.Ready.DB = store.DB()
	}
	deps.Ready.Cache = cache
	deps.Ready.MaxAge = cfg.RosterMaxAge

	api := httpapi.New(deps)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	health := httpapi.NewHealthReporter(deps.Ready, 5*time.Second)
	grpcServer := grpc.NewServer()
	health.Register(grpcServer)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		obs.Info("http_listen", map[string]any{"addr": srv.Addr, "version": version})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		obs.Info("grpc_listen", map[string]any{"addr": cfg.GRPCAddr})
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		return roster.NewPoller(source, cache, cfg.RosterInterval).Run(gctx)
	})
	g.Go(func() error {
		return health.Run(gctx)
	})
	if store != nil {
		g.Go(func() error {
			return seat.NewCounter(store, cfg.SeatCountInterval).Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		obs.Info("shutting_down", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		grpcServer.GracefulStop()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
