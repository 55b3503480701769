package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/pokedraft/pokedraft-backend/internal/broadcast"
	"github.com/pokedraft/pokedraft-backend/internal/config"
	"github.com/pokedraft/pokedraft-backend/internal/draft"
	"github.com/pokedraft/pokedraft-backend/internal/httpapi"
	"github.com/pokedraft/pokedraft-backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	log, err := buildLogger(cfg.Dev)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Service publishes into the hub; the hub reads snapshots back out of
	// the service. Wire the hub first with the snapshot loader.
	svc := draft.NewService(st, nil, log)
	hub := broadcast.NewHub(ctx, svc.Snapshot, log, broadcast.Options{
		Throttle:  cfg.Throttle,
		Heartbeat: cfg.Heartbeat,
	})
	svc.SetPublisher(hub)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(svc, hub, log),
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		_ = srv.Shutdown(context.Background())
	}()

	log.Info("listening", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("serve", zap.Error(err))
	}
}

func buildLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
