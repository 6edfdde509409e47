package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rmendes/userhub/internal/auth"
	"github.com/rmendes/userhub/internal/config"
	"github.com/rmendes/userhub/internal/db"
	httpx "github.com/rmendes/userhub/internal/http"
	"github.com/rmendes/userhub/internal/observability"
	"github.com/rmendes/userhub/internal/queue/redisclient"
	"github.com/rmendes/userhub/internal/repo/postgres"
	"github.com/rmendes/userhub/internal/storage"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(context.Background(), "userhub-api", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdown(ctx)
			}()
		}
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	seedCtx, cancel := config.WithTimeout(5 * time.Second)
	err = db.EnsureAdminUser(seedCtx, pool, cfg)
	cancel()

	if err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewProm(reg)

	deps := httpx.Deps{
		Pool:    pool,
		Users:   postgres.NewUsersRepo(pool).WithMetrics(metrics),
		Jobs:    postgres.NewJobsRepo(pool),
		Tokens:  auth.NewManager(cfg.JWTSecret),
		Metrics: metrics,
		Reg:     reg,
	}

	// photo uploads go to minio in real deployments, local disk in dev
	if cfg.StorageBackend == "minio" {
		backend, err := storage.NewMinioBackend(storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})

		if err != nil {
			log.Error("minio init failed", "err", err)
			os.Exit(1)
		}

		bucketCtx, cancel := config.WithTimeout(5 * time.Second)
		err = backend.EnsureBucket(bucketCtx)
		cancel()

		if err != nil {
			log.Error("minio bucket check failed", "err", err)
			os.Exit(1)
		}

		deps.Files = storage.NewStorage(backend)
	} else {
		deps.Files = storage.NewStorage(storage.NewFSBackend(cfg.StorageRoot))
	}

	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pingCtx, cancel := config.WithTimeout(2 * time.Second)
		err = rc.Ping(pingCtx)
		cancel()

		if err != nil {
			log.Warn("redis unreachable, falling back to in-memory rate limiting", "err", err)
		} else {
			deps.Redis = rc.Raw()
			defer rc.Close()
		}
	}

	router := httpx.NewRouter(log, cfg, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
