// cmd/paycore/main.go
//
// paycore admin service entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (host-wide file, then .env fallback).
//
//  2. Start a console bootstrap logger, then connect Vault when VAULT_ADDR
//     is set so `vault:` references in config can resolve.
//
//  3. Load config, then replace the bootstrap logger with the daily
//     rotating file logger.
//
//  4. Open the control-plane DB and Redis; both are pinged before use.
//
//  5. Build the process-wide config cache and the invalidator over
//     local cache + Redis.
//
//  6. Wire config and account services into the chi router, mount
//     /metrics, and serve until SIGINT or SIGTERM.
//
//  7. Shutdown: drain HTTP, stop the cache evictor, close Redis and DB.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/paycore/internal/api"
	"github.com/yanizio/paycore/internal/cache"
	"github.com/yanizio/paycore/internal/config"
	"github.com/yanizio/paycore/internal/configs"
	"github.com/yanizio/paycore/internal/connector"
	"github.com/yanizio/paycore/internal/database"
	"github.com/yanizio/paycore/internal/invalidate"
	"github.com/yanizio/paycore/internal/kv"
	"github.com/yanizio/paycore/internal/logger"
	"github.com/yanizio/paycore/internal/server"
	"github.com/yanizio/paycore/internal/vault"
)

const serverEnvPath = "/usr/local/etc/paycore/global.env"

// loadEnv prefers the host-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	loadEnv()
	boot := logger.Bootstrap()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, boot); err != nil {
		zap.L().Fatal("paycore stopped", zap.Error(err))
	}
}

func run(ctx context.Context, boot *zap.Logger) error {
	//
	// ── 1.  Vault + config ──────────────────────────────────────────────
	//
	var resolver config.SecretResolver
	if os.Getenv("VAULT_ADDR") != "" {
		vc, err := vault.New(ctx, boot)
		if err != nil {
			return err
		}
		resolver = vc
	}

	cfg, err := config.Load(ctx, resolver)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Paths.Root, cfg.Log.Level, cfg.Log.Tee || runningInTTY())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	//
	// ── 2.  Storage ─────────────────────────────────────────────────────
	//
	db, err := database.OpenWithOptions(ctx, cfg.Database.ConnString(), database.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Logger:          log,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := kv.Open(ctx, kv.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		DefaultTTL:   cfg.Redis.DefaultTTL,
	}, log)
	if err != nil {
		return err
	}
	defer store.Close()

	//
	// ── 3.  Caches + services ───────────────────────────────────────────
	//
	local := cache.InitConfigCache(cache.Options{
		IdleTTL:       cfg.Cache.IdleTTL,
		MaxEntries:    cfg.Cache.MaxEntries,
		EvictInterval: cfg.Cache.EvictInterval,
		Logger:        log,
	})
	defer cache.ShutdownConfigCache()

	inv := invalidate.New(local, store, log)
	configSvc := configs.NewService(configs.NewRepository(db), local, store, inv, log)
	accountSvc := connector.NewService(connector.NewRepository(db), inv, log)

	//
	// ── 4.  HTTP ────────────────────────────────────────────────────────
	//
	root := chi.NewRouter()
	root.Handle("/metrics", promhttp.Handler())
	root.Mount("/", api.NewHandler(configSvc, accountSvc, log).Routes())

	srv := server.New(cfg.HTTP.ListenAddr, root, server.Timeouts{
		Read:     cfg.HTTP.ReadTimeout,
		Write:    cfg.HTTP.WriteTimeout,
		Idle:     cfg.HTTP.IdleTimeout,
		Shutdown: cfg.HTTP.ShutdownTimeout,
	})
	return server.Run(ctx, srv, cfg.HTTP.ShutdownTimeout, log)
}
