package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"lexdesk/api/internal/app"
	"lexdesk/api/internal/authpw"
	"lexdesk/api/internal/config"
	"lexdesk/api/internal/email"
	"lexdesk/api/internal/metrics"
	"lexdesk/api/internal/reminder"
	"lexdesk/api/internal/search"
	"lexdesk/api/internal/session"
	"lexdesk/api/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	ctx := context.Background()

	dataStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("store initialization failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer dataStore.Close()

	var sessions session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" && cfg.StoreDriver != "memory" {
		redisSessions, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			logger.Error("redis session store failed", "error", err)
			os.Exit(1)
		}
		defer redisSessions.Close()
		sessions = redisSessions
		logger.Info("using redis for refresh sessions")
	} else {
		sessions = session.NewMemoryStore()
		logger.Info("using in-memory refresh sessions")
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewStoreSearch(dataStore), logger)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	service := app.NewService(app.Options{
		Store:      dataStore,
		Sessions:   sessions,
		Passwords:  authpw.NewService(dataStore),
		Search:     searchService,
		Metrics:    collector,
		Log:        logger,
		JWTSecret:  []byte(cfg.JWTSecret),
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	})

	if err := service.Bootstrap(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Warn("bootstrap failed, will retry on next restart", "error", err)
	}

	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	worker := reminder.NewWorker(dataStore, mailer, logger, cfg.ReminderInterval)
	worker.SetMetrics(collector)
	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	go worker.Run(workerCtx)

	httpServer := app.NewHTTPServer(app.HTTPOptions{
		Service:        service,
		Log:            logger,
		CORSOrigin:     cfg.CORSOrigin,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(registry),
		WriteRateLimit: cfg.WriteRateLimit,
		WriteRateBurst: cfg.WriteRateBurst,
	})
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("lexdesk api listening", "addr", cfg.Addr, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	stopWorker()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// openStore builds the record store selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store.NewPostgresStore(db), nil
	case "redis":
		return store.NewRedisStore(cfg.RedisURL)
	case "object":
		return store.NewObjectStore(ctx, store.ObjectConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
	default:
		if cfg.StoreDriver != "memory" {
			logger.Warn("unknown store driver, using memory", "driver", cfg.StoreDriver)
		}
		return store.NewMemoryStore(), nil
	}
}
