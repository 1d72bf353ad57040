package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leaddesk/internal/ratelimit"
	"leaddesk/internal/util"
	"leaddesk/pkg/auth"
	"leaddesk/pkg/notify"
	"leaddesk/pkg/storage"
	"leaddesk/pkg/store"
	"leaddesk/services/site/internal/app"
	"leaddesk/services/site/internal/config"
	"leaddesk/services/site/internal/security"
	"leaddesk/services/site/internal/server"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	tokenTTL, err := config.ParseDuration("tokenTTL", cfg.TokenTTL)
	if err != nil {
		log.Fatalf("failed to parse token TTL: %v", err)
	}
	leeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
	if err != nil {
		log.Fatalf("failed to parse jwt leeway: %v", err)
	}
	notifyTimeout, err := config.ParseDuration("notifyTimeout", cfg.NotifyTimeout)
	if err != nil {
		log.Fatalf("failed to parse notify timeout: %v", err)
	}
	shutdownTimeout, err := config.ParseDuration("shutdownTimeout", cfg.ShutdownTimeout)
	if err != nil {
		log.Fatalf("failed to parse shutdown timeout: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	dataStore, err := newStore(cfg)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	defer dataStore.Close()

	files, err := newFileStore(cfg)
	if err != nil {
		log.Fatalf("failed to init file store: %v", err)
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		log.Fatalf("failed to init notifier: %v", err)
	}
	if c, ok := notifier.(io.Closer); ok {
		defer c.Close()
	}

	metrics := server.NewMetrics()
	dispatcher := notify.NewDispatcher(notifier, notify.DispatcherOptions{
		Timeout: notifyTimeout,
		Logger:  logger,
		OnDone:  metrics.ObserveNotification,
	})

	tokens, err := auth.NewTokenService(cfg.JWTSecret, tokenTTL, auth.TokenOptions{
		Issuer: cfg.JWTIssuer,
		Leeway: leeway,
	})
	if err != nil {
		log.Fatalf("failed to init token service: %v", err)
	}

	appCore, err := app.New(app.Config{
		Store:  dataStore,
		Files:  files,
		Tokens: tokens,
		Admin: auth.AdminCredential{
			Email:        cfg.AdminEmail,
			Password:     cfg.AdminPassword,
			PasswordHash: cfg.AdminPasswordHash,
		},
		Notifier:        dispatcher,
		PublicBlogLimit: cfg.PublicBlogLimit,
		AdminListLimit:  cfg.AdminListLimit,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	var loginLimiter *ratelimit.FixedWindowLimiter
	var alerter *security.AuditAlerter
	if cfg.RedisAddr != "" {
		loginLimiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "leaddesk:ratelimit:login", cfg.LoginRateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init login limiter: %v", err)
		}
		defer loginLimiter.Close()
		alerter = security.NewAuditAlerter(cfg.RedisAddr, cfg.RedisPassword, "leaddesk:alerts")
		defer alerter.Close()
	} else {
		logger.Warn("redisAddr not set, login throttling and security alerts disabled")
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:            appCore,
		Metrics:        metrics,
		LoginLimiter:   loginLimiter,
		Alerter:        alerter,
		TrustedProxies: trusted,
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "store", cfg.StoreDriver, "files", cfg.FilesDriver, "notify", cfg.NotifyDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "err", err)
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn("pending notifications abandoned", "err", err)
	}
	logger.Info("server stopped")
}

func newStore(cfg config.FileConfig) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		slog.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	case config.StoreDriverPostgres:
		s, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func newFileStore(cfg config.FileConfig) (storage.FileStore, error) {
	switch cfg.FilesDriver {
	case config.FilesDriverLocal:
		return storage.NewDirStore(cfg.UploadDir)
	case config.FilesDriverMinio:
		return storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	default:
		return nil, fmt.Errorf("unknown files driver %q", cfg.FilesDriver)
	}
}

func newNotifier(cfg config.FileConfig, logger *slog.Logger) (notify.Notifier, error) {
	switch cfg.NotifyDriver {
	case config.NotifyDriverLog:
		return notify.NewLogNotifier(logger), nil
	case config.NotifyDriverSMTP:
		return notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:       cfg.SMTPHost,
			Port:       cfg.SMTPPort,
			Username:   cfg.SMTPUsername,
			Password:   cfg.SMTPPassword,
			From:       cfg.SMTPFrom,
			FromName:   cfg.SMTPFromName,
			To:         cfg.NotificationTo,
			Encryption: notify.Encryption(cfg.SMTPEncryption),
		})
	case config.NotifyDriverRedis:
		return notify.NewRedisStreamNotifier(notify.RedisStreamConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Stream:   cfg.NotifyStream,
		})
	case config.NotifyDriverAMQP:
		return notify.NewAMQPNotifier(notify.AMQPConfig{
			URL:      cfg.AMQPURL,
			Exchange: cfg.AMQPExchange,
		})
	default:
		return nil, fmt.Errorf("unknown notify driver %q", cfg.NotifyDriver)
	}
}
