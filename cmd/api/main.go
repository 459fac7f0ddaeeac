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

	"go.uber.org/zap"
	goahttp "goa.design/goa/v3/http"

	"beanhealth/internal/config"
	"beanhealth/internal/database"
	"beanhealth/internal/httpapi"
	"beanhealth/internal/logging"
	"beanhealth/internal/notify"
	"beanhealth/internal/ratelimit"
	"beanhealth/internal/services"
	"beanhealth/internal/web"
)

const (
	shutdownTimeout = 30 * time.Second
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	idleTimeout     = 60 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "beanhealth api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logging.Initialize(cfg.App.LogLevel); err != nil {
		return err
	}
	defer logging.Sync()
	logger := logging.Named("api")

	if err := cfg.ValidateForServer(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger.Info("starting server",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.Bool("debug", cfg.App.Debug),
		zap.String("host", cfg.App.Host),
		zap.String("port", cfg.App.Port),
	)

	if err := database.Init(cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		logger.Info("closing database connections")
		if err := database.Close(); err != nil {
			logger.Warn("error closing database", zap.Error(err))
		}
	}()
	db := database.GetDB()

	ctx := context.Background()
	emailSender, err := notify.NewEmailSender(ctx, cfg.Email, logging.Named("email"))
	if err != nil {
		return fmt.Errorf("failed to configure e-mail: %w", err)
	}
	smsSender, err := notify.NewSMSSender(cfg.SMS, logging.Named("sms"))
	if err != nil {
		return fmt.Errorf("failed to configure SMS: %w", err)
	}
	notifier := notify.NewNotifier(emailSender, smsSender, cfg.Notification.Email, cfg.Notification.Phone, logging.Named("notify"))

	limiter, err := ratelimit.New(cfg.RateLimit, logging.Named("ratelimit"))
	if err != nil {
		return fmt.Errorf("failed to configure rate limiting: %w", err)
	}
	defer closeLimiter(limiter, logger)

	demoSvc := services.NewDemoService(db, notifier, logging.Named("demo"))
	authSvc := services.NewAuthService(db, &cfg.Auth, logging.Named("auth"))
	healthSvc := services.NewHealthService(db, cfg.App.Name)

	mux := goahttp.NewMuxer()
	trustProxy := cfg.RateLimit.TrustProxy
	httpapi.NewServer(demoSvc, authSvc, healthSvc, limiter, logging.Named("http"), httpapi.WithTrustedProxy(trustProxy)).Mount(mux)
	web.New(demoSvc, limiter, 0, logging.Named("web"), web.WithTrustedProxy(trustProxy)).Mount(mux)

	addr := fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      httpapi.NewHandler(mux, cfg, logging.Named("http")),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		ErrorLog:     zap.NewStdLog(logging.Named("http")),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("server error: %w", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return err
	case sig := <-shutdown:
		logger.Info("starting graceful shutdown", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error during graceful shutdown", zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("shutdown timeout exceeded, forcing close")
			_ = httpServer.Close()
		}
	}

	// Let in-flight notifications finish before the database closes.
	demoSvc.Wait()

	logger.Info("server shutdown complete")
	return nil
}

func closeLimiter(limiter ratelimit.Limiter, logger *zap.Logger) {
	switch l := limiter.(type) {
	case *ratelimit.MemoryLimiter:
		l.Close()
	case *ratelimit.RedisLimiter:
		if err := l.Close(); err != nil {
			logger.Warn("error closing rate limiter", zap.Error(err))
		}
	}
}
