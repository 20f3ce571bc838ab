package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"trainer-booking/internal/config"
	"trainer-booking/internal/http-server/router"
	"trainer-booking/internal/limiter"
	"trainer-booking/internal/lock"
	"trainer-booking/internal/notify"
	svc "trainer-booking/internal/service"
	"trainer-booking/internal/session"
	"trainer-booking/internal/storage/postgres"
	"trainer-booking/internal/storage/redisdb"
	"trainer-booking/pkg/handlers/slogpretty"
	"trainer-booking/pkg/sl"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {

	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting API", slog.String("env", cfg.Env))
	log.Debug("Debug messages are enabled")

	storage, err := postgres.New(cfg.StoragePath)
	if err != nil {
		log.Error("Failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	err = storage.Migrate(migrateCtx)
	cancelMigrate()
	if err != nil {
		log.Error("Failed to migrate storage", sl.Err(err))
		os.Exit(1)
	}

	rdb, err := redisdb.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("Failed to connect to redis", sl.Err(err))
		os.Exit(1)
	}

	sender, closeSender, err := setupSender(cfg, log)
	if err != nil {
		log.Error("Failed to init mail sender", sl.Err(err))
		os.Exit(1)
	}

	dispatcher := notify.NewDispatcher(log, sender, cfg.Mail.SendTimeout)

	service := svc.NewService(
		log,
		svc.Config{
			AdminEmail: cfg.Admin.Email,
			OTPTTL:     cfg.Admin.OTPTTL,
			SessionTTL: cfg.Session.TTL,
			AppURL:     cfg.Mail.AppURL,
		},
		storage,
		lock.NewRedisLock(rdb, instanceID()),
		session.NewRedisStore(rdb),
		limiter.NewRedisLimiter(rdb, cfg.RateLimit.OTPRequests, cfg.RateLimit.OTPWindow, "rl"),
		dispatcher,
	)

	serv := &http.Server{
		Addr:         cfg.Address,
		Handler:      router.New(log, service),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serverErrCh := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", slog.String("addr", cfg.Address))
		if err := serv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			log.Error("HTTP server stopped unexpectedly", sl.Err(err))
		} else {
			log.Info("HTTP server stopped gracefully")
		}
	}

	shutdownTimeout := cfg.HTTPServer.ShutdownTimeout

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("Shutting down HTTP server", slog.String("timeout", shutdownTimeout.String()))

	if err := serv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", sl.Err(err))
	} else {
		log.Info("Server shutdown complete")
	}

	// pending mail goes out before its transport closes
	if err := dispatcher.Wait(ctx); err != nil {
		log.Error("Notifications still pending at shutdown", sl.Err(err))
	}

	if err := closeSender(); err != nil {
		log.Error("Failed to close mail sender", sl.Err(err))
	}

	if err := storage.Close(); err != nil {
		log.Error("Failed to close storage", sl.Err(err))
	} else {
		log.Info("Storage closed")
	}

	if err := rdb.Close(); err != nil {
		log.Error("Failed to close redis", sl.Err(err))
	} else {
		log.Info("Redis closed")
	}

	log.Info("Shutdown finished, server stopped")

}

func setupSender(cfg *config.Config, log *slog.Logger) (notify.Sender, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Mail.Driver {
	case "log":
		return notify.NewLogSender(log), noop, nil
	case "smtp":
		return notify.NewSMTPSender(cfg.Mail.SMTPHost, cfg.Mail.SMTPPort, cfg.Mail.From), noop, nil
	case "kafka":
		s := notify.NewKafkaSender(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		return s, s.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown mail driver %q", cfg.Mail.Driver)
}

// instanceID tags lock ownership so one instance cannot release another's
// slot lock.
func instanceID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
