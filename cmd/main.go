package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auth_api/internal/auth"
	"auth_api/internal/config"
	"auth_api/internal/http_server"
	"auth_api/internal/items"
	"auth_api/internal/lib/jwt"
	sl "auth_api/internal/lib/logger"
	"auth_api/internal/lib/password"
	"auth_api/internal/rabbitmq"
	"auth_api/internal/storage/postgres"
	"auth_api/internal/storage/redis"

	"github.com/go-playground/validator/v10"
)

func main() {
	cfg := config.MustLoad()

	log := sl.Setup(cfg.Env)

	log.Info("starting auth api", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("auth api stopped with error", sl.Err(err))
		os.Exit(1)
	}

	log.Info("Main service stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	dsn := cfg.Postgres.DSN()

	if err := postgres.Migrate(ctx, dsn); err != nil {
		return err
	}

	storage, err := postgres.New(ctx, dsn)
	if err != nil {
		return err
	}
	defer storage.Close()

	kv, err := redis.New(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer kv.Close()

	codec, err := jwt.New(
		cfg.Tokens.Algorithm,
		cfg.Tokens.AccessSecret,
		cfg.Tokens.RefreshSecret,
		cfg.Tokens.AccessTTL(),
		cfg.Tokens.RefreshTTL(),
	)
	if err != nil {
		return err
	}

	hasher, err := password.New(cfg.Password.Algorithm)
	if err != nil {
		return err
	}

	var opts []auth.Option

	if cfg.RabbitMQ.URL != "" {
		msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if err != nil {
			return err
		}
		defer msgBroker.Close()

		opts = append(opts, auth.WithEvents(msgBroker))
	} else {
		log.Warn("rabbitmq url is empty, session events are disabled")
	}

	authService := auth.New(log, storage, storage, hasher, codec, kv, opts...)

	router := http_server.NewRouter(http_server.Deps{
		Log:      log,
		Validate: validator.New(),
		Auth:     authService,
		Users:    storage,
		Items:    items.New(log, storage),
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serveErr := make(chan error, 1)

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	return nil
}
