package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"freshcart/internal/config"
	"freshcart/internal/database"
	"freshcart/internal/events"
	"freshcart/internal/logger"
	"freshcart/internal/server"

	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	// In-flight requests get 30 seconds to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	done <- true
}

// newPublisher connects to the broker when one is configured. A broker that
// cannot be reached disables events rather than blocking startup.
func newPublisher(cfg config.AMQPConfig, log *zap.Logger) events.Publisher {
	if cfg.URL == "" {
		log.Info("AMQP_URL not set, order events disabled")
		return events.NewNopPublisher(log)
	}

	publisher, err := events.NewAMQPPublisher(cfg.URL, cfg.Exchange, log)
	if err != nil {
		log.Error("Failed to connect to message broker, order events disabled", zap.Error(err))
		return events.NewNopPublisher(log)
	}

	log.Info("Publishing order events", zap.String("exchange", cfg.Exchange))
	return publisher
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting bulk ordering API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	ctx := context.Background()

	dbService, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database health check", zap.Any("health", dbService.Health(ctx)))

	if err := database.RunMigrations(ctx, dbService.DB(), cfg.Database.MigrationsDir, log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database migrations completed successfully")

	srv := server.NewServer(cfg, log, dbService, newPublisher(cfg.AMQP, log))

	if err := srv.Ping(ctx); err != nil {
		log.Warn("Redis unreachable, rate limiting will fail open", zap.Error(err))
	}

	done := make(chan bool, 1)
	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}
