package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"freshcart/internal/config"
	"freshcart/internal/database"
	"freshcart/internal/events"
	custommiddleware "freshcart/internal/middleware"
	"freshcart/internal/repository"
	"freshcart/internal/service"
	"freshcart/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config    *config.Config
	logger    *zap.Logger
	db        database.Service
	redis     *redis.Client
	publisher events.Publisher
}

// NewServer wires repositories, services and handlers onto one router.
// The server owns db, the Redis client and publisher, and releases them in Close.
func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, publisher events.Publisher) *Server {
	s := &Server{
		config:    cfg,
		logger:    logger,
		db:        db,
		publisher: publisher,
	}

	if cfg.Redis.Enabled {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      s.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

func (s *Server) routes() http.Handler {
	router := chi.NewRouter()

	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.LoggingMiddleware(s.logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(s.logger))
	router.Use(custommiddleware.CORSMiddleware(s.config.Server.AllowedOrigins, s.config.Server.IsDevelopment()))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusNotFound, "Route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	router.Get("/health", s.health)

	// Repositories share one pool; the transactor hands them the active tx.
	dbx := sqlx.NewDb(s.db.DB(), database.DriverName)
	userRepo := repository.NewUserRepository(dbx)
	productRepo := repository.NewProductRepository(dbx)
	orderRepo := repository.NewOrderRepository(dbx)
	transactor := repository.NewTransactor(dbx)

	userService := service.NewUserService(userRepo, transactor, service.AdminCredentials{
		Username: s.config.Admin.Username,
		Password: s.config.Admin.Password,
	})
	catalogService := service.NewCatalogService(productRepo)
	orderService := service.NewOrderService(orderRepo, productRepo, transactor, s.publisher, s.logger, service.OrderOptions{
		TrustClientPrice: s.config.Orders.TrustClientPrice,
	})

	userHandler := transport.NewUserHandler(userService, s.logger)
	productHandler := transport.NewProductHandler(catalogService, s.logger)
	orderHandler := transport.NewOrderHandler(orderService, s.logger)

	authLimiter := s.rateLimiter("rate_limit:auth")
	orderLimiter := s.rateLimiter("rate_limit:orders")

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)
		userHandler.RegisterRoutes(r, authLimiter)
		productHandler.RegisterRoutes(r)
		orderHandler.RegisterRoutes(r, orderLimiter)
	})

	return router
}

// rateLimiter returns nil when Redis is disabled.
func (s *Server) rateLimiter(prefix string) func(http.Handler) http.Handler {
	if s.redis == nil {
		return nil
	}

	limiter := custommiddleware.NewRateLimiter(s.redis, custommiddleware.RateLimitConfig{
		Limit:     s.config.RateLimit.Requests,
		Window:    s.config.RateLimit.Window,
		KeyPrefix: prefix,
	}, s.logger)
	return limiter.Middleware
}

type healthResponse struct {
	Status   string            `json:"status"`
	Database map[string]string `json:"database"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	dbHealth := s.db.Health(r.Context())

	if dbHealth["status"] != "up" {
		s.logger.Warn("Health check failed", zap.String("error", dbHealth["error"]))
		// Driver errors can carry hostnames.
		delete(dbHealth, "error")
		custommiddleware.RespondWithJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Database: dbHealth})
		return
	}

	custommiddleware.RespondWithJSON(w, http.StatusOK, healthResponse{Status: "ok", Database: dbHealth})
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Error("Failed to close event publisher", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}

// Ping verifies the optional Redis dependency at startup.
func (s *Server) Ping(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Ping(ctx).Err()
}
