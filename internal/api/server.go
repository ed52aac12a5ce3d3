package api

import (
	"fmt"

	"busline/internal/cache"
	"busline/internal/config"
	"busline/internal/database"
	"busline/internal/external"
	"busline/internal/handlers"
	"busline/internal/hold"
	"busline/internal/logger"
	"busline/internal/messaging"
	"busline/internal/middleware"
	"busline/internal/repository"
	"busline/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	services *service.Services
	repos    *repository.Repositories
}

func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	cacheStore, err := cache.New(cfg.Cache)
	if err != nil {
		logger.Fatal("Failed to connect to cache", "error", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", "error", err)
	}

	paymentClient := external.NewPaymentClient(cfg.Payment, cacheStore)
	holdStore := hold.NewStore(cacheStore, cfg.HoldTTL)

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, holdStore, cacheStore, natsClient, paymentClient, service.Config{
		SnapshotTTL:     cfg.SnapshotCacheTTL,
		PaymentDeadline: cfg.PaymentDeadline,
	})

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
	}))

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		services: services,
		repos:    repos,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services, s.db)
	auth := middleware.Auth(s.repos.Users, s.config.JWTSecret)
	admin := middleware.RequireAdmin()

	api := s.router.Group("/api")
	{
		trips := api.Group("/trips")
		{
			trips.POST("", auth, admin, h.CreateTrip)
			trips.GET("/:id/seats", h.GetSeats)
			trips.POST("/:id/hold", auth, h.CreateHold)
			trips.POST("/:id/confirm/:token", auth, h.ConfirmHold)
		}

		bookings := api.Group("/bookings")
		{
			bookings.GET("/:id", auth, h.GetBooking)
			bookings.POST("/:id/cancel", auth, admin, h.CancelBooking)
		}

		// Provider callbacks carry no bearer token; authenticity is settled
		// by matching a known order id.
		payments := api.Group("/payments")
		{
			payments.GET("/key/:orderID", auth, h.PaymentKey)
			payments.GET("/processed", h.PaymentProcessed)
			payments.POST("/processed", h.PaymentProcessed)
			payments.GET("/response", h.PaymentResponse)
			payments.POST("/response", h.PaymentResponse)
		}

		api.POST("/sweep", auth, admin, h.Sweep)
	}

	s.router.GET("/health", h.Health)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	logger.Get().Info("Starting HTTP server", "addr", addr)
	return s.router.Run(addr)
}

// GetRouter exposes the router for tests.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			logger.Get().Error("Error closing NATS connection", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Get().Error("Error closing database connection", "error", err)
			return err
		}
	}
	return nil
}
