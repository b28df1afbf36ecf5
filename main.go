package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/billing-saas/config"
	"github.com/yourusername/billing-saas/handlers"
	"github.com/yourusername/billing-saas/logger"
	"github.com/yourusername/billing-saas/middleware"
	"github.com/yourusername/billing-saas/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Setup router
	router := gin.Default()
	router.Use(corsMiddleware(cfg))

	authService := services.NewAuthService(db, cfg.DBTimeout)
	invoiceService := services.NewInvoiceService(db, cfg.DBTimeout)

	systemHandler := handlers.NewSystemHandler(db, cfg.DBTimeout)
	authHandler := handlers.NewAuthHandler(authService, cfg)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService)

	// Public probes
	router.GET("/", systemHandler.Root)
	router.GET("/health", systemHandler.Health)
	router.GET("/db-check", systemHandler.DBCheck)

	// API routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)

		protected := api.Group("/")
		protected.Use(middleware.JwtAuthMiddleware(cfg))
		{
			protected.GET("/protected", authHandler.Protected)
			protected.POST("/invoices", invoiceHandler.Create)
			protected.GET("/invoices", invoiceHandler.List)
			protected.GET("/invoices/:id", invoiceHandler.Get)
			protected.PUT("/invoices/:id/status", invoiceHandler.UpdateStatus)
			protected.POST("/invoices/:id/pay", invoiceHandler.RecordPayment)
		}
	}

	log.Info().Str("port", cfg.Port).Msg("starting billing-saas-backend")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
		corsCfg.AllowCredentials = true
	}

	return cors.New(corsCfg)
}
