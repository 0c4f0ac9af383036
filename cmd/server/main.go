package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/wundergunder/toadtourist-sub000/internal/config"
	"github.com/wundergunder/toadtourist-sub000/internal/database"
	"github.com/wundergunder/toadtourist-sub000/internal/handlers"
	"github.com/wundergunder/toadtourist-sub000/internal/middleware"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
	"github.com/wundergunder/toadtourist-sub000/internal/services"
	"github.com/wundergunder/toadtourist-sub000/pkg/jwt"
	"github.com/wundergunder/toadtourist-sub000/pkg/storage"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Lazy Toad marketplace backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	logger.Info("Redis connection established")

	// Repositories that run multi-statement transactions take the raw
	// sqlx handle.
	sqlxDB, ok := db.(*database.PostgresDB)
	if !ok {
		logger.Fatal("Failed to cast database connection to PostgresDB")
	}

	accountRepo := database.NewAccountRepository(db)
	territoryRepo := database.NewTerritoryRepository(db)
	experienceRepo := database.NewExperienceRepository(db)
	availabilityRepo := database.NewAvailabilityRepository(db)
	reviewRepo := database.NewReviewRepository(db)
	refreshTokenRepo := database.NewRefreshTokenRepository(db)
	bookingRepo := database.NewBookingRepository(sqlxDB.DB)
	referralRepo := database.NewReferralRepository(sqlxDB.DB)

	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	sessionService := services.NewSessionService(redisClient, cfg.Referral.SessionTTL)
	auditService := services.NewAuditService(db)
	accountService := services.NewAccountService(accountRepo, territoryRepo, cfg.Security.BcryptCost, logger)
	catalogService := services.NewCatalogService(experienceRepo, territoryRepo, accountRepo, logger)
	bookingService := services.NewBookingService(
		bookingRepo,
		experienceRepo,
		accountRepo,
		availabilityRepo,
		referralRepo,
		sessionService,
		services.BookingConfig{
			MaxRetries:     cfg.Booking.MaxRetries,
			CommissionRate: cfg.Referral.CommissionRate,
		},
		logger,
	)
	reviewService := services.NewReviewService(reviewRepo, bookingRepo)
	referralService := services.NewReferralService(referralRepo, sessionService, logger)

	avatarStore, err := storage.NewDiskStore(cfg.Storage.Dir, cfg.Storage.BaseURL)
	if err != nil {
		logger.Fatalf("Failed to initialize media store: %v", err)
	}
	logger.Info("Services initialized")

	authHandler := handlers.NewAuthHandler(
		jwtService,
		accountService,
		accountRepo,
		refreshTokenRepo,
		sessionService,
		auditService,
		avatarStore,
		cfg,
		logger,
	)
	accountHandler := handlers.NewAccountHandler(accountService, accountRepo, auditService, cfg)
	territoryHandler := handlers.NewTerritoryHandler(catalogService, accountRepo)
	experienceHandler := handlers.NewExperienceHandler(catalogService, bookingService, reviewService, accountRepo)
	bookingHandler := handlers.NewBookingHandler(bookingService, reviewService, accountRepo, auditService, cfg)
	referralHandler := handlers.NewReferralHandler(referralService, accountRepo, auditService, cfg)

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", healthCheckHandler(db))
	router.Static("/media", cfg.Storage.Dir)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)

			protected := auth.Group("")
			protected.Use(middleware.AuthMiddleware(jwtService))
			{
				protected.POST("/logout", authHandler.Logout)
				protected.GET("/profile", authHandler.GetProfile)
				protected.PUT("/profile", authHandler.UpdateProfile)
				protected.POST("/profile/avatar", authHandler.UploadAvatar)
			}
		}

		// Territory catalog. Reads are public, writes are admin only.
		territories := v1.Group("/territories")
		{
			territories.GET("", territoryHandler.ListTerritories)
			territories.GET("/:id", territoryHandler.GetTerritory)
			territories.GET("/:id/experiences", territoryHandler.ListTerritoryExperiences)

			territoriesProtected := territories.Group("")
			territoriesProtected.Use(middleware.AuthMiddleware(jwtService))
			{
				territoriesProtected.POST("", territoryHandler.CreateTerritory)
				territoriesProtected.PUT("/:id", territoryHandler.UpdateTerritory)
			}
		}

		// Experience catalog. Browsing needs no account.
		experiences := v1.Group("/experiences")
		{
			experiences.GET("", experienceHandler.ListExperiences)
			experiences.GET("/:id", experienceHandler.GetExperience)
			experiences.GET("/:id/reviews", experienceHandler.ListReviews)
			experiences.GET("/:id/availability", experienceHandler.ListAvailability)

			experiencesProtected := experiences.Group("")
			experiencesProtected.Use(middleware.AuthMiddleware(jwtService))
			{
				experiencesProtected.POST("", experienceHandler.CreateExperience)
				experiencesProtected.PUT("/:id", experienceHandler.UpdateExperience)
				experiencesProtected.DELETE("/:id", experienceHandler.DeleteExperience)
				experiencesProtected.PUT("/:id/availability", experienceHandler.SetAvailability)
			}
		}

		bookings := v1.Group("/bookings")
		bookings.Use(middleware.AuthMiddleware(jwtService))
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("", bookingHandler.ListMyBookings)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.POST("/:id/payment", bookingHandler.MarkPaymentCompleted)
		}

		guides := v1.Group("/guides")
		guides.Use(middleware.AuthMiddleware(jwtService))
		{
			guides.GET("/:id/bookings", bookingHandler.ListGuideBookings)
		}

		reviews := v1.Group("/reviews")
		reviews.Use(middleware.AuthMiddleware(jwtService))
		{
			reviews.POST("", bookingHandler.CreateReview)
		}

		// Referral links for hotel operators; attaching a code is public
		// so shared links work before a visitor registers.
		referrals := v1.Group("/referrals")
		{
			referrals.POST("/attach", referralHandler.AttachReferral)
		}

		referralLinks := v1.Group("/referral-links")
		referralLinks.Use(middleware.AuthMiddleware(jwtService))
		{
			referralLinks.POST("", referralHandler.CreateLink)
			referralLinks.GET("", referralHandler.ListLinks)
			referralLinks.POST("/:id/toggle", referralHandler.ToggleLink)
			referralLinks.DELETE("/:id", referralHandler.DeleteLink)
			referralLinks.GET("/:id/referrals", referralHandler.ListReferrals)
		}

		commissions := v1.Group("/commissions")
		commissions.Use(middleware.AuthMiddleware(jwtService))
		{
			commissions.GET("", referralHandler.ListCommissions)
			commissions.GET("/summary", referralHandler.CommissionSummary)
			commissions.POST("/:id/paid", referralHandler.MarkCommissionPaid)
		}

		accounts := v1.Group("/accounts")
		accounts.Use(middleware.AuthMiddleware(jwtService))
		{
			accounts.GET("", middleware.RequireRole(
				string(models.RoleAdmin), string(models.RoleTerritoryManager),
			), accountHandler.ListAccounts)
			accounts.GET("/:id", accountHandler.GetAccount)
			accounts.POST("/:id/roles", accountHandler.GrantRole)
			accounts.DELETE("/:id/roles", accountHandler.RevokeRole)
			accounts.PUT("/:id/territory", middleware.RequireRole(
				string(models.RoleAdmin),
			), accountHandler.SetTerritory)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if userCtx, exists := middleware.GetUserContext(c); exists {
			fields["account_id"] = userCtx.AccountID
			fields["roles"] = userCtx.Roles
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
		} else {
			status := c.Writer.Status()
			switch {
			case status >= 500:
				entry.Error("Request completed with server error")
			case status >= 400:
				entry.Warn("Request completed with client error")
			default:
				entry.Info("Request completed successfully")
			}
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
