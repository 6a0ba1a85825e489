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
	"github.com/guestdesk/registration-backend/internal/config"
	"github.com/guestdesk/registration-backend/internal/database"
	"github.com/guestdesk/registration-backend/internal/handlers"
	"github.com/guestdesk/registration-backend/internal/metrics"
	"github.com/guestdesk/registration-backend/internal/middleware"
	"github.com/guestdesk/registration-backend/internal/models"
	"github.com/guestdesk/registration-backend/internal/services"
	"github.com/guestdesk/registration-backend/internal/storage"
	"github.com/guestdesk/registration-backend/pkg/jwt"
	"github.com/guestdesk/registration-backend/pkg/qrcode"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting guest registration backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	ctx := context.Background()
	if cfg.Database.AutoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			logger.Fatalf("Failed to apply schema: %v", err)
		}
		logger.Info("Database schema is up to date")
	}

	// Repositories
	guestRepository := database.NewGuestRepository(db)
	hotelRepository := database.NewHotelRepository(db)
	adminUserRepository := database.NewAdminUserRepository(db)
	adminTokenRepository := database.NewAdminRefreshTokenRepository(db)

	// Services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	auditService := services.NewAuditService(db, cfg.Security.EnableAuditLog, logger)
	authService := services.NewAdminAuthService(adminUserRepository, adminTokenRepository, jwtService, logger)

	if cfg.Admin.Username != "" {
		admin, err := authService.SeedAdmin(ctx, cfg.Admin.Username, cfg.Admin.PasswordHash)
		if err != nil {
			logger.Fatalf("Failed to seed admin user: %v", err)
		}
		logger.WithField("username", admin.Username).Info("Admin user seeded")
	}

	imageStore := storage.NewImageStore(cfg.Storage.ImagesDir, cfg.Server.BaseURL)
	registrationService := services.NewRegistrationService(
		guestRepository,
		hotelRepository,
		imageStore,
		cfg.Storage,
		cfg.Registration,
		logger,
	)
	guestService := services.NewGuestService(guestRepository)
	hotelService := services.NewHotelService(hotelRepository)
	qrService := services.NewQRService(hotelRepository, qrcode.NewPNGEncoder(), cfg.Storage.QRCodesDir, logger)

	cityService := services.NewReferenceService(database.NewReferenceRepository(db, models.CityKind))
	nationalityService := services.NewReferenceService(database.NewReferenceRepository(db, models.NationalityKind))
	idProofService := services.NewReferenceService(database.NewReferenceRepository(db, models.IDProofKind))

	cleanupService := services.NewCleanupService(cfg.Storage.ImagesDir, cfg.Cleanup.Retention, logger)
	rateLimitService := services.NewRateLimitService(db, cfg.RateLimit)
	cronService := services.NewCronService(cleanupService, adminTokenRepository, auditService, cfg.Cleanup.Schedule, logger).
		WithRateLimits(rateLimitService)
	if cfg.Cleanup.Enabled {
		if err := cronService.Start(); err != nil {
			logger.Fatalf("Failed to start cron service: %v", err)
		}
		logger.Info("✓ Cron service started - image cleanup enabled")
	} else {
		logger.Warn("Scheduled jobs disabled (CLEANUP_ENABLED=false)")
	}

	logger.Info("Services initialized")

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, auditService, rateLimitService, logger)
	guestHandler := handlers.NewGuestHandler(handlers.GuestHandlerDeps{
		Registration: registrationService,
		Guests:       guestService,
		Nationality:  nationalityService,
		City:         cityService,
		IDProof:      idProofService,
		Cron:         cronService,
		Audit:        auditService,
		RateLimit:    rateLimitService,
	}, logger)
	hotelHandler := handlers.NewHotelHandler(hotelService, qrService, auditService, cfg.Server.FrontendURL, logger)

	// Initialize Gin router
	router := gin.New()
	router.MaxMultipartMemory = 32 << 20

	// Middleware
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}
	metrics.Register()
	router.Use(middleware.Metrics())

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: !allowsAnyOrigin(cfg.CORS.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Set environment in context for development mode
	router.Use(func(c *gin.Context) {
		c.Set(handlers.EnvironmentKey, cfg.Server.Environment)
		c.Next()
	})

	router.Use(middleware.HotelCodeGate(hotelService, logger))

	// Health check and metrics endpoints
	router.GET("/health", healthCheckHandler(db))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Guest form entry point, admitted by the hotel code gate
	router.GET(middleware.GuestFormPath, middleware.GuestFormContext)

	// Stored uploads
	router.Static("/api/images", cfg.Storage.ImagesDir)

	requireAdmin := []gin.HandlerFunc{
		middleware.AuthMiddleware(jwtService, logger),
		middleware.RequireRole(services.AdminRole),
	}

	api := router.Group("/api")
	{
		// Admin authentication
		auth := api.Group("/auth")
		authHandler.RegisterRoutes(api, auth, auth.Group("", requireAdmin...))

		// Lookup tables
		for prefix, service := range map[string]*services.ReferenceService{
			"/city":        cityService,
			"/nationality": nationalityService,
			"/idproof":     idProofService,
		} {
			public := api.Group(prefix)
			handlers.NewReferenceHandler(service, logger).RegisterRoutes(public, public.Group("", requireAdmin...))
		}

		// Hotels and QR codes
		qr := api.Group("/qr-codes")
		hotelHandler.RegisterRoutes(qr, qr.Group("", requireAdmin...))

		// Guest registration and records
		user := api.Group("/user")
		guestHandler.RegisterRoutes(user, user.Group("", requireAdmin...))
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if cfg.Cleanup.Enabled {
		cronService.Stop()
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// allowsAnyOrigin reports whether the CORS origins contain the wildcard,
// which browsers refuse to combine with credentials
func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check database connection
		dbStatus := "healthy"
		if err := db.Ping(); err != nil {
			dbStatus = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": dbStatus,
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  dbStatus,
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
