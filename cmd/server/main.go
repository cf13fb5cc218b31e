package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kotek/backend/internal/application/fulfillment"
	orderapp "github.com/kotek/backend/internal/application/order"
	"github.com/kotek/backend/internal/infrastructure/auth"
	"github.com/kotek/backend/internal/infrastructure/cache"
	"github.com/kotek/backend/internal/infrastructure/config"
	"github.com/kotek/backend/internal/infrastructure/logger"
	"github.com/kotek/backend/internal/infrastructure/noest"
	"github.com/kotek/backend/internal/infrastructure/persistence"
	"github.com/kotek/backend/internal/interfaces/http/handler"
	"github.com/kotek/backend/internal/interfaces/http/middleware"
	"github.com/kotek/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Kotek Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize the Noest carrier client
	noestCfg := noest.NewConfig(cfg.Noest.APIToken, cfg.Noest.UserGUID)
	if cfg.Noest.APIBaseURL != "" {
		noestCfg.APIBaseURL = cfg.Noest.APIBaseURL
	}
	if cfg.Noest.TimeoutSeconds > 0 {
		noestCfg.TimeoutSeconds = cfg.Noest.TimeoutSeconds
	}
	noestClient, err := noest.NewClient(noestCfg)
	if err != nil {
		log.Fatal("Failed to initialize Noest client", zap.Error(err))
	}

	// Redis backs the delivery fee cache and JWT revocation. A single-instance
	// deployment can disable it and run on the in-process equivalents.
	var (
		feeCache     orderapp.FeeSource
		tokenRevoker auth.TokenRevoker
	)
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing redis client", zap.Error(err))
			}
		}()
		pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancelPing()
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		cancelPing()
		log.Info("Redis connected successfully")

		feeCache = cache.NewRedisFeeCacheWithClient(redisClient, noestClient, cfg.Noest.FeeCacheTTL)
		tokenRevoker = auth.NewRedisTokenRevoker(redisClient)
	} else {
		log.Warn("Redis disabled, fee cache and token revocation run in process memory")
		feeCache = cache.NewInMemoryFeeCache(noestClient, cfg.Noest.FeeCacheTTL)
		tokenRevoker = auth.NewInMemoryTokenRevoker()
	}

	// Initialize repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	addressRepo := persistence.NewGormAddressRepository(db.DB)

	// Initialize application services
	orderService := orderapp.NewService(orderRepo, addressRepo, feeCache)
	syncService := fulfillment.NewSyncService(orderRepo, addressRepo, noestClient, log)

	// Token issuance and revocation for the single admin account
	tokenService := auth.NewTokenService(cfg.JWT)

	// Initialize HTTP handlers
	authHandler := handler.NewAuthHandler(cfg.Admin, tokenService, tokenRevoker)
	orderHandler := handler.NewOrderHandler(orderService)
	fulfillmentHandler := handler.NewFulfillmentHandler(syncService)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	// Configure skip paths for public endpoints
	jwtConfig := middleware.JWTMiddlewareConfig{
		TokenService: tokenService,
		TokenRevoker: tokenRevoker,
		SkipPaths: []string{
			"/api/v1/auth/login",
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Authentication routes, with a tight limiter against credential guessing
	authRoutes := router.NewDomainGroup("auth", "/auth")
	authRoutes.Use(middleware.AuthRateLimit(middleware.NewRateLimiter(10, time.Minute)))
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.POST("/logout", authHandler.Logout)

	// Order domain (order aggregate, items, addresses)
	orderRoutes := router.NewDomainGroup("orders", "/orders")
	orderRoutes.POST("", orderHandler.Create)
	orderRoutes.GET("", orderHandler.List)
	orderRoutes.GET("/reference/:reference", orderHandler.GetByReference)
	orderRoutes.GET("/:id", orderHandler.GetByID)
	orderRoutes.DELETE("/:id", orderHandler.Delete)
	orderRoutes.POST("/:id/items", orderHandler.AddItem)
	orderRoutes.PUT("/:id/items/:item_id", orderHandler.UpdateItem)
	orderRoutes.DELETE("/:id/items/:item_id", orderHandler.RemoveItem)
	orderRoutes.PUT("/:id/address", orderHandler.SetAddress)
	orderRoutes.PUT("/:id/stop-desk", orderHandler.SetStopDesk)
	orderRoutes.POST("/:id/delivered", orderHandler.MarkDelivered)

	// Fulfillment routes (carrier synchronization on the same aggregate)
	orderRoutes.POST("/:id/shipments", fulfillmentHandler.CreateShipment)
	orderRoutes.PUT("/:id/shipments", fulfillmentHandler.UpdateShipment)
	orderRoutes.POST("/:id/shipments/split", fulfillmentHandler.SplitShipment)
	orderRoutes.DELETE("/:id/shipments/:tracking", fulfillmentHandler.CancelShipment)
	orderRoutes.GET("/:id/shipments/:tracking/label", fulfillmentHandler.GetLabel)
	orderRoutes.POST("/:id/dispatch", fulfillmentHandler.DispatchAll)
	orderRoutes.POST("/:id/cancel", fulfillmentHandler.CancelOrder)

	// Delivery fee lookup
	shippingRoutes := router.NewDomainGroup("shipping", "/shipping")
	shippingRoutes.GET("/delivery-fees", orderHandler.DeliveryFees)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	// Register all domain groups
	r.Register(authRoutes).
		Register(orderRoutes).
		Register(shippingRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()
	log.Info("API routes mounted", zap.Int("routes", len(r.Routes())))

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
			"pool":     db.Stats(),
		})
	}
}
