package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finance-tracker/internal/cache"
	"github.com/finance-tracker/internal/config"
	"github.com/finance-tracker/internal/handler"
	"github.com/finance-tracker/internal/middleware"
	"github.com/finance-tracker/internal/models"
	"github.com/finance-tracker/internal/notify"
	"github.com/finance-tracker/internal/repository"
	"github.com/finance-tracker/internal/seed"
	"github.com/finance-tracker/internal/service"
	"github.com/finance-tracker/internal/worker"
	"github.com/finance-tracker/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Build info (injected at build time via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Dir); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Auto migrate database
	if err := autoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize Redis (optional)
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = initRedis(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
	}

	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// Notification fan-out. With Redis, events go through pub/sub so every
	// instance delivers to its own websocket sessions.
	hub := notify.NewHub()
	var notifier notify.Notifier = hub
	var relay *notify.RedisRelay
	var tokenStore service.TokenStore = cache.NewMemoryTokenStore()
	var statsCache service.StatisticsCache
	if rdb != nil {
		notifier = notify.NewRedisPublisher(rdb, cfg.Notifications.Channel)
		relay = notify.NewRedisRelay(rdb, cfg.Notifications.Channel, hub)
		if err := relay.Start(ctx); err != nil {
			log.Fatalf("Failed to start notification relay: %v", err)
		}
		tokenStore = cache.NewRedisTokenStore(rdb)
		statsCache = cache.NewStatisticsCache(rdb, cfg.Statistics.CacheTTL())
	} else {
		logger.Warn("Redis disabled: using in-process token store, no statistics cache")
	}

	// Initialize repositories
	stores := repository.NewStores(db)
	userRepo := repository.NewUserRepository(db)
	transactor := repository.NewGormTransactor(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, tokenStore, cfg.JWT)
	recorder := service.NewBalanceHistoryRecorder(stores.History, service.NewPagination(cfg.Pagination))
	statisticsService := service.NewStatisticsService(stores.Accounts, statsCache)
	dispatcher := service.NewDispatcher(notifier, cfg.Notifications.Threshold())
	accountService := service.NewAccountService(stores.Accounts, transactor, recorder, dispatcher, statisticsService)
	exportService := service.NewExportService(accountService, recorder, statisticsService)

	if cfg.Database.SeedDemo {
		if _, err := seed.Demo(ctx, authService, accountService, cfg.Database.SeedPassword); err != nil {
			log.Fatalf("Failed to seed demo data: %v", err)
		}
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	accountHandler := handler.NewAccountHandler(accountService, statisticsService)
	exportHandler := handler.NewExportHandler(exportService)
	origins := middleware.NewOriginPolicy(cfg.Server.AllowedOrigins)
	wsHandler := handler.NewWSHandler(hub, origins)

	// Create Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RequestLoggerMiddleware())
	router.Use(middleware.CORSMiddleware(origins))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		checkCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{"database": "ok"}
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(checkCtx) != nil {
			checks["database"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
		if rdb != nil {
			checks["redis"] = "ok"
			if err := rdb.Ping(checkCtx).Err(); err != nil {
				checks["redis"] = "unavailable"
				status = http.StatusServiceUnavailable
			}
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{
			"status":     state,
			"checks":     checks,
			"version":    Version,
			"commit":     Commit,
			"build_time": BuildTime,
			"time":       time.Now().Unix(),
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		authMiddleware := middleware.AuthMiddleware(authService)

		authHandler.RegisterRoutes(v1, authMiddleware)
		accountHandler.RegisterRoutes(v1, authMiddleware)
		exportHandler.RegisterRoutes(v1, authMiddleware)
		wsHandler.RegisterRoutes(v1, middleware.WebSocketAuthMiddleware(authService))
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	heartbeat := worker.NewHeartbeatWorker(hub, cfg.Notifications.HeartbeatInterval())
	go heartbeat.Start()

	// Start server in goroutine
	go func() {
		logger.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	heartbeat.Stop()

	// Graceful shutdown with 10 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown: %v", err)
	}

	// Hijacked websocket connections are not closed by Shutdown
	hub.CloseAll()
	stopBackground()

	if relay != nil {
		if err := relay.Stop(); err != nil {
			logger.Error("Error stopping notification relay: %v", err)
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("Error closing Redis connection: %v", err)
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info("Server exited properly")
}

func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormLogger := gormlogger.Default.LogMode(gormlogger.Info)
	if cfg.Server.Mode == "release" {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func initRedis(cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.BalanceHistory{},
	)
}
