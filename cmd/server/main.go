package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pricetier/internal/config"
	"pricetier/internal/handler"
	"pricetier/internal/logger"
	"pricetier/internal/repository"
	"pricetier/internal/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format, "pricetier-server")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	zl.Info("Price tier prediction service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	var (
		opts    []service.PredictorOption
		history handler.PredictionHistory
	)

	// Prediction log
	if cfg.PostgreSQL.Enabled {
		repo, err := repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			zl.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer repo.Close()

		if err := repo.Migrate(context.Background()); err != nil {
			zl.Fatal("Failed to migrate database", zap.Error(err))
		}
		opts = append(opts, service.WithPredictionStore(repo))
		history = repo
		zl.Info("Connected to PostgreSQL database")
	} else {
		zl.Warn("PostgreSQL is disabled, predictions will not be recorded")
	}

	// Prediction cache
	if cfg.Redis.Enabled {
		cache := repository.NewRedisCache(
			repository.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB),
			cfg.Redis.TTL,
		)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := cache.Ping(ctx)
		cancel()
		if err != nil {
			zl.Warn("Redis unavailable, serving without cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = cache.Close()
		} else {
			defer cache.Close()
			opts = append(opts, service.WithPredictionCache(cache))
			zl.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
		}
	}

	predictor := service.NewPredictor(cfg.Paths.ModelFolder, zl, opts...)
	predictHandler := handler.NewPredictHandler(predictor, history, zl)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery(), handler.RequestLogger(zl))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"service":    "pricetier",
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/predict", predictHandler.Predict)
		apiV1.GET("/predictions/:listing_id", predictHandler.History)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		zl.Info("Starting server", zap.String("addr", addr), zap.String("model_folder", cfg.Paths.ModelFolder))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
	}
	zl.Info("Server stopped")
}
