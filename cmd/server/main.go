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
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stwalsh4118/addressmap/internal/app"
	"github.com/stwalsh4118/addressmap/internal/config"
	"github.com/stwalsh4118/addressmap/internal/database"
	"github.com/stwalsh4118/addressmap/internal/handlers"
	"github.com/stwalsh4118/addressmap/internal/logger"
	"github.com/stwalsh4118/addressmap/internal/middleware"
	"github.com/stwalsh4118/addressmap/internal/repository"
	"github.com/stwalsh4118/addressmap/internal/validation"
)

const (
	shutdownTimeout = 30 * time.Second
	migrateTimeout  = time.Minute
)

func main() {
	// Environment first, then an optional .env file underneath it
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Structured logger; LOG_LEVEL overrides the environment default
	log := logger.NewWithOptions(logger.Options{Env: cfg.Server.Env, Level: cfg.Server.LogLevel})
	log.Info("Starting address map API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	// Open the pool, then bring the schema up to date before serving
	ctx := context.Background()
	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(ctx, migrateTimeout)
	err = db.Migrate(migrateCtx)
	cancelMigrate()
	if err != nil {
		log.Fatal("Failed to migrate database", err, nil)
	}

	log.Info("Database connection established", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Name,
		"pool_min": cfg.Database.PoolMin,
		"pool_max": cfg.Database.PoolMax,
	})

	// Request binding uses the same field names and usstate tag as the services
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validation.Register(v)
	}

	// Router setup
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Order: RequestID -> Actor -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Actor())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Health checks stay outside /api/v1
	healthHandler := handlers.NewHealthHandler(db, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)

	// Services over one pgx-backed store, shared with addrtool through app.New
	svc := app.New(cfg, repository.NewStore(db.Pool), log)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.GET("/info", healthHandler.Info)
	handlers.NewAddressHandler(svc.Addresses).Register(v1)
	handlers.NewChangeHandler(svc.Addresses).Register(v1)
	handlers.NewBatchHandler(svc.Imports).Register(v1)
	handlers.NewParcelHandler(svc.Parcels).Register(v1)

	// Header reads time out after 10s
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Serve in the background so main can wait for a signal
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Block until SIGINT or SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Drain in-flight requests, bounded by shutdownTimeout
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
