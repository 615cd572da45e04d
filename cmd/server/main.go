package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/65160020/swapup-backend/internal/config"
	"github.com/65160020/swapup-backend/internal/database"
	"github.com/65160020/swapup-backend/internal/handlers"
	"github.com/65160020/swapup-backend/internal/middleware"
	"github.com/65160020/swapup-backend/internal/migrations"
	"github.com/65160020/swapup-backend/internal/models"
	"github.com/65160020/swapup-backend/internal/realtime"
	"github.com/65160020/swapup-backend/internal/routes"
	"github.com/65160020/swapup-backend/internal/services"
	"github.com/65160020/swapup-backend/pkg/logger"
)

func main() {
	config.LoadConfig()

	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}
	logger.Init(env)

	logger.Info().Str("environment", env).Msg("Starting SwapUp backend")

	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	database.Connect()
	database.InitRedis()

	if err := database.DB.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Message{},
		&models.Review{},
	); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate database schema")
	}
	if err := migrations.NewMigrator(database.DB).Run(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to apply migrations")
	}
	logger.Info().Msg("Database migrations complete")

	// Realtime fan-out: Redis-backed channel feeds the presence registry,
	// the typing tracker and connected chat engines.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	channel := realtime.NewRedisChannel(database.Redis)
	presence := realtime.NewPresenceRegistry(realtime.PresenceTTL)
	typing := realtime.NewTypingTracker(realtime.TypingWindow)
	if err := presence.Start(rootCtx, channel); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start presence registry")
	}
	if err := typing.Start(rootCtx, channel); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start typing tracker")
	}

	services.SetEventChannel(channel)
	handlers.InitRealtime(channel, presence, typing)

	r := gin.New()
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(config.AppConfig.FrontendURL))
	r.Use(middleware.RateLimit(20, 40))

	api := r.Group("/api")
	routes.RegisterSessionRoutes(api)

	r.GET("/health", func(c *gin.Context) {
		dbStatus := "ok"
		redisStatus := "ok"

		sqlDB, err := database.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			dbStatus = "error"
		}

		if database.Redis != nil {
			if _, err := database.Redis.Ping(context.Background()).Result(); err != nil {
				redisStatus = "error"
			}
		} else {
			redisStatus = "not configured"
		}

		status := "ok"
		if dbStatus != "ok" || (redisStatus != "ok" && redisStatus != "not configured") {
			status = "degraded"
		}

		c.JSON(200, gin.H{
			"status": status,
			"checks": gin.H{
				"database": dbStatus,
				"redis":    redisStatus,
			},
		})
	})

	port := config.AppConfig.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", port).Str("env", env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server gracefully")

	rootCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}
