package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/rociobottinelli/citypass-emergency/internal/config"
	"github.com/rociobottinelli/citypass-emergency/internal/dispatch"
	"github.com/rociobottinelli/citypass-emergency/internal/events"
	v1 "github.com/rociobottinelli/citypass-emergency/internal/handler/http/v1"
	"github.com/rociobottinelli/citypass-emergency/internal/history"
	"github.com/rociobottinelli/citypass-emergency/internal/location"
	"github.com/rociobottinelli/citypass-emergency/internal/repository"
	"github.com/rociobottinelli/citypass-emergency/internal/service"
	"github.com/rociobottinelli/citypass-emergency/pkg/logger"
	"github.com/rociobottinelli/citypass-emergency/pkg/postgres"
	redisclient "github.com/rociobottinelli/citypass-emergency/pkg/redis"
	"github.com/sirupsen/logrus"

	_ "github.com/rociobottinelli/citypass-emergency/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title CityPass Emergency API
// @version 1.0
// @description Citizen emergency reporting: activation countdown, dispatch to the emergency backend and history.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func runMigrations(cfg *config.Config, log *logrus.Logger) error {
	log.Info("Running database migrations...")

	migrationURL := cfg.DatabaseURL
	if !strings.HasPrefix(migrationURL, "pgx5://") {
		migrationURL = strings.Replace(migrationURL, "postgres://", "pgx5://", 1)
	}

	m, err := migrate.New(
		"file://migrations",
		migrationURL,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations applied successfully")
	return nil
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	log := logger.New(cfg.LogLevel)

	// Контекст для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.RunMigrations {
		if err := runMigrations(cfg, log); err != nil {
			log.Fatalf("Failed to run database migrations: %v", err)
		}
	}

	// Подключение к PostgreSQL
	dbpool, err := postgres.NewPostgresDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbpool.Close()
	log.Info("Successfully connected to PostgreSQL")

	// Инициализация Redis клиента
	redisClient, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Info("Successfully connected to Redis")

	// События активаций уходят во внешний вебхук через очередь
	publisher := events.NewRedisPublisher(redisClient)
	worker := events.NewWorker(redisClient, log, cfg)
	worker.Start(ctx)

	gateway := dispatch.NewHTTPGateway(cfg.BackendURL, cfg.DispatchTimeout, log)
	fixStore := location.NewFixStore(redisClient, cfg.LocationTTL)
	activationRepo := repository.NewActivationRepository(dbpool, redisClient, cfg.HistoryCacheTTL)

	reportingService := service.NewReportingService(activationRepo, gateway, fixStore, publisher, history.NewStore(), log, cfg)
	defer reportingService.Close()
	reportingService.StartEviction(ctx)

	// Инициализация хэндлеров
	handler := v1.NewHandler(reportingService, log, cfg)

	// Настройка Gin роутера
	router := gin.New()
	// Поток активации получает токен в query, такие запросы в журнал не пишутся
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{SkipPaths: []string{"/api/v1/activation/stream"}}), gin.Recovery())
	router.MaxMultipartMemory = cfg.MaxAttachmentBytes
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	// Добавление маршрута для Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()
	log.Infof("HTTP server started on port %s", cfg.HTTPPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal, shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	cancel()

	log.Info("Server gracefully stopped")
}
