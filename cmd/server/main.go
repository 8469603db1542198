// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gurkanbulca/workhub/internal/config"
	"github.com/gurkanbulca/workhub/internal/database"
	"github.com/gurkanbulca/workhub/internal/middleware"
	"github.com/gurkanbulca/workhub/internal/realtime"
	"github.com/gurkanbulca/workhub/internal/repository"
	"github.com/gurkanbulca/workhub/internal/server"
	"github.com/gurkanbulca/workhub/internal/service"
	"github.com/gurkanbulca/workhub/pkg/auth"
	"github.com/gurkanbulca/workhub/pkg/logging"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.New(os.Stdout, os.Getenv("LOG_JSON_PATH"))
	logging.SetDebug(cfg.IsDevelopment())

	// Connect to database and run migrations
	db, err := database.New(database.Config{
		Driver:   cfg.Database.Driver,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		Path:     cfg.Database.Path,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database connection", "error", err)
		}
	}()

	// Initialize token manager
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer)

	// Initialize repositories
	taskRepo := repository.NewTaskRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Initialize realtime delivery and services
	hub := realtime.NewHub(logger)
	notificationService := service.NewNotificationService(
		notificationRepo,
		membershipRepo,
		userRepo,
		hub,
		cfg.Notification,
		logger,
	)
	taskService := service.NewTaskService(
		taskRepo,
		membershipRepo,
		userRepo,
		notificationService,
		cfg.Workflow,
	)
	gateway := realtime.NewGateway(hub, notificationService, tokenManager, logger)

	// Initialize HTTP server
	authMW := middleware.NewAuthMiddleware(tokenManager)
	srv := server.New(taskService, notificationService, gateway, authMW, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.HTTPPort, "environment", cfg.Server.Environment)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}

	logger.Info("server stopped")
}
