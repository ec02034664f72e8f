package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"openlearn/course-app/internal/api"
	"openlearn/course-app/internal/config"
	"openlearn/course-app/internal/repository/mongo"
	"openlearn/course-app/internal/service"
	"openlearn/course-app/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @title Course Content & Assessment API
// @version 1.0
// @description API for authoring course content, grading activities and scoring quizzes.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting course app server")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		logger.Fatal("could not connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logger.Error("failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	logger.Info("database connection established", zap.String("database", cfg.Database.Name))

	// --- Ensure Indexes ---
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureModuleIndexes(ctx, appDB.Collection("modules"))
		mongo.EnsureComponentIndexes(ctx, appDB.Collection("components"))
		mongo.EnsureActivityIndexes(ctx, appDB.Collection("activities"))
		mongo.EnsureSubmissionIndexes(ctx, appDB.Collection("submissions"))
		mongo.EnsureAttemptIndexes(ctx, appDB.Collection("quiz_attempts"))
		logger.Info("index creation completed")
	}()

	// --- Initialize Storage ---
	fileStorage, err := storage.NewS3Storage(cfg.S3, logger)
	if err != nil {
		logger.Fatal("failed to initialize S3 storage", zap.Error(err))
	}

	// --- Initialize Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	moduleRepo := mongo.NewMongoModuleRepository(appDB)
	componentRepo := mongo.NewMongoComponentRepository(appDB)
	activityRepo := mongo.NewMongoActivityRepository(appDB)
	submissionRepo := mongo.NewMongoSubmissionRepository(appDB)
	attemptRepo := mongo.NewMongoAttemptRepository(appDB)

	// --- Initialize Services ---
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	componentService := service.NewComponentService(componentRepo, moduleRepo, fileStorage, cfg.Upload, logger)
	activityService := service.NewActivityService(activityRepo, submissionRepo, userRepo, fileStorage, logger)
	quizService := service.NewQuizService(componentRepo, attemptRepo, logger)

	// --- Initialize Gin Engine ---
	router := gin.Default()

	api.SetupRoutes(router, cfg.JWT.Secret, authService, componentService, activityService, quizService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen and serve error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
