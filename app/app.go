// File: app/app.go
package app

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"pharmacy-api/config"
	"pharmacy-api/db"
	_ "pharmacy-api/docs"
	"pharmacy-api/handler"
	"pharmacy-api/logger"
	"pharmacy-api/repository"
	"pharmacy-api/router"
	"pharmacy-api/service"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

func Run() {
	config.LoadConfig(".")
	logger.Init()
	logger.Log.Info("Logger initialized")
	logger.Log.Info("Configuration loaded successfully")

	database, err := db.Connect()
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	redisClient, err := db.ConnectRedis()
	if err != nil {
		logger.Log.Fatalf("Error connecting to redis: %v", err)
	}
	defer redisClient.Close()

	r, sweeper := buildRouter(database, redisClient)

	// The sweeper reaps expired ledger entries in the background for the
	// lifetime of the process.
	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	sweeper.Start(sweeperCtx)

	port := config.AppConfig.Server.Port
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")
	stopSweeper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Log.Info("Server exited properly")
}

// buildRouter wires repositories, services and handlers over the given
// connections and returns the HTTP handler plus the background sweeper.
func buildRouter(database *sql.DB, redisClient *redis.Client) (http.Handler, *service.TokenSweeper) {
	userRepo := repository.NewUserRepository(database)
	tokenRepo := repository.NewTokenRepository(database)
	labRepo := repository.NewLabTestRepository(database)
	medRepo := repository.NewMedicationRepository(database)
	prescRepo := repository.NewPrescriptionRepository(database)

	authService := service.NewAuthService(userRepo, tokenRepo, config.AppConfig.JWT, nil)
	userService := service.NewUserService(userRepo)
	labService := service.NewLabTestService(labRepo, service.NewHTTPClinicNotifier(config.AppConfig.Clinic.ResultEndpoint))
	prescService := service.NewPrescriptionService(database, prescRepo, medRepo, redisClient)
	sweeper := service.NewTokenSweeper(tokenRepo,
		time.Duration(config.AppConfig.Token.SweepIntervalMinutes)*time.Minute)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	labHandler := handler.NewLabTestHandler(labService)
	prescHandler := handler.NewPrescriptionHandler(prescService)
	authMW := handler.NewAuthMiddleware(authService)

	return router.NewRouter(authHandler, userHandler, labHandler, prescHandler, authMW), sweeper
}

// TestApp exposes the wired router and its connections for integration tests.
type TestApp struct {
	DB     *sql.DB
	Redis  *redis.Client
	Router http.Handler
}

func NewTestApp(database *sql.DB, redisClient *redis.Client) *TestApp {
	r, _ := buildRouter(database, redisClient)
	return &TestApp{
		DB:     database,
		Redis:  redisClient,
		Router: r,
	}
}
