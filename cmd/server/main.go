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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jengzang/trip-features-go/internal/api"
	"github.com/jengzang/trip-features-go/internal/config"
	"github.com/jengzang/trip-features-go/internal/database"
	"github.com/jengzang/trip-features-go/internal/handler"
	"github.com/jengzang/trip-features-go/internal/logger"
	"github.com/jengzang/trip-features-go/internal/repository"
	"github.com/jengzang/trip-features-go/internal/service"
)

func main() {
	os.Exit(serve())
}

// serve returns the process exit code so that deferred cleanup, including the
// logger flush, runs before exit.
func serve() int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Printf("failed to create logger: %v", err)
		return 1
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Error("server stopped with error", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN}, zlog)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.NewMigrationManager(db, zlog).RunMigrations(ctx); err != nil {
		return err
	}

	tripRepo := repository.NewTripRepository(db)
	modelRepo := repository.NewModelRepository(db)

	tripService := service.NewTripService(tripRepo, zlog)
	featureService := service.NewFeatureService(tripRepo, modelRepo, cfg.ModelCacheSize, cfg.TransformWorkers, zlog)

	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(cfg, zlog, api.Handlers{
		Trips:    handler.NewTripHandler(tripService),
		Features: handler.NewFeatureHandler(featureService),
	})

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zlog.Info("server starting", zap.String("addr", cfg.Port))
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		zlog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
