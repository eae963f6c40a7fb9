package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nutriflow/internal/api"
	"nutriflow/internal/auth"
	"nutriflow/internal/catalog"
	"nutriflow/internal/mealplan"
	"nutriflow/internal/platform/gemini"
	"nutriflow/internal/platform/nutritionix"
	"nutriflow/internal/store"
)

const sessionSweepInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.Migrate(cfg.DatabaseDriver, cfg.DatabaseURL, logger); err != nil {
		return err
	}

	dbStore, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("error opening store: %w", err)
	}
	defer dbStore.Close()

	recipes, err := catalog.Default()
	if err != nil {
		return fmt.Errorf("error loading recipe catalog: %w", err)
	}
	generator := mealplan.NewGenerator(recipes, newRand(cfg.RandomSeed), logger)

	authService := auth.NewService(dbStore, auth.NewTokens(cfg.JWTSecret), time.Duration(cfg.SessionTTL), logger)

	var foods api.FoodSearcher
	if cfg.NutritionixAppID != "" && cfg.NutritionixAppKey != "" {
		foods = nutritionix.NewClient(cfg.NutritionixAppID, cfg.NutritionixAppKey)
	} else {
		logger.Info("nutritionix credentials not set, food search uses the local table")
	}

	var estimator api.NutritionEstimator
	if cfg.GeminiAPIKey != "" {
		geminiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return fmt.Errorf("error creating gemini client: %w", err)
		}
		defer geminiClient.Close()
		estimator = geminiClient
	} else {
		logger.Info("gemini api key not set, nutrition estimates are disabled")
	}

	handler := api.NewHandler(authService, generator, dbStore, foods, estimator, logger)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newRouter(handler, cfg.AllowedOrigins, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go sweepSessions(ctx, dbStore)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(handler *api.Handler, origins []string, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger(logger))

	// Configure CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handler.Register(r)
	return r
}

// sweepSessions deletes expired sessions until ctx is done.
func sweepSessions(ctx context.Context, st *store.Store) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := st.DeleteExpiredSessions(ctx)
			if err != nil {
				logger.Warn("failed to delete expired sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("deleted expired sessions", zap.Int64("count", n))
			}
		}
	}
}
