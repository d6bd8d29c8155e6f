package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/dealbook/internal/auth"
	"github.com/ksred/dealbook/internal/config"
	"github.com/ksred/dealbook/internal/database"
	"github.com/ksred/dealbook/internal/ledger"
	"github.com/ksred/dealbook/internal/report"
	"github.com/ksred/dealbook/pkg/middleware"
)

// setupLogging configures the global logger. Outside production it enables
// pretty console output with timestamps.
func setupLogging(cfg *config.Config) {
	if !cfg.IsProduction() {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}
	zerolog.SetGlobalLevel(cfg.Level())
}

// main initializes and runs the report API server with graceful shutdown support
func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load configuration")
	}
	setupLogging(cfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialize database")
	}

	router := gin.Default()
	router.MaxMultipartMemory = cfg.MaxUploadBytes

	authService := auth.NewService(cfg.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)
	if cfg.APIKey != "" {
		authService.RegisterAPICredentials(cfg.APIKey, cfg.APISecret)
	} else {
		zlog.Warn().Msg("no api credentials configured, token endpoint will reject every request")
	}

	reportHandlers := report.NewGinHandlers(report.NewService(cfg.ReportCacheTTL, cfg.ReportCacheCleanup))
	ledgerHandlers := ledger.NewGinHandlers(ledger.NewService(db))

	setupRoutes(router, cfg, authHandlers, reportHandlers, ledgerHandlers)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           corsHandler.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("shutting down server")

	// Give in-flight report runs 10 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("server forced to shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	zlog.Info().Msg("server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// Auth routes are public and limited per IP; report and ledger routes require
// a JWT, are limited per client id and are scoped to it.
func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	authHandlers *auth.GinHandlers,
	reportHandlers *report.GinHandlers,
	ledgerHandlers *ledger.GinHandlers,
) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimit())
		{
			auth.POST("/token", authHandlers.GenerateTokenHandler())
		}

		reports := v1.Group("/reports")
		reports.Use(middleware.JWTAuth(cfg.JWTSecret), middleware.RateLimit())
		{
			reports.POST("", middleware.BodyLimit(cfg.MaxUploadBytes), reportHandlers.GenerateReportHandler())
			reports.GET("/:report_id", reportHandlers.GetReportHandler())
			reports.GET("/:report_id/xlsx", reportHandlers.DownloadReportHandler())
		}

		ledgers := v1.Group("/ledgers")
		ledgers.Use(middleware.JWTAuth(cfg.JWTSecret), middleware.RateLimit())
		{
			ledgers.POST("/:kind", middleware.BodyLimit(cfg.MaxUploadBytes), ledgerHandlers.UploadHandler())
			ledgers.GET("/final-report", ledgerHandlers.FinalReportHandler())
			ledgers.GET("/deposit-discrepancies", ledgerHandlers.DepositDiscrepanciesHandler())
			ledgers.GET("/deposit-discrepancies/xlsx", ledgerHandlers.DownloadDiscrepanciesHandler())
		}
	}
}
