package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	database "github.com/aiarcade/aiarcade/app/db"
	appLogger "github.com/aiarcade/aiarcade/app/logger"
	"github.com/aiarcade/aiarcade/app/observability/metrics"
	"github.com/aiarcade/aiarcade/app/tracer"
	"github.com/aiarcade/aiarcade/config"
	"github.com/aiarcade/aiarcade/internal/api/auth"
	"github.com/aiarcade/aiarcade/internal/api/blog"
	"github.com/aiarcade/aiarcade/internal/api/dashboard"
	"github.com/aiarcade/aiarcade/internal/api/session"
	"github.com/aiarcade/aiarcade/internal/api/tools"
	"github.com/aiarcade/aiarcade/internal/api/user"
	"github.com/aiarcade/aiarcade/internal/mailer"
	api "github.com/aiarcade/aiarcade/internal/router"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger(cfg.Mode)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Observability ---
	metricsHandler, err := tracer.InitTracingAndMetrics("aiarcade")
	if err != nil {
		logger.Error("Failed to initialize tracing and metrics", slog.Any("error", err))
		os.Exit(1)
	}
	metrics.InitAppMetrics()

	// --- Database Setup ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	// Run migrations before initializing the main pool
	err = database.RunMigrations(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- Email & OAuth ---
	dispatcher, err := mailer.NewSMTPSender(cfg.SMTP)
	if err != nil {
		logger.Error("Failed to initialize mail sender", slog.Any("error", err))
		os.Exit(1)
	}
	auth.SetupOAuthProviders(&cfg)

	// --- Dependency Injection ---
	authRepo := auth.NewPostgresAuthRepo(pool, logger)
	authService := auth.NewAuthService(authRepo, &cfg, logger)

	// Server-side session cache, refreshed at most once per debounce window.
	sessionStore := session.NewCacheStore(cfg.Auth.SessionTTL)
	sessionHolder := session.NewHolder(sessionStore, authService.GetUserProfile, cfg.Auth.RefreshDebounce, logger)

	authHandler := auth.NewAuthHandler(authService, dispatcher, sessionHolder, &cfg, logger)

	userRepo := user.NewPostgresUserRepo(pool, logger)
	userService := user.NewUserService(userRepo, &cfg, logger)
	userHandler := user.NewUserHandler(userService, logger)

	toolsRepo := tools.NewPostgresToolsRepo(pool, logger)
	toolsService := tools.NewToolsService(toolsRepo, logger)
	toolsHandler := tools.NewToolsHandler(toolsService, logger)

	blogRepo := blog.NewPostgresBlogRepo(pool, logger)
	blogService := blog.NewBlogService(blogRepo, logger)
	blogHandler := blog.NewBlogHandler(blogService, logger)

	dashboardRepo := dashboard.NewPostgresDashboardRepo(pool, logger)
	dashboardService := dashboard.NewDashboardService(dashboardRepo, authService, logger)
	dashboardHandler := dashboard.NewDashboardHandler(dashboardService, logger)

	routerConfig := &api.Config{
		AuthHandler:            authHandler,
		UserHandler:            userHandler,
		ToolsHandler:           toolsHandler,
		BlogHandler:            blogHandler,
		DashboardHandler:       dashboardHandler,
		AuthenticateMiddleware: auth.Authenticate(logger, cfg.JWT),
		MetricsHandler:         metricsHandler,
	}
	mainRouter := api.SetupRouter(routerConfig)

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appLogger.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	router.Use(middleware.Timeout(cfg.Server.Timeout))
	router.Use(middleware.Compress(5, "application/json"))
	router.Mount("/", mainRouter)

	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger(mode string) *slog.Logger {
	var logger *slog.Logger

	if mode == "development" || mode == "" {
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		jsonOpts := &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: false,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
