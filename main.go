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
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	database "github.com/FACorreiaa/go-tour-bookings/app/db"
	appLogger "github.com/FACorreiaa/go-tour-bookings/app/logger"
	appMiddleware "github.com/FACorreiaa/go-tour-bookings/app/middleware"
	"github.com/FACorreiaa/go-tour-bookings/app/observability/metrics"
	"github.com/FACorreiaa/go-tour-bookings/app/tracer"
	"github.com/FACorreiaa/go-tour-bookings/config"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/auth"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/booking"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/review"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/tour"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/user"
	"github.com/FACorreiaa/go-tour-bookings/internal/mail"
	"github.com/FACorreiaa/go-tour-bookings/internal/payment"
	"github.com/FACorreiaa/go-tour-bookings/internal/router"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails.
	if err := godotenv.Load(); err != nil {
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

	// --- Database ---
	databaseURL := database.ConnectionURL(cfg.Repositories.Postgres)
	if err := database.RunMigrations(databaseURL, logger); err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := database.Init(databaseURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- Observability ---
	metricsHandler, shutdownTracer, err := tracer.Init("go-tour-bookings")
	if err != nil {
		logger.Error("Failed to initialize telemetry", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.Any("error", err))
		}
	}()
	metrics.InitAppMetrics()

	// --- Optional Redis (rate limiting) ---
	var rdb *redis.Client
	if cfg.RateLimit.Enabled && cfg.Repositories.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Repositories.Redis.Addr,
			Password: cfg.Repositories.Redis.Password,
			DB:       cfg.Repositories.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis not reachable, rate limiting will fail open", slog.Any("error", err))
		}
	}

	// --- Dependency Injection ---
	production := cfg.IsProduction()

	var mailer mail.Mailer
	if cfg.Email.Host != "" {
		mailer = mail.NewSMTPMailer(cfg.Email, logger)
	} else {
		mailer = mail.NewNoop(logger)
	}

	authRepo := auth.NewPostgresRepository(pool, logger)
	authService := auth.NewService(authRepo, mailer, cfg.JWT, logger)
	authHandler := auth.NewHandler(authService, cfg.JWT, production, logger)
	authMW := auth.NewMiddleware(authService, cfg.JWT.CookieName, production, logger)

	statsCache := gocache.New(5*time.Minute, 10*time.Minute)
	tourRepo := tour.NewPostgresRepository(pool, logger)
	tourService := tour.NewService(tourRepo, statsCache, logger)
	tourHandler := tour.NewHandler(tourService, production, logger)

	reviewRepo := review.NewPostgresRepository(pool, logger)
	reviewService := review.NewService(reviewRepo, tourService.InvalidateStats, logger)
	reviewHandler := review.NewHandler(reviewService, production, logger)

	userRepo := user.NewPostgresRepository(pool, logger)
	userHandler := user.NewHandler(userRepo, production, logger)

	provider := payment.NewLocalProvider(logger)
	bookingRepo := booking.NewPostgresRepository(pool, logger)
	bookingHandler := booking.NewHandler(bookingRepo, tourService, provider,
		cfg.Server.FrontendURL, production, logger)

	// --- Router ---
	r := chi.NewMux()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(cfg.Server.Timeout))
	r.Use(middleware.Compress(5, "application/json"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Server.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(appMiddleware.RateLimit(cfg.RateLimit, rdb, logger))

	router.Mount(r, &router.Handlers{
		Auth:     authHandler,
		AuthMW:   authMW,
		Users:    userHandler,
		Tours:    tourHandler,
		Reviews:  reviewHandler,
		Bookings: bookingHandler,
	})

	// --- HTTP Servers ---
	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.HTTPPort),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metricsHandler)
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Metrics.Port),
		Handler: metricsMux,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", apiServer.Addr))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting metrics server", slog.String("address", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()

		logger.Info("Shutdown signal received, starting graceful shutdown...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server graceful shutdown failed", slog.Any("error", err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger(mode string) *slog.Logger {
	if mode == "production" {
		jsonOpts := &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		log.Println("Initialized production logger (JSON)")
		return slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
	}

	// Colored logs for development.
	tintOpts := &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
		AddSource:  true,
	}
	log.Println("Initialized development logger (tint)")
	return slog.New(tint.NewHandler(os.Stdout, tintOpts))
}
