package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/klamberth/helpcenter/internal/auth"
	"github.com/klamberth/helpcenter/internal/background"
	"github.com/klamberth/helpcenter/internal/config"
	"github.com/klamberth/helpcenter/internal/database"
	"github.com/klamberth/helpcenter/internal/handlers"
	middlewareCustom "github.com/klamberth/helpcenter/internal/middleware"
	"github.com/klamberth/helpcenter/internal/repositories"
	"github.com/klamberth/helpcenter/internal/routes"
	"github.com/klamberth/helpcenter/internal/services"
	"github.com/klamberth/helpcenter/internal/storage"
	pkghttp "github.com/klamberth/helpcenter/pkg/http"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Run migrations before the pool comes up
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := database.Migrate(migrateCtx, cfg.Database.DSN()); err != nil {
		migrateCancel()
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	migrateCancel()

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	issueRepo := repositories.NewIssueRepository(db)

	// Attachment store
	diskStore, err := storage.NewDiskStore(cfg.Uploads.Dir, cfg.Uploads.MaxFileSize)
	if err != nil {
		logger.Error("failed to initialize attachment store", slog.Any("error", err))
		os.Exit(1)
	}

	// Token manager
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	// Initialize services
	lockout := services.LockoutPolicy{
		Threshold: cfg.Auth.LockoutThreshold,
		LockFor:   cfg.Auth.LockoutDuration,
	}
	authService := services.NewAuthService(userRepo, tokenManager, lockout,
		cfg.Auth.BootstrapAdmin, cfg.Cleanup.DisposableDomain, logger)
	accountService := services.NewAccountService(userRepo, logger)
	issueService := services.NewIssueService(issueRepo, userRepo, diskStore, logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	accountHandler := handlers.NewAccountHandler(accountService)
	issueHandler := handlers.NewIssueHandler(issueService, diskStore,
		cfg.Uploads.MaxPerIssue, cfg.Uploads.MaxFileSize)

	// Client IP extraction honors forwarded headers only from trusted proxies
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, accountHandler, issueHandler,
		tokenManager, userRepo, cfg.Uploads.Dir)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the disposable-account janitor when enabled
	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	defer janitorCancel()

	var janitor *background.Janitor
	if cfg.Cleanup.Interval > 0 {
		janitor = background.NewJanitor(authService, logger, cfg.Cleanup.Interval)
		go janitor.Start(janitorCtx)
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	janitorCancel()
	if janitor != nil {
		janitor.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
