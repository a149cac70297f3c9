package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brightmarket/storefront/internal/auth"
	"github.com/brightmarket/storefront/internal/background"
	"github.com/brightmarket/storefront/internal/config"
	"github.com/brightmarket/storefront/internal/database"
	"github.com/brightmarket/storefront/internal/handlers"
	appmiddleware "github.com/brightmarket/storefront/internal/middleware"
	"github.com/brightmarket/storefront/internal/models"
	"github.com/brightmarket/storefront/internal/repositories"
	"github.com/brightmarket/storefront/internal/routes"
	"github.com/brightmarket/storefront/internal/services"
	pkgauth "github.com/brightmarket/storefront/pkg/auth"
	pkghttp "github.com/brightmarket/storefront/pkg/http"
	pkglogger "github.com/brightmarket/storefront/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("starting server",
		slog.String("env", cfg.Server.Env),
		slog.String("port", cfg.Server.Port))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	verificationRepo := repositories.NewEmailVerificationRepository(db)
	resetRepo := repositories.NewPasswordResetRepository(db)
	oauthAccountRepo := repositories.NewOAuthAccountRepository(db)
	productRepo := repositories.NewProductRepository(db)

	// Shared infrastructure
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
		cfg.Auth.RememberMeExpiry,
	)
	auditLogger := pkglogger.NewAuditLogger(logger)

	var emailService services.EmailService
	if cfg.Email.EmailEnabled() {
		emailService, err = services.NewAWSSESEmailService(
			cfg.Email.AWSRegion, cfg.Email.FromAddress, cfg.Server.ClientURL, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize SES client: %w", err)
		}
		logger.Info("email delivery enabled", slog.String("region", cfg.Email.AWSRegion))
	} else {
		emailService = services.NewLogEmailService(cfg.Server.ClientURL, logger)
		logger.Warn("SES not configured, email links will be logged instead of sent")
	}

	// Services
	verificationService := services.NewEmailVerificationService(
		verificationRepo, userRepo, emailService, logger, cfg.Email.VerificationExpiry)
	authService := services.NewAuthService(
		userRepo, sessionRepo, resetRepo, verificationService, emailService,
		tokenManager, logger, auditLogger, cfg.Email.PasswordResetExpiry)
	oauthService := services.NewOAuthService(
		services.BuildProviders(cfg.OAuth), userRepo, oauthAccountRepo, logger, auditLogger)
	userService := services.NewUserService(userRepo, logger)
	productService := services.NewProductService(productRepo, logger)

	// Handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	cookieConfig := auth.CookieConfig{
		Domain: cfg.Auth.CookieDomain,
		Secure: cfg.Auth.CookieSecure,
	}
	authHandler := handlers.NewAuthHandler(authService, verificationService, ipConfig, cookieConfig)
	oauthHandler := handlers.NewOAuthHandler(oauthService, authService, ipConfig, cookieConfig, cfg.Server.ClientURL)
	userHandler := handlers.NewUserHandler(userService)
	productHandler := handlers.NewProductHandler(productService)

	if err := ensureAdminUser(ctx, userRepo, logger); err != nil {
		return fmt.Errorf("failed to ensure admin user: %w", err)
	}

	// Background cleanup of expired sessions and one-time tokens
	cleanupManager := background.NewCleanupManager(map[string]background.ExpiredCleaner{
		"sessions":                  sessionRepo,
		"email_verification_tokens": verificationRepo,
		"password_reset_tokens":     resetRepo,
	}, logger, cfg.Auth.CleanupInterval)
	go cleanupManager.Start(ctx)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appmiddleware.SecurityHeaders(appmiddleware.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(appmiddleware.CORS(appmiddleware.NewCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(appmiddleware.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(r.Context()); err != nil {
			pkghttp.WriteError(w, http.StatusServiceUnavailable, pkghttp.CodeInternalError, "Database unavailable")
			return
		}
		stats := db.Stats()
		pkghttp.WriteSuccess(w, http.StatusOK, map[string]any{
			"status": "ok",
			"database": map[string]any{
				"totalConns": stats.TotalConns(),
				"idleConns":  stats.IdleConns(),
			},
		})
	})

	routes.RegisterRoutes(router, authHandler, oauthHandler, userHandler, productHandler, tokenManager, appmiddleware.AuthRateLimit())

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	cleanupManager.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// ensureAdminUser creates the bootstrap admin account when ADMIN_EMAIL and
// ADMIN_PASSWORD are set and no user with that email exists yet
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	if _, err := userRepo.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return err
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return fmt.Errorf("ADMIN_PASSWORD rejected: %w", err)
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return err
	}

	admin := &models.User{
		Email:         email,
		PasswordHash:  hash,
		Name:          "Administrator",
		Role:          models.RoleSuperAdmin,
		EmailVerified: true,
	}
	if _, err := userRepo.Create(ctx, admin); err != nil {
		return err
	}

	logger.Info("bootstrap admin user created",
		slog.String("email", pkglogger.SanitizedEmail(email)))
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
