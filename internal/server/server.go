// Package server wires the dependency graph and runs the HTTP server.
//
// This is the composition root: the store, auth helpers, providers, push
// sender, services, and handlers are all constructed here and nowhere
// else. main.go only loads config and calls New + Start.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/meetsync/internal/auth"
	"github.com/sakif/meetsync/internal/config"
	"github.com/sakif/meetsync/internal/handler"
	"github.com/sakif/meetsync/internal/middleware"
	"github.com/sakif/meetsync/internal/model"
	"github.com/sakif/meetsync/internal/provider"
	"github.com/sakif/meetsync/internal/push"
	sqliteRepo "github.com/sakif/meetsync/internal/repository/sqlite"
	"github.com/sakif/meetsync/internal/service"
	"github.com/sakif/meetsync/internal/worker"
)

// Server owns the router, the database connection, and the background
// janitor. Close order on shutdown: HTTP first, then janitor, then DB.
type Server struct {
	router  *chi.Mux
	cfg     config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	janitor *worker.Janitor
}

// New assembles the full dependency graph.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService(cfg.BcryptCost)

	verifiers := make(map[model.Provider]provider.Verifier)
	if cfg.GoogleClientID != "" {
		verifiers[model.ProviderGoogle] = provider.NewGoogle()
	}
	if cfg.AppleClientID != "" {
		verifiers[model.ProviderApple] = provider.NewApple(cfg.AppleClientID)
	}

	var sender push.Sender = push.Noop{}
	if cfg.FCMProjectID != "" && cfg.FCMServiceAccountPath != "" {
		fcm, err := push.NewFCM(ctx, cfg.FCMProjectID, cfg.FCMServiceAccountPath, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("creating FCM sender: %w", err)
		}
		sender = fcm
	}

	authSvc := service.NewAuthService(db, tokens, passwords, service.AuthConfig{
		RefreshTTL:       cfg.RefreshTokenTTL,
		RememberMeTTL:    cfg.RememberMeTokenTTL,
		MaxTokensPerUser: cfg.MaxRefreshTokensPerUser,
	}, logger)
	userSvc := service.NewUserService(db, passwords, logger)
	deviceSvc := service.NewDeviceService(db, sender, logger)
	biometricSvc := service.NewBiometricService(db, authSvc, cfg.BiometricChallengeTTL, logger)
	socialSvc := service.NewSocialService(db, authSvc, verifiers, logger)
	prefsSvc := service.NewPreferencesService(db, logger)

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
		janitor: worker.NewJanitor(
			authSvc.CleanupExpired,
			biometricSvc.CleanupExpired,
			cfg.CleanupInterval,
			logger,
		),
	}
	s.setupRoutes(tokens, authSvc, userSvc, deviceSvc, biometricSvc, socialSvc, prefsSvc)
	return s, nil
}

func (s *Server) setupRoutes(
	tokens *auth.TokenService,
	authSvc *service.AuthService,
	userSvc *service.UserService,
	deviceSvc *service.DeviceService,
	biometricSvc *service.BiometricService,
	socialSvc *service.SocialService,
	prefsSvc *service.PreferencesService,
) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	authHandler := handler.NewAuthHandler(userSvc, authSvc, socialSvc, s.logger)
	userHandler := handler.NewUserHandler(userSvc, prefsSvc, s.logger)
	deviceHandler := handler.NewDeviceHandler(deviceSvc, s.logger)
	biometricHandler := handler.NewBiometricHandler(biometricSvc, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		// Public: these endpoints are how a client obtains a token.
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/refresh", authHandler.HandleRefresh)
			r.Post("/logout", authHandler.HandleLogout)
			r.Post("/password-reset/request", authHandler.HandlePasswordResetRequest)
			r.Post("/social/{provider}", authHandler.HandleSocialLogin)
			r.Post("/biometric/challenge", biometricHandler.HandleChallenge)
			r.Post("/biometric/login", biometricHandler.HandleLogin)

			// Protected auth management.
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAuth(tokens))
				r.Post("/logout-all", authHandler.HandleLogoutAll)
				r.Post("/biometric/setup", biometricHandler.HandleSetup)
				r.Delete("/biometric", biometricHandler.HandleDisable)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Route("/users/me", func(r chi.Router) {
				r.Get("/", userHandler.HandleMe)
				r.Patch("/", userHandler.HandleUpdateProfile)
				r.Delete("/", userHandler.HandleDeactivate)
				r.Post("/password", userHandler.HandleChangePassword)
				r.Get("/preferences", userHandler.HandleGetPreferences)
				r.Patch("/preferences", userHandler.HandleUpdatePreferences)
			})

			r.Route("/devices", func(r chi.Router) {
				r.Post("/", deviceHandler.HandleRegister)
				r.Get("/", deviceHandler.HandleList)
				r.Patch("/{deviceID}", deviceHandler.HandleUpdate)
				r.Delete("/{deviceID}", deviceHandler.HandleDeactivate)
				r.Post("/{deviceID}/test-notification", deviceHandler.HandleTestNotification)
			})
		})
	})
}

// Router returns the configured handler, mostly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully:
// stop accepting connections, drain in-flight requests, stop the janitor,
// close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go s.janitor.Run(janitorCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
