package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"lunara/internal/config"
	"lunara/internal/database"
	"lunara/internal/handlers"
	"lunara/internal/logging"
	"lunara/internal/security"
	"lunara/internal/service"
)

const (
	cleanupInterval = time.Hour
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg := config.Load()
	logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startup := handlers.DefaultStartupStatus()

	startup.SetCurrentStep(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database connection established", "type", cfg.DatabaseType)
	startup.CompleteStep(handlers.StepDatabase)

	startup.SetCurrentStep(handlers.StepMigrations)
	if err := db.RunMigrations(ctx); err != nil {
		return err
	}
	startup.CompleteStep(handlers.StepMigrations)

	startup.SetCurrentStep(handlers.StepCatalog)
	shop, templates, err := service.LoadCatalog()
	if err != nil {
		return err
	}
	slog.Info("catalog loaded", "items", len(shop.Items()), "template_categories", len(templates))
	startup.CompleteStep(handlers.StepCatalog)

	startup.SetCurrentStep(handlers.StepServices)
	var email *service.EmailService
	if cfg.SESFromEmail != "" {
		email, err = service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.EmailDebug)
		if err != nil {
			slog.Warn("email disabled: failed to initialize SES client", "error", err)
			email = nil
		}
	} else {
		slog.Info("email disabled: SES_FROM_EMAIL not set")
	}

	services, err := service.NewServices(db, service.Options{
		SessionDuration: cfg.SessionDuration,
		Moons:           cfg.Moons,
		Email:           email,
		Shop:            shop,
		Templates:       templates,
	})
	if err != nil {
		return err
	}
	startup.CompleteStep(handlers.StepServices)

	kidTokens := security.NewKidTokens(cfg.KidSessionSecret, cfg.KidSessionDuration)
	limiter := security.NewRateLimiter(10, time.Minute)

	providers := map[string]handlers.OAuthProvider{
		"google": handlers.GoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret),
	}

	router := handlers.NewRouter(handlers.Handlers{
		Middleware: handlers.NewMiddleware(services.Auth, kidTokens, limiter),
		Startup:    startup,
		Auth: handlers.NewAuthHandler(services.Auth, services.Family, kidTokens, providers,
			cfg.OAuthRedirectBaseURL, cfg.AppBaseURL),
		Parent:         handlers.NewParentHandler(services.Family),
		Kid:            handlers.NewKidHandler(services.Moons, services.Progress),
		Reward:         handlers.NewRewardHandler(services.Rewards, services.Claims),
		Shop:           handlers.NewShopHandler(services.Shop),
		Activity:       handlers.NewActivityHandler(services.Activities, services.Journal),
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	startup.MarkReady()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		cleanupLoop(gctx, services, limiter)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// cleanupLoop periodically removes expired sessions, invitations and idle
// rate limiter entries until ctx is cancelled.
func cleanupLoop(ctx context.Context, services *service.Services, limiter *security.RateLimiter) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n, err := services.Auth.CleanupExpiredSessions(ctx); err != nil {
			slog.Error("failed to clean up expired sessions", "error", err)
		} else if n > 0 {
			slog.Info("expired sessions cleaned up", "count", n)
		}

		if n, err := services.Family.CleanupExpiredInvitations(ctx); err != nil {
			slog.Error("failed to clean up expired invitations", "error", err)
		} else if n > 0 {
			slog.Info("expired invitations cleaned up", "count", n)
		}

		if n := limiter.Cleanup(); n > 0 {
			slog.Debug("rate limiter entries dropped", "count", n)
		}
	}
}
