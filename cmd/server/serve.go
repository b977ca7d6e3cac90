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

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/sgst/sgst-api/internal/config"
	"github.com/sgst/sgst-api/internal/database"
	"github.com/sgst/sgst-api/internal/handler"
	"github.com/sgst/sgst-api/internal/middleware"
	"github.com/sgst/sgst-api/internal/queue"
	"github.com/sgst/sgst-api/internal/repository"
	"github.com/sgst/sgst-api/internal/router"
	"github.com/sgst/sgst-api/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, config.Load())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := newLogger(cfg.Env)

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	sessions := repository.NewTokenRepo(db)
	tenants := repository.NewTenantRepo(db)

	var events service.EventPublisher = queue.NopPublisher{}
	if config.EventsEnabled() {
		pub := queue.NewPublisher(config.AMQPURL(), logger)
		defer pub.Close()
		events = pub
	}

	tokens := service.NewTokenService(users, sessions, service.TokenConfig{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}, logger)
	auth := service.NewAuthService(users, tenants, tokens, cfg.BcryptCost, events, logger)
	tenantSvc := service.NewTenantService(tenants, users, tokens, events, logger)

	rdb := config.NewRedisClient(config.LoadRedisConfig(), logger)
	if rdb != nil {
		defer rdb.Close()
	}
	limits := config.LoadAuthRateLimits(config.LoadRateLimitConfig())

	cookies := handler.CookieConfig{
		Secure:      cfg.CookiesSecure,
		AccessTTL:   cfg.AccessTTL,
		RefreshTTL:  cfg.RefreshTTL,
		WorkshopTTL: cfg.WorkshopCookieTTL,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger(logger))

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(auth, tokens, tenantSvc, cookies, logger), tokens, router.AuthLimiters{
		Login:    middleware.NewTokenBucket(limits.Login, rdb, logger),
		Register: middleware.NewTokenBucket(limits.Register, rdb, logger),
		Refresh:  middleware.NewTokenBucket(limits.Refresh, rdb, logger),
	})
	router.RegisterTenant(e, handler.NewTenantHandler(tenantSvc, cookies, logger), tokens,
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger))

	go sweepSessions(ctx, sessions, cfg.SessionSweepEvery, logger)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return e.Shutdown(shutdownCtx)
}

// sweepSessions removes expired refresh sessions until ctx is done.
// Expiry is also checked on every refresh, so this only reclaims rows.
func sweepSessions(ctx context.Context, sessions *repository.TokenRepo, every time.Duration, logger *slog.Logger) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := sessions.DeleteExpired(ctx, now.UTC())
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("session sweep failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				logger.Info("expired sessions removed", slog.Int64("count", n))
			}
		}
	}
}
