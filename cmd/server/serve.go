package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"query-gateway/internal/middleware"
	"query-gateway/internal/router"
	"query-gateway/internal/security"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := router.Options{
		AllowedOrigins: a.cfg.Security.CORSAllowedOrigins,
		Logger:         a.logger,
	}
	if a.cfg.Security.EnableRateLimit {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RPM:   a.cfg.Security.RateLimitPerMinute,
			Burst: a.cfg.Security.RateLimitBurst,
		})
		defer limiter.Stop()
		opts.RateLimiter = limiter
	}
	if a.cfg.Security.EnableAuth {
		jwtManager := security.NewJWTManager(a.cfg.Security.JWTSecret, a.cfg.Security.JWTExpiration)
		opts.Auth = security.NewAuthMiddleware(jwtManager)
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Address(),
		Handler:           router.New(a.controllers(), opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.WithField("addr", srv.Addr).Info("Starting query gateway")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.logger.Info("Server stopped")
	return nil
}
