package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fathima-sithara/quickads/internal/auth"
	"github.com/fathima-sithara/quickads/internal/chat"
	"github.com/fathima-sithara/quickads/internal/handlers"
	"github.com/fathima-sithara/quickads/internal/otp"
	"github.com/fathima-sithara/quickads/internal/profile"
	"github.com/fathima-sithara/quickads/internal/ratelimit"
	"github.com/fathima-sithara/quickads/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := buildApp(ctx)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	cfg, log := a.cfg, a.log
	log.Info("starting quickads", zap.String("env", cfg.App.Env), zap.Int("port", cfg.App.Port))

	verifier, err := auth.NewVerifier(cfg.JWT.PublicKeyPath)
	if err != nil {
		return fmt.Errorf("jwt key: %w", err)
	}
	if cfg.JWT.PublicKeyPath == "" {
		log.Warn("no jwt public key configured, token signatures are not checked")
	}

	ipLimiter := ratelimit.NewKeyed(cfg.RateLimit.PerMinute, 5)
	defer ipLimiter.Close()

	var otpLimiter ratelimit.Limiter
	if a.rdb != nil {
		otpLimiter = ratelimit.NewRedis(a.rdb, cfg.Cache.Redis.Prefix+":otp", cfg.RateLimit.OTPSendPerMinute, time.Minute)
	} else {
		keyed := ratelimit.NewKeyed(cfg.RateLimit.OTPSendPerMinute, 1)
		defer keyed.Close()
		otpLimiter = keyed
	}

	chatSvc := chat.NewService(a.api, cfg.Upstream.ChatURL, log)
	h := handlers.New(handlers.Deps{
		Posts:      a.posts,
		OTP:        otp.NewService(a.api, a.cache, otpLimiter, log),
		Moderation: a.mod,
		Profile:    profile.NewService(a.api, a.cache, a.uploader, log),
		Chat:       chatSvc,
		Uploader:   a.uploader,
		MaxUpload:  cfg.S3.MaxBytes,
		LoginPath:  cfg.App.LoginPath,
		VerifyPath: cfg.App.VerifyPath,
		HealthCheck: func() fiber.Map {
			return fiber.Map{"upstream": a.api.BreakerState(), "uploads": a.uploader != nil}
		},
		Log: log,
	})

	app := server.New(server.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		AdminRole:    cfg.JWT.AdminRole,
	}, server.Deps{
		Handler:  h,
		Verifier: verifier,
		Limiter:  ipLimiter,
		Relay:    chat.NewRelay(chatSvc, chat.RelayConfig{AskTimeout: cfg.UpstreamTimeout}, log),
		Log:      log,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(fmt.Sprintf(":%d", cfg.App.Port))
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		a.close(ctx)
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	log.Info("shutdown signal received, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	a.close(shutdownCtx)
	log.Info("quickads stopped")
	return nil
}
