package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"totembo/internal/config"
	"totembo/internal/http/handlers"
	"totembo/internal/jobs"
	applog "totembo/internal/log"
	"totembo/internal/metrics"
	"totembo/internal/payment"
	"totembo/internal/repos"
	"totembo/internal/storage"
	"totembo/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		applog.Printf("[fatal] config: %v", err)
		os.Exit(1)
	}

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			applog.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
			applog.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	if cfg.TraceStdout {
		shutdown, err := telemetry.Setup(os.Stdout)
		if err != nil {
			applog.Printf("[warn] tracing disabled: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(ctx)
			}()
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		applog.Printf("[fatal] database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	var store fiber.Storage
	if cfg.RedisURL != "" {
		rs, err := storage.NewRedis(cfg.RedisURL, "")
		if err != nil {
			applog.Printf("[fatal] redis: %v", err)
			os.Exit(1)
		}
		defer rs.Close()
		store = rs
	}

	var provider payment.Provider = payment.SandboxProvider{}
	if cfg.StripeSecretKey != "" {
		provider = payment.NewStripeProvider(cfg.StripeSecretKey, cfg.PaymentRatePerSec, nil)
	} else {
		applog.Printf("[payment] STRIPE_SECRET_KEY not set, using sandbox checkout")
	}

	m := metrics.New()
	deps := handlers.NewDeps(db, cfg, provider, m)
	app := handlers.New(cfg, db, handlers.Options{
		Provider: provider,
		Storage:  store,
		Metrics:  m,
		Deps:     deps,
	})

	sched := jobs.NewScheduler()
	if err := sched.Add(cfg.CartSweepSpec, "release_abandoned_carts", jobs.ReleaseAbandonedCarts(deps.Carts, cfg.CartTTL, time.Now)); err != nil {
		applog.Printf("[fatal] scheduler: %v", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		applog.Printf("[server] shutting down")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	applog.Printf("[server] listening on :%s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		applog.Printf("[server] %v", err)
	}
}
