package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studio/server/internal/api"
	"studio/server/internal/auth"
	"studio/server/internal/config"
	"studio/server/internal/events"
	"studio/server/internal/export"
	"studio/server/internal/generation"
	"studio/server/internal/metrics"
	"studio/server/internal/provider"
	"studio/server/internal/publish"
	"studio/server/internal/store"
	"studio/server/internal/studio"
	"studio/server/internal/suggest"
	"studio/server/internal/telemetry"
	"studio/server/internal/textgen"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		addr    string
		envFile string
	)
	cmd := &cobra.Command{
		Use:           "studio-server",
		Short:         "Content studio API: credits, generation, gallery and publishing",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var files []string
			if envFile != "" {
				files = append(files, envFile)
			}
			cfg, err := config.Load(files...)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides STUDIO_SERVER_ADDR)")
	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file to load before the environment")
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	logger := telemetry.NewLogger(cfg.LogLevel)

	var (
		rec      *metrics.Recorder
		gatherer prometheus.Gatherer
	)
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		var err error
		if rec, err = metrics.New(reg); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		gatherer = reg
	}

	st := store.NewMemoryStore()
	authSvc := auth.NewService(st, cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	if err := authSvc.SeedDemoUser(cfg.DemoEmail, cfg.DemoPassword); err != nil {
		return fmt.Errorf("seed demo user: %w", err)
	}

	var prov provider.Adapter
	switch cfg.Provider {
	case "mock":
		prov = provider.NewMockAdapter()
	default:
		prov = provider.NewWebhookAdapter(cfg.WebhookTimeout)
	}

	rotator, err := suggest.NewRotator(suggest.DefaultSchedule, suggest.Prompts)
	if err != nil {
		return fmt.Errorf("suggestion schedule: %w", err)
	}
	rotator.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		rotator.Stop(stopCtx)
	}()

	hub := events.NewHub()
	sessions := studio.NewRegistry(studio.Options{
		InitialCredits: cfg.InitialCredits,
		PaymentDelay:   cfg.PaymentDelay,
		Webhooks: studio.WebhookSettings{
			Image: cfg.ImageWebhookURL,
			Video: cfg.VideoWebhookURL,
		},
		Hub:     hub,
		Metrics: rec,
		Logger:  logger,
	})

	srv := api.NewServer(api.Deps{
		Auth:        authSvc,
		Users:       st,
		Sessions:    sessions,
		Generations: generation.NewService(prov, textgen.Generator{Delay: cfg.TextDelay}, hub, rec, logger),
		Publisher:   publish.NewService(cfg.PublishDelay, cfg.WebhookTimeout, rec, logger),
		Exporter:    export.NewExporter(cfg.WebhookTimeout),
		Suggestions: rotator,
		Hub:         hub,
		Metrics:     rec,
		Gatherer:    gatherer,
		RateLimit: api.RateLimitConfig{
			RequestsPerMinute: cfg.GenerationRPM,
			Burst:             cfg.GenerationBurst,
		},
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	logger.Info("server_start",
		"addr", cfg.Addr,
		"demo_user", cfg.DemoEmail,
		"provider", cfg.Provider,
		"initial_credits", cfg.InitialCredits,
		"metrics", cfg.MetricsEnabled,
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("server_shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
