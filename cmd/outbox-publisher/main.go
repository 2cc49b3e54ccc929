package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/docflow-io/docflow/internal/config"
	"github.com/docflow-io/docflow/internal/dispatcher"
	"github.com/docflow-io/docflow/internal/fetch"
	"github.com/docflow-io/docflow/internal/repository"
	db "github.com/docflow-io/docflow/internal/repository/db"
	"github.com/docflow-io/docflow/internal/telemetry"
	"github.com/docflow-io/docflow/internal/tenant"
	"github.com/docflow-io/docflow/internal/worker"
)

const serviceName = "docflow-outbox-publisher"

func newRunCommand() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the publish lease loop",
		Run: func(_ *cobra.Command, _ []string) {
			run(once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "drain due events and exit")
	return cmd
}

func main() {
	root := &cobra.Command{
		Use:  "outbox-publisher [command]",
		Long: "Delivers settled pipeline events to the configured transport",
	}

	root.AddCommand(newRunCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(once bool) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.RequireDatabase(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if err := cfg.RequireTransport(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		tp, err := telemetry.InitTracer(ctx, serviceName, cfg.OTLPEndpoint)
		if err != nil {
			logger.Error("otel tracer init failed", zap.Error(err))
		} else {
			defer tp.Shutdown(context.Background())
		}
		mp, err := telemetry.InitMeterProvider(ctx, serviceName, cfg.OTLPEndpoint)
		if err != nil {
			logger.Error("otel meter init failed", zap.Error(err))
		} else {
			defer mp.Shutdown(context.Background())
		}
	}
	metrics, err := telemetry.NewMetrics(serviceName)
	if err != nil {
		logger.Warn("metric instruments unavailable", zap.Error(err))
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("parse DATABASE_URL", zap.Error(err))
	}
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer pool.Close()

	validator, err := tenant.NewValidator(tenant.Config{
		Inline:    cfg.TenantAllowlist,
		Path:      cfg.TenantAllowlistPath,
		Refresh:   cfg.TenantAllowlistRefresh,
		DevBypass: cfg.IsDevelopment(),
	}, logger)
	if err != nil {
		logger.Fatal("tenant allowlist", zap.Error(err))
	}

	var transport dispatcher.Transport
	switch cfg.Transport {
	case config.TransportWebhook:
		policy := fetch.NewPolicy(cfg.Webhook.DomainAllowlist, nil)
		transport, err = dispatcher.NewWebhookTransport(cfg.Webhook, policy, logger)
		if err != nil {
			logger.Fatal("webhook transport", zap.Error(err))
		}
		logger.Info("publishing to webhook", zap.String("url", cfg.Webhook.URL))
	default:
		transport = dispatcher.NewStdoutTransport(os.Stdout)
		logger.Info("publishing to stdout")
	}

	runner := worker.NewRunner("outbox-publisher",
		db.New(pool),
		repository.NewTransactor(pool),
		worker.NewPublishHandler(transport, logger),
		validator,
		cfg.Publish,
		metrics,
		logger,
	)

	if once {
		if err := runner.RunOnce(ctx); err != nil {
			logger.Fatal("drain failed", zap.Error(err))
		}
		logger.Info("drained, exiting")
		return
	}
	if err := runner.Run(ctx); err != nil {
		logger.Fatal("worker failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zc = zap.NewDevelopmentConfig()
	}
	if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zc.Build()
}
