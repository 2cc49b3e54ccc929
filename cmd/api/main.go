package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/docflow-io/docflow/internal/config"
	"github.com/docflow-io/docflow/internal/connector"
	"github.com/docflow-io/docflow/internal/contentstore"
	"github.com/docflow-io/docflow/internal/cursor"
	"github.com/docflow-io/docflow/internal/fetch"
	"github.com/docflow-io/docflow/internal/handler"
	"github.com/docflow-io/docflow/internal/migrations"
	"github.com/docflow-io/docflow/internal/repository"
	db "github.com/docflow-io/docflow/internal/repository/db"
	"github.com/docflow-io/docflow/internal/scheduler"
	"github.com/docflow-io/docflow/internal/service"
	"github.com/docflow-io/docflow/internal/telemetry"
	"github.com/docflow-io/docflow/internal/tenant"
)

const serviceName = "docflow-api"

func main() {
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
	if err := cfg.RequireCursorSecret(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── OpenTelemetry ──────────────────────────────────────────────────────
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
		logger.Info("telemetry initialized", zap.String("endpoint", cfg.OTLPEndpoint))
	}
	metrics, err := telemetry.NewMetrics(serviceName)
	if err != nil {
		logger.Warn("metric instruments unavailable", zap.Error(err))
	}

	// ── Database ───────────────────────────────────────────────────────────
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

	if err := migrations.Up(ctx, pool); err != nil {
		logger.Fatal("migrations", zap.Error(err))
	}
	logger.Info("database ready")

	// ── Shared components ──────────────────────────────────────────────────
	validator, err := tenant.NewValidator(tenant.Config{
		Inline:    cfg.TenantAllowlist,
		Path:      cfg.TenantAllowlistPath,
		Refresh:   cfg.TenantAllowlistRefresh,
		DevBypass: cfg.IsDevelopment(),
	}, logger)
	if err != nil {
		logger.Fatal("tenant allowlist", zap.Error(err))
	}
	logger.Info("tenant allowlist loaded", zap.Int("tenants", validator.Known()))

	store, err := contentstore.New(cfg.StorageBaseURI)
	if err != nil {
		logger.Fatal("content store", zap.Error(err))
	}

	// An empty allowlist means any public host; the resolved-address check
	// still rejects private and special-use ranges.
	policy := fetch.NewPolicy(cfg.Fetch.URLAllowlist, cfg.Fetch.URLDenylist)
	fetcher := fetch.NewClient(policy, fetch.Options{
		ConnectTimeout: cfg.Fetch.ConnectTimeout,
		ReadTimeout:    cfg.Fetch.ReadTimeout,
		RedirectLimit:  cfg.Fetch.RedirectLimit,
		MaxBytes:       cfg.MaxUploadBytes,
	}, logger)
	logger.Info("url ingestion enabled", zap.Strings("hosts", cfg.Fetch.URLAllowlist))

	// ── Repository & services ──────────────────────────────────────────────
	querier := db.New(pool)
	tx := repository.NewTransactor(pool)
	signer := cursor.NewSigner(cfg.CursorSecret)

	ingestSvc := service.NewIngestService(cfg, tx, store, validator, fetcher, metrics, logger)
	readerSvc := service.NewReaderService(querier, signer)
	replaySvc := service.NewReplayService(tx, logger)

	// ── Background loops ───────────────────────────────────────────────────
	if cfg.DropDir != "" {
		poller := connector.NewPoller(cfg, ingestSvc, validator, logger)
		go poller.Run(ctx)
	}

	sweeper := scheduler.NewRetentionSweeper(cfg, querier, logger)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("retention sweeper", zap.Error(err))
	}

	// ── HTTP server ────────────────────────────────────────────────────────
	e := echo.New()
	e.HideBanner = true
	e.Use(otelecho.Middleware(serviceName))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Info("http request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
			)
			return nil
		},
	}))
	e.Use(echomw.Recover())

	handler.RegisterRoutes(e, cfg, ingestSvc, readerSvc, replaySvc, validator, pool, logger)

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := e.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failure", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ──────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutting down")

	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", zap.Error(err))
	}
	logger.Info("shut down cleanly")
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
