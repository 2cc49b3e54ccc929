// Package scheduler runs the retention sweeper on a cron cadence.
//
// Sent outbox rows and consumer-ledger rows are append-heavy and grow without
// bound on a busy tenant, so the sweeper deletes rows past their retention
// window:
//
//	sent outbox rows    → RETENTION_SENT_DAYS
//	processed ledger    → RETENTION_LEDGER_DAYS
//
// Inbox items, parsed output and dead letters are never swept; dead letters
// only leave the table through an explicit replay.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/docflow-io/docflow/internal/config"
	db "github.com/docflow-io/docflow/internal/repository/db"
)

// sweepTimeout bounds a single sweep; the deletes are indexed range scans and
// normally finish in well under a second.
const sweepTimeout = 5 * time.Minute

// RetentionSweeper wraps robfig/cron and prunes settled rows on a schedule.
type RetentionSweeper struct {
	cron      *cron.Cron
	queries   db.Querier
	schedule  string
	sentAge   time.Duration
	ledgerAge time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewRetentionSweeper creates and configures the sweeper.
func NewRetentionSweeper(cfg *config.Config, queries db.Querier, logger *zap.Logger) *RetentionSweeper {
	return &RetentionSweeper{
		cron:      cron.New(),
		queries:   queries,
		schedule:  cfg.RetentionCron,
		sentAge:   time.Duration(cfg.RetentionSentDays) * 24 * time.Hour,
		ledgerAge: time.Duration(cfg.RetentionLedgerDays) * 24 * time.Hour,
		logger:    logger,
		now:       time.Now,
	}
}

// Start registers the sweep job and starts the scheduler.
// Call Stop() to gracefully shut down.
func (s *RetentionSweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.run); err != nil {
		return fmt.Errorf("schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info("retention sweeper started",
		zap.String("schedule", s.schedule),
		zap.Duration("sent_age", s.sentAge),
		zap.Duration("ledger_age", s.ledgerAge),
	)
	return nil
}

// Stop gracefully stops the scheduler, waiting for an in-flight sweep.
func (s *RetentionSweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("retention sweeper stopped")
}

func (s *RetentionSweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if err := s.Sweep(ctx); err != nil {
		s.logger.Error("retention sweep failed", zap.Error(err))
	}
}

// Sweep deletes rows past their retention window and logs what it removed.
func (s *RetentionSweeper) Sweep(ctx context.Context) error {
	now := s.now().UTC()

	sent, err := s.queries.DeleteSentOutboxBefore(ctx,
		pgtype.Timestamptz{Time: now.Add(-s.sentAge), Valid: true})
	if err != nil {
		return fmt.Errorf("sweep sent outbox: %w", err)
	}

	ledger, err := s.queries.DeleteProcessedEventsBefore(ctx,
		pgtype.Timestamptz{Time: now.Add(-s.ledgerAge), Valid: true})
	if err != nil {
		return fmt.Errorf("sweep processed ledger: %w", err)
	}

	s.logger.Info("retention sweep finished",
		zap.Int64("sent_outbox_deleted", sent),
		zap.Int64("processed_events_deleted", ledger),
	)
	return nil
}
