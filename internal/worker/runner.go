package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/docflow-io/docflow/internal/config"
	"github.com/docflow-io/docflow/internal/fault"
	"github.com/docflow-io/docflow/internal/outbox"
	"github.com/docflow-io/docflow/internal/repository"
	db "github.com/docflow-io/docflow/internal/repository/db"
	"github.com/docflow-io/docflow/internal/telemetry"
	"github.com/docflow-io/docflow/internal/tenant"
)

// Handler processes one leased envelope.
type Handler interface {
	// EventTypes is the topic filter for the candidate scan; empty means
	// every type.
	EventTypes() []string
	// Detached reports whether Handle blocks on something other than the
	// database. A detached handler runs after the claim commits, outside
	// any transaction, so it must not write business rows.
	Detached() bool
	// Handle receives the lease transaction for attached handlers and the
	// bare pool for detached ones.
	Handle(ctx context.Context, q db.Querier, env outbox.Envelope) HandlerOutcome
}

// Runner drives the poll/lease/settle cycle for one handler.
type Runner struct {
	name      string
	querier   db.Querier
	tx        repository.Transactor
	handler   Handler
	validator *tenant.Validator
	enqueuer  *outbox.Enqueuer
	cfg       config.WorkerConfig
	metrics   *telemetry.Metrics
	logger    *zap.Logger

	now func() time.Time
}

// NewRunner builds a Runner. The querier serves the read-only candidate
// scan; every lease and settlement runs through tx.
func NewRunner(name string, querier db.Querier, tx repository.Transactor, handler Handler,
	validator *tenant.Validator, cfg config.WorkerConfig, metrics *telemetry.Metrics, logger *zap.Logger) *Runner {
	return &Runner{
		name:      name,
		querier:   querier,
		tx:        tx,
		handler:   handler,
		validator: validator,
		enqueuer:  outbox.NewEnqueuer(logger),
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Run polls on the configured interval until ctx is cancelled. The first
// poll happens immediately.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("worker started",
		zap.String("worker", r.name),
		zap.Strings("event_types", r.handler.EventTypes()),
		zap.Duration("poll_interval", r.cfg.PollInterval),
		zap.Int32("batch_size", r.cfg.BatchSize),
	)
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if _, err := r.Poll(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("poll failed", zap.String("worker", r.name), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			r.logger.Info("worker stopped", zap.String("worker", r.name))
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce drains the bus: it polls until a scan comes back empty. Batch
// invocations use this to process everything due and exit.
func (r *Runner) RunOnce(ctx context.Context) error {
	for {
		n, err := r.Poll(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// Poll runs one scan/lease/settle cycle and reports how many candidates the
// scan returned. Candidates lost to another worker still count.
func (r *Runner) Poll(ctx context.Context) (int, error) {
	ids, err := r.querier.ListDueOutboxEvents(ctx, db.ListDueOutboxEventsParams{
		EventTypes: r.handler.EventTypes(),
		Limit:      r.cfg.BatchSize,
	})
	if err != nil {
		return 0, fmt.Errorf("list due events: %w", err)
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return len(ids), ctx.Err()
		}
		if err := r.processEvent(ctx, id); err != nil {
			// One bad event must not stall the rest of the batch.
			r.logger.Error("event processing failed",
				zap.String("worker", r.name),
				zap.String("event_id", id.String()),
				zap.Error(err),
			)
		}
	}
	return len(ids), nil
}

// processEvent leases, handles and settles one event. Attached handlers run
// inside the lease transaction, so a rollback anywhere leaves the row pending
// for a later poll. Detached handlers (the publisher's network call) lease
// with an immediately committed claim and settle in a second transaction; a
// crash in between leaves the row processing, which operators can re-mark
// pending because no business write precedes settlement.
func (r *Runner) processEvent(ctx context.Context, id pgtype.UUID) error {
	if r.handler.Detached() {
		evt, ok, err := r.claim(ctx, r.querier, id)
		if err != nil || !ok {
			return err
		}
		env := outbox.EnvelopeFromRow(evt)
		outcome := r.dispatch(ctx, r.querier, env)
		return r.tx.InTx(ctx, func(q db.Querier) error {
			return r.settle(ctx, q, evt, env, outcome)
		})
	}
	return r.tx.InTx(ctx, func(q db.Querier) error {
		evt, ok, err := r.claim(ctx, q, id)
		if err != nil || !ok {
			return err
		}
		env := outbox.EnvelopeFromRow(evt)
		outcome := r.dispatch(ctx, q, env)
		return r.settle(ctx, q, evt, env, outcome)
	})
}

// claim moves the row pending→processing and records lease metrics. ok is
// false when another worker won the race between scan and lease.
func (r *Runner) claim(ctx context.Context, q db.Querier, id pgtype.UUID) (db.EventOutbox, bool, error) {
	evt, err := q.ClaimOutboxEvent(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		r.logger.Debug("lease lost", zap.String("worker", r.name), zap.String("event_id", id.String()))
		return db.EventOutbox{}, false, nil
	}
	if err != nil {
		return db.EventOutbox{}, false, fmt.Errorf("claim event: %w", err)
	}
	r.metrics.CountLeased(ctx, evt.EventType)
	if evt.CreatedAt.Valid {
		r.metrics.ObserveLag(ctx, evt.EventType, float64(r.now().Sub(evt.CreatedAt.Time).Milliseconds()))
	}
	return evt, true, nil
}

// dispatch gates the envelope on the tenant allowlist before handing it to
// the handler. Events for tenants that dropped off the list dead-letter
// without side effects.
func (r *Runner) dispatch(ctx context.Context, q db.Querier, env outbox.Envelope) HandlerOutcome {
	if verdict := r.validator.Validate(env.TenantID); verdict != tenant.VerdictOK {
		return Terminal(string(fault.CodeTenantUnknown),
			fmt.Errorf("tenant %q rejected: %s", env.TenantID, verdict))
	}
	return r.handler.Handle(ctx, q, env)
}

func (r *Runner) settle(ctx context.Context, q db.Querier, evt db.EventOutbox, env outbox.Envelope, oc HandlerOutcome) error {
	switch oc.kind {
	case outcomeSuccess:
		if err := q.MarkOutboxEventSent(ctx, evt.ID); err != nil {
			return fmt.Errorf("mark sent: %w", err)
		}
		if err := r.enqueueFollowOns(ctx, q, oc.followOns); err != nil {
			return err
		}
		r.metrics.CountSucceeded(ctx, env.EventType)
		r.logger.Debug("event processed",
			zap.String("worker", r.name),
			zap.String("event_id", env.ID),
			zap.String("event_type", env.EventType),
		)
		return nil

	case outcomeRetry:
		attempt := evt.AttemptCount + 1
		if attempt >= r.cfg.RetryMax {
			return r.deadLetter(ctx, q, evt, env, oc.reason)
		}
		delay := backoffDelay(r.cfg.BackoffSteps, attempt)
		if err := q.RescheduleOutboxEvent(ctx, db.RescheduleOutboxEventParams{
			ID:            evt.ID,
			NextAttemptAt: pgtype.Timestamptz{Time: r.now().Add(delay), Valid: true},
		}); err != nil {
			return fmt.Errorf("reschedule event: %w", err)
		}
		r.metrics.CountRetried(ctx, env.EventType)
		r.logger.Warn("event retry scheduled",
			zap.String("worker", r.name),
			zap.String("event_id", env.ID),
			zap.String("event_type", env.EventType),
			zap.String("reason", oc.reason),
			zap.Int32("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(oc.cause),
		)
		return nil

	case outcomeTerminal:
		if err := r.deadLetter(ctx, q, evt, env, oc.reason); err != nil {
			return err
		}
		return r.enqueueFollowOns(ctx, q, oc.followOns)
	}
	return fmt.Errorf("unknown outcome kind %d", oc.kind)
}

// deadLetter marks the event failed and files the full envelope so replay
// can reconstruct it, idempotency key included.
func (r *Runner) deadLetter(ctx context.Context, q db.Querier, evt db.EventOutbox, env outbox.Envelope, reason string) error {
	if err := q.FailOutboxEvent(ctx, evt.ID); err != nil {
		return fmt.Errorf("fail event: %w", err)
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}
	if err := q.InsertDeadLetter(ctx, db.InsertDeadLetterParams{
		ID:        repository.NewUUID(),
		TenantID:  evt.TenantID,
		EventType: evt.EventType,
		Reason:    reason,
		Payload:   payload,
	}); err != nil {
		return fmt.Errorf("insert dead letter: %w", err)
	}
	r.metrics.CountDeadLettered(ctx, env.EventType)
	r.logger.Error("event dead-lettered",
		zap.String("worker", r.name),
		zap.String("event_id", env.ID),
		zap.String("event_type", env.EventType),
		zap.String("reason", reason),
		zap.Int32("attempts", evt.AttemptCount+1),
	)
	return nil
}

func (r *Runner) enqueueFollowOns(ctx context.Context, q db.Querier, events []outbox.Event) error {
	for _, evt := range events {
		if _, err := r.enqueuer.Enqueue(ctx, q, evt); err != nil {
			return fmt.Errorf("enqueue follow-on %s: %w", evt.Type, err)
		}
	}
	return nil
}

// backoffDelay picks the step for a 1-based attempt count; the last step
// repeats once the schedule runs out.
func backoffDelay(steps []time.Duration, attempt int32) time.Duration {
	if len(steps) == 0 {
		return 0
	}
	i := int(attempt) - 1
	if i < 0 {
		i = 0
	}
	if i >= len(steps) {
		i = len(steps) - 1
	}
	return steps[i]
}
