package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/docflow-io/docflow/internal/fault"
	"github.com/docflow-io/docflow/internal/outbox"
	"github.com/docflow-io/docflow/internal/repository"
	db "github.com/docflow-io/docflow/internal/repository/db"
)

// ReplayInput narrows which dead letters to re-enqueue. IDs and EventType
// are both optional filters; an empty input replays up to Limit of the
// tenant's oldest dead letters.
type ReplayInput struct {
	TenantID  string
	IDs       []string
	EventType string
	Limit     int32
	// DryRun selects and counts but commits nothing.
	DryRun bool
}

// ReplayResult reports how many dead letters matched and how many were put
// back on the bus. On a dry run Committed is always zero.
type ReplayResult struct {
	Selected  int `json:"selected"`
	Committed int `json:"committed"`
}

// ReplayService re-enqueues dead letters as fresh pending events.
type ReplayService interface {
	Replay(ctx context.Context, in ReplayInput) (*ReplayResult, error)
}

type replayService struct {
	tx     repository.Transactor
	logger *zap.Logger

	now func() time.Time
}

// NewReplayService builds the dead-letter replay operation.
func NewReplayService(tx repository.Transactor, logger *zap.Logger) ReplayService {
	return &replayService{tx: tx, logger: logger, now: time.Now}
}

// errDryRunRollback aborts the replay transaction after the work is counted,
// so a dry run never mutates the bus.
var errDryRunRollback = errors.New("dry run rollback")

// Replay implements ReplayService. Selection, re-enqueue, and dead-letter
// deletion happen in one transaction: either every selected letter is back
// on the bus or none are.
func (s *replayService) Replay(ctx context.Context, in ReplayInput) (*ReplayResult, error) {
	ids := make([]pgtype.UUID, 0, len(in.IDs))
	for _, raw := range in.IDs {
		id, err := repository.ParseUUID(raw)
		if err != nil {
			return nil, fault.New(fault.CodeValidation, "invalid dead letter id %q", raw)
		}
		ids = append(ids, id)
	}

	var eventType pgtype.Text
	if in.EventType != "" {
		eventType = pgtype.Text{String: in.EventType, Valid: true}
	}

	res := &ReplayResult{}
	err := s.tx.InTx(ctx, func(q db.Querier) error {
		letters, err := q.SelectDeadLettersForReplay(ctx, db.SelectDeadLettersForReplayParams{
			TenantID:  in.TenantID,
			IDs:       ids,
			EventType: eventType,
			Limit:     clampLimit(in.Limit),
		})
		if err != nil {
			return fmt.Errorf("select dead letters: %w", err)
		}
		res.Selected = len(letters)

		for _, dl := range letters {
			if err := s.replayOne(ctx, q, dl); err != nil {
				return err
			}
		}
		if in.DryRun {
			return errDryRunRollback
		}
		res.Committed = len(letters)
		return nil
	})
	if err != nil && !errors.Is(err, errDryRunRollback) {
		return nil, err
	}

	s.logger.Info("dead letter replay",
		zap.String("tenant_id", in.TenantID),
		zap.Int("selected", res.Selected),
		zap.Int("committed", res.Committed),
		zap.Bool("dry_run", in.DryRun),
	)
	return res, nil
}

// replayOne turns one dead letter back into a pending event carrying the
// retained envelope's type, idempotency key, and payload, then deletes the
// letter. The settled outbox twin from the original failure revives in
// place; a twin already pending means the event is en route, so the delete
// still proceeds.
func (s *replayService) replayOne(ctx context.Context, q db.Querier, dl db.DeadLetter) error {
	var env outbox.Envelope
	if err := json.Unmarshal(dl.Payload, &env); err != nil || len(env.Payload) == 0 {
		return fault.New(fault.CodeValidation, "dead letter %s does not hold an envelope", dl.ID.String())
	}

	var idemKey, traceID pgtype.Text
	if env.IdempotencyKey != "" {
		idemKey = pgtype.Text{String: env.IdempotencyKey, Valid: true}
	}
	if env.TraceID != "" {
		traceID = pgtype.Text{String: env.TraceID, Valid: true}
	}
	schema := env.SchemaVersion
	if schema == 0 {
		schema = outbox.SchemaVersion
	}

	enqueued, err := q.ReplayOutboxEvent(ctx, db.ReplayOutboxEventParams{
		ID:             repository.NewUUID(),
		TenantID:       dl.TenantID,
		EventType:      dl.EventType,
		SchemaVersion:  schema,
		IdempotencyKey: idemKey,
		TraceID:        traceID,
		Payload:        env.Payload,
		NextAttemptAt:  pgtype.Timestamptz{Time: s.now(), Valid: true},
	})
	if err != nil {
		return fmt.Errorf("re-enqueue dead letter %s: %w", dl.ID.String(), err)
	}
	if !enqueued {
		s.logger.Debug("replay target already on the bus",
			zap.String("dead_letter_id", dl.ID.String()),
			zap.String("event_type", dl.EventType),
		)
	}
	if err := q.DeleteDeadLetter(ctx, dl.ID); err != nil {
		return fmt.Errorf("delete dead letter %s: %w", dl.ID.String(), err)
	}
	return nil
}
