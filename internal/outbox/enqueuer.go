package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/docflow-io/docflow/internal/repository"
	db "github.com/docflow-io/docflow/internal/repository/db"
)

// Enqueuer writes events onto the bus. It takes the Querier bound to the
// caller's transaction so the event commits or rolls back with the business
// row that caused it.
type Enqueuer struct {
	logger *zap.Logger

	now func() time.Time
}

// NewEnqueuer builds an Enqueuer.
func NewEnqueuer(logger *zap.Logger) *Enqueuer {
	return &Enqueuer{logger: logger, now: time.Now}
}

// Enqueue inserts one pending event. It reports false when an event with the
// same (tenant, type, idempotency key) is already on the bus, which callers
// treat as already-enqueued rather than an error. The active span's trace id
// is captured into the envelope so async consumers can link back.
func (e *Enqueuer) Enqueue(ctx context.Context, q db.Querier, evt Event) (bool, error) {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return false, fmt.Errorf("marshal %s payload: %w", evt.Type, err)
	}

	var idemKey pgtype.Text
	if evt.IdempotencyKey != "" {
		idemKey = pgtype.Text{String: evt.IdempotencyKey, Valid: true}
	}

	var traceID pgtype.Text
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		traceID = pgtype.Text{String: sc.TraceID().String(), Valid: true}
	}

	id := repository.NewUUID()
	inserted, err := q.InsertOutboxEvent(ctx, db.InsertOutboxEventParams{
		ID:             id,
		TenantID:       evt.TenantID,
		EventType:      evt.Type,
		SchemaVersion:  SchemaVersion,
		IdempotencyKey: idemKey,
		TraceID:        traceID,
		Payload:        payload,
		NextAttemptAt:  pgtype.Timestamptz{Time: e.now().Add(evt.Delay), Valid: true},
	})
	if err != nil {
		return false, fmt.Errorf("enqueue %s: %w", evt.Type, err)
	}
	if !inserted {
		e.logger.Debug("event already enqueued",
			zap.String("event_type", evt.Type),
			zap.String("tenant_id", evt.TenantID),
			zap.String("idempotency_key", evt.IdempotencyKey),
		)
		return false, nil
	}

	e.logger.Debug("event enqueued",
		zap.String("event_id", id.String()),
		zap.String("event_type", evt.Type),
		zap.String("tenant_id", evt.TenantID),
	)
	return true, nil
}

// EnvelopeFromRow rebuilds the wire envelope from a leased outbox row.
func EnvelopeFromRow(evt db.EventOutbox) Envelope {
	env := Envelope{
		ID:            evt.ID.String(),
		TenantID:      evt.TenantID,
		EventType:     evt.EventType,
		SchemaVersion: evt.SchemaVersion,
		Payload:       json.RawMessage(evt.Payload),
	}
	if evt.IdempotencyKey.Valid {
		env.IdempotencyKey = evt.IdempotencyKey.String
	}
	if evt.TraceID.Valid {
		env.TraceID = evt.TraceID.String
	}
	return env
}
