package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/docflow-io/docflow/internal/outbox"
	db "github.com/docflow-io/docflow/internal/repository/db"
)

const testEventID = "0198a2c0-0000-7000-8000-0000000000e1"

func TestRunnerSuccessPath(t *testing.T) {
	id := newEventID(t, testEventID)
	row := outboxRow(t, id, outbox.TypeInboxItemValidated, 0, map[string]string{"inbox_item_id": "x"})

	var markedSent pgtype.UUID
	var enqueued []db.InsertOutboxEventParams
	q := &mockQuerier{
		listDueFn: func(_ context.Context, arg db.ListDueOutboxEventsParams) ([]pgtype.UUID, error) {
			assert.Equal(t, []string{outbox.TypeInboxItemValidated}, arg.EventTypes)
			return []pgtype.UUID{id}, nil
		},
		claimFn: func(_ context.Context, got pgtype.UUID) (db.EventOutbox, error) {
			assert.Equal(t, id, got)
			return row, nil
		},
		markSentFn: func(_ context.Context, got pgtype.UUID) error {
			markedSent = got
			return nil
		},
		insertOutboxFn: func(_ context.Context, arg db.InsertOutboxEventParams) (bool, error) {
			enqueued = append(enqueued, arg)
			return true, nil
		},
		rescheduleFn: func(context.Context, db.RescheduleOutboxEventParams) error {
			t.Fatal("reschedule must not run on success")
			return nil
		},
		insertDeadFn: func(context.Context, db.InsertDeadLetterParams) error {
			t.Fatal("dead letter must not be written on success")
			return nil
		},
	}
	h := &stubHandler{
		types: []string{outbox.TypeInboxItemValidated},
		handleFn: func(_ context.Context, _ db.Querier, env outbox.Envelope) HandlerOutcome {
			assert.Equal(t, testTenant, env.TenantID)
			assert.Equal(t, "idem-1", env.IdempotencyKey)
			return Success(outbox.Event{
				TenantID:       testTenant,
				Type:           outbox.TypeInboxItemParsed,
				IdempotencyKey: "hash-1",
				Payload:        outbox.InboxItemParsedPayload{InboxItemID: "x"},
			})
		},
	}

	n, err := newTestRunner(t, q, h, testWorkerConfig()).Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, h.calls)
	assert.Equal(t, id, markedSent)
	require.Len(t, enqueued, 1)
	assert.Equal(t, outbox.TypeInboxItemParsed, enqueued[0].EventType)
	assert.Equal(t, "hash-1", enqueued[0].IdempotencyKey.String)
}

func TestRunnerLostLease(t *testing.T) {
	id := newEventID(t, testEventID)
	q := &mockQuerier{
		listDueFn: func(context.Context, db.ListDueOutboxEventsParams) ([]pgtype.UUID, error) {
			return []pgtype.UUID{id}, nil
		},
		claimFn: func(context.Context, pgtype.UUID) (db.EventOutbox, error) {
			return db.EventOutbox{}, pgx.ErrNoRows
		},
		markSentFn: func(context.Context, pgtype.UUID) error {
			t.Fatal("nothing to settle after a lost lease")
			return nil
		},
	}
	h := &stubHandler{types: []string{outbox.TypeInboxItemValidated}}

	n, err := newTestRunner(t, q, h, testWorkerConfig()).Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, h.calls)
}

func TestRunnerRetrySchedulesBackoff(t *testing.T) {
	tests := []struct {
		name     string
		attempts int32
		retryMax int32
		want     time.Duration
	}{
		{"first failure uses first step", 0, 10, 5 * time.Second},
		{"second failure uses second step", 1, 10, 30 * time.Second},
		{"third failure uses third step", 2, 10, 300 * time.Second},
		{"past the schedule the last step repeats", 5, 10, 300 * time.Second},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id := newEventID(t, testEventID)
			row := outboxRow(t, id, outbox.TypeInboxItemParsed, tc.attempts, map[string]string{})

			var got db.RescheduleOutboxEventParams
			q := &mockQuerier{
				listDueFn: func(context.Context, db.ListDueOutboxEventsParams) ([]pgtype.UUID, error) {
					return []pgtype.UUID{id}, nil
				},
				claimFn: func(context.Context, pgtype.UUID) (db.EventOutbox, error) {
					return row, nil
				},
				rescheduleFn: func(_ context.Context, arg db.RescheduleOutboxEventParams) error {
					got = arg
					return nil
				},
				insertDeadFn: func(context.Context, db.InsertDeadLetterParams) error {
					t.Fatal("retry within budget must not dead-letter")
					return nil
				},
			}
			h := &stubHandler{
				types: []string{outbox.TypeInboxItemParsed},
				handleFn: func(context.Context, db.Querier, outbox.Envelope) HandlerOutcome {
					return Retryable("http_503", fmt.Errorf("upstream 503"))
				},
			}
			cfg := testWorkerConfig()
			cfg.RetryMax = tc.retryMax

			r := newTestRunner(t, q, h, cfg)
			frozen := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
			r.now = func() time.Time { return frozen }

			_, err := r.Poll(context.Background())
			require.NoError(t, err)
			assert.Equal(t, id, got.ID)
			assert.True(t, got.NextAttemptAt.Time.Equal(frozen.Add(tc.want)),
				"want %s, got %s", frozen.Add(tc.want), got.NextAttemptAt.Time)
		})
	}
}

func TestRunnerRetryExhaustionDeadLetters(t *testing.T) {
	id := newEventID(t, testEventID)
	// Two prior attempts; this failure is the third of a budget of three.
	row := outboxRow(t, id, outbox.TypeInboxItemParsed, 2, map[string]string{"inbox_item_id": "x"})

	var failed pgtype.UUID
	var dead db.InsertDeadLetterParams
	q := &mockQuerier{
		listDueFn: func(context.Context, db.ListDueOutboxEventsParams) ([]pgtype.UUID, error) {
			return []pgtype.UUID{id}, nil
		},
		claimFn: func(context.Context, pgtype.UUID) (db.EventOutbox, error) {
			return row, nil
		},
		failFn: func(_ context.Context, got pgtype.UUID) error {
			failed = got
			return nil
		},
		insertDeadFn: func(_ context.Context, arg db.InsertDeadLetterParams) error {
			dead = arg
			return nil
		},
		rescheduleFn: func(context.Context, db.RescheduleOutboxEventParams) error {
			t.Fatal("exhausted retry budget must not reschedule")
			return nil
		},
	}
	h := &stubHandler{
		types: []string{outbox.TypeInboxItemParsed},
		handleFn: func(context.Context, db.Querier, outbox.Envelope) HandlerOutcome {
			return Retryable("http_500", fmt.Errorf("upstream 500"))
		},
	}

	_, err := newTestRunner(t, q, h, testWorkerConfig()).Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id, failed)
	assert.Equal(t, testTenant, dead.TenantID)
	assert.Equal(t, outbox.TypeInboxItemParsed, dead.EventType)
	assert.Equal(t, "http_500", dead.Reason)

	// The dead letter retains the full envelope so replay can rebuild it.
	var env outbox.Envelope
	require.NoError(t, json.Unmarshal(dead.Payload, &env))
	assert.Equal(t, id.String(), env.ID)
	assert.Equal(t, "idem-1", env.IdempotencyKey)
	assert.Equal(t, outbox.TypeInboxItemParsed, env.EventType)
}

func TestRunnerTerminalOutcome(t *testing.T) {
	id := newEventID(t, testEventID)
	row := outboxRow(t, id, outbox.TypeInboxItemValidated, 0, map[string]string{})

	var dead db.InsertDeadLetterParams
	var enqueued []db.InsertOutboxEventParams
	q := &mockQuerier{
		listDueFn: func(context.Context, db.ListDueOutboxEventsParams) ([]pgtype.UUID, error) {
			return []pgtype.UUID{id}, nil
		},
		claimFn: func(context.Context, pgtype.UUID) (db.EventOutbox, error) {
			return row, nil
		},
		insertDeadFn: func(_ context.Context, arg db.InsertDeadLetterParams) error {
			dead = arg
			return nil
		},
		insertOutboxFn: func(_ context.Context, arg db.InsertOutboxEventParams) (bool, error) {
			enqueued = append(enqueued, arg)
			return true, nil
		},
	}
	h := &stubHandler{
		types: []string{outbox.TypeInboxItemValidated},
		handleFn: func(context.Context, db.Querier, outbox.Envelope) HandlerOutcome {
			return Terminal("parse_error", fmt.Errorf("bad document")).WithFollowOns(outbox.Event{
				TenantID:       testTenant,
				Type:           outbox.TypeInboxItemParseFailed,
				IdempotencyKey: "hash-1",
				Payload:        outbox.InboxItemParseFailedPayload{InboxItemID: "x", Reason: "bad document"},
			})
		},
	}

	_, err := newTestRunner(t, q, h, testWorkerConfig()).Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "parse_error", dead.Reason)
	require.Len(t, enqueued, 1)
	assert.Equal(t, outbox.TypeInboxItemParseFailed, enqueued[0].EventType)
}

func TestRunnerRejectsUnknownTenant(t *testing.T) {
	id := newEventID(t, testEventID)
	row := outboxRow(t, id, outbox.TypeInboxItemValidated, 0, map[string]string{})
	row.TenantID = "ghost"

	var dead db.InsertDeadLetterParams
	q := &mockQuerier{
		listDueFn: func(context.Context, db.ListDueOutboxEventsParams) ([]pgtype.UUID, error) {
			return []pgtype.UUID{id}, nil
		},
		claimFn: func(context.Context, pgtype.UUID) (db.EventOutbox, error) {
			return row, nil
		},
		insertDeadFn: func(_ context.Context, arg db.InsertDeadLetterParams) error {
			dead = arg
			return nil
		},
	}
	h := &stubHandler{types: []string{outbox.TypeInboxItemValidated}}

	_, err := newTestRunner(t, q, h, testWorkerConfig()).Poll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, h.calls, "handler must not run for an unknown tenant")
	assert.Equal(t, "tenant_unknown", dead.Reason)
	assert.Equal(t, "ghost", dead.TenantID)
}

func TestRunnerPollIsolatesEventFailures(t *testing.T) {
	idBroken := newEventID(t, "0198a2c0-0000-7000-8000-0000000000b1")
	idGood := newEventID(t, "0198a2c0-0000-7000-8000-0000000000b2")
	rowGood := outboxRow(t, idGood, outbox.TypeInboxItemValidated, 0, map[string]string{})

	var markedSent []pgtype.UUID
	q := &mockQuerier{
		listDueFn: func(context.Context, db.ListDueOutboxEventsParams) ([]pgtype.UUID, error) {
			return []pgtype.UUID{idBroken, idGood}, nil
		},
		claimFn: func(_ context.Context, id pgtype.UUID) (db.EventOutbox, error) {
			if id == idBroken {
				return db.EventOutbox{}, errors.New("connection reset")
			}
			return rowGood, nil
		},
		markSentFn: func(_ context.Context, id pgtype.UUID) error {
			markedSent = append(markedSent, id)
			return nil
		},
	}
	h := &stubHandler{types: []string{outbox.TypeInboxItemValidated}}

	n, err := newTestRunner(t, q, h, testWorkerConfig()).Poll(context.Background())
	require.NoError(t, err, "a failing event must not fail the poll")
	assert.Equal(t, 2, n)
	assert.Equal(t, []pgtype.UUID{idGood}, markedSent)
}

func TestRunnerDetachedLease(t *testing.T) {
	tests := []struct {
		name         string
		detached     bool
		wantClaimTx  bool
		wantHandleTx bool
	}{
		{"attached handler runs inside the lease transaction", false, true, true},
		{"detached handler claims first and handles outside", true, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id := newEventID(t, testEventID)
			row := outboxRow(t, id, outbox.TypeInboxItemParsed, 0, map[string]string{})

			var claimInTx, handleInTx, settleInTx bool
			q := &mockQuerier{}
			tx := &stubTx{q: q}
			q.listDueFn = func(context.Context, db.ListDueOutboxEventsParams) ([]pgtype.UUID, error) {
				return []pgtype.UUID{id}, nil
			}
			q.claimFn = func(context.Context, pgtype.UUID) (db.EventOutbox, error) {
				claimInTx = tx.active
				return row, nil
			}
			q.markSentFn = func(context.Context, pgtype.UUID) error {
				settleInTx = tx.active
				return nil
			}
			h := &stubHandler{
				types:    []string{outbox.TypeInboxItemParsed},
				detached: tc.detached,
				handleFn: func(context.Context, db.Querier, outbox.Envelope) HandlerOutcome {
					handleInTx = tx.active
					return Success()
				},
			}
			r := NewRunner("test-worker", q, tx, h, testValidator(t), testWorkerConfig(), nil, zaptest.NewLogger(t))

			_, err := r.Poll(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, h.calls)
			assert.Equal(t, tc.wantClaimTx, claimInTx, "claim transaction placement")
			assert.Equal(t, tc.wantHandleTx, handleInTx, "handler transaction placement")
			assert.True(t, settleInTx, "settlement always runs in a transaction")
			assert.Equal(t, 1, tx.opens)
		})
	}
}

func TestRunOnceDrainsUntilEmpty(t *testing.T) {
	id := newEventID(t, testEventID)
	row := outboxRow(t, id, outbox.TypeInboxItemValidated, 0, map[string]string{})

	scans := 0
	q := &mockQuerier{
		listDueFn: func(context.Context, db.ListDueOutboxEventsParams) ([]pgtype.UUID, error) {
			scans++
			if scans == 1 {
				return []pgtype.UUID{id}, nil
			}
			return nil, nil
		},
		claimFn: func(context.Context, pgtype.UUID) (db.EventOutbox, error) {
			return row, nil
		},
	}
	h := &stubHandler{types: []string{outbox.TypeInboxItemValidated}}

	require.NoError(t, newTestRunner(t, q, h, testWorkerConfig()).RunOnce(context.Background()))
	assert.Equal(t, 2, scans)
	assert.Equal(t, 1, h.calls)
}

func TestBackoffDelay(t *testing.T) {
	steps := []time.Duration{5 * time.Second, 30 * time.Second, 300 * time.Second}
	tests := []struct {
		attempt int32
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{2, 30 * time.Second},
		{3, 300 * time.Second},
		{4, 300 * time.Second},
		{99, 300 * time.Second},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, backoffDelay(steps, tc.attempt), "attempt %d", tc.attempt)
	}
	assert.Zero(t, backoffDelay(nil, 1))
}
