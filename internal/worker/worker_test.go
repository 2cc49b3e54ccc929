package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/docflow-io/docflow/internal/config"
	"github.com/docflow-io/docflow/internal/outbox"
	"github.com/docflow-io/docflow/internal/repository"
	db "github.com/docflow-io/docflow/internal/repository/db"
	"github.com/docflow-io/docflow/internal/tenant"
)

// ── minimal mock Querier for the worker package ───────────────────────────
// Hand-rolled so the lease-loop tests can pin behavior per method without
// the generated mock's controller ceremony.

type mockQuerier struct {
	listDueFn         func(context.Context, db.ListDueOutboxEventsParams) ([]pgtype.UUID, error)
	claimFn           func(context.Context, pgtype.UUID) (db.EventOutbox, error)
	markSentFn        func(context.Context, pgtype.UUID) error
	rescheduleFn      func(context.Context, db.RescheduleOutboxEventParams) error
	failFn            func(context.Context, pgtype.UUID) error
	insertDeadFn      func(context.Context, db.InsertDeadLetterParams) error
	insertOutboxFn    func(context.Context, db.InsertOutboxEventParams) (bool, error)
	insertProcessedFn func(context.Context, db.InsertProcessedEventParams) (bool, error)
	getInboxItemFn    func(context.Context, db.GetInboxItemParams) (db.InboxItem, error)
	updateStatusFn    func(context.Context, db.UpdateInboxItemStatusParams) error
	insertParsedFn    func(context.Context, db.InsertParsedItemParams) (db.ParsedItem, error)
	insertChunkFn     func(context.Context, db.InsertChunkParams) error
}

func (m *mockQuerier) ListDueOutboxEvents(ctx context.Context, arg db.ListDueOutboxEventsParams) ([]pgtype.UUID, error) {
	if m.listDueFn != nil {
		return m.listDueFn(ctx, arg)
	}
	return nil, nil
}
func (m *mockQuerier) ClaimOutboxEvent(ctx context.Context, id pgtype.UUID) (db.EventOutbox, error) {
	if m.claimFn != nil {
		return m.claimFn(ctx, id)
	}
	return db.EventOutbox{}, nil
}
func (m *mockQuerier) MarkOutboxEventSent(ctx context.Context, id pgtype.UUID) error {
	if m.markSentFn != nil {
		return m.markSentFn(ctx, id)
	}
	return nil
}
func (m *mockQuerier) RescheduleOutboxEvent(ctx context.Context, arg db.RescheduleOutboxEventParams) error {
	if m.rescheduleFn != nil {
		return m.rescheduleFn(ctx, arg)
	}
	return nil
}
func (m *mockQuerier) FailOutboxEvent(ctx context.Context, id pgtype.UUID) error {
	if m.failFn != nil {
		return m.failFn(ctx, id)
	}
	return nil
}
func (m *mockQuerier) InsertDeadLetter(ctx context.Context, arg db.InsertDeadLetterParams) error {
	if m.insertDeadFn != nil {
		return m.insertDeadFn(ctx, arg)
	}
	return nil
}
func (m *mockQuerier) InsertOutboxEvent(ctx context.Context, arg db.InsertOutboxEventParams) (bool, error) {
	if m.insertOutboxFn != nil {
		return m.insertOutboxFn(ctx, arg)
	}
	return true, nil
}
func (m *mockQuerier) InsertProcessedEvent(ctx context.Context, arg db.InsertProcessedEventParams) (bool, error) {
	if m.insertProcessedFn != nil {
		return m.insertProcessedFn(ctx, arg)
	}
	return true, nil
}
func (m *mockQuerier) GetInboxItem(ctx context.Context, arg db.GetInboxItemParams) (db.InboxItem, error) {
	if m.getInboxItemFn != nil {
		return m.getInboxItemFn(ctx, arg)
	}
	return db.InboxItem{}, nil
}
func (m *mockQuerier) UpdateInboxItemStatus(ctx context.Context, arg db.UpdateInboxItemStatusParams) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, arg)
	}
	return nil
}
func (m *mockQuerier) InsertParsedItem(ctx context.Context, arg db.InsertParsedItemParams) (db.ParsedItem, error) {
	if m.insertParsedFn != nil {
		return m.insertParsedFn(ctx, arg)
	}
	return db.ParsedItem{}, nil
}
func (m *mockQuerier) InsertChunk(ctx context.Context, arg db.InsertChunkParams) error {
	if m.insertChunkFn != nil {
		return m.insertChunkFn(ctx, arg)
	}
	return nil
}

// Implement the rest of db.Querier with no-ops so the interface is satisfied.
func (m *mockQuerier) InsertInboxItem(ctx context.Context, arg db.InsertInboxItemParams) (db.InsertInboxItemRow, error) {
	return db.InsertInboxItemRow{}, nil
}
func (m *mockQuerier) ListInboxItems(ctx context.Context, arg db.ListInboxItemsParams) ([]db.InboxItem, error) {
	return nil, nil
}
func (m *mockQuerier) CountOutboxByStatus(ctx context.Context) ([]db.OutboxStatusCountRow, error) {
	return nil, nil
}
func (m *mockQuerier) ReplayOutboxEvent(ctx context.Context, arg db.ReplayOutboxEventParams) (bool, error) {
	return true, nil
}
func (m *mockQuerier) ListDeadLetters(ctx context.Context, arg db.ListDeadLettersParams) ([]db.DeadLetter, error) {
	return nil, nil
}
func (m *mockQuerier) SelectDeadLettersForReplay(ctx context.Context, arg db.SelectDeadLettersForReplayParams) ([]db.DeadLetter, error) {
	return nil, nil
}
func (m *mockQuerier) DeleteDeadLetter(ctx context.Context, id pgtype.UUID) error { return nil }
func (m *mockQuerier) ListLatestParsedPerHash(ctx context.Context, arg db.ListLatestParsedPerHashParams) ([]db.LatestParsedPerHashRow, error) {
	return nil, nil
}
func (m *mockQuerier) ListItemsNeedingReview(ctx context.Context, arg db.ListItemsNeedingReviewParams) ([]db.ItemsNeedingReviewRow, error) {
	return nil, nil
}
func (m *mockQuerier) GetTenantIngestSummary(ctx context.Context, tenantID string) (db.TenantIngestSummaryRow, error) {
	return db.TenantIngestSummaryRow{}, nil
}
func (m *mockQuerier) DeleteSentOutboxBefore(ctx context.Context, cutoff pgtype.Timestamptz) (int64, error) {
	return 0, nil
}
func (m *mockQuerier) DeleteProcessedEventsBefore(ctx context.Context, cutoff pgtype.Timestamptz) (int64, error) {
	return 0, nil
}

var _ db.Querier = (*mockQuerier)(nil)

// stubTx hands the bound querier straight to fn; there is no real
// transaction in these tests. active is true while fn runs so tests can
// observe which calls happen inside a transaction.
type stubTx struct {
	q      db.Querier
	opens  int
	active bool
}

func (s *stubTx) InTx(_ context.Context, fn func(db.Querier) error) error {
	s.opens++
	s.active = true
	defer func() { s.active = false }()
	return fn(s.q)
}

var _ repository.Transactor = (*stubTx)(nil)

// stubHandler lets each test script the verdict.
type stubHandler struct {
	types    []string
	detached bool
	handleFn func(context.Context, db.Querier, outbox.Envelope) HandlerOutcome
	calls    int
}

func (s *stubHandler) EventTypes() []string { return s.types }

func (s *stubHandler) Detached() bool { return s.detached }

func (s *stubHandler) Handle(ctx context.Context, q db.Querier, env outbox.Envelope) HandlerOutcome {
	s.calls++
	if s.handleFn != nil {
		return s.handleFn(ctx, q, env)
	}
	return Success()
}

// ── helpers ───────────────────────────────────────────────────────────────

const testTenant = "acme"

func testValidator(t *testing.T, tenants ...string) *tenant.Validator {
	t.Helper()
	if tenants == nil {
		tenants = []string{testTenant}
	}
	v, err := tenant.NewValidator(tenant.Config{Inline: tenants}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return v
}

func testWorkerConfig() config.WorkerConfig {
	return config.WorkerConfig{
		BatchSize:    10,
		PollInterval: time.Second,
		BackoffSteps: []time.Duration{5 * time.Second, 30 * time.Second, 300 * time.Second},
		RetryMax:     3,
	}
}

func newTestRunner(t *testing.T, q db.Querier, h Handler, cfg config.WorkerConfig) *Runner {
	t.Helper()
	return NewRunner("test-worker", q, &stubTx{q: q}, h, testValidator(t), cfg, nil, zaptest.NewLogger(t))
}

func newEventID(t *testing.T, s string) pgtype.UUID {
	t.Helper()
	id, err := repository.ParseUUID(s)
	require.NoError(t, err)
	return id
}

// outboxRow builds a claimed event row the way ClaimOutboxEvent would return
// it.
func outboxRow(t *testing.T, id pgtype.UUID, eventType string, attempts int32, payload interface{}) db.EventOutbox {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return db.EventOutbox{
		ID:             id,
		TenantID:       testTenant,
		EventType:      eventType,
		SchemaVersion:  outbox.SchemaVersion,
		IdempotencyKey: pgtype.Text{String: "idem-1", Valid: true},
		Payload:        raw,
		Status:         db.OutboxStatusProcessing,
		AttemptCount:   attempts,
		NextAttemptAt:  pgtype.Timestamptz{Time: time.Now().Add(-time.Second), Valid: true},
		CreatedAt:      pgtype.Timestamptz{Time: time.Now().Add(-2 * time.Second), Valid: true},
	}
}
