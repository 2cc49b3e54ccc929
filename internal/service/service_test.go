package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/docflow-io/docflow/internal/repository/db"
)

const testTenant = "acme"

// mockQuerier implements db.Querier with overridable functions; methods
// without an override return zero values.
type mockQuerier struct {
	insertInboxItemFn func(context.Context, db.InsertInboxItemParams) (db.InsertInboxItemRow, error)
	getInboxItemFn    func(context.Context, db.GetInboxItemParams) (db.InboxItem, error)
	listInboxItemsFn  func(context.Context, db.ListInboxItemsParams) ([]db.InboxItem, error)
	insertOutboxFn    func(context.Context, db.InsertOutboxEventParams) (bool, error)
	replayOutboxFn    func(context.Context, db.ReplayOutboxEventParams) (bool, error)
	listDeadFn        func(context.Context, db.ListDeadLettersParams) ([]db.DeadLetter, error)
	selectReplayFn    func(context.Context, db.SelectDeadLettersForReplayParams) ([]db.DeadLetter, error)
	deleteDeadFn      func(context.Context, pgtype.UUID) error
	latestParsedFn    func(context.Context, db.ListLatestParsedPerHashParams) ([]db.LatestParsedPerHashRow, error)
	needingReviewFn   func(context.Context, db.ListItemsNeedingReviewParams) ([]db.ItemsNeedingReviewRow, error)
	summaryFn         func(context.Context, string) (db.TenantIngestSummaryRow, error)
	countOutboxFn     func(context.Context) ([]db.OutboxStatusCountRow, error)
}

var _ db.Querier = (*mockQuerier)(nil)

func (m *mockQuerier) InsertInboxItem(ctx context.Context, arg db.InsertInboxItemParams) (db.InsertInboxItemRow, error) {
	if m.insertInboxItemFn != nil {
		return m.insertInboxItemFn(ctx, arg)
	}
	return echoInboxRow(arg, true), nil
}
func (m *mockQuerier) GetInboxItem(ctx context.Context, arg db.GetInboxItemParams) (db.InboxItem, error) {
	if m.getInboxItemFn != nil {
		return m.getInboxItemFn(ctx, arg)
	}
	return db.InboxItem{}, nil
}
func (m *mockQuerier) ListInboxItems(ctx context.Context, arg db.ListInboxItemsParams) ([]db.InboxItem, error) {
	if m.listInboxItemsFn != nil {
		return m.listInboxItemsFn(ctx, arg)
	}
	return nil, nil
}
func (m *mockQuerier) InsertOutboxEvent(ctx context.Context, arg db.InsertOutboxEventParams) (bool, error) {
	if m.insertOutboxFn != nil {
		return m.insertOutboxFn(ctx, arg)
	}
	return true, nil
}
func (m *mockQuerier) ReplayOutboxEvent(ctx context.Context, arg db.ReplayOutboxEventParams) (bool, error) {
	if m.replayOutboxFn != nil {
		return m.replayOutboxFn(ctx, arg)
	}
	return true, nil
}
func (m *mockQuerier) ListDeadLetters(ctx context.Context, arg db.ListDeadLettersParams) ([]db.DeadLetter, error) {
	if m.listDeadFn != nil {
		return m.listDeadFn(ctx, arg)
	}
	return nil, nil
}
func (m *mockQuerier) SelectDeadLettersForReplay(ctx context.Context, arg db.SelectDeadLettersForReplayParams) ([]db.DeadLetter, error) {
	if m.selectReplayFn != nil {
		return m.selectReplayFn(ctx, arg)
	}
	return nil, nil
}
func (m *mockQuerier) DeleteDeadLetter(ctx context.Context, id pgtype.UUID) error {
	if m.deleteDeadFn != nil {
		return m.deleteDeadFn(ctx, id)
	}
	return nil
}
func (m *mockQuerier) ListLatestParsedPerHash(ctx context.Context, arg db.ListLatestParsedPerHashParams) ([]db.LatestParsedPerHashRow, error) {
	if m.latestParsedFn != nil {
		return m.latestParsedFn(ctx, arg)
	}
	return nil, nil
}
func (m *mockQuerier) ListItemsNeedingReview(ctx context.Context, arg db.ListItemsNeedingReviewParams) ([]db.ItemsNeedingReviewRow, error) {
	if m.needingReviewFn != nil {
		return m.needingReviewFn(ctx, arg)
	}
	return nil, nil
}
func (m *mockQuerier) GetTenantIngestSummary(ctx context.Context, tenantID string) (db.TenantIngestSummaryRow, error) {
	if m.summaryFn != nil {
		return m.summaryFn(ctx, tenantID)
	}
	return db.TenantIngestSummaryRow{}, nil
}
func (m *mockQuerier) CountOutboxByStatus(ctx context.Context) ([]db.OutboxStatusCountRow, error) {
	if m.countOutboxFn != nil {
		return m.countOutboxFn(ctx)
	}
	return nil, nil
}

// Implement the rest of db.Querier with no-ops so the interface is satisfied.
func (m *mockQuerier) UpdateInboxItemStatus(ctx context.Context, arg db.UpdateInboxItemStatusParams) error {
	return nil
}
func (m *mockQuerier) ListDueOutboxEvents(ctx context.Context, arg db.ListDueOutboxEventsParams) ([]pgtype.UUID, error) {
	return nil, nil
}
func (m *mockQuerier) ClaimOutboxEvent(ctx context.Context, id pgtype.UUID) (db.EventOutbox, error) {
	return db.EventOutbox{}, nil
}
func (m *mockQuerier) MarkOutboxEventSent(ctx context.Context, id pgtype.UUID) error { return nil }
func (m *mockQuerier) RescheduleOutboxEvent(ctx context.Context, arg db.RescheduleOutboxEventParams) error {
	return nil
}
func (m *mockQuerier) FailOutboxEvent(ctx context.Context, id pgtype.UUID) error { return nil }
func (m *mockQuerier) InsertProcessedEvent(ctx context.Context, arg db.InsertProcessedEventParams) (bool, error) {
	return true, nil
}
func (m *mockQuerier) InsertDeadLetter(ctx context.Context, arg db.InsertDeadLetterParams) error {
	return nil
}
func (m *mockQuerier) InsertParsedItem(ctx context.Context, arg db.InsertParsedItemParams) (db.ParsedItem, error) {
	return db.ParsedItem{}, nil
}
func (m *mockQuerier) InsertChunk(ctx context.Context, arg db.InsertChunkParams) error { return nil }
func (m *mockQuerier) DeleteSentOutboxBefore(ctx context.Context, cutoff pgtype.Timestamptz) (int64, error) {
	return 0, nil
}
func (m *mockQuerier) DeleteProcessedEventsBefore(ctx context.Context, cutoff pgtype.Timestamptz) (int64, error) {
	return 0, nil
}

// echoInboxRow reflects upsert params back as the returned row, the way the
// real query does.
func echoInboxRow(arg db.InsertInboxItemParams, isNew bool) db.InsertInboxItemRow {
	now := pgtype.Timestamptz{Time: time.Now(), Valid: true}
	return db.InsertInboxItemRow{
		ID:          arg.ID,
		TenantID:    arg.TenantID,
		Status:      arg.Status,
		ContentHash: arg.ContentHash,
		Uri:         arg.Uri,
		Source:      arg.Source,
		Filename:    arg.Filename,
		Mime:        arg.Mime,
		CreatedAt:   now,
		UpdatedAt:   now,
		IsNew:       isNew,
	}
}

// stubTx runs the transaction body directly against the mock querier.
type stubTx struct{ q db.Querier }

func (s stubTx) InTx(ctx context.Context, fn func(q db.Querier) error) error {
	return fn(s.q)
}
