package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx, and *pgx.Conn, so the same
// queries run pooled, transactional, or single-connection.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// New binds the query set to a pool, connection, or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries is the concrete Querier over a DBTX.
type Queries struct {
	db DBTX
}

// WithTx rebinds the query set to a transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

//go:generate mockgen -destination=../mock/querier.go -package=mock github.com/docflow-io/docflow/internal/repository/db Querier

// Querier is the full data-access surface. Workers and services depend on
// this interface; tests substitute the generated mock.
type Querier interface {
	// Inbox items.
	InsertInboxItem(ctx context.Context, arg InsertInboxItemParams) (InsertInboxItemRow, error)
	GetInboxItem(ctx context.Context, arg GetInboxItemParams) (InboxItem, error)
	ListInboxItems(ctx context.Context, arg ListInboxItemsParams) ([]InboxItem, error)
	UpdateInboxItemStatus(ctx context.Context, arg UpdateInboxItemStatusParams) error

	// Outbox bus.
	InsertOutboxEvent(ctx context.Context, arg InsertOutboxEventParams) (bool, error)
	ListDueOutboxEvents(ctx context.Context, arg ListDueOutboxEventsParams) ([]pgtype.UUID, error)
	ClaimOutboxEvent(ctx context.Context, id pgtype.UUID) (EventOutbox, error)
	MarkOutboxEventSent(ctx context.Context, id pgtype.UUID) error
	RescheduleOutboxEvent(ctx context.Context, arg RescheduleOutboxEventParams) error
	FailOutboxEvent(ctx context.Context, id pgtype.UUID) error
	ReplayOutboxEvent(ctx context.Context, arg ReplayOutboxEventParams) (bool, error)
	CountOutboxByStatus(ctx context.Context) ([]OutboxStatusCountRow, error)

	// Idempotency ledger.
	InsertProcessedEvent(ctx context.Context, arg InsertProcessedEventParams) (bool, error)

	// Dead letters.
	InsertDeadLetter(ctx context.Context, arg InsertDeadLetterParams) error
	ListDeadLetters(ctx context.Context, arg ListDeadLettersParams) ([]DeadLetter, error)
	SelectDeadLettersForReplay(ctx context.Context, arg SelectDeadLettersForReplayParams) ([]DeadLetter, error)
	DeleteDeadLetter(ctx context.Context, id pgtype.UUID) error

	// Parse results.
	InsertParsedItem(ctx context.Context, arg InsertParsedItemParams) (ParsedItem, error)
	InsertChunk(ctx context.Context, arg InsertChunkParams) error

	// Read models.
	ListLatestParsedPerHash(ctx context.Context, arg ListLatestParsedPerHashParams) ([]LatestParsedPerHashRow, error)
	ListItemsNeedingReview(ctx context.Context, arg ListItemsNeedingReviewParams) ([]ItemsNeedingReviewRow, error)
	GetTenantIngestSummary(ctx context.Context, tenantID string) (TenantIngestSummaryRow, error)

	// Retention.
	DeleteSentOutboxBefore(ctx context.Context, cutoff pgtype.Timestamptz) (int64, error)
	DeleteProcessedEventsBefore(ctx context.Context, cutoff pgtype.Timestamptz) (int64, error)
}

var _ Querier = (*Queries)(nil)
