// Package db is the Postgres data access layer. It exposes a Querier
// interface over hand-written pgx queries so services and workers can run
// against a pool, a transaction, or a mock interchangeably.
package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// Inbox item lifecycle states.
const (
	InboxStatusReceived  = "received"
	InboxStatusValidated = "validated"
	InboxStatusParsed    = "parsed"
	InboxStatusError     = "error"
)

// Outbox event states.
const (
	OutboxStatusPending    = "pending"
	OutboxStatusProcessing = "processing"
	OutboxStatusSent       = "sent"
	OutboxStatusFailed     = "failed"
)

// InboxItem is one accepted submission. (tenant_id, content_hash) is unique;
// mime holds the server-detected type, never the client's claim.
type InboxItem struct {
	ID          pgtype.UUID
	TenantID    string
	Status      string
	ContentHash string
	Uri         string
	Source      string
	Filename    pgtype.Text
	Mime        string
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}

// EventOutbox is one durable event on the table-as-bus. A row in
// "processing" is owned by exactly one worker; "failed" is terminal.
type EventOutbox struct {
	ID             pgtype.UUID
	TenantID       string
	EventType      string
	SchemaVersion  int32
	IdempotencyKey pgtype.Text
	TraceID        pgtype.Text
	Payload        []byte
	Status         string
	AttemptCount   int32
	NextAttemptAt  pgtype.Timestamptz
	CreatedAt      pgtype.Timestamptz
}

// ProcessedEvent is the already-applied ledger keyed on
// (tenant_id, event_type, idempotency_key).
type ProcessedEvent struct {
	TenantID       string
	EventType      string
	IdempotencyKey string
	CreatedAt      pgtype.Timestamptz
}

// DeadLetter is a terminal record kept for operator inspection and replay.
type DeadLetter struct {
	ID        pgtype.UUID
	TenantID  string
	EventType string
	Reason    string
	Payload   []byte
	CreatedAt pgtype.Timestamptz
}

// ParsedItem is the structured output of one successful parse.
type ParsedItem struct {
	ID          pgtype.UUID
	TenantID    string
	InboxItemID pgtype.UUID
	Payload     []byte
	CreatedAt   pgtype.Timestamptz
}

// Chunk is one fixed-size slice of an oversized parsed payload; seq_no is
// unique per parsed item.
type Chunk struct {
	ID           pgtype.UUID
	TenantID     string
	ParsedItemID pgtype.UUID
	InboxItemID  pgtype.UUID
	SeqNo        int32
	Text         string
	TokenCount   int32
	CreatedAt    pgtype.Timestamptz
}

// InsertInboxItemRow carries the upserted item plus whether this call
// created it (false means the submission deduplicated onto an existing row).
type InsertInboxItemRow struct {
	ID          pgtype.UUID
	TenantID    string
	Status      string
	ContentHash string
	Uri         string
	Source      string
	Filename    pgtype.Text
	Mime        string
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
	IsNew       bool
}

// Item returns the row as a plain InboxItem.
func (r InsertInboxItemRow) Item() InboxItem {
	return InboxItem{
		ID:          r.ID,
		TenantID:    r.TenantID,
		Status:      r.Status,
		ContentHash: r.ContentHash,
		Uri:         r.Uri,
		Source:      r.Source,
		Filename:    r.Filename,
		Mime:        r.Mime,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// LatestParsedPerHashRow is the latest parsed item per content hash.
type LatestParsedPerHashRow struct {
	TenantID     string
	ContentHash  string
	InboxItemID  pgtype.UUID
	ParsedItemID pgtype.UUID
	DocType      pgtype.Text
	ParsedAt     pgtype.Timestamptz
}

// ItemsNeedingReviewRow is an errored inbox item joined with its dead-letter
// count.
type ItemsNeedingReviewRow struct {
	ID          pgtype.UUID
	TenantID    string
	ContentHash string
	Mime        string
	Source      string
	DeadLetters int64
	UpdatedAt   pgtype.Timestamptz
}

// TenantIngestSummaryRow aggregates one tenant's inbox by status.
type TenantIngestSummaryRow struct {
	TenantID  string
	Received  int64
	Validated int64
	Parsed    int64
	Errored   int64
	Total     int64
}

// OutboxStatusCountRow is one (event_type, status) bucket of the outbox.
type OutboxStatusCountRow struct {
	EventType string
	Status    string
	Count     int64
}
