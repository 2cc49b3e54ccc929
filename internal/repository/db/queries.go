package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ── inbox items ────────────────────────────────────────────────────────────

const insertInboxItemSQL = `
INSERT INTO inbox_items (id, tenant_id, status, content_hash, uri, source, filename, mime)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (tenant_id, content_hash)
DO UPDATE SET updated_at = now()
RETURNING id, tenant_id, status, content_hash, uri, source, filename, mime,
          created_at, updated_at, (xmax = 0) AS is_new
`

// InsertInboxItemParams feeds the inbox upsert. Status is written as given;
// the ingest path inserts validated items directly because the announcing
// event commits in the same transaction.
type InsertInboxItemParams struct {
	ID          pgtype.UUID
	TenantID    string
	Status      string
	ContentHash string
	Uri         string
	Source      string
	Filename    pgtype.Text
	Mime        string
}

// InsertInboxItem upserts on (tenant_id, content_hash). IsNew is false when
// the row already existed, which is how the ingest path detects duplicates
// without a second round trip.
func (q *Queries) InsertInboxItem(ctx context.Context, arg InsertInboxItemParams) (InsertInboxItemRow, error) {
	row := q.db.QueryRow(ctx, insertInboxItemSQL,
		arg.ID, arg.TenantID, arg.Status, arg.ContentHash, arg.Uri, arg.Source, arg.Filename, arg.Mime)
	var r InsertInboxItemRow
	err := row.Scan(&r.ID, &r.TenantID, &r.Status, &r.ContentHash, &r.Uri, &r.Source,
		&r.Filename, &r.Mime, &r.CreatedAt, &r.UpdatedAt, &r.IsNew)
	return r, err
}

const getInboxItemSQL = `
SELECT id, tenant_id, status, content_hash, uri, source, filename, mime, created_at, updated_at
FROM inbox_items
WHERE id = $1 AND tenant_id = $2
`

type GetInboxItemParams struct {
	ID       pgtype.UUID
	TenantID string
}

func (q *Queries) GetInboxItem(ctx context.Context, arg GetInboxItemParams) (InboxItem, error) {
	row := q.db.QueryRow(ctx, getInboxItemSQL, arg.ID, arg.TenantID)
	var i InboxItem
	err := row.Scan(&i.ID, &i.TenantID, &i.Status, &i.ContentHash, &i.Uri, &i.Source,
		&i.Filename, &i.Mime, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const listInboxItemsSQL = `
SELECT id, tenant_id, status, content_hash, uri, source, filename, mime, created_at, updated_at
FROM inbox_items
WHERE tenant_id = $1
  AND ($2::text IS NULL OR status = $2)
  AND ($3::timestamptz IS NULL OR (created_at, id) < ($3, $4))
ORDER BY created_at DESC, id DESC
LIMIT $5
`

// ListInboxItemsParams pages with a keyset cursor; a NULL CursorCreatedAt
// means first page.
type ListInboxItemsParams struct {
	TenantID        string
	Status          pgtype.Text
	CursorCreatedAt pgtype.Timestamptz
	CursorID        pgtype.UUID
	Limit           int32
}

func (q *Queries) ListInboxItems(ctx context.Context, arg ListInboxItemsParams) ([]InboxItem, error) {
	rows, err := q.db.Query(ctx, listInboxItemsSQL,
		arg.TenantID, arg.Status, arg.CursorCreatedAt, arg.CursorID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InboxItem
	for rows.Next() {
		var i InboxItem
		if err := rows.Scan(&i.ID, &i.TenantID, &i.Status, &i.ContentHash, &i.Uri, &i.Source,
			&i.Filename, &i.Mime, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateInboxItemStatusSQL = `
UPDATE inbox_items
SET status = $2, updated_at = now()
WHERE id = $1
  AND NOT (status = 'parsed' AND $2 = 'error')
`

type UpdateInboxItemStatusParams struct {
	ID     pgtype.UUID
	Status string
}

// UpdateInboxItemStatus advances an item's lifecycle. The predicate refuses
// the one disallowed transition, parsed to error.
func (q *Queries) UpdateInboxItemStatus(ctx context.Context, arg UpdateInboxItemStatusParams) error {
	_, err := q.db.Exec(ctx, updateInboxItemStatusSQL, arg.ID, arg.Status)
	return err
}

// ── outbox bus ─────────────────────────────────────────────────────────────

const insertOutboxEventSQL = `
INSERT INTO event_outbox
  (id, tenant_id, event_type, schema_version, idempotency_key, trace_id, payload,
   status, attempt_count, next_attempt_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', 0, $8)
ON CONFLICT (tenant_id, event_type, idempotency_key) WHERE idempotency_key IS NOT NULL
DO NOTHING
`

type InsertOutboxEventParams struct {
	ID             pgtype.UUID
	TenantID       string
	EventType      string
	SchemaVersion  int32
	IdempotencyKey pgtype.Text
	TraceID        pgtype.Text
	Payload        []byte
	NextAttemptAt  pgtype.Timestamptz
}

// InsertOutboxEvent enqueues a pending event. It reports false when an event
// with the same (tenant, type, idempotency key) is already enqueued; callers
// swallow that as already-done.
func (q *Queries) InsertOutboxEvent(ctx context.Context, arg InsertOutboxEventParams) (bool, error) {
	tag, err := q.db.Exec(ctx, insertOutboxEventSQL,
		arg.ID, arg.TenantID, arg.EventType, arg.SchemaVersion, arg.IdempotencyKey,
		arg.TraceID, arg.Payload, arg.NextAttemptAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const listDueOutboxEventsSQL = `
SELECT id
FROM event_outbox
WHERE status = 'pending'
  AND next_attempt_at <= now()
  AND (cardinality($1::text[]) = 0 OR event_type = ANY($1::text[]))
ORDER BY created_at
LIMIT $2
`

// ListDueOutboxEventsParams selects the candidate batch. An empty EventTypes
// slice matches every topic.
type ListDueOutboxEventsParams struct {
	EventTypes []string
	Limit      int32
}

func (q *Queries) ListDueOutboxEvents(ctx context.Context, arg ListDueOutboxEventsParams) ([]pgtype.UUID, error) {
	types := arg.EventTypes
	if types == nil {
		types = []string{}
	}
	rows, err := q.db.Query(ctx, listDueOutboxEventsSQL, types, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []pgtype.UUID
	for rows.Next() {
		var id pgtype.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const claimOutboxEventSQL = `
UPDATE event_outbox
SET status = 'processing'
WHERE id = $1 AND status = 'pending'
RETURNING id, tenant_id, event_type, schema_version, idempotency_key, trace_id, payload,
          status, attempt_count, next_attempt_at, created_at
`

// ClaimOutboxEvent leases one event via a conditional update. Losing the
// race to another worker surfaces as pgx.ErrNoRows.
func (q *Queries) ClaimOutboxEvent(ctx context.Context, id pgtype.UUID) (EventOutbox, error) {
	row := q.db.QueryRow(ctx, claimOutboxEventSQL, id)
	var e EventOutbox
	err := row.Scan(&e.ID, &e.TenantID, &e.EventType, &e.SchemaVersion, &e.IdempotencyKey,
		&e.TraceID, &e.Payload, &e.Status, &e.AttemptCount, &e.NextAttemptAt, &e.CreatedAt)
	return e, err
}

const markOutboxEventSentSQL = `
UPDATE event_outbox SET status = 'sent' WHERE id = $1
`

func (q *Queries) MarkOutboxEventSent(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, markOutboxEventSentSQL, id)
	return err
}

const rescheduleOutboxEventSQL = `
UPDATE event_outbox
SET status = 'pending', attempt_count = attempt_count + 1, next_attempt_at = $2
WHERE id = $1
`

type RescheduleOutboxEventParams struct {
	ID            pgtype.UUID
	NextAttemptAt pgtype.Timestamptz
}

// RescheduleOutboxEvent returns a claimed event to pending with a later due
// time; this is the only retry mechanism.
func (q *Queries) RescheduleOutboxEvent(ctx context.Context, arg RescheduleOutboxEventParams) error {
	_, err := q.db.Exec(ctx, rescheduleOutboxEventSQL, arg.ID, arg.NextAttemptAt)
	return err
}

const failOutboxEventSQL = `
UPDATE event_outbox
SET status = 'failed', attempt_count = attempt_count + 1
WHERE id = $1
`

func (q *Queries) FailOutboxEvent(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, failOutboxEventSQL, id)
	return err
}

const replayOutboxEventSQL = `
INSERT INTO event_outbox
  (id, tenant_id, event_type, schema_version, idempotency_key, trace_id, payload,
   status, attempt_count, next_attempt_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', 0, $8)
ON CONFLICT (tenant_id, event_type, idempotency_key) WHERE idempotency_key IS NOT NULL
DO UPDATE SET status = 'pending', attempt_count = 0, next_attempt_at = EXCLUDED.next_attempt_at
WHERE event_outbox.status IN ('sent', 'failed')
`

type ReplayOutboxEventParams struct {
	ID             pgtype.UUID
	TenantID       string
	EventType      string
	SchemaVersion  int32
	IdempotencyKey pgtype.Text
	TraceID        pgtype.Text
	Payload        []byte
	NextAttemptAt  pgtype.Timestamptz
}

// ReplayOutboxEvent puts a replayed envelope back on the bus. Unlike
// InsertOutboxEvent it revives a settled twin in place: a prior sent or
// failed event with the same (tenant, type, idempotency key) flips back to
// pending instead of blocking the insert. It reports false when a twin is
// already pending or processing.
func (q *Queries) ReplayOutboxEvent(ctx context.Context, arg ReplayOutboxEventParams) (bool, error) {
	tag, err := q.db.Exec(ctx, replayOutboxEventSQL,
		arg.ID, arg.TenantID, arg.EventType, arg.SchemaVersion, arg.IdempotencyKey,
		arg.TraceID, arg.Payload, arg.NextAttemptAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const countOutboxByStatusSQL = `
SELECT event_type, status, count(*) AS count
FROM event_outbox
GROUP BY event_type, status
ORDER BY event_type, status
`

func (q *Queries) CountOutboxByStatus(ctx context.Context) ([]OutboxStatusCountRow, error) {
	rows, err := q.db.Query(ctx, countOutboxByStatusSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OutboxStatusCountRow
	for rows.Next() {
		var r OutboxStatusCountRow
		if err := rows.Scan(&r.EventType, &r.Status, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ── idempotency ledger ─────────────────────────────────────────────────────

const insertProcessedEventSQL = `
INSERT INTO processed_events (tenant_id, event_type, idempotency_key)
VALUES ($1, $2, $3)
ON CONFLICT (tenant_id, event_type, idempotency_key) DO NOTHING
`

type InsertProcessedEventParams struct {
	TenantID       string
	EventType      string
	IdempotencyKey string
}

// InsertProcessedEvent records a handler application. It reports false when
// the key was already sealed, i.e. the event was applied before.
func (q *Queries) InsertProcessedEvent(ctx context.Context, arg InsertProcessedEventParams) (bool, error) {
	tag, err := q.db.Exec(ctx, insertProcessedEventSQL, arg.TenantID, arg.EventType, arg.IdempotencyKey)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ── dead letters ───────────────────────────────────────────────────────────

const insertDeadLetterSQL = `
INSERT INTO dead_letters (id, tenant_id, event_type, reason, payload)
VALUES ($1, $2, $3, $4, $5)
`

type InsertDeadLetterParams struct {
	ID        pgtype.UUID
	TenantID  string
	EventType string
	Reason    string
	Payload   []byte
}

func (q *Queries) InsertDeadLetter(ctx context.Context, arg InsertDeadLetterParams) error {
	_, err := q.db.Exec(ctx, insertDeadLetterSQL,
		arg.ID, arg.TenantID, arg.EventType, arg.Reason, arg.Payload)
	return err
}

const listDeadLettersSQL = `
SELECT id, tenant_id, event_type, reason, payload, created_at
FROM dead_letters
WHERE tenant_id = $1
  AND ($2::timestamptz IS NULL OR (created_at, id) < ($2, $3))
ORDER BY created_at DESC, id DESC
LIMIT $4
`

type ListDeadLettersParams struct {
	TenantID        string
	CursorCreatedAt pgtype.Timestamptz
	CursorID        pgtype.UUID
	Limit           int32
}

func (q *Queries) ListDeadLetters(ctx context.Context, arg ListDeadLettersParams) ([]DeadLetter, error) {
	rows, err := q.db.Query(ctx, listDeadLettersSQL,
		arg.TenantID, arg.CursorCreatedAt, arg.CursorID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDeadLetters(rows)
}

const selectDeadLettersForReplaySQL = `
SELECT id, tenant_id, event_type, reason, payload, created_at
FROM dead_letters
WHERE tenant_id = $1
  AND (cardinality($2::uuid[]) = 0 OR id = ANY($2::uuid[]))
  AND ($3::text IS NULL OR event_type = $3)
ORDER BY created_at
LIMIT $4
`

// SelectDeadLettersForReplayParams narrows the replay set by explicit ids
// and/or event type; an empty IDs slice means no id filter.
type SelectDeadLettersForReplayParams struct {
	TenantID  string
	IDs       []pgtype.UUID
	EventType pgtype.Text
	Limit     int32
}

func (q *Queries) SelectDeadLettersForReplay(ctx context.Context, arg SelectDeadLettersForReplayParams) ([]DeadLetter, error) {
	ids := arg.IDs
	if ids == nil {
		ids = []pgtype.UUID{}
	}
	rows, err := q.db.Query(ctx, selectDeadLettersForReplaySQL,
		arg.TenantID, ids, arg.EventType, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDeadLetters(rows)
}

func scanDeadLetters(rows pgx.Rows) ([]DeadLetter, error) {
	var out []DeadLetter
	for rows.Next() {
		var d DeadLetter
		if err := rows.Scan(&d.ID, &d.TenantID, &d.EventType, &d.Reason, &d.Payload, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const deleteDeadLetterSQL = `
DELETE FROM dead_letters WHERE id = $1
`

func (q *Queries) DeleteDeadLetter(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, deleteDeadLetterSQL, id)
	return err
}

// ── parse results ──────────────────────────────────────────────────────────

const insertParsedItemSQL = `
INSERT INTO parsed_items (id, tenant_id, inbox_item_id, payload)
VALUES ($1, $2, $3, $4)
RETURNING id, tenant_id, inbox_item_id, payload, created_at
`

type InsertParsedItemParams struct {
	ID          pgtype.UUID
	TenantID    string
	InboxItemID pgtype.UUID
	Payload     []byte
}

func (q *Queries) InsertParsedItem(ctx context.Context, arg InsertParsedItemParams) (ParsedItem, error) {
	row := q.db.QueryRow(ctx, insertParsedItemSQL, arg.ID, arg.TenantID, arg.InboxItemID, arg.Payload)
	var p ParsedItem
	err := row.Scan(&p.ID, &p.TenantID, &p.InboxItemID, &p.Payload, &p.CreatedAt)
	return p, err
}

const insertChunkSQL = `
INSERT INTO chunks (id, tenant_id, parsed_item_id, inbox_item_id, seq_no, text, token_count)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type InsertChunkParams struct {
	ID           pgtype.UUID
	TenantID     string
	ParsedItemID pgtype.UUID
	InboxItemID  pgtype.UUID
	SeqNo        int32
	Text         string
	TokenCount   int32
}

func (q *Queries) InsertChunk(ctx context.Context, arg InsertChunkParams) error {
	_, err := q.db.Exec(ctx, insertChunkSQL,
		arg.ID, arg.TenantID, arg.ParsedItemID, arg.InboxItemID, arg.SeqNo, arg.Text, arg.TokenCount)
	return err
}

// ── read models ────────────────────────────────────────────────────────────

const listLatestParsedPerHashSQL = `
SELECT tenant_id, content_hash, inbox_item_id, parsed_item_id, doc_type, parsed_at
FROM latest_parsed_per_hash
WHERE tenant_id = $1
ORDER BY parsed_at DESC
LIMIT $2
`

type ListLatestParsedPerHashParams struct {
	TenantID string
	Limit    int32
}

func (q *Queries) ListLatestParsedPerHash(ctx context.Context, arg ListLatestParsedPerHashParams) ([]LatestParsedPerHashRow, error) {
	rows, err := q.db.Query(ctx, listLatestParsedPerHashSQL, arg.TenantID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LatestParsedPerHashRow
	for rows.Next() {
		var r LatestParsedPerHashRow
		if err := rows.Scan(&r.TenantID, &r.ContentHash, &r.InboxItemID, &r.ParsedItemID,
			&r.DocType, &r.ParsedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const listItemsNeedingReviewSQL = `
SELECT id, tenant_id, content_hash, mime, source, dead_letters, updated_at
FROM items_needing_review
WHERE tenant_id = $1
ORDER BY updated_at DESC
LIMIT $2
`

type ListItemsNeedingReviewParams struct {
	TenantID string
	Limit    int32
}

func (q *Queries) ListItemsNeedingReview(ctx context.Context, arg ListItemsNeedingReviewParams) ([]ItemsNeedingReviewRow, error) {
	rows, err := q.db.Query(ctx, listItemsNeedingReviewSQL, arg.TenantID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ItemsNeedingReviewRow
	for rows.Next() {
		var r ItemsNeedingReviewRow
		if err := rows.Scan(&r.ID, &r.TenantID, &r.ContentHash, &r.Mime, &r.Source,
			&r.DeadLetters, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const getTenantIngestSummarySQL = `
SELECT tenant_id, received, validated, parsed, errored, total
FROM tenant_ingest_summary
WHERE tenant_id = $1
`

func (q *Queries) GetTenantIngestSummary(ctx context.Context, tenantID string) (TenantIngestSummaryRow, error) {
	row := q.db.QueryRow(ctx, getTenantIngestSummarySQL, tenantID)
	var r TenantIngestSummaryRow
	err := row.Scan(&r.TenantID, &r.Received, &r.Validated, &r.Parsed, &r.Errored, &r.Total)
	return r, err
}

// ── retention ──────────────────────────────────────────────────────────────

const deleteSentOutboxBeforeSQL = `
DELETE FROM event_outbox WHERE status = 'sent' AND created_at < $1
`

func (q *Queries) DeleteSentOutboxBefore(ctx context.Context, cutoff pgtype.Timestamptz) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteSentOutboxBeforeSQL, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteProcessedEventsBeforeSQL = `
DELETE FROM processed_events WHERE created_at < $1
`

func (q *Queries) DeleteProcessedEventsBefore(ctx context.Context, cutoff pgtype.Timestamptz) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteProcessedEventsBeforeSQL, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
