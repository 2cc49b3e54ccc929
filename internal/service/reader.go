package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/docflow-io/docflow/internal/cursor"
	"github.com/docflow-io/docflow/internal/fault"
	"github.com/docflow-io/docflow/internal/repository"
	db "github.com/docflow-io/docflow/internal/repository/db"
)

// Pagination bounds shared by every listing.
const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ItemPage is one page of inbox items. NextCursor is empty on the last page.
type ItemPage struct {
	Items      []db.InboxItem
	NextCursor string
}

// DeadLetterPage is one page of dead letters.
type DeadLetterPage struct {
	Items      []db.DeadLetter
	NextCursor string
}

// ListItemsInput filters and pages the inbox listing.
type ListItemsInput struct {
	TenantID string
	// Status narrows to one lifecycle state; empty means all.
	Status string
	Cursor string
	Limit  int32
}

// ListDeadLettersInput pages the dead-letter listing.
type ListDeadLettersInput struct {
	TenantID string
	Cursor   string
	Limit    int32
}

// ReaderService serves the inbox read models. Listings page by signed keyset
// cursor over (created_at, id) descending, so pages stay stable under
// concurrent inserts.
type ReaderService interface {
	GetItem(ctx context.Context, tenantID, itemID string) (db.InboxItem, error)
	ListItems(ctx context.Context, in ListItemsInput) (*ItemPage, error)
	ListDeadLetters(ctx context.Context, in ListDeadLettersInput) (*DeadLetterPage, error)

	// LatestParsed returns the newest parsed item per content hash.
	LatestParsed(ctx context.Context, tenantID string, limit int32) ([]db.LatestParsedPerHashRow, error)
	// NeedingReview returns errored items joined with their dead-letter
	// counts, newest first.
	NeedingReview(ctx context.Context, tenantID string, limit int32) ([]db.ItemsNeedingReviewRow, error)
	// TenantSummary aggregates one tenant's inbox by status.
	TenantSummary(ctx context.Context, tenantID string) (db.TenantIngestSummaryRow, error)
	// WorkerStats counts outbox events per (event_type, status), across all
	// tenants. It backs the operator stats endpoint.
	WorkerStats(ctx context.Context) ([]db.OutboxStatusCountRow, error)
}

type readerService struct {
	querier db.Querier
	signer  *cursor.Signer
}

// NewReaderService binds the read models to a pool-backed querier. Reads
// never open transactions.
func NewReaderService(q db.Querier, signer *cursor.Signer) ReaderService {
	return &readerService{querier: q, signer: signer}
}

// GetItem implements ReaderService.
func (s *readerService) GetItem(ctx context.Context, tenantID, itemID string) (db.InboxItem, error) {
	id, err := repository.ParseUUID(itemID)
	if err != nil {
		return db.InboxItem{}, fault.New(fault.CodeValidation, "invalid item id %q", itemID)
	}
	item, err := s.querier.GetInboxItem(ctx, db.GetInboxItemParams{ID: id, TenantID: tenantID})
	if errors.Is(err, pgx.ErrNoRows) {
		return db.InboxItem{}, ErrNotFound
	}
	if err != nil {
		return db.InboxItem{}, fmt.Errorf("get inbox item: %w", err)
	}
	return item, nil
}

// ListItems implements ReaderService.
func (s *readerService) ListItems(ctx context.Context, in ListItemsInput) (*ItemPage, error) {
	if in.Status != "" && !validInboxStatus(in.Status) {
		return nil, fault.New(fault.CodeValidation, "unknown status %q", in.Status)
	}
	limit := clampLimit(in.Limit)

	params := db.ListInboxItemsParams{
		TenantID: in.TenantID,
		Limit:    limit,
	}
	if in.Status != "" {
		params.Status = pgtype.Text{String: in.Status, Valid: true}
	}
	if in.Cursor != "" {
		pos, id, err := s.position(in.Cursor)
		if err != nil {
			return nil, err
		}
		params.CursorCreatedAt = pos
		params.CursorID = id
	}

	items, err := s.querier.ListInboxItems(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list inbox items: %w", err)
	}

	page := &ItemPage{Items: items}
	if int32(len(items)) == limit {
		last := items[len(items)-1]
		page.NextCursor, err = s.signer.Sign(cursor.Cursor{
			CreatedAt: last.CreatedAt.Time,
			ID:        last.ID.String(),
		})
		if err != nil {
			return nil, err
		}
	}
	return page, nil
}

// ListDeadLetters implements ReaderService.
func (s *readerService) ListDeadLetters(ctx context.Context, in ListDeadLettersInput) (*DeadLetterPage, error) {
	limit := clampLimit(in.Limit)

	params := db.ListDeadLettersParams{
		TenantID: in.TenantID,
		Limit:    limit,
	}
	if in.Cursor != "" {
		pos, id, err := s.position(in.Cursor)
		if err != nil {
			return nil, err
		}
		params.CursorCreatedAt = pos
		params.CursorID = id
	}

	letters, err := s.querier.ListDeadLetters(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}

	page := &DeadLetterPage{Items: letters}
	if int32(len(letters)) == limit {
		last := letters[len(letters)-1]
		page.NextCursor, err = s.signer.Sign(cursor.Cursor{
			CreatedAt: last.CreatedAt.Time,
			ID:        last.ID.String(),
		})
		if err != nil {
			return nil, err
		}
	}
	return page, nil
}

// LatestParsed implements ReaderService.
func (s *readerService) LatestParsed(ctx context.Context, tenantID string, limit int32) ([]db.LatestParsedPerHashRow, error) {
	return s.querier.ListLatestParsedPerHash(ctx, db.ListLatestParsedPerHashParams{
		TenantID: tenantID,
		Limit:    clampLimit(limit),
	})
}

// NeedingReview implements ReaderService.
func (s *readerService) NeedingReview(ctx context.Context, tenantID string, limit int32) ([]db.ItemsNeedingReviewRow, error) {
	return s.querier.ListItemsNeedingReview(ctx, db.ListItemsNeedingReviewParams{
		TenantID: tenantID,
		Limit:    clampLimit(limit),
	})
}

// TenantSummary implements ReaderService. A tenant with no items yet reads
// as all-zero rather than not found.
func (s *readerService) TenantSummary(ctx context.Context, tenantID string) (db.TenantIngestSummaryRow, error) {
	row, err := s.querier.GetTenantIngestSummary(ctx, tenantID)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.TenantIngestSummaryRow{TenantID: tenantID}, nil
	}
	if err != nil {
		return db.TenantIngestSummaryRow{}, fmt.Errorf("tenant summary: %w", err)
	}
	return row, nil
}

// WorkerStats implements ReaderService.
func (s *readerService) WorkerStats(ctx context.Context) ([]db.OutboxStatusCountRow, error) {
	return s.querier.CountOutboxByStatus(ctx)
}

// position verifies a cursor token into the keyset parameters.
func (s *readerService) position(token string) (pgtype.Timestamptz, pgtype.UUID, error) {
	pos, err := s.signer.Verify(token)
	if err != nil {
		return pgtype.Timestamptz{}, pgtype.UUID{}, err
	}
	id, err := repository.ParseUUID(pos.ID)
	if err != nil {
		return pgtype.Timestamptz{}, pgtype.UUID{}, fault.New(fault.CodeValidation, "malformed cursor")
	}
	return pgtype.Timestamptz{Time: pos.CreatedAt, Valid: true}, id, nil
}

func validInboxStatus(s string) bool {
	switch s {
	case db.InboxStatusReceived, db.InboxStatusValidated, db.InboxStatusParsed, db.InboxStatusError:
		return true
	}
	return false
}

func clampLimit(n int32) int32 {
	switch {
	case n <= 0:
		return defaultPageSize
	case n > maxPageSize:
		return maxPageSize
	}
	return n
}
