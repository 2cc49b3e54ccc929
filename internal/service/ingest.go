// Package service implements the operations behind the HTTP API and the
// drop-directory connector: document ingestion, the inbox read models, and
// dead-letter replay.
//
// Every mutating operation follows the transactional-outbox pattern: the
// business row and the event announcing it commit in one database
// transaction, so an item can never exist without its event or vice versa.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/docflow-io/docflow/internal/config"
	"github.com/docflow-io/docflow/internal/contentstore"
	"github.com/docflow-io/docflow/internal/fault"
	"github.com/docflow-io/docflow/internal/fetch"
	"github.com/docflow-io/docflow/internal/mimetype"
	"github.com/docflow-io/docflow/internal/outbox"
	"github.com/docflow-io/docflow/internal/repository"
	db "github.com/docflow-io/docflow/internal/repository/db"
	"github.com/docflow-io/docflow/internal/telemetry"
	"github.com/docflow-io/docflow/internal/tenant"
)

// ErrNotFound marks lookups that matched no row; handlers map it to 404.
var ErrNotFound = errors.New("not found")

// Submission channels recorded in inbox_items.source.
const (
	SourceUpload  = "upload"
	SourceURL     = "url"
	SourceDropDir = "dropdir"
)

// IngestService accepts documents into the pipeline.
type IngestService interface {
	// Ingest validates one submission, stores its bytes content-addressed,
	// and upserts the inbox row. A brand-new row enqueues InboxItemValidated
	// in the same transaction; a duplicate (same tenant and content hash)
	// returns the existing item without a second event.
	Ingest(ctx context.Context, in IngestInput) (*IngestResult, error)

	// IngestFromURL fetches a remote document under the egress policy and
	// ingests the body as a source="url" submission.
	IngestFromURL(ctx context.Context, in FetchInput) (*IngestResult, error)
}

// IngestInput carries one submission.
type IngestInput struct {
	TenantID string
	// Source is the submission channel, one of the Source* constants.
	Source   string
	Filename string
	// IdempotencyKey is the caller-supplied dedupe key for the validated
	// event; empty falls back to the content hash.
	IdempotencyKey string
	Data           []byte
}

// FetchInput names a remote document to ingest.
type FetchInput struct {
	TenantID       string
	URL            string
	IdempotencyKey string
}

// IngestResult reports the stored item and whether this call deduplicated
// onto an existing row.
type IngestResult struct {
	Item      db.InboxItem
	Duplicate bool
}

type ingestService struct {
	cfg       *config.Config
	tx        repository.Transactor
	store     *contentstore.Store
	validator *tenant.Validator
	fetcher   *fetch.Client
	enqueuer  *outbox.Enqueuer
	metrics   *telemetry.Metrics
	logger    *zap.Logger
}

// NewIngestService wires the ingest path. fetcher may be nil when remote-URL
// ingestion is not configured; IngestFromURL then rejects with a validation
// fault.
func NewIngestService(
	cfg *config.Config,
	tx repository.Transactor,
	store *contentstore.Store,
	validator *tenant.Validator,
	fetcher *fetch.Client,
	metrics *telemetry.Metrics,
	logger *zap.Logger,
) IngestService {
	return &ingestService{
		cfg:       cfg,
		tx:        tx,
		store:     store,
		validator: validator,
		fetcher:   fetcher,
		enqueuer:  outbox.NewEnqueuer(logger),
		metrics:   metrics,
		logger:    logger,
	}
}

// Ingest implements IngestService.
//
// Sequence:
//  1. Classify the tenant against the allowlist.
//  2. Enforce the upload cap and detect the MIME type from magic bytes; the
//     client's declared Content-Type is never consulted.
//  3. Write the bytes to the content store under their SHA-256.
//  4. In one transaction, upsert the inbox row as validated and, when the
//     row is new, enqueue InboxItemValidated.
func (s *ingestService) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	start := time.Now()

	if verdict := s.validator.Validate(in.TenantID); verdict != tenant.VerdictOK {
		return nil, verdictFault(verdict)
	}
	s.metrics.CountReceived(ctx, in.Source)

	if len(in.Data) == 0 {
		return nil, fault.New(fault.CodeValidation, "empty document body")
	}
	if int64(len(in.Data)) > s.cfg.MaxUploadBytes {
		return nil, fault.New(fault.CodeSizeLimit, "document is %d bytes, cap is %d",
			len(in.Data), s.cfg.MaxUploadBytes)
	}

	mime := mimetype.Detect(sniffHead(in.Data), in.Filename)
	if !s.cfg.MIMEAllowed(mime) {
		return nil, fault.New(fault.CodeUnsupportedMIME, "detected type %s is not accepted", mime)
	}

	sum := sha256.Sum256(in.Data)
	hash := hex.EncodeToString(sum[:])

	uri, err := s.store.Write(in.TenantID, hash, mimetype.Extension(mime), in.Data)
	if err != nil {
		return nil, fault.Wrap(fault.CodeIO, err)
	}

	var row db.InsertInboxItemRow
	err = s.tx.InTx(ctx, func(q db.Querier) error {
		var err error
		row, err = q.InsertInboxItem(ctx, db.InsertInboxItemParams{
			ID:          repository.NewUUID(),
			TenantID:    in.TenantID,
			Status:      db.InboxStatusValidated,
			ContentHash: hash,
			Uri:         uri,
			Source:      in.Source,
			Filename:    textOrNull(in.Filename),
			Mime:        mime,
		})
		if err != nil {
			return fmt.Errorf("insert inbox item: %w", err)
		}
		if !row.IsNew {
			return nil
		}

		idemKey := in.IdempotencyKey
		if idemKey == "" {
			idemKey = hash
		}
		_, err = s.enqueuer.Enqueue(ctx, q, outbox.Event{
			TenantID:       in.TenantID,
			Type:           outbox.TypeInboxItemValidated,
			IdempotencyKey: idemKey,
			Payload: outbox.InboxItemValidatedPayload{
				InboxItemID: row.ID.String(),
				ContentHash: hash,
				URI:         uri,
				Source:      in.Source,
				Filename:    in.Filename,
				MIME:        mime,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if row.IsNew {
		s.metrics.CountValidated(ctx, in.Source)
		s.logger.Info("item ingested",
			zap.String("item_id", row.ID.String()),
			zap.String("tenant_id", in.TenantID),
			zap.String("source", in.Source),
			zap.String("mime", mime),
			zap.Int("bytes", len(in.Data)),
		)
	} else {
		s.metrics.CountDedupe(ctx, in.Source)
		s.logger.Info("duplicate submission deduplicated",
			zap.String("item_id", row.ID.String()),
			zap.String("tenant_id", in.TenantID),
			zap.String("content_hash", hash),
		)
	}
	s.metrics.ObserveIngest(ctx, in.Source, float64(time.Since(start).Milliseconds()))

	return &IngestResult{Item: row.Item(), Duplicate: !row.IsNew}, nil
}

// IngestFromURL implements IngestService. The tenant is classified before
// any network traffic so unknown callers cannot trigger egress.
func (s *ingestService) IngestFromURL(ctx context.Context, in FetchInput) (*IngestResult, error) {
	if verdict := s.validator.Validate(in.TenantID); verdict != tenant.VerdictOK {
		return nil, verdictFault(verdict)
	}
	if s.fetcher == nil {
		return nil, fault.New(fault.CodeValidation, "url ingestion is not configured")
	}
	if strings.TrimSpace(in.URL) == "" {
		return nil, fault.New(fault.CodeValidation, "url is required")
	}

	res, err := s.fetcher.Fetch(ctx, in.URL)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("remote document fetched",
		zap.String("tenant_id", in.TenantID),
		zap.String("url", res.FinalURL),
		zap.Int("bytes", len(res.Body)),
	)

	return s.Ingest(ctx, IngestInput{
		TenantID:       in.TenantID,
		Source:         SourceURL,
		Filename:       res.Filename,
		IdempotencyKey: in.IdempotencyKey,
		Data:           res.Body,
	})
}

// ── shared helpers ─────────────────────────────────────────────────────────

func verdictFault(v tenant.Verdict) error {
	switch v {
	case tenant.VerdictMissing:
		return fault.New(fault.CodeTenantMissing, "tenant identifier is required")
	case tenant.VerdictMalformed:
		return fault.New(fault.CodeTenantMalformed, "tenant identifier is malformed")
	default:
		return fault.New(fault.CodeTenantUnknown, "tenant is not allowlisted")
	}
}

func sniffHead(data []byte) []byte {
	if len(data) > mimetype.SniffLen {
		return data[:mimetype.SniffLen]
	}
	return data
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
