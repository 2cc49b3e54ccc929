package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/docflow-io/docflow/internal/config"
	"github.com/docflow-io/docflow/internal/contentstore"
	"github.com/docflow-io/docflow/internal/fault"
	"github.com/docflow-io/docflow/internal/outbox"
	"github.com/docflow-io/docflow/internal/parser"
	"github.com/docflow-io/docflow/internal/repository"
	db "github.com/docflow-io/docflow/internal/repository/db"
)

// ParseHandler consumes InboxItemValidated: it loads the stored blob, parses
// it according to its MIME type, persists the parsed payload (chunked when
// large), advances the inbox item to parsed and announces InboxItemParsed.
//
// Failure classification: blob I/O is retriable; everything that is a
// property of the document itself (unsupported type, oversize, malformed
// content) is terminal, flips the item to error and announces
// InboxItemParseFailed in the same transaction as the dead letter.
type ParseHandler struct {
	store          *contentstore.Store
	maxBytes       int64
	chunkThreshold int
	chunkSize      int
	logger         *zap.Logger
}

func NewParseHandler(store *contentstore.Store, cfg *config.Config, logger *zap.Logger) *ParseHandler {
	return &ParseHandler{
		store:          store,
		maxBytes:       cfg.ParserMaxBytes,
		chunkThreshold: cfg.ChunkThresholdBytes,
		chunkSize:      cfg.ChunkSizeBytes,
		logger:         logger,
	}
}

func (h *ParseHandler) EventTypes() []string {
	return []string{outbox.TypeInboxItemValidated}
}

// Detached is false: the parsed rows must commit with the lease.
func (h *ParseHandler) Detached() bool { return false }

func (h *ParseHandler) Handle(ctx context.Context, q db.Querier, env outbox.Envelope) HandlerOutcome {
	var payload outbox.InboxItemValidatedPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return Terminal(string(fault.CodeValidation), fmt.Errorf("decode payload: %w", err))
	}

	itemID, err := repository.ParseUUID(payload.InboxItemID)
	if err != nil {
		return Terminal(string(fault.CodeValidation), fmt.Errorf("inbox item id: %w", err))
	}
	item, err := q.GetInboxItem(ctx, db.GetInboxItemParams{ID: itemID, TenantID: env.TenantID})
	if errors.Is(err, pgx.ErrNoRows) {
		return Terminal(string(fault.CodeValidation), fmt.Errorf("inbox item %s not found", payload.InboxItemID))
	}
	if err != nil {
		return Retryable(string(fault.CodeIO), fmt.Errorf("load inbox item: %w", err))
	}

	data, err := h.store.ReadAll(item.Uri)
	if err != nil {
		// A URI the store cannot resolve at all will never start working.
		if errors.Is(err, contentstore.ErrUnsupportedScheme) || errors.Is(err, contentstore.ErrOutsideBase) {
			return h.parseFailure(ctx, q, item, fault.CodeIO, err)
		}
		return Retryable(string(fault.CodeIO), fmt.Errorf("read blob: %w", err))
	}
	if h.maxBytes > 0 && int64(len(data)) > h.maxBytes {
		return h.parseFailure(ctx, q, item, fault.CodeSizeLimit,
			fmt.Errorf("blob is %d bytes, cap is %d", len(data), h.maxBytes))
	}

	kind, ok := parser.KindForMIME(item.Mime)
	if !ok {
		return h.parseFailure(ctx, q, item, fault.CodeUnsupportedMIME,
			fmt.Errorf("no parser for %s", item.Mime))
	}
	pr, _ := parser.ForKind(kind)

	parsed, err := pr.Parse(data)
	if err != nil {
		return h.parseFailure(ctx, q, item, fault.CodeParse, err)
	}
	serialized, err := json.Marshal(parsed)
	if err != nil {
		return h.parseFailure(ctx, q, item, fault.CodeParse, fmt.Errorf("encode parsed payload: %w", err))
	}

	// Seal the ledger only once the fallible reads and the pure parse are
	// behind us: a Retryable outcome above never commits the seal, so the
	// retry really re-runs, and a Terminal one leaves the event replayable.
	// Everything past this point is a write in the lease transaction, and a
	// statement error aborts the whole thing, seal included.
	if env.IdempotencyKey != "" {
		inserted, err := q.InsertProcessedEvent(ctx, db.InsertProcessedEventParams{
			TenantID:       env.TenantID,
			EventType:      env.EventType,
			IdempotencyKey: env.IdempotencyKey,
		})
		if err != nil {
			return Retryable(string(fault.CodeIO), fmt.Errorf("seal ledger: %w", err))
		}
		if !inserted {
			h.logger.Info("event already applied",
				zap.String("event_id", env.ID),
				zap.String("idempotency_key", env.IdempotencyKey),
			)
			return Success()
		}
	}

	parsedID := repository.NewUUID()
	if _, err := q.InsertParsedItem(ctx, db.InsertParsedItemParams{
		ID:          parsedID,
		TenantID:    item.TenantID,
		InboxItemID: item.ID,
		Payload:     serialized,
	}); err != nil {
		return Retryable(string(fault.CodeIO), fmt.Errorf("insert parsed item: %w", err))
	}

	hasChunks := false
	if h.chunkThreshold > 0 && len(serialized) > h.chunkThreshold {
		for _, c := range parser.Split(serialized, h.chunkSize) {
			if err := q.InsertChunk(ctx, db.InsertChunkParams{
				ID:           repository.NewUUID(),
				TenantID:     item.TenantID,
				ParsedItemID: parsedID,
				InboxItemID:  item.ID,
				SeqNo:        c.SeqNo,
				Text:         c.Text,
				TokenCount:   c.TokenCount,
			}); err != nil {
				return Retryable(string(fault.CodeIO), fmt.Errorf("insert chunk %d: %w", c.SeqNo, err))
			}
		}
		hasChunks = true
	}

	if err := q.UpdateInboxItemStatus(ctx, db.UpdateInboxItemStatusParams{
		ID:     item.ID,
		Status: db.InboxStatusParsed,
	}); err != nil {
		return Retryable(string(fault.CodeIO), fmt.Errorf("mark item parsed: %w", err))
	}

	h.logger.Info("item parsed",
		zap.String("inbox_item_id", item.ID.String()),
		zap.String("tenant_id", item.TenantID),
		zap.String("doc_type", parsed.DocType),
		zap.Bool("chunked", hasChunks),
	)

	return Success(outbox.Event{
		TenantID:       item.TenantID,
		Type:           outbox.TypeInboxItemParsed,
		IdempotencyKey: item.ContentHash,
		Payload: outbox.InboxItemParsedPayload{
			InboxItemID:   item.ID.String(),
			ParsedItemID:  parsedID.String(),
			DocType:       parsed.DocType,
			HasChunks:     hasChunks,
			SummaryFields: parsed.Summary(),
		},
	})
}

// parseFailure flips the item to error and builds the terminal outcome; the
// InboxItemParseFailed announcement rides the settlement transaction.
func (h *ParseHandler) parseFailure(ctx context.Context, q db.Querier, item db.InboxItem, code fault.Code, cause error) HandlerOutcome {
	if err := q.UpdateInboxItemStatus(ctx, db.UpdateInboxItemStatusParams{
		ID:     item.ID,
		Status: db.InboxStatusError,
	}); err != nil {
		return Retryable(string(fault.CodeIO), fmt.Errorf("mark item errored: %w", err))
	}
	h.logger.Warn("parse failed",
		zap.String("inbox_item_id", item.ID.String()),
		zap.String("tenant_id", item.TenantID),
		zap.String("error_class", string(code)),
		zap.Error(cause),
	)
	return Terminal(string(code), cause).WithFollowOns(outbox.Event{
		TenantID:       item.TenantID,
		Type:           outbox.TypeInboxItemParseFailed,
		IdempotencyKey: item.ContentHash,
		Payload: outbox.InboxItemParseFailedPayload{
			InboxItemID: item.ID.String(),
			Reason:      cause.Error(),
			ErrorClass:  string(code),
			Retriable:   false,
		},
	})
}
