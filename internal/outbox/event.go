// Package outbox defines the domain events carried on the table-as-bus and
// the Enqueuer that writes them inside the caller's transaction.
//
// There are no secondary queues: producers enqueue into event_outbox in the
// same transaction as the business mutation, and the worker loops lease from
// the same table. The envelope here is both the column shape and the wire
// shape delivered to sinks.
package outbox

import (
	"encoding/json"
	"time"
)

// Known event types.
const (
	TypeInboxItemValidated     = "InboxItemValidated"
	TypeInboxItemParsed        = "InboxItemParsed"
	TypeInboxItemParseFailed   = "InboxItemParseFailed"
	TypeInboxItemAnalysisReady = "InboxItemAnalysisReady"
)

// SchemaVersion is the current envelope schema.
const SchemaVersion int32 = 1

// Event is one domain event before it hits the bus. Payload must marshal to
// a JSON object.
type Event struct {
	TenantID string
	Type     string
	// IdempotencyKey dedupes enqueues per (tenant, type, key); empty means
	// no dedup constraint.
	IdempotencyKey string
	Payload        interface{}
	// Delay pushes next_attempt_at into the future; zero means due now.
	Delay time.Duration
}

// InboxItemValidatedPayload announces a freshly ingested item to the parse
// worker.
type InboxItemValidatedPayload struct {
	InboxItemID string `json:"inbox_item_id"`
	ContentHash string `json:"content_hash"`
	URI         string `json:"uri"`
	Source      string `json:"source"`
	Filename    string `json:"filename,omitempty"`
	MIME        string `json:"mime"`
}

// InboxItemParsedPayload announces a successful parse.
type InboxItemParsedPayload struct {
	InboxItemID   string                 `json:"inbox_item_id"`
	ParsedItemID  string                 `json:"parsed_item_id"`
	DocType       string                 `json:"doc_type"`
	HasChunks     bool                   `json:"has_chunks"`
	SummaryFields map[string]interface{} `json:"summary_fields,omitempty"`
}

// InboxItemParseFailedPayload announces a terminal parse failure.
type InboxItemParseFailedPayload struct {
	InboxItemID string `json:"inbox_item_id"`
	Reason      string `json:"reason"`
	ErrorClass  string `json:"error_class"`
	Retriable   bool   `json:"retriable"`
}

// InboxItemAnalysisReadyPayload carries the artifact written by an external
// analysis planner. The pipeline only publishes it; nothing in this module
// produces it.
type InboxItemAnalysisReadyPayload struct {
	InboxItemID  string `json:"inbox_item_id"`
	ArtifactPath string `json:"artifact_path"`
}

// Envelope is the wire shape of one event as delivered to sinks and as
// retained for a dead letter.
type Envelope struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"tenant_id"`
	EventType      string          `json:"event_type"`
	SchemaVersion  int32           `json:"schema_version"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	TraceID        string          `json:"trace_id,omitempty"`
	Payload        json.RawMessage `json:"payload"`
}
