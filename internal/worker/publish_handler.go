package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/docflow-io/docflow/internal/dispatcher"
	"github.com/docflow-io/docflow/internal/fault"
	"github.com/docflow-io/docflow/internal/outbox"
	db "github.com/docflow-io/docflow/internal/repository/db"
)

// PublishHandler forwards announce-topic envelopes to the configured
// transport. It deliberately skips the processed-event ledger: publish is
// at-least-once, and receivers de-duplicate on the envelope's idempotency
// key.
type PublishHandler struct {
	transport dispatcher.Transport
	logger    *zap.Logger
}

func NewPublishHandler(transport dispatcher.Transport, logger *zap.Logger) *PublishHandler {
	return &PublishHandler{transport: transport, logger: logger}
}

func (h *PublishHandler) EventTypes() []string {
	return []string{
		outbox.TypeInboxItemParsed,
		outbox.TypeInboxItemParseFailed,
		outbox.TypeInboxItemAnalysisReady,
	}
}

// Detached is true: the transport call can block for the full request
// timeout, and holding the lease transaction open across it would pin a pool
// connection per in-flight delivery.
func (h *PublishHandler) Detached() bool { return true }

func (h *PublishHandler) Handle(ctx context.Context, _ db.Querier, env outbox.Envelope) HandlerOutcome {
	if err := h.transport.Deliver(ctx, env); err != nil {
		var de *dispatcher.Error
		if errors.As(err, &de) {
			if de.Retriable {
				return Retryable(de.Reason, err)
			}
			return Terminal(de.Reason, err)
		}
		return Retryable(string(fault.CodeIO), err)
	}
	h.logger.Debug("event published",
		zap.String("event_id", env.ID),
		zap.String("event_type", env.EventType),
		zap.String("transport", h.transport.Name()),
	)
	return Success()
}
