package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/docflow-io/docflow/internal/dispatcher"
	"github.com/docflow-io/docflow/internal/fault"
	"github.com/docflow-io/docflow/internal/outbox"
)

type fakeTransport struct {
	err       error
	delivered []outbox.Envelope
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Deliver(_ context.Context, env outbox.Envelope) error {
	f.delivered = append(f.delivered, env)
	return f.err
}

func publishEnvelope() outbox.Envelope {
	return outbox.Envelope{
		ID:             testEventID,
		TenantID:       testTenant,
		EventType:      outbox.TypeInboxItemParsed,
		SchemaVersion:  outbox.SchemaVersion,
		IdempotencyKey: "hash-1",
		Payload:        json.RawMessage(`{"inbox_item_id":"x"}`),
	}
}

func TestPublishHandlerContract(t *testing.T) {
	h := NewPublishHandler(&fakeTransport{}, zaptest.NewLogger(t))
	assert.Equal(t, []string{
		outbox.TypeInboxItemParsed,
		outbox.TypeInboxItemParseFailed,
		outbox.TypeInboxItemAnalysisReady,
	}, h.EventTypes())
	assert.True(t, h.Detached(), "the transport call must not hold the lease transaction")
}

func TestPublishHandlerOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   outcomeKind
		wantReason string
	}{
		{
			name:     "delivered",
			err:      nil,
			wantKind: outcomeSuccess,
		},
		{
			name:       "retriable transport failure",
			err:        &dispatcher.Error{Reason: "http_503", Retriable: true},
			wantKind:   outcomeRetry,
			wantReason: "http_503",
		},
		{
			name:       "terminal transport failure",
			err:        &dispatcher.Error{Reason: "http_404", Retriable: false},
			wantKind:   outcomeTerminal,
			wantReason: "http_404",
		},
		{
			name:       "unclassified error retries as io",
			err:        errors.New("socket closed"),
			wantKind:   outcomeRetry,
			wantReason: string(fault.CodeIO),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := &fakeTransport{err: tc.err}
			h := NewPublishHandler(tr, zaptest.NewLogger(t))

			outcome := h.Handle(context.Background(), &mockQuerier{}, publishEnvelope())

			assert.Equal(t, tc.wantKind, outcome.kind)
			assert.Equal(t, tc.wantReason, outcome.reason)
			require.Len(t, tr.delivered, 1)
			assert.Equal(t, publishEnvelope(), tr.delivered[0])
			assert.Empty(t, outcome.followOns, "publish never fans out")
		})
	}
}
