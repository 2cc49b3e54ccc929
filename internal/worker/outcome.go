// Package worker runs the lease/settle loop over the event_outbox bus.
//
// A Runner polls for due pending events, leases each with a conditional
// update inside its own transaction, hands the envelope to a Handler, then
// settles: sent on success, pending with backoff on a retriable failure,
// failed plus a dead-letter row when the failure is terminal or the retry
// budget is spent. Handlers describe what happened; the Runner is the only
// writer of status transitions and dead letters.
package worker

import (
	"github.com/docflow-io/docflow/internal/outbox"
)

type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeRetry
	outcomeTerminal
)

// HandlerOutcome is a handler's verdict for one leased event.
type HandlerOutcome struct {
	kind      outcomeKind
	reason    string
	cause     error
	followOns []outbox.Event
}

// Success settles the event as sent. Follow-on events are enqueued in the
// same transaction.
func Success(followOns ...outbox.Event) HandlerOutcome {
	return HandlerOutcome{kind: outcomeSuccess, followOns: followOns}
}

// Retryable asks for a reschedule with backoff. The reason is the machine
// token recorded on the dead letter if this failure exhausts the retry
// budget.
func Retryable(reason string, cause error) HandlerOutcome {
	return HandlerOutcome{kind: outcomeRetry, reason: reason, cause: cause}
}

// Terminal dead-letters the event immediately. The reason lands verbatim on
// the dead-letter row; fault codes are the usual vocabulary.
func Terminal(reason string, cause error) HandlerOutcome {
	return HandlerOutcome{kind: outcomeTerminal, reason: reason, cause: cause}
}

// WithFollowOns attaches events to enqueue during settlement. On terminal
// outcomes this is how failure announcements ride the same transaction as
// the dead letter.
func (o HandlerOutcome) WithFollowOns(evts ...outbox.Event) HandlerOutcome {
	o.followOns = append(o.followOns, evts...)
	return o
}
