// Package dispatcher delivers outbox envelopes to the configured transport.
//
// Transports report failures as *Error values carrying a short machine
// reason (recorded verbatim on retry and dead-letter rows) and a retriable
// flag the publish worker uses to choose between backoff and dead-lettering.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/docflow-io/docflow/internal/config"
	"github.com/docflow-io/docflow/internal/fault"
	"github.com/docflow-io/docflow/internal/outbox"
)

// Transport delivers one envelope to a sink.
type Transport interface {
	// Name identifies the transport in logs and stats.
	Name() string
	// Deliver sends the envelope. Failures are *Error values.
	Deliver(ctx context.Context, env outbox.Envelope) error
}

// Error classifies a failed delivery.
type Error struct {
	// Reason is a short machine token, e.g. "http_503" or "remote_timeout".
	Reason    string
	Retriable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("deliver: %s: %v", e.Reason, e.Err)
	}
	return "deliver: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// policyError converts a fault from the outbound-safety policy into a
// delivery Error keyed by its code.
func policyError(err error) *Error {
	code := fault.CodeOf(err)
	return &Error{Reason: string(code), Retriable: code.Retriable(), Err: err}
}

// StdoutTransport writes each envelope as a single JSON line. It is the
// audit transport for development and for deployments without a webhook
// sink.
type StdoutTransport struct {
	mu  sync.Mutex
	out io.Writer
}

// NewStdoutTransport writes envelopes to out, defaulting to os.Stdout.
func NewStdoutTransport(out io.Writer) *StdoutTransport {
	if out == nil {
		out = os.Stdout
	}
	return &StdoutTransport{out: out}
}

func (t *StdoutTransport) Name() string { return config.TransportStdout }

func (t *StdoutTransport) Deliver(_ context.Context, env outbox.Envelope) error {
	line, err := json.Marshal(env)
	if err != nil {
		return &Error{Reason: "encode_envelope", Retriable: false, Err: err}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.out.Write(append(line, '\n')); err != nil {
		return &Error{Reason: string(fault.CodeIO), Retriable: true, Err: err}
	}
	return nil
}
