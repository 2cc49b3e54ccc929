package dispatcher

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docflow-io/docflow/internal/config"
	"github.com/docflow-io/docflow/internal/fault"
	"github.com/docflow-io/docflow/internal/fetch"
	"github.com/docflow-io/docflow/internal/outbox"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body when a
// webhook secret is configured.
const SignatureHeader = "X-Docflow-Signature"

const (
	defaultWebhookTimeout = 10 * time.Second
	maxResponseDrain      = 64 << 10
)

// Credential-bearing headers are never forwarded to the sink, whatever the
// operator puts in WEBHOOK_HEADERS.
var forbiddenHeaders = []string{"Authorization", "Cookie", "Set-Cookie"}

// WebhookTransport POSTs envelopes to a fixed operator-configured URL. The
// URL passes the same outbound-safety policy as remote ingestion, checked
// once at construction and again on every delivery so DNS changes cannot
// steer traffic somewhere private.
type WebhookTransport struct {
	url     string
	secret  string
	headers map[string]string
	success config.SuccessCodes
	policy  *fetch.Policy
	client  *http.Client
	logger  *zap.Logger
}

// NewWebhookTransport validates the sink URL against policy and strips
// forbidden headers. Configuration problems are returned as errors so the
// caller can fail startup.
func NewWebhookTransport(cfg config.WebhookConfig, policy *fetch.Policy, logger *zap.Logger) (*WebhookTransport, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook transport requires a url")
	}
	if _, err := policy.EnsureURLAllowed(cfg.URL); err != nil {
		return nil, fmt.Errorf("webhook url rejected by policy: %w", err)
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		if isForbiddenHeader(k) {
			logger.Warn("dropping forbidden webhook header", zap.String("header", k))
			continue
		}
		headers[k] = v
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookTransport{
		url:     cfg.URL,
		secret:  cfg.Secret,
		headers: headers,
		success: cfg.SuccessCodes,
		policy:  policy,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

func (t *WebhookTransport) Name() string { return config.TransportWebhook }

// Deliver POSTs env as JSON. A status outside the configured success set is
// a failure with reason "http_<code>": retriable for 5xx and 429, terminal
// otherwise.
func (t *WebhookTransport) Deliver(ctx context.Context, env outbox.Envelope) error {
	u, err := t.policy.EnsureURLAllowed(t.url)
	if err != nil {
		return policyError(err)
	}
	if err := t.policy.ResolveAndCheck(ctx, u.Hostname()); err != nil {
		return policyError(err)
	}

	body, err := json.Marshal(env)
	if err != nil {
		return &Error{Reason: "encode_envelope", Retriable: false, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return &Error{Reason: string(fault.CodeValidation), Retriable: false, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	if t.secret != "" {
		req.Header.Set(SignatureHeader, computeHMAC(t.secret, body))
	}

	resp, err := t.client.Do(req)
	if err != nil {
		reason, retriable := classifyTransportErr(err)
		t.logger.Warn("webhook delivery failed",
			zap.String("event_id", env.ID),
			zap.String("event_type", env.EventType),
			zap.Error(err),
		)
		return &Error{Reason: reason, Retriable: retriable, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseDrain)) //nolint:errcheck

	if !t.success.Contains(resp.StatusCode) {
		t.logger.Warn("webhook non-success response",
			zap.String("event_id", env.ID),
			zap.String("event_type", env.EventType),
			zap.Int("status", resp.StatusCode),
		)
		return &Error{
			Reason:    fmt.Sprintf("http_%d", resp.StatusCode),
			Retriable: resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		}
	}

	t.logger.Debug("webhook delivered",
		zap.String("event_id", env.ID),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}

func isForbiddenHeader(name string) bool {
	for _, h := range forbiddenHeaders {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return false
}

func classifyTransportErr(err error) (reason string, retriable bool) {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return string(fault.CodeRemoteTimeout), true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return string(fault.CodeRemoteTimeout), true
	}
	return string(fault.CodeIO), true
}

// computeHMAC generates a hex-encoded HMAC-SHA256 of the body using the given secret.
func computeHMAC(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
