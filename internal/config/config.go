// Package config loads the immutable process configuration.
//
// All options come from the environment (viper binding, no config files);
// secrets may additionally be overlaid from Vault KV v2 when VAULT_ADDR is
// set. The resulting Config is constructed once in main and passed explicitly
// to every component; nothing mutates it after startup.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	TransportStdout  = "stdout"
	TransportWebhook = "webhook"
)

// Config is the full option set recognized by the api server and the two
// worker binaries. Fields are grouped by the component that consumes them.
type Config struct {
	Env         string
	LogLevel    string
	HTTPAddr    string
	DatabaseURL string

	// Ingest limits.
	MaxUploadBytes int64
	MIMEAllowlist  map[string]struct{}

	// Parse handler.
	ParserMaxBytes      int64
	ChunkThresholdBytes int
	ChunkSizeBytes      int

	// Worker loops.
	Worker  WorkerConfig
	Publish WorkerConfig

	// Publish transport.
	Transport string
	Webhook   WebhookConfig

	// Remote-URL ingestion.
	Fetch FetchConfig

	// Drop-directory connector (disabled when Dir is empty).
	DropDir         string
	DropDirInterval time.Duration

	// Tenant allowlist.
	TenantAllowlist        []string
	TenantAllowlistPath    string
	TenantAllowlistRefresh time.Duration

	// Content store.
	StorageBackend string
	StorageBaseURI string

	// Read-model cursors.
	CursorSecret string

	// Retention sweeper.
	RetentionCron       string
	RetentionSentDays   int
	RetentionLedgerDays int

	// Telemetry (tracing and metrics are off when the endpoint is empty).
	OTLPEndpoint string
}

// WorkerConfig tunes one lease loop.
type WorkerConfig struct {
	BatchSize    int32
	PollInterval time.Duration
	BackoffSteps []time.Duration
	RetryMax     int32
}

// WebhookConfig configures the webhook transport.
type WebhookConfig struct {
	URL             string
	Timeout         time.Duration
	SuccessCodes    SuccessCodes
	Headers         map[string]string
	DomainAllowlist []string
	Secret          string
}

// FetchConfig bounds outbound URL ingestion.
type FetchConfig struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	RedirectLimit  int
	URLAllowlist   []string
	URLDenylist    []string
}

const defaultMIMEAllowlist = "application/pdf,image/png,image/jpeg," +
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet," +
	"application/json,application/xml,text/csv"

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")

	v.SetDefault("MAX_UPLOAD_MB", 25)
	v.SetDefault("MIME_ALLOWLIST", defaultMIMEAllowlist)

	v.SetDefault("PARSER_MAX_BYTES", 25*1024*1024)
	v.SetDefault("PARSER_CHUNK_THRESHOLD_BYTES", 16*1024)
	v.SetDefault("PARSER_CHUNK_SIZE_BYTES", 4*1024)

	v.SetDefault("WORKER_BATCH_SIZE", 10)
	v.SetDefault("WORKER_POLL_INTERVAL_MS", 1000)
	v.SetDefault("PARSER_BACKOFF_STEPS", "5,30,300")
	v.SetDefault("PARSER_RETRY_MAX", 3)

	v.SetDefault("PUBLISH_TRANSPORT", TransportStdout)
	v.SetDefault("PUBLISH_BATCH_SIZE", 20)
	v.SetDefault("PUBLISH_POLL_INTERVAL_MS", 1000)
	v.SetDefault("PUBLISH_BACKOFF_STEPS", "5,30,300")
	v.SetDefault("PUBLISH_RETRY_MAX", 5)

	v.SetDefault("WEBHOOK_URL", "")
	v.SetDefault("WEBHOOK_TIMEOUT_MS", 10000)
	v.SetDefault("WEBHOOK_SUCCESS_CODES", "200-299")
	v.SetDefault("WEBHOOK_HEADERS_ALLOWLIST", "")
	v.SetDefault("WEBHOOK_DOMAIN_ALLOWLIST", "")
	v.SetDefault("WEBHOOK_SECRET", "")

	v.SetDefault("INGEST_TIMEOUT_CONNECT_MS", 3000)
	v.SetDefault("INGEST_TIMEOUT_READ_MS", 10000)
	v.SetDefault("INGEST_REDIRECT_LIMIT", 3)
	v.SetDefault("INGEST_URL_ALLOWLIST", "")
	v.SetDefault("INGEST_URL_DENYLIST", "")
	v.SetDefault("INGEST_DROPDIR", "")
	v.SetDefault("INGEST_DROPDIR_INTERVAL_MS", 10000)

	v.SetDefault("TENANT_ALLOWLIST", "")
	v.SetDefault("TENANT_ALLOWLIST_PATH", "")
	v.SetDefault("TENANT_ALLOWLIST_REFRESH_SEC", 30)

	v.SetDefault("STORAGE_BACKEND", "file")
	v.SetDefault("STORAGE_BASE_URI", "file:///var/lib/docflow/content")

	v.SetDefault("CURSOR_SECRET", "")

	v.SetDefault("RETENTION_CRON", "@hourly")
	v.SetDefault("RETENTION_SENT_DAYS", 7)
	v.SetDefault("RETENTION_LEDGER_DAYS", 30)

	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
}

// Load reads the environment, applies the Vault overlay when configured, and
// returns the assembled Config. Grammar errors in list-valued options (backoff
// steps, success codes, headers) fail loudly here rather than at first use.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if err := overlayVaultSecrets(v); err != nil {
		return nil, fmt.Errorf("vault overlay: %w", err)
	}

	workerSteps, err := parseBackoffSteps(v.GetString("PARSER_BACKOFF_STEPS"))
	if err != nil {
		return nil, fmt.Errorf("PARSER_BACKOFF_STEPS: %w", err)
	}
	publishSteps, err := parseBackoffSteps(v.GetString("PUBLISH_BACKOFF_STEPS"))
	if err != nil {
		return nil, fmt.Errorf("PUBLISH_BACKOFF_STEPS: %w", err)
	}
	successCodes, err := ParseSuccessCodes(v.GetString("WEBHOOK_SUCCESS_CODES"))
	if err != nil {
		return nil, fmt.Errorf("WEBHOOK_SUCCESS_CODES: %w", err)
	}
	headers, err := parseHeaderList(v.GetString("WEBHOOK_HEADERS_ALLOWLIST"))
	if err != nil {
		return nil, fmt.Errorf("WEBHOOK_HEADERS_ALLOWLIST: %w", err)
	}

	cfg := &Config{
		Env:         v.GetString("ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		HTTPAddr:    v.GetString("HTTP_ADDR"),
		DatabaseURL: v.GetString("DATABASE_URL"),

		MaxUploadBytes: int64(v.GetInt("MAX_UPLOAD_MB")) * 1024 * 1024,
		MIMEAllowlist:  toSet(splitList(v.GetString("MIME_ALLOWLIST"))),

		ParserMaxBytes:      v.GetInt64("PARSER_MAX_BYTES"),
		ChunkThresholdBytes: v.GetInt("PARSER_CHUNK_THRESHOLD_BYTES"),
		ChunkSizeBytes:      v.GetInt("PARSER_CHUNK_SIZE_BYTES"),

		Worker: WorkerConfig{
			BatchSize:    v.GetInt32("WORKER_BATCH_SIZE"),
			PollInterval: time.Duration(v.GetInt("WORKER_POLL_INTERVAL_MS")) * time.Millisecond,
			BackoffSteps: workerSteps,
			RetryMax:     v.GetInt32("PARSER_RETRY_MAX"),
		},
		Publish: WorkerConfig{
			BatchSize:    v.GetInt32("PUBLISH_BATCH_SIZE"),
			PollInterval: time.Duration(v.GetInt("PUBLISH_POLL_INTERVAL_MS")) * time.Millisecond,
			BackoffSteps: publishSteps,
			RetryMax:     v.GetInt32("PUBLISH_RETRY_MAX"),
		},

		Transport: v.GetString("PUBLISH_TRANSPORT"),
		Webhook: WebhookConfig{
			URL:             v.GetString("WEBHOOK_URL"),
			Timeout:         time.Duration(v.GetInt("WEBHOOK_TIMEOUT_MS")) * time.Millisecond,
			SuccessCodes:    successCodes,
			Headers:         headers,
			DomainAllowlist: splitList(v.GetString("WEBHOOK_DOMAIN_ALLOWLIST")),
			Secret:          v.GetString("WEBHOOK_SECRET"),
		},

		Fetch: FetchConfig{
			ConnectTimeout: time.Duration(v.GetInt("INGEST_TIMEOUT_CONNECT_MS")) * time.Millisecond,
			ReadTimeout:    time.Duration(v.GetInt("INGEST_TIMEOUT_READ_MS")) * time.Millisecond,
			RedirectLimit:  v.GetInt("INGEST_REDIRECT_LIMIT"),
			URLAllowlist:   splitList(v.GetString("INGEST_URL_ALLOWLIST")),
			URLDenylist:    splitList(v.GetString("INGEST_URL_DENYLIST")),
		},

		DropDir:         v.GetString("INGEST_DROPDIR"),
		DropDirInterval: time.Duration(v.GetInt("INGEST_DROPDIR_INTERVAL_MS")) * time.Millisecond,

		TenantAllowlist:        splitList(v.GetString("TENANT_ALLOWLIST")),
		TenantAllowlistPath:    v.GetString("TENANT_ALLOWLIST_PATH"),
		TenantAllowlistRefresh: time.Duration(v.GetInt("TENANT_ALLOWLIST_REFRESH_SEC")) * time.Second,

		StorageBackend: v.GetString("STORAGE_BACKEND"),
		StorageBaseURI: v.GetString("STORAGE_BASE_URI"),

		CursorSecret: v.GetString("CURSOR_SECRET"),

		RetentionCron:       v.GetString("RETENTION_CRON"),
		RetentionSentDays:   v.GetInt("RETENTION_SENT_DAYS"),
		RetentionLedgerDays: v.GetInt("RETENTION_LEDGER_DAYS"),

		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the process runs with development defaults
// (verbose logging, empty-allowlist tenant bypass).
func (c *Config) IsDevelopment() bool { return c.Env == "development" }

// MIMEAllowed reports whether a detected MIME type is admissible.
func (c *Config) MIMEAllowed(mime string) bool {
	_, ok := c.MIMEAllowlist[mime]
	return ok
}

func (c *Config) validate() error {
	switch c.Transport {
	case TransportStdout, TransportWebhook:
	default:
		return fmt.Errorf("PUBLISH_TRANSPORT must be %q or %q, got %q",
			TransportStdout, TransportWebhook, c.Transport)
	}
	if c.StorageBackend != "file" {
		return fmt.Errorf("STORAGE_BACKEND: only \"file\" is supported, got %q", c.StorageBackend)
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_MB must be positive")
	}
	return nil
}

// RequireDatabase returns an error when no database URL is configured.
// Callers treat it as fatal (exit 1).
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}

// RequireTransport returns an error when the publish transport is not fully
// configured: the webhook transport needs a URL.
func (c *Config) RequireTransport() error {
	if c.Transport == TransportWebhook && c.Webhook.URL == "" {
		return errors.New("WEBHOOK_URL is required when PUBLISH_TRANSPORT=webhook")
	}
	return nil
}

// RequireCursorSecret enforces a non-empty signing key outside development.
func (c *Config) RequireCursorSecret() error {
	if c.CursorSecret == "" && !c.IsDevelopment() {
		return errors.New("CURSOR_SECRET is required in production")
	}
	return nil
}

// ── option grammars ────────────────────────────────────────────────────────

// parseBackoffSteps parses an ordered comma-separated list of retry delays in
// seconds, e.g. "5,30,300". Zero is allowed (immediate retry); negatives and
// empty lists are not.
func parseBackoffSteps(s string) ([]time.Duration, error) {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil, errors.New("at least one backoff step is required")
	}
	steps := make([]time.Duration, 0, len(parts))
	for _, p := range parts {
		secs, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid step %q", p)
		}
		if secs < 0 {
			return nil, fmt.Errorf("negative step %q", p)
		}
		steps = append(steps, time.Duration(secs)*time.Second)
	}
	return steps, nil
}

// SuccessCodes is a set of HTTP status codes expressed as ranges and single
// values, e.g. "200-299,304".
type SuccessCodes struct {
	ranges []codeRange
}

type codeRange struct{ lo, hi int }

// ParseSuccessCodes parses the range/list grammar. Single values are ranges
// of length one; bounds are inclusive.
func ParseSuccessCodes(s string) (SuccessCodes, error) {
	var sc SuccessCodes
	for _, part := range splitList(s) {
		lo, hi, ok := strings.Cut(part, "-")
		loN, err := strconv.Atoi(lo)
		if err != nil {
			return SuccessCodes{}, fmt.Errorf("invalid status code %q", part)
		}
		hiN := loN
		if ok {
			hiN, err = strconv.Atoi(hi)
			if err != nil {
				return SuccessCodes{}, fmt.Errorf("invalid status range %q", part)
			}
		}
		if loN < 100 || hiN > 599 || hiN < loN {
			return SuccessCodes{}, fmt.Errorf("status range %q out of bounds", part)
		}
		sc.ranges = append(sc.ranges, codeRange{lo: loN, hi: hiN})
	}
	if len(sc.ranges) == 0 {
		return SuccessCodes{}, errors.New("at least one status code is required")
	}
	return sc, nil
}

// Contains reports whether code falls in any configured range.
func (sc SuccessCodes) Contains(code int) bool {
	for _, r := range sc.ranges {
		if code >= r.lo && code <= r.hi {
			return true
		}
	}
	return false
}

func (sc SuccessCodes) String() string {
	parts := make([]string, 0, len(sc.ranges))
	for _, r := range sc.ranges {
		if r.lo == r.hi {
			parts = append(parts, strconv.Itoa(r.lo))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", r.lo, r.hi))
		}
	}
	return strings.Join(parts, ",")
}

// parseHeaderList parses "Key=Value,Key2=Value2". Keys keep their canonical
// MIME header casing; the forbidden-key strip happens at dispatch time so the
// config layer stays policy-free.
func parseHeaderList(s string) (map[string]string, error) {
	headers := make(map[string]string)
	for _, part := range splitList(s) {
		k, val, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid header entry %q, want key=value", part)
		}
		headers[strings.TrimSpace(k)] = strings.TrimSpace(val)
	}
	return headers, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

// SortedMIMEs returns the allowlist in stable order, for logs.
func (c *Config) SortedMIMEs() []string {
	out := make([]string, 0, len(c.MIMEAllowlist))
	for m := range c.MIMEAllowlist {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
