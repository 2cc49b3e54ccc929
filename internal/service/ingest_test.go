package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/docflow-io/docflow/internal/config"
	"github.com/docflow-io/docflow/internal/contentstore"
	"github.com/docflow-io/docflow/internal/fault"
	"github.com/docflow-io/docflow/internal/fetch"
	"github.com/docflow-io/docflow/internal/mimetype"
	"github.com/docflow-io/docflow/internal/outbox"
	db "github.com/docflow-io/docflow/internal/repository/db"
	"github.com/docflow-io/docflow/internal/tenant"
)

var testPDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n" +
	"Invoice No: INV-2044\nAmount: 1250.00\n%%EOF\n")

func testConfig() *config.Config {
	return &config.Config{
		MaxUploadBytes: 1 << 20,
		MIMEAllowlist: map[string]struct{}{
			mimetype.PDF:  {},
			mimetype.PNG:  {},
			mimetype.JPEG: {},
			mimetype.XLSX: {},
			mimetype.JSON: {},
			mimetype.XML:  {},
			mimetype.CSV:  {},
		},
	}
}

func newIngest(t *testing.T, cfg *config.Config, q *mockQuerier, fetcher *fetch.Client) IngestService {
	t.Helper()
	store, err := contentstore.New("file://" + t.TempDir())
	require.NoError(t, err)
	validator, err := tenant.NewValidator(tenant.Config{Inline: []string{testTenant}}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return NewIngestService(cfg, stubTx{q: q}, store, validator, fetcher, nil, zaptest.NewLogger(t))
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestIngestNewItem(t *testing.T) {
	var (
		itemParams   db.InsertInboxItemParams
		outboxParams db.InsertOutboxEventParams
	)
	q := &mockQuerier{
		insertInboxItemFn: func(_ context.Context, arg db.InsertInboxItemParams) (db.InsertInboxItemRow, error) {
			itemParams = arg
			return echoInboxRow(arg, true), nil
		},
		insertOutboxFn: func(_ context.Context, arg db.InsertOutboxEventParams) (bool, error) {
			outboxParams = arg
			return true, nil
		},
	}
	svc := newIngest(t, testConfig(), q, nil)

	res, err := svc.Ingest(context.Background(), IngestInput{
		TenantID: testTenant,
		Source:   SourceUpload,
		Filename: "invoice.pdf",
		Data:     testPDF,
	})
	require.NoError(t, err)
	require.False(t, res.Duplicate)

	wantHash := sha256Hex(testPDF)
	assert.Equal(t, db.InboxStatusValidated, itemParams.Status)
	assert.Equal(t, wantHash, itemParams.ContentHash)
	assert.Equal(t, mimetype.PDF, itemParams.Mime)
	assert.Equal(t, "invoice.pdf", itemParams.Filename.String)
	assert.Equal(t, SourceUpload, itemParams.Source)

	assert.Equal(t, outbox.TypeInboxItemValidated, outboxParams.EventType)
	assert.Equal(t, wantHash, outboxParams.IdempotencyKey.String)

	var payload outbox.InboxItemValidatedPayload
	require.NoError(t, json.Unmarshal(outboxParams.Payload, &payload))
	assert.Equal(t, res.Item.ID.String(), payload.InboxItemID)
	assert.Equal(t, wantHash, payload.ContentHash)
	assert.Equal(t, itemParams.Uri, payload.URI)
	assert.Equal(t, mimetype.PDF, payload.MIME)

	// The blob landed in the content store under the returned URI.
	require.True(t, strings.HasPrefix(itemParams.Uri, "file://"))
	raw, err := os.ReadFile(strings.TrimPrefix(itemParams.Uri, "file://"))
	require.NoError(t, err)
	assert.Equal(t, testPDF, raw)
}

func TestIngestUsesCallerIdempotencyKey(t *testing.T) {
	var outboxParams db.InsertOutboxEventParams
	q := &mockQuerier{
		insertOutboxFn: func(_ context.Context, arg db.InsertOutboxEventParams) (bool, error) {
			outboxParams = arg
			return true, nil
		},
	}
	svc := newIngest(t, testConfig(), q, nil)

	_, err := svc.Ingest(context.Background(), IngestInput{
		TenantID:       testTenant,
		Source:         SourceUpload,
		IdempotencyKey: "submit-42",
		Data:           testPDF,
	})
	require.NoError(t, err)
	assert.Equal(t, "submit-42", outboxParams.IdempotencyKey.String)
}

func TestIngestDuplicateSkipsEvent(t *testing.T) {
	eventEnqueued := false
	q := &mockQuerier{
		insertInboxItemFn: func(_ context.Context, arg db.InsertInboxItemParams) (db.InsertInboxItemRow, error) {
			return echoInboxRow(arg, false), nil
		},
		insertOutboxFn: func(_ context.Context, _ db.InsertOutboxEventParams) (bool, error) {
			eventEnqueued = true
			return true, nil
		},
	}
	svc := newIngest(t, testConfig(), q, nil)

	res, err := svc.Ingest(context.Background(), IngestInput{
		TenantID: testTenant,
		Source:   SourceUpload,
		Data:     testPDF,
	})
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.False(t, eventEnqueued, "a deduplicated submission must not enqueue a second event")
}

func TestIngestTenantGate(t *testing.T) {
	tests := []struct {
		name     string
		tenantID string
		want     fault.Code
	}{
		{name: "missing", tenantID: "", want: fault.CodeTenantMissing},
		{name: "malformed", tenantID: "not a tenant!", want: fault.CodeTenantMalformed},
		{name: "unknown", tenantID: "ghost", want: fault.CodeTenantUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inserted := false
			q := &mockQuerier{
				insertInboxItemFn: func(_ context.Context, arg db.InsertInboxItemParams) (db.InsertInboxItemRow, error) {
					inserted = true
					return echoInboxRow(arg, true), nil
				},
			}
			svc := newIngest(t, testConfig(), q, nil)

			_, err := svc.Ingest(context.Background(), IngestInput{
				TenantID: tt.tenantID,
				Source:   SourceUpload,
				Data:     testPDF,
			})
			require.Error(t, err)
			assert.Equal(t, tt.want, fault.CodeOf(err))
			assert.False(t, inserted)
		})
	}
}

func TestIngestSizeBoundary(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = int64(len(testPDF))
	svc := newIngest(t, cfg, &mockQuerier{}, nil)

	// Exactly at the cap is accepted.
	_, err := svc.Ingest(context.Background(), IngestInput{
		TenantID: testTenant,
		Source:   SourceUpload,
		Data:     testPDF,
	})
	require.NoError(t, err)

	// One byte over is rejected.
	over := append(append([]byte{}, testPDF...), '\n')
	_, err = svc.Ingest(context.Background(), IngestInput{
		TenantID: testTenant,
		Source:   SourceUpload,
		Data:     over,
	})
	require.Error(t, err)
	assert.Equal(t, fault.CodeSizeLimit, fault.CodeOf(err))
}

func TestIngestRejectsUnsupportedMIME(t *testing.T) {
	svc := newIngest(t, testConfig(), &mockQuerier{}, nil)

	// A plain zip archive is detectable but not allowlisted.
	zipBytes := append([]byte{'P', 'K', 0x03, 0x04}, bytes.Repeat([]byte{0}, 64)...)
	_, err := svc.Ingest(context.Background(), IngestInput{
		TenantID: testTenant,
		Source:   SourceUpload,
		Filename: "archive.zip",
		Data:     zipBytes,
	})
	require.Error(t, err)
	assert.Equal(t, fault.CodeUnsupportedMIME, fault.CodeOf(err))
}

func TestIngestRejectsEmptyBody(t *testing.T) {
	svc := newIngest(t, testConfig(), &mockQuerier{}, nil)

	_, err := svc.Ingest(context.Background(), IngestInput{
		TenantID: testTenant,
		Source:   SourceUpload,
	})
	require.Error(t, err)
	assert.Equal(t, fault.CodeValidation, fault.CodeOf(err))
}

// ── remote-URL ingestion ───────────────────────────────────────────────────

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func publicLookup(_ context.Context, _ string) ([]net.IP, error) {
	return []net.IP{net.ParseIP("93.184.216.34")}, nil
}

func stubFetcher(t *testing.T, rt http.RoundTripper) *fetch.Client {
	t.Helper()
	policy := fetch.NewPolicyWithLookup([]string{"files.example.com"}, nil, publicLookup)
	return fetch.NewClient(policy, fetch.Options{
		ConnectTimeout: time.Second,
		ReadTimeout:    2 * time.Second,
		RedirectLimit:  3,
		MaxBytes:       1 << 20,
		Transport:      rt,
	}, zaptest.NewLogger(t))
}

func TestIngestFromURL(t *testing.T) {
	fetcher := stubFetcher(t, roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "files.example.com", req.URL.Host)
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(testPDF)),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	}))

	var itemParams db.InsertInboxItemParams
	q := &mockQuerier{
		insertInboxItemFn: func(_ context.Context, arg db.InsertInboxItemParams) (db.InsertInboxItemRow, error) {
			itemParams = arg
			return echoInboxRow(arg, true), nil
		},
	}
	svc := newIngest(t, testConfig(), q, fetcher)

	res, err := svc.IngestFromURL(context.Background(), FetchInput{
		TenantID: testTenant,
		URL:      "https://files.example.com/docs/invoice.pdf",
	})
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, SourceURL, itemParams.Source)
	assert.Equal(t, "invoice.pdf", itemParams.Filename.String)
	assert.Equal(t, sha256Hex(testPDF), itemParams.ContentHash)
}

func TestIngestFromURLRejectsForbiddenHost(t *testing.T) {
	// Off-allowlist host fails policy before any request is sent.
	called := false
	fetcher := stubFetcher(t, roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		called = true
		return nil, nil
	}))
	svc := newIngest(t, testConfig(), &mockQuerier{}, fetcher)

	_, err := svc.IngestFromURL(context.Background(), FetchInput{
		TenantID: testTenant,
		URL:      "https://evil.example.net/doc.pdf",
	})
	require.Error(t, err)
	assert.Equal(t, fault.CodeForbiddenAddress, fault.CodeOf(err))
	assert.False(t, called)
}

func TestIngestFromURLRequiresConfiguration(t *testing.T) {
	svc := newIngest(t, testConfig(), &mockQuerier{}, nil)

	_, err := svc.IngestFromURL(context.Background(), FetchInput{
		TenantID: testTenant,
		URL:      "https://files.example.com/doc.pdf",
	})
	require.Error(t, err)
	assert.Equal(t, fault.CodeValidation, fault.CodeOf(err))
}
