package connector_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/docflow-io/docflow/internal/config"
	"github.com/docflow-io/docflow/internal/connector"
	"github.com/docflow-io/docflow/internal/fault"
	"github.com/docflow-io/docflow/internal/repository"
	db "github.com/docflow-io/docflow/internal/repository/db"
	"github.com/docflow-io/docflow/internal/service"
	"github.com/docflow-io/docflow/internal/tenant"
)

type fakeIngest struct {
	inputs []service.IngestInput
	err    error
}

func (f *fakeIngest) Ingest(_ context.Context, in service.IngestInput) (*service.IngestResult, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &service.IngestResult{Item: db.InboxItem{ID: repository.NewUUID(), TenantID: in.TenantID}}, nil
}

func (f *fakeIngest) IngestFromURL(_ context.Context, _ service.FetchInput) (*service.IngestResult, error) {
	return nil, errors.New("not used by the poller")
}

func newPoller(t *testing.T, root string, ingest service.IngestService) *connector.Poller {
	t.Helper()
	validator, err := tenant.NewValidator(tenant.Config{Inline: []string{"acme"}}, zaptest.NewLogger(t))
	require.NoError(t, err)
	cfg := &config.Config{DropDir: root, DropDirInterval: 10 * time.Millisecond}
	return connector.NewPoller(cfg, ingest, validator, zaptest.NewLogger(t))
}

func dropFile(t *testing.T, root, tenantID, name string, data []byte) string {
	t.Helper()
	dir := filepath.Join(root, tenantID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestScanIngestsAndMovesToProcessed(t *testing.T) {
	root := t.TempDir()
	dropFile(t, root, "acme", "a.pdf", []byte("%PDF-1.4 a"))
	dropFile(t, root, "acme", "b.pdf", []byte("%PDF-1.4 b"))

	ingest := &fakeIngest{}
	p := newPoller(t, root, ingest)

	n, err := p.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, ingest.inputs, 2)

	for _, in := range ingest.inputs {
		assert.Equal(t, "acme", in.TenantID)
		assert.Equal(t, service.SourceDropDir, in.Source)
		assert.Empty(t, in.IdempotencyKey)
	}

	assert.FileExists(t, filepath.Join(root, ".processed", "acme", "a.pdf"))
	assert.FileExists(t, filepath.Join(root, ".processed", "acme", "b.pdf"))
	assert.NoFileExists(t, filepath.Join(root, "acme", "a.pdf"))

	// A second scan finds nothing new.
	n, err = p.Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestScanSkipsUnknownTenantDirectory(t *testing.T) {
	root := t.TempDir()
	kept := dropFile(t, root, "ghost", "x.pdf", []byte("%PDF-1.4 x"))

	ingest := &fakeIngest{}
	p := newPoller(t, root, ingest)

	n, err := p.Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, ingest.inputs)
	assert.FileExists(t, kept)
}

func TestScanMovesRejectionsToFailed(t *testing.T) {
	root := t.TempDir()
	dropFile(t, root, "acme", "notes.xyz", []byte("not a document"))

	ingest := &fakeIngest{err: fault.New(fault.CodeUnsupportedMIME, "type not allowed")}
	p := newPoller(t, root, ingest)

	_, err := p.Scan(context.Background())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(root, ".failed", "acme", "notes.xyz"))
	assert.NoFileExists(t, filepath.Join(root, "acme", "notes.xyz"))
}

func TestScanLeavesFileOnTransientError(t *testing.T) {
	root := t.TempDir()
	kept := dropFile(t, root, "acme", "a.pdf", []byte("%PDF-1.4 a"))

	ingest := &fakeIngest{err: errors.New("pool timeout")}
	p := newPoller(t, root, ingest)

	_, err := p.Scan(context.Background())
	require.NoError(t, err)

	assert.FileExists(t, kept)
	assert.NoFileExists(t, filepath.Join(root, ".failed", "acme", "a.pdf"))

	// Retries on the next scan.
	ingest.err = nil
	_, err = p.Scan(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, ".processed", "acme", "a.pdf"))
}

func TestScanIgnoresHiddenAndNestedEntries(t *testing.T) {
	root := t.TempDir()
	dropFile(t, root, "acme", ".partial.pdf", []byte("still uploading"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "acme", "nested"), 0o755))

	ingest := &fakeIngest{}
	p := newPoller(t, root, ingest)

	n, err := p.Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, ingest.inputs)
}

func TestScanReportsMissingRoot(t *testing.T) {
	p := newPoller(t, filepath.Join(t.TempDir(), "absent"), &fakeIngest{})
	_, err := p.Scan(context.Background())
	require.Error(t, err)
}
