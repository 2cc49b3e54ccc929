// Package connector feeds the ingest pipeline from a local drop directory.
//
// Layout: {root}/{tenant}/file. Each scan walks the first level of tenant
// directories, ingests every regular file, and moves the file to
// {root}/.processed/{tenant}/ on success or {root}/.failed/{tenant}/ on a
// deterministic rejection. Transient failures leave the file in place for the
// next scan; a file that was ingested but not moved dedupes on its content
// hash the next time around, so the move never needs to be atomic with the
// ingest.
package connector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docflow-io/docflow/internal/config"
	"github.com/docflow-io/docflow/internal/fault"
	"github.com/docflow-io/docflow/internal/service"
	"github.com/docflow-io/docflow/internal/tenant"
)

const (
	processedDir = ".processed"
	failedDir    = ".failed"
)

// Poller scans a drop directory on an interval and submits what it finds.
type Poller struct {
	root      string
	interval  time.Duration
	ingest    service.IngestService
	validator *tenant.Validator
	logger    *zap.Logger
}

// NewPoller builds a Poller over cfg.DropDir. The caller decides whether to
// start it; an empty root is the caller's signal not to.
func NewPoller(cfg *config.Config, ingest service.IngestService, validator *tenant.Validator, logger *zap.Logger) *Poller {
	return &Poller{
		root:      cfg.DropDir,
		interval:  cfg.DropDirInterval,
		ingest:    ingest,
		validator: validator,
		logger:    logger,
	}
}

// Run scans on the configured interval until ctx is cancelled. The first
// scan happens immediately.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("drop-directory poller started",
		zap.String("root", p.root),
		zap.Duration("interval", p.interval),
	)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if _, err := p.Scan(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("drop-directory scan failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			p.logger.Info("drop-directory poller stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Scan walks every tenant directory once and reports how many files it
// picked up. Directories that do not name an allowlisted tenant are skipped
// untouched, so their files survive until the allowlist catches up.
func (p *Poller) Scan(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return 0, fmt.Errorf("read drop root: %w", err)
	}

	picked := 0
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if verdict := p.validator.Validate(entry.Name()); verdict != tenant.VerdictOK {
			p.logger.Warn("skipping non-tenant directory",
				zap.String("dir", entry.Name()),
				zap.String("verdict", verdict.String()),
			)
			continue
		}
		n, err := p.scanTenant(ctx, entry.Name())
		picked += n
		if err != nil {
			return picked, err
		}
	}
	return picked, nil
}

func (p *Poller) scanTenant(ctx context.Context, tenantID string) (int, error) {
	dir := filepath.Join(p.root, tenantID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read tenant dir %s: %w", tenantID, err)
	}

	picked := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return picked, ctx.Err()
		}
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		picked++
		p.processFile(ctx, tenantID, entry.Name())
	}
	return picked, nil
}

// processFile ingests one file and settles it on disk. Errors are logged,
// never returned: one unreadable file must not stall the rest of the scan.
func (p *Poller) processFile(ctx context.Context, tenantID, name string) {
	path := filepath.Join(p.root, tenantID, name)
	data, err := os.ReadFile(path)
	if err != nil {
		p.logger.Error("drop file unreadable",
			zap.String("tenant_id", tenantID),
			zap.String("file", name),
			zap.Error(err),
		)
		return
	}

	res, err := p.ingest.Ingest(ctx, service.IngestInput{
		TenantID: tenantID,
		Source:   service.SourceDropDir,
		Filename: name,
		Data:     data,
	})
	if err != nil {
		code := fault.CodeOf(err)
		if code.Retriable() {
			// Next scan retries it.
			p.logger.Warn("drop file left in place",
				zap.String("tenant_id", tenantID),
				zap.String("file", name),
				zap.String("code", string(code)),
				zap.Error(err),
			)
			return
		}
		p.settle(tenantID, name, failedDir)
		p.logger.Warn("drop file rejected",
			zap.String("tenant_id", tenantID),
			zap.String("file", name),
			zap.String("code", string(code)),
			zap.Error(err),
		)
		return
	}

	p.settle(tenantID, name, processedDir)
	p.logger.Info("drop file ingested",
		zap.String("tenant_id", tenantID),
		zap.String("file", name),
		zap.String("item_id", res.Item.ID.String()),
		zap.Bool("duplicate", res.Duplicate),
	)
}

// settle moves a file into {root}/{bucket}/{tenant}/, creating the bucket on
// first use.
func (p *Poller) settle(tenantID, name, bucket string) {
	dst := filepath.Join(p.root, bucket, tenantID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		p.logger.Error("create settle dir failed", zap.String("dir", dst), zap.Error(err))
		return
	}
	src := filepath.Join(p.root, tenantID, name)
	if err := os.Rename(src, filepath.Join(dst, name)); err != nil {
		p.logger.Error("settle move failed", zap.String("file", src), zap.Error(err))
	}
}
