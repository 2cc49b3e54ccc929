// Package tenant classifies tenant identifiers against an allowlist.
//
// The allowlist comes from an inline list, a file, or both. File-backed lists
// reload with bounded staleness: at most once per refresh interval the file's
// mtime is compared and, when changed, the in-memory set is atomically
// replaced. Validation itself is a read-mostly map lookup.
package tenant

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Verdict is the outcome of validating one candidate identifier.
type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictMissing
	VerdictMalformed
	VerdictUnknown
)

func (v Verdict) String() string {
	switch v {
	case VerdictOK:
		return "ok"
	case VerdictMissing:
		return "missing"
	case VerdictMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Config assembles a Validator.
type Config struct {
	// Inline identifiers, merged with the file contents.
	Inline []string
	// Path of a JSON array or YAML/newline token list. Empty disables
	// file loading.
	Path string
	// Refresh bounds how often the file's mtime is consulted.
	Refresh time.Duration
	// DevBypass treats an empty allowlist as allow-all. Production
	// processes must leave it false.
	DevBypass bool
}

// Validator answers ok/missing/malformed/unknown for tenant identifiers.
type Validator struct {
	cfg    Config
	logger *zap.Logger

	mu        sync.RWMutex
	set       map[string]struct{}
	lastCheck time.Time
	lastMod   time.Time

	now func() time.Time
}

// NewValidator loads the initial allowlist and returns a ready Validator. A
// configured but unreadable file is a startup error; later reload failures
// only log and keep the previous set.
func NewValidator(cfg Config, logger *zap.Logger) (*Validator, error) {
	v := &Validator{
		cfg:    cfg,
		logger: logger,
		set:    map[string]struct{}{},
		now:    time.Now,
	}
	for _, id := range cfg.Inline {
		v.set[id] = struct{}{}
	}
	if cfg.Path != "" {
		ids, mod, err := loadAllowlistFile(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("tenant allowlist %s: %w", cfg.Path, err)
		}
		for _, id := range ids {
			v.set[id] = struct{}{}
		}
		v.lastMod = mod
	}
	v.lastCheck = v.now()
	return v, nil
}

// Validate classifies one candidate identifier.
func (v *Validator) Validate(id string) Verdict {
	if id == "" {
		return VerdictMissing
	}
	if !validIdent(id) {
		return VerdictMalformed
	}

	v.maybeReload()

	v.mu.RLock()
	defer v.mu.RUnlock()
	if _, ok := v.set[id]; ok {
		return VerdictOK
	}
	if len(v.set) == 0 && v.cfg.DevBypass {
		return VerdictOK
	}
	return VerdictUnknown
}

// Known returns the number of allowlisted tenants, for logs.
func (v *Validator) Known() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.set)
}

func (v *Validator) maybeReload() {
	if v.cfg.Path == "" || v.cfg.Refresh <= 0 {
		return
	}

	v.mu.RLock()
	due := v.now().Sub(v.lastCheck) >= v.cfg.Refresh
	v.mu.RUnlock()
	if !due {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.now().Sub(v.lastCheck) < v.cfg.Refresh {
		return
	}
	v.lastCheck = v.now()

	info, err := os.Stat(v.cfg.Path)
	if err != nil {
		v.logger.Warn("tenant allowlist stat failed, keeping previous set",
			zap.String("path", v.cfg.Path),
			zap.Error(err),
		)
		return
	}
	if info.ModTime().Equal(v.lastMod) {
		return
	}

	ids, mod, err := loadAllowlistFile(v.cfg.Path)
	if err != nil {
		v.logger.Warn("tenant allowlist reload failed, keeping previous set",
			zap.String("path", v.cfg.Path),
			zap.Error(err),
		)
		return
	}

	next := make(map[string]struct{}, len(ids)+len(v.cfg.Inline))
	for _, id := range v.cfg.Inline {
		next[id] = struct{}{}
	}
	for _, id := range ids {
		next[id] = struct{}{}
	}
	v.set = next
	v.lastMod = mod
	v.logger.Info("tenant allowlist reloaded",
		zap.String("path", v.cfg.Path),
		zap.Int("tenants", len(next)),
	)
}

// validIdent accepts 1-64 chars of [A-Za-z0-9_-].
func validIdent(id string) bool {
	if len(id) == 0 || len(id) > 64 {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}

// loadAllowlistFile parses a JSON array, a YAML sequence, or a plain
// newline/comma token list, in that order of preference.
func loadAllowlistFile(path string) ([]string, time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, err
	}

	ids, err := parseAllowlist(raw)
	if err != nil {
		return nil, time.Time{}, err
	}
	return ids, info.ModTime(), nil
}

func parseAllowlist(raw []byte) ([]string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var ids []string
		if err := json.Unmarshal([]byte(trimmed), &ids); err != nil {
			return nil, fmt.Errorf("parse json list: %w", err)
		}
		return cleanIdents(ids), nil
	}

	var ids []string
	if err := yaml.Unmarshal(raw, &ids); err == nil {
		return cleanIdents(ids), nil
	}

	// Plain token list: newlines and commas both separate.
	fields := strings.FieldsFunc(trimmed, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})
	return cleanIdents(fields), nil
}

func cleanIdents(in []string) []string {
	out := make([]string, 0, len(in))
	for _, id := range in {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
