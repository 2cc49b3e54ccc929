// Package contentstore persists raw document bytes under content-addressed
// paths: {base}/{tenant}/{hash[0:2]}/{hash}{ext}. Writes stage to a sibling
// temp file, fsync, then rename, so readers never observe a partial blob. An
// existing target short-circuits the write: identical content collapses to
// one object.
package contentstore

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedScheme is returned when a URI does not use file://.
	ErrUnsupportedScheme = errors.New("unsupported content uri scheme")
	// ErrOutsideBase is returned when a URI escapes the store root.
	ErrOutsideBase = errors.New("content uri outside store base")
)

// Store is a file-backed content-addressed blob store.
type Store struct {
	base string
}

// New builds a Store rooted at baseURI, which must be an absolute file://
// URI. The root directory is created if missing.
func New(baseURI string) (*Store, error) {
	base, err := pathFromURI(baseURI)
	if err != nil {
		return nil, fmt.Errorf("storage base: %w", err)
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create storage base: %w", err)
	}
	return &Store{base: base}, nil
}

// Write stores data under (tenantID, hash) and returns the blob's file://
// URI. Writing the same content twice is a no-op returning the same URI.
func (s *Store) Write(tenantID, hash, ext string, data []byte) (string, error) {
	target := s.blobPath(tenantID, hash, ext)

	if _, err := os.Stat(target); err == nil {
		return uriForPath(target), nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat blob: %w", err)
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+hash+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("stage blob: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close blob: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("chmod blob: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("publish blob: %w", err)
	}
	return uriForPath(target), nil
}

// Open resolves a store URI back to its bytes. Only file:// URIs within the
// store base are readable; anything else is a compatibility fault the caller
// maps to io_error.
func (s *Store) Open(uri string) (io.ReadCloser, error) {
	p, err := pathFromURI(uri)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(s.base, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("%w: %s", ErrOutsideBase, uri)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// ReadAll is Open followed by a full read.
func (s *Store) ReadAll(uri string) ([]byte, error) {
	rc, err := s.Open(uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *Store) blobPath(tenantID, hash, ext string) string {
	shard := hash
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(s.base, tenantID, shard, hash+ext)
}

func pathFromURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse uri: %w", err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Path == "" || !strings.HasPrefix(u.Path, "/") {
		return "", fmt.Errorf("file uri must be absolute: %s", uri)
	}
	return filepath.FromSlash(u.Path), nil
}

func uriForPath(p string) string {
	return "file://" + filepath.ToSlash(p)
}
