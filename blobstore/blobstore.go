// Package blobstore archives raw fetched content for replay and audit.
//
// Keys are slash-separated paths (e.g. "sources/<id>/<date>/<hash>"). The
// filesystem implementation writes the payload atomically (tmp + rename) with
// a JSON sidecar carrying content type and metadata, so an archived fetch can
// be replayed without touching the original site.
//
// Archival is best-effort by contract: callers log Put failures and continue.
package blobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Store archives immutable blobs under namespaced keys.
type Store interface {
	// Put writes data under key. Writing the same key twice overwrites,
	// which is safe because keys embed the content hash.
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error
}

// sidecar is the metadata document written next to each blob.
type sidecar struct {
	ContentType string            `json:"content_type"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	StoredAt    time.Time         `json:"stored_at"`
	Size        int               `json:"size"`
}

// FS is a filesystem-backed Store rooted at a directory.
type FS struct {
	root string
}

// NewFS creates a filesystem store rooted at dir. The directory tree is
// created on first write.
func NewFS(dir string) *FS {
	return &FS{root: dir}
}

// Put implements Store.
func (f *FS) Put(_ context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	target := filepath.Join(f.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("blobstore: mkdir for %s: %w", key, err)
	}

	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("blobstore: write %s: %w", key, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("blobstore: rename %s: %w", key, err)
	}

	meta, err := json.Marshal(sidecar{
		ContentType: contentType,
		Metadata:    metadata,
		StoredAt:    time.Now().UTC(),
		Size:        len(data),
	})
	if err != nil {
		return fmt.Errorf("blobstore: marshal sidecar for %s: %w", key, err)
	}
	if err := os.WriteFile(target+".meta.json", meta, 0o644); err != nil {
		return fmt.Errorf("blobstore: write sidecar for %s: %w", key, err)
	}
	return nil
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("blobstore: empty key")
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("blobstore: unsafe key %q", key)
		}
	}
	return nil
}

// Memory is an in-memory Store for tests.
type Memory struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, key string, data []byte, _ string, _ map[string]string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blobs[key] = cp
	return nil
}

// Get returns a stored blob. Test helper, not part of the Store contract.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	return b, ok
}

// Len returns the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}
