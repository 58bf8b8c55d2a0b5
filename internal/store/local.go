package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// localStore is the development backend: records live in JSON files under a
// data directory, with an in-memory cache in front. It auto-provisions its
// directories on first use, mirroring how a local table emulator behaves.
type localStore struct {
	basePath string

	mu    sync.RWMutex
	cache map[DeploymentKey]*Record
}

// NewLocalStore creates a file-backed store rooted at basePath.
func NewLocalStore(basePath string) Store {
	return &localStore{
		basePath: basePath,
		cache:    make(map[DeploymentKey]*Record),
	}
}

func (s *localStore) Upsert(_ context.Context, key DeploymentKey, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ETag = uuid.NewString()
	if err := s.write(key, rec); err != nil {
		return err
	}
	s.cache[key] = copyRecord(rec)
	return nil
}

func (s *localStore) Get(_ context.Context, key DeploymentKey) (*Record, error) {
	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return copyRecord(cached), nil
	}

	// Cache miss: fall back to disk so records survive restarts
	rec, err := s.read(key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = copyRecord(rec)
	s.mu.Unlock()
	return rec, nil
}

func (s *localStore) Replace(_ context.Context, key DeploymentKey, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.cache[key]
	if !ok {
		loaded, err := s.read(key)
		if err != nil {
			return err
		}
		current = loaded
	}

	if rec.ETag != ETagAny && rec.ETag != current.ETag {
		return fmt.Errorf("%w for %s", ErrConcurrencyConflict, key)
	}

	rec.ETag = uuid.NewString()
	if err := s.write(key, rec); err != nil {
		return err
	}
	s.cache[key] = copyRecord(rec)
	return nil
}

func (s *localStore) Ping(_ context.Context) error {
	if err := os.MkdirAll(s.basePath, 0750); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// write persists the record atomically via a temp file rename, creating the
// service directory on first use.
func (s *localStore) write(key DeploymentKey, rec *Record) error {
	serviceDir := filepath.Join(s.basePath, url.PathEscape(key.Service))
	if err := os.MkdirAll(serviceDir, 0750); err != nil {
		return fmt.Errorf("%w: failed to create record directory for %s: %v", ErrStoreUnavailable, key, err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record for %s: %w", key, err)
	}

	filePath := s.recordPath(key)
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("%w: failed to write record file for %s: %v", ErrStoreUnavailable, key, err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("%w: failed to rename record file for %s: %v", ErrStoreUnavailable, key, err)
	}
	return nil
}

func (s *localStore) read(key DeploymentKey) (*Record, error) {
	// #nosec G304 -- path segments are escaped, basePath comes from config
	data, err := os.ReadFile(s.recordPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, key)
		}
		return nil, fmt.Errorf("%w: failed to read record file for %s: %v", ErrStoreUnavailable, key, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal record for %s: %v", ErrStoreUnavailable, key, err)
	}
	return &rec, nil
}

func (s *localStore) recordPath(key DeploymentKey) string {
	return filepath.Join(s.basePath,
		url.PathEscape(key.Service),
		url.PathEscape(key.DeploymentID)+".json")
}

func copyRecord(rec *Record) *Record {
	out := *rec
	if rec.EndedAt != nil {
		ended := *rec.EndedAt
		out.EndedAt = &ended
	}
	return &out
}
