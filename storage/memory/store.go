// Package memory provides an in-memory recording store for development and
// testing.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/SonixLabs/SilenceKit/storage"
)

type record struct {
	audioPath string
	md        storage.RecordingMetadata
}

// Store implements storage.RecordingStore in process memory. Payloads are
// tracked by path only; the files themselves live wherever the caller put
// them. Suitable for tests and single-process development.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record

	// DeletedPayloads records payload paths passed to Delete, for tests
	// asserting best-effort payload cleanup.
	DeletedPayloads []string
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{records: make(map[string]*record)}
}

// Put implements storage.RecordingStore.Put.
func (s *Store) Put(ctx context.Context, id, audioPath string, md storage.RecordingMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = &record{audioPath: audioPath, md: md}
	return nil
}

// GetAudio implements storage.RecordingStore.GetAudio.
func (s *Store) GetAudio(ctx context.Context, id string) (string, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return "", "", storage.ErrNotFound
	}
	return rec.audioPath, rec.md.Format, nil
}

// ReplaceAudio implements storage.RecordingStore.ReplaceAudio.
func (s *Store) ReplaceAudio(ctx context.Context, id, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return storage.ErrNotFound
	}
	rec.audioPath = newPath
	return nil
}

// GetMetadata implements storage.RecordingStore.GetMetadata.
func (s *Store) GetMetadata(ctx context.Context, id string) (storage.RecordingMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return storage.RecordingMetadata{}, storage.ErrNotFound
	}
	return rec.md, nil
}

// SetMetadata implements storage.RecordingStore.SetMetadata.
func (s *Store) SetMetadata(ctx context.Context, id string, md storage.RecordingMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return storage.ErrNotFound
	}
	rec.md = md
	return nil
}

// Delete implements storage.RecordingStore.Delete.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return storage.ErrNotFound
	}
	s.DeletedPayloads = append(s.DeletedPayloads, rec.audioPath)
	delete(s.records, id)
	return nil
}

// ListExpired implements storage.RecordingStore.ListExpired.
func (s *Store) ListExpired(ctx context.Context, now time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var expired []string
	for id, rec := range s.records {
		if rec.md.Expired(now) {
			expired = append(expired, id)
		}
	}
	return expired, nil
}

// Compile-time interface check.
var _ storage.RecordingStore = (*Store)(nil)
