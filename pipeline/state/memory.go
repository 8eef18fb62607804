package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and single-node deployments.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

// NewMemoryStore creates an empty in-memory state store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string][]byte)}
}

// Load implements Store.Load.
func (m *MemoryStore) Load(ctx context.Context, recordingID string) (*RecordingAnalysisState, error) {
	if recordingID == "" {
		return nil, ErrInvalidID
	}

	m.mu.RLock()
	data, ok := m.states[recordingID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	var st RecordingAnalysisState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &st, nil
}

// Save implements Store.Save. States are stored serialized so callers can't
// mutate a saved document through a retained pointer.
func (m *MemoryStore) Save(ctx context.Context, st *RecordingAnalysisState) error {
	if st == nil {
		return ErrInvalidState
	}
	if st.RecordingID == "" {
		return ErrInvalidID
	}

	st.UpdatedAt = time.Now()
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	m.mu.Lock()
	m.states[st.RecordingID] = data
	m.mu.Unlock()
	return nil
}

// Delete implements Store.Delete.
func (m *MemoryStore) Delete(ctx context.Context, recordingID string) error {
	if recordingID == "" {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[recordingID]; !ok {
		return ErrNotFound
	}
	delete(m.states, recordingID)
	return nil
}

// List implements Store.List.
func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.states))
	for id := range m.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)
