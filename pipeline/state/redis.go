package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "silencekit"

// RedisStore is a Redis-backed Store for multi-node deployments. States are
// stored as JSON documents with an optional TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix sets the Redis key prefix. Default is "silencekit".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// WithTTL expires analysis state after the given duration. Zero, the
// default, means states persist until deleted by the retention sweeper.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// NewRedisStore creates a Redis-backed analysis state store.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{client: client, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Load implements Store.Load.
func (s *RedisStore) Load(ctx context.Context, recordingID string) (*RecordingAnalysisState, error) {
	if recordingID == "" {
		return nil, ErrInvalidID
	}

	data, err := s.client.Get(ctx, s.stateKey(recordingID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var st RecordingAnalysisState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &st, nil
}

// Save implements Store.Save.
func (s *RedisStore) Save(ctx context.Context, st *RecordingAnalysisState) error {
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

	if err := s.client.Set(ctx, s.stateKey(st.RecordingID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete implements Store.Delete.
func (s *RedisStore) Delete(ctx context.Context, recordingID string) error {
	if recordingID == "" {
		return ErrInvalidID
	}

	deleted, err := s.client.Del(ctx, s.stateKey(recordingID)).Result()
	if err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}

// List implements Store.List using SCAN so large keyspaces don't block the
// server.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	pattern := s.stateKey("*")
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if id := s.idFromKey(iter.Val()); id != "" {
			ids = append(ids, id)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan failed: %w", err)
	}
	return ids, nil
}

func (s *RedisStore) stateKey(recordingID string) string {
	return fmt.Sprintf("%s:analysis:%s", s.prefix, recordingID)
}

func (s *RedisStore) idFromKey(key string) string {
	prefix := s.stateKey("")
	if strings.HasPrefix(key, prefix) {
		return strings.TrimPrefix(key, prefix)
	}
	return ""
}

// Compile-time interface check.
var _ Store = (*RedisStore)(nil)
