package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SonixLabs/SilenceKit/storage"
)

func TestStore_RoundTrip(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	md := storage.RecordingMetadata{Title: "Interview", Format: "mp3", OwnerID: "u9"}

	require.NoError(t, s.Put(ctx, "rec-1", "/tmp/rec-1.mp3", md))

	path, format, err := s.GetAudio(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/rec-1.mp3", path)
	assert.Equal(t, "mp3", format)

	got, err := s.GetMetadata(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, md, got)
}

func TestStore_NotFound(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, _, err := s.GetAudio(ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetMetadata(ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.ReplaceAudio(ctx, "nope", "/x"), storage.ErrNotFound)
	assert.ErrorIs(t, s.SetMetadata(ctx, "nope", storage.RecordingMetadata{}), storage.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "nope"), storage.ErrNotFound)
}

func TestStore_ReplaceAudioKeepsMetadata(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	md := storage.RecordingMetadata{Title: "Keep me", Format: "wav"}

	require.NoError(t, s.Put(ctx, "rec-1", "/tmp/a.wav", md))
	require.NoError(t, s.ReplaceAudio(ctx, "rec-1", "/tmp/b.wav"))

	path, _, err := s.GetAudio(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/b.wav", path)

	got, err := s.GetMetadata(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "Keep me", got.Title)
}

func TestStore_DeleteTracksPayload(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "rec-1", "/tmp/a.wav", storage.RecordingMetadata{Format: "wav"}))
	require.NoError(t, s.Delete(ctx, "rec-1"))

	assert.Equal(t, []string{"/tmp/a.wav"}, s.DeletedPayloads)
	_, err := s.GetMetadata(ctx, "rec-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ListExpired(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	require.NoError(t, s.Put(ctx, "old", "/a", storage.RecordingMetadata{RetainedUntil: &past}))
	require.NoError(t, s.Put(ctx, "fresh", "/b", storage.RecordingMetadata{RetainedUntil: &future}))
	require.NoError(t, s.Put(ctx, "pinned", "/c", storage.RecordingMetadata{}))

	ids, err := s.ListExpired(ctx, now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"old"}, ids)
}
