// Package local provides a local filesystem-backed recording store.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/SonixLabs/SilenceKit/logger"
	"github.com/SonixLabs/SilenceKit/storage"
)

const metaSuffix = ".meta"

// FileStore implements storage.RecordingStore on the local filesystem.
// Each recording is a payload file named <id>.<format> plus a JSON .meta
// sidecar holding the metadata document.
type FileStore struct {
	baseDir string

	// mu serializes metadata read-modify-write cycles; payload writes go
	// through atomic rename and need no locking.
	mu sync.RWMutex
}

// NewFileStore creates a store rooted at baseDir, creating it if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Put implements storage.RecordingStore.Put.
func (fs *FileStore) Put(ctx context.Context, id, audioPath string, md storage.RecordingMetadata) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(audioPath)
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}
	if err := writeFileAtomic(fs.payloadPath(id, md.Format), data); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return fs.writeMetadata(id, md)
}

// GetAudio implements storage.RecordingStore.GetAudio.
func (fs *FileStore) GetAudio(ctx context.Context, id string) (string, string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	md, err := fs.readMetadata(id)
	if err != nil {
		return "", "", err
	}
	path := fs.payloadPath(id, md.Format)
	if _, err := os.Stat(path); err != nil {
		return "", "", fmt.Errorf("payload missing for %s: %w", id, err)
	}
	return path, md.Format, nil
}

// ReplaceAudio implements storage.RecordingStore.ReplaceAudio. The new
// payload lands via write-temp-rename so readers never see a partial file.
func (fs *FileStore) ReplaceAudio(ctx context.Context, id, newPath string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	md, err := fs.readMetadata(id)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(newPath)
	if err != nil {
		return fmt.Errorf("failed to read replacement payload: %w", err)
	}
	return writeFileAtomic(fs.payloadPath(id, md.Format), data)
}

// GetMetadata implements storage.RecordingStore.GetMetadata.
func (fs *FileStore) GetMetadata(ctx context.Context, id string) (storage.RecordingMetadata, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.readMetadata(id)
}

// SetMetadata implements storage.RecordingStore.SetMetadata.
func (fs *FileStore) SetMetadata(ctx context.Context, id string, md storage.RecordingMetadata) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := fs.readMetadata(id); err != nil {
		return err
	}
	return fs.writeMetadata(id, md)
}

// Delete implements storage.RecordingStore.Delete. The payload delete is
// best-effort; the metadata record is removed regardless.
func (fs *FileStore) Delete(ctx context.Context, id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	md, err := fs.readMetadata(id)
	if err != nil {
		return err
	}

	payload := fs.payloadPath(id, md.Format)
	if err := os.Remove(payload); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to delete payload, removing metadata anyway",
			"recording_id", id, "error", err)
	}
	if err := os.Remove(fs.metaPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete metadata: %w", err)
	}
	return nil
}

// ListExpired implements storage.RecordingStore.ListExpired by scanning the
// .meta sidecars under the base directory.
func (fs *FileStore) ListExpired(ctx context.Context, now time.Time) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan base directory: %w", err)
	}

	var expired []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), metaSuffix) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), metaSuffix)
		md, err := fs.readMetadata(id)
		if err != nil {
			// Skip sidecars we can't parse; they're not this sweep's problem.
			logger.Warn("skipping unreadable metadata", "recording_id", id, "error", err)
			continue
		}
		if md.Expired(now) {
			expired = append(expired, id)
		}
	}
	return expired, nil
}

func (fs *FileStore) payloadPath(id, format string) string {
	name := sanitizeID(id)
	if format != "" {
		name += "." + format
	}
	return filepath.Join(fs.baseDir, name)
}

func (fs *FileStore) metaPath(id string) string {
	return filepath.Join(fs.baseDir, sanitizeID(id)+metaSuffix)
}

func (fs *FileStore) readMetadata(id string) (storage.RecordingMetadata, error) {
	data, err := os.ReadFile(fs.metaPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return storage.RecordingMetadata{}, storage.ErrNotFound
		}
		return storage.RecordingMetadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}
	var md storage.RecordingMetadata
	if err := json.Unmarshal(data, &md); err != nil {
		return storage.RecordingMetadata{}, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return md, nil
}

func (fs *FileStore) writeMetadata(id string, md storage.RecordingMetadata) error {
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return writeFileAtomic(fs.metaPath(id), data)
}

// writeFileAtomic writes to a temp file then renames into place, atomic on
// POSIX systems.
func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tempPath, path)
}

// sanitizeID replaces path-hostile characters so IDs can't escape the base
// directory.
func sanitizeID(id string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
	)
	return replacer.Replace(id)
}

// Compile-time interface check.
var _ storage.RecordingStore = (*FileStore)(nil)
