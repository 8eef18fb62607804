// Package s3 provides a recording store backed by Amazon S3 or any
// S3-compatible object store (MinIO, R2, etc.).
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/SonixLabs/SilenceKit/storage"
)

// Client abstracts the S3 API operations used by Store.
// The s3.Client type satisfies this interface.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Store implements storage.RecordingStore against an S3 bucket. Each
// recording has two objects under an optional prefix:
//
//	<prefix>/<id>/audio     the payload
//	<prefix>/<id>/meta.json the metadata document
//
// GetAudio materializes the payload into cacheDir because the transcoding
// engine operates on local files.
//
// The caller configures the s3.Client (credentials, region, endpoint);
// typically via config.LoadDefaultConfig followed by s3.NewFromConfig.
type Store struct {
	client   Client
	bucket   string
	prefix   string
	cacheDir string
}

// NewStore creates an S3-backed recording store. Prefix may be empty;
// cacheDir defaults to the OS temp directory.
func NewStore(client Client, bucket, prefix, cacheDir string) *Store {
	if cacheDir == "" {
		cacheDir = os.TempDir()
	}
	return &Store{client: client, bucket: bucket, prefix: prefix, cacheDir: cacheDir}
}

// NewStoreFromEnv creates a store using the default AWS credential chain
// (environment, shared config, instance role).
func NewStoreFromEnv(ctx context.Context, bucket, prefix, cacheDir string) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return NewStore(s3.NewFromConfig(cfg), bucket, prefix, cacheDir), nil
}

func (s *Store) audioKey(id string) string { return s.key(id + "/audio") }
func (s *Store) metaKey(id string) string  { return s.key(id + "/meta.json") }

func (s *Store) key(path string) string {
	if s.prefix == "" {
		return path
	}
	return s.prefix + "/" + path
}

// Put implements storage.RecordingStore.Put.
func (s *Store) Put(ctx context.Context, id, audioPath string, md storage.RecordingMetadata) error {
	payload, err := os.Open(audioPath)
	if err != nil {
		return fmt.Errorf("failed to open payload: %w", err)
	}
	defer payload.Close()

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.audioKey(id)),
		Body:   payload,
	}); err != nil {
		return fmt.Errorf("failed to upload payload: %w", err)
	}
	return s.writeMetadata(ctx, id, md)
}

// GetAudio implements storage.RecordingStore.GetAudio by downloading the
// payload object into the cache directory.
func (s *Store) GetAudio(ctx context.Context, id string) (string, string, error) {
	md, err := s.GetMetadata(ctx, id)
	if err != nil {
		return "", "", err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.audioKey(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return "", "", storage.ErrNotFound
		}
		return "", "", fmt.Errorf("failed to fetch payload: %w", err)
	}
	defer out.Body.Close()

	name := id
	if md.Format != "" {
		name += "." + md.Format
	}
	local := filepath.Join(s.cacheDir, name)
	f, err := os.Create(local)
	if err != nil {
		return "", "", fmt.Errorf("failed to create cache file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, out.Body); err != nil {
		return "", "", fmt.Errorf("failed to download payload: %w", err)
	}
	return local, md.Format, nil
}

// ReplaceAudio implements storage.RecordingStore.ReplaceAudio.
func (s *Store) ReplaceAudio(ctx context.Context, id, newPath string) error {
	if _, err := s.GetMetadata(ctx, id); err != nil {
		return err
	}
	payload, err := os.Open(newPath)
	if err != nil {
		return fmt.Errorf("failed to open replacement payload: %w", err)
	}
	defer payload.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.audioKey(id)),
		Body:   payload,
	})
	if err != nil {
		return fmt.Errorf("failed to upload replacement payload: %w", err)
	}
	return nil
}

// GetMetadata implements storage.RecordingStore.GetMetadata.
func (s *Store) GetMetadata(ctx context.Context, id string) (storage.RecordingMetadata, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.metaKey(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return storage.RecordingMetadata{}, storage.ErrNotFound
		}
		return storage.RecordingMetadata{}, fmt.Errorf("failed to fetch metadata: %w", err)
	}
	defer out.Body.Close()

	var md storage.RecordingMetadata
	if err := json.NewDecoder(out.Body).Decode(&md); err != nil {
		return storage.RecordingMetadata{}, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return md, nil
}

// SetMetadata implements storage.RecordingStore.SetMetadata.
func (s *Store) SetMetadata(ctx context.Context, id string, md storage.RecordingMetadata) error {
	if _, err := s.GetMetadata(ctx, id); err != nil {
		return err
	}
	return s.writeMetadata(ctx, id, md)
}

// Delete implements storage.RecordingStore.Delete. S3 DeleteObject is
// idempotent, which gives best-effort payload deletion for free.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.audioKey(id)),
	}); err != nil {
		return fmt.Errorf("failed to delete payload: %w", err)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.metaKey(id)),
	}); err != nil {
		return fmt.Errorf("failed to delete metadata: %w", err)
	}
	return nil
}

// ListExpired implements storage.RecordingStore.ListExpired by listing
// meta.json objects under the prefix and checking each deadline.
func (s *Store) ListExpired(ctx context.Context, now time.Time) ([]string, error) {
	var expired []string
	var continuation *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.key("")),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list recordings: %w", err)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			id, ok := s.idFromMetaKey(key)
			if !ok {
				continue
			}
			md, err := s.GetMetadata(ctx, id)
			if err != nil {
				continue
			}
			if md.Expired(now) {
				expired = append(expired, id)
			}
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuation = out.NextContinuationToken
	}
	return expired, nil
}

// idFromMetaKey extracts the recording ID from a meta.json object key,
// returning false for payload and unrelated objects.
func (s *Store) idFromMetaKey(key string) (string, bool) {
	rest := key
	if s.prefix != "" {
		prefix := s.prefix + "/"
		if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
			return "", false
		}
		rest = key[len(prefix):]
	}
	const suffix = "/meta.json"
	if len(rest) <= len(suffix) || rest[len(rest)-len(suffix):] != suffix {
		return "", false
	}
	return rest[:len(rest)-len(suffix)], true
}

func (s *Store) writeMetadata(ctx context.Context, id string, md storage.RecordingMetadata) error {
	data, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.metaKey(id)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return fmt.Errorf("failed to upload metadata: %w", err)
	}
	return nil
}

// isNotFound reports whether err indicates the S3 object does not exist.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// Compile-time interface check.
var _ storage.RecordingStore = (*Store)(nil)
