package clients

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBlobStore stores gallery image blobs in Redis hashes.
// One hash per object: data plus content-type and cache-control fields, so a
// CDN-facing asset handler can serve them with the right headers. Swappable
// for an object store (R2/S3) behind the BlobStore interface.
type RedisBlobStore struct {
	redis  *redis.Client
	logger Logger
}

// NewRedisBlobStore creates a new Redis-backed blob store
func NewRedisBlobStore(redisClient *redis.Client, logger Logger) *RedisBlobStore {
	return &RedisBlobStore{
		redis:  redisClient,
		logger: logger,
	}
}

func blobKey(key string) string {
	return fmt.Sprintf("blob:%s", key)
}

// Put stores blob bytes and metadata under the given key
func (s *RedisBlobStore) Put(ctx context.Context, key string, data []byte, meta BlobMetadata) error {
	err := s.redis.HSet(ctx, blobKey(key), map[string]interface{}{
		"data":          data,
		"content_type":  meta.ContentType,
		"cache_control": meta.CacheControl,
	}).Err()
	if err != nil {
		s.logger.Error("failed to store blob", "key", key, "error", err)
		return fmt.Errorf("failed to store blob %s: %w", key, err)
	}

	s.logger.Debug("stored blob", "key", key, "size", len(data))
	return nil
}

// Get retrieves blob bytes and metadata by key
func (s *RedisBlobStore) Get(ctx context.Context, key string) ([]byte, BlobMetadata, error) {
	fields, err := s.redis.HGetAll(ctx, blobKey(key)).Result()
	if err != nil {
		s.logger.Error("failed to get blob", "key", key, "error", err)
		return nil, BlobMetadata{}, fmt.Errorf("failed to get blob %s: %w", key, err)
	}
	if len(fields) == 0 {
		s.logger.Warn("blob not found", "key", key)
		return nil, BlobMetadata{}, fmt.Errorf("blob not found: %s", key)
	}

	meta := BlobMetadata{
		ContentType:  fields["content_type"],
		CacheControl: fields["cache_control"],
	}
	return []byte(fields["data"]), meta, nil
}

// Delete removes a blob
func (s *RedisBlobStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, blobKey(key)).Err(); err != nil {
		s.logger.Error("failed to delete blob", "key", key, "error", err)
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	s.logger.Debug("deleted blob", "key", key)
	return nil
}
