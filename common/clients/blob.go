package clients

import (
	"context"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// BlobMetadata carries HTTP-facing metadata stored alongside blob bytes
type BlobMetadata struct {
	ContentType  string
	CacheControl string
}

// BlobStore is the storage interface for gallery image objects.
// All implementations must be context-aware and thread-safe.
// Keys are caller-chosen (e.g. "assets/case_123_before-320w.webp"), unlike a
// CAS where the store derives them.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, meta BlobMetadata) error
	Get(ctx context.Context, key string) ([]byte, BlobMetadata, error)
	Delete(ctx context.Context, key string) error
}
