package service

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type UploadOptions struct {
	ContentType  string
	CacheControl string
	Public       bool
}

// StorageBackend is the capability set every media backend provides.
// Missing objects surface as NOT_FOUND app errors.
type StorageBackend interface {
	Name() string
	Upload(ctx context.Context, key string, r io.Reader, opts UploadOptions) (*ObjectInfo, error)
	Download(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Copy(ctx context.Context, srcKey, dstKey string) error
	Move(ctx context.Context, srcKey, dstKey string) error
	Metadata(ctx context.Context, key string) (*ObjectInfo, error)
	URL(key string) string
}
