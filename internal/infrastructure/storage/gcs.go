package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"barterhub/internal/domain/service"
	apperrors "barterhub/pkg/errors"
	"barterhub/pkg/logger"
)

const BackendGCS = "gcs"

type GCSBackend struct {
	client     *storage.Client
	bucketName string
}

func NewGCSBackend(ctx context.Context, bucketName, credentialsPath string, allowedOrigins []string) (*GCSBackend, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	b := &GCSBackend{
		client:     client,
		bucketName: bucketName,
	}

	if err := b.setBucketCORS(ctx, allowedOrigins); err != nil {
		logger.Warn("Failed to set CORS configuration: %v", err)
	}

	return b, nil
}

func (b *GCSBackend) setBucketCORS(ctx context.Context, origins []string) error {
	bucket := b.client.Bucket(b.bucketName)

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsConfig := storage.CORS{
		MaxAge:          3600,
		Methods:         []string{"GET", "HEAD"},
		Origins:         origins,
		ResponseHeaders: []string{"Content-Type"},
	}

	bucketAttrs, err := bucket.Attrs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bucket attributes: %v", err)
	}

	if len(bucketAttrs.CORS) == 0 {
		bucketUpdate := storage.BucketAttrsToUpdate{
			CORS: []storage.CORS{corsConfig},
		}
		if _, err := bucket.Update(ctx, bucketUpdate); err != nil {
			return fmt.Errorf("failed to update bucket CORS: %v", err)
		}
	}

	return nil
}

func (b *GCSBackend) Name() string { return BackendGCS }

func (b *GCSBackend) object(key string) *storage.ObjectHandle {
	return b.client.Bucket(b.bucketName).Object(key)
}

func (b *GCSBackend) Upload(ctx context.Context, key string, r io.Reader, opts service.UploadOptions) (*service.ObjectInfo, error) {
	obj := b.object(key)
	wc := obj.NewWriter(ctx)
	wc.ContentType = opts.ContentType
	wc.CacheControl = opts.CacheControl
	if wc.CacheControl == "" {
		wc.CacheControl = "public, max-age=86400"
	}

	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return nil, gcsError("upload", key, err)
	}
	if err := wc.Close(); err != nil {
		return nil, gcsError("upload", key, err)
	}

	if opts.Public {
		if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
			return nil, gcsError("acl", key, err)
		}
	}

	return attrsToInfo(wc.Attrs()), nil
}

func (b *GCSBackend) Download(ctx context.Context, key string) (io.ReadCloser, *service.ObjectInfo, error) {
	reader, err := b.object(key).NewReader(ctx)
	if err != nil {
		return nil, nil, gcsError("download", key, err)
	}
	info := &service.ObjectInfo{
		Key:         key,
		Size:        reader.Attrs.Size,
		ContentType: reader.Attrs.ContentType,
		UpdatedAt:   reader.Attrs.LastModified,
	}
	return reader, info, nil
}

func (b *GCSBackend) Delete(ctx context.Context, key string) error {
	if err := b.object(key).Delete(ctx); err != nil {
		return gcsError("delete", key, err)
	}
	return nil
}

func (b *GCSBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, gcsError("exists", key, err)
	}
	return true, nil
}

func (b *GCSBackend) Copy(ctx context.Context, srcKey, dstKey string) error {
	if _, err := b.object(dstKey).CopierFrom(b.object(srcKey)).Run(ctx); err != nil {
		return gcsError("copy", srcKey, err)
	}
	return nil
}

func (b *GCSBackend) Move(ctx context.Context, srcKey, dstKey string) error {
	if err := b.Copy(ctx, srcKey, dstKey); err != nil {
		return err
	}
	return b.Delete(ctx, srcKey)
}

func (b *GCSBackend) Metadata(ctx context.Context, key string) (*service.ObjectInfo, error) {
	attrs, err := b.object(key).Attrs(ctx)
	if err != nil {
		return nil, gcsError("metadata", key, err)
	}
	return attrsToInfo(attrs), nil
}

func (b *GCSBackend) URL(key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", b.bucketName, key)
}

func (b *GCSBackend) Close() error {
	return b.client.Close()
}

func attrsToInfo(attrs *storage.ObjectAttrs) *service.ObjectInfo {
	if attrs == nil {
		return &service.ObjectInfo{}
	}
	return &service.ObjectInfo{
		Key:         attrs.Name,
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		UpdatedAt:   attrs.Updated,
	}
}

func gcsError(op, key string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return apperrors.NotFound("Object", err)
	}
	logger.Error("GCS %s failed for %s: %v", op, key, err)
	return apperrors.Internal("storage operation failed", err)
}
