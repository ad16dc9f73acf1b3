package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"barterhub/internal/domain/service"
	apperrors "barterhub/pkg/errors"
)

const BackendLocal = "local"

// LocalBackend stores objects under a root directory and serves them from
// baseURL.
type LocalBackend struct {
	root    string
	baseURL string
}

func NewLocalBackend(root, baseURL string) (*LocalBackend, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %v", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %v", err)
	}
	return &LocalBackend{root: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (b *LocalBackend) Name() string { return BackendLocal }

func (b *LocalBackend) Root() string { return b.root }

// path maps a key to a file under root, rejecting keys that escape it.
func (b *LocalBackend) path(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	if clean == string(filepath.Separator) {
		return "", apperrors.BadRequest("Invalid object key", nil)
	}
	return filepath.Join(b.root, clean), nil
}

func (b *LocalBackend) Upload(_ context.Context, key string, r io.Reader, opts service.UploadOptions) (*service.ObjectInfo, error) {
	p, err := b.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, localError(err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return nil, localError(err)
	}
	size, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return nil, localError(err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return nil, localError(err)
	}

	info, err := b.Metadata(context.Background(), key)
	if err != nil {
		return nil, err
	}
	info.Size = size
	if opts.ContentType != "" {
		info.ContentType = opts.ContentType
	}
	return info, nil
}

func (b *LocalBackend) Download(ctx context.Context, key string) (io.ReadCloser, *service.ObjectInfo, error) {
	info, err := b.Metadata(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	p, _ := b.path(key)
	f, err := os.Open(p)
	if err != nil {
		return nil, nil, localError(err)
	}
	return f, info, nil
}

func (b *LocalBackend) Delete(_ context.Context, key string) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return localError(err)
	}
	return nil
}

func (b *LocalBackend) Exists(_ context.Context, key string) (bool, error) {
	p, err := b.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, localError(err)
	}
	return true, nil
}

func (b *LocalBackend) Copy(ctx context.Context, srcKey, dstKey string) error {
	src, info, err := b.Download(ctx, srcKey)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = b.Upload(ctx, dstKey, src, service.UploadOptions{ContentType: info.ContentType})
	return err
}

func (b *LocalBackend) Move(_ context.Context, srcKey, dstKey string) error {
	src, err := b.path(srcKey)
	if err != nil {
		return err
	}
	dst, err := b.path(dstKey)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return localError(err)
	}
	if err := os.Rename(src, dst); err != nil {
		return localError(err)
	}
	return nil
}

func (b *LocalBackend) Metadata(_ context.Context, key string) (*service.ObjectInfo, error) {
	p, err := b.path(key)
	if err != nil {
		return nil, err
	}
	stat, err := os.Stat(p)
	if err != nil {
		return nil, localError(err)
	}
	if stat.IsDir() {
		return nil, apperrors.NotFound("Object", nil)
	}

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(p); err == nil {
		contentType = mt.String()
	}
	return &service.ObjectInfo{
		Key:         key,
		Size:        stat.Size(),
		ContentType: contentType,
		UpdatedAt:   stat.ModTime().UTC(),
	}, nil
}

func (b *LocalBackend) URL(key string) string {
	return b.baseURL + "/" + strings.TrimLeft(key, "/")
}

func localError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return apperrors.NotFound("Object", err)
	}
	return apperrors.Internal("storage operation failed", err)
}
