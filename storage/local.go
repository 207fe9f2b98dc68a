package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"vidcompress/logger"
)

// LocalBackend stores objects on the local filesystem under BaseDir/<bucket>/<key>.
// It backs file:// locations and is what tests and local runs use.
type LocalBackend struct {
	BaseDir   string
	PublicURL string // optional, e.g. http://localhost:8080/files
}

func NewLocalBackend(baseDir, publicURL string) *LocalBackend {
	return &LocalBackend{BaseDir: baseDir, PublicURL: strings.TrimSuffix(publicURL, "/")}
}

func (b *LocalBackend) path(bucket, key string) (string, error) {
	clean := filepath.Clean(filepath.Join(b.BaseDir, bucket, filepath.FromSlash(key)))
	base := filepath.Clean(b.BaseDir)
	if clean != base && !strings.HasPrefix(clean, base+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes the storage directory", key)
	}
	return clean, nil
}

func (b *LocalBackend) Size(ctx context.Context, bucket, key string) (int64, error) {
	fullPath, err := b.path(bucket, key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrObjectNotFound, fullPath)
		}
		return 0, err
	}
	return info.Size(), nil
}

func (b *LocalBackend) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	fullPath, err := b.path(bucket, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, fullPath)
		}
		return nil, err
	}
	return f, nil
}

// Put writes the object. Metadata is stored beside it as <key>.meta when present.
func (b *LocalBackend) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata map[string]string) error {
	fullPath, err := b.path(bucket, key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write to file %s: %w", fullPath, err)
	}

	if len(metadata) > 0 {
		values := url.Values{}
		for k, v := range metadata {
			values.Set(k, v)
		}
		if err := os.WriteFile(fullPath+".meta", []byte(values.Encode()), 0644); err != nil {
			return fmt.Errorf("failed to write metadata for %s: %w", fullPath, err)
		}
	}

	logger.Debugf("Saved object '%s' to '%s'", key, fullPath)
	return nil
}

func (b *LocalBackend) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	src, err := b.Open(ctx, srcBucket, srcKey)
	if err != nil {
		return err
	}
	defer src.Close()
	return b.Put(ctx, dstBucket, dstKey, src, nil)
}

func (b *LocalBackend) Delete(ctx context.Context, bucket, key string) error {
	fullPath, err := b.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, fullPath)
		}
		return err
	}
	os.Remove(fullPath + ".meta")
	return nil
}

func (b *LocalBackend) URL(bucket, key string) string {
	if b.PublicURL != "" {
		return b.PublicURL + "/" + bucket + "/" + key
	}
	fullPath, err := b.path(bucket, key)
	if err != nil {
		return SchemeLocal + "://" + bucket + "/" + key
	}
	if abs, err := filepath.Abs(fullPath); err == nil {
		fullPath = abs
	}
	return "file://" + filepath.ToSlash(fullPath)
}
