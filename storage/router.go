package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"vidcompress/logger"
)

// ErrObjectNotFound is wrapped by backends when the addressed object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Backend is one storage provider. Bucket semantics depend on the scheme.
type Backend interface {
	Size(ctx context.Context, bucket, key string) (int64, error)
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Put(ctx context.Context, bucket, key string, reader io.Reader, metadata map[string]string) error
	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error
	Delete(ctx context.Context, bucket, key string) error
	URL(bucket, key string) string
}

// Router dispatches operations to the backend registered for a location's scheme.
type Router struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

func NewRouter() *Router {
	return &Router{backends: make(map[string]Backend)}
}

// Register installs backend for scheme, replacing any previous registration.
func (r *Router) Register(scheme string, backend Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[scheme] = backend
	logger.Debugf("storage backend [%s] registered", scheme)
}

func (r *Router) backend(scheme string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[scheme]
	if !ok {
		return nil, fmt.Errorf("unknown storage backend: %s", scheme)
	}
	return b, nil
}

// Size returns the object size in bytes.
func (r *Router) Size(ctx context.Context, loc Location) (int64, error) {
	b, err := r.backend(loc.Scheme)
	if err != nil {
		return 0, err
	}
	size, err := b.Size(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", loc, err)
	}
	return size, nil
}

// Open returns a reader for the object. The caller closes it.
func (r *Router) Open(ctx context.Context, loc Location) (io.ReadCloser, error) {
	b, err := r.backend(loc.Scheme)
	if err != nil {
		return nil, err
	}
	return b.Open(ctx, loc.Bucket, loc.Key)
}

// Put writes reader to loc with optional object metadata.
func (r *Router) Put(ctx context.Context, loc Location, reader io.Reader, metadata map[string]string) error {
	b, err := r.backend(loc.Scheme)
	if err != nil {
		return err
	}
	if err := b.Put(ctx, loc.Bucket, loc.Key, reader, metadata); err != nil {
		return fmt.Errorf("failed to upload to %s: %w", loc, err)
	}
	return nil
}

// Delete removes the object at loc.
func (r *Router) Delete(ctx context.Context, loc Location) error {
	b, err := r.backend(loc.Scheme)
	if err != nil {
		return err
	}
	if err := b.Delete(ctx, loc.Bucket, loc.Key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", loc, err)
	}
	return nil
}

// URL returns the public URL of loc, or its URI when no backend is registered.
func (r *Router) URL(loc Location) string {
	b, err := r.backend(loc.Scheme)
	if err != nil {
		return loc.String()
	}
	return b.URL(loc.Bucket, loc.Key)
}

// Move copies src to dst and then deletes src. Within one backend the copy is
// server-side; across backends the object is streamed.
func (r *Router) Move(ctx context.Context, src, dst Location) error {
	srcBackend, err := r.backend(src.Scheme)
	if err != nil {
		return err
	}

	if src.Scheme == dst.Scheme {
		if err := srcBackend.Copy(ctx, src.Bucket, src.Key, dst.Bucket, dst.Key); err != nil {
			return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
		}
	} else {
		reader, err := srcBackend.Open(ctx, src.Bucket, src.Key)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", src, err)
		}
		err = r.Put(ctx, dst, reader, nil)
		reader.Close()
		if err != nil {
			return err
		}
	}

	if err := srcBackend.Delete(ctx, src.Bucket, src.Key); err != nil {
		return fmt.Errorf("failed to delete %s after move: %w", src, err)
	}

	logger.Infof("Moved '%s' to '%s'", src, dst)
	return nil
}
