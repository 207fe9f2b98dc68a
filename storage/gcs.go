package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"vidcompress/logger"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSBackend serves gs:// locations.
type GCSBackend struct {
	Client *gcs.Client
}

// NewGCSBackend creates a client from a service account key file, or from
// application default credentials when credentialsFile is empty.
func NewGCSBackend(ctx context.Context, credentialsFile string) (*GCSBackend, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCSBackend{Client: client}, nil
}

func (b *GCSBackend) Close() error {
	return b.Client.Close()
}

func (b *GCSBackend) object(bucket, key string) *gcs.ObjectHandle {
	return b.Client.Bucket(bucket).Object(key)
}

func (b *GCSBackend) Size(ctx context.Context, bucket, key string) (int64, error) {
	attrs, err := b.object(bucket, key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return 0, fmt.Errorf("%w: gs://%s/%s", ErrObjectNotFound, bucket, key)
		}
		return 0, fmt.Errorf("Object.Attrs: %w", err)
	}
	return attrs.Size, nil
}

func (b *GCSBackend) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	rc, err := b.object(bucket, key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: gs://%s/%s", ErrObjectNotFound, bucket, key)
		}
		return nil, fmt.Errorf("Object.NewReader: %w", err)
	}
	return rc, nil
}

func (b *GCSBackend) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata map[string]string) error {
	wc := b.object(bucket, key).NewWriter(ctx)
	wc.Metadata = metadata

	if _, err := io.Copy(wc, reader); err != nil {
		wc.Close()
		return fmt.Errorf("io.Copy: %w", err)
	}

	// Close the writer to complete the upload.
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %w", err)
	}

	logger.Infof("Successfully uploaded object '%s' to bucket '%s'", key, bucket)
	return nil
}

func (b *GCSBackend) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	if _, err := b.object(dstBucket, dstKey).CopierFrom(b.object(srcBucket, srcKey)).Run(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return fmt.Errorf("%w: gs://%s/%s", ErrObjectNotFound, srcBucket, srcKey)
		}
		return fmt.Errorf("Copier.Run: %w", err)
	}
	return nil
}

func (b *GCSBackend) Delete(ctx context.Context, bucket, key string) error {
	if err := b.object(bucket, key).Delete(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return fmt.Errorf("%w: gs://%s/%s", ErrObjectNotFound, bucket, key)
		}
		return fmt.Errorf("Object.Delete: %w", err)
	}
	return nil
}

func (b *GCSBackend) URL(bucket, key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, (&url.URL{Path: key}).EscapedPath())
}
