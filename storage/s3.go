package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"vidcompress/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Backend serves s3:// locations. The client is created once by the caller.
type S3Backend struct {
	Client   *s3.Client
	Uploader *manager.Uploader
	Region   string
	Endpoint string // set for S3-compatible stores; switches URLs to path style
}

func NewS3Backend(client *s3.Client, region, endpoint string) *S3Backend {
	return &S3Backend{
		Client:   client,
		Uploader: manager.NewUploader(client),
		Region:   region,
		Endpoint: strings.TrimSuffix(endpoint, "/"),
	}
}

// NewS3Client builds the client used by NewS3Backend from an aws.Config.
func NewS3Client(cfg aws.Config, endpoint string) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey")
}

func (b *S3Backend) Size(ctx context.Context, bucket, key string) (int64, error) {
	out, err := b.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return 0, fmt.Errorf("%w: s3://%s/%s", ErrObjectNotFound, bucket, key)
		}
		return 0, fmt.Errorf("head object %s: %w", key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (b *S3Backend) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := b.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrObjectNotFound, bucket, key)
		}
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	return out.Body, nil
}

func (b *S3Backend) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata map[string]string) error {
	_, err := b.Uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		Body:     reader,
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s to bucket %s: %w", key, bucket, err)
	}

	logger.Infof("Successfully uploaded object '%s' to bucket '%s'", key, bucket)
	return nil
}

func (b *S3Backend) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	_, err := b.Client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(srcBucket + "/" + (&url.URL{Path: srcKey}).EscapedPath()),
	})
	if err != nil {
		if isS3NotFound(err) {
			return fmt.Errorf("%w: s3://%s/%s", ErrObjectNotFound, srcBucket, srcKey)
		}
		return fmt.Errorf("copy object %s/%s: %w", srcBucket, srcKey, err)
	}
	return nil
}

func (b *S3Backend) Delete(ctx context.Context, bucket, key string) error {
	_, err := b.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	logger.Debugf("Deleted object '%s' from bucket '%s'", key, bucket)
	return nil
}

func (b *S3Backend) URL(bucket, key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if b.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", b.Endpoint, bucket, escaped)
	}
	if b.Region == "" || b.Region == "us-east-1" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, b.Region, escaped)
}
