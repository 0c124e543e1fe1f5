// Package s3 implements the blob store over Amazon S3 or an S3-compatible
// service. Object keys mirror the virtual tree ("projectID/path/to/file"),
// which keeps the bucket inspectable and lets a reconciliation pass map
// keys back to metadata rows.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"codebench/internal/domain"
	repoft "codebench/internal/domain/repositories/filetree"
)

// deleteBatchSize is the S3 DeleteObjects limit per request.
const deleteBatchSize = 1000

// s3API is the subset of the S3 client the adapter uses. Narrowed for
// testability.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, opts ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, opts ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// BlobStore implements repositories/filetree.BlobStore on S3.
type BlobStore struct {
	client    s3API
	bucket    string
	keyPrefix string
	logger    *slog.Logger
}

// Config contains configuration for the S3 blob store.
type Config struct {
	// Client is the configured S3 client.
	Client *s3.Client

	// Bucket is the S3 bucket name. The bucket must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys.
	KeyPrefix string

	Logger *slog.Logger
}

// New creates a new S3-backed blob store and verifies bucket access.
func New(ctx context.Context, cfg Config) (*BlobStore, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	if _, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	}); err != nil {
		return nil, fmt.Errorf("access bucket %q: %w", cfg.Bucket, err)
	}

	return &BlobStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		logger:    cfg.Logger,
	}, nil
}

var _ repoft.BlobStore = (*BlobStore)(nil)

// Upload stores data under key. Overwriting an existing key is the expected
// path for in-place saves.
func (s *BlobStore) Upload(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w: %v", key, domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Download returns the object stored under key.
func (s *BlobStore) Download(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("download %s: %w: %v", key, domain.ErrStoreUnavailable, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %v", key, domain.ErrStoreUnavailable, err)
	}
	return data, nil
}

// Move relocates the object from oldKey to newKey via server-side copy plus
// delete. The copy is atomic at the store's granularity; a failed delete
// after a successful copy leaves a harmless duplicate under the old key.
func (s *BlobStore) Move(ctx context.Context, oldKey, newKey string) error {
	source := s.bucket + "/" + s.objectKey(oldKey)

	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(s.objectKey(newKey)),
		CopySource: aws.String(url.PathEscape(source)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return fmt.Errorf("blob %s: %w", oldKey, domain.ErrNotFound)
		}
		return fmt.Errorf("copy %s to %s: %w: %v", oldKey, newKey, domain.ErrStoreUnavailable, err)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(oldKey)),
	}); err != nil {
		s.logger.Warn("failed to delete source object after copy",
			"old_key", oldKey, "new_key", newKey, "error", err)
	}

	return nil
}

// RemoveMany deletes the given keys best-effort in DeleteObjects batches.
// Per-key failures are logged and swallowed; only a transport-level failure
// is returned.
func (s *BlobStore) RemoveMany(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{
				Key: aws.String(s.objectKey(key)),
			})
		}

		result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("delete batch: %w: %v", domain.ErrStoreUnavailable, err)
		}

		for _, delErr := range result.Errors {
			s.logger.Warn("failed to delete object",
				"key", aws.ToString(delErr.Key),
				"code", aws.ToString(delErr.Code),
				"message", aws.ToString(delErr.Message),
			)
		}
	}

	return nil
}

func (s *BlobStore) objectKey(key string) string {
	return s.keyPrefix + key
}

// isNoSuchKey reports whether err means the source object does not exist.
func isNoSuchKey(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}

	// CopyObject reports a missing source via a generic API error rather
	// than a typed one.
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}
