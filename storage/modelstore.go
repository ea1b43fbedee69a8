// Package storage persists serialized model artifacts in S3, keyed by
// model name, version, and symbol.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"stock-hub/observability"
)

// ErrNotConfigured means no bucket is set; model persistence is disabled.
var ErrNotConfigured = errors.New("model storage not configured")

// ErrModelNotFound means no artifact exists under the requested key.
var ErrModelNotFound = errors.New("model artifact not found")

// s3API is the slice of the S3 client the store uses, split out so tests
// can substitute a fake.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// ModelStore saves and loads model artifacts. A nil ModelStore means
// storage is not configured; operations then return ErrNotConfigured.
type ModelStore struct {
	client s3API
	bucket string
}

// NewModelStore builds a store over S3. Returns nil (not an error) when no
// bucket is configured; the service runs without model persistence.
func NewModelStore(ctx context.Context, bucket, region, endpoint string) *ModelStore {
	if bucket == "" {
		observability.Warn("Models bucket not configured, running without model storage")
		return nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		observability.WithError(err).Warn("Unable to load AWS SDK config, running without model storage")
		return nil
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			// Localstack and minio endpoints need path-style addressing
			o.UsePathStyle = true
		}
	})

	return &ModelStore{client: client, bucket: bucket}
}

// NewModelStoreWithClient wraps an existing S3 client. Used by tests.
func NewModelStoreWithClient(client s3API, bucket string) *ModelStore {
	return &ModelStore{client: client, bucket: bucket}
}

// modelKey builds the object key for an artifact.
func modelKey(name, version, symbol string) string {
	return fmt.Sprintf("models/%s/%s/%s.bin", name, version, strings.ToUpper(symbol))
}

// SaveModel uploads a serialized artifact.
func (m *ModelStore) SaveModel(ctx context.Context, name, version, symbol string, data []byte) error {
	if m == nil {
		return ErrNotConfigured
	}

	key := modelKey(name, version, symbol)
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to save model %s: %w", key, err)
	}

	observability.Info("Saved model artifact", "key", key, "bytes", len(data))
	return nil
}

// LoadModel downloads a serialized artifact.
func (m *ModelStore) LoadModel(ctx context.Context, name, version, symbol string) ([]byte, error) {
	if m == nil {
		return nil, ErrNotConfigured
	}

	key := modelKey(name, version, symbol)
	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, key)
		}
		return nil, fmt.Errorf("failed to load model %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read model %s: %w", key, err)
	}
	return data, nil
}

// DeleteModel removes an artifact. Deleting a missing artifact is not an
// error.
func (m *ModelStore) DeleteModel(ctx context.Context, name, version, symbol string) error {
	if m == nil {
		return ErrNotConfigured
	}

	key := modelKey(name, version, symbol)
	_, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete model %s: %w", key, err)
	}
	return nil
}

// Healthy reports whether the bucket is reachable.
func (m *ModelStore) Healthy(ctx context.Context) bool {
	if m == nil {
		return false
	}
	healthCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := m.client.HeadBucket(healthCtx, &s3.HeadBucketInput{Bucket: aws.String(m.bucket)})
	return err == nil
}

// isNotFound detects S3 missing-key errors across SDK error shapes.
func isNotFound(err error) bool {
	var apiErr interface{ ErrorCode() string }
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}
