package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mihirb23/mercer/internal/config"
)

// Gateway is the blob store boundary: durable writes with attached metadata,
// fresh time-limited read URLs, and metadata readback for provenance.
type Gateway interface {
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) (string, error)
	Sign(ctx context.Context, key string) (string, error)
	ReadMetadata(ctx context.Context, key string) (map[string]string, error)
}

type s3Storage struct {
	client     *minio.Client
	bucketName string
	signedTTL  time.Duration
}

func NewS3Storage(cfg *config.Config) (Gateway, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	// Ensure bucket exists; an unreachable store must fail startup.
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.S3BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.S3BucketName, minio.MakeBucketOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &s3Storage{
		client:     client,
		bucketName: cfg.S3BucketName,
		signedTTL:  cfg.SignedURLTTL,
	}, nil
}

// Put uploads the object with its metadata bag, then returns a signed GET URL
// for it.
func (s *s3Storage) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) (string, error) {
	reader := bytes.NewReader(data)

	_, err := s.client.PutObject(
		ctx,
		s.bucketName,
		key,
		reader,
		int64(len(data)),
		minio.PutObjectOptions{
			ContentType:  contentType,
			UserMetadata: metadata,
		},
	)

	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return s.Sign(ctx, key)
}

// Sign returns a fresh presigned GET URL for an existing object. URLs expire
// after the configured TTL and are regenerated on every call.
func (s *s3Storage) Sign(ctx context.Context, key string) (string, error) {
	signed, err := s.client.PresignedGetObject(ctx, s.bucketName, key, s.signedTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign object: %w", err)
	}

	return signed.String(), nil
}

// ReadMetadata fetches the user metadata stored with an existing object.
func (s *s3Storage) ReadMetadata(ctx context.Context, key string) (map[string]string, error) {
	info, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	return info.UserMetadata, nil
}

// MetadataValue looks up a metadata field tolerating the header-key mangling
// S3 user metadata goes through on the way back (x-amz-meta-* keys come home
// canonicalized).
func MetadataValue(metadata map[string]string, key string) string {
	if v, ok := metadata[key]; ok {
		return v
	}
	canonical := http.CanonicalHeaderKey(key)
	for k, v := range metadata {
		if http.CanonicalHeaderKey(k) == canonical {
			return v
		}
	}
	return ""
}
