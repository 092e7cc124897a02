package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ThumbnailStore uploads livestream thumbnails to an S3-compatible object
// store and returns publicly addressable URLs.
type ThumbnailStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewThumbnailStore connects to the object store and ensures the bucket exists
func NewThumbnailStore(ctx context.Context, endpoint, accessKey, secretKey, bucket, publicURL string, useSSL bool) (*ThumbnailStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, endpoint, bucket)
	}

	return &ThumbnailStore{
		client:    client,
		bucket:    bucket,
		publicURL: publicURL,
	}, nil
}

// Upload stores a thumbnail under the tenant's prefix and returns its URL
func (s *ThumbnailStore) Upload(ctx context.Context, tenantID, filename, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("thumbnail data must not be empty")
	}

	objectName := path.Join(tenantID, uuid.New().String()+path.Ext(filename))

	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload thumbnail: %w", err)
	}

	return fmt.Sprintf("%s/%s", s.publicURL, objectName), nil
}
