// Package storage archives finished renders to object storage. The render
// service serves its outputs from ephemeral local disk; archiving gives
// each rendered clip a durable home and a presigned download URL.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"clipforge/internal/config"
	"clipforge/internal/metrics"
)

// Storage provides object storage operations
type Storage struct {
	client     *minio.Client
	bucketName string
	httpClient *http.Client
}

// New creates a new storage client and ensures the bucket exists
func New(cfg config.StorageConfig) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:     client,
		bucketName: cfg.BucketName,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}, nil
}

// Upload streams an object into the bucket
func (s *Storage) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		metrics.StorageOperationsTotal.WithLabelValues("upload", "error").Inc()
		return fmt.Errorf("failed to upload object: %w", err)
	}

	metrics.StorageOperationsTotal.WithLabelValues("upload", "success").Inc()
	return nil
}

// ArchiveFromURL streams a rendered video from its serving URL into the
// bucket and returns the object name. The body is piped straight through,
// never buffered whole.
func (s *Storage) ArchiveFromURL(ctx context.Context, sourceURL, sessionID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.StorageOperationsTotal.WithLabelValues("archive", "error").Inc()
		return "", fmt.Errorf("failed to fetch rendered video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.StorageOperationsTotal.WithLabelValues("archive", "error").Inc()
		return "", fmt.Errorf("rendered video fetch returned status %d", resp.StatusCode)
	}

	objectName := fmt.Sprintf("renders/%s/%s", sessionID, path.Base(sourceURL))
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = getContentType(objectName)
	}

	if err := s.Upload(ctx, objectName, resp.Body, resp.ContentLength, contentType); err != nil {
		metrics.StorageOperationsTotal.WithLabelValues("archive", "error").Inc()
		return "", fmt.Errorf("failed to archive rendered video: %w", err)
	}

	metrics.StorageOperationsTotal.WithLabelValues("archive", "success").Inc()
	return objectName, nil
}

// Download opens an object for reading
func (s *Storage) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	object, err := s.client.GetObject(ctx, s.bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		metrics.StorageOperationsTotal.WithLabelValues("download", "error").Inc()
		return nil, fmt.Errorf("failed to download object: %w", err)
	}

	metrics.StorageOperationsTotal.WithLabelValues("download", "success").Inc()
	return object, nil
}

// Delete removes an object
func (s *Storage) Delete(ctx context.Context, objectName string) error {
	err := s.client.RemoveObject(ctx, s.bucketName, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// PresignedURL returns a time-limited download URL for an object
func (s *Storage) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucketName, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate URL: %w", err)
	}

	return url.String(), nil
}

// List lists objects with a prefix
func (s *Storage) List(ctx context.Context, prefix string) ([]string, error) {
	var objects []string

	for object := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		objects = append(objects, object.Key)
	}

	return objects, nil
}

// getContentType returns the content type based on file extension
func getContentType(filePath string) string {
	ext := filepath.Ext(filePath)
	switch ext {
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	case ".srt":
		return "application/x-subrip"
	case ".vtt":
		return "text/vtt"
	default:
		return "application/octet-stream"
	}
}
