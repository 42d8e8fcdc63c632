// Package services wraps the third-party backends (object storage, OCR,
// embedding/generation, email, payments) behind small injectable handles.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// SignedURLTTL is the lifetime of pre-signed upload URLs.
const SignedURLTTL = time.Hour

// StorageService wraps the Cloud Storage bucket holding file blobs.
type StorageService struct {
	client *storage.Client
	bucket string
	log    *zap.SugaredLogger
}

// NewStorageService builds a client from service-account credentials JSON.
func NewStorageService(ctx context.Context, credentialsJSON []byte, bucket string, log *zap.SugaredLogger) (*StorageService, error) {
	var opts []option.ClientOption
	if len(credentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	return &StorageService{client: client, bucket: bucket, log: log}, nil
}

// Upload streams content into the object at key and returns its public URL.
// Nothing is persisted anywhere else until this returns nil.
func (s *StorageService) Upload(ctx context.Context, key, contentType string, content io.Reader) (string, error) {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, content); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: close %s: %w", key, err)
	}
	return s.ObjectURL(key), nil
}

// ObjectURL is the canonical https URL for an object key.
func (s *StorageService) ObjectURL(key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, url.PathEscape(key))
}

// URI is the gs:// form used by the OCR service.
func (s *StorageService) URI(key string) string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, key)
}

// Delete removes a single object.
func (s *StorageService) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every object under the prefix. Individual failures
// are logged and the sweep continues; the first error is reported.
func (s *StorageService) DeletePrefix(ctx context.Context, prefix string) error {
	bucket := s.client.Bucket(s.bucket)
	it := bucket.Objects(ctx, &storage.Query{Prefix: prefix})

	var firstErr error
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return fmt.Errorf("storage: list %s: %w", prefix, err)
		}
		if err := bucket.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			s.log.Warnw("failed to delete object", "key", attrs.Name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// SignedUploadURL issues a V4 pre-signed PUT URL for the key, valid for
// SignedURLTTL and bound to the given content type.
func (s *StorageService) SignedUploadURL(key, contentType string) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      "PUT",
		Expires:     time.Now().Add(SignedURLTTL),
		ContentType: contentType,
	}
	signed, err := s.client.Bucket(s.bucket).SignedURL(key, opts)
	if err != nil {
		return "", fmt.Errorf("storage: sign %s: %w", key, err)
	}
	return signed, nil
}

// Close releases the underlying client.
func (s *StorageService) Close() error {
	return s.client.Close()
}
