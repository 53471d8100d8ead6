package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultContentType = "application/octet-stream"

// R2Settings configure the S3-compatible bucket that holds voice samples.
type R2Settings struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	PublicBaseURL   string
}

// Configured reports whether every value needed to upload and link is set.
func (s R2Settings) Configured() bool {
	for _, v := range []string{s.Endpoint, s.AccessKeyID, s.SecretAccessKey, s.Bucket, s.PublicBaseURL} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// R2Store uploads objects to Cloudflare R2 (or any S3 endpoint) through minio-go.
type R2Store struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

// NewR2Store creates a path-style client for the configured bucket.
func NewR2Store(settings R2Settings) (*R2Store, error) {
	if !settings.Configured() {
		return nil, errors.New("storage: missing R2 endpoint, credentials, bucket or public base URL")
	}

	endpoint := strings.TrimSpace(settings.Endpoint)
	secure := !strings.HasPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimRight(endpoint, "/")

	region := settings.Region
	if region == "" {
		region = "auto"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(settings.AccessKeyID, settings.SecretAccessKey, ""),
		Secure:       secure,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create client: %w", err)
	}

	return &R2Store{
		client:     client,
		bucket:     settings.Bucket,
		publicBase: settings.PublicBaseURL,
	}, nil
}

// PutObject uploads body under key.
func (s *R2Store) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	if contentType == "" {
		contentType = defaultContentType
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("storage: put object %s: %w", key, err)
	}
	return nil
}

// PublicURL returns the public link for key.
func (s *R2Store) PublicURL(key string) string {
	return joinPublicURL(s.publicBase, key)
}
