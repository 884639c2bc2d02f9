// Package archive stores schedule JSON too large for inline persistence
// in the run record, S3-backed with an optional local cache.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Store provides an interface for archiving large schedule documents.
type Store interface {
	// Save writes a schedule document and returns a reference path/URL.
	Save(ctx context.Context, runID string, scheduleJSON []byte) (string, error)
	// Load fetches a schedule document by reference.
	Load(ctx context.Context, reference string) ([]byte, error)
}

// S3Store archives schedules in S3-compatible storage.
type S3Store struct {
	client     *s3.Client
	bucket     string
	prefix     string
	localCache string
}

// S3Config holds S3 configuration.
type S3Config struct {
	Bucket          string
	Prefix          string // e.g., "schedules/runs/"
	Region          string
	Endpoint        string // For MinIO/local S3
	AccessKeyID     string
	SecretAccessKey string
	LocalCacheDir   string // Local cache for frequently accessed schedules
}

// NewS3Store creates a new S3-backed archive store.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	optFns := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		optFns = append(optFns, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)

	if cfg.LocalCacheDir != "" {
		if err := os.MkdirAll(cfg.LocalCacheDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	return &S3Store{
		client:     client,
		bucket:     cfg.Bucket,
		prefix:     cfg.Prefix,
		localCache: cfg.LocalCacheDir,
	}, nil
}

// Save uploads the schedule document to S3.
func (s *S3Store) Save(ctx context.Context, runID string, scheduleJSON []byte) (string, error) {
	key := s.buildKey(runID)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(scheduleJSON),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload schedule to S3: %w", err)
	}

	if s.localCache != "" {
		cachePath := filepath.Join(s.localCache, runID+".json")
		_ = os.WriteFile(cachePath, scheduleJSON, 0644)
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// Load fetches the schedule document from S3 (or the local cache).
func (s *S3Store) Load(ctx context.Context, reference string) ([]byte, error) {
	key := s.extractKey(reference)

	if s.localCache != "" {
		cachePath := filepath.Join(s.localCache, filepath.Base(key))
		if data, err := os.ReadFile(cachePath); err == nil {
			return data, nil
		}
	}

	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule from S3: %w", err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule: %w", err)
	}

	if s.localCache != "" {
		cachePath := filepath.Join(s.localCache, filepath.Base(key))
		_ = os.WriteFile(cachePath, data, 0644)
	}

	return data, nil
}

func (s *S3Store) buildKey(runID string) string {
	timestamp := time.Now().Format("2006/01/02")
	return fmt.Sprintf("%s%s/%s.json", s.prefix, timestamp, runID)
}

func (s *S3Store) extractKey(reference string) string {
	if len(reference) > 5 && reference[:5] == "s3://" {
		parts := reference[5:]
		for i, c := range parts {
			if c == '/' {
				return parts[i+1:]
			}
		}
	}
	return reference
}

// LocalStore archives schedules on the local filesystem (development/single-node).
type LocalStore struct {
	basePath string
}

// NewLocalStore creates a local filesystem archive store.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &LocalStore{basePath: basePath}, nil
}

// Save writes the schedule document to the local filesystem.
func (l *LocalStore) Save(ctx context.Context, runID string, scheduleJSON []byte) (string, error) {
	path := filepath.Join(l.basePath, runID+".json")
	if err := os.WriteFile(path, scheduleJSON, 0644); err != nil {
		return "", fmt.Errorf("failed to write schedule: %w", err)
	}
	return path, nil
}

// Load fetches the schedule document from the local filesystem.
func (l *LocalStore) Load(ctx context.Context, reference string) ([]byte, error) {
	return os.ReadFile(reference)
}
