package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lysyi3m/feed-curator/app/feed"
)

// S3Config contains S3 storage configuration
type S3Config struct {
	Endpoint        string // Optional: custom endpoint for MinIO or DigitalOcean Spaces
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// ObjectStore uploads one object.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// S3Archive keeps copies of exports in an S3-compatible bucket under
// exports/<feed key>/YYYY/MM/<file name>.
type S3Archive struct {
	client ObjectStore
	bucket string
}

func NewS3Archive(ctx context.Context, cfg S3Config) (*S3Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("S3 region is required")
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewArchive(&s3Putter{client: client, bucket: cfg.Bucket}, cfg.Bucket), nil
}

// NewArchive wraps any ObjectStore with the export key layout.
func NewArchive(client ObjectStore, bucket string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket}
}

// Store uploads one export and returns its object key.
func (a *S3Archive) Store(ctx context.Context, feedKey, filename string, data []byte, contentType string, at time.Time) (string, error) {
	if feedKey == "" {
		feedKey = "unknown"
	}
	key := path.Join("exports", feedKey, fmt.Sprintf("%04d", at.Year()), fmt.Sprintf("%02d", int(at.Month())), filename)

	if err := a.client.Put(ctx, key, data, contentType); err != nil {
		return "", &feed.ExternalServiceError{
			Service: "s3",
			Kind:    feed.FailureStorage,
			Err:     fmt.Errorf("failed to upload export: %w", err),
		}
	}

	return key, nil
}

// URL returns the s3:// location of a stored key.
func (a *S3Archive) URL(key string) string {
	return fmt.Sprintf("s3://%s/%s", a.bucket, strings.TrimPrefix(key, "/"))
}

type s3Putter struct {
	client *s3.Client
	bucket string
}

func (p *s3Putter) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	return err
}
