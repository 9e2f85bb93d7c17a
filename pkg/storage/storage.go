package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/carebridge/carebridge-api/internal/config"
)

// Client wraps the S3 client for the portal's document buckets. Report
// binaries and identity documents live in separate buckets; both are private
// and only ever exposed through presigned GET URLs.
type Client struct {
	s3             *s3.Client
	presigner      *s3.PresignClient
	reportBucket   string
	documentBucket string
	presignTTL     time.Duration
}

func New(cfg config.StorageConfig) (*Client, error) {
	if cfg.ReportBucket == "" {
		return nil, fmt.Errorf("storage: report bucket name is required")
	}

	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load config: %w", err)
	}

	cli := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Client{
		s3:             cli,
		presigner:      s3.NewPresignClient(cli),
		reportBucket:   cfg.ReportBucket,
		documentBucket: cfg.DocumentBucket,
		presignTTL:     ttl,
	}, nil
}

// UploadReport puts a report binary under the given key. Keys follow the
// convention reports/{patient_id}/{uuid}{ext}.
func (c *Client) UploadReport(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	return c.upload(ctx, c.reportBucket, key, contentType, body, size)
}

// UploadDocument puts an identity or profile document under the given key.
func (c *Client) UploadDocument(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	return c.upload(ctx, c.documentBucket, key, contentType, body, size)
}

func (c *Client) upload(ctx context.Context, bucket, key, contentType string, body io.Reader, size int64) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		ACL:           types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return fmt.Errorf("storage upload %q: %w", key, err)
	}
	return nil
}

// PresignReport generates a presigned GET URL for a report key, valid for
// the configured TTL (1 hour by default).
func (c *Client) PresignReport(ctx context.Context, key string) (string, error) {
	return c.presign(ctx, c.reportBucket, key)
}

// PresignDocument generates a presigned GET URL for a document key.
func (c *Client) PresignDocument(ctx context.Context, key string) (string, error) {
	return c.presign(ctx, c.documentBucket, key)
}

func (c *Client) presign(ctx context.Context, bucket, key string) (string, error) {
	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.presignTTL))
	if err != nil {
		return "", fmt.Errorf("storage presign %q: %w", key, err)
	}
	return req.URL, nil
}

// DeleteReport removes a report object. Only used by retention tooling;
// the API soft-deletes rows and leaves binaries in place.
func (c *Client) DeleteReport(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.reportBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage delete %q: %w", key, err)
	}
	return nil
}
