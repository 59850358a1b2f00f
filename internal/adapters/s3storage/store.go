// Package s3storage stores files through an S3-compatible endpoint such as
// Supabase Storage's S3 gateway.
package s3storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gelatohub/painel/internal/ports"
)

var tracer = otel.Tracer("github.com/gelatohub/painel/internal/adapters/s3storage")

// Options configures a Store.
type Options struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// MaxSize bounds uploads; zero means 10 MiB.
	MaxSize int64
}

// Store implements ports.ObjectStorage with path-style addressing.
type Store struct {
	client  *s3.Client
	maxSize int64
}

var _ ports.ObjectStorage = (*Store)(nil)

// New creates a Store.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Endpoint == "" || opts.AccessKeyID == "" || opts.SecretAccessKey == "" {
		return nil, errors.New("storage endpoint and credentials are required")
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	return &Store{client: client, maxSize: maxSize}, nil
}

// MaxSize returns the largest accepted upload in bytes.
func (s *Store) MaxSize() int64 { return s.maxSize }

// Put uploads body to bucket/key.
func (s *Store) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	ctx, span := tracer.Start(ctx, "S3.PutObject",
		trace.WithAttributes(
			attribute.String("s3.bucket", bucket),
			attribute.String("s3.key", key),
			attribute.String("content.type", contentType),
		),
	)
	defer span.End()

	if size > s.maxSize {
		return fmt.Errorf("object of %d bytes exceeds limit of %d", size, s.maxSize)
	}
	data, err := io.ReadAll(io.LimitReader(body, s.maxSize+1))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read content")
		return fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return fmt.Errorf("object exceeds limit of %d bytes", s.maxSize)
	}
	span.SetAttributes(attribute.Int("content.size", len(data)))

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "put object failed")
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// Remove deletes bucket/key.
func (s *Store) Remove(ctx context.Context, bucket, key string) error {
	ctx, span := tracer.Start(ctx, "S3.DeleteObject",
		trace.WithAttributes(
			attribute.String("s3.bucket", bucket),
			attribute.String("s3.key", key),
		),
	)
	defer span.End()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete object failed")
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
