/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package backup

//go:generate mockgen -destination gomocks_test.go -package backup_test -source=sink.go -mock_names s3API=MockS3API

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/trustbloc/vcwallet/pkg/storage"
)

const (
	archiveFileMode = 0o600
	contentType     = "application/octet-stream"
)

// FileSink keeps archives in local files. Names are file paths.
type FileSink struct{}

func (FileSink) Put(_ context.Context, name string, data []byte) error {
	return os.WriteFile(name, data, archiveFileMode)
}

func (FileSink) Get(_ context.Context, name string) ([]byte, error) {
	b, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("backup %s: %w", name, storage.ErrDataNotFound)
	}

	return b, err
}

type s3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Sink keeps archives as objects of one bucket. Names are object keys.
type S3Sink struct {
	client s3API
	bucket string
}

func NewS3Sink(client s3API, bucket string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket}
}

func (s *S3Sink) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Body:        bytes.NewReader(data),
		Key:         aws.String(name),
		Bucket:      aws.String(s.bucket),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload backup: %w", err)
	}

	return nil
}

func (s *S3Sink) Get(ctx context.Context, name string) ([]byte, error) {
	res, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("backup %s: %w", name, storage.ErrDataNotFound)
		}

		return nil, fmt.Errorf("failed to get backup from S3: %w", err)
	}

	defer func() {
		_ = res.Body.Close()
	}()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read backup body: %w", err)
	}

	return b, nil
}

// NewS3Client loads the default AWS configuration for region. A non-empty endpoint replaces the S3 endpoint and
// switches to path-style addressing, as S3-compatible servers expect.
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	if endpoint != "" {
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(endpointResolver(endpoint, region)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = endpoint != ""
	}), nil
}

func endpointResolver(endpoint, signingRegion string) aws.EndpointResolverWithOptionsFunc {
	return func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if service == s3.ServiceID {
			return aws.Endpoint{
				URL:               endpoint,
				SigningRegion:     signingRegion,
				HostnameImmutable: true,
			}, nil
		}

		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	}
}
