// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/blob"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/reference"
)

// S3API is the part of *s3.Client used by S3BlobStore.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds an S3 client from the default AWS credential chain.
// A configured endpoint targets S3-compatible servers such as MinIO.
func NewS3Client(ctx context.Context, cfg Storage) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	}), nil
}

// S3BlobStore implements blob.Store on Amazon S3 or a compatible server.
type S3BlobStore struct {
	client S3API
}

func NewS3BlobStore(client S3API) *S3BlobStore {
	return &S3BlobStore{client: client}
}

func (s *S3BlobStore) Read(ctx context.Context, ref model.SourceReference) (io.ReadCloser, error) {
	loc, err := reference.Locate(ref.URL)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Container),
		Key:    aws.String(loc.Object),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noKey) || errors.As(err, &noBucket) {
			return nil, fmt.Errorf("s3://%s/%s: %w", loc.Container, loc.Object, blob.ErrNotFound)
		}
		return nil, fmt.Errorf("reading s3://%s/%s: %w", loc.Container, loc.Object, err)
	}
	return out.Body, nil
}

func (s *S3BlobStore) Write(ctx context.Context, container, name string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(container),
		Key:           aws.String(name),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("writing s3://%s/%s: %w", container, name, err)
	}
	return nil
}
