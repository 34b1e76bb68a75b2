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

// Package cloud contains the Google Cloud Storage implementation of the blob
// store, plus URL signing through the IAM credentials API so that no private
// key has to be present on the host.
//
// Structs:
//   - GCSBlobStore: Reads sources and writes thumbnails with cloud.google.com/go/storage.
//   - IAMURLSigner: Produces V4 signed GET URLs for stored thumbnails.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/blob"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/reference"
)

// GCSBlobStore implements blob.Store on Google Cloud Storage. Source URLs may
// use the gs:// scheme or any https form understood by reference.Locate.
type GCSBlobStore struct {
	client *storage.Client
}

func NewGCSBlobStore(client *storage.Client) *GCSBlobStore {
	return &GCSBlobStore{client: client}
}

// Read opens a streaming reader on the referenced object.
func (s *GCSBlobStore) Read(ctx context.Context, ref model.SourceReference) (io.ReadCloser, error) {
	loc, err := reference.Locate(ref.URL)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(loc.Container).Object(loc.Object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return nil, fmt.Errorf("gs://%s/%s: %w", loc.Container, loc.Object, blob.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("opening gs://%s/%s: %w", loc.Container, loc.Object, err)
	}
	return r, nil
}

// Write uploads data, replacing any object of the same name. The object only
// becomes visible once the writer closes successfully.
func (s *GCSBlobStore) Write(ctx context.Context, container, name string, data []byte, contentType string) error {
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.client.Bucket(container).Object(name).NewWriter(writeCtx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		// Canceling the context before Close discards the partial upload.
		cancel()
		_ = w.Close()
		return fmt.Errorf("writing gs://%s/%s: %w", container, name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing gs://%s/%s: %w", container, name, err)
	}
	return nil
}

// IAMURLSigner signs GCS URLs with the IAM SignBlob API on behalf of a
// service account.
type IAMURLSigner struct {
	storage *storage.Client
	iam     *credentials.IamCredentialsClient
	email   string
	ttl     time.Duration
}

func NewIAMURLSigner(sc *storage.Client, iam *credentials.IamCredentialsClient, serviceAccountEmail string, ttl time.Duration) *IAMURLSigner {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &IAMURLSigner{storage: sc, iam: iam, email: serviceAccountEmail, ttl: ttl}
}

// SignedURL returns a V4 signed GET URL for container/name.
func (s *IAMURLSigner) SignedURL(ctx context.Context, container, name string) (string, error) {
	if s.iam == nil || s.email == "" {
		return "", errors.New("url signing is not configured")
	}
	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		GoogleAccessID: s.email,
		Expires:        time.Now().Add(s.ttl),
		SignBytes: func(payload []byte) ([]byte, error) {
			resp, err := s.iam.SignBlob(ctx, &credentialspb.SignBlobRequest{
				Name:    "projects/-/serviceAccounts/" + s.email,
				Payload: payload,
			})
			if err != nil {
				return nil, err
			}
			return resp.SignedBlob, nil
		},
	}
	return s.storage.Bucket(container).SignedURL(name, opts)
}
