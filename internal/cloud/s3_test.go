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

package cloud_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-image-captioner/internal/cloud"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/blob"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

type fakeS3 struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
	putErr  error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("not found")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func TestS3BlobStoreRead(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"uploads/cats/cat.jpg": []byte("jpeg")}}
	store := cloud.NewS3BlobStore(fake)

	for _, url := range []string{
		"s3://uploads/cats/cat.jpg",
		"https://uploads.s3.eu-west-1.amazonaws.com/cats/cat.jpg",
	} {
		r, err := store.Read(context.Background(), model.SourceReference{URL: url})
		require.NoError(t, err, url)
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "jpeg", string(data))
		require.NoError(t, r.Close())
	}

	_, err := store.Read(context.Background(), model.SourceReference{URL: "s3://uploads/missing.png"})
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestS3BlobStoreWrite(t *testing.T) {
	fake := &fakeS3{}
	store := cloud.NewS3BlobStore(fake)

	require.NoError(t, store.Write(context.Background(), "thumbs", "cat.jpg", []byte("abc"), "image/jpeg"))
	require.Len(t, fake.puts, 1)
	put := fake.puts[0]
	assert.Equal(t, "thumbs", aws.ToString(put.Bucket))
	assert.Equal(t, "cat.jpg", aws.ToString(put.Key))
	assert.Equal(t, "image/jpeg", aws.ToString(put.ContentType))
	assert.Equal(t, int64(3), aws.ToInt64(put.ContentLength))

	fake.putErr = errors.New("access denied")
	err := store.Write(context.Background(), "thumbs", "cat.jpg", []byte("abc"), "image/jpeg")
	assert.ErrorContains(t, err, "s3://thumbs/cat.jpg")
}
