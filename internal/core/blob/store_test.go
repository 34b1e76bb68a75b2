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

package blob_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/blob"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

func TestMemoryStoreReadByReference(t *testing.T) {
	store := blob.NewMemoryStore()
	store.Put("uploads", "holiday/cat.jpg", []byte("jpeg-bytes"), "image/jpeg")

	for _, u := range []string{
		"gs://uploads/holiday/cat.jpg",
		"https://storage.googleapis.com/uploads/holiday/cat.jpg",
	} {
		rc, err := store.Read(context.Background(), model.SourceReference{URL: u})
		require.NoError(t, err, u)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.NoError(t, rc.Close())
		assert.Equal(t, "jpeg-bytes", string(data))
	}
}

func TestMemoryStoreReadMissing(t *testing.T) {
	store := blob.NewMemoryStore()
	_, err := store.Read(context.Background(), model.SourceReference{URL: "gs://uploads/none.png"})
	assert.ErrorIs(t, err, blob.ErrNotFound)

	_, err = store.Read(context.Background(), model.SourceReference{URL: "not a url"})
	assert.True(t, model.IsKind(err, model.KindInvalidReference))
}

func TestMemoryStoreWriteOverwrites(t *testing.T) {
	store := blob.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "thumbs", "cat.jpg", []byte("first"), "image/jpeg"))
	require.NoError(t, store.Write(ctx, "thumbs", "cat.jpg", []byte("second"), "image/jpeg"))

	obj, ok := store.Get("thumbs", "cat.jpg")
	require.True(t, ok)
	assert.Equal(t, "second", string(obj.Data))
	assert.Equal(t, []string{"cat.jpg"}, store.Names("thumbs"))
	assert.Equal(t, 2, store.Writes())
}

func TestMemoryStoreHonoursCanceledContext(t *testing.T) {
	store := blob.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Write(ctx, "thumbs", "a.png", []byte("x"), "image/png"), context.Canceled)
	assert.Zero(t, store.Writes())
}
