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

package model_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

func TestParseEventGrid(t *testing.T) {
	payload := `{"id":"e1","eventType":"Microsoft.Storage.BlobCreated","subject":"/blobServices/default/containers/images/blobs/cat.jpg",
		"data":{"url":"https://acct.blob.core.windows.net/images/cat.jpg","contentType":"image/jpeg","contentLength":42}}`

	evt, err := model.ParseUploadEvent([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, model.SchemaEventGrid, evt.Schema)
	assert.Equal(t, "e1", evt.ID)
	assert.Equal(t, "Microsoft.Storage.BlobCreated", evt.Type)
	assert.Equal(t, "https://acct.blob.core.windows.net/images/cat.jpg", evt.Source.URL)
	assert.Equal(t, "image/jpeg", evt.ContentType)
	assert.EqualValues(t, 42, evt.ContentLength)
}

func TestParseSingleElementBatch(t *testing.T) {
	evt, err := model.ParseUploadEvent([]byte(`[{"data":{"url":"https://x/c/a.png"}}]`))
	require.NoError(t, err)
	assert.Equal(t, "https://x/c/a.png", evt.Source.URL)

	_, err = model.ParseUploadEvent([]byte(`[{"data":{"url":"https://x/c/a.png"}},{"data":{"url":"https://x/c/b.png"}}]`))
	assert.True(t, model.IsKind(err, model.KindInvalidPayload))
}

func TestParseCloudEvent(t *testing.T) {
	payload := `{"specversion":"1.0","id":"c1","type":"google.cloud.storage.object.v1.finalized",
		"data":{"bucket":"uploads","name":"dir/cat.png","size":"1024"}}`

	evt, err := model.ParseUploadEvent([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, model.SchemaCloudEvent, evt.Schema)
	assert.Equal(t, "google.cloud.storage.object.v1.finalized", evt.Type)
	assert.Equal(t, "gs://uploads/dir/cat.png", evt.Source.URL)
	assert.EqualValues(t, 1024, evt.ContentLength)
}

func TestParseGCSNotification(t *testing.T) {
	evt, err := model.ParseUploadEvent([]byte(`{"kind":"storage#object","id":"n1","bucket":"uploads","name":"cat.png","size":"7"}`))
	require.NoError(t, err)
	assert.Equal(t, model.SchemaGCSNotification, evt.Schema)
	assert.Equal(t, "gs://uploads/cat.png", evt.Source.URL)
	assert.EqualValues(t, 7, evt.ContentLength)
}

func TestParsePubSubPush(t *testing.T) {
	inner := `{"data":{"url":"https://acct.blob.core.windows.net/images/cat.jpg"}}`
	push, err := json.Marshal(map[string]any{
		"message": map[string]any{"data": []byte(inner), "messageId": "m1"},
	})
	require.NoError(t, err)

	evt, err := model.ParseUploadEvent(push)
	require.NoError(t, err)
	assert.Equal(t, "m1", evt.ID)
	assert.Equal(t, "https://acct.blob.core.windows.net/images/cat.jpg", evt.Source.URL)

	attrs := `{"message":{"messageId":"m2","attributes":{"bucketId":"uploads","objectId":"dog.png","eventType":"OBJECT_FINALIZE"}}}`
	evt, err = model.ParseUploadEvent([]byte(attrs))
	require.NoError(t, err)
	assert.Equal(t, "gs://uploads/dog.png", evt.Source.URL)
	assert.Equal(t, "OBJECT_FINALIZE", evt.Type)
}

func TestParseRejectsInvalidPayloads(t *testing.T) {
	for name, payload := range map[string]string{
		"empty":        "",
		"not json":     "hello",
		"no url":       `{"data":{"contentType":"image/png"}}`,
		"blank url":    `{"data":{"url":"   "}}`,
		"empty batch":  `[]`,
		"bad data":     `{"data":"just a string"}`,
		"push nothing": `{"message":{"messageId":"m"}}`,
		"no fields":    `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := model.ParseUploadEvents([]byte(payload))
			require.Error(t, err)
			assert.True(t, model.IsKind(err, model.KindInvalidPayload), err.Error())
		})
	}
}
