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
	"context"
	"encoding/json"
	"errors"
	"testing"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/jaycherian/gcp-go-image-captioner/internal/cloud"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

func fakePubSub(t *testing.T) (*pstest.Server, *pubsub.Client) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(context.Background(), "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestPubSubResultPublisher(t *testing.T) {
	ctx := context.Background()
	srv, client := fakePubSub(t)
	_, err := client.CreateTopic(ctx, "thumbnail-outcomes")
	require.NoError(t, err)

	publisher := cloud.NewPubSubResultPublisher(client, "thumbnail-outcomes")
	defer publisher.Stop()
	assert.Equal(t, "pubsub:thumbnail-outcomes", publisher.Name())

	result := &model.Result{
		InvocationID: "inv-1",
		SourceURL:    "gs://uploads/cat.png",
		Outcome:      model.OutcomeDone,
		Container:    "thumbnails",
		Destination:  "cat.png",
		Caption:      "a cat",
	}
	require.NoError(t, publisher.Record(ctx, result))

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Done", msgs[0].Attributes["outcome"])
	assert.Equal(t, "gs://uploads/cat.png", msgs[0].Attributes["source_url"])

	var got model.Result
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.Equal(t, "inv-1", got.InvocationID)
	assert.Equal(t, "a cat", got.Caption)
}

func TestPubSubResultPublisherMissingTopic(t *testing.T) {
	_, client := fakePubSub(t)
	publisher := cloud.NewPubSubResultPublisher(client, "does-not-exist")
	defer publisher.Stop()

	err := publisher.Record(context.Background(), &model.Result{InvocationID: "inv-2", Outcome: model.OutcomeNoFileInput})
	assert.ErrorContains(t, err, "does-not-exist")
}

type fakeInserter struct {
	rows []interface{}
	err  error
}

func (f *fakeInserter) Put(_ context.Context, src interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, src)
	return nil
}

func TestBigQueryResultRecorder(t *testing.T) {
	inserter := &fakeInserter{}
	recorder := cloud.NewBigQueryResultRecorderWithInserter(inserter, "media.thumbnails")
	assert.Equal(t, "bigquery:media.thumbnails", recorder.Name())

	result := &model.Result{
		InvocationID: "inv-7",
		SourceURL:    "gs://uploads/cat.png",
		Container:    "thumbnails",
		Destination:  "cat.png",
		Codec:        "PNG",
		Caption:      "a cat",
		Outcome:      model.OutcomeDone,
	}
	require.NoError(t, recorder.Record(context.Background(), result))

	require.Len(t, inserter.rows, 1)
	saver, ok := inserter.rows[0].(*bigquery.StructSaver)
	require.True(t, ok)
	assert.Equal(t, "inv-7", saver.InsertID)
	row, ok := saver.Struct.(*model.ThumbnailRecord)
	require.True(t, ok)
	assert.Equal(t, model.RecordID("gs://uploads/cat.png"), row.Id)
	assert.Equal(t, "cat.png", row.Destination)
	assert.Equal(t, string(model.OutcomeDone), row.Outcome)
}

func TestBigQueryResultRecorderSkipsResultsWithoutSource(t *testing.T) {
	inserter := &fakeInserter{}
	recorder := cloud.NewBigQueryResultRecorderWithInserter(inserter, "media.thumbnails")

	result := &model.Result{InvocationID: "inv-8", Outcome: model.OutcomeInvalidPayload}
	require.NoError(t, recorder.Record(context.Background(), result))
	assert.Empty(t, inserter.rows)
}

func TestBigQueryResultRecorderWrapsInsertErrors(t *testing.T) {
	recorder := cloud.NewBigQueryResultRecorderWithInserter(&fakeInserter{err: errors.New("quota exceeded")}, "media.thumbnails")

	err := recorder.Record(context.Background(), &model.Result{InvocationID: "inv-9", SourceURL: "gs://uploads/dog.png"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "gs://uploads/dog.png")
	assert.ErrorContains(t, err, "quota exceeded")
}
