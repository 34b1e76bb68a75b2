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

// Package cloud provides components for interacting with Google Cloud services.
// This file holds the outcome sinks backed by Google Cloud: every finished
// invocation can be appended to the BigQuery thumbnail ledger and published
// as a JSON event on a Pub/Sub topic.
package cloud

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/pubsub"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

// RowInserter is the part of *bigquery.Inserter the recorder uses.
type RowInserter interface {
	Put(ctx context.Context, src interface{}) error
}

// BigQueryResultRecorder appends one ledger row per invocation.
type BigQueryResultRecorder struct {
	inserter RowInserter
	table    string
}

func NewBigQueryResultRecorder(client *bigquery.Client, dataset, table string) *BigQueryResultRecorder {
	return NewBigQueryResultRecorderWithInserter(client.Dataset(dataset).Table(table).Inserter(), dataset+"."+table)
}

// NewBigQueryResultRecorderWithInserter records through inserter; table
// only names the sink.
func NewBigQueryResultRecorderWithInserter(inserter RowInserter, table string) *BigQueryResultRecorder {
	return &BigQueryResultRecorder{inserter: inserter, table: table}
}

func (r *BigQueryResultRecorder) Name() string {
	return "bigquery:" + r.table
}

// Record inserts the row. The invocation ID doubles as the insert ID so a
// retried insert of the same invocation is deduplicated by BigQuery.
func (r *BigQueryResultRecorder) Record(ctx context.Context, result *model.Result) error {
	if result.SourceURL == "" {
		// Payloads that never named a source have nothing to key a row on.
		return nil
	}
	row := &bigquery.StructSaver{
		Struct:   model.NewThumbnailRecord(result),
		InsertID: result.InvocationID,
	}
	if err := r.inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("bigquery insert for %s failed: %w", result.SourceURL, err)
	}
	return nil
}

// PubSubResultPublisher publishes every result as JSON with the outcome as
// a message attribute, so subscribers can filter on it.
type PubSubResultPublisher struct {
	topic *pubsub.Topic
}

func NewPubSubResultPublisher(client *pubsub.Client, topic string) *PubSubResultPublisher {
	return &PubSubResultPublisher{topic: client.Topic(topic)}
}

func (p *PubSubResultPublisher) Name() string {
	return "pubsub:" + p.topic.ID()
}

// Record publishes and waits for the server acknowledgement.
func (p *PubSubResultPublisher) Record(ctx context.Context, result *model.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	res := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"outcome":    string(result.Outcome),
			"source_url": result.SourceURL,
		},
	})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("publishing result to %s: %w", p.topic.ID(), err)
	}
	return nil
}

// Stop flushes pending messages.
func (p *PubSubResultPublisher) Stop() {
	p.topic.Stop()
}
