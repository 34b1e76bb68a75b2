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

// Package services contains the business logic for interacting with data sources.
// This file, `thumbnail.go`, defines the ThumbnailService, which reads the
// thumbnail ledger from BigQuery and hands out time-limited URLs for the
// thumbnails stored in Google Cloud Storage (GCS).
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

// ErrNotFound is returned when the ledger has no row for the requested id.
var ErrNotFound = errors.New("thumbnail not found")

// RecordFinder reads ledger rows.
type RecordFinder interface {
	FindLatest(ctx context.Context, id string) (*model.ThumbnailRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*model.ThumbnailRecord, error)
}

// URLSigner issues a time-limited read URL for a stored object.
type URLSigner interface {
	SignedURL(ctx context.Context, container, name string) (string, error)
}

// ThumbnailView is a ledger row with a URL the caller can fetch.
type ThumbnailView struct {
	*model.ThumbnailRecord
	URL string `json:"url,omitempty"`
}

// ThumbnailService answers thumbnail lookups for the HTTP API.
type ThumbnailService struct {
	Records RecordFinder
	Signer  URLSigner // Optional. Without it views carry no URL.
}

// Get returns the latest ledger row for id. Only successful rows get a URL,
// since other outcomes never wrote an object.
func (s *ThumbnailService) Get(ctx context.Context, id string) (*ThumbnailView, error) {
	record, err := s.Records.FindLatest(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, record)
}

// GetBySource looks a thumbnail up by the URL of its source image.
func (s *ThumbnailService) GetBySource(ctx context.Context, sourceURL string) (*ThumbnailView, error) {
	return s.Get(ctx, model.RecordID(sourceURL))
}

// List returns the latest row of up to limit sources, newest first.
func (s *ThumbnailService) List(ctx context.Context, limit int) ([]*ThumbnailView, error) {
	records, err := s.Records.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*ThumbnailView, 0, len(records))
	for _, record := range records {
		v, err := s.view(ctx, record)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *ThumbnailService) view(ctx context.Context, record *model.ThumbnailRecord) (*ThumbnailView, error) {
	out := &ThumbnailView{ThumbnailRecord: record}
	if s.Signer == nil || record.Outcome != string(model.OutcomeDone) {
		return out, nil
	}
	u, err := s.Signer.SignedURL(ctx, record.Container, record.Destination)
	if err != nil {
		return nil, fmt.Errorf("failed to sign url for %s/%s: %w", record.Container, record.Destination, err)
	}
	out.URL = u
	return out, nil
}

// BigQueryRecordFinder reads the ledger table written by
// cloud.BigQueryResultRecorder.
type BigQueryRecordFinder struct {
	BigqueryClient *bigquery.Client
	DatasetName    string
	ThumbnailTable string
}

// GetFQN returns the table name formatted for standard SQL,
// e.g. `gcp-project-id.thumbnails_ds.thumbnails`.
func (f *BigQueryRecordFinder) GetFQN() string {
	fqn := f.BigqueryClient.Dataset(f.DatasetName).Table(f.ThumbnailTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

func (f *BigQueryRecordFinder) FindLatest(ctx context.Context, id string) (*model.ThumbnailRecord, error) {
	q := f.BigqueryClient.Query(fmt.Sprintf(QryFindThumbnailById, f.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "id", Value: id}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	record := &model.ThumbnailRecord{}
	err = itr.Next(record)
	if errors.Is(err, iterator.Done) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (f *BigQueryRecordFinder) ListRecent(ctx context.Context, limit int) ([]*model.ThumbnailRecord, error) {
	q := f.BigqueryClient.Query(fmt.Sprintf(QryListRecentThumbnails, f.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "limit", Value: limit}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.ThumbnailRecord, 0)
	for {
		record := &model.ThumbnailRecord{}
		err := itr.Next(record)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}
