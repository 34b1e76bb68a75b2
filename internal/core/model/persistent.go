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

// Package model defines the data structures for the application. This file,
// `persistent.go`, holds the thumbnail ledger row written to BigQuery after
// each invocation.
package model

import (
	"time"

	"github.com/google/uuid"
)

// ThumbnailRecord is one row of the thumbnail ledger. The ID is derived from
// the source URL so that redelivered events address the same row.
type ThumbnailRecord struct {
	Id          string    `json:"id" bigquery:"id"`
	SourceUrl   string    `json:"source_url" bigquery:"source_url"`
	Container   string    `json:"container" bigquery:"container"`
	Destination string    `json:"destination" bigquery:"destination"`
	Codec       string    `json:"codec" bigquery:"codec"`
	Caption     string    `json:"caption" bigquery:"caption"`
	Width       int       `json:"width" bigquery:"width"`
	Height      int       `json:"height" bigquery:"height"`
	Outcome     string    `json:"outcome" bigquery:"outcome"`
	Error       string    `json:"error,omitempty" bigquery:"error"`
	CreateDate  time.Time `json:"create_date" bigquery:"create_date"`
}

// RecordID returns the stable ledger identifier for a source URL.
func RecordID(sourceURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(sourceURL)).String()
}

// NewThumbnailRecord builds the ledger row for a finished invocation.
func NewThumbnailRecord(r *Result) *ThumbnailRecord {
	return &ThumbnailRecord{
		Id:          RecordID(r.SourceURL),
		SourceUrl:   r.SourceURL,
		Container:   r.Container,
		Destination: r.Destination,
		Codec:       r.Codec,
		Caption:     r.Caption,
		Width:       r.Width,
		Height:      r.Height,
		Outcome:     string(r.Outcome),
		Error:       r.Error,
		CreateDate:  time.Now(),
	}
}
