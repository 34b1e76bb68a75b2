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
// This file, `queries.go`, centralizes the BigQuery SQL used by the services.
// The table name is injected with `fmt.Sprintf`; values are always passed as
// named query parameters.
package services

const (
	// QryFindThumbnailById returns the most recent ledger row for a record id.
	// Redelivered events append rows with the same id, so only the latest
	// one is relevant.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the thumbnail table.
	// - `@id`: The record id, see model.RecordID.
	QryFindThumbnailById = "SELECT * FROM `%s` WHERE id = @id ORDER BY create_date DESC LIMIT 1"

	// QryListRecentThumbnails lists the latest row of each source, newest first.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the thumbnail table.
	// - `@limit`: The maximum number of rows.
	QryListRecentThumbnails = "SELECT * FROM `%s` WHERE true QUALIFY ROW_NUMBER() OVER (PARTITION BY id ORDER BY create_date DESC) = 1 ORDER BY create_date DESC LIMIT @limit"
)
