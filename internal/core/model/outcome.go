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

package model

import "time"

// Outcome is the terminal state of a single pipeline invocation.
type Outcome string

const (
	OutcomeDone              Outcome = "Done"
	OutcomeUnsupportedFormat Outcome = "UnsupportedFormat"
	OutcomeNoFileInput       Outcome = "NoFileInput"
	OutcomeInvalidPayload    Outcome = "InvalidPayload"
	OutcomeInvalidReference  Outcome = "InvalidReference"
	OutcomeAnalysisFailed    Outcome = "AnalysisFailed"
	OutcomeDecodeError       Outcome = "DecodeError"
	OutcomeStoreWriteFailed  Outcome = "StoreWriteFailed"
	OutcomeCanceled          Outcome = "Canceled"
	OutcomeInternalError     Outcome = "InternalError"
)

// Succeeded reports whether the invocation ended without a failure. The two
// no-op outcomes count as success from the host's perspective.
func (o Outcome) Succeeded() bool {
	switch o {
	case OutcomeDone, OutcomeUnsupportedFormat, OutcomeNoFileInput:
		return true
	}
	return false
}

// Retryable reports whether redelivering the same event may produce a
// different result. Malformed events and corrupt images never will.
func (o Outcome) Retryable() bool {
	switch o {
	case OutcomeAnalysisFailed, OutcomeStoreWriteFailed, OutcomeCanceled, OutcomeInternalError:
		return true
	}
	return false
}

// OutcomeForKind maps an error classification onto its outcome.
func OutcomeForKind(kind Kind) Outcome {
	switch kind {
	case KindInvalidPayload:
		return OutcomeInvalidPayload
	case KindInvalidReference:
		return OutcomeInvalidReference
	case KindAnalysisFailed:
		return OutcomeAnalysisFailed
	case KindDecodeError:
		return OutcomeDecodeError
	case KindStoreWriteFailed:
		return OutcomeStoreWriteFailed
	case KindCanceled:
		return OutcomeCanceled
	default:
		return OutcomeInternalError
	}
}

// Result is the report of one invocation. It is what the host logs, what the
// HTTP endpoint returns and what the result sinks publish.
type Result struct {
	InvocationID string        `json:"invocation_id"`
	EventID      string        `json:"event_id,omitempty"`
	SourceURL    string        `json:"source_url,omitempty"`
	Outcome      Outcome       `json:"outcome"`
	Stage        string        `json:"stage,omitempty"`
	Container    string        `json:"container,omitempty"`
	Destination  string        `json:"destination,omitempty"`
	Codec        string        `json:"codec,omitempty"`
	Caption      string        `json:"caption,omitempty"`
	Width        int           `json:"width,omitempty"`
	Height       int           `json:"height,omitempty"`
	Bytes        int           `json:"bytes,omitempty"`
	Error        string        `json:"error,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration_ns"`
	Err          error         `json:"-"`
}
