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

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. Each kind maps onto exactly one Outcome.
type Kind string

const (
	KindInvalidPayload   Kind = "invalid_payload"
	KindInvalidReference Kind = "invalid_reference"
	KindAnalysisFailed   Kind = "analysis_failed"
	KindDecodeError      Kind = "decode_error"
	KindStoreWriteFailed Kind = "store_write_failed"
	KindCanceled         Kind = "canceled"
	KindInternal         Kind = "internal"
)

// Error is the error type returned by every stage of the thumbnail pipeline.
// Op names the stage that failed (for example "analyze" or "compose").
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates an Error without an underlying cause.
func NewError(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// WrapError creates an Error around cause. A nil cause still yields an error.
func WrapError(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// KindOf returns the Kind of the first *Error found in err's chain, or
// KindInternal when err carries no classification.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
