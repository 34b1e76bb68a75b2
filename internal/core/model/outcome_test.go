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
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

func TestOutcomeClassification(t *testing.T) {
	cases := []struct {
		outcome   model.Outcome
		succeeded bool
		retryable bool
	}{
		{model.OutcomeDone, true, false},
		{model.OutcomeUnsupportedFormat, true, false},
		{model.OutcomeNoFileInput, true, false},
		{model.OutcomeInvalidPayload, false, false},
		{model.OutcomeInvalidReference, false, false},
		{model.OutcomeDecodeError, false, false},
		{model.OutcomeAnalysisFailed, false, true},
		{model.OutcomeStoreWriteFailed, false, true},
		{model.OutcomeCanceled, false, true},
		{model.OutcomeInternalError, false, true},
	}
	for _, tc := range cases {
		t.Run(string(tc.outcome), func(t *testing.T) {
			assert.Equal(t, tc.succeeded, tc.outcome.Succeeded())
			assert.Equal(t, tc.retryable, tc.outcome.Retryable())
		})
	}
}

func TestOutcomeForKind(t *testing.T) {
	assert.Equal(t, model.OutcomeInvalidPayload, model.OutcomeForKind(model.KindInvalidPayload))
	assert.Equal(t, model.OutcomeInvalidReference, model.OutcomeForKind(model.KindInvalidReference))
	assert.Equal(t, model.OutcomeAnalysisFailed, model.OutcomeForKind(model.KindAnalysisFailed))
	assert.Equal(t, model.OutcomeDecodeError, model.OutcomeForKind(model.KindDecodeError))
	assert.Equal(t, model.OutcomeStoreWriteFailed, model.OutcomeForKind(model.KindStoreWriteFailed))
	assert.Equal(t, model.OutcomeCanceled, model.OutcomeForKind(model.KindCanceled))
	assert.Equal(t, model.OutcomeInternalError, model.OutcomeForKind(model.KindInternal))
	assert.Equal(t, model.OutcomeInternalError, model.OutcomeForKind("something-else"))
}

func TestErrorKindSurvivesWrapping(t *testing.T) {
	inner := model.WrapError(model.KindStoreWriteFailed, "write-thumbnail", "upload failed", context.DeadlineExceeded)
	err := fmt.Errorf("stage: %w", inner)

	assert.Equal(t, model.KindStoreWriteFailed, model.KindOf(err))
	assert.True(t, model.IsKind(err, model.KindStoreWriteFailed))
	assert.False(t, model.IsKind(err, model.KindDecodeError))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "write-thumbnail: upload failed: context deadline exceeded", inner.Error())

	assert.Equal(t, model.KindInternal, model.KindOf(errors.New("plain")))
	assert.Equal(t, "analyze: analysis_failed", model.NewError(model.KindAnalysisFailed, "analyze", "").Error())
}
