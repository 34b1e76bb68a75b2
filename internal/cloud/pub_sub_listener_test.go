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

package cloud

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

type handlerFunc func(ctx context.Context, payload []byte) *model.Result

func (f handlerFunc) Handle(ctx context.Context, payload []byte) *model.Result {
	return f(ctx, payload)
}

func TestShouldAck(t *testing.T) {
	acked := map[model.Outcome]bool{
		model.OutcomeDone:              true,
		model.OutcomeUnsupportedFormat: true,
		model.OutcomeNoFileInput:       true,
		model.OutcomeInvalidPayload:    true,
		model.OutcomeInvalidReference:  true,
		model.OutcomeDecodeError:       true,
		model.OutcomeAnalysisFailed:    false,
		model.OutcomeStoreWriteFailed:  false,
		model.OutcomeCanceled:          false,
		model.OutcomeInternalError:     false,
	}
	for outcome, want := range acked {
		assert.Equal(t, want, ShouldAck(outcome), outcome)
	}
}

func TestListenerProcessAppliesDeadlineAndPolicy(t *testing.T) {
	var seen []byte
	var hadDeadline bool
	listener := &PubSubListener{
		timeout: time.Minute,
		handler: handlerFunc(func(ctx context.Context, payload []byte) *model.Result {
			seen = payload
			_, hadDeadline = ctx.Deadline()
			return &model.Result{Outcome: model.OutcomeStoreWriteFailed}
		}),
	}

	ack := listener.process(context.Background(), "m-1", []byte(`{"id":"1"}`))

	assert.False(t, ack)
	assert.True(t, hadDeadline)
	assert.Equal(t, `{"id":"1"}`, string(seen))
}

func TestListenerProcessAcksNoOps(t *testing.T) {
	listener := &PubSubListener{
		handler: handlerFunc(func(ctx context.Context, _ []byte) *model.Result {
			_, ok := ctx.Deadline()
			assert.False(t, ok, "no deadline without a configured timeout")
			return &model.Result{Outcome: model.OutcomeUnsupportedFormat}
		}),
	}
	assert.True(t, listener.process(context.Background(), "m-2", nil))
}

func TestSetHandlerKeepsFirst(t *testing.T) {
	first := handlerFunc(func(context.Context, []byte) *model.Result { return &model.Result{Outcome: model.OutcomeDone} })
	second := handlerFunc(func(context.Context, []byte) *model.Result { return &model.Result{Outcome: model.OutcomeCanceled} })

	listener := &PubSubListener{}
	listener.SetHandler(first)
	listener.SetHandler(second)

	assert.True(t, listener.process(context.Background(), "m-3", nil))
}
