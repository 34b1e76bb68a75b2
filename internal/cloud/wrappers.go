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
// This file implements a decorator around the Generative AI models handle that
// enforces a client side request rate, so that the Vertex AI quota is not
// exhausted by bursts of uploads.
//
// Structs:
//   - QuotaAwareGenerativeAIModel: Wraps `genai.Models` with a model name, a
//     generation config and a rate limiter.
//
// Functions:
//   - NewQuotaAwareModel: A constructor to create a new instance of the wrapped model.
//   - GenerateContent: Waits for a rate limiter token, then calls the model once.
package cloud

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ContentGenerator is the narrow view of a generative model used by the
// analyzer. QuotaAwareGenerativeAIModel implements it; tests use fakes.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error)
}

// QuotaAwareGenerativeAIModel binds a model name and generation config to the
// shared models handle and limits the request rate.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig
	ModelName               string
	ModelHandle             *genai.Models
	RateLimit               *rate.Limiter
}

// NewQuotaAwareModel creates the wrapper. A non-positive requestsPerSecond
// disables limiting.
//
// Inputs:
//   - config: The generation config applied to every request.
//   - name: The model name (e.g., "gemini-2.0-flash").
//   - handle: The Models service of a genai client.
//   - requestsPerSecond: The sustained request rate, also used as the burst.
//
// Outputs:
//   - *QuotaAwareGenerativeAIModel: A pointer to the newly created wrapper.
func NewQuotaAwareModel(config *genai.GenerateContentConfig, name string, handle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Every(time.Second / time.Duration(requestsPerSecond))
		burst = requestsPerSecond
	}
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: config,
		ModelName:               name,
		ModelHandle:             handle,
		RateLimit:               rate.NewLimiter(limit, burst),
	}
}

// GenerateContent blocks until the limiter admits the request or ctx ends,
// then performs a single call.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for %s quota: %w", q.ModelName, err)
	}
	return q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
}
