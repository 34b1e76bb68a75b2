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

package analyzer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"text/template"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/cor"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

// OpenAIConfig configures an OpenAI-compatible vision endpoint.
type OpenAIConfig struct {
	Endpoint  string // Base URL, e.g. https://api.openai.com/v1.
	Key       string
	Model     string
	RateLimit int // Requests per second; 0 disables limiting.
}

// OpenAIAnalyzer calls the chat completions API with the image embedded as a
// data URL and a JSON response format.
type OpenAIAnalyzer struct {
	client             *openai.Client
	model              string
	limiter            *rate.Limiter
	template           *template.Template
	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
}

func NewOpenAIAnalyzer(cfg OpenAIConfig, prompt *template.Template) *OpenAIAnalyzer {
	clientConfig := openai.DefaultConfig(cfg.Key)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}

	limit, burst := rate.Inf, 1
	if cfg.RateLimit > 0 {
		limit, burst = rate.Every(time.Second/time.Duration(cfg.RateLimit)), cfg.RateLimit
	}

	out := &OpenAIAnalyzer{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    cfg.Model,
		limiter:  rate.NewLimiter(limit, burst),
		template: prompt,
	}
	meter := otel.Meter(cor.MeterName)
	out.inputTokenCounter, _ = meter.Int64Counter("analyzer.openai.token.input")
	out.outputTokenCounter, _ = meter.Int64Counter("analyzer.openai.token.output")
	return out
}

func (o *OpenAIAnalyzer) Analyze(ctx context.Context, image []byte, features model.FeatureSet) (*model.ImageAnalysis, error) {
	mimeType, err := sniffImage(image)
	if err != nil {
		return nil, err
	}
	prompt, err := renderPrompt(o.template, features)
	if err != nil {
		return nil, err
	}
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for vision quota: %w", err)
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image)),
							Detail: openai.ImageURLDetailLow,
						},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}
	o.inputTokenCounter.Add(ctx, int64(resp.Usage.PromptTokens))
	o.outputTokenCounter.Add(ctx, int64(resp.Usage.CompletionTokens))

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, errors.New("vision response has no content")
	}
	return decodeAnalysis(resp.Choices[0].Message.Content)
}
