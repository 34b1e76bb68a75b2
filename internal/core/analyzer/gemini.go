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
	"fmt"
	"text/template"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-image-captioner/internal/cloud"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/cor"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

// GeminiAnalyzer sends the image inline to a Gemini model, normally a
// rate limited cloud.QuotaAwareGenerativeAIModel.
type GeminiAnalyzer struct {
	model              cloud.ContentGenerator
	template           *template.Template
	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
}

func NewGeminiAnalyzer(generator cloud.ContentGenerator, prompt *template.Template) *GeminiAnalyzer {
	out := &GeminiAnalyzer{model: generator, template: prompt}
	meter := otel.Meter(cor.MeterName)
	out.inputTokenCounter, _ = meter.Int64Counter("analyzer.gemini.token.input")
	out.outputTokenCounter, _ = meter.Int64Counter("analyzer.gemini.token.output")
	return out
}

func (g *GeminiAnalyzer) Analyze(ctx context.Context, image []byte, features model.FeatureSet) (*model.ImageAnalysis, error) {
	mimeType, err := sniffImage(image)
	if err != nil {
		return nil, err
	}
	prompt, err := renderPrompt(g.template, features)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{cloud.NewTextPart(prompt), cloud.NewImagePart(image, mimeType)},
		},
	}
	out, err := cloud.GenerateMultiModalResponse(ctx, g.inputTokenCounter, g.outputTokenCounter, g.model, contents)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	return decodeAnalysis(out)
}
