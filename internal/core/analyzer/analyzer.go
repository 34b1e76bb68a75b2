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

// Package analyzer turns image bytes into a caption. It defines the
// ImageAnalyzer capability, implemented on Gemini (Vertex AI) and on any
// OpenAI-compatible vision endpoint, and the CaptionClient adapter the
// pipeline calls.
//
// Logic Flow:
//  1. The image type is sniffed; bytes that are not an image never reach a model.
//  2. A prompt is rendered from a template naming the requested features and
//     an example answer.
//  3. The model answers with JSON decoded into model.ImageAnalysis.
//  4. CaptionClient picks the top ranked caption.
package analyzer

import (
	"context"
	"errors"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

// ImageAnalyzer describes an image. Implementations must be safe for
// concurrent use.
type ImageAnalyzer interface {
	Analyze(ctx context.Context, image []byte, features model.FeatureSet) (*model.ImageAnalysis, error)
}

// CaptionClient requests an analysis and extracts its best caption.
type CaptionClient struct {
	Analyzer ImageAnalyzer
	Features model.FeatureSet
}

// NewCaptionClient always requests a description on top of features. An
// empty feature set selects model.DefaultFeatures.
func NewCaptionClient(analyzer ImageAnalyzer, features model.FeatureSet) *CaptionClient {
	if len(features) == 0 {
		features = model.DefaultFeatures
	}
	return &CaptionClient{Analyzer: analyzer, Features: features.WithDescription()}
}

// Caption makes exactly one analyzer call.
//
// Errors:
//   - KindDecodeError when the bytes are not an image the analyzer accepts.
//   - KindCanceled when ctx ended during the call.
//   - KindAnalysisFailed for any other failure, and when no caption came back.
func (c *CaptionClient) Caption(ctx context.Context, image []byte) (model.Caption, error) {
	analysis, err := c.Analyzer.Analyze(ctx, image, c.Features)
	if err != nil {
		switch {
		case model.IsKind(err, model.KindDecodeError):
			return model.Caption{}, err
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return model.Caption{}, model.WrapError(model.KindCanceled, "analyze", "analysis interrupted", err)
		default:
			return model.Caption{}, model.WrapError(model.KindAnalysisFailed, "analyze", "image analysis failed", err)
		}
	}
	caption, ok := analysis.FirstCaption()
	if !ok {
		return model.Caption{}, model.NewError(model.KindAnalysisFailed, "analyze", "analysis returned no caption candidates")
	}
	return caption, nil
}
