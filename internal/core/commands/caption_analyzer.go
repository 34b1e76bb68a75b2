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

package commands

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/cor"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

// Captioner produces one caption for an image. *analyzer.CaptionClient is
// the production implementation.
type Captioner interface {
	Caption(ctx context.Context, image []byte) (model.Caption, error)
}

// CaptionAnalyzer asks the image analyzer for a caption of the source bytes.
type CaptionAnalyzer struct {
	cor.BaseCommand
	captioner Captioner
}

func NewCaptionAnalyzer(name string, captioner Captioner) *CaptionAnalyzer {
	return &CaptionAnalyzer{
		BaseCommand: *cor.NewBaseCommandWithParams(name, model.KeySourceBytes, model.KeyCaption),
		captioner:   captioner,
	}
}

func (c *CaptionAnalyzer) Execute(context cor.Context) {
	ctx := context.GetContext()
	image := context.Get(c.GetInputParam()).([]byte)

	caption, err := c.captioner.Caption(ctx, image)
	if err != nil {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), err)
		return
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("caption.text", caption.Text),
		attribute.Float64("caption.confidence", caption.Confidence),
	)
	slog.DebugContext(ctx, "caption generated", "caption", caption.Text, "confidence", caption.Confidence)
	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(c.GetOutputParam(), caption)
}
