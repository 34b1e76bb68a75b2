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
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/codec"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/cor"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

// Composer resizes an image and draws the caption on it.
// *thumbnail.Compositor is the production implementation.
type Composer interface {
	Compose(src []byte, c codec.Codec, caption model.Caption) (*model.Thumbnail, error)
}

// ThumbnailComposer renders the thumbnail from the source bytes, the job's
// codec and the caption.
type ThumbnailComposer struct {
	cor.BaseCommand
	composer Composer
}

func NewThumbnailComposer(name string, composer Composer) *ThumbnailComposer {
	return &ThumbnailComposer{
		BaseCommand: *cor.NewBaseCommandWithParams(name, model.KeySourceBytes, model.KeyThumbnail),
		composer:    composer,
	}
}

func (c *ThumbnailComposer) IsExecutable(context cor.Context) bool {
	return c.BaseCommand.IsExecutable(context) &&
		context.Get(model.KeyJob) != nil &&
		context.Get(model.KeyCaption) != nil
}

func (c *ThumbnailComposer) Execute(context cor.Context) {
	ctx := context.GetContext()
	src := context.Get(c.GetInputParam()).([]byte)
	job := context.Get(model.KeyJob).(*model.ThumbnailJob)
	caption := context.Get(model.KeyCaption).(model.Caption)

	thumb, err := c.composer.Compose(src, job.Codec, caption)
	if err != nil {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), err)
		return
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("thumbnail.width", thumb.Width),
		attribute.Int("thumbnail.height", thumb.Height),
		attribute.Int("thumbnail.bytes", len(thumb.Data)),
	)
	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(c.GetOutputParam(), thumb)
}
