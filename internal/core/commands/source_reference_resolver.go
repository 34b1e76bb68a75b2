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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file turns the
// upload event into a thumbnail job.
//
// Logic Flow:
//  1. Read the `*model.UploadEvent` from the context.
//  2. Derive the destination name from the last path segment of the source URL.
//  3. Resolve the codec from the name's extension.
//  4. Store the `*model.ThumbnailJob`; when the codec is unsupported, halt the
//     chain with the UnsupportedFormat outcome instead of failing.
package commands

import (
	"log/slog"
	"path"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/codec"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/cor"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/reference"
)

type SourceReferenceResolver struct {
	cor.BaseCommand
	container string // Destination container for every thumbnail.
}

func NewSourceReferenceResolver(name string, container string) *SourceReferenceResolver {
	return &SourceReferenceResolver{
		BaseCommand: *cor.NewBaseCommandWithParams(name, model.KeyEvent, model.KeyJob),
		container:   container,
	}
}

func (c *SourceReferenceResolver) Execute(context cor.Context) {
	event := context.Get(c.GetInputParam()).(*model.UploadEvent)

	name, err := reference.ExtractName(event.Source.URL)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	job := &model.ThumbnailJob{
		Source:      event.Source,
		Container:   c.container,
		Destination: name,
		Codec:       codec.Resolve(path.Ext(name)),
	}
	context.Add(c.GetOutputParam(), job)

	if !job.Codec.Supported() {
		slog.InfoContext(context.GetContext(), "skipping unsupported format", "source_url", event.Source.URL, "name", name)
		context.Halt(string(model.OutcomeUnsupportedFormat))
		return
	}
	c.GetSuccessCounter().Add(context.GetContext(), 1)
}
