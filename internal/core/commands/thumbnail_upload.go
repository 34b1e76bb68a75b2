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
// Responsibility (COR) pattern's Command interface. This file defines the
// last step of the thumbnail chain, which writes the encoded thumbnail to
// the destination container under the name derived from the source URL.
// Writing the same name again replaces the object, which makes redelivered
// events harmless.
package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/blob"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/cor"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

type ThumbnailUpload struct {
	cor.BaseCommand
	store blob.Store
}

func NewThumbnailUpload(name string, store blob.Store) *ThumbnailUpload {
	return &ThumbnailUpload{BaseCommand: *cor.NewBaseCommandWithParams(name, model.KeyThumbnail, ""), store: store}
}

func (c *ThumbnailUpload) IsExecutable(context cor.Context) bool {
	return c.BaseCommand.IsExecutable(context) && context.Get(model.KeyJob) != nil
}

func (c *ThumbnailUpload) Execute(context cor.Context) {
	ctx := context.GetContext()
	thumb := context.Get(c.GetInputParam()).(*model.Thumbnail)
	job := context.Get(model.KeyJob).(*model.ThumbnailJob)

	if err := c.store.Write(ctx, job.Container, job.Destination, thumb.Data, thumb.ContentType); err != nil {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), model.WrapError(model.KindStoreWriteFailed, "write-thumbnail",
			"failed to write "+job.Container+"/"+job.Destination, err))
		return
	}

	c.GetSuccessCounter().Add(ctx, 1)
	slog.InfoContext(ctx, "thumbnail written",
		"container", job.Container,
		"name", job.Destination,
		"bytes", len(thumb.Data),
	)
}
