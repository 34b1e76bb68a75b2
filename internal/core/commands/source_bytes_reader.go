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
// Responsibility (COR) pattern's Command interface. This file buffers the
// source stream in memory; the image is small enough to be decoded and sent
// to the analyzer whole, so no temporary files are involved.
//
// Logic Flow:
//  1. Read the source `io.Reader` from the context to EOF.
//  2. A read interrupted by cancellation fails the chain as Canceled.
//  3. Any other read failure, or zero bytes, halts the chain with NoFileInput.
//  4. Otherwise the bytes are stored for the analyzer and the compositor.
package commands

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/cor"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

type SourceBytesReader struct {
	cor.BaseCommand
}

func NewSourceBytesReader(name string) *SourceBytesReader {
	return &SourceBytesReader{BaseCommand: *cor.NewBaseCommandWithParams(name, model.KeySource, model.KeySourceBytes)}
}

func (c *SourceBytesReader) Execute(chCtx cor.Context) {
	ctx := chCtx.GetContext()
	source := chCtx.Get(c.GetInputParam()).(io.Reader)

	data, err := io.ReadAll(source)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			c.GetErrorCounter().Add(ctx, 1)
			chCtx.AddError(c.GetName(), model.WrapError(model.KindCanceled, "read-source", "source read interrupted", err))
			return
		}
		slog.WarnContext(ctx, "source unreadable, treating as no input", "error", err, "bytes_read", len(data))
		chCtx.Halt(string(model.OutcomeNoFileInput))
		return
	}
	if len(data) == 0 {
		slog.InfoContext(ctx, "source is empty")
		chCtx.Halt(string(model.OutcomeNoFileInput))
		return
	}

	c.GetSuccessCounter().Add(ctx, 1)
	chCtx.Add(c.GetOutputParam(), data)
}
