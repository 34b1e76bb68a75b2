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
// Responsibility (COR) pattern's Command interface. This file checks that the
// source stream holds at least one byte without buffering the rest of it.
//
// Logic Flow:
//  1. An absent source halts the chain with NoFileInput.
//  2. Wrap the source `io.Reader` from the context in a `bufio.Reader`.
//  3. Peek a single byte. An empty stream halts the chain with NoFileInput.
//  4. A peek interrupted by cancellation fails the chain as Canceled; any
//     other failure halts it with NoFileInput.
//  5. Otherwise the buffered reader replaces the source, so the peeked byte
//     is not lost to later commands.
package commands

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/cor"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

type SourcePresenceCheck struct {
	cor.BaseCommand
}

func NewSourcePresenceCheck(name string) *SourcePresenceCheck {
	return &SourcePresenceCheck{BaseCommand: *cor.NewBaseCommandWithParams(name, model.KeySource, model.KeySource)}
}

// IsExecutable only requires a Go context; an absent source is an outcome.
func (c *SourcePresenceCheck) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil
}

func (c *SourcePresenceCheck) Execute(chCtx cor.Context) {
	ctx := chCtx.GetContext()
	source, _ := chCtx.Get(c.GetInputParam()).(io.Reader)
	if source == nil {
		chCtx.Halt(string(model.OutcomeNoFileInput))
		return
	}

	buffered := bufio.NewReader(source)
	if _, err := buffered.Peek(1); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			slog.InfoContext(ctx, "source is empty")
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil:
			c.GetErrorCounter().Add(ctx, 1)
			chCtx.AddError(c.GetName(), model.WrapError(model.KindCanceled, "check-source", "source read interrupted", err))
			return
		default:
			slog.WarnContext(ctx, "source unreadable, treating as no input", "error", err)
		}
		chCtx.Halt(string(model.OutcomeNoFileInput))
		return
	}

	c.GetSuccessCounter().Add(ctx, 1)
	chCtx.Add(c.GetOutputParam(), io.Reader(buffered))
}
