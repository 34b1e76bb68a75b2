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

// Package workflow defines and orchestrates the application's business
// processes. This file wires the caption thumbnail pipeline: for one upload
// event it reads the image, asks the analyzer for a caption, draws the
// caption on a resized copy and writes that copy to the thumbnail container.
//
// Logic Flow:
//  1. A missing, empty or unreadable source stream halts with NoFileInput.
//     Only one byte is peeked at this point.
//  2. The destination name and codec are resolved from the source URL. An
//     unsupported extension halts the chain before the source is buffered.
//  3. The source is read into memory.
//  4. The analyzer is called once, the thumbnail is composed and written.
//  5. The chain's errors or halt reason become the invocation's Outcome.
//  6. The source stream is closed on every path, then the Result is fanned
//     out to the configured sinks.
//
// There are no retries here. Transient outcomes are reported as retryable
// and redelivery is left to the transport.
package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/blob"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/codec"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/commands"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/cor"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/reference"
)

const tracerName = "github.com/jaycherian/gcp-go-image-captioner/workflow"

type CaptionThumbnailWorkflow struct {
	cor.BaseCommand
	container string
	store     blob.Store
	sinks     []ResultSink
	chain     cor.Chain // The underlying chain of commands to be executed.
}

// NewCaptionThumbnailWorkflow builds the pipeline. store serves both the
// source reads of HandleEvent and the thumbnail writes.
//
// Inputs:
//   - container: The container receiving every thumbnail.
//   - store: The object store.
//   - captioner: Normally an *analyzer.CaptionClient.
//   - composer: Normally a *thumbnail.Compositor.
//   - sinks: Receivers of every Result; failures are logged only.
func NewCaptionThumbnailWorkflow(
	container string,
	store blob.Store,
	captioner commands.Captioner,
	composer commands.Composer,
	sinks ...ResultSink) *CaptionThumbnailWorkflow {

	out := &CaptionThumbnailWorkflow{
		BaseCommand: *cor.NewBaseCommandWithParams("caption-thumbnail-workflow", model.KeyEvent, ""),
		container:   container,
		store:       store,
		sinks:       sinks,
	}
	out.initializeChain(captioner, composer)
	return out
}

func (w *CaptionThumbnailWorkflow) initializeChain(captioner commands.Captioner, composer commands.Composer) {
	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewSourcePresenceCheck("check-source"))
	out.AddCommand(commands.NewSourceReferenceResolver("resolve-reference", w.container))
	out.AddCommand(commands.NewSourceBytesReader("read-source"))
	out.AddCommand(commands.NewCaptionAnalyzer("analyze-image", captioner))
	out.AddCommand(commands.NewThumbnailComposer("compose-thumbnail", composer))
	out.AddCommand(commands.NewThumbnailUpload("write-thumbnail", w.store))
	w.chain = out
}

// Execute runs the chain on a prepared context, for callers composing this
// workflow into a larger chain. Process is the usual entry point.
func (w *CaptionThumbnailWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Handle parses a raw notification and processes the single event it holds.
func (w *CaptionThumbnailWorkflow) Handle(ctx context.Context, payload []byte) *model.Result {
	event, err := model.ParseUploadEvent(payload)
	if err != nil {
		return w.reject(ctx, err)
	}
	return w.HandleEvent(ctx, event)
}

// HandleAll processes every event of a batch payload in order.
func (w *CaptionThumbnailWorkflow) HandleAll(ctx context.Context, payload []byte) []*model.Result {
	events, err := model.ParseUploadEvents(payload)
	if err != nil {
		return []*model.Result{w.reject(ctx, err)}
	}
	out := make([]*model.Result, 0, len(events))
	for _, event := range events {
		out = append(out, w.HandleEvent(ctx, event))
	}
	return out
}

// HandleEvent opens the source through the store and processes it. A source
// that cannot be opened is handed over as a nil stream. Names with an
// unsupported extension are skipped without opening the source.
func (w *CaptionThumbnailWorkflow) HandleEvent(ctx context.Context, event *model.UploadEvent) *model.Result {
	if name, err := reference.ExtractName(event.Source.URL); err == nil && !codec.FromPath(name).Supported() {
		result := w.newResult(event)
		result.Destination = name
		result.Codec = codec.Unsupported.String()
		result.Outcome = model.OutcomeUnsupportedFormat
		w.finishEarly(ctx, result, "", nil)
		return result
	}

	source, err := w.store.Read(ctx, event.Source)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			result := w.newResult(event)
			w.finishEarly(ctx, result, "open-source", model.WrapError(model.KindCanceled, "open-source", "source open interrupted", err))
			return result
		case model.IsKind(err, model.KindInvalidReference):
			result := w.newResult(event)
			w.finishEarly(ctx, result, "open-source", err)
			return result
		}
		slog.WarnContext(ctx, "source could not be opened", "source_url", event.Source.URL, "error", err)
		source = nil
	}
	return w.Process(ctx, event, source)
}

// finishEarly reports an invocation decided before the chain runs, under
// the same span Process opens.
func (w *CaptionThumbnailWorkflow) finishEarly(ctx context.Context, result *model.Result, stage string, err error) {
	ctx, span := w.startSpan(ctx, result)
	defer span.End()
	w.finish(ctx, result, stage, err)
	endSpan(span, result)
}

// Process runs the pipeline for one event and its already opened source.
// source is closed before Process returns.
func (w *CaptionThumbnailWorkflow) Process(ctx context.Context, event *model.UploadEvent, source io.ReadCloser) *model.Result {
	result := w.newResult(event)

	ctx, span := w.startSpan(ctx, result)
	defer span.End()

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	defer chCtx.Close()
	chCtx.AddCloser(source)

	chCtx.Add(model.KeyEvent, event)
	if source != nil {
		chCtx.Add(model.KeySource, io.Reader(source))
	}
	w.Execute(chCtx)
	w.collect(chCtx, result)

	endSpan(span, result)

	// Release the source before the sinks run.
	chCtx.Close()
	w.finish(ctx, result, result.Stage, nil)
	return result
}

func (w *CaptionThumbnailWorkflow) startSpan(ctx context.Context, result *model.Result) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "caption-thumbnail")
	span.SetAttributes(
		attribute.String("invocation.id", result.InvocationID),
		attribute.String("source.url", result.SourceURL),
	)
	return ctx, span
}

func endSpan(span trace.Span, result *model.Result) {
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, string(result.Outcome))
	} else {
		span.SetStatus(codes.Ok, string(result.Outcome))
	}
	span.SetAttributes(attribute.String("outcome", string(result.Outcome)))
}

func (w *CaptionThumbnailWorkflow) newResult(event *model.UploadEvent) *model.Result {
	return &model.Result{
		InvocationID: uuid.NewString(),
		EventID:      event.ID,
		SourceURL:    event.Source.URL,
		Container:    w.container,
		StartedAt:    time.Now(),
	}
}

// collect copies the chain state into result.
func (w *CaptionThumbnailWorkflow) collect(chCtx cor.Context, result *model.Result) {
	if job, ok := chCtx.Get(model.KeyJob).(*model.ThumbnailJob); ok {
		result.Destination = job.Destination
		result.Codec = job.Codec.String()
	}
	if caption, ok := chCtx.Get(model.KeyCaption).(model.Caption); ok {
		result.Caption = caption.Text
	}
	if thumb, ok := chCtx.Get(model.KeyThumbnail).(*model.Thumbnail); ok {
		result.Width, result.Height, result.Bytes = thumb.Width, thumb.Height, len(thumb.Data)
	}

	for stage, err := range chCtx.GetErrors() {
		// A stopping chain records at most one error.
		result.Stage = stage
		result.Err = err
		result.Error = err.Error()
		result.Outcome = model.OutcomeForKind(model.KindOf(err))
		return
	}
	if chCtx.IsHalted() {
		result.Outcome = model.Outcome(chCtx.GetHaltReason())
		return
	}
	result.Outcome = model.OutcomeDone
}

// reject reports a payload that could not be parsed.
func (w *CaptionThumbnailWorkflow) reject(ctx context.Context, err error) *model.Result {
	result := &model.Result{InvocationID: uuid.NewString(), StartedAt: time.Now()}
	w.finish(ctx, result, "parse-event", err)
	return result
}

// finish stamps the failure, if any, logs the outcome and notifies the sinks.
func (w *CaptionThumbnailWorkflow) finish(ctx context.Context, result *model.Result, stage string, err error) {
	if err != nil {
		result.Stage = stage
		result.Err = err
		result.Error = err.Error()
		result.Outcome = model.OutcomeForKind(model.KindOf(err))
	}
	result.Duration = time.Since(result.StartedAt)

	attrs := []any{
		"invocation_id", result.InvocationID,
		"source_url", result.SourceURL,
		"outcome", result.Outcome,
		"duration", result.Duration,
	}
	switch {
	case result.Err != nil:
		slog.ErrorContext(ctx, "thumbnail invocation failed", append(attrs, "stage", result.Stage, "error", result.Err)...)
	case result.Outcome == model.OutcomeDone:
		slog.InfoContext(ctx, "thumbnail created", append(attrs, "destination", result.Container+"/"+result.Destination, "caption", result.Caption)...)
	default:
		slog.InfoContext(ctx, "thumbnail skipped", attrs...)
	}

	notify(ctx, w.sinks, result)
}
