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

package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

// SinkTimeout bounds the time spent in each sink per result.
const SinkTimeout = 10 * time.Second

// ResultSink receives the Result of every invocation, e.g. a BigQuery table
// or a Pub/Sub topic. A sink failure never changes the Outcome.
type ResultSink interface {
	Name() string
	Record(ctx context.Context, result *model.Result) error
}

// notify delivers result to every sink in order. Sinks still run when the
// invocation itself was canceled, so their context drops the parent's
// cancellation and gets its own deadline.
func notify(ctx context.Context, sinks []ResultSink, result *model.Result) {
	if len(sinks) == 0 {
		return
	}
	base := context.WithoutCancel(ctx)
	for _, sink := range sinks {
		sinkCtx, cancel := context.WithTimeout(base, SinkTimeout)
		if err := sink.Record(sinkCtx, result); err != nil {
			slog.WarnContext(ctx, "result sink failed",
				"sink", sink.Name(),
				"invocation_id", result.InvocationID,
				"error", err,
			)
		}
		cancel()
	}
}
