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

package telemetry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaycherian/gcp-go-image-captioner/internal/cloud"
	"github.com/jaycherian/gcp-go-image-captioner/internal/telemetry"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestHandlerUsesCloudLoggingKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(telemetry.NewHandler(&buf, slog.LevelInfo))

	logger.Warn("thumbnail skipped", "outcome", "NoFileInput")

	entry := decode(t, &buf)
	assert.Equal(t, "WARNING", entry["severity"])
	assert.Equal(t, "thumbnail skipped", entry["message"])
	assert.Equal(t, "NoFileInput", entry["outcome"])
	assert.Contains(t, entry, "timestamp")
}

func TestHandlerAddsTraceFieldsOnDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(telemetry.NewHandler(&buf, slog.LevelInfo)).With("component", "workflow")

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	logger.InfoContext(ctx, "thumbnail created")

	entry := decode(t, &buf)
	assert.Equal(t, sc.TraceID().String(), entry["logging.googleapis.com/trace"])
	assert.Equal(t, sc.SpanID().String(), entry["logging.googleapis.com/spanId"])
	assert.Equal(t, true, entry["logging.googleapis.com/trace_sampled"])
	assert.Equal(t, "workflow", entry["component"])
}

func TestHandlerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(telemetry.NewHandler(&buf, telemetry.ParseLevel("warn")))
	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	assert.Equal(t, slog.LevelDebug, telemetry.ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, telemetry.ParseLevel("loud"))
}

func TestSetupOpenTelemetryWithoutExporter(t *testing.T) {
	config := cloud.NewConfig()
	config.Telemetry.Exporter = cloud.ExporterNone

	shutdown, err := telemetry.SetupOpenTelemetry(context.Background(), config)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
