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

// Package telemetry provides utilities for setting up and configuring
// application observability, including logging, tracing, and metrics.
// This file specifically handles the setup of structured logging that
// is compatible with Google Cloud Logging and integrates with OpenTelemetry traces.
package telemetry

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// spanContextLogHandler adds the Cloud Logging trace fields of the active
// span to every record, so logs and traces correlate in the console.
type spanContextLogHandler struct {
	slog.Handler
}

func handlerWithSpanContext(handler slog.Handler) *spanContextLogHandler {
	return &spanContextLogHandler{Handler: handler}
}

// Handle adds trace, spanId and trace_sampled when ctx carries a valid span.
// See https://cloud.google.com/logging/docs/structured-logging#special-payload-fields
func (t *spanContextLogHandler) Handle(ctx context.Context, record slog.Record) error {
	if s := trace.SpanContextFromContext(ctx); s.IsValid() {
		record.AddAttrs(
			slog.Any("logging.googleapis.com/trace", s.TraceID()),
			slog.Any("logging.googleapis.com/spanId", s.SpanID()),
			slog.Bool("logging.googleapis.com/trace_sampled", s.TraceFlags().IsSampled()),
		)
	}
	return t.Handler.Handle(ctx, record)
}

// WithAttrs keeps the trace injection on derived loggers.
func (t *spanContextLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return handlerWithSpanContext(t.Handler.WithAttrs(attrs))
}

func (t *spanContextLogHandler) WithGroup(name string) slog.Handler {
	return handlerWithSpanContext(t.Handler.WithGroup(name))
}

// replacer renames the slog keys to the ones Cloud Logging parses
// (severity, timestamp, message). WARN becomes WARNING, see
// https://cloud.google.com/logging/docs/reference/v2/rest/v2/LogEntry#LogSeverity
func replacer(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.LevelKey:
		a.Key = "severity"
		if level, ok := a.Value.Any().(slog.Level); ok && level == slog.LevelWarn {
			a.Value = slog.StringValue("WARNING")
		}
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// ParseLevel maps a configured level name onto slog. Unknown names select Info.
func ParseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewHandler returns the JSON handler used by SetupLogging, writing to w.
func NewHandler(w io.Writer, level slog.Level) slog.Handler {
	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: replacer})
	return handlerWithSpanContext(jsonHandler)
}

// SetupLogging initializes the logging system for the entire application.
// Logs are JSON in the Cloud Logging format with trace correlation, written
// to standard output and, when logFile is set, to that file as well. The
// standard `log` package is redirected to the same writer.
//
// The returned function closes the log file.
func SetupLogging(level, logFile string) (func() error, error) {
	var out io.Writer = os.Stdout
	closer := func() error { return nil }
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return closer, err
		}
		out = io.MultiWriter(os.Stdout, file)
		closer = file.Close
	}

	log.SetOutput(out)
	log.SetFlags(log.Ldate | log.Ltime)

	slog.SetDefault(slog.New(NewHandler(out, ParseLevel(level))))
	return closer, nil
}
