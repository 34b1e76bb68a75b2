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

// Package test provides utility functions and mock data to support the application's
// test suite. It loads the test configuration, builds sample upload
// notifications in every accepted schema and offers scripted stand-ins for
// the image analyzer.
package test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jaycherian/gcp-go-image-captioner/internal/cloud"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

// StateManager caches the test configuration so the TOML files are read once
// per test binary.
type StateManager struct {
	once   sync.Once
	config *cloud.Config
	err    error
}

var state = &StateManager{}

// HandleErr fails the test when err is not nil.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// ConfigDir walks up from the working directory to the module root and
// returns its configs directory. Tests run from their package directory, so
// a relative "configs" would not resolve.
func ConfigDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "configs"), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("module root not found")
		}
		dir = parent
	}
}

// SetupOS points the configuration loader at the test configuration files
// (configs/.env.toml overlaid with configs/.env.test.toml).
func SetupOS() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.Setenv(cloud.EnvConfigFilePrefix, dir); err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig returns the cached test configuration, loading it on first use.
func GetConfig(t testing.TB) *cloud.Config {
	t.Helper()
	state.once.Do(func() {
		if state.err = SetupOS(); state.err != nil {
			return
		}
		config := cloud.NewConfig()
		state.err = cloud.LoadConfig(config)
		state.config = config
	})
	if state.err != nil {
		t.Fatalf("failed to load test configuration: %v", state.err)
	}
	return state.config
}

// EventGridPayload returns an Event Grid BlobCreated event for url.
func EventGridPayload(url string) []byte {
	return mustJSON(map[string]any{
		"id":          "evt-" + filepath.Base(url),
		"eventType":   "Microsoft.Storage.BlobCreated",
		"subject":     "/blobServices/default/containers/images/blobs/" + filepath.Base(url),
		"eventTime":   "2024-10-11T03:04:08.672Z",
		"dataVersion": "1.0",
		"data": map[string]any{
			"api":           "PutBlob",
			"contentType":   "image/jpeg",
			"contentLength": 524288,
			"blobType":      "BlockBlob",
			"url":           url,
		},
	})
}

// CloudEventPayload returns a structured mode CloudEvent for a GCS object.
func CloudEventPayload(bucket, name string) []byte {
	return mustJSON(map[string]any{
		"specversion": "1.0",
		"id":          "1728615848664286",
		"source":      "//storage.googleapis.com/projects/_/buckets/" + bucket,
		"type":        "google.cloud.storage.object.v1.finalized",
		"subject":     "objects/" + name,
		"data": map[string]any{
			"bucket":      bucket,
			"name":        name,
			"contentType": "image/jpeg",
			"size":        "524288",
		},
	})
}

// GCSNotificationPayload returns the JSON body GCS publishes to Pub/Sub
// when an object is finalized.
func GCSNotificationPayload(bucket, name string) []byte {
	return mustJSON(map[string]any{
		"kind":        "storage#object",
		"id":          bucket + "/" + name + "/1728615848664286",
		"name":        name,
		"bucket":      bucket,
		"generation":  "1728615848664286",
		"contentType": "image/jpeg",
		"timeCreated": "2024-10-11T03:04:08.672Z",
		"size":        "524288",
	})
}

// PubSubPushPayload wraps inner the way a Pub/Sub push subscription does.
func PubSubPushPayload(inner []byte) []byte {
	return mustJSON(map[string]any{
		"message": map[string]any{
			"data":      base64.StdEncoding.EncodeToString(inner),
			"messageId": "msg-1",
		},
		"subscription": "projects/demo/subscriptions/image-uploads-sub",
	})
}

func mustJSON(v any) []byte {
	out, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return out
}

// FakeCaptioner returns a fixed caption or error and counts its calls.
type FakeCaptioner struct {
	mu     sync.Mutex
	Text   string
	Err    error
	OnCall func(ctx context.Context)
	calls  int
}

func (f *FakeCaptioner) Caption(ctx context.Context, _ []byte) (model.Caption, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.OnCall != nil {
		f.OnCall(ctx)
	}
	if f.Err != nil {
		return model.Caption{}, f.Err
	}
	if ctx.Err() != nil {
		return model.Caption{}, model.WrapError(model.KindCanceled, "analyze", "analysis interrupted", ctx.Err())
	}
	return model.Caption{Text: f.Text, Confidence: 0.9}, nil
}

// Calls returns the number of Caption invocations.
func (f *FakeCaptioner) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// RecordingSink keeps every Result it receives.
type RecordingSink struct {
	mu      sync.Mutex
	Err     error
	results []*model.Result
}

func (s *RecordingSink) Name() string { return "recording" }

func (s *RecordingSink) Record(_ context.Context, result *model.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return s.Err
}

// Results returns a copy of the recorded results.
func (s *RecordingSink) Results() []*model.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Result(nil), s.results...)
}
