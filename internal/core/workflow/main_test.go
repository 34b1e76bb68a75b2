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

package workflow_test

import (
	"context"
	"os"
	"testing"

	"go.opentelemetry.io/contrib/bridges/otelslog"

	"github.com/jaycherian/gcp-go-image-captioner/internal/cloud"
	"github.com/jaycherian/gcp-go-image-captioner/internal/telemetry"
	test "github.com/jaycherian/gcp-go-image-captioner/internal/testutil"
)

const tName = "cloud.google.com/image-captioner/tests/workflow"

var logger = otelslog.NewLogger(tName)

// TestMain loads the test configuration and sets up logging and the
// propagators once for every workflow test. The test runtime disables the
// exporters, so nothing leaves the process.
func TestMain(m *testing.M) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := test.SetupOS(); err != nil {
		panic(err)
	}
	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		panic(err)
	}

	closeLog, err := telemetry.SetupLogging(config.Telemetry.LogLevel, "")
	if err != nil {
		panic(err)
	}
	shutdown, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		panic(err)
	}
	logger.Info("completed test setup", "exporter", config.Telemetry.Exporter)

	exitCode := m.Run()

	if err := shutdown(ctx); err != nil {
		logger.Error("failed to shutdown telemetry", "error", err)
	}
	_ = closeLog()
	os.Exit(exitCode)
}
