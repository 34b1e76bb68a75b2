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

// Package cloud provides components for interacting with Google Cloud services.
// This file contains general-purpose utility functions that support the cloud package.
//
// Functions:
//   - LoadConfig: Implements a hierarchical configuration loader. It first reads a base
//     configuration file and then overwrites values with a second, environment-specific
//     file (e.g., .env.local.toml, .env.test.toml). The environment is determined by
//     an environment variable.
//   - ApplyEnvOverrides: Applies the deployment environment variables that take
//     precedence over both files.
//   - GenerateMultiModalResponse: Sends one multi-modal request and records token
//     usage. It does not retry; retries belong to the message delivery layer.
//   - NewTextPart, NewImagePart: Factories for genai parts.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

const (
	ConfigFileBaseName  = ".env"              // The base name for configuration files (e.g., ".env.toml").
	ConfigFileExtension = ".toml"             // The file extension for configuration files.
	ConfigSeparator     = "."                 // The separator used in config file names (e.g., ".env.local.toml").
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX" // The environment variable for specifying the config directory.
	EnvConfigRuntime    = "GCP_RUNTIME"       // The environment variable for specifying the runtime context (e.g., "local", "test", "prod").
)

// Deployment overrides. They win over both configuration files.
const (
	EnvThumbnailContainer = "THUMBNAIL_CONTAINER_NAME"
	EnvThumbnailWidth     = "THUMBNAIL_WIDTH"
	EnvThumbnailRecipe    = "THUMBNAIL_RECIPE"
	EnvThumbnailFontPath  = "THUMBNAIL_FONT_PATH"
	EnvThumbnailFontSize  = "THUMBNAIL_FONT_SIZE"
	EnvVisionEndpoint     = "COMPUTER_VISION_ENDPOINT" // Also selects the openai provider.
	EnvVisionKey          = "COMPUTER_VISION_KEY"
	EnvVisionModel        = "COMPUTER_VISION_MODEL"
)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig provides a hierarchical configuration loading mechanism. It first loads a
// base configuration file and then merges or overwrites its values with an environment-specific
// configuration file. Missing files are skipped; malformed files are an error.
//
// Inputs:
//   - baseConfig: A pointer to the target configuration struct.
//
// Outputs:
//   - error: The first decode failure, naming the offending file.
func LoadConfig(baseConfig interface{}) error {
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}

	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}

	baseConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension

	for _, name := range []string{baseConfigFileName, envConfigFileName} {
		if !fileExists(name) {
			slog.Debug("configuration file not found, skipping", "file", name)
			continue
		}
		if _, err := toml.DecodeFile(name, baseConfig); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", name, err)
		}
		slog.Debug("loaded configuration file", "file", name)
	}
	return nil
}

// ApplyEnvOverrides copies the recognised deployment variables into config.
// Unset or empty variables leave the file values alone. Setting
// COMPUTER_VISION_ENDPOINT switches vision.provider to openai, which then
// also needs a model from vision.model or COMPUTER_VISION_MODEL.
func ApplyEnvOverrides(config *Config, getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvThumbnailContainer); v != "" {
		config.Storage.ThumbnailContainer = v
	}
	if v := getenv(EnvThumbnailRecipe); v != "" {
		config.Thumbnail.Recipe = v
	}
	if v := getenv(EnvThumbnailWidth); v != "" {
		w, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvThumbnailWidth, err)
		}
		// Only read by the shrink_to_width recipe.
		config.Thumbnail.Width = w
	}
	if v := getenv(EnvThumbnailFontPath); v != "" {
		config.Thumbnail.FontPath = v
	}
	if v := getenv(EnvThumbnailFontSize); v != "" {
		s, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvThumbnailFontSize, err)
		}
		config.Thumbnail.FontSize = s
	}
	if v := getenv(EnvVisionEndpoint); v != "" {
		config.Vision.Endpoint = v
		config.Vision.Provider = ProviderOpenAI
	}
	if v := getenv(EnvVisionKey); v != "" {
		config.Vision.Key = v
	}
	if v := getenv(EnvVisionModel); v != "" {
		config.Vision.Model = v
	}
	return nil
}

// GenerateMultiModalResponse executes a multi-modal request against a
// Generative AI model and concatenates the text of every candidate.
//
// Inputs:
//   - ctx: The context for the request, which controls cancellation and tracing.
//   - inputTokenCounter: An OpenTelemetry counter for prompt tokens used.
//   - outputTokenCounter: An OpenTelemetry counter for response tokens generated.
//   - model: The content generator, normally a QuotaAwareGenerativeAIModel.
//   - content: The prompt contents.
//
// Outputs:
//   - string: The response text with any markdown code fence removed.
//   - error: The model error, or an error when the response holds no text.
func GenerateMultiModalResponse(
	ctx context.Context,
	inputTokenCounter metric.Int64Counter,
	outputTokenCounter metric.Int64Counter,
	model ContentGenerator,
	content []*genai.Content) (string, error) {
	resp, err := model.GenerateContent(ctx, content)
	if err != nil {
		return "", err
	}
	if resp.UsageMetadata != nil {
		inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
		outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
	}

	var value strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			value.WriteString(part.Text)
		}
	}
	out := strings.TrimSpace(value.String())
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimSuffix(out, "```")
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("model returned no text")
	}
	return out, nil
}

// NewTextPart creates a text part.
func NewTextPart(in string) *genai.Part {
	return &genai.Part{Text: in}
}

// NewImagePart creates an inline data part carrying the image bytes.
func NewImagePart(data []byte, mimeType string) *genai.Part {
	return &genai.Part{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}}
}
