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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files. It provides a structured way to manage settings
// for the thumbnail pipeline, the image analyzer, the object stores, the
// outcome sinks and the Pub/Sub subscriptions.
//
// Structs:
//   - Application: Project, location, HTTP port and worker settings.
//   - Storage: Which object store backend to use and where thumbnails go.
//   - Thumbnail: Resize recipe, font and overlay settings.
//   - Vision: The image analyzer provider and its credentials.
//   - BigQueryDataSource: The thumbnail ledger table.
//   - Notifications: Outcome publishing to Pub/Sub and NATS.
//   - Telemetry: Exporter and log level.
//   - PromptTemplates: Holds the text templates for prompts sent to GenAI models.
//   - VertexAiLLMModel, TopicSubscription: As in the config files.
//   - Config: The top-level struct that aggregates all other configuration structs.
package cloud

import (
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultSafetySettings leaves every harm category unblocked; captions of
// user uploads must not be silently dropped by the safety filter.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// Storage backends.
const (
	BackendGCS    = "gcs"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// Vision providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Telemetry exporters.
const (
	ExporterGCP  = "gcp"
	ExporterNone = "none"
)

// Application holds general application settings.
type Application struct {
	Name                      string `toml:"name"`                         // The name of the application.
	GoogleProjectId           string `toml:"google_project_id"`            // The Google Cloud project ID.
	GoogleLocation            string `toml:"location"`                     // The Google Cloud location.
	ThreadPoolSize            int    `toml:"thread_pool_size"`             // Concurrent Pub/Sub callbacks per listener.
	SignerServiceAccountEmail string `toml:"signer_service_account_email"` // The service account used for signing GCS URLs.
	HTTPPort                  int    `toml:"http_port"`                    // Port of the gin server.
}

// Storage selects the object store and names the thumbnail container.
type Storage struct {
	Backend            string `toml:"backend"`             // gcs, s3 or memory.
	ThumbnailContainer string `toml:"thumbnail_container"` // Bucket receiving the thumbnails.
	Endpoint           string `toml:"endpoint"`            // Optional emulator or S3-compatible endpoint.
	S3Region           string `toml:"s3_region"`           // Region for the s3 backend.
	S3UsePathStyle     bool   `toml:"s3_use_path_style"`   // Required by most S3-compatible servers.
	SignedURLMinutes   int    `toml:"signed_url_minutes"`  // Lifetime of signed thumbnail URLs.
}

// Thumbnail configures the compositor.
type Thumbnail struct {
	Recipe        string  `toml:"recipe"`         // stretch or shrink_to_width.
	Width         int     `toml:"width"`          // Target width for shrink_to_width.
	StretchFactor int     `toml:"stretch_factor"` // Height multiplier for stretch.
	FontPath      string  `toml:"font_path"`      // Empty selects the bundled Go Regular font.
	FontSize      float64 `toml:"font_size"`
	Color         string  `toml:"color"` // Named colour or #rrggbb.
	OriginX       int     `toml:"origin_x"`
	OriginY       int     `toml:"origin_y"`
	WrapWidth     int     `toml:"wrap_width"` // 0 disables wrapping.
	JPEGQuality   int     `toml:"jpeg_quality"`
	MaxPixels     int     `toml:"max_pixels"` // Decode budget for the source image only.
}

// Vision configures the image analyzer.
type Vision struct {
	Provider   string   `toml:"provider"`    // gemini or openai.
	Endpoint   string   `toml:"endpoint"`    // Base URL for the openai provider.
	Key        string   `toml:"key"`         // API key for the openai provider.
	Model      string   `toml:"model"`       // Model name for the openai provider.
	AgentModel string   `toml:"agent_model"` // Key into AgentModels for the gemini provider.
	RateLimit  int      `toml:"rate_limit"`  // Requests per second for the openai provider.
	Features   []string `toml:"features"`    // Requested analysis features.
}

// BigQueryDataSource represents the configuration for the thumbnail ledger.
type BigQueryDataSource struct {
	DatasetName    string `toml:"dataset"`         // The name of the BigQuery dataset.
	ThumbnailTable string `toml:"thumbnail_table"` // The table holding one row per processed source.
}

// Notifications configures where invocation outcomes are published.
type Notifications struct {
	PubSubTopic       string `toml:"pubsub_topic"`        // Outcome topic; empty disables.
	NatsURL           string `toml:"nats_url"`            // NATS server; empty disables NATS.
	NatsResultSubject string `toml:"nats_result_subject"` // Subject receiving outcomes.
	NatsUploadSubject string `toml:"nats_upload_subject"` // Subject delivering upload events.
}

// Telemetry selects exporters and the log level.
type Telemetry struct {
	Exporter string `toml:"exporter"`  // gcp or none.
	LogLevel string `toml:"log_level"` // debug, info, warn or error.
	LogFile  string `toml:"log_file"`  // Optional file, stdout when empty.
}

// PromptTemplates holds the templates for different types of prompts.
type PromptTemplates struct {
	CaptionPrompt string `toml:"caption"` // The template for image analysis requests.
}

// VertexAiLLMModel represents the configuration for a Vertex AI large language model (LLM).
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The name of the Vertex AI LLM.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the LLM.
	Temperature        float32 `toml:"temperature"`         // The temperature parameter for the LLM.
	TopP               float32 `toml:"top_p"`               // The top_p parameter for the LLM.
	TopK               float32 `toml:"top_k"`               // The top_k parameter for the LLM.
	MaxTokens          int32   `toml:"max_tokens"`          // The maximum number of tokens for the LLM output.
	OutputFormat       string  `toml:"output_format"`       // The desired output format for the LLM.
	RateLimit          int     `toml:"rate_limit"`          // The rate limit for the LLM in requests per second.
}

// TopicSubscription represents the configuration for a Pub/Sub topic subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`               // The name of the Pub/Sub subscription.
	DeadLetterTopic  string `toml:"dead_letter_topic"`  // The name of the dead-letter topic for the subscription.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // Per message processing deadline.
}

// Config represents the overall configuration for the application, loaded from TOML files.
type Config struct {
	Application        Application                  `toml:"application"`
	Storage            Storage                      `toml:"storage"`
	Thumbnail          Thumbnail                    `toml:"thumbnail"`
	Vision             Vision                       `toml:"vision"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	Notifications      Notifications                `toml:"notifications"`
	Telemetry          Telemetry                    `toml:"telemetry"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"` // Keyed by a logical name (e.g., "UploadTopic").
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"`        // Keyed by a logical name (e.g., "caption-flash").
}

// NewConfig creates a Config with initialized maps and the defaults that a
// missing config file should still run with.
func NewConfig() *Config {
	return &Config{
		Application: Application{ThreadPoolSize: 4, HTTPPort: 8080},
		Storage:     Storage{Backend: BackendGCS, SignedURLMinutes: 15},
		Thumbnail: Thumbnail{
			Recipe:        "stretch",
			StretchFactor: 3,
			FontSize:      12,
			Color:         "red",
			OriginX:       1,
			OriginY:       1,
			JPEGQuality:   90,
		},
		Vision:             Vision{Provider: ProviderGemini, RateLimit: 5},
		Telemetry:          Telemetry{Exporter: ExporterGCP, LogLevel: "info"},
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Storage.ThumbnailContainer == "" {
		errs = append(errs, errors.New("storage.thumbnail_container is required"))
	}
	switch c.Storage.Backend {
	case BackendGCS, BackendMemory:
	case BackendS3:
		if c.Storage.S3Region == "" {
			errs = append(errs, errors.New("storage.s3_region is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}
	switch c.Thumbnail.Recipe {
	case "", "stretch":
		if c.Thumbnail.StretchFactor < 0 {
			errs = append(errs, errors.New("thumbnail.stretch_factor must not be negative"))
		}
	case "shrink_to_width":
		if c.Thumbnail.Width <= 0 {
			errs = append(errs, errors.New("thumbnail.width must be positive for shrink_to_width"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown thumbnail.recipe %q", c.Thumbnail.Recipe))
	}
	if c.Thumbnail.FontSize <= 0 {
		errs = append(errs, errors.New("thumbnail.font_size must be positive"))
	}
	if q := c.Thumbnail.JPEGQuality; q < 0 || q > 100 {
		errs = append(errs, errors.New("thumbnail.jpeg_quality must be between 0 and 100"))
	}
	switch c.Vision.Provider {
	case ProviderGemini:
		if _, ok := c.AgentModels[c.Vision.AgentModel]; !ok {
			errs = append(errs, fmt.Errorf("vision.agent_model %q is not a configured agent model", c.Vision.AgentModel))
		}
	case ProviderOpenAI:
		if c.Vision.Endpoint == "" {
			errs = append(errs, fmt.Errorf("vision.endpoint (or %s) is required for the openai provider", EnvVisionEndpoint))
		}
		if c.Vision.Model == "" {
			errs = append(errs, fmt.Errorf("vision.model (or %s) is required for the openai provider", EnvVisionModel))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown vision.provider %q", c.Vision.Provider))
	}
	switch c.Telemetry.Exporter {
	case ExporterGCP, ExporterNone:
	default:
		errs = append(errs, fmt.Errorf("unknown telemetry.exporter %q", c.Telemetry.Exporter))
	}
	if c.Notifications.NatsURL != "" && c.Notifications.NatsResultSubject == "" && c.Notifications.NatsUploadSubject == "" {
		errs = append(errs, errors.New("notifications.nats_url is set but no NATS subject is configured"))
	}
	return errors.Join(errs...)
}

// NeedsGoogleCloud reports whether any configured component talks to Google Cloud.
func (c *Config) NeedsGoogleCloud() bool {
	return c.Storage.Backend == BackendGCS ||
		c.Vision.Provider == ProviderGemini ||
		c.BigQueryDataSource.ThumbnailTable != "" ||
		c.Notifications.PubSubTopic != "" ||
		len(c.TopicSubscriptions) > 0
}
