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
// This file is responsible for initializing and holding all the client objects
// needed to communicate with external services. It acts as a dependency
// injection container, creating a single, shared `ServiceClients` struct that
// is passed to the workflow, the listeners and the API handlers.
//
// Logic Flow:
//  1. The `NewCloudServiceClients` function is called at application startup.
//  2. Only the clients the configuration actually needs are created, so a
//     local run with the memory store and the openai provider needs no Google
//     credentials at all.
//  3. Pub/Sub listeners and agent models are created from their config maps.
//  4. All initialized clients are bundled into a single `ServiceClients` struct.
package cloud

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/option"
	"google.golang.org/genai"
)

// ServiceClients is the container for every external client. Fields are nil
// when the configuration does not need them.
type ServiceClients struct {
	StorageClient   *storage.Client                   // Google Cloud Storage, for the gcs backend and URL signing.
	PubsubClient    *pubsub.Client                    // Pub/Sub, for listeners and outcome publishing.
	GenAIClient     *genai.Client                     // Vertex AI, for the gemini analyzer.
	BigQueryClient  *bigquery.Client                  // BigQuery, for the thumbnail ledger.
	IAMClient       *credentials.IamCredentialsClient // IAM, to sign GCS URLs.
	S3Client        *s3.Client                        // Amazon S3, for the s3 backend.
	PubSubListeners map[string]*PubSubListener        // Keyed by the logical name from the config.
	AgentModels     map[string]*QuotaAwareGenerativeAIModel
}

// Close releases every client that was created. It is safe on a partially
// initialized container.
func (c *ServiceClients) Close() {
	if c == nil {
		return
	}
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
	if c.PubsubClient != nil {
		_ = c.PubsubClient.Close()
	}
	if c.BigQueryClient != nil {
		_ = c.BigQueryClient.Close()
	}
	if c.IAMClient != nil {
		_ = c.IAMClient.Close()
	}
}

// NewCloudServiceClients initializes the clients required by config.
//
// Inputs:
//   - ctx: The root context.Context for the application.
//   - config: A pointer to the loaded application configuration (`Config`).
//
// Outputs:
//   - *ServiceClients: The initialized clients. On error, everything created so
//     far has already been closed.
//   - error: An error if any of the clients fail to initialize.
func NewCloudServiceClients(ctx context.Context, config *Config) (_ *ServiceClients, err error) {
	cloud := &ServiceClients{
		PubSubListeners: make(map[string]*PubSubListener),
		AgentModels:     make(map[string]*QuotaAwareGenerativeAIModel),
	}
	defer func() {
		if err != nil {
			cloud.Close()
		}
	}()

	projectID := config.Application.GoogleProjectId

	if config.Storage.Backend == BackendGCS {
		var opts []option.ClientOption
		if config.Storage.Endpoint != "" {
			opts = append(opts, option.WithEndpoint(config.Storage.Endpoint))
		}
		if cloud.StorageClient, err = storage.NewClient(ctx, opts...); err != nil {
			return nil, fmt.Errorf("storage client: %w", err)
		}
		if config.Application.SignerServiceAccountEmail != "" {
			if cloud.IAMClient, err = credentials.NewIamCredentialsClient(ctx); err != nil {
				return nil, fmt.Errorf("iam credentials client: %w", err)
			}
		}
	}

	if config.Storage.Backend == BackendS3 {
		if cloud.S3Client, err = NewS3Client(ctx, config.Storage); err != nil {
			return nil, err
		}
	}

	if len(config.TopicSubscriptions) > 0 || config.Notifications.PubSubTopic != "" {
		if cloud.PubsubClient, err = pubsub.NewClient(ctx, projectID); err != nil {
			return nil, fmt.Errorf("pubsub client: %w", err)
		}
	}

	if config.Vision.Provider == ProviderGemini {
		slog.InfoContext(ctx, "creating genai client", "project", projectID, "location", config.Application.GoogleLocation)
		cloud.GenAIClient, err = genai.NewClient(ctx, &genai.ClientConfig{
			Project:  projectID,
			Location: config.Application.GoogleLocation,
			Backend:  genai.BackendVertexAI,
		})
		if err != nil {
			return nil, fmt.Errorf("genai client: %w", err)
		}
	}

	if config.BigQueryDataSource.ThumbnailTable != "" {
		if cloud.BigQueryClient, err = bigquery.NewClient(ctx, projectID); err != nil {
			return nil, fmt.Errorf("bigquery client: %w", err)
		}
	}

	for subKey, values := range config.TopicSubscriptions {
		listener, err := NewPubSubListener(cloud.PubsubClient, values, config.Application.ThreadPoolSize, nil)
		if err != nil {
			return nil, fmt.Errorf("listener %s: %w", subKey, err)
		}
		cloud.PubSubListeners[subKey] = listener
	}

	if cloud.GenAIClient != nil {
		for amKey, values := range config.AgentModels {
			cloud.AgentModels[amKey] = NewQuotaAwareModel(NewGenerateContentConfig(values), values.Model, cloud.GenAIClient.Models, values.RateLimit)
		}
	}

	return cloud, nil
}

// NewGenerateContentConfig maps an agent model config onto a genai request config.
func NewGenerateContentConfig(values VertexAiLLMModel) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](values.Temperature),
		TopP:             genai.Ptr[float32](values.TopP),
		TopK:             genai.Ptr[float32](values.TopK),
		MaxOutputTokens:  values.MaxTokens,
		SafetySettings:   DefaultSafetySettings,
		ResponseMIMEType: values.OutputFormat,
	}
	if values.SystemInstructions != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}}
	}
	return cfg
}
