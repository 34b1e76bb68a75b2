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

package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/jaycherian/gcp-go-image-captioner/internal/api"
	"github.com/jaycherian/gcp-go-image-captioner/internal/bus"
	"github.com/jaycherian/gcp-go-image-captioner/internal/cloud"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/analyzer"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/blob"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/services"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/thumbnail"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/workflow"
)

// UploadContainer receives files posted to /api/v1/uploads.
const UploadContainer = "uploads"

type StateManager struct {
	config    *cloud.Config
	cloud     *cloud.ServiceClients
	nats      *bus.Client
	workflow  *workflow.CaptionThumbnailWorkflow
	store     blob.Store
	finder    api.ThumbnailFinder
	publisher *cloud.PubSubResultPublisher
}

// SetupOS reads an optional .env file and defaults the configuration
// location to ./configs with the "local" runtime overlay.
func SetupOS() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err := os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		return os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return nil
}

// GetConfig loads the TOML files, applies the environment overrides and
// validates the result.
func GetConfig() (*cloud.Config, error) {
	if err := SetupOS(); err != nil {
		return nil, err
	}
	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		return nil, err
	}
	if err := cloud.ApplyEnvOverrides(config, os.Getenv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// InitState creates every client and assembles the workflow.
func InitState(ctx context.Context, config *cloud.Config) (_ *StateManager, err error) {
	state := &StateManager{config: config}
	defer func() {
		if err != nil {
			state.Close()
		}
	}()

	if state.cloud, err = cloud.NewCloudServiceClients(ctx, config); err != nil {
		return nil, err
	}

	compositor, err := NewCompositor(config.Thumbnail)
	if err != nil {
		return nil, err
	}
	imageAnalyzer, err := NewAnalyzer(config, state.cloud)
	if err != nil {
		return nil, err
	}
	features, err := model.ParseFeatureSet(config.Vision.Features)
	if err != nil {
		return nil, err
	}
	if state.store, err = NewStore(config, state.cloud); err != nil {
		return nil, err
	}

	if config.Notifications.NatsURL != "" {
		if state.nats, err = bus.Connect(config.Notifications.NatsURL); err != nil {
			return nil, fmt.Errorf("nats: %w", err)
		}
	}

	state.workflow = workflow.NewCaptionThumbnailWorkflow(
		config.Storage.ThumbnailContainer,
		state.store,
		analyzer.NewCaptionClient(imageAnalyzer, features),
		compositor,
		state.sinks()...,
	)

	if state.cloud.BigQueryClient != nil {
		var signer services.URLSigner
		if state.cloud.IAMClient != nil {
			signer = cloud.NewIAMURLSigner(state.cloud.StorageClient, state.cloud.IAMClient,
				config.Application.SignerServiceAccountEmail, time.Duration(config.Storage.SignedURLMinutes)*time.Minute)
		}
		state.finder = &services.ThumbnailService{
			Records: &services.BigQueryRecordFinder{
				BigqueryClient: state.cloud.BigQueryClient,
				DatasetName:    config.BigQueryDataSource.DatasetName,
				ThumbnailTable: config.BigQueryDataSource.ThumbnailTable,
			},
			Signer: signer,
		}
	}

	for name, listener := range state.cloud.PubSubListeners {
		slog.Info("attaching workflow to listener", "listener", name)
		listener.SetHandler(state.workflow)
	}
	return state, nil
}

// sinks lists the result sinks enabled by the configuration.
func (s *StateManager) sinks() []workflow.ResultSink {
	var out []workflow.ResultSink
	if s.cloud.BigQueryClient != nil {
		out = append(out, cloud.NewBigQueryResultRecorder(s.cloud.BigQueryClient,
			s.config.BigQueryDataSource.DatasetName, s.config.BigQueryDataSource.ThumbnailTable))
	}
	if s.cloud.PubsubClient != nil && s.config.Notifications.PubSubTopic != "" {
		s.publisher = cloud.NewPubSubResultPublisher(s.cloud.PubsubClient, s.config.Notifications.PubSubTopic)
		out = append(out, s.publisher)
	}
	if s.nats != nil && s.config.Notifications.NatsResultSubject != "" {
		out = append(out, bus.NewResultPublisher(s.nats, s.config.Notifications.NatsResultSubject))
	}
	return out
}

// RouterConfig describes the HTTP surface.
func (s *StateManager) RouterConfig() api.RouterConfig {
	scheme := "gs"
	if s.config.Storage.Backend == cloud.BackendS3 {
		scheme = "s3"
	}
	return api.RouterConfig{
		ServiceName: s.config.Application.Name,
		Events:      s.workflow,
		Finder:      s.finder,
		Uploads: &api.Uploads{
			Store:     s.store,
			Container: UploadContainer,
			SourceURL: func(container, name string) string { return scheme + "://" + container + "/" + name },
			Processor: s.workflow,
		},
	}
}

// Close releases the clients in reverse creation order.
func (s *StateManager) Close() {
	if s.publisher != nil {
		s.publisher.Stop()
	}
	if s.nats != nil {
		s.nats.Close()
	}
	s.cloud.Close()
}

// NewCompositor builds the thumbnail compositor from the configuration.
func NewCompositor(cfg cloud.Thumbnail) (*thumbnail.Compositor, error) {
	geometry, err := thumbnail.NewGeometry(cfg.Recipe, cfg.Width, cfg.StretchFactor)
	if err != nil {
		return nil, err
	}
	font, err := thumbnail.LoadFont(cfg.FontPath)
	if err != nil {
		return nil, err
	}
	c, err := thumbnail.ParseColor(cfg.Color)
	if err != nil {
		return nil, err
	}
	return thumbnail.NewCompositor(thumbnail.Options{
		Font:     font,
		Geometry: geometry,
		Overlay: thumbnail.Overlay{
			Color:     c,
			Origin:    image.Pt(cfg.OriginX, cfg.OriginY),
			Size:      cfg.FontSize,
			WrapWidth: cfg.WrapWidth,
		},
		JPEGQuality: cfg.JPEGQuality,
		MaxPixels:   cfg.MaxPixels,
	})
}

// NewAnalyzer selects the image analyzer named by vision.provider.
func NewAnalyzer(config *cloud.Config, clients *cloud.ServiceClients) (analyzer.ImageAnalyzer, error) {
	prompt, err := analyzer.NewPromptTemplate(config.PromptTemplates.CaptionPrompt)
	if err != nil {
		return nil, fmt.Errorf("caption prompt: %w", err)
	}
	switch config.Vision.Provider {
	case cloud.ProviderOpenAI:
		return analyzer.NewOpenAIAnalyzer(analyzer.OpenAIConfig{
			Endpoint:  config.Vision.Endpoint,
			Key:       config.Vision.Key,
			Model:     config.Vision.Model,
			RateLimit: config.Vision.RateLimit,
		}, prompt), nil
	case cloud.ProviderGemini:
		generator, ok := clients.AgentModels[config.Vision.AgentModel]
		if !ok {
			return nil, fmt.Errorf("agent model %q is not available", config.Vision.AgentModel)
		}
		return analyzer.NewGeminiAnalyzer(generator, prompt), nil
	default:
		return nil, fmt.Errorf("unknown vision provider %q", config.Vision.Provider)
	}
}

// NewStore selects the object store named by storage.backend.
func NewStore(config *cloud.Config, clients *cloud.ServiceClients) (blob.Store, error) {
	switch config.Storage.Backend {
	case cloud.BackendGCS:
		return cloud.NewGCSBlobStore(clients.StorageClient), nil
	case cloud.BackendS3:
		return cloud.NewS3BlobStore(clients.S3Client), nil
	case cloud.BackendMemory:
		slog.Warn("using the in-memory store; thumbnails are lost on exit")
		return blob.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", config.Storage.Backend)
	}
}
