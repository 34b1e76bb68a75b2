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

// Package api contains the HTTP route definitions of the server.
//
// Routes:
//   - POST /api/v1/events: Webhook receiving upload notifications (Event Grid,
//     CloudEvents, GCS notifications and Pub/Sub push).
//   - GET /api/v1/thumbnails: The most recent thumbnails.
//   - GET /api/v1/thumbnails/:id: One thumbnail by ledger id.
//   - GET /api/v1/thumbnails/lookup?source=<url>: One thumbnail by source URL.
//   - POST /api/v1/uploads: Stores multipart images and processes them.
//   - GET /healthz: Liveness.
package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RouterConfig lists the route handlers. Events is required.
type RouterConfig struct {
	ServiceName string
	Events      EventHandler
	Finder      ThumbnailFinder // Nil when no BigQuery dataset is configured.
	Uploads     *Uploads        // Nil disables POST /uploads.
}

// NewRouter builds the gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(cors.Default())

	Health(r)
	apiV1 := r.Group("/api/v1")
	{
		EventRouter(apiV1, cfg.Events)
		if cfg.Finder != nil {
			ThumbnailRouter(apiV1, cfg.Finder)
		}
		if cfg.Uploads != nil {
			UploadRouter(apiV1, *cfg.Uploads)
		}
	}
	return r
}

// Health registers the liveness probe.
func Health(r gin.IRoutes) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
