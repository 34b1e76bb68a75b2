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

package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/services"
)

const (
	defaultListCount = 20
	maxListCount     = 100
)

// ThumbnailFinder is the read side of the thumbnail ledger.
// *services.ThumbnailService is the production implementation.
type ThumbnailFinder interface {
	Get(ctx context.Context, id string) (*services.ThumbnailView, error)
	GetBySource(ctx context.Context, sourceURL string) (*services.ThumbnailView, error)
	List(ctx context.Context, limit int) ([]*services.ThumbnailView, error)
}

// ThumbnailRouter sets up the routes for thumbnail retrieval.
func ThumbnailRouter(r *gin.RouterGroup, finder ThumbnailFinder) {
	thumbnails := r.Group("/thumbnails")
	{
		thumbnails.GET("", func(c *gin.Context) {
			count, err := strconv.Atoi(c.DefaultQuery("count", strconv.Itoa(defaultListCount)))
			if err != nil || count <= 0 {
				count = defaultListCount
			}
			count = min(count, maxListCount)
			out, err := finder.List(c.Request.Context(), count)
			if err != nil {
				slog.ErrorContext(c, "failed to list thumbnails", "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		thumbnails.GET("/lookup", func(c *gin.Context) {
			source := c.Query("source")
			if source == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "source is required"})
				return
			}
			respond(c, func(ctx context.Context) (*services.ThumbnailView, error) {
				return finder.GetBySource(ctx, source)
			})
		})

		thumbnails.GET("/:id", func(c *gin.Context) {
			id := c.Param("id")
			respond(c, func(ctx context.Context) (*services.ThumbnailView, error) {
				return finder.Get(ctx, id)
			})
		})
	}
}

func respond(c *gin.Context, get func(ctx context.Context) (*services.ThumbnailView, error)) {
	out, err := get(c.Request.Context())
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "thumbnail not found"})
	case err != nil:
		slog.ErrorContext(c, "failed to get thumbnail", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load thumbnail"})
	default:
		c.JSON(http.StatusOK, out)
	}
}
