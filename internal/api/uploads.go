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
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/blob"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/codec"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

// MaxUploadBytes bounds one multipart upload request.
const MaxUploadBytes = 32 << 20

// EventProcessor runs the pipeline for an already parsed event.
type EventProcessor interface {
	HandleEvent(ctx context.Context, event *model.UploadEvent) *model.Result
}

// Uploads configures the upload route.
type Uploads struct {
	Store     blob.Store
	Container string                              // Container receiving the source images.
	SourceURL func(container, name string) string // Locator understood by Store.Read.
	Processor EventProcessor
}

// UploadRouter registers POST /uploads. Every file of the "files" form field
// is written to the upload container and processed right away, the way an
// upload notification would be.
func UploadRouter(r *gin.RouterGroup, u Uploads) {
	r.POST("/uploads", func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form: " + err.Error()})
			return
		}
		files := form.File["files"]
		if len(files) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no files"})
			return
		}

		results := make([]*model.Result, 0, len(files))
		for _, file := range files {
			name := path.Base(file.Filename)
			data, err := readPart(file)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file " + name})
				return
			}
			contentType := codec.FromPath(name).ContentType()
			if err := u.Store.Write(c.Request.Context(), u.Container, name, data, contentType); err != nil {
				slog.ErrorContext(c, "failed to store upload", "name", name, "error", err)
				c.JSON(http.StatusBadGateway, gin.H{"error": "could not store " + name})
				return
			}
			event := &model.UploadEvent{
				Schema:        model.SchemaUpload,
				Source:        model.SourceReference{URL: u.SourceURL(u.Container, name)},
				ContentType:   contentType,
				ContentLength: int64(len(data)),
			}
			results = append(results, u.Processor.HandleEvent(c.Request.Context(), event))
		}
		c.JSON(statusFor(results), EventsResponse{Results: results})
	})
}

func readPart(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
