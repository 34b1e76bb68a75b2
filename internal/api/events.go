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
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

// MaxEventBytes bounds the webhook request body.
const MaxEventBytes = 1 << 20

const subscriptionValidationEvent = "Microsoft.EventGrid.SubscriptionValidationEvent"

// EventHandler processes every event of a notification payload.
// *workflow.CaptionThumbnailWorkflow is the production implementation.
type EventHandler interface {
	HandleAll(ctx context.Context, payload []byte) []*model.Result
}

// EventsResponse is the webhook reply.
type EventsResponse struct {
	Results []*model.Result `json:"results"`
}

// EventRouter registers the upload webhook.
//
// Status codes:
//   - 200: Every event reached a terminal outcome that must not be redelivered,
//     including the no-op outcomes and corrupt images.
//   - 400: The payload could not be parsed.
//   - 413: The payload exceeds MaxEventBytes.
//   - 503: At least one event failed transiently; the sender should retry.
func EventRouter(r *gin.RouterGroup, handler EventHandler) {
	r.POST("/events", func(c *gin.Context) {
		payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxEventBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}

		if code, ok := validationCode(payload); ok {
			slog.InfoContext(c, "answering event grid subscription validation")
			c.JSON(http.StatusOK, gin.H{"validationResponse": code})
			return
		}

		results := handler.HandleAll(c.Request.Context(), payload)
		c.JSON(statusFor(results), EventsResponse{Results: results})
	})
}

// statusFor maps outcomes onto the HTTP status the sender acts upon.
func statusFor(results []*model.Result) int {
	status := http.StatusOK
	for _, r := range results {
		switch {
		case r.Outcome == model.OutcomeInvalidPayload:
			return http.StatusBadRequest
		case r.Outcome.Retryable():
			status = http.StatusServiceUnavailable
		}
	}
	return status
}

// validationCode recognises the handshake Event Grid sends when a webhook
// subscription is created.
func validationCode(payload []byte) (string, bool) {
	var events []struct {
		EventType string `json:"eventType"`
		Data      struct {
			ValidationCode string `json:"validationCode"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &events); err != nil || len(events) != 1 {
		return "", false
	}
	if events[0].EventType != subscriptionValidationEvent || events[0].Data.ValidationCode == "" {
		return "", false
	}
	return events[0].Data.ValidationCode, true
}
