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
// This file defines the Pub/Sub listener delivering upload notifications to a
// MessageHandler, usually the caption thumbnail workflow.
//
// Logic Flow:
//  1. An instance of PubSubListener is created with a client and a subscription ID.
//  2. A MessageHandler is attached once the workflow has been built.
//  3. `Listen` blocks, receiving messages until its context is canceled.
//  4. Each message runs inside its own span and, when configured, its own deadline.
//  5. The message is acknowledged when the outcome succeeded or cannot succeed on
//     redelivery. Retryable outcomes are nacked so Pub/Sub redelivers them,
//     subject to the subscription's retry and dead-letter policy.
package cloud

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

// MessageHandler processes one raw delivery and reports its outcome.
type MessageHandler interface {
	Handle(ctx context.Context, payload []byte) *model.Result
}

// ShouldAck is the delivery policy shared by every transport: success and
// permanent failures are acknowledged, transient failures are redelivered.
func ShouldAck(outcome model.Outcome) bool {
	return outcome.Succeeded() || !outcome.Retryable()
}

// PubSubListener connects a subscription to a MessageHandler.
type PubSubListener struct {
	client       *pubsub.Client
	subscription *pubsub.Subscription
	handler      MessageHandler
	timeout      time.Duration
}

// NewPubSubListener is the constructor for creating a PubSubListener.
//
// Inputs:
//   - pubsubClient: An authenticated *pubsub.Client for connecting to the service.
//   - subscription: The subscription settings from the config.
//   - concurrency: Maximum messages processed at once; 0 keeps the client defaults.
//   - handler: May be nil and attached later with SetHandler.
//
// Outputs:
//   - *PubSubListener: A pointer to the newly created and configured listener.
//   - error: An error when the subscription name is empty.
func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscription TopicSubscription,
	concurrency int,
	handler MessageHandler,
) (*PubSubListener, error) {
	if subscription.Name == "" {
		return nil, errors.New("pubsub listener: subscription name is required")
	}
	sub := pubsubClient.Subscription(subscription.Name)
	if concurrency > 0 {
		sub.ReceiveSettings.NumGoroutines = 1
		sub.ReceiveSettings.MaxOutstandingMessages = concurrency
	}
	return &PubSubListener{
		client:       pubsubClient,
		subscription: sub,
		handler:      handler,
		timeout:      time.Duration(subscription.TimeoutInSeconds) * time.Second,
	}, nil
}

// SetHandler attaches the handler unless one is already set.
func (m *PubSubListener) SetHandler(handler MessageHandler) {
	if m.handler == nil {
		m.handler = handler
	}
}

// Listen receives messages until ctx is canceled. It returns nil on a
// clean shutdown.
func (m *PubSubListener) Listen(ctx context.Context) error {
	if m.handler == nil {
		return errors.New("pubsub listener: no handler attached to " + m.subscription.String())
	}
	slog.InfoContext(ctx, "listening", "subscription", m.subscription.String())

	err := m.subscription.Receive(ctx, func(msgCtx context.Context, msg *pubsub.Message) {
		if m.process(msgCtx, msg.ID, msg.Data) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.ErrorContext(ctx, "error receiving data", "subscription", m.subscription.String(), "error", err)
		return err
	}
	return nil
}

// process runs the handler for one message and returns whether to ack it.
func (m *PubSubListener) process(ctx context.Context, messageID string, data []byte) bool {
	tracer := otel.Tracer("message-listener")
	spanCtx, span := tracer.Start(ctx, "receive-message")
	defer span.End()
	span.SetAttributes(attribute.String("messaging.message.id", messageID))

	if m.timeout > 0 {
		var cancel context.CancelFunc
		spanCtx, cancel = context.WithTimeout(spanCtx, m.timeout)
		defer cancel()
	}

	result := m.handler.Handle(spanCtx, data)
	span.SetAttributes(attribute.String("outcome", string(result.Outcome)))

	ack := ShouldAck(result.Outcome)
	if result.Outcome.Succeeded() {
		span.SetStatus(codes.Ok, "success")
	} else {
		span.SetStatus(codes.Error, string(result.Outcome))
	}
	slog.InfoContext(spanCtx, "message processed",
		"message_id", messageID,
		"outcome", result.Outcome,
		"ack", ack,
	)
	return ack
}
