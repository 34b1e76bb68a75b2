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

// Package bus connects the pipeline to NATS. Upload notifications can arrive
// on a subject instead of Pub/Sub, and every Result can be published for
// downstream consumers.
package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

// QueueGroup load balances inbound notifications across server replicas.
const QueueGroup = "image-captioner"

// HandlerTimeout bounds the processing of one inbound message.
const HandlerTimeout = 2 * time.Minute

type Client struct{ nc *nats.Conn }

func Connect(url string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.Name(QueueGroup),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Client{nc: nc}, nil
}

// Close drains pending messages and subscriptions before closing.
func (c *Client) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}

func (c *Client) Publish(subject string, data []byte) error {
	return c.nc.Publish(subject, data)
}

// Handler processes one raw upload notification.
type Handler interface {
	Handle(ctx context.Context, payload []byte) *model.Result
}

// SubscribeUploads feeds every message of subject to handler through the
// queue group. Requests carrying a reply subject get the Result back.
// Core NATS does not redeliver, so transient failures are only logged.
func (c *Client) SubscribeUploads(ctx context.Context, subject string, handler Handler) (*nats.Subscription, error) {
	return c.nc.QueueSubscribe(subject, QueueGroup, func(msg *nats.Msg) {
		HandleMessage(ctx, handler, msg)
	})
}

// HandleMessage runs handler for msg and answers requests.
func HandleMessage(ctx context.Context, handler Handler, msg *nats.Msg) {
	msgCtx, cancel := context.WithTimeout(ctx, HandlerTimeout)
	defer cancel()

	result := handler.Handle(msgCtx, msg.Data)
	if result.Outcome.Retryable() {
		slog.WarnContext(ctx, "nats upload failed and will not be redelivered",
			"subject", msg.Subject,
			"outcome", result.Outcome,
			"source_url", result.SourceURL,
		)
	}
	if msg.Reply == "" {
		return
	}
	b, err := json.Marshal(result)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode nats reply", "error", err)
		return
	}
	if err := msg.Respond(b); err != nil {
		slog.WarnContext(ctx, "failed to reply to nats request", "subject", msg.Reply, "error", err)
	}
}

// Publisher is the part of Client used by ResultPublisher.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// ResultPublisher publishes every Result as JSON. The subject gets the
// outcome appended, e.g. "thumbnails.results.Done", so consumers can
// subscribe to the outcomes they care about.
type ResultPublisher struct {
	pub     Publisher
	subject string
}

func NewResultPublisher(pub Publisher, subject string) *ResultPublisher {
	return &ResultPublisher{pub: pub, subject: subject}
}

func (p *ResultPublisher) Name() string {
	return "nats:" + p.subject
}

func (p *ResultPublisher) Record(_ context.Context, result *model.Result) error {
	b, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return p.pub.Publish(p.subject+"."+string(result.Outcome), b)
}
