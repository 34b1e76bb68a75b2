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

package model

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

// EventSchema tags the envelope an UploadEvent was decoded from.
type EventSchema string

const (
	SchemaEventGrid       EventSchema = "eventgrid"
	SchemaCloudEvent      EventSchema = "cloudevent"
	SchemaGCSNotification EventSchema = "gcs_notification"
	SchemaUpload          EventSchema = "upload"
)

// UploadEvent is the validated form of every inbound "object created"
// notification. Source.URL is always non-empty.
type UploadEvent struct {
	Schema        EventSchema     `json:"schema"`
	ID            string          `json:"id,omitempty"`
	Type          string          `json:"type,omitempty"`
	Subject       string          `json:"subject,omitempty"`
	Source        SourceReference `json:"source"`
	ContentType   string          `json:"content_type,omitempty"`
	ContentLength int64           `json:"content_length,omitempty"`
}

// envelope is the union of the JSON shapes we accept: Event Grid events,
// CloudEvents (structured mode), GCS Pub/Sub notifications and Pub/Sub push
// wrappers around any of these.
type envelope struct {
	Message *struct {
		Data       []byte            `json:"data"`
		Attributes map[string]string `json:"attributes"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`

	ID          string          `json:"id"`
	EventType   string          `json:"eventType"`
	Subject     string          `json:"subject"`
	SpecVersion string          `json:"specversion"`
	Type        string          `json:"type"`
	Data        json.RawMessage `json:"data"`

	Kind        string `json:"kind"`
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
}

type objectData struct {
	URL           string `json:"url"`
	ContentType   string `json:"contentType"`
	ContentLength int64  `json:"contentLength"`
	Bucket        string `json:"bucket"`
	Name          string `json:"name"`
	Size          string `json:"size"`
}

// ParseUploadEvent decodes a single event. A JSON array holding exactly one
// event is accepted, as Event Grid webhooks deliver batches.
func ParseUploadEvent(payload []byte) (*UploadEvent, error) {
	events, err := ParseUploadEvents(payload)
	if err != nil {
		return nil, err
	}
	if len(events) != 1 {
		return nil, NewError(KindInvalidPayload, "parse-event", "expected exactly one event, got "+strconv.Itoa(len(events)))
	}
	return events[0], nil
}

// ParseUploadEvents decodes a single event or a batch of events. Every event
// must resolve to a source URL or the whole payload is rejected.
func ParseUploadEvents(payload []byte) ([]*UploadEvent, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, NewError(KindInvalidPayload, "parse-event", "empty payload")
	}
	if trimmed[0] != '[' {
		evt, err := parseEnvelope(trimmed, 0)
		if err != nil {
			return nil, err
		}
		return []*UploadEvent{evt}, nil
	}

	var batch []json.RawMessage
	if err := json.Unmarshal(trimmed, &batch); err != nil {
		return nil, WrapError(KindInvalidPayload, "parse-event", "malformed event batch", err)
	}
	if len(batch) == 0 {
		return nil, NewError(KindInvalidPayload, "parse-event", "empty event batch")
	}
	out := make([]*UploadEvent, 0, len(batch))
	for _, raw := range batch {
		evt, err := parseEnvelope(raw, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, nil
}

func parseEnvelope(raw []byte, depth int) (*UploadEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, WrapError(KindInvalidPayload, "parse-event", "malformed event JSON", err)
	}

	// Pub/Sub push delivery: the notification is the base64 data of the message.
	if env.Message != nil && depth == 0 {
		if len(bytes.TrimSpace(env.Message.Data)) > 0 {
			evt, err := parseEnvelope(env.Message.Data, depth+1)
			if err != nil {
				return nil, err
			}
			if evt.ID == "" {
				evt.ID = env.Message.MessageID
			}
			return evt, nil
		}
		bucket, object := env.Message.Attributes["bucketId"], env.Message.Attributes["objectId"]
		if bucket == "" || object == "" {
			return nil, NewError(KindInvalidPayload, "parse-event", "push message carries neither data nor object attributes")
		}
		return &UploadEvent{
			Schema: SchemaGCSNotification,
			ID:     env.Message.MessageID,
			Type:   env.Message.Attributes["eventType"],
			Source: SourceReference{URL: gcsURL(bucket, object)},
		}, nil
	}

	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		var data objectData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, WrapError(KindInvalidPayload, "parse-event", "malformed event data", err)
		}
		evt := &UploadEvent{
			Schema:        SchemaEventGrid,
			ID:            env.ID,
			Type:          env.EventType,
			Subject:       env.Subject,
			ContentType:   data.ContentType,
			ContentLength: data.ContentLength,
		}
		if env.SpecVersion != "" {
			evt.Schema = SchemaCloudEvent
			evt.Type = env.Type
		}
		switch {
		case strings.TrimSpace(data.URL) != "":
			evt.Source = SourceReference{URL: strings.TrimSpace(data.URL)}
		case data.Bucket != "" && data.Name != "":
			evt.Source = SourceReference{URL: gcsURL(data.Bucket, data.Name)}
			if evt.ContentLength == 0 {
				evt.ContentLength, _ = strconv.ParseInt(data.Size, 10, 64)
			}
		default:
			return nil, NewError(KindInvalidPayload, "parse-event", "event data has no url")
		}
		return evt, nil
	}

	if env.Bucket != "" && env.Name != "" {
		size, _ := strconv.ParseInt(env.Size, 10, 64)
		return &UploadEvent{
			Schema:        SchemaGCSNotification,
			ID:            env.ID,
			Type:          env.Kind,
			Source:        SourceReference{URL: gcsURL(env.Bucket, env.Name)},
			ContentType:   env.ContentType,
			ContentLength: size,
		}, nil
	}

	return nil, NewError(KindInvalidPayload, "parse-event", "event has no data.url")
}

func gcsURL(bucket, object string) string {
	u := url.URL{Scheme: "gs", Host: bucket, Path: "/" + object}
	return u.String()
}
