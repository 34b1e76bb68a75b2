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

// Package model defines the core data structures for the application.
// This file, `transient.go`, contains the values that live only for the
// duration of one pipeline invocation. They are created when an upload event
// arrives, passed between the commands of the chain and discarded once the
// thumbnail has been written (or the invocation has failed).
package model

import "github.com/jaycherian/gcp-go-image-captioner/internal/core/codec"

// Context keys shared by the commands of the captioned thumbnail chain.
const (
	KeyEvent       = "__UPLOAD_EVENT__"
	KeySource      = "__SOURCE_STREAM__"
	KeyJob         = "__THUMBNAIL_JOB__"
	KeySourceBytes = "__SOURCE_BYTES__"
	KeyCaption     = "__CAPTION__"
	KeyThumbnail   = "__THUMBNAIL__"
)

// SourceReference is the fully qualified locator of the uploaded object.
type SourceReference struct {
	URL string `json:"url"`
}

// ThumbnailJob carries everything derived from the source reference.
type ThumbnailJob struct {
	Source      SourceReference
	Container   string      // Destination container (bucket) name.
	Destination string      // Destination object name, derived from Source.
	Codec       codec.Codec // Encoder selected from the source extension.
}

// Caption is the natural-language description chosen for an image.
type Caption struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Thumbnail is the encoded, captioned derivative ready for upload.
type Thumbnail struct {
	Data        []byte
	Width       int
	Height      int
	ContentType string
}
