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

package analyzer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/h2non/filetype"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

// DefaultPromptTemplate is used when no caption prompt is configured. It
// receives FEATURES and EXAMPLE_JSON.
const DefaultPromptTemplate = `You are an image analysis service.
Describe the attached image and answer with a single JSON object only, no prose.
Fill in these sections: {{ .FEATURES }}.
The "description.captions" array lists short, literal, lower case captions,
best first, each with a confidence between 0 and 1.
Use exactly this structure:
{{ .EXAMPLE_JSON }}`

// NewPromptTemplate parses text, falling back to DefaultPromptTemplate.
func NewPromptTemplate(text string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultPromptTemplate
	}
	return template.New("caption").Parse(text)
}

func renderPrompt(t *template.Template, features model.FeatureSet) (string, error) {
	example, err := json.Marshal(model.GetExampleAnalysis(features))
	if err != nil {
		return "", err
	}
	params := map[string]interface{}{
		"FEATURES":     features.String(),
		"EXAMPLE_JSON": string(example),
	}
	var buffer bytes.Buffer
	if err := t.Execute(&buffer, params); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buffer.String(), nil
}

// sniffImage returns the MIME type of image, or a DecodeError when the bytes
// are not a recognised image.
func sniffImage(image []byte) (string, error) {
	kind, err := filetype.Match(image)
	if err != nil || !filetype.IsImage(image) {
		return "", model.NewError(model.KindDecodeError, "sniff", "source is not a recognised image")
	}
	return kind.MIME.Value, nil
}

// decodeAnalysis parses a model answer, tolerating a markdown code fence.
func decodeAnalysis(text string) (*model.ImageAnalysis, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	out := &model.ImageAnalysis{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal image analysis JSON: %w", err)
	}
	return out, nil
}
