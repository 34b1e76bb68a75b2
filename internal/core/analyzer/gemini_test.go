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

package analyzer_test

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/analyzer"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/codec"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
	test "github.com/jaycherian/gcp-go-image-captioner/internal/testutil"
)

type recordingGenerator struct {
	reply    string
	err      error
	contents []*genai.Content
}

func (r *recordingGenerator) GenerateContent(_ context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	r.contents = contents
	if r.err != nil {
		return nil, r.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: r.reply}}}}},
	}, nil
}

func TestGeminiAnalyzerSendsInlineImage(t *testing.T) {
	gen := &recordingGenerator{reply: "```json\n" +
		`{"description":{"captions":[{"text":"a cat sitting on a chair","confidence":0.93}]},"tags":[{"name":"cat","confidence":0.99}]}` +
		"\n```"}
	tmpl, err := analyzer.NewPromptTemplate("")
	require.NoError(t, err)
	img := test.NewImageBytes(t, codec.JPEG, 8, 8, color.White)

	analysis, err := analyzer.NewGeminiAnalyzer(gen, tmpl).Analyze(context.Background(), img, model.FeatureSet{model.FeatureDescription, model.FeatureTags})
	require.NoError(t, err)

	caption, ok := analysis.FirstCaption()
	require.True(t, ok)
	assert.Equal(t, "a cat sitting on a chair", caption.Text)
	assert.Equal(t, "cat", analysis.Tags[0].Name)

	require.Len(t, gen.contents, 1)
	parts := gen.contents[0].Parts
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0].Text, "description,tags")
	assert.Contains(t, parts[0].Text, `"captions"`)
	assert.NotContains(t, parts[0].Text, `"categories"`, "example only shows requested sections")
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/jpeg", parts[1].InlineData.MIMEType)
	assert.Equal(t, img, parts[1].InlineData.Data)
}

func TestGeminiAnalyzerRejectsNonImages(t *testing.T) {
	gen := &recordingGenerator{}
	tmpl, _ := analyzer.NewPromptTemplate("")

	_, err := analyzer.NewGeminiAnalyzer(gen, tmpl).Analyze(context.Background(), []byte("%PDF-1.4"), model.DefaultFeatures)
	assert.Equal(t, model.KindDecodeError, model.KindOf(err))
	assert.Nil(t, gen.contents, "model is not called")
}

func TestGeminiAnalyzerErrors(t *testing.T) {
	tmpl, _ := analyzer.NewPromptTemplate("Features: {{ .FEATURES }}")
	img := test.NewImageBytes(t, codec.PNG, 4, 4, color.Black)

	_, err := analyzer.NewGeminiAnalyzer(&recordingGenerator{err: errors.New("resource exhausted")}, tmpl).
		Analyze(context.Background(), img, model.DefaultFeatures)
	assert.ErrorContains(t, err, "resource exhausted")

	_, err = analyzer.NewGeminiAnalyzer(&recordingGenerator{reply: "a cat, probably"}, tmpl).
		Analyze(context.Background(), img, model.DefaultFeatures)
	assert.ErrorContains(t, err, "unmarshal")
}

func TestNewPromptTemplateRejectsBrokenTemplate(t *testing.T) {
	_, err := analyzer.NewPromptTemplate("{{ .FEATURES ")
	assert.Error(t, err)
}
