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
	"fmt"
	"strings"
)

// Feature is a visual feature that can be requested from an image analyzer.
type Feature string

const (
	FeatureDescription Feature = "description"
	FeatureCategories  Feature = "categories"
	FeatureTags        Feature = "tags"
	FeatureImageType   Feature = "image_type"
)

// FeatureSet is the list of features requested in one analysis call.
type FeatureSet []Feature

// DefaultFeatures mirrors the full request of the caption pipeline: only the
// description drives the thumbnail, the rest is informational.
var DefaultFeatures = FeatureSet{FeatureCategories, FeatureDescription, FeatureImageType, FeatureTags}

// Has reports whether f is part of the set.
func (s FeatureSet) Has(f Feature) bool {
	for _, v := range s {
		if v == f {
			return true
		}
	}
	return false
}

// WithDescription returns the set with FeatureDescription guaranteed present.
func (s FeatureSet) WithDescription() FeatureSet {
	if s.Has(FeatureDescription) {
		return s
	}
	out := make(FeatureSet, 0, len(s)+1)
	out = append(out, FeatureDescription)
	return append(out, s...)
}

func (s FeatureSet) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}

// ParseFeatureSet converts configuration strings into a FeatureSet.
func ParseFeatureSet(values []string) (FeatureSet, error) {
	out := make(FeatureSet, 0, len(values))
	for _, v := range values {
		f := Feature(strings.ToLower(strings.TrimSpace(v)))
		switch f {
		case FeatureDescription, FeatureCategories, FeatureTags, FeatureImageType:
			if !out.Has(f) {
				out = append(out, f)
			}
		default:
			return nil, fmt.Errorf("unknown analysis feature %q", v)
		}
	}
	return out, nil
}

// ImageAnalysis is the structured answer of an image analyzer. Only the
// fields matching the requested features are expected to be populated.
type ImageAnalysis struct {
	Categories  []Category   `json:"categories,omitempty"`
	Description *Description `json:"description,omitempty"`
	Tags        []Tag        `json:"tags,omitempty"`
	ImageType   *ImageType   `json:"image_type,omitempty"`
}

// Description holds the ranked caption candidates, best first.
type Description struct {
	Captions []Caption `json:"captions"`
	Tags     []string  `json:"tags,omitempty"`
}

type Category struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type Tag struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// ImageType classifies clip art and line drawings on a 0-3 and 0-1 scale.
type ImageType struct {
	ClipArtType     int `json:"clip_art_type"`
	LineDrawingType int `json:"line_drawing_type"`
}

// FirstCaption returns the top ranked caption candidate with non-blank text.
func (a *ImageAnalysis) FirstCaption() (Caption, bool) {
	if a == nil || a.Description == nil {
		return Caption{}, false
	}
	for _, c := range a.Description.Captions {
		if strings.TrimSpace(c.Text) != "" {
			return c, true
		}
	}
	return Caption{}, false
}
