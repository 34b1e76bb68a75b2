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

// Package model defines the data structures for the application. This file,
// `examples.go`, provides a hardcoded example of an image analysis.
//
// The example is embedded in the prompt sent to the generative models so the
// model answers with exactly the JSON structure ImageAnalysis decodes.
package model

// GetExampleAnalysis creates a sample ImageAnalysis used for "few-shot"
// prompting. It only contains the sections requested in features.
//
// Inputs:
//   - features: The feature set requested for the current analysis.
//
// Outputs:
//   - *ImageAnalysis: A pointer to a hardcoded ImageAnalysis.
func GetExampleAnalysis(features FeatureSet) *ImageAnalysis {
	out := &ImageAnalysis{}
	if features.Has(FeatureDescription) {
		out.Description = &Description{
			Captions: []Caption{
				{Text: "a dog running on a beach", Confidence: 0.92},
				{Text: "a brown dog on the sand", Confidence: 0.81},
			},
			Tags: []string{"dog", "beach", "outdoor"},
		}
	}
	if features.Has(FeatureCategories) {
		out.Categories = []Category{{Name: "animal_dog", Score: 0.89}, {Name: "outdoor_beach", Score: 0.55}}
	}
	if features.Has(FeatureTags) {
		out.Tags = []Tag{{Name: "dog", Confidence: 0.99}, {Name: "sand", Confidence: 0.87}, {Name: "water", Confidence: 0.71}}
	}
	if features.Has(FeatureImageType) {
		out.ImageType = &ImageType{ClipArtType: 0, LineDrawingType: 0}
	}
	return out
}
