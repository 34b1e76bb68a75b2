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

package thumbnail

import (
	"fmt"
	"math"
	"strings"
)

// Recipe names accepted in configuration.
const (
	RecipeStretch       = "stretch"
	RecipeShrinkToWidth = "shrink_to_width"

	// DefaultRecipe is used when no recipe is configured.
	DefaultRecipe = RecipeStretch

	DefaultStretchFactor = 3
)

// Geometry computes the target size of a thumbnail from the source size.
// A zero dimension means "derive from the other one, keeping aspect ratio".
type Geometry interface {
	ComputeTarget(sourceW, sourceH int) (w, h int)
	Name() string
}

// Stretch fixes the height to Factor times the source height and lets the
// width follow the aspect ratio, which leaves room for the caption.
type Stretch struct {
	Factor int
}

func (s Stretch) ComputeTarget(_, sourceH int) (int, int) {
	factor := s.Factor
	if factor < 1 {
		factor = DefaultStretchFactor
	}
	return 0, sourceH * factor
}

func (s Stretch) Name() string { return RecipeStretch }

// ShrinkToWidth scales the image to Width pixels wide. The height is the
// source height divided by W/Width, rounded, and never below one pixel.
type ShrinkToWidth struct {
	Width int
}

func (s ShrinkToWidth) ComputeTarget(sourceW, sourceH int) (int, int) {
	if sourceW <= 0 || s.Width <= 0 {
		return s.Width, sourceH
	}
	divisor := float64(sourceW) / float64(s.Width)
	h := int(math.Round(float64(sourceH) / divisor))
	if h < 1 {
		h = 1
	}
	return s.Width, h
}

func (s ShrinkToWidth) Name() string { return RecipeShrinkToWidth }

// NewGeometry builds the strategy named by recipe. An empty recipe selects
// DefaultRecipe. width is only used by ShrinkToWidth and must be positive.
func NewGeometry(recipe string, width, stretchFactor int) (Geometry, error) {
	switch strings.ToLower(strings.TrimSpace(recipe)) {
	case "", RecipeStretch:
		if stretchFactor == 0 {
			stretchFactor = DefaultStretchFactor
		}
		if stretchFactor < 1 {
			return nil, fmt.Errorf("stretch factor must be positive, got %d", stretchFactor)
		}
		return Stretch{Factor: stretchFactor}, nil
	case RecipeShrinkToWidth:
		if width <= 0 {
			return nil, fmt.Errorf("recipe %s needs a positive thumbnail width, got %d", RecipeShrinkToWidth, width)
		}
		return ShrinkToWidth{Width: width}, nil
	default:
		return nil, fmt.Errorf("unknown thumbnail recipe %q", recipe)
	}
}
