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

package test

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/codec"
)

// NewImageBytes encodes a solid w x h image with the given codec.
func NewImageBytes(t testing.TB, c codec.Codec, w, h int, fill color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Encode(&buf, imaging.New(w, h, fill), 95); err != nil {
		t.Fatalf("failed to encode %s test image: %v", c, err)
	}
	return buf.Bytes()
}

// DecodeImage decodes encoded image bytes, failing the test on error.
func DecodeImage(t testing.TB, data []byte) image.Image {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode image: %v", err)
	}
	return img
}

// CountPixels counts the pixels inside r for which match returns true.
func CountPixels(img image.Image, r image.Rectangle, match func(c color.NRGBA) bool) int {
	r = r.Intersect(img.Bounds())
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if match(color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)) {
				n++
			}
		}
	}
	return n
}

// Reddish matches strongly red pixels.
func Reddish(c color.NRGBA) bool {
	return c.R > 180 && c.G < 80 && c.B < 80
}

// Bright matches near white pixels.
func Bright(c color.NRGBA) bool {
	return c.R > 170 && c.G > 170 && c.B > 170
}
