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
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// DefaultColor is the caption colour when none is configured.
var DefaultColor = colornames.Red

// DefaultOrigin is the top-left corner of the caption box.
var DefaultOrigin = image.Pt(1, 1)

// Overlay describes how the caption is drawn.
type Overlay struct {
	Color     color.Color
	Origin    image.Point // Top-left corner of the first line.
	Size      float64     // Point size at 72 DPI, i.e. pixels.
	WrapWidth int         // Zero disables wrapping.
}

// ParseColor accepts a CSS/SVG colour name ("red", "white") or a hex value
// in #rgb, #rrggbb or #rrggbbaa form. An empty string yields DefaultColor.
func ParseColor(s string) (color.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultColor, nil
	}
	if c, ok := colornames.Map[s]; ok {
		return c, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return nil, fmt.Errorf("unknown colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("unknown colour %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// drawCaption renders text onto dst with face, left aligned from o.Origin.
func drawCaption(dst draw.Image, face font.Face, o Overlay, text string) {
	c := o.Color
	if c == nil {
		c = DefaultColor
	}
	lines := []string{strings.Join(strings.Fields(text), " ")}
	if o.WrapWidth > 0 {
		lines = wrapLines(face, text, o.WrapWidth)
	}

	metrics := face.Metrics()
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: face}
	baseline := o.Origin.Y + metrics.Ascent.Ceil()
	for _, line := range lines {
		d.Dot = fixed.P(o.Origin.X, baseline)
		d.DrawString(line)
		baseline += metrics.Height.Ceil()
	}
}

// wrapLines breaks text on whitespace so every line fits width pixels. A
// single word wider than width gets a line of its own.
func wrapLines(face font.Face, text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	lines := make([]string, 0, 2)
	current := words[0]
	for _, w := range words[1:] {
		candidate := current + " " + w
		if font.MeasureString(face, candidate).Ceil() > width {
			lines = append(lines, current)
			current = w
			continue
		}
		current = candidate
	}
	return append(lines, current)
}
