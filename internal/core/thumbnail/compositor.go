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

// Package thumbnail composes the captioned derivative of an uploaded image.
//
// Logic Flow:
//  1. The raw bytes are sniffed and their header decoded to reject non-images
//     and oversized sources before any pixel is allocated.
//  2. The image is decoded into an in-memory NRGBA buffer.
//  3. A Geometry strategy computes the target size and the image is resized.
//  4. The caption is drawn from the overlay origin with the configured face.
//  5. The result is encoded with the codec resolved from the source name.
//
// Decode, resize, draw and encode form one unit of local compute. Every
// buffer belongs to the call that created it, so a Compositor can be shared
// by concurrent invocations.
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"golang.org/x/image/font/opentype"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/codec"
	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

// DefaultMaxPixels bounds the decoded source pixel count. The target size
// follows from the Geometry and is not budgeted.
const DefaultMaxPixels = 64 << 20

// Options configures a Compositor.
type Options struct {
	Font        *opentype.Font // Required, see LoadFont.
	Geometry    Geometry       // Defaults to Stretch{Factor: 3}.
	Overlay     Overlay
	JPEGQuality int
	MaxPixels   int // Zero selects DefaultMaxPixels, negative disables the check.
}

// Spec is the plan for one thumbnail. A zero Width or Height is derived
// from the other dimension when resizing.
type Spec struct {
	Width, Height int
	Text          string
	Color         color.Color
	Origin        image.Point
}

// Compositor turns source bytes and a caption into an encoded thumbnail.
type Compositor struct {
	font        *opentype.Font
	geometry    Geometry
	overlay     Overlay
	jpegQuality int
	maxPixels   int
}

// NewCompositor validates opts and applies defaults.
func NewCompositor(opts Options) (*Compositor, error) {
	if opts.Font == nil {
		return nil, errors.New("thumbnail: a font is required")
	}
	if opts.Geometry == nil {
		opts.Geometry = Stretch{Factor: DefaultStretchFactor}
	}
	if opts.Overlay.Color == nil {
		opts.Overlay.Color = DefaultColor
	}
	if opts.Overlay.Size <= 0 {
		opts.Overlay.Size = DefaultFontSize
	}
	if opts.JPEGQuality == 0 {
		opts.JPEGQuality = codec.DefaultJPEGQuality
	}
	if opts.MaxPixels == 0 {
		opts.MaxPixels = DefaultMaxPixels
	}
	// A bad size fails here, at startup, instead of on every invocation.
	face, err := newFace(opts.Font, opts.Overlay.Size)
	if err != nil {
		return nil, fmt.Errorf("thumbnail: %w", err)
	}
	_ = face.Close()

	return &Compositor{
		font:        opts.Font,
		geometry:    opts.Geometry,
		overlay:     opts.Overlay,
		jpegQuality: opts.JPEGQuality,
		maxPixels:   opts.MaxPixels,
	}, nil
}

// Plan computes the Spec for a source of the given size.
func (c *Compositor) Plan(sourceW, sourceH int, caption model.Caption) Spec {
	w, h := c.geometry.ComputeTarget(sourceW, sourceH)
	return Spec{Width: w, Height: h, Text: caption.Text, Color: c.overlay.Color, Origin: c.overlay.Origin}
}

// Compose decodes src, resizes it, draws the caption and encodes it with cd.
// Invalid image data fails with a model.Error of kind DecodeError.
func (c *Compositor) Compose(src []byte, cd codec.Codec, caption model.Caption) (*model.Thumbnail, error) {
	if !cd.Supported() {
		return nil, model.NewError(model.KindInternal, "compose", "no encoder for unsupported codec")
	}
	if len(src) == 0 || !filetype.IsImage(src) {
		return nil, model.NewError(model.KindDecodeError, "decode", "source is not an image")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, model.WrapError(model.KindDecodeError, "decode", "unreadable image header", err)
	}
	if c.exceeds(cfg.Width, cfg.Height) {
		return nil, model.NewError(model.KindDecodeError, "decode",
			fmt.Sprintf("source %dx%d exceeds the pixel budget", cfg.Width, cfg.Height))
	}

	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, model.WrapError(model.KindDecodeError, "decode", "corrupt image data", err)
	}

	b := img.Bounds()
	spec := c.Plan(b.Dx(), b.Dy(), caption)
	canvas := imaging.Resize(img, spec.Width, spec.Height, imaging.Lanczos)

	face, err := newFace(c.font, c.overlay.Size)
	if err != nil {
		return nil, model.WrapError(model.KindInternal, "draw", "failed to create font face", err)
	}
	defer face.Close()

	overlay := c.overlay
	overlay.Color = spec.Color
	overlay.Origin = spec.Origin
	drawCaption(canvas, face, overlay, spec.Text)

	var buf bytes.Buffer
	if err := cd.Encode(&buf, canvas, c.jpegQuality); err != nil {
		return nil, model.WrapError(model.KindInternal, "encode", "failed to encode "+cd.String(), err)
	}

	out := canvas.Bounds()
	return &model.Thumbnail{
		Data:        buf.Bytes(),
		Width:       out.Dx(),
		Height:      out.Dy(),
		ContentType: cd.ContentType(),
	}, nil
}

func (c *Compositor) exceeds(w, h int) bool {
	return c.maxPixels > 0 && int64(w)*int64(h) > int64(c.maxPixels)
}
