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

// Package codec selects the image encoder used for a thumbnail from the file
// extension of the uploaded source. Only PNG, JPEG and GIF are supported;
// everything else resolves to Unsupported, which is a valid answer and not an
// error.
package codec

import (
	"errors"
	"image"
	"io"
	"path"
	"strings"

	"github.com/disintegration/imaging"
)

// Codec identifies an image container format.
type Codec int

const (
	Unsupported Codec = iota
	PNG
	JPEG
	GIF
)

// DefaultJPEGQuality is used when no quality is configured.
const DefaultJPEGQuality = 90

var errUnsupported = errors.New("codec: unsupported format")

// Resolve maps a file extension to a codec. A single leading "." is ignored
// and matching is case-insensitive; "jpg" and "jpeg" both select JPEG.
func Resolve(extension string) Codec {
	ext := strings.ToLower(strings.TrimPrefix(extension, "."))
	switch ext {
	case "png":
		return PNG
	case "jpg", "jpeg":
		return JPEG
	case "gif":
		return GIF
	default:
		return Unsupported
	}
}

// FromPath resolves the codec from the extension of a slash separated path.
func FromPath(p string) Codec {
	return Resolve(path.Ext(p))
}

func (c Codec) Supported() bool {
	return c != Unsupported
}

func (c Codec) String() string {
	switch c {
	case PNG:
		return "PNG"
	case JPEG:
		return "JPEG"
	case GIF:
		return "GIF"
	default:
		return "Unsupported"
	}
}

// ContentType is the MIME type written alongside the encoded object.
func (c Codec) ContentType() string {
	switch c {
	case PNG:
		return "image/png"
	case JPEG:
		return "image/jpeg"
	case GIF:
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// Encode writes img to w in this codec. jpegQuality is ignored for PNG and
// GIF; values outside 1-100 fall back to DefaultJPEGQuality.
func (c Codec) Encode(w io.Writer, img image.Image, jpegQuality int) error {
	if jpegQuality < 1 || jpegQuality > 100 {
		jpegQuality = DefaultJPEGQuality
	}
	switch c {
	case PNG:
		return imaging.Encode(w, img, imaging.PNG)
	case JPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	case GIF:
		return imaging.Encode(w, img, imaging.GIF)
	default:
		return errUnsupported
	}
}
