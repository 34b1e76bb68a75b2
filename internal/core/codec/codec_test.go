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

package codec_test

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/codec"
)

func TestResolve(t *testing.T) {
	cases := map[string]codec.Codec{
		"JPG":   codec.JPEG,
		"jpg":   codec.JPEG,
		"jpeg":  codec.JPEG,
		".JPEG": codec.JPEG,
		".png":  codec.PNG,
		"PnG":   codec.PNG,
		"gif":   codec.GIF,
		".GIF":  codec.GIF,
		"bmp":   codec.Unsupported,
		"pdf":   codec.Unsupported,
		"":      codec.Unsupported,
		".":     codec.Unsupported,
		"xpng":  codec.Unsupported,
		"jpgx":  codec.Unsupported,
		"jpeeg": codec.Unsupported,
		"..png": codec.Unsupported,
		"webp":  codec.Unsupported,
	}
	for ext, want := range cases {
		assert.Equal(t, want, codec.Resolve(ext), "extension %q", ext)
	}
}

func TestFromPath(t *testing.T) {
	assert.Equal(t, codec.JPEG, codec.FromPath("/container/path/cat.JPG"))
	assert.Equal(t, codec.PNG, codec.FromPath("photo.png"))
	assert.Equal(t, codec.Unsupported, codec.FromPath("/docs/doc.pdf"))
	assert.Equal(t, codec.Unsupported, codec.FromPath("/noextension"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", codec.PNG.ContentType())
	assert.Equal(t, "image/jpeg", codec.JPEG.ContentType())
	assert.Equal(t, "image/gif", codec.GIF.ContentType())
	assert.False(t, codec.Unsupported.Supported())
	assert.True(t, codec.GIF.Supported())
}

func TestEncodeRoundTrip(t *testing.T) {
	src := imaging.New(37, 21, color.NRGBA{R: 10, G: 120, B: 200, A: 255})

	for _, c := range []codec.Codec{codec.PNG, codec.JPEG, codec.GIF} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, c.Encode(&buf, src, 0))

			cfg, format, err := image.DecodeConfig(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, 37, cfg.Width)
			assert.Equal(t, 21, cfg.Height)
			assert.Equal(t, c.ContentType(), "image/"+format)
		})
	}
}

func TestEncodeUnsupported(t *testing.T) {
	var buf bytes.Buffer
	err := codec.Unsupported.Encode(&buf, imaging.New(1, 1, color.Black), 90)
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}
