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
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// DefaultFontSize is the point size used when none is configured.
const DefaultFontSize = 12

// LoadFont parses the TrueType/OpenType file at path. An empty path selects
// the bundled Go Regular typeface. Call it once at startup: the returned font
// is safe for concurrent use, faces created from it are not.
func LoadFont(path string) (*opentype.Font, error) {
	data := goregular.TTF
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read font %s: %w", path, err)
		}
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %q: %w", path, err)
	}
	return f, nil
}

// newFace creates a face for one composition.
func newFace(f *opentype.Font, size float64) (font.Face, error) {
	if size <= 0 {
		size = DefaultFontSize
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
