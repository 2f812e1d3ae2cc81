// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package imagecache

import (
	"bytes"
	"image"

	// Registered with image.Decode via blank import, the idiomatic Go
	// way of wiring a codec registry -- the direct analogue of the
	// original source's stb_image-backed load_from_memory.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/uber/kraken/domtypes"
)

// DecodeFunc decodes raw image bytes, returning nil if decoding failed.
// Decoders are invoked at most once per URL (spec invariant 2).
type DecodeFunc func([]byte) *domtypes.Image

// DecoderFactory creates a DecodeFunc. It is a factory, rather than a bare
// DecodeFunc, so tests can hand the cache a decoder that blocks or fails
// deterministically (spec §4.2's decoder factory injection).
type DecoderFactory func() DecodeFunc

// DefaultDecoderFactory returns a DecoderFactory backed by the standard
// library's image package.
func DefaultDecoderFactory() DecoderFactory {
	return func() DecodeFunc {
		return decodeWithStdlib
	}
}

func decodeWithStdlib(data []byte) *domtypes.Image {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	pixels := make([]byte, width*height*4)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			pixels[i+0] = byte(r >> 8)
			pixels[i+1] = byte(g >> 8)
			pixels[i+2] = byte(b >> 8)
			pixels[i+3] = byte(a >> 8)
			i += 4
		}
	}
	return &domtypes.Image{Width: width, Height: height, Depth: 4, Pixels: pixels}
}
