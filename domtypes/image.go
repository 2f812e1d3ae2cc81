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
package domtypes

import "sync/atomic"

// Image is a decoded raster image. Once constructed its fields are never
// mutated; it is always shared through a SharedImage handle, never copied
// pixel-by-pixel.
type Image struct {
	Width, Height, Depth int
	Pixels                []byte
}

// SharedImage is an atomically reference-counted, immutable handle to a
// decoded Image, the Go analogue of the original source's
// ARC<~Image>. Cloning a SharedImage hands out a new strong reference; it
// never copies pixels.
type SharedImage struct {
	refs  *int32
	image *Image
}

// NewSharedImage wraps img in a fresh SharedImage with one strong reference.
func NewSharedImage(img *Image) SharedImage {
	refs := int32(1)
	return SharedImage{refs: &refs, image: img}
}

// Clone returns a new strong reference to the same underlying image. O(1),
// safe to call from any goroutine.
func (s SharedImage) Clone() SharedImage {
	atomic.AddInt32(s.refs, 1)
	return SharedImage{refs: s.refs, image: s.image}
}

// Image returns the underlying decoded image. Callers must not mutate its
// Pixels slice.
func (s SharedImage) Image() *Image {
	return s.image
}

// ImageBytes is an owned byte buffer transferred exactly once from a
// prefetcher helper to a decoder helper.
type ImageBytes []byte

// ProgressResult tags whether a load completed successfully.
type ProgressResult int

// ProgressResult values.
const (
	ProgressOk ProgressResult = iota
	ProgressErr
)

// ProgressChunk is the tagged variant a resource loader streams back on its
// progress channel: zero or more Payload chunks followed by exactly one
// Done chunk.
type ProgressChunk struct {
	// kind distinguishes Payload from Done; it is unexported, so callers
	// use the IsPayload/IsDone helpers. The zero value is an empty Payload,
	// never a Done.
	kind    progressKind
	Payload []byte
	Result  ProgressResult
}

type progressKind int

const (
	progressPayload progressKind = iota
	progressDone
)

// Payload builds a Payload progress chunk carrying data.
func Payload(data []byte) ProgressChunk {
	return ProgressChunk{kind: progressPayload, Payload: data}
}

// Done builds the terminal Done progress chunk for a load.
func Done(result ProgressResult) ProgressChunk {
	return ProgressChunk{kind: progressDone, Result: result}
}

// IsPayload reports whether c is a Payload chunk.
func (c ProgressChunk) IsPayload() bool { return c.kind == progressPayload }

// IsDone reports whether c is the terminal Done chunk.
func (c ProgressChunk) IsDone() bool { return c.kind == progressDone }
