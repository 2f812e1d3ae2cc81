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

import "github.com/uber/kraken/domtypes"

// ResponseKind tags the variant of an ImageResponse.
type ResponseKind int

// ResponseKind values.
const (
	ResponseReady ResponseKind = iota
	ResponseNotReady
	ResponseFailed
)

// ImageResponse answers a GetImage or WaitForImage request. Per spec §9's
// open question, the original source leaves ImageReady-to-ImageReady
// equality "unimplemented" -- this type intentionally exposes no Equal
// method; callers must compare by Kind(), never by deep value.
type ImageResponse struct {
	kind  ResponseKind
	image domtypes.SharedImage
}

// Kind reports which variant r is.
func (r ImageResponse) Kind() ResponseKind {
	return r.kind
}

// Image returns the decoded image. Only valid when Kind() == ResponseReady.
func (r ImageResponse) Image() domtypes.SharedImage {
	return r.image
}

// ImageReady builds a ready response wrapping img.
func ImageReady(img domtypes.SharedImage) ImageResponse {
	return ImageResponse{kind: ResponseReady, image: img}
}

// ImageNotReady is the response for a URL that is still being fetched or
// decoded.
var ImageNotReady = ImageResponse{kind: ResponseNotReady}

// ImageFailed is the response for a URL whose fetch or decode terminally
// failed.
var ImageFailed = ImageResponse{kind: ResponseFailed}
