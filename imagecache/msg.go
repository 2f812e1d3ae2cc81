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

type msgKind int

const (
	msgPrefetch msgKind = iota
	msgStorePrefetchedImageData
	msgDecode
	msgStoreImage
	msgGetImage
	msgWaitForImage
	msgOnMsg
	msgExit
)

// msg is the image cache's private inbox message type. Public message
// constructors below return msg values; StorePrefetchedImageData and
// StoreImage are only ever constructed by the cache's own helper
// goroutines (spec §4.2 marks them "private").
type msg struct {
	kind msgKind

	url domtypes.URL

	// StorePrefetchedImageData fields.
	prefetchedBytes []byte
	prefetchedOK    bool

	// StoreImage fields.
	decodedImage *domtypes.Image
	decodedOK    bool

	// GetImage / WaitForImage fields.
	reply chan<- ImageResponse

	// OnMsg field.
	hook func(*msg)

	// Exit field.
	exitReply chan<- struct{}
}

func prefetchMsg(url domtypes.URL) msg {
	return msg{kind: msgPrefetch, url: url}
}

func storePrefetchedImageDataMsg(url domtypes.URL, data []byte, ok bool) msg {
	return msg{kind: msgStorePrefetchedImageData, url: url, prefetchedBytes: data, prefetchedOK: ok}
}

func decodeMsg(url domtypes.URL) msg {
	return msg{kind: msgDecode, url: url}
}

func storeImageMsg(url domtypes.URL, image *domtypes.Image, ok bool) msg {
	return msg{kind: msgStoreImage, url: url, decodedImage: image, decodedOK: ok}
}

func getImageMsg(url domtypes.URL, reply chan<- ImageResponse) msg {
	return msg{kind: msgGetImage, url: url, reply: reply}
}

func waitForImageMsg(url domtypes.URL, reply chan<- ImageResponse) msg {
	return msg{kind: msgWaitForImage, url: url, reply: reply}
}

func onMsgMsg(hook func(*msg)) msg {
	return msg{kind: msgOnMsg, hook: hook}
}

func exitMsg(reply chan<- struct{}) msg {
	return msg{kind: msgExit, exitReply: reply}
}
