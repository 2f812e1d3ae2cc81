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
	"sync/atomic"
	"testing"
	"time"

	"github.com/uber/kraken/domtypes"
	"github.com/uber/kraken/resource"

	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
)

var testImageBytes = []byte{0xde, 0xad, 0xbe, 0xef}

func countingLoader(data []byte, calls *int32) resource.LoaderFactory {
	return func(url domtypes.URL, progress chan<- domtypes.ProgressChunk) {
		atomic.AddInt32(calls, 1)
		progress <- domtypes.Payload(data)
		progress <- domtypes.Done(domtypes.ProgressOk)
	}
}

func gatedLoader(data []byte, ok bool, release <-chan struct{}) resource.LoaderFactory {
	return func(url domtypes.URL, progress chan<- domtypes.ProgressChunk) {
		<-release
		if ok {
			progress <- domtypes.Payload(data)
			progress <- domtypes.Done(domtypes.ProgressOk)
		} else {
			progress <- domtypes.Done(domtypes.ProgressErr)
		}
	}
}

func failingLoader() resource.LoaderFactory {
	return func(url domtypes.URL, progress chan<- domtypes.ProgressChunk) {
		progress <- domtypes.Done(domtypes.ProgressErr)
	}
}

func decodeOK(img *domtypes.Image) DecoderFactory {
	return func() DecodeFunc {
		return func([]byte) *domtypes.Image { return img }
	}
}

func decodeFails() DecoderFactory {
	return func() DecodeFunc {
		return func([]byte) *domtypes.Image { return nil }
	}
}

func gatedDecoder(img *domtypes.Image, release <-chan struct{}) DecoderFactory {
	return func() DecodeFunc {
		return func([]byte) *domtypes.Image {
			<-release
			return img
		}
	}
}

func newTestCache(t *testing.T, loader resource.LoaderFactory, decoder DecoderFactory) Cache {
	resourceStage := resource.New(resource.Config{}, map[string]resource.LoaderFactory{"test": loader})
	return NewWithDecoder(Config{}, tally.NewTestScope("imagecache", nil), resourceStage, decoder)
}

func TestExit(t *testing.T) {
	c := newTestCache(t, failingLoader(), decodeFails())
	c.Exit()
}

func TestShouldFailIfUnprefetchedImageIsRequested(t *testing.T) {
	c := newCache(Config{}, tally.NewTestScope("imagecache", nil), nil, decodeFails())
	reply := make(chan ImageResponse, 1)
	require.Panics(t, func() { c.getImage(domtypes.MustParseURL("test://a"), reply) })
}

func TestShouldFailIfRequestingDecodeOfAnUnprefetchedImage(t *testing.T) {
	c := newCache(Config{}, tally.NewTestScope("imagecache", nil), nil, decodeFails())
	require.Panics(t, func() { c.decode(domtypes.MustParseURL("test://a")) })
}

func TestShouldFailIfRequestingImageBeforeRequestingDecode(t *testing.T) {
	c := newCache(Config{}, tally.NewTestScope("imagecache", nil), nil, decodeFails())
	url := domtypes.MustParseURL("test://a")
	c.prefetch(url)
	reply := make(chan ImageResponse, 1)
	require.Panics(t, func() { c.getImage(url, reply) })
}

func TestShouldRequestURLFromResourceTaskOnPrefetch(t *testing.T) {
	var calls int32
	c := newTestCache(t, countingLoader(testImageBytes, &calls), decodeOK(&domtypes.Image{}))
	url := domtypes.MustParseURL("test://a")

	c.Prefetch(url)
	c.Decode(url)
	reply := make(chan ImageResponse, 1)
	c.WaitForImage(url, reply)
	require.Equal(t, ResponseReady, (<-reply).Kind())
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))

	c.Exit()
}

func TestShouldNotRequestURLFromResourceTaskOnMultiplePrefetches(t *testing.T) {
	var calls int32
	c := newTestCache(t, countingLoader(testImageBytes, &calls), decodeOK(&domtypes.Image{}))
	url := domtypes.MustParseURL("test://a")

	c.Prefetch(url)
	c.Prefetch(url)
	c.Prefetch(url)
	c.Decode(url)
	reply := make(chan ImageResponse, 1)
	c.WaitForImage(url, reply)
	require.Equal(t, ResponseReady, (<-reply).Kind())
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))

	c.Exit()
}

func TestShouldReturnImageNotReadyIfDataHasNotArrived(t *testing.T) {
	release := make(chan struct{})
	c := newTestCache(t, gatedLoader(testImageBytes, true, release), decodeOK(&domtypes.Image{}))
	url := domtypes.MustParseURL("test://a")

	c.Prefetch(url)
	c.Decode(url)

	reply := make(chan ImageResponse, 1)
	c.GetImage(url, reply)
	require.Equal(t, ResponseNotReady, (<-reply).Kind())

	close(release)
	reply2 := make(chan ImageResponse, 1)
	c.WaitForImage(url, reply2)
	require.Equal(t, ResponseReady, (<-reply2).Kind())

	c.Exit()
}

func TestShouldReturnDecodedImageDataIfDataHasArrived(t *testing.T) {
	img := &domtypes.Image{Width: 1, Height: 1, Depth: 4, Pixels: []byte{1, 2, 3, 4}}
	c := newTestCache(t, gatedLoader(testImageBytes, true, closedChan()), decodeOK(img))
	url := domtypes.MustParseURL("test://a")

	c.Prefetch(url)
	c.Decode(url)

	reply := make(chan ImageResponse, 1)
	c.WaitForImage(url, reply)
	resp := <-reply
	require.Equal(t, ResponseReady, resp.Kind())
	require.Equal(t, img, resp.Image().Image())

	c.Exit()
}

func TestShouldReturnDecodedImageDataForMultipleRequests(t *testing.T) {
	img := &domtypes.Image{Width: 1, Height: 1, Depth: 4, Pixels: []byte{1, 2, 3, 4}}
	c := newTestCache(t, gatedLoader(testImageBytes, true, closedChan()), decodeOK(img))
	url := domtypes.MustParseURL("test://a")

	c.Prefetch(url)
	c.Decode(url)

	r1 := make(chan ImageResponse, 1)
	r2 := make(chan ImageResponse, 1)
	c.WaitForImage(url, r1)
	c.WaitForImage(url, r2)

	require.Equal(t, ResponseReady, (<-r1).Kind())
	require.Equal(t, ResponseReady, (<-r2).Kind())

	c.Exit()
}

func TestShouldNotRequestImageFromResourceTaskIfImageIsAlreadyAvailable(t *testing.T) {
	var calls int32
	img := &domtypes.Image{}
	c := newTestCache(t, countingLoader(testImageBytes, &calls), decodeOK(img))
	url := domtypes.MustParseURL("test://a")

	c.Prefetch(url)
	c.Decode(url)
	r1 := make(chan ImageResponse, 1)
	c.WaitForImage(url, r1)
	require.Equal(t, ResponseReady, (<-r1).Kind())

	c.Prefetch(url)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))

	c.Exit()
}

func TestShouldNotRequestImageFromResourceTaskIfImageIsAlreadyFailed(t *testing.T) {
	var calls int32
	c := newTestCache(t, countingLoader(testImageBytes, &calls), decodeFails())
	url := domtypes.MustParseURL("test://a")

	c.Prefetch(url)
	c.Decode(url)
	r1 := make(chan ImageResponse, 1)
	c.WaitForImage(url, r1)
	require.Equal(t, ResponseFailed, (<-r1).Kind())

	c.Prefetch(url)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))

	c.Exit()
}

func TestShouldReturnFailedIfImageBinCannotBeFetched(t *testing.T) {
	c := newTestCache(t, failingLoader(), decodeFails())
	url := domtypes.MustParseURL("test://a")

	c.Prefetch(url)
	c.Decode(url)
	reply := make(chan ImageResponse, 1)
	c.WaitForImage(url, reply)
	require.Equal(t, ResponseFailed, (<-reply).Kind())

	c.Exit()
}

func TestShouldReturnFailedIfImageBinCannotBeFetchedForMultipleRequests(t *testing.T) {
	c := newTestCache(t, failingLoader(), decodeFails())
	url := domtypes.MustParseURL("test://a")

	c.Prefetch(url)
	c.Decode(url)
	r1 := make(chan ImageResponse, 1)
	r2 := make(chan ImageResponse, 1)
	c.WaitForImage(url, r1)
	c.WaitForImage(url, r2)
	require.Equal(t, ResponseFailed, (<-r1).Kind())
	require.Equal(t, ResponseFailed, (<-r2).Kind())

	c.Exit()
}

func TestShouldReturnNotReadyIfImageIsStillDecoding(t *testing.T) {
	img := &domtypes.Image{}
	release := make(chan struct{})
	c := newTestCache(t, gatedLoader(testImageBytes, true, closedChan()), gatedDecoder(img, release))
	url := domtypes.MustParseURL("test://a")

	c.Prefetch(url)
	c.Decode(url)

	reply := make(chan ImageResponse, 1)
	c.GetImage(url, reply)
	require.Equal(t, ResponseNotReady, (<-reply).Kind())

	close(release)
	reply2 := make(chan ImageResponse, 1)
	c.WaitForImage(url, reply2)
	require.Equal(t, ResponseReady, (<-reply2).Kind())

	c.Exit()
}

func TestShouldReturnFailedIfImageDecodeFails(t *testing.T) {
	c := newTestCache(t, gatedLoader(testImageBytes, true, closedChan()), decodeFails())
	url := domtypes.MustParseURL("test://a")

	c.Prefetch(url)
	c.Decode(url)
	reply := make(chan ImageResponse, 1)
	c.WaitForImage(url, reply)
	require.Equal(t, ResponseFailed, (<-reply).Kind())

	c.Exit()
}

func TestShouldReturnImageOnWaitIfImageIsAlreadyLoaded(t *testing.T) {
	img := &domtypes.Image{}
	c := newTestCache(t, gatedLoader(testImageBytes, true, closedChan()), decodeOK(img))
	url := domtypes.MustParseURL("test://a")

	c.Prefetch(url)
	c.Decode(url)
	r1 := make(chan ImageResponse, 1)
	c.WaitForImage(url, r1)
	require.Equal(t, ResponseReady, (<-r1).Kind())

	r2 := make(chan ImageResponse, 1)
	c.WaitForImage(url, r2)
	require.Equal(t, ResponseReady, (<-r2).Kind())

	c.Exit()
}

func TestShouldReturnImageOnWaitIfImageIsNotYetLoaded(t *testing.T) {
	img := &domtypes.Image{}
	release := make(chan struct{})
	c := newTestCache(t, gatedLoader(testImageBytes, true, release), decodeOK(img))
	url := domtypes.MustParseURL("test://a")

	c.Prefetch(url)
	c.Decode(url)

	reply := make(chan ImageResponse, 1)
	c.WaitForImage(url, reply)

	select {
	case <-reply:
		t.Fatal("expected WaitForImage to block until the image resolves")
	default:
	}

	close(release)
	require.Equal(t, ResponseReady, (<-reply).Kind())

	c.Exit()
}

func TestShouldReturnImageOnWaitIfImageFailsToLoad(t *testing.T) {
	release := make(chan struct{})
	c := newTestCache(t, gatedLoader(nil, false, release), decodeFails())
	url := domtypes.MustParseURL("test://a")

	c.Prefetch(url)
	c.Decode(url)

	reply := make(chan ImageResponse, 1)
	c.WaitForImage(url, reply)

	close(release)
	require.Equal(t, ResponseFailed, (<-reply).Kind())

	c.Exit()
}

func TestExitBlocksUntilInFlightDecodeCompletes(t *testing.T) {
	img := &domtypes.Image{}
	release := make(chan struct{})
	c := newTestCache(t, gatedLoader(testImageBytes, true, closedChan()), gatedDecoder(img, release))
	url := domtypes.MustParseURL("test://a")

	c.Prefetch(url)
	c.Decode(url)

	// Confirm the decode is actually in flight before exiting, so Exit is
	// guaranteed to observe a helper still running.
	reply := make(chan ImageResponse, 1)
	c.GetImage(url, reply)
	require.Equal(t, ResponseNotReady, (<-reply).Kind())

	exited := make(chan struct{})
	go func() {
		c.Exit()
		close(exited)
	}()

	select {
	case <-exited:
		t.Fatal("Exit returned while a decode was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("Exit did not return after the in-flight decode completed")
	}
}

func TestSyncCacheShouldWaitForImages(t *testing.T) {
	img := &domtypes.Image{}
	resourceStage := resource.New(resource.Config{}, map[string]resource.LoaderFactory{
		"test": gatedLoader(testImageBytes, true, closedChan()),
	})
	// Wrap an inner cache that decodes to img in the same shim NewSync uses;
	// NewSync itself always installs the stdlib decoder.
	inner := NewWithDecoder(Config{}, tally.NewTestScope("imagecache", nil), resourceStage, decodeOK(img))
	shim := make(chan msg)
	go runSyncShim(shim, inner)
	var c Cache = shim
	url := domtypes.MustParseURL("test://a")

	c.Prefetch(url)
	c.Decode(url)

	reply := make(chan ImageResponse, 1)
	c.GetImage(url, reply)
	resp := <-reply
	require.Equal(t, ResponseReady, resp.Kind())
	require.Equal(t, img, resp.Image().Image())

	c.Exit()
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
