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

// Package imagecache implements the image cache stage (spec §4.2): a
// single-threaded reactor that owns all per-URL image state and
// orchestrates prefetcher/decoder helper goroutines via self-addressed
// messages. This is the heart of the resource/image pipeline -- it is the
// only place that guarantees at-most-once fetch and at-most-once decode
// per URL.
package imagecache

import (
	"github.com/uber/kraken/domtypes"
	"github.com/uber/kraken/resource"
	"github.com/uber/kraken/utils/log"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
)

// Cache is a handle to a running image cache stage's inbox.
type Cache chan<- msg

// Prefetch tells the cache it may need url soon. Idempotent: a second
// Prefetch for a URL already in flight (or resolved) is a no-op, which is
// what makes repeated Prefetch calls cost at most one Load (spec invariant
// 1).
func (c Cache) Prefetch(url domtypes.URL) {
	c <- prefetchMsg(url)
}

// Decode tells the cache to decode url's bytes once they (or already have)
// arrived. Must be preceded by Prefetch.
func (c Cache) Decode(url domtypes.URL) {
	c <- decodeMsg(url)
}

// GetImage answers immediately on reply with the URL's current terminal or
// non-terminal state. Calling GetImage before Decode has been requested for
// url is a programmer error.
func (c Cache) GetImage(url domtypes.URL, reply chan<- ImageResponse) {
	c <- getImageMsg(url, reply)
}

// WaitForImage answers on reply now if url is already terminal, otherwise
// enqueues reply to be notified once it becomes terminal. Same
// preconditions as GetImage.
func (c Cache) WaitForImage(url domtypes.URL, reply chan<- ImageResponse) {
	c <- waitForImageMsg(url, reply)
}

// OnMsg registers a test hook invoked synchronously on every message the
// cache receives from this point on, before the message is dispatched.
func (c Cache) OnMsg(hook func(msg)) {
	c <- onMsgMsg(func(m *msg) { hook(*m) })
}

// Exit begins graceful shutdown: the cache will not accept the exit until
// no URL is mid-prefetch or mid-decode, guaranteeing no helper goroutine is
// left writing to an abandoned channel.
func (c Cache) Exit() {
	reply := make(chan struct{})
	c <- exitMsg(reply)
	<-reply
}

// New spawns an image cache stage using the default stdlib-backed decoder
// and returns a handle to its inbox.
func New(config Config, stats tally.Scope, resourceStage resource.Stage) Cache {
	return NewWithDecoder(config, stats, resourceStage, DefaultDecoderFactory())
}

// NewWithDecoder spawns an image cache stage with an injected decoder
// factory, letting tests substitute a slow or deterministic decoder (spec
// §4.2).
func NewWithDecoder(config Config, stats tally.Scope, resourceStage resource.Stage, decoderFactory DecoderFactory) Cache {
	c := newCache(config, stats, resourceStage, decoderFactory)
	go c.run()
	return c.inbox
}

// newCache builds a *cache without spawning its reactor goroutine. Used by
// New/NewWithDecoder, and directly by internal tests that exercise the
// state machine's protocol-misuse panics on the calling goroutine instead
// of through the channel (where a panic would instead crash the process,
// per spec §7 -- exactly as intended in production, but not something a
// test binary can observe without going out of process).
func newCache(config Config, stats tally.Scope, resourceStage resource.Stage, decoderFactory DecoderFactory) *cache {
	return &cache{
		config:         config,
		stats:          stats.Tagged(map[string]string{"module": "imagecache"}),
		clk:            clock.New(),
		resourceStage:  resourceStage,
		decoderFactory: decoderFactory,
		inbox:          make(chan msg),
		state:          make(map[string]*imageState),
		waiters:        make(map[string][]chan<- ImageResponse),
	}
}

type cache struct {
	config         Config
	stats          tally.Scope
	clk            clock.Clock
	resourceStage  resource.Stage
	decoderFactory DecoderFactory

	inbox chan msg

	state   map[string]*imageState
	waiters map[string][]chan<- ImageResponse
	hooks   []func(*msg)

	exitReply chan<- struct{}
}

func (c *cache) run() {
	for m := range c.inbox {
		for _, h := range c.hooks {
			h(&m)
		}
		c.dispatch(m)
		if c.maybeExit() {
			return
		}
	}
}

func (c *cache) dispatch(m msg) {
	switch m.kind {
	case msgPrefetch:
		c.prefetch(m.url)
	case msgStorePrefetchedImageData:
		c.storePrefetchedImageData(m.url, m.prefetchedBytes, m.prefetchedOK)
	case msgDecode:
		c.decode(m.url)
	case msgStoreImage:
		c.storeImage(m.url, m.decodedImage, m.decodedOK)
	case msgGetImage:
		c.getImage(m.url, m.reply)
	case msgWaitForImage:
		c.waitForImage(m.url, m.reply)
	case msgOnMsg:
		c.hooks = append(c.hooks, m.hook)
	case msgExit:
		if c.exitReply != nil {
			panic("imagecache: Exit received twice")
		}
		c.exitReply = m.exitReply
	}
}

func (c *cache) maybeExit() bool {
	if c.exitReply == nil {
		return false
	}
	for _, s := range c.state {
		if s.kind == statePrefetching || s.kind == stateDecoding {
			return false
		}
	}
	c.exitReply <- struct{}{}
	log.Debug("imagecache: exiting")
	return true
}

func (c *cache) get(url domtypes.URL) *imageState {
	s, ok := c.state[url.Key()]
	if !ok {
		s = initState()
		c.state[url.Key()] = s
	}
	return s
}

func (c *cache) prefetch(url domtypes.URL) {
	s := c.get(url)
	if s.kind != stateInit {
		// Already working on this image: at-most-once prefetch.
		return
	}
	s.kind = statePrefetching
	s.next = doNotDecode
	s.prefetchStart = c.clk.Now()

	to := c.inbox
	go runPrefetcher(url, c.resourceStage, to)
	c.stats.Counter("prefetch_total").Inc(1)
}

func (c *cache) storePrefetchedImageData(url domtypes.URL, data []byte, ok bool) {
	s := c.get(url)
	if s.kind != statePrefetching {
		panic("imagecache: wrong state for storing prefetched image")
	}
	c.stats.Timer("prefetch_latency").Record(c.clk.Now().Sub(s.prefetchStart))
	if ok {
		next := s.next
		s.kind = statePrefetched
		s.bytes = data
		if next == doDecode {
			c.decode(url)
		}
	} else {
		s.kind = stateFailed
		c.stats.Counter("prefetch_failures").Inc(1)
		c.purgeWaiters(url, func() ImageResponse { return ImageFailed })
	}
}

func (c *cache) decode(url domtypes.URL) {
	s := c.get(url)
	switch s.kind {
	case stateInit:
		panic("imagecache: decoding image before prefetch")

	case statePrefetching:
		// Bytes haven't arrived yet; record the intent so the next
		// StorePrefetchedImageData(Ok) starts the decoder directly
		// instead of settling into Prefetched.
		s.next = doDecode

	case statePrefetched:
		data := s.bytes
		if data == nil {
			panic("imagecache: prefetched bytes already taken")
		}
		s.bytes = nil
		s.kind = stateDecoding

		decode := c.decoderFactory()
		to := c.inbox
		go runDecoder(url, data, decode, to)
		c.stats.Counter("decode_total").Inc(1)

	case stateDecoding, stateDecoded, stateFailed:
		// Already decoding or resolved.
	}
}

func (c *cache) storeImage(url domtypes.URL, img *domtypes.Image, ok bool) {
	s := c.get(url)
	if s.kind != stateDecoding {
		panic("imagecache: incorrect state in store_image")
	}
	if ok {
		shared := domtypes.NewSharedImage(img)
		s.kind = stateDecoded
		s.image = shared
		c.purgeWaiters(url, func() ImageResponse { return ImageReady(shared.Clone()) })
	} else {
		s.kind = stateFailed
		c.stats.Counter("decode_failures").Inc(1)
		c.purgeWaiters(url, func() ImageResponse { return ImageFailed })
	}
}

func (c *cache) purgeWaiters(url domtypes.URL, f func() ImageResponse) {
	waiters, ok := c.waiters[url.Key()]
	if !ok {
		return
	}
	for _, w := range waiters {
		w <- f()
	}
	delete(c.waiters, url.Key())
}

func (c *cache) getImage(url domtypes.URL, reply chan<- ImageResponse) {
	s := c.get(url)
	switch s.kind {
	case stateInit:
		panic("imagecache: request for image before prefetch")

	case statePrefetching:
		if s.next != doDecode {
			panic("imagecache: request for image before decode")
		}
		reply <- ImageNotReady

	case statePrefetched:
		panic("imagecache: request for image before decode")

	case stateDecoding:
		reply <- ImageNotReady

	case stateDecoded:
		reply <- ImageReady(s.image.Clone())

	case stateFailed:
		reply <- ImageFailed
	}
}

func (c *cache) waitForImage(url domtypes.URL, reply chan<- ImageResponse) {
	s := c.get(url)
	switch s.kind {
	case stateInit:
		panic("imagecache: request for image before prefetch")

	case statePrefetching:
		if s.next != doDecode {
			panic("imagecache: request for image before decode")
		}
		c.enqueueWaiter(url, reply)

	case statePrefetched:
		panic("imagecache: request for image before decode")

	case stateDecoding:
		c.enqueueWaiter(url, reply)

	case stateDecoded:
		reply <- ImageReady(s.image.Clone())

	case stateFailed:
		reply <- ImageFailed
	}
}

func (c *cache) enqueueWaiter(url domtypes.URL, reply chan<- ImageResponse) {
	waiters, ok := c.waiters[url.Key()]
	if !ok && c.config.WaitMapHint > 0 {
		waiters = make([]chan<- ImageResponse, 0, c.config.WaitMapHint)
	}
	c.waiters[url.Key()] = append(waiters, reply)
}

// runPrefetcher is the prefetcher helper (spec §4.2): it issues a Load to
// the resource stage, concatenates every Payload chunk into a single
// buffer, and reports the outcome back to the cache as a
// StorePrefetchedImageData message.
func runPrefetcher(url domtypes.URL, resourceStage resource.Stage, to chan<- msg) {
	progress := make(chan domtypes.ProgressChunk)
	resourceStage.Load(url, progress)

	// Non-nil even when no payload bytes arrive, so decode() reads a nil
	// cell only once the bytes have been taken.
	data := []byte{}
	for chunk := range progress {
		if chunk.IsPayload() {
			data = append(data, chunk.Payload...)
			continue
		}
		// chunk.IsDone().
		to <- storePrefetchedImageDataMsg(url, data, chunk.Result == domtypes.ProgressOk)
		return
	}
}

// runDecoder is the decoder helper (spec §4.2): it invokes decode on data
// exactly once and reports the outcome back to the cache as a StoreImage
// message.
func runDecoder(url domtypes.URL, data []byte, decode DecodeFunc, to chan<- msg) {
	img := decode(data)
	to <- storeImageMsg(url, img, img != nil)
}
