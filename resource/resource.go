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

// Package resource implements the resource stage (spec §4.1): a
// scheme-keyed demultiplexer that dispatches a Load to a per-scheme loader
// factory and streams back Payload/Done progress chunks. The stage itself
// never fails and never buffers; individual loaders report failure.
package resource

import (
	"github.com/uber/kraken/domtypes"
	"github.com/uber/kraken/utils/log"
)

// LoaderFactory fetches the bytes for url and streams the result on
// progress: zero or more Payload chunks followed by exactly one Done
// chunk. Each invocation runs in its own goroutine.
type LoaderFactory func(url domtypes.URL, progress chan<- domtypes.ProgressChunk)

// controlMsg is the resource stage's private inbox message type.
type controlMsg struct {
	load bool // true => Load, false => Exit
	url      domtypes.URL
	progress chan<- domtypes.ProgressChunk
}

// Stage is a handle to a running resource stage's inbox.
type Stage chan<- controlMsg

// Load asks the stage to dispatch url to its scheme's loader, streaming
// progress on progress.
func (s Stage) Load(url domtypes.URL, progress chan<- domtypes.ProgressChunk) {
	s <- controlMsg{load: true, url: url, progress: progress}
}

// Exit asks the stage to stop accepting new loads and terminate its loop.
// The resource stage does no graceful draining of in-flight loaders -- each
// loader owns its own goroutine and finishes independently of the stage's
// lifetime.
func (s Stage) Exit() {
	s <- controlMsg{load: false}
}

// New spawns a resource stage configured with the built-in file and http
// loaders plus any extra per-scheme loaders, and returns a handle to its
// inbox.
func New(config Config, extra map[string]LoaderFactory) Stage {
	loaders := map[string]LoaderFactory{
		"file": fileLoaderFactory(config),
		"http": httpLoaderFactory(config),
	}
	for scheme, f := range extra {
		loaders[scheme] = f
	}
	return newWithLoaders(loaders)
}

// newWithLoaders spawns a resource stage with exactly the given loader
// table -- used directly by tests that need to mock out scheme loaders.
func newWithLoaders(loaders map[string]LoaderFactory) Stage {
	inbox := make(chan controlMsg)
	go run(inbox, loaders)
	return inbox
}

func run(inbox chan controlMsg, loaders map[string]LoaderFactory) {
	for msg := range inbox {
		if !msg.load {
			log.Debug("resource: exiting")
			return
		}
		dispatch(msg, loaders)
	}
}

func dispatch(msg controlMsg, loaders map[string]LoaderFactory) {
	factory, ok := loaders[msg.url.Scheme()]
	if !ok {
		log.Warnf("resource: no loader for scheme %q", msg.url.Scheme())
		msg.progress <- domtypes.Done(domtypes.ProgressErr)
		return
	}
	go factory(msg.url, msg.progress)
}
