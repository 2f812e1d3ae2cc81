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
	"time"

	"github.com/uber/kraken/domtypes"
)

type stateKind int

const (
	stateInit stateKind = iota
	statePrefetching
	statePrefetched
	stateDecoding
	stateDecoded
	stateFailed
)

type afterPrefetch int

const (
	doNotDecode afterPrefetch = iota
	doDecode
)

// imageState is the per-URL state the cache's reactor owns (spec §3). Only
// one goroutine -- the reactor's own -- ever touches an imageState, so its
// fields need no locking; that single-threaded ownership is also what
// makes "bytes" a safe single-consumer cell: decode() clears it the moment
// it reads it, and no other code path can observe it afterwards.
type imageState struct {
	kind stateKind

	next afterPrefetch // valid when kind == statePrefetching

	bytes []byte // valid when kind == statePrefetched; taken exactly once

	image domtypes.SharedImage // valid when kind == stateDecoded

	prefetchStart time.Time // set when entering statePrefetching, for metrics
}

func initState() *imageState {
	return &imageState{kind: stateInit}
}
