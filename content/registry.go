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
package content

import "sync"

// Handle is an opaque reference a script engine holds instead of a direct
// pointer into the content stage, per the cyclic JS<->DOM back-pointer
// design note (spec §9): a JS context's single back-reference slot is
// populated with a Handle, never a *Content, so nothing outside this
// package can walk back into stage-owned state.
type Handle int64

// Registry maps Handles to their owning *Content. It is process-local and
// never traversed by a script engine's own garbage collector -- there is
// no embedded script GC in this implementation, but the registry keeps the
// same non-owning-handle shape the design note calls for, so a future
// script engine binding has somewhere safe to look up its owner.
type Registry struct {
	mu   sync.RWMutex
	next int64
	byID map[Handle]*Content
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[Handle]*Content)}
}

// Register allocates a fresh Handle for c and returns it. Called once at
// Content construction.
func (r *Registry) Register(c *Content) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	h := Handle(r.next)
	r.byID[h] = c
	return h
}

// Lookup returns the *Content registered under h, or nil if h is unknown
// (e.g. its Content has already exited and unregistered).
func (r *Registry) Lookup(h Handle) *Content {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[h]
}

// Unregister removes h, called when a Content stage exits.
func (r *Registry) Unregister(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, h)
}
