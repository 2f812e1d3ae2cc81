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

// Package domtypes defines the data model shared by every stage of the
// engine: URL keys, progress chunks, the image handle, and the DOM's node
// scope. None of these types are owned by a single stage -- they are the
// wire format stages exchange.
package domtypes

import "net/url"

// URL is an opaque, hashable, equatable key used throughout the engine.
// It wraps net/url.URL, which is not itself safely usable as a map key
// when it carries a *Userinfo, so URL normalizes to its string form for
// keying while still exposing Scheme and the parsed value.
type URL struct {
	raw    string
	parsed *url.URL
}

// ParseURL parses rawurl into a URL key.
func ParseURL(rawurl string) (URL, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return URL{}, err
	}
	return URL{raw: u.String(), parsed: u}, nil
}

// MustParseURL parses rawurl and panics if it is invalid. Intended for
// tests and startup-time constants only.
func MustParseURL(rawurl string) URL {
	u, err := ParseURL(rawurl)
	if err != nil {
		panic("domtypes: invalid url " + rawurl + ": " + err.Error())
	}
	return u
}

// Scheme returns the URL's scheme, e.g. "file" or "http".
func (u URL) Scheme() string {
	if u.parsed == nil {
		return ""
	}
	return u.parsed.Scheme
}

// Path returns the URL's path component.
func (u URL) Path() string {
	if u.parsed == nil {
		return ""
	}
	return u.parsed.Path
}

// Key returns the canonical string used to index per-URL state. Two URL
// values parsed from the same input produce equal keys.
func (u URL) Key() string {
	return u.raw
}

// String implements fmt.Stringer.
func (u URL) String() string {
	return u.raw
}

// Underlying returns the wrapped *url.URL for callers (loaders) that need
// the full parsed structure.
func (u URL) Underlying() *url.URL {
	return u.parsed
}
