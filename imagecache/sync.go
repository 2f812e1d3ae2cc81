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
	"github.com/uber/kraken/resource"

	"github.com/uber-go/tally"
)

// NewSync spawns a synchronous image cache: a thin shim that forwards
// GetImage to an inner asynchronous cache as WaitForImage, so a caller that
// needs blocking semantics can use the exact same Cache API (spec §4.2's
// "Synchronous variant").
func NewSync(config Config, stats tally.Scope, resourceStage resource.Stage) Cache {
	inner := New(config, stats, resourceStage)
	shim := make(chan msg)
	go runSyncShim(shim, inner)
	return shim
}

func runSyncShim(shim chan msg, inner Cache) {
	for m := range shim {
		switch m.kind {
		case msgGetImage:
			inner <- waitForImageMsg(m.url, m.reply)
		case msgExit:
			inner <- m
			return
		default:
			inner <- m
		}
	}
}
