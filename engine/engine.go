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
package engine

import (
	"github.com/uber/kraken/content"
	"github.com/uber/kraken/domtypes"
	"github.com/uber/kraken/htmlparse"
	"github.com/uber/kraken/imagecache"
	"github.com/uber/kraken/layout"
	"github.com/uber/kraken/resource"
	"github.com/uber/kraken/utils/log"

	"github.com/uber-go/tally"
)

// Engine bundles every stage's handle for an embedder to drive.
type Engine struct {
	Resource   resource.Stage
	ImageCache imagecache.Cache
	Layout     layout.Stage
	Content    content.Stage
}

// New spawns every stage and wires them together: content drives the
// parser, which fetches documents through the resource stage, and ships
// the parsed trees to layout. The image cache is started against the same
// resource stage and handed back in Engine.ImageCache; the parser does not
// call it, so no images are prefetched or decoded while a page is parsed.
// extraLoaders lets an embedder register loader factories beyond
// the built-in file/http schemes. builder and scriptEngine are the
// out-of-scope collaborators (spec §1); pass layout.NopBuilder{} and
// content.NopScriptEngine{} for a pipeline that only exercises the core.
func New(
	config Config,
	stats tally.Scope,
	extraLoaders map[string]resource.LoaderFactory,
	builder layout.Builder,
	scriptEngine content.ScriptEngine,
) Engine {
	resourceStage := resource.New(config.Resource, extraLoaders)
	imageCache := imagecache.New(config.ImageCache, stats, resourceStage)
	layoutStage := layout.Spawn(builder)
	parser := htmlparse.New(resourceStage)
	contentStage := content.Spawn(config.Content, parser, scriptEngine, layoutStage, nil)

	log.Info("engine: all stages started")

	return Engine{
		Resource:   resourceStage,
		ImageCache: imageCache,
		Layout:     layoutStage,
		Content:    contentStage,
	}
}

// Open is a convenience wrapper around Content.Parse for embedders that
// just want to hand the engine a URL.
func (e Engine) Open(url domtypes.URL) {
	e.Content.Parse(url)
}

// Close shuts every stage down in dependency order: content first (so it
// stops issuing new Prefetch/Decode/Load calls), then the image cache
// (whose graceful Exit waits for in-flight helpers), then the resource
// stage.
func (e Engine) Close() {
	e.Content.Exit()
	e.ImageCache.Exit()
	e.Resource.Exit()
}
