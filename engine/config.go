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

// Package engine wires the resource, image cache, layout and content
// stages together into one running pipeline, the way origin/cmd composes
// its blob server out of its own sub-package Config types.
package engine

import (
	"go.uber.org/zap"

	"github.com/uber/kraken/content"
	"github.com/uber/kraken/imagecache"
	"github.com/uber/kraken/metrics"
	"github.com/uber/kraken/resource"
)

// Config defines the full engine's configuration, composed from each
// stage's own Config the way origin/cmd/config.go composes Config.
type Config struct {
	ZapLogging zap.Config       `yaml:"zap"`
	Metrics    metrics.Config   `yaml:"metrics"`
	Resource   resource.Config  `yaml:"resource"`
	ImageCache imagecache.Config `yaml:"image_cache"`
	Content    content.Config   `yaml:"content"`
}
