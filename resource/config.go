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
package resource

import (
	"time"

	"github.com/c2h5oh/datasize"
)

// Config defines resource stage configuration.
type Config struct {
	// SizeLimit bounds how many Payload bytes a single Load may
	// accumulate before its loader aborts with Done(Err). A 0 size limit
	// means unbounded, matching lib/blobrefresh.Config.SizeLimit's
	// convention in the teacher repo.
	SizeLimit datasize.ByteSize `yaml:"size_limit"`

	// HTTPTimeout bounds how long the http loader will wait for a
	// response before failing the load.
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

func (c Config) httpTimeout() time.Duration {
	if c.HTTPTimeout <= 0 {
		return 30 * time.Second
	}
	return c.HTTPTimeout
}
