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

import "time"

// Config defines content stage configuration.
type Config struct {
	// ScriptTimeout bounds how long content waits on a single
	// ExecuteMsg/script body before logging a warning and moving on; the
	// evaluation itself is not cancelled. 0 means content always waits.
	ScriptTimeout time.Duration `yaml:"script_timeout"`
}
