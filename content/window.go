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

import (
	"fmt"
	"time"

	"github.com/andres-erbsen/clock"
)

// TimerData is a script-callback descriptor bound to the content stage that
// scheduled it (spec §3): the callback value and the arguments it was
// captured with. It is a value type, moved into the scheduled ControlMsg
// and owned thereafter by the content stage -- never a pointer shared back
// with script (spec §9/§12).
type TimerData struct {
	FunVal interface{}
	Args   []interface{}
}

// Window is the minimum JS global object surface the content stage exposes
// to script (spec §6): alert, setTimeout, and (via domtypes.Node) the Node
// prototype accessors.
type Window struct {
	control chan<- ControlMsg
	clk     clock.Clock
}

// NewWindow builds a Window backed by control, the originating content
// stage's control channel. setTimeout callbacks scheduled through this
// Window are delivered back on control as TimerMsg, never through any
// other path -- this is the non-owning back-reference spec §9 calls for.
func NewWindow(control chan<- ControlMsg) *Window {
	return &Window{control: control, clk: clock.New()}
}

// Alert implements the alert(string) JS binding: print to standard output
// (spec §6 explicitly routes this to stdout, not through utils/log).
func (w *Window) Alert(message string) {
	fmt.Println(message)
}

// SetTimeout implements the setTimeout(function, delay, ...args) JS
// binding: it schedules a TimerMsg back to the originating content stage
// after delay, carrying funVal and args. The delay is timed on the
// Window's clk, which NewWindow sets to the real clock.
func (w *Window) SetTimeout(funVal interface{}, delay time.Duration, args ...interface{}) {
	data := TimerData{FunVal: funVal, Args: args}
	w.clk.AfterFunc(delay, func() {
		w.control <- TimerMsg(data)
	})
}
