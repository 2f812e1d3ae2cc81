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
	"github.com/uber/kraken/domtypes"
	"github.com/uber/kraken/layout"
)

type controlKind int

const (
	controlParse controlKind = iota
	controlExecute
	controlTimer
	controlQuery
	controlExit
)

// ControlMsg is the content stage's control-channel message type (spec
// §4.3): ParseMsg, ExecuteMsg, Timer, QueryMsg, or ExitMsg.
type ControlMsg struct {
	kind controlKind

	url   domtypes.URL
	timer TimerData

	query      layout.Query
	queryReply chan<- layout.QueryResponse
}

// ParseMsg asks content to fetch and parse url into a new Document.
func ParseMsg(url domtypes.URL) ControlMsg {
	return ControlMsg{kind: controlParse, url: url}
}

// ExecuteMsg asks content to read url as a local script file and evaluate
// it directly, without going through the parser.
func ExecuteMsg(url domtypes.URL) ControlMsg {
	return ControlMsg{kind: controlExecute, url: url}
}

// TimerMsg delivers a fired setTimeout callback back to its originating
// content stage.
func TimerMsg(data TimerData) ControlMsg {
	return ControlMsg{kind: controlTimer, timer: data}
}

// QueryMsg asks content to relayout the current document, join layout, and
// answer q against the resulting flow tree (spec §4.3's query_layout).
func QueryMsg(q layout.Query, reply chan<- layout.QueryResponse) ControlMsg {
	return ControlMsg{kind: controlQuery, query: q, queryReply: reply}
}

// ExitControlMsg asks content to forward ExitMsg to layout and terminate.
func ExitControlMsg() ControlMsg {
	return ControlMsg{kind: controlExit}
}

type eventKind int

const (
	eventResize eventKind = iota
	eventReflow
)

// Event is the content stage's event-channel message type (spec §4.3):
// compositor-originated resize/reflow notifications.
type Event struct {
	kind eventKind

	width, height int
}

// ResizeEvent notifies content the viewport changed to width x height.
func ResizeEvent(width, height int) Event {
	return Event{kind: eventResize, width: width, height: height}
}

// ReflowEvent asks content to relayout the current document, if any.
var ReflowEvent = Event{kind: eventReflow}
