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

// Package layout implements the handshake protocol content uses to
// synchronize with the layout stage (spec §4.4). Box construction and
// reflow math themselves are out of scope and are represented here only by
// the Builder collaborator interface.
package layout

import (
	"github.com/uber/kraken/domtypes"
	"github.com/uber/kraken/utils/log"
)

// Query is an opaque layout query; its shape is owned by the layout
// implementation, not by this handshake package.
type Query interface{}

// QueryResponse is the opaque answer to a Query.
type QueryResponse interface{}

// Msg is the sum type layout's inbox accepts.
type Msg struct {
	kind msgKind

	// BuildMsg fields.
	Root       *domtypes.Node
	Stylesheet domtypes.Stylesheet
	URL        domtypes.URL
	EventChan  chan<- Event

	// PingMsg fields.
	PingReply chan<- struct{}

	// QueryMsg fields.
	Query       Query
	QueryReply  chan<- QueryResponse
}

type msgKind int

const (
	kindBuild msgKind = iota
	kindPing
	kindQuery
	kindExit
)

// Event is the subset of compositor events layout forwards content's way;
// declared here only so BuildMsg can carry the event channel content reads
// from (spec §4.3/§4.4).
type Event interface{}

// BuildMsg asks layout to build (or rebuild) the flow tree for root under
// the given stylesheet and url, and to deliver future compositor events on
// eventChan.
func BuildMsg(root *domtypes.Node, sheet domtypes.Stylesheet, url domtypes.URL, eventChan chan<- Event) Msg {
	return Msg{kind: kindBuild, Root: root, Stylesheet: sheet, URL: url, EventChan: eventChan}
}

// PingMsg asks layout to reply once every BuildMsg received before it has
// been fully processed. This is the barrier content relies on in
// join_layout.
func PingMsg(reply chan<- struct{}) Msg {
	return Msg{kind: kindPing, PingReply: reply}
}

// QueryMsg asks a synchronous question about the current flow tree. Per
// spec §4.4, the answer reflects the state after all BuildMsgs received
// before this QueryMsg.
func QueryMsg(q Query, reply chan<- QueryResponse) Msg {
	return Msg{kind: kindQuery, Query: q, QueryReply: reply}
}

// ExitMsg asks layout to terminate its loop.
func ExitMsg() Msg {
	return Msg{kind: kindExit}
}

// Builder performs the actual (out-of-scope) box construction and reflow
// for a built tree, and answers queries against the most recent reflow.
type Builder interface {
	Build(root *domtypes.Node, sheet domtypes.Stylesheet, url domtypes.URL)
	Answer(q Query) QueryResponse
}

// NopBuilder is a Builder that does nothing, used by tests that only care
// about the handshake's ordering guarantees and as cmd/servod's default
// builder.
type NopBuilder struct{}

// Build implements Builder.
func (NopBuilder) Build(*domtypes.Node, domtypes.Stylesheet, domtypes.URL) {}

// Answer implements Builder.
func (NopBuilder) Answer(Query) QueryResponse { return nil }

// Stage is the layout task's inbox handle -- the only thing content holds a
// reference to.
type Stage chan<- Msg

// Send posts msg to the layout stage.
func (s Stage) Send(msg Msg) {
	s <- msg
}

// Spawn starts a layout task backed by builder and returns a handle to its
// inbox. The task runs until it receives ExitMsg.
func Spawn(builder Builder) Stage {
	inbox := make(chan Msg)
	go run(inbox, builder)
	return inbox
}

func run(inbox chan Msg, builder Builder) {
	for msg := range inbox {
		switch msg.kind {
		case kindBuild:
			builder.Build(msg.Root, msg.Stylesheet, msg.URL)
		case kindPing:
			msg.PingReply <- struct{}{}
		case kindQuery:
			msg.QueryReply <- builder.Answer(msg.Query)
		case kindExit:
			log.Debug("layout: exiting")
			return
		}
	}
}
