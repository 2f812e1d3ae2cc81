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

// Package content implements the content stage (spec §4.3): a
// single-threaded message loop that drives parse -> style -> script ->
// relayout, multiplexes control and compositor-event channels, and enforces
// the reader/writer handshake with layout through the node scope's
// reader-forked bit.
package content

import (
	"os"
	"time"

	"github.com/uber/kraken/domtypes"
	"github.com/uber/kraken/layout"
	"github.com/uber/kraken/utils/log"
)

// Stage is the handle an embedder holds: a control-channel sender plus an
// event-channel sender, matching the two input channels the content loop
// multiplexes.
type Stage struct {
	control chan<- ControlMsg
	events  chan<- Event
}

// Parse asks content to fetch and parse url.
func (s Stage) Parse(url domtypes.URL) {
	s.control <- ParseMsg(url)
}

// Execute asks content to read url as a local script file and evaluate it
// directly.
func (s Stage) Execute(url domtypes.URL) {
	s.control <- ExecuteMsg(url)
}

// Timer delivers a fired setTimeout callback.
func (s Stage) Timer(data TimerData) {
	s.control <- TimerMsg(data)
}

// Query relayouts the current document, joins layout, and answers q
// against the resulting flow tree -- an embedder's hook for things like
// hit-testing or computed-style lookups (spec §4.3's query_layout).
func (s Stage) Query(q layout.Query) layout.QueryResponse {
	reply := make(chan layout.QueryResponse)
	s.control <- QueryMsg(q, reply)
	return <-reply
}

// Exit asks content to forward ExitMsg to layout and terminate its loop.
func (s Stage) Exit() {
	s.control <- ExitControlMsg()
}

// Resize notifies content the viewport changed size.
func (s Stage) Resize(width, height int) {
	s.events <- ResizeEvent(width, height)
}

// Reflow asks content to relayout the current document, if any.
func (s Stage) Reflow() {
	s.events <- ReflowEvent
}

// Content owns one document's worth of state: the node scope's
// reader-forked bit, the current Document, and the collaborators (parser,
// script engine, layout) it drives. Only the loop goroutine touches these
// fields, so none of them need locking.
type Content struct {
	config       Config
	parser       Parser
	scriptEngine ScriptEngine
	layoutStage  layout.Stage
	registry     *Registry
	handle       Handle

	control chan ControlMsg
	events  chan Event

	document *domtypes.Document
	window   *Window
	lastURL  domtypes.URL
}

// Spawn starts a content stage and returns a handle to it. registry may be
// nil, in which case a private Registry is created (tests rarely need to
// share one across stages).
func Spawn(config Config, parser Parser, scriptEngine ScriptEngine, layoutStage layout.Stage, registry *Registry) Stage {
	if registry == nil {
		registry = NewRegistry()
	}
	c := &Content{
		config:       config,
		parser:       parser,
		scriptEngine: scriptEngine,
		layoutStage:  layoutStage,
		registry:     registry,
		control:      make(chan ControlMsg),
		events:       make(chan Event),
	}
	c.handle = registry.Register(c)
	c.window = NewWindow(c.control)
	go c.run()
	return Stage{control: c.control, events: c.events}
}

func (c *Content) run() {
	defer c.registry.Unregister(c.handle)
	for {
		select {
		case m := <-c.control:
			if c.dispatchControl(m) {
				return
			}
		case e := <-c.events:
			c.dispatchEvent(e)
		}
	}
}

func (c *Content) dispatchControl(m ControlMsg) (exit bool) {
	switch m.kind {
	case controlParse:
		c.handleParse(m.url)
	case controlExecute:
		c.handleExecute(m.url)
	case controlTimer:
		c.handleTimer(m.timer)
	case controlQuery:
		m.queryReply <- c.queryLayout(m.query)
	case controlExit:
		c.layoutStage.Send(layout.ExitMsg())
		log.Debug("content: exiting")
		return true
	}
	return false
}

func (c *Content) dispatchEvent(e Event) {
	switch e.kind {
	case eventResize, eventReflow:
		if c.document != nil {
			c.relayoutCurrent()
		}
	}
}

func (c *Content) handleParse(url domtypes.URL) {
	result, err := c.parser.Parse(url)
	if err != nil {
		log.Errorf("content: parse %s failed: %v", url, err)
		return
	}

	var rules []domtypes.StyleRule
	for r := range result.Styles {
		rules = append(rules, r)
	}
	var scripts [][]byte
	for s := range result.Scripts {
		scripts = append(scripts, s)
	}

	sheet := domtypes.NewStylesheet(rules)
	doc := domtypes.NewDocument(result.Root, result.Scope, sheet)
	c.document = doc
	c.lastURL = url
	c.window = NewWindow(c.control)

	c.relayoutURL(doc, url)

	c.scriptEngine.Bind(c.window)
	for _, body := range scripts {
		if err := c.evalWithTimeout(body); err != nil {
			log.Errorf("content: script evaluation failed for %s: %v", url, err)
		}
	}
}

func (c *Content) handleExecute(url domtypes.URL) {
	path := url.Path()
	body, err := os.ReadFile(path)
	if err != nil {
		log.Errorf("content: reading script file %s: %v", path, err)
		return
	}
	if err := c.evalWithTimeout(body); err != nil {
		log.Errorf("content: script evaluation failed for %s: %v", url, err)
	}
}

// evalWithTimeout runs scriptEngine.Eval(body), logging (but not cancelling
// -- the ScriptEngine interface gives no hook to abort an in-flight Eval)
// if it outruns config.ScriptTimeout. A zero ScriptTimeout means unbounded.
func (c *Content) evalWithTimeout(body []byte) error {
	if c.config.ScriptTimeout <= 0 {
		return c.scriptEngine.Eval(body)
	}
	done := make(chan error, 1)
	go func() { done <- c.scriptEngine.Eval(body) }()
	select {
	case err := <-done:
		return err
	case <-time.After(c.config.ScriptTimeout):
		log.Warnf("content: script evaluation exceeded %s, continuing in background", c.config.ScriptTimeout)
		return nil
	}
}

func (c *Content) handleTimer(data TimerData) {
	if err := c.scriptEngine.Call(data.FunVal, data.Args); err != nil {
		log.Errorf("content: timer callback failed: %v", err)
	}
	if c.document != nil {
		c.relayoutCurrent()
	}
}

// relayoutURL implements relayout(document, url) (spec §4.3): join_layout,
// send BuildMsg, set reader_forked.
func (c *Content) relayoutURL(doc *domtypes.Document, url domtypes.URL) {
	c.joinLayout(doc)
	eventChan := make(chan layout.Event)
	go c.forwardLayoutEvents(eventChan)
	c.layoutStage.Send(layout.BuildMsg(doc.Root, doc.Stylesheet.Clone(), url, eventChan))
	doc.Scope.ReaderFork()
}

// relayoutCurrent relayouts the current document against the url it was
// last parsed from (used by timers and resize/reflow, which don't carry a
// fresh url of their own).
func (c *Content) relayoutCurrent() {
	c.relayoutURL(c.document, c.lastURL)
}

// joinLayout implements join_layout() (spec §4.3): if reader-forked, ping
// layout and wait for the reply before returning, then clear the bit.
func (c *Content) joinLayout(doc *domtypes.Document) {
	if !doc.Scope.ReaderForked() {
		return
	}
	reply := make(chan struct{})
	c.layoutStage.Send(layout.PingMsg(reply))
	<-reply
	doc.Scope.ReaderJoined()
}

// queryLayout implements query_layout(q) (spec §4.3): relayout, join_layout,
// then a synchronous QueryMsg round trip.
func (c *Content) queryLayout(q layout.Query) layout.QueryResponse {
	c.relayoutCurrent()
	c.joinLayout(c.document)
	reply := make(chan layout.QueryResponse)
	c.layoutStage.Send(layout.QueryMsg(q, reply))
	return <-reply
}

// forwardLayoutEvents relays compositor events layout forwards on a
// BuildMsg's event channel back into this stage's own event channel, so
// they run through the same dispatchEvent path as events sent directly by
// an embedder.
func (c *Content) forwardLayoutEvents(eventChan <-chan layout.Event) {
	for ev := range eventChan {
		if e, ok := ev.(Event); ok {
			c.events <- e
		}
	}
}
