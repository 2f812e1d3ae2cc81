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
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/uber/kraken/domtypes"
	"github.com/uber/kraken/layout"

	"github.com/stretchr/testify/require"
)

func writeTempScript(t *testing.T, body string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.js")
	return path, os.WriteFile(path, []byte(body), 0644)
}

type stubParser struct {
	result ParseResult
	err    error
}

func (p *stubParser) Parse(domtypes.URL) (ParseResult, error) {
	return p.result, p.err
}

func newParseResult() ParseResult {
	styles := make(chan domtypes.StyleRule)
	scripts := make(chan []byte)
	close(styles)
	close(scripts)
	return ParseResult{
		Root:    &domtypes.Node{Type: domtypes.ElementNode},
		Scope:   domtypes.NewNodeScope(),
		Styles:  styles,
		Scripts: scripts,
	}
}

type recordingEngine struct {
	bound  chan *Window
	evaled chan []byte
	called chan TimerData
}

func newRecordingEngine() *recordingEngine {
	return &recordingEngine{
		bound:  make(chan *Window, 4),
		evaled: make(chan []byte, 4),
		called: make(chan TimerData, 4),
	}
}

func (e *recordingEngine) Bind(w *Window) { e.bound <- w }

func (e *recordingEngine) Eval(body []byte) error {
	e.evaled <- body
	return nil
}

func (e *recordingEngine) Call(funVal interface{}, args []interface{}) error {
	e.called <- TimerData{FunVal: funVal, Args: args}
	return nil
}

// countingBuilder records every Build call so tests can assert a BuildMsg
// actually reached layout, instead of just assuming the send succeeded.
type countingBuilder struct {
	builds chan struct{}
}

func (b *countingBuilder) Build(*domtypes.Node, domtypes.Stylesheet, domtypes.URL) {
	b.builds <- struct{}{}
}

func (b *countingBuilder) Answer(q layout.Query) layout.QueryResponse { return q }

func TestParseMsgBuildsDocumentAndRunsScripts(t *testing.T) {
	parser := &stubParser{result: newParseResult()}
	body := []byte("console.log(1)")
	result := newParseResult()
	scripts := make(chan []byte, 1)
	scripts <- body
	close(scripts)
	result.Scripts = scripts
	parser.result = result

	engine := newRecordingEngine()
	builder := &countingBuilder{builds: make(chan struct{}, 4)}
	layoutStage := layout.Spawn(builder)

	stage := Spawn(Config{}, parser, engine, layoutStage, nil)

	stage.Parse(domtypes.MustParseURL("http://example.com"))

	select {
	case <-builder.builds:
	case <-time.After(time.Second):
		t.Fatal("expected a BuildMsg to reach layout")
	}
	select {
	case got := <-engine.evaled:
		require.Equal(t, body, got)
	case <-time.After(time.Second):
		t.Fatal("expected the parsed script body to be evaluated")
	}

	stage.Exit()
}

func TestTimerInvokesCallbackThenRelayouts(t *testing.T) {
	result := newParseResult()
	parser := &stubParser{result: result}
	engine := newRecordingEngine()
	builder := &countingBuilder{builds: make(chan struct{}, 8)}
	layoutStage := layout.Spawn(builder)

	stage := Spawn(Config{}, parser, engine, layoutStage, nil)
	stage.Parse(domtypes.MustParseURL("http://example.com"))
	<-builder.builds // consume the parse-triggered build

	data := TimerData{FunVal: "onTimeout", Args: []interface{}{1, 2}}
	stage.Timer(data)

	select {
	case got := <-engine.called:
		require.Equal(t, data, got)
	case <-time.After(time.Second):
		t.Fatal("expected the timer callback to be invoked")
	}
	select {
	case <-builder.builds:
	case <-time.After(time.Second):
		t.Fatal("expected the timer to trigger a relayout")
	}

	stage.Exit()
}

func TestResizeEventRelayoutsExistingDocument(t *testing.T) {
	parser := &stubParser{result: newParseResult()}
	engine := newRecordingEngine()
	builder := &countingBuilder{builds: make(chan struct{}, 8)}
	layoutStage := layout.Spawn(builder)

	stage := Spawn(Config{}, parser, engine, layoutStage, nil)
	stage.Parse(domtypes.MustParseURL("http://example.com"))
	<-builder.builds

	stage.Resize(800, 600)
	select {
	case <-builder.builds:
	case <-time.After(time.Second):
		t.Fatal("expected ResizeEvent to trigger a relayout")
	}

	stage.Exit()
}

func TestReflowEventWithNoDocumentIsIgnored(t *testing.T) {
	parser := &stubParser{result: newParseResult()}
	engine := newRecordingEngine()
	builder := &countingBuilder{builds: make(chan struct{}, 2)}
	layoutStage := layout.Spawn(builder)

	stage := Spawn(Config{}, parser, engine, layoutStage, nil)
	stage.Reflow()

	select {
	case <-builder.builds:
		t.Fatal("did not expect a relayout with no document")
	case <-time.After(100 * time.Millisecond):
	}

	stage.Exit()
}

func TestExecuteMsgEvaluatesLocalScript(t *testing.T) {
	parser := &stubParser{result: newParseResult()}
	engine := newRecordingEngine()
	builder := &countingBuilder{builds: make(chan struct{}, 2)}
	layoutStage := layout.Spawn(builder)

	stage := Spawn(Config{}, parser, engine, layoutStage, nil)

	f, err := writeTempScript(t, "1+1;")
	require.NoError(t, err)
	stage.Execute(domtypes.MustParseURL("file://" + f))

	select {
	case body := <-engine.evaled:
		require.Equal(t, "1+1;", string(body))
	case <-time.After(time.Second):
		t.Fatal("expected ExecuteMsg to evaluate the file's contents")
	}

	stage.Exit()
}

func TestQueryRelayoutsJoinsAndAnswers(t *testing.T) {
	parser := &stubParser{result: newParseResult()}
	engine := newRecordingEngine()
	builder := &countingBuilder{builds: make(chan struct{}, 8)}
	layoutStage := layout.Spawn(builder)

	stage := Spawn(Config{}, parser, engine, layoutStage, nil)
	stage.Parse(domtypes.MustParseURL("http://example.com"))
	<-builder.builds // consume the parse-triggered build

	done := make(chan layout.QueryResponse, 1)
	go func() { done <- stage.Query("how-tall") }()

	select {
	case <-builder.builds:
	case <-time.After(time.Second):
		t.Fatal("expected Query to trigger a relayout before answering")
	}

	select {
	case resp := <-done:
		require.Equal(t, "how-tall", resp)
	case <-time.After(time.Second):
		t.Fatal("expected Query to return the builder's answer")
	}

	stage.Exit()
}

func TestParseErrorIsLoggedAndSwallowed(t *testing.T) {
	parser := &stubParser{err: errors.New("boom")}
	engine := newRecordingEngine()
	builder := &countingBuilder{builds: make(chan struct{}, 2)}
	layoutStage := layout.Spawn(builder)

	stage := Spawn(Config{}, parser, engine, layoutStage, nil)
	stage.Parse(domtypes.MustParseURL("http://example.com"))

	select {
	case <-builder.builds:
		t.Fatal("a failed parse must not reach layout")
	case <-time.After(100 * time.Millisecond):
	}

	stage.Exit()
}
