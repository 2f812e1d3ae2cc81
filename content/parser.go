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

import "github.com/uber/kraken/domtypes"

// ParseResult is what a Parser hands back for a ParseMsg: a root node plus
// two channels streaming style rules and script bodies, pulled to
// completion by the content stage (spec §4.3).
type ParseResult struct {
	Root    *domtypes.Node
	Scope   *domtypes.NodeScope
	Styles  <-chan domtypes.StyleRule
	Scripts <-chan []byte
}

// Parser is the out-of-scope HTML/CSS lexing and parsing collaborator
// (spec §1, §6). Implementations run in their own goroutine(s) and close
// both ParseResult channels once parsing completes.
type Parser interface {
	Parse(url domtypes.URL) (ParseResult, error)
}

// ScriptEngine is the out-of-scope JS runtime collaborator (spec §1, §6).
// Implementations install the Window/Node bindings and evaluate script
// bodies in a single global object per Content.
type ScriptEngine interface {
	// Bind installs window's bindings (alert, setTimeout, Node prototype)
	// into the engine's global object.
	Bind(window *Window)
	// Eval evaluates body as a script in the global object. Errors are
	// logged and swallowed by the caller (spec §7): script errors are
	// never fatal.
	Eval(body []byte) error
	// Call invokes a previously captured callback value (as produced by
	// setTimeout) with args.
	Call(funVal interface{}, args []interface{}) error
}

// NopScriptEngine is a ScriptEngine that binds nothing and evaluates
// nothing, used by embedders and tests that only care about the
// parse/relayout/timer plumbing and not an actual JS runtime.
type NopScriptEngine struct{}

// Bind implements ScriptEngine.
func (NopScriptEngine) Bind(*Window) {}

// Eval implements ScriptEngine.
func (NopScriptEngine) Eval([]byte) error { return nil }

// Call implements ScriptEngine.
func (NopScriptEngine) Call(interface{}, []interface{}) error { return nil }
