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

// Package htmlparse backs the content stage's Parser collaborator (spec
// §1, §6) with a real HTML tokenizer: golang.org/x/net/html. HTML/CSS
// lexing and parsing is explicitly out of scope for the core, but the core
// still needs something to call, so this is the minimal, genuinely
// idiomatic implementation -- a thin adapter from x/net/html's tree to
// domtypes.Node, with embedded <style> and <script> bodies split out onto
// the channels content.Parser's contract promises.
package htmlparse

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/uber/kraken/content"
	"github.com/uber/kraken/domtypes"
	"github.com/uber/kraken/resource"
	"github.com/uber/kraken/utils/log"
)

// Parser fetches a document through a resource stage and parses it with
// x/net/html.
type Parser struct {
	resourceStage resource.Stage
}

// New builds a Parser that fetches documents through resourceStage.
func New(resourceStage resource.Stage) *Parser {
	return &Parser{resourceStage: resourceStage}
}

var _ content.Parser = (*Parser)(nil)

// Parse implements content.Parser.
func (p *Parser) Parse(url domtypes.URL) (content.ParseResult, error) {
	data, err := p.fetch(url)
	if err != nil {
		return content.ParseResult{}, err
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return content.ParseResult{}, err
	}

	scope := domtypes.NewNodeScope()
	root := scope.NewNode(domtypes.ElementNode, "document")

	var rules []domtypes.StyleRule
	var scripts [][]byte
	convert(doc, scope, root, &rules, &scripts)

	styleChan := make(chan domtypes.StyleRule, len(rules))
	for _, r := range rules {
		styleChan <- r
	}
	close(styleChan)

	scriptChan := make(chan []byte, len(scripts))
	for _, s := range scripts {
		scriptChan <- s
	}
	close(scriptChan)

	return content.ParseResult{
		Root:    root,
		Scope:   scope,
		Styles:  styleChan,
		Scripts: scriptChan,
	}, nil
}

func (p *Parser) fetch(url domtypes.URL) ([]byte, error) {
	progress := make(chan domtypes.ProgressChunk)
	p.resourceStage.Load(url, progress)

	var data []byte
	for chunk := range progress {
		if chunk.IsPayload() {
			data = append(data, chunk.Payload...)
			continue
		}
		if chunk.Result != domtypes.ProgressOk {
			return nil, errFetch{url}
		}
		return data, nil
	}
	return data, nil
}

type errFetch struct {
	url domtypes.URL
}

func (e errFetch) Error() string {
	return "htmlparse: failed to fetch " + e.url.String()
}

// convert walks an x/net/html tree, building the equivalent domtypes.Node
// tree under scope and appending to parent, and collects <style>/<script>
// bodies into rules/scripts as it goes.
func convert(n *html.Node, scope *domtypes.NodeScope, parent *domtypes.Node, rules *[]domtypes.StyleRule, scripts *[][]byte) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			node := scope.NewNode(domtypes.ElementNode, c.Data)
			parent.AppendChild(node)
			switch c.DataAtom {
			case atom.Style:
				*rules = append(*rules, parseStyleRules(textContent(c))...)
			case atom.Script:
				if body := textContent(c); body != "" {
					*scripts = append(*scripts, []byte(body))
				}
			}
			convert(c, scope, node, rules, scripts)

		case html.TextNode:
			if strings.TrimSpace(c.Data) == "" {
				continue
			}
			node := scope.NewNode(domtypes.TextNode, c.Data)
			parent.AppendChild(node)

		case html.CommentNode:
			node := scope.NewNode(domtypes.CommentNode, c.Data)
			parent.AppendChild(node)

		case html.DoctypeNode:
			node := scope.NewNode(domtypes.DoctypeNode, c.Data)
			parent.AppendChild(node)

		default:
			// DocumentNode / ErrorNode carry no DOM-visible representation;
			// recurse through them without allocating a node of our own.
			convert(c, scope, parent, rules, scripts)
		}
	}
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

// parseStyleRules does the minimal job of splitting a <style> block's raw
// text into selector/declaration pairs. Full CSS parsing is out of scope
// (spec §1); this exists only so the content stage has real StyleRule
// values to build a Stylesheet from.
func parseStyleRules(css string) []domtypes.StyleRule {
	var out []domtypes.StyleRule
	for _, block := range strings.Split(css, "}") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		parts := strings.SplitN(block, "{", 2)
		if len(parts) != 2 {
			log.Debugf("htmlparse: skipping malformed style block %q", block)
			continue
		}
		selector := strings.TrimSpace(parts[0])
		decls := make(map[string]string)
		for _, decl := range strings.Split(parts[1], ";") {
			decl = strings.TrimSpace(decl)
			if decl == "" {
				continue
			}
			kv := strings.SplitN(decl, ":", 2)
			if len(kv) != 2 {
				continue
			}
			decls[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
		}
		out = append(out, domtypes.StyleRule{Selector: selector, Decls: decls})
	}
	return out
}
