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
package domtypes

import "sync"

// NodeType mirrors the DOM nodeType property exposed to script.
type NodeType int

// NodeType values, matching the external Window/JS bridge contract.
const (
	ElementNode NodeType = 1
	TextNode    NodeType = 3
	CommentNode NodeType = 8
	DoctypeNode NodeType = 10
)

// Node is a DOM node allocated inside a NodeScope. It exposes the minimum
// accessor surface the JS binding requires: firstChild, nextSibling,
// nodeType.
type Node struct {
	Type NodeType
	Data string

	firstChild *Node
	nextSib    *Node
}

// FirstChild returns the node's first child, or nil.
func (n *Node) FirstChild() *Node { return n.firstChild }

// NextSibling returns the node's next sibling, or nil.
func (n *Node) NextSibling() *Node { return n.nextSib }

// NodeType returns the node's type tag.
func (n *Node) NodeType() NodeType { return n.Type }

// AppendChild appends child as n's new last child.
func (n *Node) AppendChild(child *Node) {
	if n.firstChild == nil {
		n.firstChild = child
		return
	}
	last := n.firstChild
	for last.nextSib != nil {
		last = last.nextSib
	}
	last.nextSib = child
}

// NodeScope is the DOM's ownership arena. All nodes belonging to one
// document are allocated through a single NodeScope, which also tracks the
// reader-forked bit used for the content/layout handshake (spec §3, §4.3).
//
// Invariant: while ReaderForked() is true, content must not mutate nodes
// observable by layout without first calling ReaderJoined().
type NodeScope struct {
	mu           sync.Mutex
	readerForked bool
}

// NewNodeScope creates an empty NodeScope with the reader-forked bit clear.
func NewNodeScope() *NodeScope {
	return &NodeScope{}
}

// NewNode allocates a new node inside the scope.
func (s *NodeScope) NewNode(t NodeType, data string) *Node {
	return &Node{Type: t, Data: data}
}

// ReaderForked reports whether layout currently holds an un-joined
// snapshot of this scope.
func (s *NodeScope) ReaderForked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readerForked
}

// ReaderFork sets the reader-forked bit. Called immediately after content
// ships a BuildMsg to layout.
func (s *NodeScope) ReaderFork() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readerForked = true
}

// ReaderJoined clears the reader-forked bit. Called after content has
// confirmed, via PingMsg/PongMsg, that layout has drained the snapshot it
// was given.
func (s *NodeScope) ReaderJoined() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readerForked = false
}
