// Copyright 2018 The klaytn Authors
// This file is part of the klaytn library.
//
// The klaytn library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The klaytn library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the klaytn library. If not, see <http://www.gnu.org/licenses/>.

// Package trie implements the 256-bit-keyed copy-on-write persistent
// trie of §4.3: a mutable Tree supports Insert, Freeze converts it into
// a shared, immutable FrozenTree, and DeepClone produces a new mutable
// Tree whose first-level children are references into a frozen source
// so forked account state shares every first-level subtree that later
// inserts do not replace.
package trie

// Tree is a mutable CoW trie. It owns every node it can reach except
// any Reference nodes, which point into a FrozenTree and must never be
// mutated (§4.3).
type Tree struct {
	root *node
}

// New creates an empty, mutable Tree.
func New() *Tree {
	return &Tree{root: newBranch()}
}

type pathEntry struct {
	idx  uint8
	node *node
}

// Insert walks from the root through existing branch/extension nodes
// matching key's nibbles, splits the path where it diverges, and lays
// down a fresh extension+leaf spine past the point where the trie
// previously ended — all in place, with no copy-on-write triggered
// for the mutable tree itself (§4.3 item 1).
//
// The descent stops the instant it reaches a Reference node: those are
// immutable, so the insert path above it is a brand-new spine, and the
// frozen source the reference points into is never touched (§4.3 item
// 3). Keys that were reachable only through that Reference are no
// longer reachable from this tree afterwards.
func (t *Tree) Insert(key Key, value interface{}) {
	var nodes []pathEntry
	step := 0

	for step < numSteps-2 {
		idx := nibble(key, step)
		var parent *node
		if step == 0 {
			parent = t.root
		} else {
			parent = nodes[step-1].node
		}
		child := parent.takeChild(idx)
		if child == nil || child.kind == kindReference {
			// A reference is immutable: the fresh spine laid below
			// takes its slot in this tree and the frozen subtree it
			// points to is left untouched.
			break
		}
		nodes = append(nodes, pathEntry{idx, child})
		step++
	}

	if len(nodes) > 0 && nodes[len(nodes)-1].node.kind != kindBranch {
		last := nodes[len(nodes)-1]
		nodes = nodes[:len(nodes)-1]
		nodes = append(nodes, pathEntry{last.idx, last.node.asBranch()})
	}

	for step < numSteps-1 {
		idx := nibble(key, step)
		childIdx := nibble(key, step+1)
		nodes = append(nodes, pathEntry{idx, newExtension(childIdx)})
		step++
	}

	idx := nibble(key, step)
	nodes = append(nodes, pathEntry{idx, newLeaf(value)})

	// Re-link the spine bottom-up, then graft it back onto the root.
	var childIdx uint8
	var child *node
	haveChild := false
	for i := len(nodes) - 1; i >= 0; i-- {
		e := nodes[i]
		if haveChild {
			e.node.setChild(childIdx, child)
		}
		childIdx, child, haveChild = e.idx, e.node, true
	}
	t.root.setChild(childIdx, child)
}

// Get looks up key, following through any Reference node it meets into
// the frozen subtree it points to.
func (t *Tree) Get(key Key) (interface{}, bool) {
	cur := t.root
	for step := 0; step < numSteps; step++ {
		if cur.kind == kindReference {
			return getFrozen(key, step, cur.ref)
		}
		idx := nibble(key, step)
		child := cur.getChild(idx)
		if child == nil {
			return nil, false
		}
		cur = child
	}
	return cur.value, true
}

func freeze(n *node) *frozenNode {
	switch n.kind {
	case kindBranch:
		f := &frozenNode{kind: kindBranch}
		for i, c := range n.children {
			if c != nil {
				f.children[i] = freeze(c)
			}
		}
		return f
	case kindExtension:
		return &frozenNode{kind: kindExtension, nibble: n.nibble, child: freeze(n.child)}
	case kindReference:
		// Already frozen and shared; unwrap rather than double-wrap
		// (§4.3 item 2).
		return n.ref
	default:
		return &frozenNode{kind: kindLeaf, value: n.value}
	}
}

// Freeze converts t into an immutable FrozenTree by recursively turning
// every owned subtree into a shared node (§4.3 item 2). t must not be
// used again afterwards.
func (t *Tree) Freeze() *FrozenTree {
	return &FrozenTree{root: freeze(t.root)}
}

// FrozenTree is an immutable snapshot. Lookups only ever touch frozen
// nodes (§4.3 invariants).
type FrozenTree struct {
	root *frozenNode
}

// Get looks up key in the frozen tree.
func (f *FrozenTree) Get(key Key) (interface{}, bool) {
	return getFrozen(key, 0, f.root)
}

func getFrozen(key Key, startStep int, start *frozenNode) (interface{}, bool) {
	cur := start
	for step := startStep; step < numSteps; step++ {
		idx := nibble(key, step)
		child := cur.getChild(idx)
		if child == nil {
			return nil, false
		}
		cur = child
	}
	return cur.value, true
}

// DeepClone produces a new mutable Tree whose first-level children are
// all Reference nodes pointing into f. An insert into the clone whose
// path starts at one of those References replaces it with a fresh
// spine (see Insert), so the clone no longer reaches the keys under
// it; f is never mutated (§4.3 item 3).
func (f *FrozenTree) DeepClone() *Tree {
	if f.root.kind != kindBranch {
		panic("trie: frozen root must be a branch")
	}
	root := newBranch()
	for i, c := range f.root.children {
		if c != nil {
			root.children[i] = newReference(c)
		}
	}
	return &Tree{root: root}
}
