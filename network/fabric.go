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

package network

import (
	"github.com/ground-x/simba/object"
	"github.com/ground-x/simba/runtime"
)

// Fabric owns every Node and the Links connecting them, and implements
// the send/broadcast semantics of §4.2.
type Fabric struct {
	rt    *runtime.Runtime
	nodes map[object.ID]*Node
	links map[linkKey]*Link

	onSend    func(source, dest object.ID, size int)
	onDeliver func(dest object.ID)
}

type linkKey struct {
	a, b object.ID
}

func key(a, b object.ID) linkKey {
	if string(a[:]) > string(b[:]) {
		a, b = b, a
	}
	return linkKey{a, b}
}

// NewFabric creates an empty Fabric bound to rt.
func NewFabric(rt *runtime.Runtime) *Fabric {
	return &Fabric{
		rt:    rt,
		nodes: make(map[object.ID]*Node),
		links: make(map[linkKey]*Link),
	}
}

// AddNode registers a node with the fabric.
func (f *Fabric) AddNode(n *Node) {
	f.nodes[n.ID] = n
}

// Connect creates a link between a and b. onActivity, if non-nil, is
// invoked on every LinkActive/LinkInactive transition (§6).
func (f *Fabric) Connect(a, b *Node, latency runtime.Duration, bandwidthBps uint64, onActivity ActivityFunc) *Link {
	l := NewLink(f.rt, latency, bandwidthBps, onActivity)
	f.links[key(a.ID, b.ID)] = l
	return l
}

// Link returns the link between a and b, if one exists.
func (f *Fabric) Link(a, b object.ID) (*Link, bool) {
	l, ok := f.links[key(a, b)]
	return l, ok
}

// Peers returns every node directly linked to n.
func (f *Fabric) Peers(n object.ID) []object.ID {
	var peers []object.ID
	for k := range f.links {
		switch n {
		case k.a:
			peers = append(peers, k.b)
		case k.b:
			peers = append(peers, k.a)
		}
	}
	return peers
}

// SetOnSend installs a callback invoked once per SendTo with the
// message's source, destination and wire size, used by the simulation
// driver to tally the num_network_messages metric and publish
// MessageSent (§6) without the fabric itself knowing anything about
// statistics or events.
func (f *Fabric) SetOnSend(fn func(source, dest object.ID, size int)) {
	f.onSend = fn
}

// SetOnDeliver installs a callback invoked once per completed delivery
// with the receiving node's id, used by the simulation driver to
// publish NodeStatisticsUpdated (§6) once that node's byte counters
// have changed.
func (f *Fabric) SetOnDeliver(fn func(dest object.ID)) {
	f.onDeliver = fn
}

// SendTo models sending msg from source to dest: its arrival is
// scheduled at now + latency + size/min(link_bw, dest_bw), serialized
// against other in-flight messages on the same link (§4.2).
func (f *Fabric) SendTo(source, dest object.ID, msg Message) {
	destNode, ok := f.nodes[dest]
	if !ok {
		logger.Error("send to unknown node", "dest", dest)
		return
	}
	link, ok := f.Link(source, dest)
	if !ok {
		logger.Error("send over nonexistent link", "source", source, "dest", dest)
		return
	}
	if sourceNode, ok := f.nodes[source]; ok {
		sourceNode.recordSent(msg.Size())
	}
	if f.onSend != nil {
		f.onSend(source, dest, msg.Size())
	}

	arrival := link.send(destNode, msg)
	f.rt.Spawn(func(t *runtime.Task) {
		wait := arrival.Sub(f.rt.Now())
		if wait > 0 {
			t.Sleep(wait)
		}
		destNode.deliver(source, msg)
		if f.onDeliver != nil {
			f.onDeliver(dest)
		}
	})
}

// Broadcast sends msg to every peer of source except the node(s) in
// except, used to avoid echoing a message back to whoever sent it
// (§4.2).
func (f *Fabric) Broadcast(source object.ID, msg Message, except ...object.ID) {
	skip := make(map[object.ID]bool, len(except))
	for _, id := range except {
		skip[id] = true
	}
	for _, peer := range f.Peers(source) {
		if skip[peer] {
			continue
		}
		f.SendTo(source, peer, msg)
	}
}
