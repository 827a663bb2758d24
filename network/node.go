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

import "github.com/ground-x/simba/object"

// Location is a node's longitude/latitude, carried only for the
// visualizer's benefit (§4.2); the core never uses it for anything
// beyond reporting.
type Location struct {
	Longitude float64
	Latitude  float64
}

// Handler is invoked on message arrival with the sender's identifier
// and the delivered message (§4.2 "Delivery").
type Handler func(source object.ID, msg Message)

// Statistics tracks the byte counters for a single Node.
type Statistics struct {
	BytesReceived uint64
	BytesSent     uint64
}

// Node is a network participant: an identity, a location, a bandwidth
// cap, and a handler invoked on message delivery.
type Node struct {
	ID       object.ID
	Index    object.NodeIndex
	Location Location
	// BandwidthBps caps how fast this node can receive data over each
	// of its links (§4.2). Each link serializes its own transfers;
	// transfers arriving over different links are not serialized
	// against each other.
	BandwidthBps uint64

	handler Handler
	stats   Statistics
}

// NewNode constructs a Node with a fresh random identity.
func NewNode(index object.NodeIndex, loc Location, bandwidthBps uint64, handler Handler) *Node {
	return &Node{
		ID:           object.New(),
		Index:        index,
		Location:     loc,
		BandwidthBps: bandwidthBps,
		handler:      handler,
	}
}

// Statistics returns a snapshot of this node's byte counters.
func (n *Node) Statistics() Statistics {
	return n.stats
}

// deliver invokes the node's handler and records the incoming byte
// count (§4.2 "Delivery").
func (n *Node) deliver(source object.ID, msg Message) {
	n.stats.BytesReceived += uint64(msg.Size())
	n.handler(source, msg)
}

// recordSent records an outgoing message's byte count, called by
// Fabric.SendTo at the moment it schedules the message's transfer.
func (n *Node) recordSent(size int) {
	n.stats.BytesSent += uint64(size)
}
