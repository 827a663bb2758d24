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

package gossip

import (
	"github.com/ground-x/simba/log"
	"github.com/ground-x/simba/network"
	"github.com/ground-x/simba/object"
	"github.com/ground-x/simba/runtime"
)

var logger = log.NewModuleLogger(log.Gossip)

// Logic is one node's gossip protocol driver. Node index 0 creates a
// single block at the start of the simulation; every node (including
// node 0) learns of and fetches every block it hears announced (§6).
type Logic struct {
	self  object.ID
	index object.NodeIndex
	fab   *network.Fabric
	rt    *runtime.Runtime

	mu   *runtime.Mutex
	cond *runtime.Condvar

	knownBlocks     map[object.BlockID]*Block
	requestedBlocks map[object.BlockID]bool

	numNodes   uint32
	blockSize  int
	retryDelay runtime.Duration

	onBlockSeen func(b *Block)
}

// SetOnBlockSeen installs a callback invoked every time this node
// learns of a block for the first time, whether created locally or
// fetched from a peer. The simulation driver uses this on node 0 to
// read back FullPropagationDelay once every node has seen the block
// (§6 avg_block_propagation).
func (l *Logic) SetOnBlockSeen(fn func(b *Block)) {
	l.onBlockSeen = fn
}

// NewLogic builds a gossip node driver. blockSize is the payload size
// of the single block node 0 creates; retryDelay is how long a fetch
// waits for an answer before re-requesting from the next peer.
func NewLogic(self object.ID, index object.NodeIndex, fab *network.Fabric, rt *runtime.Runtime,
	numNodes uint32, blockSize int, retryDelay runtime.Duration) *Logic {
	return &Logic{
		self:            self,
		index:           index,
		fab:             fab,
		rt:              rt,
		mu:              runtime.NewMutex(rt),
		cond:            runtime.NewCondvar(rt),
		knownBlocks:     make(map[object.BlockID]*Block),
		requestedBlocks: make(map[object.BlockID]bool),
		numNodes:        numNodes,
		blockSize:       blockSize,
		retryDelay:      retryDelay,
	}
}

// addBlock records a newly learned block, wakes any fetch loop that
// might have been waiting on it, and announces it to every peer except
// whoever it was received from (source.IsNil() for a locally created
// block, which is announced to everyone).
func (l *Logic) addBlock(b *Block, source object.ID) {
	logger.Trace("got new block", "node", l.index, "block", b.ID.String())
	b.MarkSeen(l.rt.Now())
	l.knownBlocks[b.ID] = b
	l.cond.NotifyAll()
	if l.onBlockSeen != nil {
		l.onBlockSeen(b)
	}

	if source.IsNil() {
		l.fab.Broadcast(l.self, NotifyNewBlock{BlockID: b.ID})
	} else {
		l.fab.Broadcast(l.self, NotifyNewBlock{BlockID: b.ID}, source)
	}
}

// generateBlock mints the simulation's one gossip block.
func (l *Logic) generateBlock(now runtime.VirtualTime) {
	b := NewBlock(l.blockSize, l.numNodes, now)
	logger.Debug("created new block", "block", b.ID.String())
	l.addBlock(b, object.ID{})
}

// requestNewBlock spawns the fetch retry loop for blockID: it contacts
// source first, then round-robins through the remaining peers,
// re-requesting every retryDelay until the block arrives (ported from
// request_new_block).
func (l *Logic) requestNewBlock(source object.ID, blockID object.BlockID) {
	peers := []object.ID{source}
	for _, p := range l.fab.Peers(l.self) {
		if p != source {
			peers = append(peers, p)
		}
	}

	l.rt.Spawn(func(t *runtime.Task) {
		l.mu.Lock(t)
		pos := 0
		for {
			if _, have := l.knownBlocks[blockID]; have {
				l.mu.Unlock()
				return
			}
			if pos >= len(peers) {
				logger.Debug("contacted all peers without success", "node", l.index)
				pos = 0
			}
			peer := peers[pos]
			l.mu.Unlock()
			l.fab.SendTo(l.self, peer, GetBlock{BlockID: blockID})
			l.mu.Lock(t)
			l.cond.WaitWithTimeout(t, l.mu, l.retryDelay)
			pos++
		}
	})
}

// HandleMessage dispatches an inbound gossip protocol message.
func (l *Logic) HandleMessage(source object.ID, msg network.Message) {
	switch m := msg.(type) {
	case NotifyNewBlock:
		if _, known := l.knownBlocks[m.BlockID]; known {
			return
		}
		if l.requestedBlocks[m.BlockID] {
			return
		}
		l.requestedBlocks[m.BlockID] = true
		l.requestNewBlock(source, m.BlockID)
	case GetBlock:
		b, ok := l.knownBlocks[m.BlockID]
		if !ok {
			logger.Error("got request for unknown block", "block", m.BlockID.String())
			return
		}
		l.fab.SendTo(l.self, source, SendBlock{Block: b})
	case SendBlock:
		if !l.requestedBlocks[m.Block.ID] {
			return
		}
		delete(l.requestedBlocks, m.Block.ID)
		l.addBlock(m.Block, source)
	}
}

// Run creates the simulation's one block if this is node 0; every
// other node only ever reacts to HandleMessage.
func (l *Logic) Run(t *runtime.Task) {
	if l.index == 0 {
		l.generateBlock(l.rt.Now())
	}
}
