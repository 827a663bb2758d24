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

// Package gossip implements single-block dissemination (§6): one node
// creates an opaque payload and every other node fetches it by
// announce/request/reply, round-robining through peers and retrying on
// a timer until it arrives. There is no chain, no ordering between
// blocks, and no validation — only propagation timing is measured.
//
// Grounded on simba/src/logic/gossip/{mod.rs,node.rs}: GossipBlock's
// seen_by/full_propagation_time bookkeeping mirrors
// consensus/nakamoto's ledger/nakamoto.Block exactly; the fetch retry
// loop is ported from request_new_block, with
// block_cond.wait_with_timeout replaced by runtime.Condvar's Go-native
// equivalent (runtime/sync.go).
package gossip

import (
	"go.uber.org/atomic"

	"github.com/ground-x/simba/object"
	"github.com/ground-x/simba/runtime"
)

// Block is an opaque payload disseminated node to node. Its only
// relevant property is size; dissemination timing is all gossip ever
// measures (§6).
type Block struct {
	ID           object.BlockID
	PayloadSize  int
	CreationTime runtime.VirtualTime

	numNodes            uint32
	seenBy              atomic.Uint32
	fullPropagationSet  atomic.Bool
	fullPropagationTime atomic.Int64
}

// NewBlock mints a new gossip block of payloadSize bytes.
func NewBlock(payloadSize int, numNodes uint32, now runtime.VirtualTime) *Block {
	return &Block{
		ID:           object.New(),
		PayloadSize:  payloadSize,
		CreationTime: now,
		numNodes:     numNodes,
	}
}

// Size implements network.Message.
func (b *Block) Size() int { return b.PayloadSize }

// MarkSeen records that one more correct node has received b.
func (b *Block) MarkSeen(now runtime.VirtualTime) {
	seen := b.seenBy.Inc()
	if seen == b.numNodes {
		if b.fullPropagationSet.CAS(false, true) {
			b.fullPropagationTime.Store(int64(now))
		}
	}
}

// FullPropagationDelay reports how long it took every correct node to
// see b, or ok=false if it has not fully propagated yet.
func (b *Block) FullPropagationDelay() (d runtime.Duration, ok bool) {
	if !b.fullPropagationSet.Load() {
		return 0, false
	}
	seenAt := runtime.VirtualTime(b.fullPropagationTime.Load())
	return seenAt.Sub(b.CreationTime), true
}
