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

// Package nakamoto is the per-node ledger state for the Nakamoto
// (longest-chain, PoW or Ouroboros) protocol family: block storage,
// fork-head tracking, mempool, and the undo/redo reorganization that
// runs when a heavier fork overtakes the current head (§4.4, §4.4a).
//
// Grounded on simba/src/ledger/nakamoto/{mod,block}.rs: NakamotoBlock
// keeps the same seen_by/full_propagation_time bookkeeping, and
// NakamotoNodeLedger.add_new_block/update_chain_head/pick_fork are
// ported directly, adapted to Go's atomics and maps in place of Rust's
// AtomicU32/RefCell/HashMap.
package nakamoto

import (
	"go.uber.org/atomic"

	"github.com/ground-x/simba/ledger"
	"github.com/ground-x/simba/object"
	"github.com/ground-x/simba/runtime"
)

// blockOverhead approximates a block's fixed wire cost (header fields
// plus a modeled signature), independent of its transactions.
const blockOverhead = 128

// Block is a Nakamoto chain block. Once constructed it is immutable
// except for the seen-by counter and the propagation-time latch,
// which every node that receives it updates (§4.4 item: "seen_by").
type Block struct {
	ID           object.BlockID
	Miner        object.ID
	ParentID     object.BlockID
	UncleIDs     []object.BlockID
	Height       uint64
	Difficulty   uint64
	CreationTime runtime.VirtualTime
	Transactions []*ledger.Transaction
	State        *ledger.FrozenState

	numNodes            uint32
	seenBy              atomic.Uint32
	fullPropagationSet  atomic.Bool
	fullPropagationTime atomic.Int64
}

// GenesisID is the sentinel parent id of the first block on a chain.
// It is never stored as an actual Block; it only marks "no parent".
var GenesisID = object.BlockID{}

// NewBlock mints a new block on top of parentID (GenesisID for the
// first block of the chain, with parentHeight 0). numNodes is the
// number of correct nodes in the simulation, used to know when the
// block has fully propagated (§4.4).
func NewBlock(miner object.ID, parentID object.BlockID, parentHeight uint64, uncles []object.BlockID,
	difficulty uint64, txs []*ledger.Transaction, state *ledger.FrozenState, now runtime.VirtualTime, numNodes uint32) *Block {

	return &Block{
		ID:           object.New(),
		Miner:        miner,
		ParentID:     parentID,
		UncleIDs:     uncles,
		Height:       parentHeight + 1,
		Difficulty:   difficulty,
		CreationTime: now,
		Transactions: txs,
		State:        state,
		numNodes:     numNodes,
	}
}

// Size implements network.Message.
func (b *Block) Size() int {
	return blockOverhead + len(b.Transactions)*59
}

// MarkSeen records that one more correct node has received b. The
// first call to cross numNodes latches the full propagation time.
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

// HasUncle reports whether id is referenced as an uncle of b.
func (b *Block) HasUncle(id object.BlockID) bool {
	for _, u := range b.UncleIDs {
		if u == id {
			return true
		}
	}
	return false
}
