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

// Package conventional is the per-node ledger state for a protocol
// that agrees on one linear chain instead of racing forks: PBFT
// commits a single ConventionalBlock per slot once quorum is reached
// (§5, §6, §7). Gossip and Snowball do not use this package.
//
// Grounded on simba/src/ledger/conventional.rs: ConventionalBlock
// keeps the same accept_count bookkeeping (renamed AcceptCount) and a
// flat mempool, with no fork tracking at all — the protocol layer
// guarantees a single sequence of blocks.
package conventional

import (
	"go.uber.org/atomic"

	"github.com/ground-x/simba/ledger"
	"github.com/ground-x/simba/object"
	"github.com/ground-x/simba/runtime"
)

const blockOverhead = 96

// SlotNumber identifies a block's position in the linear chain. The
// teacher's Rust original calls this height (slot) the block's
// "height" too; consensus code tends to call it a round or slot, so
// the type alias documents that these are the same number.
type SlotNumber = uint64

// Block is a single linear-chain block.
type Block struct {
	ID           object.BlockID
	ParentID     object.BlockID
	Slot         SlotNumber
	CreatedBy    object.ID
	CreationTime runtime.VirtualTime
	Transactions []*ledger.Transaction
	State        *ledger.FrozenState

	acceptCount atomic.Uint32
}

// GenesisID is the sentinel parent id of the chain's first block.
var GenesisID = object.BlockID{}

// NewBlock mints a new block for slot parentSlot+1.
func NewBlock(parentID object.BlockID, parentSlot SlotNumber, createdBy object.ID,
	txs []*ledger.Transaction, state *ledger.FrozenState, now runtime.VirtualTime) *Block {
	return &Block{
		ID:           object.New(),
		ParentID:     parentID,
		Slot:         parentSlot + 1,
		CreatedBy:    createdBy,
		CreationTime: now,
		Transactions: txs,
		State:        state,
	}
}

// Size implements network.Message.
func (b *Block) Size() int {
	return blockOverhead + len(b.Transactions)*59
}

// MarkAccepted records that one more node has accepted b (committed
// or prepared, depending on the protocol driving this ledger).
func (b *Block) MarkAccepted() uint32 {
	return b.acceptCount.Inc()
}

// AcceptCount reports how many nodes have accepted b so far.
func (b *Block) AcceptCount() uint32 {
	return b.acceptCount.Load()
}
