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

package nakamoto

import (
	"math/rand"

	"github.com/ground-x/simba/ledger"
	"github.com/ground-x/simba/log"
	"github.com/ground-x/simba/object"
)

var logger = log.NewModuleLogger(log.Nakamoto)

// NotifyCommitFunc is invoked once per transaction that has reached
// commit depth on the selected chain (§4.4a).
type NotifyCommitFunc func(account object.AccountID, tx object.TxID)

// GlobalLedger tracks every block ever mined, across all nodes, for
// statistics collection only — simulation code must never use it to
// make protocol decisions (it would leak global knowledge into a
// node's local view).
type GlobalLedger struct {
	numNodes   uint32
	allBlocks  map[object.BlockID]*Block
	longestID  object.BlockID
	longestLen uint64
}

// NewGlobalLedger creates the simulation-wide bookkeeping ledger.
func NewGlobalLedger(numNodes uint32) *GlobalLedger {
	return &GlobalLedger{numNodes: numNodes, allBlocks: make(map[object.BlockID]*Block)}
}

// Record registers a newly mined block for statistics.
func (g *GlobalLedger) Record(b *Block) {
	g.allBlocks[b.ID] = b
	if b.Height > g.longestLen {
		g.longestLen = b.Height
		g.longestID = b.ID
	}
}

// Block looks up a previously recorded block.
func (g *GlobalLedger) Block(id object.BlockID) (*Block, bool) {
	b, ok := g.allBlocks[id]
	return b, ok
}

// LongestChain reports the longest chain observed across the whole
// simulation.
func (g *GlobalLedger) LongestChain() (object.BlockID, uint64) {
	return g.longestID, g.longestLen
}

// NodeLedger is a single node's view of the Nakamoto chain: the
// blocks it knows about, the heads of every fork it has seen, the
// mempool, and which transactions are currently applied on its
// selected chain (§4.4).
type NodeLedger struct {
	commitDelay uint64
	rng         *rand.Rand

	blocks        map[object.BlockID]*Block
	forks         map[object.BlockID]uint64
	head          object.BlockID
	headHeight    uint64
	markedUncle   map[object.BlockID]bool

	knownTxs   map[object.TxID]*ledger.Transaction
	mempool    map[object.TxID]bool
	applied    map[object.TxID]bool

	notifyCommit NotifyCommitFunc
}

// NewNodeLedger creates an empty per-node ledger. seed gives the node
// its own deterministic tie-break source so two nodes observing the
// same fork race do not always agree (matching a real network's
// independent randomness) while the whole simulation stays
// reproducible given a fixed seed schedule.
func NewNodeLedger(commitDelay uint64, seed int64) *NodeLedger {
	return &NodeLedger{
		commitDelay: commitDelay,
		rng:         rand.New(rand.NewSource(seed)),
		blocks:      make(map[object.BlockID]*Block),
		forks:       make(map[object.BlockID]uint64),
		markedUncle: make(map[object.BlockID]bool),
		knownTxs:    make(map[object.TxID]*ledger.Transaction),
		mempool:     make(map[object.TxID]bool),
		applied:     make(map[object.TxID]bool),
	}
}

// SetNotifyCommitFunc installs the callback invoked for each
// transaction that reaches commit depth.
func (l *NodeLedger) SetNotifyCommitFunc(fn NotifyCommitFunc) {
	l.notifyCommit = fn
}

// LongestChain reports this node's currently selected head.
func (l *NodeLedger) LongestChain() (object.BlockID, uint64) {
	return l.head, l.headHeight
}

// HasBlock reports whether id is known to this node.
func (l *NodeLedger) HasBlock(id object.BlockID) bool {
	_, ok := l.blocks[id]
	return ok
}

// Block looks up a known block.
func (l *NodeLedger) Block(id object.BlockID) (*Block, bool) {
	b, ok := l.blocks[id]
	return b, ok
}

// IsMarkedUncle reports whether id is currently referenced as an
// uncle on this node's selected chain.
func (l *NodeLedger) IsMarkedUncle(id object.BlockID) bool {
	return l.markedUncle[id]
}

// Forks returns the height of every fork head this node has seen.
func (l *NodeLedger) Forks() map[object.BlockID]uint64 {
	return l.forks
}

// TransactionsFromMempool returns up to maxBlockSize pending
// transactions to include in the next mined block.
func (l *NodeLedger) TransactionsFromMempool(maxBlockSize int) []*ledger.Transaction {
	txs := make([]*ledger.Transaction, 0, maxBlockSize)
	for id := range l.mempool {
		if len(txs) >= maxBlockSize {
			break
		}
		txs = append(txs, l.knownTxs[id])
	}
	return txs
}

// IsTransactionApplied reports whether tx is part of the currently
// selected chain.
func (l *NodeLedger) IsTransactionApplied(tx object.TxID) bool {
	return l.applied[tx]
}

// KnowsTransaction reports whether tx has ever been seen by this node.
func (l *NodeLedger) KnowsTransaction(tx object.TxID) bool {
	_, ok := l.knownTxs[tx]
	return ok
}

// Transaction looks up a known transaction by id.
func (l *NodeLedger) Transaction(tx object.TxID) (*ledger.Transaction, bool) {
	t, ok := l.knownTxs[tx]
	return t, ok
}

// AddTransaction records a newly learned transaction and queues it in
// the mempool. Returns false if it was already known.
func (l *NodeLedger) AddTransaction(tx *ledger.Transaction) bool {
	if _, ok := l.knownTxs[tx.ID]; ok {
		return false
	}
	l.knownTxs[tx.ID] = tx
	l.mempool[tx.ID] = true
	if len(l.mempool) > 1_000_000 {
		logger.Warn("mempool size is very large", "size", len(l.mempool))
	}
	return true
}

// AddNewBlock registers a newly received or mined block, updates the
// fork-head set, and — if it changes this node's selected chain —
// performs the undo/redo reorganization of §4.4a. Returns whether the
// block was new, and the new head if the selected chain changed.
func (l *NodeLedger) AddNewBlock(b *Block) (isNew bool, newHead *Block) {
	if _, ok := l.blocks[b.ID]; ok {
		logger.Trace("got same block more than once", "id", b.ID.String())
		return false, nil
	}
	l.blocks[b.ID] = b

	delete(l.forks, b.ParentID)
	l.forks[b.ID] = b.Height

	if b.Height < l.headHeight {
		return true, nil
	}

	if l.head == GenesisID && l.headHeight == 0 && len(l.blocks) == 1 {
		// First block this node has ever seen: there is no prior head
		// to reorganize away from.
		head := l.pickFork()
		l.applyChainHead(nil, head, 0)
		l.head, l.headHeight = head.ID, head.Height
		return true, head
	}

	oldHeadID := l.head
	old, hadHead := l.blocks[oldHeadID]
	head := l.pickFork()
	if hadHead && head.ID == old.ID {
		return true, nil
	}

	l.applyChainHead(old, head, l.commitDelay)
	l.head, l.headHeight = head.ID, head.Height
	return true, head
}

// pickFork returns the head of the longest fork, breaking ties
// uniformly at random the way a real node's arbitrary tiebreak would
// (§4.4a, Open Question).
func (l *NodeLedger) pickFork() *Block {
	var longest []object.BlockID
	var maxLen uint64
	for id, length := range l.forks {
		switch {
		case length > maxLen:
			maxLen = length
			longest = []object.BlockID{id}
		case length == maxLen:
			longest = append(longest, id)
		}
	}
	pick := longest[l.rng.Intn(len(longest))]
	return l.blocks[pick]
}

// applyChainHead performs the walk described in update_chain_head:
// walk the new head down to the old head's height, then walk both
// branches back in lockstep to their common ancestor, undoing the old
// branch and queuing the new branch's blocks to be applied in order;
// finally apply the queued blocks and fire commit notifications for
// anything that has now reached commit depth.
func (l *NodeLedger) applyChainHead(old, newHead *Block, commitDelay uint64) {
	var toApply []*Block

	if old == nil {
		toApply = append(toApply, newHead)
	} else {
		oldAncestor, newAncestor := old, newHead
		for newAncestor.Height > oldAncestor.Height {
			toApply = append(toApply, newAncestor)
			newAncestor = l.blocks[newAncestor.ParentID]
		}

		walkBack := uint64(0)
		for newAncestor.ID != oldAncestor.ID {
			walkBack++
			if walkBack >= commitDelay {
				logger.Warn("reorganization undid a committed block")
			}

			l.undo(oldAncestor)
			toApply = append(toApply, newAncestor)

			if newAncestor.ParentID == GenesisID {
				break
			}
			newAncestor = l.blocks[newAncestor.ParentID]
			oldAncestor = l.blocks[oldAncestor.ParentID]
		}
	}

	for i := len(toApply) - 1; i >= 0; i-- {
		l.redo(toApply[i])
	}

	if old != nil && newHead.Height > old.Height && newHead.Height > commitDelay {
		committed := newHead
		for i := uint64(0); i < commitDelay; i++ {
			committed = l.blocks[committed.ParentID]
		}
		for _, tx := range committed.Transactions {
			if !l.applied[tx.ID] {
				panic("nakamoto: committed transaction was never applied")
			}
			if l.notifyCommit != nil {
				l.notifyCommit(tx.SourceAccount, tx.ID)
			}
		}
	}
}

func (l *NodeLedger) undo(b *Block) {
	for _, tx := range b.Transactions {
		l.mempool[tx.ID] = true
		delete(l.applied, tx.ID)
	}
	for _, u := range b.UncleIDs {
		if !l.markedUncle[u] {
			panic("nakamoto: block was never marked as uncle")
		}
		delete(l.markedUncle, u)
	}
}

func (l *NodeLedger) redo(b *Block) {
	for _, u := range b.UncleIDs {
		if l.markedUncle[u] {
			panic("nakamoto: block was marked as uncle twice")
		}
		l.markedUncle[u] = true
	}
	for _, tx := range b.Transactions {
		delete(l.mempool, tx.ID)
		l.applied[tx.ID] = true
	}
}
