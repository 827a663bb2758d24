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

package conventional

import (
	"github.com/ground-x/simba/ledger"
	"github.com/ground-x/simba/object"
)

// GlobalLedger tracks every proposed block for statistics collection
// only, and separately the latest committed block's id
// (§mirrors NakamotoGlobalLedger's separation of concerns).
type GlobalLedger struct {
	allBlocks    map[object.BlockID]*Block
	latestCommit object.BlockID
	haveCommit   bool
}

// NewGlobalLedger creates the simulation-wide bookkeeping ledger.
func NewGlobalLedger() *GlobalLedger {
	return &GlobalLedger{allBlocks: make(map[object.BlockID]*Block)}
}

// AddBlock registers a newly proposed block.
func (g *GlobalLedger) AddBlock(b *Block) {
	g.allBlocks[b.ID] = b
}

// Block looks up a previously recorded block.
func (g *GlobalLedger) Block(id object.BlockID) (*Block, bool) {
	b, ok := g.allBlocks[id]
	return b, ok
}

// NumBlocks reports how many blocks have been registered through
// AddBlock.
func (g *GlobalLedger) NumBlocks() int {
	return len(g.allBlocks)
}

// SetLatestCommit records the most recently committed block's id.
func (g *GlobalLedger) SetLatestCommit(id object.BlockID) {
	g.latestCommit = id
	g.haveCommit = true
}

// LatestCommit returns the most recently committed block's id. It
// panics if nothing has been committed yet, on the assumption that
// callers only ask once the simulation is underway.
func (g *GlobalLedger) LatestCommit() object.BlockID {
	if !g.haveCommit {
		panic("conventional: no block committed")
	}
	return g.latestCommit
}

// NodeLedger is a single node's pending-transaction pool. There is no
// fork tracking: the driving protocol (PBFT) guarantees a single linear sequence of accepted blocks.
type NodeLedger struct {
	mempool map[object.TxID]*ledger.Transaction
}

// NewNodeLedger creates an empty per-node ledger.
func NewNodeLedger() *NodeLedger {
	return &NodeLedger{mempool: make(map[object.TxID]*ledger.Transaction)}
}

// AddTransaction records a newly learned transaction. Returns false if
// it was already known.
func (l *NodeLedger) AddTransaction(tx *ledger.Transaction) bool {
	if _, ok := l.mempool[tx.ID]; ok {
		return false
	}
	l.mempool[tx.ID] = tx
	return true
}

// MempoolSize reports how many transactions are currently pending.
func (l *NodeLedger) MempoolSize() int {
	return len(l.mempool)
}

// TransactionsFromMempool drains up to maxBlockSize pending
// transactions for inclusion in the next proposed block.
func (l *NodeLedger) TransactionsFromMempool(maxBlockSize int) []*ledger.Transaction {
	txs := make([]*ledger.Transaction, 0, maxBlockSize)
	for id, tx := range l.mempool {
		if len(txs) >= maxBlockSize {
			break
		}
		txs = append(txs, tx)
		delete(l.mempool, id)
	}
	return txs
}
