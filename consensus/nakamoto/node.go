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
	"math/big"

	lru "github.com/hashicorp/golang-lru"

	"github.com/ground-x/simba/ledger"
	chain "github.com/ground-x/simba/ledger/nakamoto"
	"github.com/ground-x/simba/log"
	"github.com/ground-x/simba/network"
	"github.com/ground-x/simba/object"
	"github.com/ground-x/simba/runtime"
)

var logger = log.NewModuleLogger(log.Nakamoto)

const requestCacheSize = 65536

type pendingEntry struct {
	source object.ID
	block  *chain.Block
}

// nakamotoBlockAdapter satisfies BlockGenerator.UpdateChainHead's
// BlockTimeInfo parameter over a *chain.Block.
type nakamotoBlockAdapter struct{ b *chain.Block }

func (a nakamotoBlockAdapter) BlockHeight() uint64                   { return a.b.Height }
func (a nakamotoBlockAdapter) BlockCreationTime() runtime.VirtualTime { return a.b.CreationTime }
func (a nakamotoBlockAdapter) BlockDifficulty() *big.Int              { return new(big.Int).SetUint64(a.b.Difficulty) }

// Logic is one node's Nakamoto protocol driver: it owns the node's
// local ledger view, talks to its peers over the fabric, and mines
// new blocks on a schedule set by its BlockGenerator (§4.4).
//
// Grounded on simba/src/logic/nakamoto/node.rs: add_transaction,
// add_new_block, handle_message, and generate_block are ported
// directly; NodeState's pending-ancestor/pending-transaction queues
// and requested-block/requested-transaction sets carry over as-is,
// with the sets backed by bounded LRU caches (hashicorp/golang-lru)
// instead of unbounded HashSets, so a node under sustained request
// pressure cannot grow its tracking state without limit.
type Logic struct {
	self  object.ID
	index object.NodeIndex
	fab   *network.Fabric
	rt    *runtime.Runtime

	local  *chain.NodeLedger
	global *chain.GlobalLedger

	requestedBlocks *lru.Cache
	requestedTxs    *lru.Cache

	pendingAncestors    map[object.BlockID][]pendingEntry
	pendingTransactions map[object.TxID][]pendingEntry

	generator BlockGenerator

	maxBlockSize int
	commitDelay  uint64
	useGHOST     bool
	numNodes     uint32

	onBlockMined   func(b *chain.Block)
	onHeadChanged  func(newHead *chain.Block)
}

// SetOnBlockMined installs a callback invoked every time this node
// mines a new block (§6 total_blocks_mined), whether or not it later
// becomes part of the selected chain.
func (l *Logic) SetOnBlockMined(fn func(b *chain.Block)) {
	l.onBlockMined = fn
}

// SetOnHeadChanged installs a callback invoked whenever this node's
// selected chain head advances (§6 total_blocks_accepted /
// avg_block_interval). The simulation driver typically wires this on
// a single designated node to avoid double-counting across the whole
// network's shared view.
func (l *Logic) SetOnHeadChanged(fn func(newHead *chain.Block)) {
	l.onHeadChanged = fn
}

// NewLogic builds a Nakamoto node driver. numNodes is the number of
// correct nodes in the simulation, used to know when a mined block has
// fully propagated (§4.4).
func NewLogic(self object.ID, index object.NodeIndex, fab *network.Fabric, rt *runtime.Runtime,
	local *chain.NodeLedger, global *chain.GlobalLedger, generator BlockGenerator,
	maxBlockSize int, commitDelay uint64, useGHOST bool, numNodes uint32) *Logic {

	requestedBlocks, _ := lru.New(requestCacheSize)
	requestedTxs, _ := lru.New(requestCacheSize)

	return &Logic{
		self:                self,
		index:               index,
		fab:                 fab,
		rt:                  rt,
		local:               local,
		global:              global,
		requestedBlocks:     requestedBlocks,
		requestedTxs:        requestedTxs,
		pendingAncestors:    make(map[object.BlockID][]pendingEntry),
		pendingTransactions: make(map[object.TxID][]pendingEntry),
		generator:           generator,
		maxBlockSize:        maxBlockSize,
		commitDelay:         commitDelay,
		useGHOST:            useGHOST,
		numNodes:            numNodes,
	}
}

// AddTransaction records a new transaction learned locally (source is
// the zero object.ID) or relayed from a peer, and retries any blocks
// that were only waiting on it.
func (l *Logic) AddTransaction(tx *ledger.Transaction, source object.ID) {
	if !l.local.AddTransaction(tx) {
		return
	}

	if waiting, ok := l.pendingTransactions[tx.ID]; ok {
		delete(l.pendingTransactions, tx.ID)
		for _, e := range waiting {
			l.addNewBlock(e.block, e.source)
		}
	}

	l.fab.Broadcast(l.self, NotifyNewTransaction{TxID: tx.ID}, source)
}

// addNewBlock is add_new_block: it resolves missing transactions and
// ancestors before admitting a block into the local ledger, queuing it
// for retry once the dependency arrives.
func (l *Logic) addNewBlock(b *chain.Block, receivedFrom object.ID) {
	for _, tx := range b.Transactions {
		if l.local.KnowsTransaction(tx.ID) {
			continue
		}
		if !l.requestedTxs.Contains(tx.ID) {
			l.requestedTxs.Add(tx.ID, true)
			l.fab.SendTo(l.self, receivedFrom, GetTransaction{TxID: tx.ID})
		}
		l.pendingTransactions[tx.ID] = append(l.pendingTransactions[tx.ID], pendingEntry{receivedFrom, b})
		return
	}

	var missingAncestors []object.BlockID
	if b.ParentID != chain.GenesisID && !l.local.HasBlock(b.ParentID) {
		missingAncestors = append(missingAncestors, b.ParentID)
	}
	for _, uncle := range b.UncleIDs {
		if !l.local.HasBlock(uncle) {
			missingAncestors = append(missingAncestors, uncle)
		}
	}

	if len(missingAncestors) > 0 {
		l.pendingAncestors[missingAncestors[0]] = append(l.pendingAncestors[missingAncestors[0]], pendingEntry{receivedFrom, b})
		for _, ancestor := range missingAncestors {
			if !l.requestedBlocks.Contains(ancestor) {
				l.requestedBlocks.Add(ancestor, true)
				l.fab.SendTo(l.self, receivedFrom, GetBlock{BlockID: ancestor})
			}
		}
		return
	}

	isNew, newHead := l.local.AddNewBlock(b)
	if !isNew {
		return
	}
	l.global.Record(b)

	logger.Trace("got a new block", "node", l.index, "block", b.ID.String())
	l.fab.Broadcast(l.self, NotifyNewBlock{BlockID: b.ID}, receivedFrom)

	if newHead != nil {
		if l.onHeadChanged != nil {
			l.onHeadChanged(newHead)
		}
		if newHead.ParentID == chain.GenesisID {
			l.generator.UpdateChainHead(nakamotoBlockAdapter{newHead}, nil)
		} else if parent, ok := l.local.Block(newHead.ParentID); ok {
			l.generator.UpdateChainHead(nakamotoBlockAdapter{newHead}, nakamotoBlockAdapter{parent})
		}
	}

	if waiting, ok := l.pendingAncestors[b.ID]; ok {
		delete(l.pendingAncestors, b.ID)
		for _, e := range waiting {
			l.addNewBlock(e.block, e.source)
		}
	}
}

// HandleMessage dispatches an inbound Nakamoto protocol message.
func (l *Logic) HandleMessage(source object.ID, msg network.Message) {
	switch m := msg.(type) {
	case NotifyNewBlock:
		if !l.local.HasBlock(m.BlockID) && !l.requestedBlocks.Contains(m.BlockID) {
			l.requestedBlocks.Add(m.BlockID, true)
			l.fab.SendTo(l.self, source, GetBlock{BlockID: m.BlockID})
		}
	case GetBlock:
		b, ok := l.local.Block(m.BlockID)
		if !ok {
			logger.Error("got request for unknown block", "block", m.BlockID.String())
			return
		}
		l.fab.SendTo(l.self, source, SendBlock{Block: b})
	case SendBlock:
		l.requestedBlocks.Remove(m.Block.ID)
		l.addNewBlock(m.Block, source)
	case GetTransaction:
		tx, ok := l.local.Transaction(m.TxID)
		if !ok {
			logger.Error("got request for unknown transaction", "tx", m.TxID.String())
			return
		}
		l.fab.SendTo(l.self, source, SendTransaction{Tx: tx})
	case NotifyNewTransaction:
		if !l.local.KnowsTransaction(m.TxID) && !l.requestedTxs.Contains(m.TxID) {
			l.requestedTxs.Add(m.TxID, true)
			l.fab.SendTo(l.self, source, GetTransaction{TxID: m.TxID})
		}
	case SendTransaction:
		l.requestedTxs.Remove(m.Tx.ID)
		l.AddTransaction(m.Tx, source)
	}
}

// GenerateBlock mints a block on top of the node's current longest
// chain and feeds it through the same admission path as a received
// block (§4.4: "handled as if received locally").
func (l *Logic) GenerateBlock(now runtime.VirtualTime) {
	parentID, height := l.local.LongestChain()
	difficulty := l.generator.Difficulty()
	txs := l.local.TransactionsFromMempool(l.maxBlockSize)

	var uncles []object.BlockID
	var state *ledger.FrozenState

	if parentID == chain.GenesisID {
		state = ledger.NewState().Freeze()
	} else {
		parent, ok := l.local.Block(parentID)
		if !ok {
			return
		}
		if l.useGHOST {
			for fork := range l.local.Forks() {
				if fork != parentID && !l.local.IsMarkedUncle(fork) {
					uncles = append(uncles, fork)
				}
			}
		}
		state = ledger.CloneFrom(parent.State).Freeze()
	}

	b := chain.NewBlock(l.self, parentID, height, uncles, difficulty.Uint64(), txs, state, now, l.numNodes)
	if l.onBlockMined != nil {
		l.onBlockMined(b)
	}
	l.addNewBlock(b, l.self)
}

// Run drives periodic block-generation attempts on t's task until the
// simulation stops the node's goroutine (§4.4: "is_mining" loop).
func (l *Logic) Run(t *runtime.Task) {
	resolution := l.generator.Resolution()
	for {
		if l.generator.ShouldCreateBlock(l.index) {
			l.GenerateBlock(l.rt.Now())
		}
		t.Sleep(resolution)
	}
}
