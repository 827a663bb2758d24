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

// Package pbft implements the PBFT-style consensus protocol (§5): a
// single fixed leader drives a three-phase PrePrepare/Prepare/Commit
// round per slot over a linear, conventional.Block chain, finalizing a
// slot once quorum_size = numNodes - (numNodes-1)/3 nodes have
// committed.
//
// Grounded on simba/src/logic/pbft/{mod.rs,node.rs}: NodeState's round
// bookkeeping, round-ordering on inbound messages, and the leader's
// propose loop are ported directly, with tokio::select! replaced by
// runtime.Notify.WaitNotifiedOrTimeout (runtime/sync.go).
package pbft

import (
	"github.com/ground-x/simba/ledger"
	"github.com/ground-x/simba/ledger/conventional"
	"github.com/ground-x/simba/log"
	"github.com/ground-x/simba/network"
	"github.com/ground-x/simba/object"
	"github.com/ground-x/simba/runtime"
)

var logger = log.NewModuleLogger(log.PBFT)

// Quorum computes the quorum size and tolerated-failure count for a
// network of numNodes, matching PbftGlobalLogic::instantiate.
func Quorum(numNodes uint32) (quorumSize, tolerated uint32) {
	f := (numNodes - 1) / 3
	return numNodes - f, f
}

// Logic is one node's PBFT protocol driver.
type Logic struct {
	self  object.ID
	index object.NodeIndex
	role  Role
	fab   *network.Fabric
	rt    *runtime.Runtime

	local  *conventional.NodeLedger
	global *conventional.GlobalLedger

	rounds          map[conventional.SlotNumber]*roundState
	pendingMessages map[conventional.SlotNumber][]pendingMessage
	currentRound    conventional.SlotNumber

	lastBlockTime     runtime.VirtualTime
	lastProposedRound *conventional.SlotNumber

	proposeNotify *runtime.Notify

	maxBlockSize     int
	quorumSize       uint32
	maxBlockInterval runtime.Duration

	onFinalize func(block *conventional.Block)
}

// SetOnFinalize installs a callback invoked once per finalized block,
// on the leader only (it is the node that owns the global bookkeeping
// ledger, see global.SetLatestCommit below). The simulation driver
// uses this to feed ChainMetrics (§6) without this package knowing
// anything about statistics collection.
func (l *Logic) SetOnFinalize(fn func(block *conventional.Block)) {
	l.onFinalize = fn
}

// NewLogic builds a PBFT node driver. Node index 0 is always the
// leader; every other index is a replica (§5).
func NewLogic(self object.ID, index object.NodeIndex, fab *network.Fabric, rt *runtime.Runtime,
	local *conventional.NodeLedger, global *conventional.GlobalLedger,
	maxBlockSize int, quorumSize uint32, maxBlockInterval runtime.Duration) *Logic {

	role := RoleReplica
	if index == 0 {
		role = RoleLeader
	}

	l := &Logic{
		self:             self,
		index:            index,
		role:             role,
		fab:              fab,
		rt:               rt,
		local:            local,
		global:           global,
		rounds:           make(map[conventional.SlotNumber]*roundState),
		pendingMessages:  make(map[conventional.SlotNumber][]pendingMessage),
		currentRound:     1,
		proposeNotify:    runtime.NewNotify(rt),
		maxBlockSize:     maxBlockSize,
		quorumSize:       quorumSize,
		maxBlockInterval: maxBlockInterval,
	}
	l.rounds[1] = newRoundState()

	logger.Debug("created pbft node", "role", role.String())
	return l
}

// shouldProposeBlock reports whether this node is the leader and has
// no outstanding proposal for the current round.
func (l *Logic) shouldProposeBlock() bool {
	if l.role != RoleLeader {
		return false
	}
	if l.lastProposedRound == nil {
		return true
	}
	return *l.lastProposedRound < l.currentRound
}

// AddTransaction records a transaction learned locally (source is the
// zero object.ID) or relayed from a peer, broadcasts it to every peer
// only when it was learned locally (relayed transactions are not
// forwarded again), and wakes the leader's propose loop if this transaction just made a
// block proposable.
func (l *Logic) AddTransaction(tx *ledger.Transaction, source object.ID) {
	if !l.local.AddTransaction(tx) {
		return
	}

	if source.IsNil() {
		l.fab.Broadcast(l.self, SendTransaction{Tx: tx})
	}

	if l.shouldProposeBlock() {
		poolSize := l.local.MempoolSize()
		// Wake the leader's propose timer on the first transaction, or
		// once the pool is full enough to propose immediately.
		if poolSize >= l.maxBlockSize || poolSize == 1 {
			l.proposeNotify.NotifyOne()
		}
	}
}

func (l *Logic) maybeCommit() {
	round := l.rounds[l.currentRound]

	// Only send commit once we have prepared ourselves, and only once.
	if uint32(round.preparedNodes.Size()) >= l.quorumSize &&
		round.preparedNodes.Has(l.self) && !round.committedNodes.Has(l.self) {

		round.committedNodes.Add(l.self)
		l.fab.Broadcast(l.self, Commit{Slot: l.currentRound})

		if l.role == RoleLeader {
			logger.Debug("leader committed block", "slot", l.currentRound)
		} else {
			logger.Trace("replica committed block", "node", l.index, "slot", l.currentRound)
		}

		// Other nodes might already have committed.
		l.maybeFinalize()
	}
}

func (l *Logic) maybeFinalize() {
	round := l.rounds[l.currentRound]

	// Only finish the round once we have committed ourselves.
	if uint32(round.committedNodes.Size()) >= l.quorumSize && round.committedNodes.Has(l.self) {
		block := round.block
		block.MarkAccepted()

		if l.role == RoleLeader {
			l.global.SetLatestCommit(block.ID)
			logger.Debug("leader finalized block", "slot", l.currentRound)
			if l.onFinalize != nil {
				l.onFinalize(block)
			}
			l.proposeNotify.NotifyOne()
		} else {
			logger.Trace("replica finalized block", "node", l.index, "slot", l.currentRound)
		}

		l.currentRound++
		l.rounds[l.currentRound] = newRoundState()

		if pending, ok := l.pendingMessages[l.currentRound]; ok {
			delete(l.pendingMessages, l.currentRound)
			for _, pm := range pending {
				l.HandleMessage(pm.source, pm.msg)
			}
		}
	}
}

// HandleMessage dispatches an inbound PBFT protocol message, queuing
// messages for rounds this node has not reached yet and discarding
// messages for rounds already finalized.
func (l *Logic) HandleMessage(source object.ID, msg network.Message) {
	if m, ok := msg.(SendTransaction); ok {
		l.AddTransaction(m.Tx, source)
		return
	}

	slot, ok := slotOf(msg)
	if !ok {
		logger.Error("pbft message has no slot", "type", msg)
		return
	}

	switch {
	case l.currentRound > slot:
		logger.Trace("got message for past round")
		return
	case l.currentRound < slot:
		l.pendingMessages[slot] = append(l.pendingMessages[slot], pendingMessage{source, msg})
		logger.Trace("got message for future round")
		return
	}

	round := l.rounds[slot]
	switch m := msg.(type) {
	case PrePrepare:
		if round.block != nil {
			panic("pbft: got pre-prepare more than once")
		}
		round.block = m.Block
		round.preparedNodes.Add(l.self)

		if l.role == RoleLeader {
			logger.Debug("leader prepared block", "slot", slot)
		} else {
			logger.Trace("replica prepared block", "node", l.index, "slot", slot)
		}

		l.fab.Broadcast(l.self, Prepare{Slot: slot})
		l.maybeCommit()
	case Prepare:
		round.preparedNodes.Add(source)
		l.maybeCommit()
	case Commit:
		round.committedNodes.Add(source)
		l.maybeFinalize()
	}
}

func slotOf(msg network.Message) (conventional.SlotNumber, bool) {
	switch m := msg.(type) {
	case PrePrepare:
		return m.Block.Slot, true
	case Prepare:
		return m.Slot, true
	case Commit:
		return m.Slot, true
	default:
		return 0, false
	}
}

// proposeBlock mints a block for the current round and walks the
// leader itself through the same handler path as every replica (§5:
// "leader is also a replica").
func (l *Logic) proposeBlock() {
	logger.Debug("proposing block", "slot", l.currentRound)

	now := l.rt.Now()
	l.lastBlockTime = now
	round := l.currentRound
	l.lastProposedRound = &round

	var parentID object.BlockID
	if l.currentRound > 1 {
		parentID = l.rounds[l.currentRound-1].block.ID
	} else {
		parentID = conventional.GenesisID
	}

	txs := l.local.TransactionsFromMempool(l.maxBlockSize)
	if len(txs) == 0 {
		panic("pbft: propose called with an empty mempool")
	}

	state := ledger.NewState().Freeze()
	block := conventional.NewBlock(parentID, l.currentRound-1, l.self, txs, state, now)

	l.global.AddBlock(block)

	prePrepare := PrePrepare{Block: block}
	l.fab.Broadcast(l.self, prePrepare)
	l.HandleMessage(l.self, prePrepare)
}

// proposeDecision is the three-way outcome of canProposeBlock: propose
// now, wait for the block interval to elapse, or wait indefinitely
// because the mempool is empty.
type proposeDecision int

const (
	proposeNow proposeDecision = iota
	proposeWait
	proposeBlocked
)

// canProposeBlock reports whether enough transactions are pending or
// enough time has elapsed to propose a block now.
func (l *Logic) canProposeBlock() (proposeDecision, runtime.Duration) {
	elapsed := l.rt.Now().Sub(l.lastBlockTime)
	mempoolSize := l.local.MempoolSize()

	if mempoolSize == 0 {
		logger.Trace("cannot propose yet: no transactions")
		return proposeBlocked, 0
	}
	if elapsed >= l.maxBlockInterval {
		logger.Trace("can propose: max block interval reached")
		return proposeNow, 0
	}
	if mempoolSize >= l.maxBlockSize {
		logger.Trace("can propose: max block size reached")
		return proposeNow, 0
	}
	return proposeWait, l.maxBlockInterval - elapsed
}

// Run drives the leader's propose loop. Replicas never initiate work
// of their own; they only react to HandleMessage (§5: view change on
// leader failure is out of scope).
func (l *Logic) Run(t *runtime.Task) {
	if l.role != RoleLeader {
		return
	}

	for {
		if l.shouldProposeBlock() {
			switch decision, wait := l.canProposeBlock(); decision {
			case proposeNow:
				l.proposeBlock()
			case proposeWait:
				l.proposeNotify.WaitNotifiedOrTimeout(t, wait)
			case proposeBlocked:
				l.proposeNotify.Notified(t)
			}
		} else {
			l.proposeNotify.Notified(t)
		}
	}
}
