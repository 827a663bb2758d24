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

package pbft

import (
	"github.com/ground-x/simba/ledger"
	"github.com/ground-x/simba/ledger/conventional"
)

// signatureOverhead stands in for the per-message signature every PBFT
// message carries (§5).
const signatureOverhead = 64

const slotFieldSize = 8

// SendTransaction pushes a full transaction into the mempool of every
// other node. Unlike consensus/nakamoto's announce-then-fetch
// transaction gossip, there is no announcement step.
type SendTransaction struct{ Tx *ledger.Transaction }

func (m SendTransaction) Size() int { return m.Tx.Size() + signatureOverhead }

// PrePrepare is the leader's proposal for a slot.
type PrePrepare struct{ Block *conventional.Block }

func (m PrePrepare) Size() int { return m.Block.Size() + signatureOverhead }

// Prepare is a replica's vote that it has seen the leader's proposal
// for Slot.
type Prepare struct{ Slot conventional.SlotNumber }

func (Prepare) Size() int { return slotFieldSize + signatureOverhead }

// Commit is a replica's vote that quorum-many nodes have prepared
// Slot.
type Commit struct{ Slot conventional.SlotNumber }

func (Commit) Size() int { return slotFieldSize + signatureOverhead }
