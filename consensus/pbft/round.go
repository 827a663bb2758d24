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
	"gopkg.in/fatih/set.v0"

	"github.com/ground-x/simba/ledger/conventional"
	"github.com/ground-x/simba/network"
	"github.com/ground-x/simba/object"
)

// Role is a node's fixed position in the protocol: this simplistic
// rotation-free design has node 0 lead every round forever, with every
// other node a replica (§5).
type Role int

const (
	RoleLeader Role = iota
	RoleReplica
)

func (r Role) String() string {
	if r == RoleLeader {
		return "leader"
	}
	return "replica"
}

// roundState tracks a single slot's in-flight proposal: the proposed
// block, and the set of nodes known to have prepared and committed it.
// The node sets are backed by fatih/set.v0, the same set type the
// teacher's work/worker.go uses for its ancestor/family/uncle tracking.
type roundState struct {
	block          *conventional.Block
	preparedNodes  *set.Set
	committedNodes *set.Set
}

func newRoundState() *roundState {
	return &roundState{
		preparedNodes:  set.New(),
		committedNodes: set.New(),
	}
}

type pendingMessage struct {
	source object.ID
	msg    network.Message
}
