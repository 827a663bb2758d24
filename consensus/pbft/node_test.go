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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ground-x/simba/ledger"
	"github.com/ground-x/simba/ledger/conventional"
	"github.com/ground-x/simba/network"
	"github.com/ground-x/simba/object"
	"github.com/ground-x/simba/runtime"
)

// wireCluster builds a fully connected n-node fabric with node 0 as
// leader and every other node a replica, matching the protocol's fixed
// leadership assignment.
func wireCluster(t *testing.T, rt *runtime.Runtime, n int, maxBlockSize int, maxBlockInterval runtime.Duration) (logics []*Logic, ids []object.ID, fab *network.Fabric, global *conventional.GlobalLedger) {
	t.Helper()

	ids = make([]object.ID, n)
	for i := range ids {
		ids[i] = object.New()
	}
	fab = network.NewFabric(rt)
	global = conventional.NewGlobalLedger()
	quorumSize, _ := Quorum(uint32(n))

	logics = make([]*Logic, n)
	nodes := make([]*network.Node, n)
	for i := 0; i < n; i++ {
		idx := i
		nodes[i] = network.NewNode(object.NodeIndex(idx), network.Location{}, 0, func(source object.ID, msg network.Message) {
			logics[idx].HandleMessage(source, msg)
		})
		nodes[i].ID = ids[i]
		fab.AddNode(nodes[i])
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			fab.Connect(nodes[i], nodes[j], runtime.Millisecond, 0, nil)
		}
	}
	for i := 0; i < n; i++ {
		logics[i] = NewLogic(ids[i], object.NodeIndex(i), fab, rt,
			conventional.NewNodeLedger(), global, maxBlockSize, quorumSize, maxBlockInterval)
	}
	return logics, ids, fab, global
}

func TestQuorumToleratesExpectedFailures(t *testing.T) {
	q, f := Quorum(4)
	require.EqualValues(t, 1, f)
	require.EqualValues(t, 3, q)

	q, f = Quorum(7)
	require.EqualValues(t, 2, f)
	require.EqualValues(t, 5, q)
}

func TestSingleTransactionReachesFinality(t *testing.T) {
	rt := runtime.New()
	logics, _, _, global := wireCluster(t, rt, 4, 10, 50*runtime.Millisecond)

	rt.Spawn(func(t *runtime.Task) { logics[0].Run(t) })
	rt.ExecuteTasks()

	tx := ledger.NewTransaction(object.New(), 0)
	logics[0].AddTransaction(tx, object.ID{})

	rt.Run(func() bool { return rt.Alive() == 0 })

	require.EqualValues(t, 2, logics[0].currentRound)
	committed, ok := global.Block(global.LatestCommit())
	require.True(t, ok)
	require.Len(t, committed.Transactions, 1)
	require.Equal(t, tx.ID, committed.Transactions[0].ID)

	for _, l := range logics[1:] {
		require.True(t, l.local.AddTransaction(tx) == false, "replica should already know the committed transaction")
	}
}

func TestLeaderWaitsWhenMempoolEmpty(t *testing.T) {
	rt := runtime.New()
	logics, _, _, _ := wireCluster(t, rt, 4, 10, 50*runtime.Millisecond)

	done := false
	rt.Spawn(func(t *runtime.Task) { logics[0].Run(t) })
	rt.Spawn(func(t *runtime.Task) {
		logics[0].proposeNotify.Notified(t)
		done = true
	})
	rt.ExecuteTasks()
	require.False(t, done)
	require.Nil(t, logics[0].lastProposedRound)
}

func TestPastRoundMessageIsDiscarded(t *testing.T) {
	rt := runtime.New()
	logics, ids, _, _ := wireCluster(t, rt, 4, 10, 50*runtime.Millisecond)

	logics[1].currentRound = 5
	logics[1].rounds[5] = newRoundState()

	logics[1].HandleMessage(ids[2], Prepare{Slot: 1})
	require.Zero(t, logics[1].rounds[5].preparedNodes.Size())
}

func TestFutureRoundMessageIsQueued(t *testing.T) {
	rt := runtime.New()
	logics, ids, _, _ := wireCluster(t, rt, 4, 10, 50*runtime.Millisecond)

	logics[1].HandleMessage(ids[2], Prepare{Slot: 3})
	require.Len(t, logics[1].pendingMessages[3], 1)
}
