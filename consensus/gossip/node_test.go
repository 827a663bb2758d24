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

package gossip

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ground-x/simba/network"
	"github.com/ground-x/simba/object"
	"github.com/ground-x/simba/runtime"
)

// wireChain builds a 3-node line topology (0-1-2) so a block created by
// node 0 must hop through node 1 to reach node 2.
func wireChain(t *testing.T, rt *runtime.Runtime, blockSize int, retryDelay runtime.Duration) (logics []*Logic, fab *network.Fabric) {
	t.Helper()

	ids := make([]object.ID, 3)
	for i := range ids {
		ids[i] = object.New()
	}
	fab = network.NewFabric(rt)
	logics = make([]*Logic, 3)
	nodes := make([]*network.Node, 3)
	for i := 0; i < 3; i++ {
		idx := i
		nodes[i] = network.NewNode(object.NodeIndex(idx), network.Location{}, 0, func(source object.ID, msg network.Message) {
			logics[idx].HandleMessage(source, msg)
		})
		nodes[i].ID = ids[idx]
		fab.AddNode(nodes[i])
	}
	fab.Connect(nodes[0], nodes[1], runtime.Millisecond, 0, nil)
	fab.Connect(nodes[1], nodes[2], runtime.Millisecond, 0, nil)

	for i := 0; i < 3; i++ {
		logics[i] = NewLogic(ids[i], object.NodeIndex(i), fab, rt, 3, blockSize, 50*runtime.Millisecond)
	}
	return logics, fab
}

func TestBlockPropagatesAcrossChain(t *testing.T) {
	rt := runtime.New()
	logics, _ := wireChain(t, rt, 128, 50*runtime.Millisecond)

	rt.Spawn(func(tk *runtime.Task) { logics[0].Run(tk) })
	rt.Run(func() bool { return rt.Alive() == 0 })

	require.Len(t, logics[1].knownBlocks, 1)
	require.Len(t, logics[2].knownBlocks, 1)

	var blockID object.BlockID
	for id := range logics[0].knownBlocks {
		blockID = id
	}
	b := logics[2].knownBlocks[blockID]
	require.NotNil(t, b)
	delay, ok := b.FullPropagationDelay()
	require.True(t, ok)
	require.Greater(t, int64(delay), int64(0))
}

func TestGetBlockForUnknownBlockLogsAndDoesNothing(t *testing.T) {
	rt := runtime.New()
	logics, _ := wireChain(t, rt, 128, 50*runtime.Millisecond)

	logics[1].HandleMessage(object.New(), GetBlock{BlockID: object.New()})
	require.Empty(t, logics[1].knownBlocks)
}

func TestDuplicateNotifyDoesNotSpawnSecondFetch(t *testing.T) {
	rt := runtime.New()
	logics, _ := wireChain(t, rt, 128, 50*runtime.Millisecond)

	blockID := object.New()
	peer := object.New()
	logics[1].HandleMessage(peer, NotifyNewBlock{BlockID: blockID})
	require.True(t, logics[1].requestedBlocks[blockID])

	aliveAfterFirst := rt.Alive()
	logics[1].HandleMessage(peer, NotifyNewBlock{BlockID: blockID})
	require.Equal(t, aliveAfterFirst, rt.Alive())
}
