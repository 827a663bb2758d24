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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ground-x/simba/ledger"
	chain "github.com/ground-x/simba/ledger/nakamoto"
	"github.com/ground-x/simba/network"
	"github.com/ground-x/simba/object"
	"github.com/ground-x/simba/runtime"
)

// wireTwoNodes builds a two-node fabric and two Logic instances, each
// electing the next block's creator via its own Ouroboros generator:
// every node runs an identical height-mod-numNodes leader schedule.
func wireTwoNodes(t *testing.T, rt *runtime.Runtime, commitDelay uint64) (a, b *Logic, idA, idB object.ID, fab *network.Fabric, global *chain.GlobalLedger) {
	t.Helper()

	idA, idB = object.New(), object.New()
	fab = network.NewFabric(rt)
	global = chain.NewGlobalLedger(2)

	var logicA, logicB *Logic

	nodeA := network.NewNode(0, network.Location{}, 0, func(source object.ID, msg network.Message) {
		logicA.HandleMessage(source, msg)
	})
	nodeB := network.NewNode(1, network.Location{}, 0, func(source object.ID, msg network.Message) {
		logicB.HandleMessage(source, msg)
	})
	nodeA.ID = idA
	nodeB.ID = idB
	fab.AddNode(nodeA)
	fab.AddNode(nodeB)
	fab.Connect(nodeA, nodeB, runtime.Millisecond, 0, nil)

	genA := NewOuroboros(2, 10*runtime.Millisecond)
	genB := NewOuroboros(2, 10*runtime.Millisecond)

	logicA = NewLogic(idA, 0, fab, rt, chain.NewNodeLedger(commitDelay, 1), global, genA, 10, commitDelay, false, 2)
	logicB = NewLogic(idB, 1, fab, rt, chain.NewNodeLedger(commitDelay, 2), global, genB, 10, commitDelay, false, 2)

	return logicA, logicB, idA, idB, fab, global
}

// fakeBlock is the minimal BlockTimeInfo needed to advance an
// Ouroboros generator's notion of the chain head in tests.
type fakeBlock struct{ height uint64 }

func (f fakeBlock) BlockHeight() uint64                   { return f.height }
func (f fakeBlock) BlockCreationTime() runtime.VirtualTime { return 0 }
func (f fakeBlock) BlockDifficulty() *big.Int              { return big.NewInt(0) }

func TestOuroborosElectsByNextHeightModNumNodes(t *testing.T) {
	// Each node owns its own generator instance, always called with its
	// own fixed index; every copy is fed the same sequence of chain
	// heads, so the leader schedule emerges identically everywhere.
	gens := []BlockGenerator{
		NewOuroboros(3, runtime.Millisecond),
		NewOuroboros(3, runtime.Millisecond),
		NewOuroboros(3, runtime.Millisecond),
	}

	check := func() []bool {
		var created []bool
		for idx, g := range gens {
			created = append(created, g.ShouldCreateBlock(object.NodeIndex(idx)))
		}
		return created
	}
	advance := func(height uint64) {
		for _, g := range gens {
			g.UpdateChainHead(fakeBlock{height: height}, nil)
		}
	}

	// No head yet: height 0 is about to be created, elects node 0.
	require.Equal(t, []bool{true, false, false}, check())

	advance(0)
	require.Equal(t, []bool{false, true, false}, check())

	advance(1)
	require.Equal(t, []bool{false, false, true}, check())

	advance(2)
	require.Equal(t, []bool{true, false, false}, check())
}

func TestGenerateBlockPropagatesToPeer(t *testing.T) {
	rt := runtime.New()
	a, b, idA, _, fab, global := wireTwoNodes(t, rt, 100)
	_ = fab

	a.GenerateBlock(rt.Now())
	rt.Run(func() bool { return rt.Alive() == 0 })

	head, height := a.local.LongestChain()
	require.EqualValues(t, 1, height)

	_, peerHeight := b.local.LongestChain()
	require.EqualValues(t, 1, peerHeight)

	minedBlock, ok := global.Block(head)
	require.True(t, ok)
	require.Equal(t, idA, minedBlock.Miner)
}

func TestAddTransactionBroadcastsToPeer(t *testing.T) {
	rt := runtime.New()
	a, b, _, _, _, _ := wireTwoNodes(t, rt, 100)

	tx := ledger.NewTransaction(object.New(), 0)
	a.AddTransaction(tx, object.ID{})
	rt.Run(func() bool { return rt.Alive() == 0 })

	require.True(t, b.local.KnowsTransaction(tx.ID))
}

func TestHomesteadRetargetIncreasesWhenBlocksArriveTooFast(t *testing.T) {
	parent := big.NewInt(1_000_000)
	// Block arrived much faster than the 14s target: difficulty rises.
	result := homesteadRetarget(parent, 1, 14)
	require.Equal(t, 1, result.Cmp(parent))
}

func TestHomesteadRetargetDecreasesWhenBlocksArriveTooSlow(t *testing.T) {
	parent := big.NewInt(1_000_000)
	result := homesteadRetarget(parent, 200, 14)
	require.Equal(t, -1, result.Cmp(parent))
}
