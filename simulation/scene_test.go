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

package simulation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ground-x/simba/ledger"
	"github.com/ground-x/simba/object"
	"github.com/ground-x/simba/runtime"
)

func smallFullNetwork(n uint32) Network {
	return Network{
		Kind:              RandomNetwork,
		NumMining:         n,
		LinkLatencyMillis: 10,
		NodeBandwidthBps:  1_000_000,
		Connectivity:      Full,
	}
}

func TestConnectivityPeersFullIsComplete(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	edges := connectivityPeers(5, Network{Connectivity: Full}, rng)
	require.Len(t, edges, 5*4/2)
}

func TestConnectivityPeersSparseMeetsMinDegree(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 30
	net := Network{Connectivity: Sparse, MinConnsPerNode: 6}
	edges := connectivityPeers(n, net, rng)

	degree := make([]int, n)
	for _, e := range edges {
		degree[e[0]]++
		degree[e[1]]++
	}
	for i, d := range degree {
		require.GreaterOrEqualf(t, d, 6, "node %d under-connected", i)
	}
	require.Less(t, len(edges), n*(n-1)/2)
}

func TestBuildScenePBFTRequiresFullConnectivity(t *testing.T) {
	rt := runtime.New()
	net := Network{Kind: RandomNetwork, NumMining: 4, NodeBandwidthBps: 1000, Connectivity: Sparse, MinConnsPerNode: 2}
	proto := Protocol{Kind: PracticalBFT, MaxBlockIntervalMillis: 500, MaxBlockSize: 4096}

	_, err := BuildScene(rt, proto, net, nil, nil, 1)
	require.Error(t, err)
}

func TestBuildSceneNakamotoMinesAndPropagates(t *testing.T) {
	rt := runtime.New()
	net := smallFullNetwork(4)
	proto := Protocol{
		Kind: NakamotoConsensus,
		BlockGeneration: NakamotoBlockGeneration{
			Kind:                       ProofOfWork,
			TargetBlockIntervalSeconds: 1,
			InitialDifficulty:          8,
			WindowSize:                 5,
		},
		MaxBlockSize: 4096,
		CommitDelay:  1,
	}
	stats := NewStats("")
	stats.BeginCollection(0)

	scene, err := BuildScene(rt, proto, net, stats, nil, 42)
	require.NoError(t, err)
	require.Equal(t, 4, scene.NumNodes())

	scene.Spawn()
	rt.Run(func() bool { return stats.blocksAccepted.Count() >= 3 })

	m := stats.Snapshot(rt.Now())
	require.GreaterOrEqual(t, m.TotalBlocksMined, uint64(3))
	require.GreaterOrEqual(t, m.TotalBlocksAccepted, uint64(3))
}

func TestSceneSubmitTransactionRecordsLatency(t *testing.T) {
	rt := runtime.New()
	net := smallFullNetwork(3)
	proto := Protocol{
		Kind: NakamotoConsensus,
		BlockGeneration: NakamotoBlockGeneration{
			Kind:                       ProofOfWork,
			TargetBlockIntervalSeconds: 1,
			InitialDifficulty:          4,
			WindowSize:                 5,
		},
		MaxBlockSize: 4096,
		CommitDelay:  1,
	}
	stats := NewStats("")
	stats.BeginCollection(0)

	scene, err := BuildScene(rt, proto, net, stats, nil, 5)
	require.NoError(t, err)
	scene.Spawn()

	tx := ledger.NewTransaction(object.New(), 0)
	ok := scene.SubmitTransaction(0, tx, rt.Now())
	require.True(t, ok)

	rt.Run(func() bool { return stats.numTransactions > 0 })

	m := stats.Snapshot(rt.Now())
	require.EqualValues(t, 1, m.NumTransactions)
}

func TestSceneNodeLocationAndStatisticsRangeChecked(t *testing.T) {
	rt := runtime.New()
	net := smallFullNetwork(3)
	proto := Protocol{Kind: GossipProtocol, RetryDelayMillis: 20, BlockSizeBytes: 64}
	scene, err := BuildScene(rt, proto, net, nil, nil, 13)
	require.NoError(t, err)

	_, err = scene.NodeLocation(0)
	require.NoError(t, err)
	_, err = scene.NodeStatistics(0)
	require.NoError(t, err)

	_, err = scene.NodeLocation(99)
	require.Error(t, err)
	_, err = scene.NodeStatistics(-1)
	require.Error(t, err)
}

func TestBuildSceneEmitsNodeCreatedAndLinkEvents(t *testing.T) {
	rt := runtime.New()
	net := smallFullNetwork(3)
	proto := Protocol{Kind: GossipProtocol, RetryDelayMillis: 20, BlockSizeBytes: 64}

	bus := NewEventBus()
	bus.Enable()
	var nodeCreated, linkCreated int
	bus.On(NodeCreated, func(Event) { nodeCreated++ })
	bus.On(LinkCreated, func(Event) { linkCreated++ })

	scene, err := BuildScene(rt, proto, net, nil, bus, 14)
	require.NoError(t, err)
	require.Equal(t, 3, scene.NumNodes())
	require.Equal(t, 3, nodeCreated)
	require.Equal(t, 3*2/2, linkCreated) // Full connectivity over 3 nodes
}

func TestBuildSceneEmitsMessageSentAndNodeStatisticsUpdated(t *testing.T) {
	rt := runtime.New()
	net := smallFullNetwork(3)
	proto := Protocol{Kind: GossipProtocol, RetryDelayMillis: 20, BlockSizeBytes: 64}

	bus := NewEventBus()
	bus.Enable()
	var sawMessageSent, sawStatsUpdated bool
	bus.On(MessageSent, func(Event) { sawMessageSent = true })
	bus.On(NodeStatisticsUpdated, func(Event) { sawStatsUpdated = true })

	scene, err := BuildScene(rt, proto, net, nil, bus, 15)
	require.NoError(t, err)
	scene.Spawn()

	rt.Run(func() bool { return sawMessageSent && sawStatsUpdated })
	require.True(t, sawMessageSent)
	require.True(t, sawStatsUpdated)
}

func TestSceneSubmitTransactionFalseForGossip(t *testing.T) {
	rt := runtime.New()
	net := smallFullNetwork(3)
	proto := Protocol{Kind: GossipProtocol, RetryDelayMillis: 50, BlockSizeBytes: 128}

	scene, err := BuildScene(rt, proto, net, nil, nil, 9)
	require.NoError(t, err)

	ok := scene.SubmitTransaction(0, &ledger.Transaction{}, rt.Now())
	require.False(t, ok)
}
