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

// Scene construction (§4.8 "build the scene from network config"),
// grounded on network/fabric_test.go and consensus/*/node_test.go's
// wireCluster/wireChain helpers for the node+link+logic wiring
// pattern, generalized here into the one place that turns a Network +
// Protocol configuration pair into a runnable set of nodes.
package simulation

import (
	"math/big"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/ground-x/simba/consensus/gossip"
	nkconsensus "github.com/ground-x/simba/consensus/nakamoto"
	"github.com/ground-x/simba/consensus/pbft"
	"github.com/ground-x/simba/consensus/snowball"
	"github.com/ground-x/simba/ledger"
	"github.com/ground-x/simba/ledger/conventional"
	nkledger "github.com/ground-x/simba/ledger/nakamoto"
	"github.com/ground-x/simba/network"
	"github.com/ground-x/simba/object"
	"github.com/ground-x/simba/runtime"
)

// protocolHandle is the structural interface every protocol package's
// Logic type satisfies: a periodic driver loop and a message handler.
// No protocol package imports this — Go's structural typing is enough
// (Design Notes §9: "a tagged variant of message types with a
// per-variant state machine... a thin dispatcher").
type protocolHandle interface {
	Run(t *runtime.Task)
	HandleMessage(source object.ID, msg network.Message)
}

// Scene is the fully wired set of nodes, links, and protocol drivers
// for one simulation run.
type Scene struct {
	rt       *runtime.Runtime
	fab      *network.Fabric
	ids      []object.ID
	nodes    []*network.Node
	logics   []protocolHandle
	protocol Protocol

	// addTransaction dispatches a submitted transaction to the right
	// node's protocol-specific AddTransaction method.
	addTransaction func(nodeIdx int, tx *ledger.Transaction)

	// issueTimes tracks when a submitted transaction was issued, so a
	// later commit notification can compute client latency (§8
	// "Client latency law"). Entries are removed once consumed.
	issueTimes map[object.TxID]runtime.VirtualTime

	nakamotoGlobal     *nkledger.GlobalLedger
	conventionalGlobal *conventional.GlobalLedger
	acceptSem          *runtime.Semaphore // snowball only
}

// recordIssue notes the virtual time a transaction was submitted.
func (s *Scene) recordIssue(txID object.TxID, now runtime.VirtualTime) {
	s.issueTimes[txID] = now
}

// issueTimeOf returns and clears the issue time recorded for txID.
func (s *Scene) issueTimeOf(txID object.TxID) (runtime.VirtualTime, bool) {
	t, ok := s.issueTimes[txID]
	if ok {
		delete(s.issueTimes, txID)
	}
	return t, ok
}

// NumNodes reports how many nodes the scene was built with.
func (s *Scene) NumNodes() int { return len(s.ids) }

// NodeID returns node idx's network identifier.
func (s *Scene) NodeID(idx int) object.ID { return s.ids[idx] }

// NodeLocation returns node idx's network location (§6 node_location).
func (s *Scene) NodeLocation(idx int) (network.Location, error) {
	if idx < 0 || idx >= len(s.nodes) {
		return network.Location{}, errors.Errorf("scene: node index %d out of range", idx)
	}
	return s.nodes[idx].Location, nil
}

// NodeStatistics returns node idx's byte counters (§6 node_statistics).
func (s *Scene) NodeStatistics(idx int) (network.Statistics, error) {
	if idx < 0 || idx >= len(s.nodes) {
		return network.Statistics{}, errors.Errorf("scene: node index %d out of range", idx)
	}
	return s.nodes[idx].Statistics(), nil
}

// connectivityPeers computes the undirected edge list for a Random
// network's connectivity setting (§6, §8's boundary properties: Full
// gives exactly N(N-1)/2 links; Sparse gives every node at least
// minConns peers with strictly fewer than N(N-1)/2 total for large N).
func connectivityPeers(n int, net Network, rng *rand.Rand) [][2]int {
	var edges [][2]int
	switch net.Connectivity {
	case Full:
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				edges = append(edges, [2]int{i, j})
			}
		}
	case Sparse:
		seen := make(map[[2]int]bool)
		add := func(a, b int) {
			if a == b {
				return
			}
			if a > b {
				a, b = b, a
			}
			if seen[[2]int{a, b}] {
				return
			}
			seen[[2]int{a, b}] = true
			edges = append(edges, [2]int{a, b})
		}
		// Ring first, guaranteeing every node at least 2 peers, then
		// top up with random extra edges until min_conns_per_node is
		// met everywhere.
		for i := 0; i < n; i++ {
			add(i, (i+1)%n)
		}
		degree := make([]int, n)
		for _, e := range edges {
			degree[e[0]]++
			degree[e[1]]++
		}
		for {
			under := -1
			for i, d := range degree {
				if uint32(d) < net.MinConnsPerNode {
					under = i
					break
				}
			}
			if under == -1 {
				break
			}
			peer := rng.Intn(n)
			if peer == under {
				continue
			}
			a, b := under, peer
			if a > b {
				a, b = b, a
			}
			if seen[[2]int{a, b}] {
				continue
			}
			add(under, peer)
			degree[under]++
			degree[peer]++
		}
	}
	return edges
}

// BuildScene constructs a fully wired Scene from a Protocol/Network
// configuration pair (§4.8). seed is the base seed every per-node RNG
// (PoW draws, Ouroboros is deterministic, Snowball color/sample draws)
// derives from, by adding the node index, keeping the whole run
// reproducible given a fixed seed.
func BuildScene(rt *runtime.Runtime, proto Protocol, net Network, stats *Stats, bus *EventBus, seed int64) (*Scene, error) {
	var n int
	var bandwidths []uint64
	rng := rand.New(rand.NewSource(seed))

	switch net.Kind {
	case RandomNetwork:
		n = int(net.NumMining + net.NumNonMining)
		bandwidths = make([]uint64, n)
		for i := range bandwidths {
			bandwidths[i] = net.NodeBandwidthBps
		}
	case PreDefinedNetwork:
		n = len(net.Nodes)
		bandwidths = make([]uint64, n)
		for _, pn := range net.Nodes {
			if int(pn.Index) >= n {
				return nil, errors.Errorf("scene: predefined node index %d out of range", pn.Index)
			}
			bandwidths[pn.Index] = pn.BandwidthBps
		}
	default:
		return nil, errors.New("scene: unknown network kind")
	}

	if n == 0 {
		return nil, errors.New("scene: network has no nodes")
	}
	if proto.Kind == PracticalBFT && net.Connectivity != Full && net.Kind == RandomNetwork {
		return nil, errors.New("scene: pbft requires full connectivity")
	}

	fab := network.NewFabric(rt)
	fab.SetOnSend(func(source, dest object.ID, size int) {
		if stats != nil {
			stats.RecordMessage()
		}
		if bus != nil {
			bus.Publish(Event{Kind: MessageSent, LinkA: source, LinkB: dest, MessageSize: size})
		}
	})
	logics := make([]protocolHandle, n)
	ids := make([]object.ID, n)
	nodes := make([]*network.Node, n)
	for i := 0; i < n; i++ {
		idx := i
		nodes[i] = network.NewNode(object.NodeIndex(idx), network.Location{}, bandwidths[idx],
			func(source object.ID, msg network.Message) {
				logics[idx].HandleMessage(source, msg)
			})
		ids[i] = nodes[i].ID
		fab.AddNode(nodes[i])
		if bus != nil {
			bus.Publish(Event{Kind: NodeCreated, NodeIndex: object.NodeIndex(idx)})
		}
	}

	if bus != nil {
		fab.SetOnDeliver(func(dest object.ID) {
			for idx, id := range ids {
				if id == dest {
					bus.Publish(Event{Kind: NodeStatisticsUpdated, NodeIndex: object.NodeIndex(idx), NodeStats: nodes[idx].Statistics()})
					return
				}
			}
		})
	}

	connect := func(a, b *network.Node, latency runtime.Duration, bandwidthBps uint64) {
		var onActivity network.ActivityFunc
		if bus != nil {
			onActivity = func(active bool) {
				kind := LinkInactive
				if active {
					kind = LinkActive
				}
				bus.Publish(Event{Kind: kind, LinkA: a.ID, LinkB: b.ID})
			}
		}
		fab.Connect(a, b, latency, bandwidthBps, onActivity)
		if bus != nil {
			bus.Publish(Event{Kind: LinkCreated, LinkA: a.ID, LinkB: b.ID})
		}
	}

	switch net.Kind {
	case RandomNetwork:
		latency := runtime.Duration(net.LinkLatencyMillis) * runtime.Millisecond
		for _, e := range connectivityPeers(n, net, rng) {
			connect(nodes[e[0]], nodes[e[1]], latency, net.LinkBandwidthBps)
		}
	case PreDefinedNetwork:
		for _, l := range net.Links {
			if int(l.A) >= n || int(l.B) >= n {
				return nil, errors.Errorf("scene: predefined link references out-of-range node")
			}
			connect(nodes[l.A], nodes[l.B], runtime.Duration(l.LatencyMicros), l.BandwidthBps)
		}
	}

	s := &Scene{rt: rt, fab: fab, ids: ids, nodes: nodes, logics: logics, protocol: proto, issueTimes: make(map[object.TxID]runtime.VirtualTime)}

	switch proto.Kind {
	case NakamotoConsensus:
		if err := s.wireNakamoto(nodes, proto, uint32(n), seed, stats, bus); err != nil {
			return nil, err
		}
	case PracticalBFT:
		s.wirePBFT(nodes, proto, uint32(n), stats, bus)
	case GossipProtocol:
		s.wireGossip(nodes, proto, uint32(n), stats, bus)
	case SnowballProtocol:
		s.wireSnowball(nodes, proto, uint32(n), seed)
	case SpeedTest:
		// SpeedTest has no consensus state machine: nodes simply
		// accept messages handed to them by the send-speed client
		// workload (§6), so every node's logic is a no-op handler.
		for i := range logics {
			logics[i] = noopLogic{}
		}
	default:
		return nil, errors.Errorf("scene: unknown protocol kind %d", proto.Kind)
	}

	return s, nil
}

type noopLogic struct{}

func (noopLogic) Run(*runtime.Task)                         {}
func (noopLogic) HandleMessage(object.ID, network.Message) {}

func (s *Scene) wireNakamoto(nodes []*network.Node, proto Protocol, n uint32, seed int64, stats *Stats, bus *EventBus) error {
	global := nkledger.NewGlobalLedger(n)
	s.nakamotoGlobal = global

	var generator func(idx int) nkconsensus.BlockGenerator
	switch proto.BlockGeneration.Kind {
	case ProofOfWork:
		adj := nkconsensus.PeriodBased
		if proto.BlockGeneration.Adjustment == EthereumHomestead {
			adj = nkconsensus.EthereumHomestead
		}
		initial := new(big.Int).SetUint64(proto.BlockGeneration.InitialDifficulty)
		interval := runtime.Duration(proto.BlockGeneration.TargetBlockIntervalSeconds) * runtime.Second
		generator = func(idx int) nkconsensus.BlockGenerator {
			return nkconsensus.NewProofOfWork(seed+int64(idx)+7919, interval, adj, proto.BlockGeneration.WindowSize, initial)
		}
	case Ouroboros:
		slot := runtime.Duration(proto.BlockGeneration.SlotLengthMillis) * runtime.Millisecond
		generator = func(idx int) nkconsensus.BlockGenerator {
			return nkconsensus.NewOuroboros(n, slot)
		}
	default:
		return errors.New("scene: unknown nakamoto block generation kind")
	}

	for i := 0; i < int(n); i++ {
		local := nkledger.NewNodeLedger(proto.CommitDelay, seed+int64(i)+1)
		if stats != nil {
			local.SetNotifyCommitFunc(func(account object.AccountID, tx object.TxID) {
				if issued, ok := s.issueTimeOf(tx); ok {
					stats.RecordCommit(s.rt.Now().Sub(issued))
				}
			})
		}
		logic := nkconsensus.NewLogic(nodes[i].ID, object.NodeIndex(i), s.fab, s.rt,
			local, global, generator(i), proto.MaxBlockSize, proto.CommitDelay, proto.UseGHOST, n)
		if stats != nil || bus != nil {
			logic.SetOnBlockMined(func(b *nkledger.Block) {
				if stats != nil {
					stats.RecordBlockMined(b.Size())
				}
				if bus != nil {
					bus.Publish(Event{Kind: BlockCreated, BlockID: b.ID})
				}
			})
		}
		if stats != nil {
			if i == 0 {
				var lastAccept runtime.VirtualTime
				logic.SetOnHeadChanged(func(newHead *nkledger.Block) {
					stats.RecordBlockAccepted(newHead.CreationTime.Sub(lastAccept), newHead.Height)
					lastAccept = newHead.CreationTime
				})
			}
		}
		s.logics[i] = logic
	}
	s.addTransaction = func(nodeIdx int, tx *ledger.Transaction) {
		s.logics[nodeIdx].(*nkconsensus.Logic).AddTransaction(tx, object.ID{})
	}
	return nil
}

func (s *Scene) wirePBFT(nodes []*network.Node, proto Protocol, n uint32, stats *Stats, bus *EventBus) {
	global := conventional.NewGlobalLedger()
	s.conventionalGlobal = global
	quorum, _ := pbft.Quorum(n)
	interval := runtime.Duration(proto.MaxBlockIntervalMillis) * runtime.Millisecond

	var lastFinalize runtime.VirtualTime
	for i := 0; i < int(n); i++ {
		local := conventional.NewNodeLedger()
		logic := pbft.NewLogic(nodes[i].ID, object.NodeIndex(i), s.fab, s.rt, local, global,
			proto.MaxBlockSize, quorum, interval)
		if (stats != nil || bus != nil) && i == 0 {
			logic.SetOnFinalize(func(b *conventional.Block) {
				if stats != nil {
					stats.RecordBlockMined(b.Size())
					stats.RecordBlockAccepted(b.CreationTime.Sub(lastFinalize), b.Slot)
					lastFinalize = b.CreationTime
					for _, tx := range b.Transactions {
						if issued, ok := s.issueTimeOf(tx.ID); ok {
							stats.RecordCommit(s.rt.Now().Sub(issued))
						}
					}
				}
				if bus != nil {
					bus.Publish(Event{Kind: BlockCreated, BlockID: b.ID})
				}
			})
		}
		s.logics[i] = logic
	}
	s.addTransaction = func(nodeIdx int, tx *ledger.Transaction) {
		s.logics[nodeIdx].(*pbft.Logic).AddTransaction(tx, object.ID{})
	}
}

func (s *Scene) wireGossip(nodes []*network.Node, proto Protocol, n uint32, stats *Stats, bus *EventBus) {
	retry := runtime.Duration(proto.RetryDelayMillis) * runtime.Millisecond
	for i := 0; i < int(n); i++ {
		logic := gossip.NewLogic(nodes[i].ID, object.NodeIndex(i), s.fab, s.rt, n, proto.BlockSizeBytes, retry)
		if (stats != nil || bus != nil) && i == 0 {
			logic.SetOnBlockSeen(func(b *gossip.Block) {
				if stats != nil {
					stats.RecordBlockMined(b.Size())
					if d, ok := b.FullPropagationDelay(); ok {
						stats.RecordPropagation(d)
					}
				}
				if bus != nil {
					bus.Publish(Event{Kind: BlockCreated, BlockID: b.ID})
				}
			})
		}
		s.logics[i] = logic
	}
}

func (s *Scene) wireSnowball(nodes []*network.Node, proto Protocol, n uint32, seed int64) {
	sampleSize, queryThreshold := snowball.Params(n, proto.SampleSizeWeighted, proto.QueryThresholdWeighted)
	sem := runtime.NewSemaphore(s.rt, 0)
	s.acceptSem = sem
	for i := 0; i < int(n); i++ {
		s.logics[i] = snowball.NewLogic(nodes[i].ID, object.NodeIndex(i), s.fab, s.rt,
			seed+int64(i)+1, proto.AcceptanceThreshold, sampleSize, queryThreshold, sem)
	}
}

// Spawn runs every node's protocol driver loop as a cooperative task.
func (s *Scene) Spawn() {
	for _, l := range s.logics {
		logic := l
		s.rt.Spawn(func(t *runtime.Task) { logic.Run(t) })
	}
}

// SubmitTransaction hands tx to node idx's mempool, recording its
// issue time for later latency reporting. It returns false if the
// wired protocol has no notion of transactions (Gossip, Snowball,
// SpeedTest).
func (s *Scene) SubmitTransaction(idx int, tx *ledger.Transaction, now runtime.VirtualTime) bool {
	if s.addTransaction == nil {
		return false
	}
	s.recordIssue(tx.ID, now)
	s.addTransaction(idx, tx)
	return true
}

// AwaitSnowballDecision blocks the calling task until every node has
// decided (§4.7's acquire_many(N)); it is a no-op for any protocol
// other than Snowball.
func (s *Scene) AwaitSnowballDecision(t *runtime.Task) {
	if s.acceptSem == nil {
		return
	}
	s.acceptSem.AcquireMany(t, s.NumNodes())
}
