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

// Package simulation is L5: scene construction from configuration,
// the driver state machine that pumps the virtual clock, the event
// bus, the operation request/response surface, and statistics
// collection. It composes every lower layer (runtime, network, ledger,
// consensus) behind the Simulation façade (§4.8, §6).
//
// Grounded on node/service.go and cmd/utils/flags.go for the general
// shape of "a long-lived driver object built from a config struct and
// driven by a CLI collaborator"; the state machine and thread-boundary
// discipline are ported from simba/src/driver.rs and simba/src/state.rs.
package simulation

// NakamotoBlockGenerationKind discriminates the two ways a Nakamoto
// node decides it is allowed to mine (§6).
type NakamotoBlockGenerationKind int

const (
	ProofOfWork NakamotoBlockGenerationKind = iota
	Ouroboros
)

// DifficultyAdjustmentKind mirrors consensus/nakamoto's
// DifficultyAdjustment, kept as a separate config-layer enum so the
// protocol package never has to parse configuration.
type DifficultyAdjustmentKind int

const (
	PeriodBased DifficultyAdjustmentKind = iota
	EthereumHomestead
)

// NakamotoBlockGeneration is the tagged choice of how a Nakamoto
// protocol config elects block creators.
type NakamotoBlockGeneration struct {
	Kind NakamotoBlockGenerationKind

	// ProofOfWork fields.
	TargetBlockIntervalSeconds int64
	InitialDifficulty          uint64
	Adjustment                 DifficultyAdjustmentKind
	WindowSize                 uint64

	// Ouroboros fields.
	SlotLengthMillis  int64
	EpochLengthSlots  uint64
}

// ProtocolKind discriminates the five protocol families §6 names.
type ProtocolKind int

const (
	NakamotoConsensus ProtocolKind = iota
	PracticalBFT
	SpeedTest
	GossipProtocol
	SnowballProtocol
)

func (k ProtocolKind) String() string {
	switch k {
	case NakamotoConsensus:
		return "nakamoto"
	case PracticalBFT:
		return "pbft"
	case SpeedTest:
		return "speed-test"
	case GossipProtocol:
		return "gossip"
	case SnowballProtocol:
		return "snowball"
	default:
		return "unknown"
	}
}

// Protocol is the tagged-union configuration for one protocol variant,
// matching §6's Protocol description. Only the fields relevant to Kind
// are meaningful; this mirrors the Rust original's enum-with-payload
// shape the way blockchain/types' tx_internal_data_* family mirrors a
// discriminated transaction type in Go (one struct, a kind tag, unused
// fields for other variants).
type Protocol struct {
	Name string
	Kind ProtocolKind

	// NakamotoConsensus fields.
	BlockGeneration NakamotoBlockGeneration
	UseGHOST        bool
	MaxBlockSize    int
	CommitDelay     uint64

	// PracticalBFT fields.
	MaxBlockIntervalMillis int64

	// SpeedTest fields.
	SendSpeedMbps float64

	// GossipProtocol fields.
	RetryDelayMillis int64
	BlockSizeBytes   int

	// SnowballProtocol fields.
	AcceptanceThreshold    uint32
	SampleSizeWeighted     float64
	QueryThresholdWeighted float64
}

// ConnectivityKind discriminates §6's Network.connectivity variants.
type ConnectivityKind int

const (
	Full ConnectivityKind = iota
	Sparse
)

// NetworkKind discriminates §6's Network tagged choice.
type NetworkKind int

const (
	RandomNetwork NetworkKind = iota
	PreDefinedNetwork
)

// PreDefinedNode is one entry of a PreDefined network's node list.
type PreDefinedNode struct {
	Index        uint32
	BandwidthBps uint64
}

// PreDefinedLink is one entry of a PreDefined network's link list.
type PreDefinedLink struct {
	A, B         uint32
	LatencyMicros int64
	BandwidthBps  uint64
}

// Network is the tagged-union network configuration of §6.
type Network struct {
	Name string
	Kind NetworkKind

	// RandomNetwork fields.
	NumMining       uint32
	NumNonMining    uint32
	LinkLatencyMillis int64
	LinkBandwidthBps  uint64 // 0 means unlimited (the "?" in §6)
	NodeBandwidthBps  uint64
	Connectivity      ConnectivityKind
	MinConnsPerNode   uint32 // only meaningful for Sparse

	// PreDefinedNetwork fields.
	Nodes []PreDefinedNode
	Links []PreDefinedLink
}

// TimeoutKind discriminates §6's Timeout tagged choice.
type TimeoutKind int

const (
	TimeoutSeconds TimeoutKind = iota
	TimeoutBlocks
)

// Timeout bounds how long a simulation run lasts, with an initial
// warmup window during which statistics are collected but then reset
// (§6).
type Timeout struct {
	Kind    TimeoutKind
	Warmup  uint64
	Runtime uint64
}

// IntervalKind discriminates §6's Interval tagged choice used by an
// Experiment's parameter sweep.
type IntervalKind int

const (
	LinearInt IntervalKind = iota
	LinearFloat
)

// Interval describes one swept parameter's range, stepped
// mixed-radix across an Experiment's data_ranges in declaration order
// (§6).
type Interval struct {
	Kind               IntervalKind
	StartInt, EndInt   int64
	StartFloat, EndFloat float64
	StepSize           float64
}

// DataRange pairs a named parameter with the interval it sweeps over.
type DataRange struct {
	Param    string
	Interval Interval
}

// ChainMetricKind names one of the values ChainMetrics can report
// (§6), used by Experiment.Metrics and the NetworkMetric operation.
type ChainMetricKind int

const (
	MetricTotalBlocksMined ChainMetricKind = iota
	MetricTotalBlocksAccepted
	MetricLongestChainLength
	MetricAvgBlockIntervalSeconds
	MetricNumTransactions
	MetricAvgLatencyMillis
	MetricAvgBlockPropagationMillis
	MetricElapsed
	MetricAvgBlockSizeBytes
	MetricNumNetworkMessages
	MetricThroughput
	MetricWinRate
	MetricOrphanRate
)

// Experiment is a parameter-sweep configuration (§6): it names a
// protocol/network pair, a timeout, an optional failure count, the
// parameters to sweep, and the metrics to collect at each step.
type Experiment struct {
	ProtocolName string
	NetworkName  string
	Timeout      Timeout
	Failures     uint32
	DataRanges   []DataRange
	Metrics      []ChainMetricKind
}

// ConstraintKind discriminates §6's Test.asserts constraint variants.
type ConstraintKind int

const (
	InRange ConstraintKind = iota
	GreaterThan
)

// Constraint is one assertion a Test makes against a reported metric.
type Constraint struct {
	Kind     ConstraintKind
	Min, Max float64
}

// Assert pairs a metric with the constraint it must satisfy.
type Assert struct {
	Metric     ChainMetricKind
	Constraint Constraint
}

// Test is a pass/fail configuration (§6): run protocol/network to
// Timeout then check every Assert against the collected ChainMetrics.
type Test struct {
	ProtocolName string
	NetworkName  string
	Timeout      Timeout
	Asserts      []Assert
}
