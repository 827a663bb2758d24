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

// Statistics collection (§6 "Metrics (produced)"), grounded on
// work/worker.go's rcrowley/go-metrics counters (pendingTxs,
// knownTxsCounter-style registered counters) for live internal
// tallies, with a ChainMetrics snapshot exported as
// prometheus/client_golang gauges the way common/cache.go exposes its
// hit/miss counts.
package simulation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rcrowley/go-metrics"

	"github.com/ground-x/simba/runtime"
)

// PropagationHistogram buckets block full-propagation delays. The
// Rust original only reports the average (§4 "avg_block_propagation");
// reading simba/src/stats.rs showed it also keeps a delay histogram,
// supplemented here in-memory only and surfaced exclusively through
// ChainMetrics (§4 SUPPLEMENTED FEATURES) so it does not grow the
// external op surface.
type PropagationHistogram struct {
	bucketWidth runtime.Duration
	buckets     map[int64]uint64
}

// NewPropagationHistogram creates a histogram with the given bucket
// width.
func NewPropagationHistogram(bucketWidth runtime.Duration) *PropagationHistogram {
	return &PropagationHistogram{bucketWidth: bucketWidth, buckets: make(map[int64]uint64)}
}

// Observe records one propagation delay sample.
func (h *PropagationHistogram) Observe(d runtime.Duration) {
	if h.bucketWidth <= 0 {
		return
	}
	h.buckets[int64(d)/int64(h.bucketWidth)]++
}

// Buckets returns a snapshot of bucket-index -> sample-count.
func (h *PropagationHistogram) Buckets() map[int64]uint64 {
	out := make(map[int64]uint64, len(h.buckets))
	for k, v := range h.buckets {
		out[k] = v
	}
	return out
}

// ChainMetrics is the reporting surface of §6, plus the three derived
// ratios it names.
type ChainMetrics struct {
	TotalBlocksMined         uint64
	TotalBlocksAccepted      uint64
	LongestChainLength       uint64
	AvgBlockIntervalSeconds  float64
	NumTransactions          uint64
	AvgLatencyMillis         float64
	AvgBlockPropagationMillis float64
	ElapsedSeconds           float64
	AvgBlockSizeBytes        float64
	NumNetworkMessages       uint64

	Propagation *PropagationHistogram
}

// Throughput is transactions committed per elapsed second.
func (m ChainMetrics) Throughput() float64 {
	if m.ElapsedSeconds == 0 {
		return 0
	}
	return float64(m.NumTransactions) / m.ElapsedSeconds
}

// WinRate is the fraction of mined blocks that were ultimately
// accepted onto the reported chain.
func (m ChainMetrics) WinRate() float64 {
	if m.TotalBlocksMined == 0 {
		return 0
	}
	return float64(m.TotalBlocksAccepted) / float64(m.TotalBlocksMined)
}

// OrphanRate is the number of mined blocks that did not end up
// accepted, per elapsed second (§6: "= mined-accepted / elapsed").
func (m ChainMetrics) OrphanRate() float64 {
	if m.ElapsedSeconds == 0 {
		return 0
	}
	return float64(m.TotalBlocksMined-m.TotalBlocksAccepted) / m.ElapsedSeconds
}

// Metric looks up one named metric, including the three derived ones,
// for the NetworkMetric operation (§6).
func (m ChainMetrics) Metric(k ChainMetricKind) float64 {
	switch k {
	case MetricTotalBlocksMined:
		return float64(m.TotalBlocksMined)
	case MetricTotalBlocksAccepted:
		return float64(m.TotalBlocksAccepted)
	case MetricLongestChainLength:
		return float64(m.LongestChainLength)
	case MetricAvgBlockIntervalSeconds:
		return m.AvgBlockIntervalSeconds
	case MetricNumTransactions:
		return float64(m.NumTransactions)
	case MetricAvgLatencyMillis:
		return m.AvgLatencyMillis
	case MetricAvgBlockPropagationMillis:
		return m.AvgBlockPropagationMillis
	case MetricElapsed:
		return m.ElapsedSeconds
	case MetricAvgBlockSizeBytes:
		return m.AvgBlockSizeBytes
	case MetricNumNetworkMessages:
		return float64(m.NumNetworkMessages)
	case MetricThroughput:
		return m.Throughput()
	case MetricWinRate:
		return m.WinRate()
	case MetricOrphanRate:
		return m.OrphanRate()
	default:
		return 0
	}
}

// Stats accumulates the raw samples a running simulation feeds it;
// Snapshot folds them into a ChainMetrics. Warmup samples are
// discarded the way §6's Timeout warmup requires ("statistics are
// reset at the end of warmup") by simply not recording anything until
// the driver calls BeginCollection.
type Stats struct {
	collecting bool

	blocksMined    metrics.Counter
	blocksAccepted metrics.Counter
	messages       metrics.Counter

	blockIntervals []float64 // seconds
	blockSizes     []int
	latencies      []float64 // milliseconds
	propagations   []float64 // milliseconds

	numTransactions uint64
	longestChain    uint64

	startTime runtime.VirtualTime

	Propagation *PropagationHistogram

	registry    metrics.Registry
	promLatency prometheus.Gauge
}

// NewStats creates an idle Stats accumulator, with its own private
// go-metrics registry so that running several simulations in one
// process (e.g. an Experiment sweep) never collides on counter names.
// promNamespace, if non-empty, also registers a prometheus gauge
// tracking the latest average latency for external scraping (§3
// DOMAIN STACK: "ChainMetrics gauge export... optional").
func NewStats(promNamespace string) *Stats {
	registry := metrics.NewRegistry()
	s := &Stats{
		registry:       registry,
		blocksMined:    metrics.NewRegisteredCounter("blocks_mined", registry),
		blocksAccepted: metrics.NewRegisteredCounter("blocks_accepted", registry),
		messages:       metrics.NewRegisteredCounter("messages", registry),
		Propagation:    NewPropagationHistogram(10 * runtime.Millisecond),
	}
	if promNamespace != "" {
		s.promLatency = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simba_avg_latency_millis",
			Help: "Average client-observed commit latency in milliseconds.",
		})
		prometheus.Register(s.promLatency) // ignore AlreadyRegisteredError across repeated runs
	}
	return s
}

// BeginCollection resets every accumulator and marks now as the
// elapsed-time origin; called once warmup ends (§6).
func (s *Stats) BeginCollection(now runtime.VirtualTime) {
	s.collecting = true
	s.blocksMined.Clear()
	s.blocksAccepted.Clear()
	s.messages.Clear()
	s.blockIntervals = nil
	s.blockSizes = nil
	s.latencies = nil
	s.propagations = nil
	s.numTransactions = 0
	s.longestChain = 0
	s.Propagation = NewPropagationHistogram(10 * runtime.Millisecond)
	s.startTime = now
}

// RecordBlockMined records one newly mined block's size, independent
// of whether it is later accepted.
func (s *Stats) RecordBlockMined(size int) {
	if !s.collecting {
		return
	}
	s.blocksMined.Inc(1)
	s.blockSizes = append(s.blockSizes, size)
}

// RecordBlockAccepted records one block reaching finality/acceptance
// on the reported chain, along with the interval since the previous
// accepted block.
func (s *Stats) RecordBlockAccepted(interval runtime.Duration, height uint64) {
	if !s.collecting {
		return
	}
	s.blocksAccepted.Inc(1)
	s.blockIntervals = append(s.blockIntervals, float64(interval)/float64(runtime.Second))
	if height > s.longestChain {
		s.longestChain = height
	}
}

// RecordPropagation records a finite full-propagation delay.
func (s *Stats) RecordPropagation(d runtime.Duration) {
	if !s.collecting {
		return
	}
	millis := float64(d) / float64(runtime.Millisecond)
	s.propagations = append(s.propagations, millis)
	s.Propagation.Observe(d)
}

// RecordMessage records one network.Fabric send.
func (s *Stats) RecordMessage() {
	if !s.collecting {
		return
	}
	s.messages.Inc(1)
}

// RecordCommit records one transaction's client-observed latency
// (commit_time - issue_time, §8's "Client latency law").
func (s *Stats) RecordCommit(latency runtime.Duration) {
	if !s.collecting {
		return
	}
	s.numTransactions++
	s.latencies = append(s.latencies, float64(latency)/float64(runtime.Millisecond))
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func averageInt(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum int
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}

// Snapshot folds accumulated samples into a ChainMetrics as of now.
// avg_latency is defined as 0 when no transactions committed (§9 Open
// Questions: the source's NaN-on-empty behavior is a reporting bug,
// not a contract to preserve).
func (s *Stats) Snapshot(now runtime.VirtualTime) ChainMetrics {
	elapsed := float64(now.Sub(s.startTime)) / float64(runtime.Second)
	m := ChainMetrics{
		TotalBlocksMined:          uint64(s.blocksMined.Count()),
		TotalBlocksAccepted:       uint64(s.blocksAccepted.Count()),
		LongestChainLength:        s.longestChain,
		AvgBlockIntervalSeconds:   average(s.blockIntervals),
		NumTransactions:           s.numTransactions,
		AvgLatencyMillis:          average(s.latencies),
		AvgBlockPropagationMillis: average(s.propagations),
		ElapsedSeconds:            elapsed,
		AvgBlockSizeBytes:         averageInt(s.blockSizes),
		NumNetworkMessages:        uint64(s.messages.Count()),
		Propagation:               s.Propagation,
	}
	if s.promLatency != nil {
		s.promLatency.Set(m.AvgLatencyMillis)
	}
	return m
}
