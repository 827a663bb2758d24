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

// Simulation is the façade §1/§6 describe: the one type external
// collaborators (the CLI, the visualizer, the experiment-sweep
// harness) are allowed to touch. Everything else in this package is
// reached only through it.
//
// Grounded on node/service.go's Service/Node split (a façade object
// built from config, handed collaborators via typed accessors) and
// cmd/utils/flags.go's "thin CLI wraps a long-lived object" shape.
package simulation

import (
	"github.com/pkg/errors"

	"github.com/ground-x/simba/ledger"
	"github.com/ground-x/simba/network"
	"github.com/ground-x/simba/object"
	"github.com/ground-x/simba/runtime"
)

// Simulation is the single entry point §6's CLI surface describes:
// Simulation::new(protocol, network, failures, stats_file?), optional
// callback installation, SetTimeout, start(), wait_for_stop().
type Simulation struct {
	protocol Protocol
	network  Network
	failures uint32

	rt     *runtime.Runtime
	scene  *Scene
	stats  *Stats
	bus    *EventBus
	driver *Driver
}

// New builds a Simulation from a named protocol/network pair resolved
// through lib (§6). failures is the count of nodes the caller wants
// treated as faulty abstainers (§1 Non-goals: faulty nodes merely
// abstain, no Byzantine behavior is modeled) — this core does not yet
// wire fault injection into any protocol package, so failures is
// recorded for callers and reporting only.
func New(lib Library, protocolName, networkName string, failures uint32) (*Simulation, error) {
	proto, err := lib.Protocol(protocolName)
	if err != nil {
		return nil, errors.Wrap(err, "simulation: resolve protocol")
	}
	net, err := lib.Network(networkName)
	if err != nil {
		return nil, errors.Wrap(err, "simulation: resolve network")
	}

	rt := runtime.New()
	stats := NewStats("simba")
	bus := NewEventBus()
	scene, err := BuildScene(rt, proto, net, stats, bus, 1)
	if err != nil {
		return nil, errors.Wrap(err, "simulation: build scene")
	}

	return &Simulation{
		protocol: proto,
		network:  net,
		failures: failures,
		rt:       rt,
		scene:    scene,
		stats:    stats,
		bus:      bus,
	}, nil
}

// EnableEvents opts the event bus in (§6, disabled by default).
func (s *Simulation) EnableEvents() { s.bus.Enable() }

// On installs the callback for one event kind (§6, §9).
func (s *Simulation) On(kind EventKind, h EventHandler) { s.bus.On(kind, h) }

// SetTimeout installs the run's timeout/warmup window; must be called
// before Start (§6, §4.8).
func (s *Simulation) SetTimeout(t Timeout) {
	s.driver = NewDriver(s.scene, s.stats, s.bus, t, 1000)
}

// Start transitions the driver SettingUp -> Starting -> Running and
// begins pumping the virtual clock (§4.8). SetTimeout must have been
// called first.
func (s *Simulation) Start() error {
	if s.driver == nil {
		return errors.New("simulation: SetTimeout must be called before Start")
	}
	return s.driver.Start()
}

// WaitForStop blocks until the run reaches Stopped (§6).
func (s *Simulation) WaitForStop() {
	s.driver.WaitForStop()
}

// Destroy tears the simulation down (§4.8's Stopped -> Destroyed).
func (s *Simulation) Destroy() {
	s.driver.Destroy()
}

// State reports the driver's current lifecycle state.
func (s *Simulation) State() State {
	if s.driver == nil {
		return SettingUp
	}
	return s.driver.State()
}

// SetRateLimit adjusts the wall-clock rate limit in per-mille (§5); 0
// pauses the simulation without tearing it down.
func (s *Simulation) SetRateLimit(perMille uint32) {
	s.driver.SetRateLimit(perMille)
}

// CurrentTime is the CurrentTime operation of §6.
func (s *Simulation) CurrentTime() (runtime.VirtualTime, error) {
	v, err := s.driver.request(opRequest{kind: opCurrentTime})
	if err != nil {
		return 0, err
	}
	return v.(runtime.VirtualTime), nil
}

// NodeIdentifier is the NodeIdentifier(idx) operation of §6.
func (s *Simulation) NodeIdentifier(idx int) (object.ID, error) {
	v, err := s.driver.request(opRequest{kind: opNodeIdentifier, nodeIdx: idx})
	if err != nil {
		return object.ID{}, err
	}
	return v.(object.ID), nil
}

// NodeLocation is the NodeLocation(idx) operation of §6.
func (s *Simulation) NodeLocation(idx int) (network.Location, error) {
	v, err := s.driver.request(opRequest{kind: opNodeLocation, nodeIdx: idx})
	if err != nil {
		return network.Location{}, err
	}
	return v.(network.Location), nil
}

// NodeStatistics is the NodeStatistics(idx) operation of §6.
func (s *Simulation) NodeStatistics(idx int) (network.Statistics, error) {
	v, err := s.driver.request(opRequest{kind: opNodeStatistics, nodeIdx: idx})
	if err != nil {
		return network.Statistics{}, err
	}
	return v.(network.Statistics), nil
}

// GlobalStatistics is the GlobalStatistics operation of §6.
func (s *Simulation) GlobalStatistics() (ChainMetrics, error) {
	v, err := s.driver.request(opRequest{kind: opGlobalStatistics})
	if err != nil {
		return ChainMetrics{}, err
	}
	return v.(ChainMetrics), nil
}

// ChainMetrics is the ChainMetrics(timeout) operation of §6: in this
// core the timeout has already been consumed by SetTimeout/Start, so
// this simply reads back the latest snapshot.
func (s *Simulation) ChainMetrics() (ChainMetrics, error) {
	return s.GlobalStatistics()
}

// NetworkMetric is the NetworkMetric(m) operation of §6.
func (s *Simulation) NetworkMetric(m ChainMetricKind) (float64, error) {
	v, err := s.driver.request(opRequest{kind: opNetworkMetric, metric: m})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// SubmitTransaction issues a new transaction at node idx, the
// operation a SpeedTest or client workload collaborator drives
// repeatedly over the run (§4.8, §8 "Client latency law").
func (s *Simulation) SubmitTransaction(idx int, tx *ledger.Transaction) error {
	_, err := s.driver.request(opRequest{kind: opSubmitTransaction, nodeIdx: idx, tx: tx})
	return err
}
