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

// Driver is the simulation state machine of §4.8/§5: it owns the
// virtual clock's pump loop, the rate limiter anchoring virtual time
// to wall time, and the boundary between the driver goroutine and the
// caller's goroutine, which the rest of the package crosses only
// through the op-request queue, the per-request response channel and
// the state/rate-limit condition variables. Events are published
// synchronously on the publishing goroutine; there is no separate
// event-handler goroutine.
//
// Grounded on node/service.go's Start/Stop lifecycle for the overall
// shape of a long-lived driver object, with the thread-boundary
// primitives taken from golang.org/x/sync/errgroup (work/worker.go
// uses the same package for its own goroutine lifetime management)
// and the wall-clock anchor read through
// github.com/aristanetworks/goarista/monotime, the only legitimate
// wall-clock read site in the whole simulator (§3 DOMAIN STACK).
package simulation

import (
	"sync"
	"time"

	"github.com/aristanetworks/goarista/monotime"
	"golang.org/x/sync/errgroup"

	"github.com/pkg/errors"

	"github.com/ground-x/simba/ledger"
	"github.com/ground-x/simba/log"
	"github.com/ground-x/simba/runtime"
)

// sleepWall is the driver's one wall-clock sleep site, used only by
// the rate limiter to throttle how fast virtual time outruns real
// time (§5); nothing inside the cooperative scene ever calls this.
func sleepWall(nanos int64) {
	time.Sleep(time.Duration(nanos))
}

var logger = log.NewModuleLogger(log.Simulation)

// State is one point in the driver's lifecycle FSM (§4.8).
type State int

const (
	SettingUp State = iota
	Starting
	Running
	Stopping
	Stopped
	Destroyed
)

func (s State) String() string {
	switch s {
	case SettingUp:
		return "setting-up"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// opRequestKind names one of §6's synchronous operation requests.
type opRequestKind int

const (
	opCurrentTime opRequestKind = iota
	opNodeLocation
	opNodeIdentifier
	opNodeStatistics
	opGlobalStatistics
	opNetworkMetric
	opChainMetrics
	opSubmitTransaction
)

type opRequest struct {
	kind     opRequestKind
	nodeIdx  int
	metric   ChainMetricKind
	tx       *ledger.Transaction
	response chan opResponse
}

type opResponse struct {
	value interface{}
	err   error
}

// Driver pumps a Scene's virtual clock to completion, guarded at its
// boundary by ordinary (non-cooperative) synchronization — the
// cooperative runtime.Mutex/Condvar of the scene's own tasks is a
// strictly inner concern the caller thread must never touch directly
// (§5 "Shared resources").
type Driver struct {
	scene *Scene
	stats *Stats
	bus   *EventBus
	rt    *runtime.Runtime

	timeout Timeout

	stateMu sync.Mutex
	state   State
	stateCv *sync.Cond

	ops chan opRequest

	rateMu    sync.Mutex
	rateCv    *sync.Cond
	rateLimit uint32 // per-mille; 0 pauses the driver (§5)

	destroyed chan struct{}
	eg        *errgroup.Group
}

// NewDriver wires a Scene to a Driver, ready for Start. rateLimit is
// in per-mille (1000 == real time); 0 starts the driver paused.
func NewDriver(scene *Scene, stats *Stats, bus *EventBus, timeout Timeout, rateLimit uint32) *Driver {
	d := &Driver{
		scene:     scene,
		stats:     stats,
		bus:       bus,
		rt:        scene.rt,
		timeout:   timeout,
		state:     SettingUp,
		ops:       make(chan opRequest, 64),
		rateLimit: rateLimit,
		destroyed: make(chan struct{}),
	}
	d.stateCv = sync.NewCond(&d.stateMu)
	d.rateCv = sync.NewCond(&d.rateMu)
	return d
}

// State reports the driver's current lifecycle state.
func (d *Driver) State() State {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.state
}

func (d *Driver) setState(s State) {
	d.stateMu.Lock()
	d.state = s
	d.stateMu.Unlock()
	d.stateCv.Broadcast()
}

// SetRateLimit changes the wall-clock rate limit in per-mille, waking
// the driver thread if it was paused at 0 (§5).
func (d *Driver) SetRateLimit(perMille uint32) {
	d.rateMu.Lock()
	d.rateLimit = perMille
	d.rateMu.Unlock()
	d.rateCv.Broadcast()
}

// Start transitions SettingUp -> Starting -> Running and launches the
// driver goroutine through an errgroup; the caller thread is whichever
// goroutine calls Start/WaitForStop. Events raised by the run are
// handled on the driver goroutine itself.
func (d *Driver) Start() error {
	if d.State() != SettingUp {
		return errors.Errorf("simulation: cannot start from state %s", d.State())
	}

	d.eg = &errgroup.Group{}
	d.setState(Starting)

	d.eg.Go(func() error {
		d.setState(Running)
		d.runLoop()
		d.setState(Stopping)
		d.bus.Publish(Event{Kind: TimeoutElapsed})
		d.setState(Stopped)
		d.bus.Publish(Event{Kind: SimulationStopped})
		return nil
	})
	return nil
}

// warmupReached reports whether the configured warmup window has
// elapsed as of now, given blocksAccepted observed so far.
func (d *Driver) warmupReached(now runtime.VirtualTime, blocksAccepted uint64) bool {
	switch d.timeout.Kind {
	case TimeoutSeconds:
		return int64(now)/int64(runtime.Second) >= int64(d.timeout.Warmup)
	case TimeoutBlocks:
		return blocksAccepted >= d.timeout.Warmup
	default:
		return true
	}
}

// runtimeReached reports whether the run window (post-warmup) has
// elapsed.
func (d *Driver) runtimeReached(elapsedSeconds float64, blocksAccepted uint64) bool {
	switch d.timeout.Kind {
	case TimeoutSeconds:
		return elapsedSeconds >= float64(d.timeout.Runtime)
	case TimeoutBlocks:
		return blocksAccepted >= d.timeout.Runtime
	default:
		return true
	}
}

// runLoop is the driver thread's main body: tick/settle the scene's
// runtime, apply the rate limiter, and drain the command queue,
// exactly in the order §4.8/§5 describe.
func (d *Driver) runLoop() {
	d.scene.Spawn()

	wallAnchor := monotime.Now()
	virtualAnchor := d.rt.Now()
	warmupDone := d.timeout.Warmup == 0
	if warmupDone {
		d.stats.BeginCollection(d.rt.Now())
	}

	d.rt.ExecuteTasks()
	for {
		d.drainCommands()

		blocksAccepted := d.stats.blocksAccepted.Count()
		if !warmupDone && d.warmupReached(d.rt.Now(), uint64(blocksAccepted)) {
			d.stats.BeginCollection(d.rt.Now())
			warmupDone = true
			virtualAnchor = d.rt.Now()
			wallAnchor = monotime.Now()
		}
		if warmupDone {
			elapsed := float64(d.rt.Now().Sub(virtualAnchor)) / float64(runtime.Second)
			if d.runtimeReached(elapsed, uint64(blocksAccepted)) {
				return
			}
		}

		if !d.rt.Advance() {
			return
		}
		d.rt.ExecuteTasks()

		d.applyRateLimit(wallAnchor, virtualAnchor)
	}
}

// applyRateLimit sleeps the driver thread's wall clock so that
// virtual_elapsed/real_elapsed approaches rate_limit/1000, and blocks
// entirely (without tearing the simulation down) while the rate limit
// is 0 (§5).
func (d *Driver) applyRateLimit(wallAnchor uint64, virtualAnchor runtime.VirtualTime) {
	d.rateMu.Lock()
	for d.rateLimit == 0 {
		d.rateCv.Wait()
	}
	rate := d.rateLimit
	d.rateMu.Unlock()

	virtualElapsedMicros := int64(d.rt.Now().Sub(virtualAnchor))
	minWallNanos := virtualElapsedMicros * 1000 * 1000 / int64(rate)
	wallElapsedNanos := int64(monotime.Now() - wallAnchor)
	if wallElapsedNanos < minWallNanos {
		sleepWall(minWallNanos - wallElapsedNanos)
	}
}

// drainCommands services every operation request currently queued,
// without blocking if none are pending.
func (d *Driver) drainCommands() {
	for {
		select {
		case req := <-d.ops:
			d.handleOp(req)
		default:
			return
		}
	}
}

func (d *Driver) handleOp(req opRequest) {
	resp := opResponse{}
	switch req.kind {
	case opCurrentTime:
		resp.value = d.rt.Now()
	case opNodeIdentifier:
		if req.nodeIdx < 0 || req.nodeIdx >= d.scene.NumNodes() {
			resp.err = errors.Errorf("simulation: node index %d out of range", req.nodeIdx)
		} else {
			resp.value = d.scene.NodeID(req.nodeIdx)
		}
	case opNodeLocation:
		resp.value, resp.err = d.scene.NodeLocation(req.nodeIdx)
	case opNodeStatistics:
		resp.value, resp.err = d.scene.NodeStatistics(req.nodeIdx)
	case opGlobalStatistics, opChainMetrics:
		metrics := d.stats.Snapshot(d.rt.Now())
		resp.value = metrics
		d.bus.Publish(Event{Kind: StatisticsUpdated, ChainMetrics: metrics})
	case opNetworkMetric:
		resp.value = d.stats.Snapshot(d.rt.Now()).Metric(req.metric)
	case opSubmitTransaction:
		ok := d.scene.SubmitTransaction(req.nodeIdx, req.tx, d.rt.Now())
		if !ok {
			resp.err = errors.New("simulation: protocol does not accept transactions")
		}
	}
	d.bus.Publish(Event{Kind: OpResult, OpPayload: resp.value})
	req.response <- resp
}

// request is the internal synchronous-RPC helper every public
// operation in simulation.go funnels through, keyed implicitly by the
// channel rather than a monotonic integer id (the channel itself is
// the one-shot response slot, simpler than the source's explicit
// op-id map while preserving the same synchronous-RPC contract).
// While the driver loop is starting or running the request is queued
// for it; otherwise (before Start, or once the loop has ended) it is
// served directly on the caller's goroutine.
func (d *Driver) request(req opRequest) (interface{}, error) {
	req.response = make(chan opResponse, 1)
	if st := d.State(); st == Starting || st == Running {
		d.ops <- req
	} else {
		d.handleOp(req)
	}
	resp := <-req.response
	return resp.value, resp.err
}

// WaitForStop blocks the caller thread until the driver reaches
// Stopped (or Destroyed), then joins the driver thread through the
// errgroup so Start's goroutine is never left dangling.
func (d *Driver) WaitForStop() {
	d.stateMu.Lock()
	for d.state != Stopped && d.state != Destroyed {
		d.stateCv.Wait()
	}
	d.stateMu.Unlock()

	if d.eg != nil {
		_ = d.eg.Wait() // runLoop's goroutine never returns a non-nil error
	}
}

// Destroy transitions the driver to its terminal state. Idempotent.
func (d *Driver) Destroy() {
	d.setState(Destroyed)
	d.bus.Publish(Event{Kind: SimulationDestroyed})
	select {
	case <-d.destroyed:
	default:
		close(d.destroyed)
	}
}
