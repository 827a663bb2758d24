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

// Package runtime implements the cooperative, single-logical-thread
// discrete-event scheduler described in spec §4.1 and §5: a virtual
// clock advanced only by the driver, tasks that run to completion
// between declared suspension points, and a small set of cooperative
// synchronization primitives (sync.go) layered on top.
//
// Each spawned task is backed by a real goroutine, but the Runtime
// enforces that at most one task's goroutine is ever runnable at a
// time: the driver hands a task the "baton" (resume), waits for that
// task to suspend again (yielded), and only then considers the next
// task. This gives deterministic single-threaded scheduling while
// letting task bodies be written as ordinary, blocking-looking Go
// functions.
package runtime

import "container/heap"

// Runtime owns the virtual clock and the set of spawned tasks.
type Runtime struct {
	now    VirtualTime
	nextID uint64

	ready    []*Task
	sleeping sleepHeap
	parked   map[uint64]*Task // tasks suspended with no timer, keyed by id
	alive    int              // tasks not yet finished
}

// New creates a Runtime with the clock at the origin.
func New() *Runtime {
	return &Runtime{
		parked: make(map[uint64]*Task),
	}
}

// Now returns the current virtual time.
func (rt *Runtime) Now() VirtualTime {
	return rt.now
}

// Spawn schedules fn for cooperative execution. fn runs on its own
// goroutine but will not execute a single instruction until the driver
// grants it the baton.
func (rt *Runtime) Spawn(fn func(t *Task)) {
	rt.nextID++
	t := &Task{
		id:      rt.nextID,
		rt:      rt,
		resume:  make(chan struct{}),
		yielded: make(chan yieldMsg, 1),
	}
	rt.alive++
	rt.ready = append(rt.ready, t)
	logger.Trace("spawned task", "id", t.id)
	go func() {
		<-t.resume
		fn(t)
		t.yielded <- yieldMsg{kind: yieldDone}
	}()
}

// wake moves a parked task back onto the ready queue. Callers are
// always the currently-running task (itself holding the baton), which
// is why no locking is needed: the single-logical-thread discipline
// makes this safe (§5).
func (rt *Runtime) wake(t *Task) {
	delete(rt.parked, t.id)
	rt.ready = append(rt.ready, t)
}

// runOne hands the baton to t and blocks until t suspends or finishes,
// folding the result back into the scheduler's queues.
func (rt *Runtime) runOne(t *Task) {
	t.resume <- struct{}{}
	msg := <-t.yielded
	switch msg.kind {
	case yieldDone:
		rt.alive--
	case yieldSleep:
		heap.Push(&rt.sleeping, sleepEntry{wake: msg.until, task: t})
	case yieldParked:
		rt.parked[t.id] = t
	case yieldRace:
		heap.Push(&rt.sleeping, sleepEntry{wake: msg.until, task: t, race: msg.race})
	}
}

// ExecuteTasks runs every ready task to its next suspension point,
// repeating until no task is immediately runnable (a fixed point). This
// is "settle" in §4.1. It returns whether any task actually ran.
func (rt *Runtime) ExecuteTasks() bool {
	progressed := false
	for len(rt.ready) > 0 {
		t := rt.ready[0]
		rt.ready = rt.ready[1:]
		rt.runOne(t)
		progressed = true
	}
	return progressed
}

// Advance moves the clock forward to the earliest pending timer and
// wakes every task whose sleep has elapsed. This is "tick" in §4.1. It
// returns false if there is nothing to advance to.
func (rt *Runtime) Advance() bool {
	if rt.sleeping.Len() == 0 {
		return false
	}
	next := rt.sleeping[0].wake
	rt.now = next
	for rt.sleeping.Len() > 0 && rt.sleeping[0].wake <= rt.now {
		e := heap.Pop(&rt.sleeping).(sleepEntry)
		if e.race != nil {
			if e.race.resolved {
				// Already resolved by a NotifyOne that won the race;
				// this timer leg is stale and must not re-queue it.
				continue
			}
			e.race.resolved = true
		}
		rt.ready = append(rt.ready, e.task)
	}
	return true
}

// Alive reports how many spawned tasks have not yet finished.
func (rt *Runtime) Alive() int {
	return rt.alive
}

// Run alternates tick and settle (§4.1's driver loop) until stop
// reports true or there is no more work to do at all.
func (rt *Runtime) Run(stop func() bool) {
	rt.ExecuteTasks()
	for !stop() {
		if !rt.Advance() {
			return
		}
		rt.ExecuteTasks()
	}
}

type sleepEntry struct {
	wake VirtualTime
	task *Task
	race *raceResult // non-nil only for WaitNotifiedOrTimeout's timer leg
}

type sleepHeap []sleepEntry

func (h sleepHeap) Len() int            { return len(h) }
func (h sleepHeap) Less(i, j int) bool  { return h[i].wake < h[j].wake }
func (h sleepHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *sleepHeap) Push(x interface{}) { *h = append(*h, x.(sleepEntry)) }
func (h *sleepHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
