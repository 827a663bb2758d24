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

package runtime

// Notify is a single-shot wake primitive, matching tokio::sync::Notify:
// Notified suspends until NotifyOne is called; permits do not
// accumulate beyond one (§4.1).
type Notify struct {
	rt      *Runtime
	waiters []raceWaiter
	permit  bool
}

// raceWaiter is a Notify waiter. result is nil for a plain Notified
// call and non-nil for a WaitNotifiedOrTimeout call racing a deadline.
type raceWaiter struct {
	task   *Task
	result *raceResult
}

// NewNotify creates a Notify bound to rt.
func NewNotify(rt *Runtime) *Notify {
	return &Notify{rt: rt}
}

// Notified suspends t until NotifyOne is called, unless a permit from a
// previous NotifyOne call is already outstanding.
func (n *Notify) Notified(t *Task) {
	if n.permit {
		n.permit = false
		return
	}
	n.waiters = append(n.waiters, raceWaiter{task: t})
	t.park()
}

// WaitNotifiedOrTimeout suspends t until either NotifyOne is called or
// d elapses, whichever comes first, and reports whether it was the
// Notify side that resolved it. This is the PBFT leader's propose loop
// racing a deadline against the notify that wakes it early once enough
// transactions have arrived (the same race tokio::select! expresses in
// an async runtime).
func (n *Notify) WaitNotifiedOrTimeout(t *Task, d Duration) (notified bool) {
	if n.permit {
		n.permit = false
		return true
	}
	res := &raceResult{}
	n.waiters = append(n.waiters, raceWaiter{task: t, result: res})
	until := t.rt.Now().Add(d)
	t.raceUntilOrWake(until, res)
	return res.notified
}

// NotifyOne wakes a single waiter, or banks a permit if none is
// currently waiting. Waiters whose race was already resolved by a
// timeout are skipped rather than woken a second time.
func (n *Notify) NotifyOne() {
	for len(n.waiters) > 0 {
		w := n.waiters[0]
		n.waiters = n.waiters[1:]
		if w.result != nil {
			if w.result.resolved {
				continue
			}
			w.result.resolved = true
			w.result.notified = true
		}
		n.rt.wake(w.task)
		return
	}
	n.permit = true
}

// Mutex is a cooperative, non-reentrant lock. Because at most one task
// ever executes at a time, it only matters across suspension points:
// locking never blocks unless the holder itself suspended while
// holding it.
type Mutex struct {
	rt      *Runtime
	locked  bool
	waiters []*Task
}

// NewMutex creates a Mutex bound to rt.
func NewMutex(rt *Runtime) *Mutex {
	return &Mutex{rt: rt}
}

// Lock suspends t until the mutex can be acquired.
func (m *Mutex) Lock(t *Task) {
	for m.locked {
		m.waiters = append(m.waiters, t)
		t.park()
	}
	m.locked = true
}

// Unlock releases the mutex, waking the longest-waiting task if any.
func (m *Mutex) Unlock() {
	m.locked = false
	if len(m.waiters) == 0 {
		return
	}
	w := m.waiters[0]
	m.waiters = m.waiters[1:]
	m.rt.wake(w)
}

// Condvar is the classic wait/notify-all primitive, always used
// together with a Mutex held by the caller (§4.1).
type Condvar struct {
	rt      *Runtime
	waiters []raceWaiter
}

// NewCondvar creates a Condvar bound to rt.
func NewCondvar(rt *Runtime) *Condvar {
	return &Condvar{rt: rt}
}

// Wait releases m, suspends t until NotifyAll is called, then
// re-acquires m before returning.
func (c *Condvar) Wait(t *Task, m *Mutex) {
	m.Unlock()
	c.waiters = append(c.waiters, raceWaiter{task: t})
	t.park()
	m.Lock(t)
}

// WaitWithTimeout releases m, suspends t until either NotifyAll is
// called or d elapses, whichever comes first, then re-acquires m
// before returning whether it was woken by NotifyAll. Gossip's block
// fetch retry loop uses this to re-send a request to the next peer if
// nobody answers in time (§6, the same role block_cond.wait_with_timeout
// plays in a condvar-based retry loop).
func (c *Condvar) WaitWithTimeout(t *Task, m *Mutex, d Duration) (notified bool) {
	m.Unlock()
	res := &raceResult{}
	c.waiters = append(c.waiters, raceWaiter{task: t, result: res})
	until := t.rt.Now().Add(d)
	t.raceUntilOrWake(until, res)
	m.Lock(t)
	return res.notified
}

// NotifyAll wakes every current waiter.
func (c *Condvar) NotifyAll() {
	waiters := c.waiters
	c.waiters = nil
	for _, w := range waiters {
		if w.result != nil {
			if w.result.resolved {
				continue
			}
			w.result.resolved = true
			w.result.notified = true
		}
		c.rt.wake(w.task)
	}
}

// Channel is an unbounded mpsc FIFO queue; Recv suspends on empty
// (§4.1).
type Channel struct {
	rt      *Runtime
	queue   []interface{}
	waiters []*Task
}

// NewChannel creates a Channel bound to rt.
func NewChannel(rt *Runtime) *Channel {
	return &Channel{rt: rt}
}

// Send enqueues v, waking a receiver if one is waiting.
func (c *Channel) Send(v interface{}) {
	c.queue = append(c.queue, v)
	if len(c.waiters) > 0 {
		w := c.waiters[0]
		c.waiters = c.waiters[1:]
		c.rt.wake(w)
	}
}

// Recv suspends t until a value is available, then dequeues it.
func (c *Channel) Recv(t *Task) interface{} {
	for len(c.queue) == 0 {
		c.waiters = append(c.waiters, t)
		t.park()
	}
	v := c.queue[0]
	c.queue = c.queue[1:]
	return v
}

// Semaphore is a counting semaphore; AcquireMany suspends until n
// permits are available (§4.1, used directly by Snowball's decision
// count in §4.7).
type Semaphore struct {
	rt      *Runtime
	permits int
	waiters []semWaiter
}

type semWaiter struct {
	task *Task
	need int
}

// NewSemaphore creates a Semaphore with the given number of initial
// permits.
func NewSemaphore(rt *Runtime, initial int) *Semaphore {
	return &Semaphore{rt: rt, permits: initial}
}

// AcquireMany suspends t until n permits are available, then consumes
// them.
func (s *Semaphore) AcquireMany(t *Task, n int) {
	if s.permits >= n && len(s.waiters) == 0 {
		s.permits -= n
		return
	}
	s.waiters = append(s.waiters, semWaiter{task: t, need: n})
	for {
		t.park()
		if s.waiters[0].task == t && s.permits >= n {
			s.permits -= n
			s.waiters = s.waiters[1:]
			return
		}
	}
}

// Release returns n permits to the semaphore, waking front-of-line
// waiters whose requirement is now satisfied.
func (s *Semaphore) Release(n int) {
	s.permits += n
	for len(s.waiters) > 0 && s.waiters[0].need <= s.permits {
		w := s.waiters[0]
		s.rt.wake(w.task)
		// The waiter re-checks permits and removes itself from the
		// queue head on its next turn; nothing more to do here until
		// it runs.
		break
	}
}
