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

import "github.com/ground-x/simba/log"

var logger = log.NewModuleLogger(log.Runtime)

// yieldKind describes why a task handed control back to the driver.
type yieldKind int

const (
	yieldDone yieldKind = iota
	yieldSleep
	yieldParked
	yieldRace
)

type yieldMsg struct {
	kind  yieldKind
	until VirtualTime
	race  *raceResult
}

// raceResult is the shared outcome cell of a WaitNotifiedOrTimeout
// race: whichever side (the timer or the Notify) resolves first flips
// resolved so the other side's eventual attempt becomes a no-op.
type raceResult struct {
	resolved bool
	notified bool
}

// Task is the handle a spawned function uses to suspend itself. It is
// never shared across goroutines except between the owning task
// goroutine and the driver that schedules it.
type Task struct {
	id      uint64
	rt      *Runtime
	resume  chan struct{}
	yielded chan yieldMsg
}

// Sleep suspends the calling task until the virtual clock reaches
// now+d. It is one of the four declared suspension points (§4.1, §5).
func (t *Task) Sleep(d Duration) {
	until := t.rt.Now().Add(d)
	t.yielded <- yieldMsg{kind: yieldSleep, until: until}
	<-t.resume
}

// park suspends the task with no time-based wake condition; some other
// task must call Runtime.wake(t) to make it runnable again. Used by the
// cooperative sync primitives in sync.go.
func (t *Task) park() {
	t.yielded <- yieldMsg{kind: yieldParked}
	<-t.resume
}

// raceUntilOrWake suspends the task until either the virtual clock
// reaches until or something resolves race first, whichever comes
// first (used by WaitNotifiedOrTimeout to race a Notify against a
// deadline).
func (t *Task) raceUntilOrWake(until VirtualTime, race *raceResult) {
	t.yielded <- yieldMsg{kind: yieldRace, until: until, race: race}
	<-t.resume
}
