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

package network

import (
	"github.com/ground-x/simba/log"
	"github.com/ground-x/simba/runtime"
)

var logger = log.NewModuleLogger(log.Network)

// ActivityFunc is invoked whenever a Link transitions between active
// (carrying in-flight messages) and inactive (idle), per §4.2/§6.
type ActivityFunc func(active bool)

// Link connects two nodes with a fixed propagation latency and an
// optional shared bandwidth cap. Competing sends on the same link
// share its bandwidth: the link tracks when its transmission capacity
// is next free (nextFree) and serializes transfer time behind it, so a
// burst of messages queues rather than all completing at once (§4.2).
type Link struct {
	rt       *runtime.Runtime
	Latency  runtime.Duration
	// BandwidthBps is optional; zero means the link itself imposes no
	// cap (only the destination node's bandwidth applies).
	BandwidthBps uint64

	nextFree     runtime.VirtualTime
	active       bool
	messageCount uint64
	onActivity   ActivityFunc
}

// NewLink constructs a Link with the given latency and optional
// bandwidth cap (0 = unconstrained by the link itself).
func NewLink(rt *runtime.Runtime, latency runtime.Duration, bandwidthBps uint64, onActivity ActivityFunc) *Link {
	return &Link{rt: rt, Latency: latency, BandwidthBps: bandwidthBps, onActivity: onActivity}
}

// MessageCount returns the number of messages sent so far on this link.
func (l *Link) MessageCount() uint64 {
	return l.messageCount
}

// Active reports whether the link currently has messages in flight.
func (l *Link) Active() bool {
	return l.active
}

// send schedules msg's arrival at dest, serializing its transmission
// behind any messages already in flight on this link, and returns the
// scheduled arrival time.
func (l *Link) send(dest *Node, msg Message) runtime.VirtualTime {
	now := l.rt.Now()
	bw := l.effectiveBandwidth(dest)

	txStart := l.nextFree
	if txStart < now {
		txStart = now
	}
	var txDuration runtime.Duration
	if bw > 0 {
		txDuration = runtime.Duration(uint64(msg.Size()) * uint64(runtime.Second) / bw)
	}
	l.nextFree = txStart.Add(txDuration)
	arrival := l.nextFree.Add(l.Latency)
	l.messageCount++

	if !l.active {
		l.active = true
		if l.onActivity != nil {
			l.onActivity(true)
		}
	}
	l.scheduleIdleCheck(dest)

	return arrival
}

func (l *Link) effectiveBandwidth(dest *Node) uint64 {
	switch {
	case l.BandwidthBps == 0:
		return dest.BandwidthBps
	case dest.BandwidthBps == 0:
		return l.BandwidthBps
	case l.BandwidthBps < dest.BandwidthBps:
		return l.BandwidthBps
	default:
		return dest.BandwidthBps
	}
}

// scheduleIdleCheck spawns a task that sleeps until the link's
// transmission capacity frees up and, if no further send has pushed
// nextFree out again in the meantime, flips the link to inactive and
// fires the activity callback (§4.2: "link becomes active while
// messages are in transit and inactive when idle, emitting
// transitions").
func (l *Link) scheduleIdleCheck(dest *Node) {
	deadline := l.nextFree
	l.rt.Spawn(func(t *runtime.Task) {
		wait := deadline.Sub(l.rt.Now())
		if wait > 0 {
			t.Sleep(wait)
		}
		if l.active && l.rt.Now() >= l.nextFree {
			l.active = false
			if l.onActivity != nil {
				l.onActivity(false)
			}
		}
	})
}
