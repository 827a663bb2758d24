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
	"github.com/ground-x/simba/network"
	"github.com/ground-x/simba/object"
)

// EventKind discriminates the event families §6 lists. The event bus
// is opt-in and disabled by default; enabling it installs a callback
// slot per kind (Design Notes §9: "a small set of typed callback
// slots... if an event fires before the slot is populated, it is
// dropped").
type EventKind int

const (
	MessageSent EventKind = iota
	LinkCreated
	LinkActive
	LinkInactive
	NodeCreated
	NodeStatisticsUpdated
	BlockCreated
	StatisticsUpdated
	OpResult
	TimeoutElapsed
	SimulationStopped
	SimulationDestroyed
	NodeDestroyed
)

// Event is the payload delivered to a subscriber; only the field
// relevant to Kind is populated, the same discriminated-struct idiom
// used by Protocol and Network in config.go.
type Event struct {
	Kind EventKind

	NodeIndex    object.NodeIndex
	LinkA        object.ID
	LinkB        object.ID
	BlockID      object.BlockID
	MessageSize  int
	OpID         uint64
	OpPayload    interface{}
	NodeStats    network.Statistics
	ChainMetrics ChainMetrics
}

// EventHandler receives events synchronously on whichever goroutine
// calls Publish: BuildScene's caller while the scene is wired, the
// driver goroutine during a run, and the caller's goroutine for
// operations served once the run has ended. There is no separate
// event-handler goroutine and no event channel.
type EventHandler func(Event)

// EventBus is the opt-in typed callback-slot dispatcher of §6/§9.
// Publish is not synchronized; handler registration should happen
// before Start.
type EventBus struct {
	enabled  bool
	handlers [13]EventHandler // indexed by EventKind
}

// NewEventBus creates a disabled bus; call Enable to opt in.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Enable opts the bus into event delivery.
func (b *EventBus) Enable() { b.enabled = true }

// On installs the callback for one event kind. A later call for the
// same kind replaces the earlier one, matching "initialized at most
// once" loosely — repeated registration is a caller bug, not guarded
// against here.
func (b *EventBus) On(kind EventKind, h EventHandler) {
	b.handlers[kind] = h
}

// Publish invokes the handler registered for ev.Kind, if the bus is
// enabled and a handler has been installed; otherwise the event is
// silently dropped (§9).
func (b *EventBus) Publish(ev Event) {
	if !b.enabled {
		return
	}
	if h := b.handlers[ev.Kind]; h != nil {
		h(ev)
	}
}
