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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventBusDisabledByDefault(t *testing.T) {
	bus := NewEventBus()
	fired := false
	bus.On(BlockCreated, func(Event) { fired = true })

	bus.Publish(Event{Kind: BlockCreated})
	require.False(t, fired, "bus must not deliver events until Enable is called")
}

func TestEventBusDeliversToRegisteredHandler(t *testing.T) {
	bus := NewEventBus()
	bus.Enable()

	var got Event
	bus.On(BlockCreated, func(ev Event) { got = ev })
	bus.On(NodeDestroyed, func(Event) { t.Fatal("wrong handler invoked") })

	bus.Publish(Event{Kind: BlockCreated, NodeIndex: 3})
	require.Equal(t, BlockCreated, got.Kind)
	require.EqualValues(t, 3, got.NodeIndex)
}

func TestEventBusDropsUnregisteredKind(t *testing.T) {
	bus := NewEventBus()
	bus.Enable()

	// No handler registered for SimulationStopped: Publish must not panic.
	require.NotPanics(t, func() { bus.Publish(Event{Kind: SimulationStopped}) })
}
