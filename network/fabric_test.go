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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ground-x/simba/object"
	"github.com/ground-x/simba/runtime"
)

type fixedMsg struct{ size int }

func (m fixedMsg) Size() int { return m.size }

func TestSendToDeliversAfterLatency(t *testing.T) {
	rt := runtime.New()
	f := NewFabric(rt)

	var received object.ID
	a := NewNode(0, Location{}, 0, func(source object.ID, msg Message) {})
	b := NewNode(1, Location{}, 0, func(source object.ID, msg Message) {
		received = source
	})
	f.AddNode(a)
	f.AddNode(b)
	f.Connect(a, b, 10*runtime.Millisecond, 0, nil)

	f.SendTo(a.ID, b.ID, fixedMsg{size: 59})
	rt.Run(func() bool { return rt.Alive() == 0 })

	require.Equal(t, a.ID, received)
	require.Equal(t, runtime.VirtualTime(10*runtime.Millisecond), rt.Now())
}

func TestBandwidthSerializesConcurrentSends(t *testing.T) {
	rt := runtime.New()
	f := NewFabric(rt)

	var arrivals []runtime.VirtualTime
	a := NewNode(0, Location{}, 0, func(object.ID, Message) {})
	b := NewNode(1, Location{}, 1000, func(object.ID, Message) {
		arrivals = append(arrivals, rt.Now())
	})
	f.AddNode(a)
	f.AddNode(b)
	f.Connect(a, b, 0, 0, nil)

	f.SendTo(a.ID, b.ID, fixedMsg{size: 1000})
	f.SendTo(a.ID, b.ID, fixedMsg{size: 1000})
	rt.Run(func() bool { return rt.Alive() == 0 })

	require.Len(t, arrivals, 2)
	require.True(t, arrivals[0] < arrivals[1])
}

func TestBroadcastSkipsExcept(t *testing.T) {
	rt := runtime.New()
	f := NewFabric(rt)

	var got []object.ID
	a := NewNode(0, Location{}, 0, nil)
	b := NewNode(1, Location{}, 0, func(source object.ID, msg Message) {
		got = append(got, source)
	})
	c := NewNode(2, Location{}, 0, func(source object.ID, msg Message) {
		got = append(got, source)
	})
	f.AddNode(a)
	f.AddNode(b)
	f.AddNode(c)
	f.Connect(a, b, 0, 0, nil)
	f.Connect(a, c, 0, 0, nil)

	f.Broadcast(a.ID, fixedMsg{size: 1}, b.ID)
	rt.Run(func() bool { return rt.Alive() == 0 })

	require.Equal(t, []object.ID{a.ID}, got)
}
