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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSleepOrdering(t *testing.T) {
	rt := New()
	var order []int

	rt.Spawn(func(tk *Task) {
		tk.Sleep(30 * Millisecond)
		order = append(order, 3)
	})
	rt.Spawn(func(tk *Task) {
		tk.Sleep(10 * Millisecond)
		order = append(order, 1)
	})
	rt.Spawn(func(tk *Task) {
		tk.Sleep(20 * Millisecond)
		order = append(order, 2)
	})

	rt.Run(func() bool { return rt.Alive() == 0 })

	require.Equal(t, []int{1, 2, 3}, order)
	require.Equal(t, VirtualTime(30*Millisecond), rt.Now())
}

func TestNotifyOneWakesSingleWaiter(t *testing.T) {
	rt := New()
	n := NewNotify(rt)
	woken := false

	rt.Spawn(func(tk *Task) {
		n.Notified(tk)
		woken = true
	})
	rt.ExecuteTasks()
	require.False(t, woken)

	rt.Spawn(func(tk *Task) {
		n.NotifyOne()
	})
	rt.ExecuteTasks()
	require.True(t, woken)
}

func TestWaitNotifiedOrTimeoutFiresOnTimer(t *testing.T) {
	rt := New()
	n := NewNotify(rt)
	var result bool

	rt.Spawn(func(tk *Task) {
		result = n.WaitNotifiedOrTimeout(tk, 10*Millisecond)
	})
	rt.Run(func() bool { return rt.Alive() == 0 })

	require.False(t, result)
	require.Equal(t, VirtualTime(10*Millisecond), rt.Now())
}

func TestWaitNotifiedOrTimeoutFiresOnNotify(t *testing.T) {
	rt := New()
	n := NewNotify(rt)
	var result bool

	rt.Spawn(func(tk *Task) {
		result = n.WaitNotifiedOrTimeout(tk, 100*Millisecond)
	})
	rt.ExecuteTasks()

	rt.Spawn(func(tk *Task) {
		tk.Sleep(5 * Millisecond)
		n.NotifyOne()
	})
	rt.Run(func() bool { return rt.Alive() == 0 })

	require.True(t, result)
	require.Equal(t, VirtualTime(5*Millisecond), rt.Now())
}

func TestCondvarWaitWithTimeoutFiresOnTimer(t *testing.T) {
	rt := New()
	m := NewMutex(rt)
	c := NewCondvar(rt)
	var result bool

	rt.Spawn(func(tk *Task) {
		m.Lock(tk)
		result = c.WaitWithTimeout(tk, m, 10*Millisecond)
		m.Unlock()
	})
	rt.Run(func() bool { return rt.Alive() == 0 })

	require.False(t, result)
}

func TestCondvarWaitWithTimeoutFiresOnNotify(t *testing.T) {
	rt := New()
	m := NewMutex(rt)
	c := NewCondvar(rt)
	var result bool

	rt.Spawn(func(tk *Task) {
		m.Lock(tk)
		result = c.WaitWithTimeout(tk, m, 100*Millisecond)
		m.Unlock()
	})
	rt.ExecuteTasks()

	rt.Spawn(func(tk *Task) {
		tk.Sleep(5 * Millisecond)
		c.NotifyAll()
	})
	rt.Run(func() bool { return rt.Alive() == 0 })

	require.True(t, result)
}

func TestChannelFIFO(t *testing.T) {
	rt := New()
	ch := NewChannel(rt)
	var got []interface{}

	rt.Spawn(func(tk *Task) {
		got = append(got, ch.Recv(tk))
		got = append(got, ch.Recv(tk))
	})
	rt.ExecuteTasks()

	rt.Spawn(func(tk *Task) {
		ch.Send("a")
		ch.Send("b")
	})
	rt.ExecuteTasks()

	require.Equal(t, []interface{}{"a", "b"}, got)
}

func TestSemaphoreAcquireMany(t *testing.T) {
	rt := New()
	sem := NewSemaphore(rt, 0)
	acquired := false

	rt.Spawn(func(tk *Task) {
		sem.AcquireMany(tk, 3)
		acquired = true
	})
	rt.ExecuteTasks()
	require.False(t, acquired)

	rt.Spawn(func(tk *Task) {
		sem.Release(2)
	})
	rt.ExecuteTasks()
	require.False(t, acquired)

	rt.Spawn(func(tk *Task) {
		sem.Release(1)
	})
	rt.ExecuteTasks()
	require.True(t, acquired)
}
