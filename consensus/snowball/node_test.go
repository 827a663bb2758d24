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

package snowball

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ground-x/simba/network"
	"github.com/ground-x/simba/object"
	"github.com/ground-x/simba/runtime"
)

func wireCluster(t *testing.T, rt *runtime.Runtime, n int, sampleSize, queryThreshold, acceptanceThreshold uint32) (logics []*Logic, sem *runtime.Semaphore) {
	t.Helper()

	ids := make([]object.ID, n)
	for i := range ids {
		ids[i] = object.New()
	}
	fab := network.NewFabric(rt)
	sem = runtime.NewSemaphore(rt, 0)

	logics = make([]*Logic, n)
	nodes := make([]*network.Node, n)
	for i := 0; i < n; i++ {
		idx := i
		nodes[i] = network.NewNode(object.NodeIndex(idx), network.Location{}, 0, func(source object.ID, msg network.Message) {
			logics[idx].HandleMessage(source, msg)
		})
		nodes[i].ID = ids[idx]
		fab.AddNode(nodes[i])
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			fab.Connect(nodes[i], nodes[j], runtime.Millisecond, 0, nil)
		}
	}
	for i := 0; i < n; i++ {
		logics[i] = NewLogic(ids[i], object.NodeIndex(i), fab, rt, int64(i+1), acceptanceThreshold, sampleSize, queryThreshold, sem)
	}
	return logics, sem
}

func TestParamsDerivesSampleAndQueryThreshold(t *testing.T) {
	sampleSize, queryThreshold := Params(10, 0.5, 0.6)
	require.EqualValues(t, 5, sampleSize)
	require.EqualValues(t, 3, queryThreshold)
}

func TestParamsPanicsWhenSampleExceedsNodeCount(t *testing.T) {
	require.Panics(t, func() {
		Params(4, 2.0, 0.5)
	})
}

func TestClusterAcceptSemaphoreCountsDecidedNodes(t *testing.T) {
	rt := runtime.New()
	n := 6
	logics, sem := wireCluster(t, rt, n, 4, 2, 3)

	for _, l := range logics {
		rt.Spawn(func(t *runtime.Task) { l.Run(t) })
	}
	rt.Run(func() bool { return rt.Alive() == 0 })

	accepted := 0
	for _, l := range logics {
		if l.decided {
			accepted++
		}
	}
	require.LessOrEqual(t, accepted, n)

	done := false
	rt.Spawn(func(t *runtime.Task) {
		sem.AcquireMany(t, n)
		done = true
	})
	rt.ExecuteTasks()
	require.Equal(t, accepted == n, done)
}

func TestOnQueryAdoptsCandidateWhenEmpty(t *testing.T) {
	rt := runtime.New()
	logics, _ := wireCluster(t, rt, 3, 2, 1, 2)
	logics[0].currentCandidate = ColorEmpty

	logics[0].onQuery(logics[1].self, ColorBlue)
	require.Equal(t, ColorBlue, logics[0].currentCandidate)
}
