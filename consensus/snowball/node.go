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
	"math/rand"

	"github.com/ground-x/simba/log"
	"github.com/ground-x/simba/network"
	"github.com/ground-x/simba/object"
	"github.com/ground-x/simba/runtime"
)

var logger = log.NewModuleLogger(log.Snowball)

// Logic is one node's Snowball protocol driver.
type Logic struct {
	self  object.ID
	index object.NodeIndex
	fab   *network.Fabric
	rt    *runtime.Runtime
	rng   *rand.Rand

	currentCandidate Color
	decided          bool
	responses        *runtime.Channel

	acceptanceThreshold uint32 // beta in the paper
	sampleSize          uint32 // k in the paper
	queryThreshold      uint32 // alpha in the paper

	// acceptSem is shared by every node in the run; each node releases
	// one permit the moment it decides, letting the driver block on
	// AcquireMany(numNodes) until the whole network has converged.
	acceptSem *runtime.Semaphore
}

// NewLogic builds a Snowball node driver seeded independently of every
// other node, for the deterministic initial-color draw and peer
// sampling (§7).
func NewLogic(self object.ID, index object.NodeIndex, fab *network.Fabric, rt *runtime.Runtime, seed int64,
	acceptanceThreshold, sampleSize, queryThreshold uint32, acceptSem *runtime.Semaphore) *Logic {

	rng := rand.New(rand.NewSource(seed))

	// 0/1/2 draw: two thirds of nodes start Red, one third start Blue.
	candidate := ColorRed
	if rng.Intn(3) == 2 {
		candidate = ColorBlue
	}

	logger.Debug("created snowball node", "node", index, "initial", candidate.String())

	return &Logic{
		self:                self,
		index:               index,
		fab:                 fab,
		rt:                  rt,
		rng:                 rng,
		currentCandidate:    candidate,
		responses:           runtime.NewChannel(rt),
		acceptanceThreshold: acceptanceThreshold,
		sampleSize:          sampleSize,
		queryThreshold:      queryThreshold,
		acceptSem:           acceptSem,
	}
}

// HandleMessage dispatches an inbound Snowball protocol message.
func (l *Logic) HandleMessage(source object.ID, msg network.Message) {
	switch m := msg.(type) {
	case Query:
		l.onQuery(source, m.Candidate)
	case QueryResponse:
		l.responses.Send(m.Candidate)
	}
}

// onQuery adopts the querying peer's candidate if this node has not
// seen one yet, then answers with its own.
func (l *Logic) onQuery(source object.ID, candidate Color) {
	if l.currentCandidate == ColorEmpty {
		l.currentCandidate = candidate
	}
	l.fab.SendTo(l.self, source, QueryResponse{Candidate: l.currentCandidate})
}

// startNextSample queries sampleSize distinct, uniformly chosen peers
// with this node's current candidate.
func (l *Logic) startNextSample() {
	peers := l.fab.Peers(l.self)
	if int(l.sampleSize) > len(peers) {
		panic("snowball: sample size exceeds peer count")
	}

	sampled := make([]object.ID, len(peers))
	copy(sampled, peers)
	l.rng.Shuffle(len(sampled), func(i, j int) { sampled[i], sampled[j] = sampled[j], sampled[i] })
	sampled = sampled[:l.sampleSize]

	for _, peer := range sampled {
		l.fab.SendTo(l.self, peer, Query{Candidate: l.currentCandidate})
	}
}

// handleSampleResult is handle_sample_result: it tallies one round's
// responses, shifts the current candidate toward whichever color
// cleared the query threshold most, and tracks how many consecutive
// rounds the same candidate has cleared it (acceptanceCount, cnt in
// the paper) to decide once acceptanceThreshold (beta) is reached.
func (l *Logic) handleSampleResult(results []Color, lastChosen Color,
	candidatePreference map[Color]uint32, acceptanceCount *uint32) Color {

	frequency := make(map[Color]int)
	for _, c := range results {
		frequency[c]++
	}

	majority := false
	for candidate, f := range frequency {
		if uint32(f) <= l.queryThreshold {
			continue
		}
		majority = true

		candidatePreference[candidate]++
		if candidatePreference[l.currentCandidate] < candidatePreference[candidate] {
			l.currentCandidate = candidate
		}

		if candidate == lastChosen {
			*acceptanceCount++
		} else {
			*acceptanceCount = 1
			lastChosen = candidate
		}

		if *acceptanceCount >= l.acceptanceThreshold {
			l.decided = true
			l.acceptSem.Release(1)
			logger.Trace("decided on color", "node", l.index, "color", l.currentCandidate.String())
		}
	}
	if !majority {
		*acceptanceCount = 0
	}
	return lastChosen
}

// Run drives the node's sampling rounds until it decides.
func (l *Logic) Run(t *runtime.Task) {
	candidatePreference := make(map[Color]uint32)
	lastChosen := l.currentCandidate
	var acceptanceCount uint32

	for {
		if l.currentCandidate == ColorEmpty {
			panic("snowball: node has no initial candidate")
		}
		if l.decided {
			logger.Trace("node decided", "node", l.index, "color", l.currentCandidate.String())
			return
		}

		l.startNextSample()

		responses := make([]Color, 0, l.sampleSize)
		for len(responses) < int(l.sampleSize) {
			responses = append(responses, l.responses.Recv(t).(Color))
		}

		lastChosen = l.handleSampleResult(responses, lastChosen, candidatePreference, &acceptanceCount)
	}
}
