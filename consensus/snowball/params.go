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

import "math"

// Params derives Snowball's sample size (k in the paper) and query
// threshold (alpha) from fractions of the network size, matching
// SnowballGlobalLogic::instantiate. It panics if the resulting sample
// size would exceed the number of nodes, since a node cannot sample
// more peers than it has.
func Params(numNodes uint32, sampleSizeWeighted, queryThresholdWeighted float64) (sampleSize, queryThreshold uint32) {
	sampleSize = uint32(math.Ceil(float64(numNodes) * sampleSizeWeighted))
	queryThreshold = uint32(math.Ceil(float64(sampleSize) * queryThresholdWeighted))

	if sampleSize > numNodes {
		panic("snowball: sample size exceeds node count")
	}
	return sampleSize, queryThreshold
}
