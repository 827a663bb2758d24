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

// VirtualTime is a monotone scalar in microseconds from an implicit
// START_TIME origin (§3). It advances only via the Runtime's scheduler,
// never via the wall clock.
type VirtualTime int64

// Duration is a non-negative delta in microseconds.
type Duration int64

// Add returns t advanced by d.
func (t VirtualTime) Add(d Duration) VirtualTime {
	return t + VirtualTime(d)
}

// Sub returns the delta between two virtual times.
func (t VirtualTime) Sub(other VirtualTime) Duration {
	return Duration(t - other)
}

const (
	Microsecond Duration = 1
	Millisecond          = 1000 * Microsecond
	Second               = 1000 * Millisecond
)
