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

// Package snowball implements the Snowball binary-consensus protocol
// (§7): every node starts out preferring one of two colors and
// repeatedly samples a random subset of its peers, shifting its
// preference toward whichever color more than queryThreshold (alpha)
// of the sampled peers answered with, until one color has won enough consecutive rounds to
// be considered decided.
//
// Grounded on simba/src/logic/snowball/{mod.rs,node.rs}: the query/
// response round structure, the d[]/cnt/lastcol bookkeeping of
// handle_sample_result, and the shared accept semaphore are ported
// directly, with tokio::sync::Semaphore and asim::sync::mpsc replaced
// by runtime.Semaphore and runtime.Channel (runtime/sync.go).
package snowball

// Color is a node's current candidate value. NewLogic starts every
// node on Red or Blue; a node still holding ColorEmpty adopts the
// color of the first query it receives.
type Color int

const (
	ColorEmpty Color = iota
	ColorRed
	ColorBlue
)

func (c Color) String() string {
	switch c {
	case ColorRed:
		return "red"
	case ColorBlue:
		return "blue"
	default:
		return "empty"
	}
}
