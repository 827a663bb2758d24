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

// Message is anything a node can send over a Link. Wire-size is fixed
// per message kind (§3: a Transaction is a constant 59 bytes; blocks
// vary with their transaction count) so protocols report it explicitly
// rather than this package trying to serialize payloads.
type Message interface {
	// Size returns the wire size in bytes used to compute transfer
	// time over a bandwidth-limited Link (§4.2).
	Size() int
}
