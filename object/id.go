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

// Package object defines the opaque 128-bit identifiers shared by every
// layer of the simulator: object ids, transaction ids, block ids, and
// account ids, plus the small integer NodeIndex. Identifiers are drawn uniformly at random on
// construction and assumed collision-free (§3).
package object

import (
	uuid "github.com/satori/go.uuid"
)

// ID is a 128-bit opaque identifier. The zero value is never produced
// by New and is reserved to mean "absent" (e.g. a genesis block's
// parent id).
type ID [16]byte

// New draws a fresh, uniformly random identifier.
func New() ID {
	var id ID
	copy(id[:], uuid.NewV4().Bytes())
	return id
}

// IsNil reports whether id is the zero value.
func (id ID) IsNil() bool {
	return id == ID{}
}

func (id ID) String() string {
	return uuid.FromBytesOrNil(id[:]).String()
}

// TxID, BlockID and AccountID are aliases of ID: they name the role an
// identifier plays at a call site, but the compiler treats all three
// as the same type and does not catch id-class confusion.
type (
	TxID      = ID
	BlockID   = ID
	AccountID = ID
)

// NodeIndex is the contiguous unsigned index assigned to a node during
// scene construction — distinct from the 128-bit random identifiers.
type NodeIndex uint32
