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

package gossip

import "github.com/ground-x/simba/object"

const controlMessageSize = 16

// NotifyNewBlock announces a newly learned block id without its
// contents.
type NotifyNewBlock struct{ BlockID object.BlockID }

func (NotifyNewBlock) Size() int { return controlMessageSize }

// GetBlock requests the full contents of a block by id.
type GetBlock struct{ BlockID object.BlockID }

func (GetBlock) Size() int { return controlMessageSize }

// SendBlock carries a full block in response to GetBlock.
type SendBlock struct{ Block *Block }

func (m SendBlock) Size() int { return m.Block.Size() }
