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

const colorMessageSize = 1

// Query asks the recipient for its current candidate color, telling it
// the sender's own candidate in the same message.
type Query struct{ Candidate Color }

func (Query) Size() int { return colorMessageSize }

// QueryResponse answers a Query with the responder's candidate color.
type QueryResponse struct{ Candidate Color }

func (QueryResponse) Size() int { return colorMessageSize }
