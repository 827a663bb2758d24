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

package simulation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapLibraryRoundTrip(t *testing.T) {
	lib := NewMapLibrary()
	lib.AddProtocol(Protocol{Name: "pow", Kind: NakamotoConsensus})
	lib.AddNetwork(Network{Name: "small", Kind: RandomNetwork, NumMining: 5})
	lib.AddExperiment("sweep", Experiment{ProtocolName: "pow", NetworkName: "small"})
	lib.AddTest("smoke", Test{ProtocolName: "pow", NetworkName: "small"})

	p, err := lib.Protocol("pow")
	require.NoError(t, err)
	require.Equal(t, NakamotoConsensus, p.Kind)

	n, err := lib.Network("small")
	require.NoError(t, err)
	require.EqualValues(t, 5, n.NumMining)

	e, err := lib.Experiment("sweep")
	require.NoError(t, err)
	require.Equal(t, "pow", e.ProtocolName)

	ts, err := lib.Test("smoke")
	require.NoError(t, err)
	require.Equal(t, "small", ts.NetworkName)
}

func TestMapLibraryUnknownName(t *testing.T) {
	lib := NewMapLibrary()

	_, err := lib.Protocol("missing")
	require.Error(t, err)

	_, err = lib.Network("missing")
	require.Error(t, err)

	_, err = lib.Experiment("missing")
	require.Error(t, err)

	_, err = lib.Test("missing")
	require.Error(t, err)
}
