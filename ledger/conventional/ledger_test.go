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

package conventional

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ground-x/simba/ledger"
	"github.com/ground-x/simba/object"
)

func TestAddTransactionRejectsDuplicate(t *testing.T) {
	l := NewNodeLedger()
	tx := ledger.NewTransaction(object.New(), 0)

	require.True(t, l.AddTransaction(tx))
	require.False(t, l.AddTransaction(tx))
	require.Equal(t, 1, l.MempoolSize())
}

func TestTransactionsFromMempoolDrainsUpToLimit(t *testing.T) {
	l := NewNodeLedger()
	for i := 0; i < 5; i++ {
		l.AddTransaction(ledger.NewTransaction(object.New(), uint64(i)))
	}

	batch := l.TransactionsFromMempool(3)
	require.Len(t, batch, 3)
	require.Equal(t, 2, l.MempoolSize())
}

func TestMarkAcceptedCounts(t *testing.T) {
	b := NewBlock(GenesisID, 0, object.New(), nil, nil, 0)
	require.EqualValues(t, 0, b.AcceptCount())
	b.MarkAccepted()
	b.MarkAccepted()
	require.EqualValues(t, 2, b.AcceptCount())
}

func TestGlobalLedgerLatestCommitPanicsBeforeAnyCommit(t *testing.T) {
	g := NewGlobalLedger()
	require.Panics(t, func() { g.LatestCommit() })

	g.SetLatestCommit(object.New())
	require.NotPanics(t, func() { g.LatestCommit() })
}
