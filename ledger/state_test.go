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

package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ground-x/simba/object"
)

func TestStateApplyAdvancesNonce(t *testing.T) {
	s := NewState()
	acct := object.New()

	s.Apply(&Transaction{ID: object.New(), SourceAccount: acct, Nonce: 0})
	require.EqualValues(t, 1, s.Get(acct).Nonce)

	s.Apply(&Transaction{ID: object.New(), SourceAccount: acct, Nonce: 4})
	require.EqualValues(t, 5, s.Get(acct).Nonce)
}

func TestFrozenStateIsolatesClones(t *testing.T) {
	s := NewState()
	acctA := object.New()
	acctB := object.New()

	s.Set(acctA, AccountState{Balance: 10})
	frozen := s.Freeze()

	clone := CloneFrom(frozen)
	clone.Set(acctB, AccountState{Balance: 20})

	require.EqualValues(t, 10, frozen.Get(acctA).Balance)
	require.EqualValues(t, 0, frozen.Get(acctB).Balance)
	require.EqualValues(t, 10, clone.Get(acctA).Balance)
	require.EqualValues(t, 20, clone.Get(acctB).Balance)
}

func TestTransactionSize(t *testing.T) {
	tx := NewTransaction(object.New(), 0)
	require.Equal(t, wireTxSize, tx.Size())
}
