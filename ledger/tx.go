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

// Package ledger holds the data shared by every protocol's chain state:
// transactions, account state, and the state-hashing helper that binds
// account identifiers into the copy-on-write trie of package trie.
package ledger

import (
	"github.com/ground-x/simba/object"
)

// wireTxSize is the constant wire size of a Transaction: 2 hashes (id,
// source account) + 5 numbers (nonce and framing) + a modeled
// signature, 59 bytes total (§3). Signatures are never actually
// verified — only their size is simulated (§1 Non-goals).
const wireTxSize = 59

// Transaction is immutable after construction (§3).
type Transaction struct {
	ID            object.TxID
	SourceAccount object.AccountID
	Nonce         uint64
}

// NewTransaction mints a transaction with a fresh random id.
func NewTransaction(source object.AccountID, nonce uint64) *Transaction {
	return &Transaction{ID: object.New(), SourceAccount: source, Nonce: nonce}
}

// Size implements network.Message.
func (tx *Transaction) Size() int {
	return wireTxSize
}

// AccountState is the value stored in the CoW trie, keyed by account
// id (§3). Nonce is one past the highest transaction nonce applied
// against the account (see State.Apply).
type AccountState struct {
	Balance uint64
	Nonce   uint64
}
