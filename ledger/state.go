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
	"golang.org/x/crypto/sha3"

	"github.com/ground-x/simba/object"
	"github.com/ground-x/simba/trie"
)

// AccountKey derives the 256-bit trie key an account id is stored
// under. Account ids are 128 bits (object.ID); the trie wants 256-bit
// keys, so the id is hashed the way klaytn derives trie keys from
// 160-bit addresses.
func AccountKey(id object.AccountID) trie.Key {
	var k trie.Key
	h := sha3.Sum256(id[:])
	copy(k[:], h[:])
	return k
}

// State is per-block account state: a CoW trie of AccountState keyed
// by AccountKey. A Nakamoto or Conventional block owns a FrozenState
// once minted; a Nakamoto node derives the next block's state from a
// DeepClone of its parent's FrozenState (§4.3, §4.4).
type State struct {
	tree *trie.Tree
}

// NewState creates empty account state (the genesis state).
func NewState() *State {
	return &State{tree: trie.New()}
}

// CloneFrom builds mutable state derived from a frozen parent state.
func CloneFrom(frozen *FrozenState) *State {
	return &State{tree: frozen.tree.DeepClone()}
}

// Get returns the account state for id, or the zero value if unset.
func (s *State) Get(id object.AccountID) AccountState {
	v, ok := s.tree.Get(AccountKey(id))
	if !ok {
		return AccountState{}
	}
	return v.(AccountState)
}

// Set installs acct's new state.
func (s *State) Set(id object.AccountID, acct AccountState) {
	s.tree.Insert(AccountKey(id), acct)
}

// Apply advances the source account's nonce to tx.Nonce+1 when
// tx.Nonce is not below the stored nonce; the balance is left
// untouched. The simulator does not model a recipient, only the
// source account's nonce (§3 Non-goals: no real ledger semantics,
// only enough state to exercise the trie).
func (s *State) Apply(tx *Transaction) {
	acct := s.Get(tx.SourceAccount)
	if tx.Nonce >= acct.Nonce {
		acct.Nonce = tx.Nonce + 1
	}
	s.Set(tx.SourceAccount, acct)
}

// Freeze converts s into a shareable FrozenState. s must not be used
// again afterwards.
func (s *State) Freeze() *FrozenState {
	return &FrozenState{tree: s.tree.Freeze()}
}

// FrozenState is the immutable account state a minted block carries.
type FrozenState struct {
	tree *trie.FrozenTree
}

// Get returns the account state for id, or the zero value if unset.
func (f *FrozenState) Get(id object.AccountID) AccountState {
	v, ok := f.tree.Get(AccountKey(id))
	if !ok {
		return AccountState{}
	}
	return v.(AccountState)
}
