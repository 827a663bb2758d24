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

package trie

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

func keyOf(s string) Key {
	var k Key
	h := sha3.Sum256([]byte(s))
	copy(k[:], h[:])
	return k
}

func TestCoWIsolation(t *testing.T) {
	keyA := keyOf("key A")
	keyB := keyOf("key B")

	tree := New()
	tree.Insert(keyA, "A")
	frozen := tree.Freeze()

	clone := frozen.DeepClone()
	clone.Insert(keyB, "B")

	va, ok := frozen.Get(keyA)
	require.True(t, ok)
	require.Equal(t, "A", va)

	_, ok = frozen.Get(keyB)
	require.False(t, ok)

	vca, ok := clone.Get(keyA)
	require.True(t, ok)
	require.Equal(t, "A", vca)

	vcb, ok := clone.Get(keyB)
	require.True(t, ok)
	require.Equal(t, "B", vcb)
}

func TestInsertIdempotent(t *testing.T) {
	key := keyOf("idempotent")
	t1 := New()
	t1.Insert(key, "v")
	t1.Insert(key, "v")

	v, ok := t1.Get(key)
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestMultipleInsertsShareCommonPrefix(t *testing.T) {
	tree := New()
	for i, s := range []string{"alpha", "bravo", "charlie", "delta", "echo"} {
		tree.Insert(keyOf(s), i)
	}
	for i, s := range []string{"alpha", "bravo", "charlie", "delta", "echo"} {
		v, ok := tree.Get(keyOf(s))
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}

func TestGetMissingKey(t *testing.T) {
	tree := New()
	tree.Insert(keyOf("present"), 1)
	_, ok := tree.Get(keyOf("absent"))
	require.False(t, ok)
}
