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

	checker "gopkg.in/check.v1"
)

// A second test suite in the gocheck style, alongside the testify-based
// tests in trie_test.go; it is the only gocheck suite in this
// repository.

func TestGocheck(t *testing.T) { checker.TestingT(t) }

type TrieSuite struct{}

var _ = checker.Suite(&TrieSuite{})

func (s *TrieSuite) TestFreezeIsStable(c *checker.C) {
	key := keyOf("stable")
	tree := New()
	tree.Insert(key, 42)
	frozen := tree.Freeze()

	v, ok := frozen.Get(key)
	c.Assert(ok, checker.Equals, true)
	c.Assert(v, checker.Equals, 42)

	clone := frozen.DeepClone()
	clone.Insert(keyOf("other"), 7)

	// Mutating the clone must never perturb the frozen source.
	v2, ok := frozen.Get(key)
	c.Assert(ok, checker.Equals, true)
	c.Assert(v2, checker.Equals, 42)
}
