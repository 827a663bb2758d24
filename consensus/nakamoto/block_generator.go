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

// Package nakamoto drives the Nakamoto (longest-chain) protocol:
// block generation (PoW or Ouroboros), block/transaction propagation,
// and reacting to a node's ledger telling it the chain head moved
// (§4.4). The chain-storage half of the protocol lives in
// ledger/nakamoto; this package is the per-node behavior on top of it.
//
// Difficulty is represented as a *big.Int, matching how difficulty and
// gas targets are represented throughout blockchain/ and params/
// (math/big, not a fixed-width uint256).
package nakamoto

import (
	"math/big"
	"math/rand"

	"github.com/ground-x/simba/object"
	"github.com/ground-x/simba/runtime"
)

// BlockGenerator decides when a node should attempt to mine the next
// block, and how difficulty reacts to how fast the chain has been
// growing.
type BlockGenerator interface {
	ShouldCreateBlock(idx object.NodeIndex) bool
	Difficulty() *big.Int
	Resolution() runtime.Duration
	UpdateChainHead(newBlock, parentBlock BlockTimeInfo)
}

// BlockTimeInfo is the minimal view a BlockGenerator needs of a block
// to adjust difficulty: its height, creation time, and the difficulty
// it was mined under. nakamotoBlockAdapter (in node.go) implements
// this over a *nakamotoledger.Block.
type BlockTimeInfo interface {
	BlockHeight() uint64
	BlockCreationTime() runtime.VirtualTime
	BlockDifficulty() *big.Int
}

var maxDiffTarget = new(big.Int).Lsh(big.NewInt(1), 256)

// DifficultyAdjustment selects how ProofOfWork retargets after each
// block.
type DifficultyAdjustment int

const (
	// PeriodBased recomputes only every windowSize blocks; the
	// recompute step itself is unimplemented, so difficulty is left
	// unchanged.
	PeriodBased DifficultyAdjustment = iota
	// EthereumHomestead retargets every block by the Homestead
	// formula, ignoring the difficulty bomb (§4.4 Non-goals).
	EthereumHomestead
)

// proofOfWork is the PoW BlockGenerator: should_create_block draws a
// uniform random 256-bit value and compares it against a difficulty
// target, and update_chain_head retargets using the elapsed time
// since the parent block.
type proofOfWork struct {
	rng                  *rand.Rand
	targetBlockInterval  runtime.Duration
	adjustment           DifficultyAdjustment
	windowSize           uint64
	difficulty           *big.Int
	difficultyTarget     *big.Int
}

// NewProofOfWork builds a PoW block generator with the given initial
// difficulty and retarget policy.
func NewProofOfWork(seed int64, targetBlockInterval runtime.Duration, adjustment DifficultyAdjustment,
	windowSize uint64, initialDifficulty *big.Int) BlockGenerator {
	return &proofOfWork{
		rng:                 rand.New(rand.NewSource(seed)),
		targetBlockInterval: targetBlockInterval,
		adjustment:          adjustment,
		windowSize:          windowSize,
		difficulty:          new(big.Int).Set(initialDifficulty),
		difficultyTarget:    diffTargetFor(initialDifficulty),
	}
}

func diffTargetFor(difficulty *big.Int) *big.Int {
	if difficulty.Sign() == 0 {
		return new(big.Int).Set(maxDiffTarget)
	}
	return new(big.Int).Div(maxDiffTarget, difficulty)
}

// randomUint256 draws a uniform random value in [0, 2^256).
func (p *proofOfWork) randomUint256() *big.Int {
	buf := make([]byte, 32)
	p.rng.Read(buf)
	return new(big.Int).SetBytes(buf)
}

func (p *proofOfWork) ShouldCreateBlock(object.NodeIndex) bool {
	// TODO weight by the node's modeled compute power, not just a
	// flat per-node draw.
	return p.randomUint256().Cmp(p.difficultyTarget) < 0
}

func (p *proofOfWork) Difficulty() *big.Int { return new(big.Int).Set(p.difficulty) }

func (p *proofOfWork) Resolution() runtime.Duration { return 100 * runtime.Millisecond }

func (p *proofOfWork) UpdateChainHead(newBlock, parentBlock BlockTimeInfo) {
	var elapsedSeconds int64
	if parentBlock != nil {
		elapsedSeconds = int64(newBlock.BlockCreationTime().Sub(parentBlock.BlockCreationTime())) / int64(runtime.Second)
	} else {
		elapsedSeconds = int64(newBlock.BlockCreationTime()) / int64(runtime.Second)
	}

	switch p.adjustment {
	case PeriodBased:
		if p.windowSize != 0 && newBlock.BlockHeight()%p.windowSize == 0 {
			logger.Debug("recomputing difficulty target")
		}
		return
	case EthereumHomestead:
		p.difficulty = homesteadRetarget(newBlock.BlockDifficulty(), elapsedSeconds, int64(p.targetBlockInterval)/int64(runtime.Second))
		p.difficultyTarget = diffTargetFor(p.difficulty)
	}
}

// homesteadRetarget implements the Ethereum Homestead difficulty
// formula, ignoring the difficulty bomb (§4 Non-goals): the parent's
// difficulty, adjusted by parent/2048 scaled by how far the block
// interval missed its target, clamped to [-99, +inf) multiples.
func homesteadRetarget(parentDiff *big.Int, elapsedSeconds, targetIntervalSeconds int64) *big.Int {
	targetRounded := (targetIntervalSeconds / 10) * 10
	if targetRounded == 0 {
		targetRounded = 1
	}

	sign := big.NewInt(1 - elapsedSeconds/targetRounded)
	if sign.Cmp(big.NewInt(-99)) < 0 {
		sign = big.NewInt(-99)
	}

	change := new(big.Int).Div(parentDiff, big.NewInt(2048))
	change.Mul(change, sign)

	result := new(big.Int).Add(parentDiff, change)
	if result.Sign() < 0 {
		logger.Warn("reached minimum difficulty")
		return big.NewInt(0)
	}
	return result
}

// ouroboros is a simplified Ouroboros generator: it elects the creator
// of the next block as (previous block's height + 1) mod numNodes, i.e.
// the height of the block about to be created (0 while there is no
// head yet), rather than implementing a VRF-based leader schedule (§4 Non-goals: no
// proper leader schedule). The election key is the chain's own height,
// not a wall-clock slot counter, so a node only proposes once its
// local view of the head has advanced to the height that elects it.
type ouroboros struct {
	slotLength  runtime.Duration
	numNodes    uint32
	headHeight  uint64
	haveHead    bool
}

// NewOuroboros builds a height-elected Ouroboros block generator.
func NewOuroboros(numNodes uint32, slotLength runtime.Duration) BlockGenerator {
	return &ouroboros{slotLength: slotLength, numNodes: numNodes}
}

func (o *ouroboros) ShouldCreateBlock(idx object.NodeIndex) bool {
	var nextHeight uint64
	if o.haveHead {
		nextHeight = o.headHeight + 1
	}
	return idx == object.NodeIndex(nextHeight%uint64(o.numNodes))
}

func (o *ouroboros) Difficulty() *big.Int { return big.NewInt(0) }

func (o *ouroboros) Resolution() runtime.Duration { return o.slotLength }

func (o *ouroboros) UpdateChainHead(newBlock, _ BlockTimeInfo) {
	o.headHeight = newBlock.BlockHeight()
	o.haveHead = true
}
