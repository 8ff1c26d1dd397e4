// Copyright 2023 The go-vesper Authors
// This file is part of the go-vesper library.
//
// The go-vesper library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-vesper library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-vesper library. If not, see <http://www.gnu.org/licenses/>.

// Package params holds the compiled-in chain configurations.
package params

import "time"

// ChainConfig is the set of consensus parameters the rule predicates need.
// Configs are compiled in; embedding nodes pick one (or define their own) and
// pass it down, they are never loaded from disk.
type ChainConfig struct {
	// PowLimitBits is the compact encoding of the highest admissible proof of
	// work target, i.e. the minimum difficulty.
	PowLimitBits uint32

	// TargetTimespan is the wall-clock length of one difficulty retarget
	// window.
	TargetTimespan time.Duration

	// TargetSpacing is the desired interval between blocks.
	TargetSpacing time.Duration

	// RetargetAdjustmentFactor caps how far a single retarget may move the
	// difficulty in either direction.
	RetargetAdjustmentFactor int64

	// MedianTimeBlocks is the number of most recent headers whose timestamp
	// median bounds a candidate timestamp from below.
	MedianTimeBlocks int

	// MinBlockVersion is the lowest header version accepted.
	MinBlockVersion int32
}

// RetargetInterval returns the number of blocks between difficulty
// recalculations.
func (c *ChainConfig) RetargetInterval() uint64 {
	return uint64(c.TargetTimespan / c.TargetSpacing)
}

// MainnetChainConfig mirrors the production network schedule: two-week
// retarget windows at ten-minute spacing.
var MainnetChainConfig = &ChainConfig{
	PowLimitBits:             0x1d00ffff,
	TargetTimespan:           14 * 24 * time.Hour,
	TargetSpacing:            10 * time.Minute,
	RetargetAdjustmentFactor: 4,
	MedianTimeBlocks:         11,
	MinBlockVersion:          1,
}

// RegressionChainConfig accepts near-trivial proof of work so tests can mine
// headers in a handful of nonce attempts.
var RegressionChainConfig = &ChainConfig{
	PowLimitBits:             0x207fffff,
	TargetTimespan:           14 * 24 * time.Hour,
	TargetSpacing:            10 * time.Minute,
	RetargetAdjustmentFactor: 4,
	MedianTimeBlocks:         11,
	MinBlockVersion:          1,
}
