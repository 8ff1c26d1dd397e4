// Copyright 2024 The go-vesper Authors
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

package consensus

import (
	"math/bits"
	"time"

	"github.com/holiman/uint256"

	"github.com/vesperchain/go-vesper/core"
	"github.com/vesperchain/go-vesper/core/types"
	"github.com/vesperchain/go-vesper/params"
)

// CalcNextRequiredBits returns the compact target a block extending the
// view's tip must claim. Between retarget boundaries the difficulty carries
// over unchanged. At a boundary the target scales with the actual duration
// of the closed window, clamped to the adjustment factor in both directions
// and floored at the proof-of-work limit.
func CalcNextRequiredBits(cfg *params.ChainConfig, view *core.AncestryView) (uint32, error) {
	prevBits := view.Tip().Header.Bits
	nextHeight := view.Height() + 1
	interval := cfg.RetargetInterval()
	if interval == 0 || nextHeight%interval != 0 {
		return prevBits, nil
	}

	firstStamp, err := view.TimestampAt(nextHeight - interval)
	if err != nil {
		return 0, err
	}
	lastStamp := view.Tip().Header.Timestamp

	targetTimespan := int64(cfg.TargetTimespan / time.Second)
	actual := int64(lastStamp) - int64(firstStamp)
	if min := targetTimespan / cfg.RetargetAdjustmentFactor; actual < min {
		actual = min
	}
	if max := targetTimespan * cfg.RetargetAdjustmentFactor; actual > max {
		actual = max
	}

	oldTarget, _, _ := types.CompactToTarget(prevBits)
	newTarget := new(uint256.Int)
	if oldTarget.BitLen()+bits.Len64(uint64(actual)) > 256 {
		// Scaling up first would wrap 256 bits; divide first and accept the
		// rounding, the clamp to the pow limit dominates anyway.
		newTarget.Div(oldTarget, uint256.NewInt(uint64(targetTimespan)))
		newTarget.Mul(newTarget, uint256.NewInt(uint64(actual)))
	} else {
		newTarget.Mul(oldTarget, uint256.NewInt(uint64(actual)))
		newTarget.Div(newTarget, uint256.NewInt(uint64(targetTimespan)))
	}

	powLimit, _, _ := types.CompactToTarget(cfg.PowLimitBits)
	if newTarget.Cmp(powLimit) > 0 {
		newTarget.Set(powLimit)
	}
	return types.TargetToCompact(newTarget), nil
}
