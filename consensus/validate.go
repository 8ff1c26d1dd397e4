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
	"fmt"

	"github.com/vesperchain/go-vesper/core"
	"github.com/vesperchain/go-vesper/core/types"
	"github.com/vesperchain/go-vesper/params"
)

// CheckProofOfWork verifies that the header hash satisfies its claimed
// compact target and that the target itself lies in (0, powLimit].
func CheckProofOfWork(header *types.BlockHeader, powLimitBits uint32) error {
	target, negative, overflow := types.CompactToTarget(header.Bits)
	if negative {
		return ruleError(ErrUnexpectedDifficulty, fmt.Sprintf("target from bits %08x is negative", header.Bits))
	}
	if overflow {
		return ruleError(ErrUnexpectedDifficulty, fmt.Sprintf("target from bits %08x overflows 256 bits", header.Bits))
	}
	if target.IsZero() {
		return ruleError(ErrUnexpectedDifficulty, fmt.Sprintf("target from bits %08x is zero", header.Bits))
	}
	powLimit, _, _ := types.CompactToTarget(powLimitBits)
	if target.Cmp(powLimit) > 0 {
		return ruleError(ErrUnexpectedDifficulty, fmt.Sprintf("target %s above limit %s", target.Hex(), powLimit.Hex()))
	}
	if hashNum := types.HashToTarget(header.Hash()); hashNum.Cmp(target) > 0 {
		return ruleError(ErrHighHash, fmt.Sprintf("hash %s above target %s", hashNum.Hex(), target.Hex()))
	}
	return nil
}

// ValidateHeader applies all header rules to a candidate extending the
// view's tip: version floor, required difficulty, proof of work and the
// median-time-past bound. The view must be rooted at the candidate's parent.
func ValidateHeader(cfg *params.ChainConfig, view *core.AncestryView, header *types.BlockHeader) error {
	if header.Version < cfg.MinBlockVersion {
		return ruleError(ErrBlockVersionTooOld, fmt.Sprintf("version %d below minimum %d", header.Version, cfg.MinBlockVersion))
	}
	expected, err := CalcNextRequiredBits(cfg, view)
	if err != nil {
		return err
	}
	if header.Bits != expected {
		return ruleError(ErrUnexpectedDifficulty, fmt.Sprintf("claimed bits %08x, required %08x", header.Bits, expected))
	}
	if err := CheckProofOfWork(header, cfg.PowLimitBits); err != nil {
		return err
	}
	if mtp := view.MedianTimePast(cfg.MedianTimeBlocks); header.Timestamp <= mtp {
		return ruleError(ErrTimeTooOld, fmt.Sprintf("timestamp %d not after median time %d", header.Timestamp, mtp))
	}
	return nil
}

// ValidateBlockStructure applies the context-free block rules: at least one
// transaction, serialized size within the cap, and a header commitment that
// matches the transactions.
func ValidateBlockStructure(block *types.Block) error {
	txs := block.Transactions()
	if len(txs) == 0 {
		return ruleError(ErrNoTransactions, "block has no transactions")
	}
	if size := block.SerializedLen(); size > types.MaxBlockSize {
		return ruleError(ErrBlockTooBig, fmt.Sprintf("serialized size %d above limit %d", size, types.MaxBlockSize))
	}
	header := block.Header()
	if root := CalcMerkleRoot(txs); root != header.MerkleRoot {
		return ruleError(ErrBadMerkleRoot, fmt.Sprintf("computed %s, header commits %s", root, header.MerkleRoot))
	}
	return nil
}

// ValidateBlockContext applies the positional rules to a block extending the
// view's tip. It subsumes ValidateHeader on the block's header; transaction
// level context (spends, scripts) is outside this library.
func ValidateBlockContext(cfg *params.ChainConfig, view *core.AncestryView, block *types.Block) error {
	header := block.Header()
	return ValidateHeader(cfg, view, &header)
}
