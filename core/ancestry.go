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

package core

import "sort"

// AncestryView is an immutable, height-indexed view of the ancestors of one
// tip. Rule predicates consume it to reach timestamps and targets on the
// path from genesis to the header under validation.
//
// A view is a snapshot: it stays well-defined across later insertions and
// reorgs, but does not follow the heaviest tip. Consumers that need the
// current heaviest chain reacquire a view under the shared lock.
type AncestryView struct {
	chain []*headerNode // height -> node, genesis through tip
}

// Height returns the tip height of the view.
func (v *AncestryView) Height() uint64 {
	return uint64(len(v.chain) - 1)
}

// Tip returns the context of the view's tip. The context must be treated as
// read-only.
func (v *AncestryView) Tip() *HeaderContext {
	return &v.chain[len(v.chain)-1].ctx
}

// Ancestor returns the context of the ancestor at the given height, from 0
// (genesis) through Height (the tip itself).
func (v *AncestryView) Ancestor(height uint64) (*HeaderContext, error) {
	if height >= uint64(len(v.chain)) {
		return nil, ErrHeightRange
	}
	return &v.chain[height].ctx, nil
}

// TimestampAt returns the timestamp of the ancestor at the given height.
func (v *AncestryView) TimestampAt(height uint64) (uint32, error) {
	ctx, err := v.Ancestor(height)
	if err != nil {
		return 0, err
	}
	return ctx.Header.Timestamp, nil
}

// BitsAt returns the compact target of the ancestor at the given height.
func (v *AncestryView) BitsAt(height uint64) (uint32, error) {
	ctx, err := v.Ancestor(height)
	if err != nil {
		return 0, err
	}
	return ctx.Header.Bits, nil
}

// LastNTimestamps returns the timestamps of the last n-1 blocks ending at
// and including the tip, oldest first. The window is clamped at genesis, so
// the result holds min(n-1, Height+1) entries; n of one or less yields an
// empty result.
func (v *AncestryView) LastNTimestamps(n int) []uint32 {
	if n <= 1 {
		return nil
	}
	count := n - 1
	if count > len(v.chain) {
		count = len(v.chain)
	}
	out := make([]uint32, 0, count)
	for _, node := range v.chain[len(v.chain)-count:] {
		out = append(out, node.ctx.Header.Timestamp)
	}
	return out
}

// MedianTimePast returns the median timestamp of the last window blocks
// ending at and including the tip. Fewer blocks than the window near genesis
// shrink the sample rather than fail.
func (v *AncestryView) MedianTimePast(window int) uint32 {
	if window < 1 {
		window = 1
	}
	if window > len(v.chain) {
		window = len(v.chain)
	}
	stamps := make([]uint32, 0, window)
	for _, node := range v.chain[len(v.chain)-window:] {
		stamps = append(stamps, node.ctx.Header.Timestamp)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })
	return stamps[len(stamps)/2]
}
