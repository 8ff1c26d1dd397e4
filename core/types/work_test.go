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

package types

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/vesperchain/go-vesper/common"
)

func TestCompactToTarget(t *testing.T) {
	t.Parallel()
	for _, tt := range []struct {
		bits     uint32
		want     *uint256.Int
		negative bool
		overflow bool
	}{
		// Exponent 3: the mantissa is the value.
		{0x03123456, uint256.NewInt(0x123456), false, false},
		// Exponent above 3 shifts up by whole bytes.
		{0x04123456, uint256.NewInt(0x12345600), false, false},
		// Exponents below 3 shift down.
		{0x02123456, uint256.NewInt(0x1234), false, false},
		{0x01123456, uint256.NewInt(0x12), false, false},
		{0x00123456, uint256.NewInt(0), false, false},
		// The production pow limit.
		{0x1d00ffff, new(uint256.Int).Lsh(uint256.NewInt(0xffff), 208), false, false},
		// Sign bit with non-zero mantissa is negative.
		{0x04923456, uint256.NewInt(0x12345600), true, false},
		// Sign bit with zero mantissa is just zero.
		{0x00800000, uint256.NewInt(0), false, false},
		// Mantissa pushed past bit 255 overflows.
		{0xff123456, nil, false, true},
	} {
		target, negative, overflow := CompactToTarget(tt.bits)
		require.Equal(t, tt.negative, negative, "bits %08x", tt.bits)
		require.Equal(t, tt.overflow, overflow, "bits %08x", tt.bits)
		if !tt.overflow && tt.want != nil {
			require.Zero(t, tt.want.Cmp(target), "bits %08x: target %s", tt.bits, target.Hex())
		}
	}
}

func TestTargetCompactRoundTrip(t *testing.T) {
	t.Parallel()
	for _, bits := range []uint32{0x1d00ffff, 0x207fffff, 0x1b0404cb, 0x03123456, 0x04123456} {
		target, negative, overflow := CompactToTarget(bits)
		require.False(t, negative)
		require.False(t, overflow)
		require.Equal(t, bits, TargetToCompact(target), "bits %08x", bits)
	}
	require.Equal(t, uint32(0), TargetToCompact(uint256.NewInt(0)))

	// A mantissa whose top bit would collide with the sign bit is bumped
	// into the next exponent.
	target := uint256.NewInt(0x800000)
	require.Equal(t, uint32(0x04008000), TargetToCompact(target))
	back, _, _ := CompactToTarget(0x04008000)
	require.Zero(t, back.Cmp(target))
}

func TestWorkFromBits(t *testing.T) {
	t.Parallel()
	// target 1 -> 2^256 / 2 = 2^255.
	work := WorkFromBits(0x01010000)
	one, _, _ := CompactToTarget(0x01010000)
	require.Zero(t, one.Cmp(uint256.NewInt(1)))
	want := new(uint256.Int).Lsh(uint256.NewInt(1), 255)
	require.Zero(t, want.Cmp(work))

	// Invalid targets carry no work.
	require.True(t, WorkFromBits(0x00000000).IsZero())
	require.True(t, WorkFromBits(0xff123456).IsZero())

	// Harder targets mean strictly more work.
	easy := WorkFromBits(0x207fffff)
	hard := WorkFromBits(0x1d00ffff)
	require.Negative(t, easy.Cmp(hard))
	require.False(t, easy.IsZero())
}

func TestHashToTarget(t *testing.T) {
	t.Parallel()
	// The hash is a little-endian number: the last byte is the most
	// significant.
	var h common.Hash
	h[31] = 0x01
	require.Zero(t, new(uint256.Int).Lsh(uint256.NewInt(1), 248).Cmp(HashToTarget(h)))

	var low common.Hash
	low[0] = 0xff
	require.Zero(t, uint256.NewInt(0xff).Cmp(HashToTarget(low)))
}
