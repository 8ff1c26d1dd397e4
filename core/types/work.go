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

package types

import (
	bits32 "math/bits"

	"github.com/holiman/uint256"

	"github.com/vesperchain/go-vesper/common"
)

// Proof-of-work targets and accumulated work are 256-bit unsigned integers.
// Targets travel on the wire in the compact representation: a base-256
// exponent in the high byte, a sign bit, and a 23-bit mantissa. The sign bit
// never appears in valid targets but must round-trip, so the codec keeps it.

// CompactToTarget converts the compact representation to the full 256-bit
// target. The second return reports whether the value is negative and the
// third whether the mantissa overflows 256 bits.
func CompactToTarget(bits uint32) (target *uint256.Int, negative bool, overflow bool) {
	mantissa := bits & 0x007fffff
	negative = bits&0x00800000 != 0 && mantissa != 0
	exponent := uint(bits >> 24)

	// Exponents up to 3 place the mantissa entirely below the radix point of
	// the base-256 encoding; shift it down instead of up.
	target = new(uint256.Int)
	if exponent <= 3 {
		target.SetUint64(uint64(mantissa >> (8 * (3 - exponent))))
		return target, negative, false
	}
	shift := 8 * (exponent - 3)
	if mantissa != 0 && shift+uint(bits32.Len32(mantissa)) > 256 {
		return target, negative, true
	}
	target.SetUint64(uint64(mantissa))
	target.Lsh(target, shift)
	return target, negative, false
}

// TargetToCompact converts a 256-bit target to its canonical compact
// representation.
func TargetToCompact(target *uint256.Int) uint32 {
	if target.IsZero() {
		return 0
	}
	exponent := uint((target.BitLen() + 7) / 8)
	var mantissa uint32
	if exponent <= 3 {
		mantissa = uint32(target.Uint64() << (8 * (3 - exponent)))
	} else {
		shifted := new(uint256.Int).Rsh(target, 8*(exponent-3))
		mantissa = uint32(shifted.Uint64())
	}
	// A mantissa with the sign bit set is bumped into the next exponent.
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}
	return uint32(exponent)<<24 | mantissa
}

// WorkFromBits returns the expected number of hash attempts a header with the
// given compact target represents: 2^256 / (target+1). Invalid targets
// (negative, overflowing or zero mantissa) carry no work.
func WorkFromBits(bits uint32) *uint256.Int {
	target, negative, overflow := CompactToTarget(bits)
	if negative || overflow || target.IsZero() {
		return new(uint256.Int)
	}
	// 2^256 does not fit in 256 bits; use the identity
	// 2^256/(t+1) == (~t)/(t+1) + 1.
	denom := new(uint256.Int).AddUint64(target, 1)
	work := new(uint256.Int).Not(target)
	work.Div(work, denom)
	return work.AddUint64(work, 1)
}

// HashToTarget reinterprets a proof-of-work hash as the 256-bit integer it
// encodes. Hashes are little-endian numbers on the wire, so the byte order is
// reversed before comparison against a target.
func HashToTarget(h common.Hash) *uint256.Int {
	var be [common.HashLength]byte
	for i := 0; i < common.HashLength; i++ {
		be[i] = h[common.HashLength-1-i]
	}
	return new(uint256.Int).SetBytes(be[:])
}
