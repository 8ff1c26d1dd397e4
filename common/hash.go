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

// Package common contains small value types shared across the node.
package common

import (
	"encoding/hex"
	"fmt"
)

// HashLength is the expected length of a block or transaction hash in bytes.
const HashLength = 32

// Hash is an opaque 32-byte identifier. It is comparable and usable as a map
// key; the zero value is a valid "no hash" marker.
type Hash [HashLength]byte

// BytesToHash converts b to a Hash, left-padding with zeros if b is shorter
// than HashLength and keeping the trailing bytes if it is longer.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash parses s, with or without a 0x prefix, into a Hash.
func HexToHash(s string) (Hash, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	if len(b) != HashLength {
		return Hash{}, fmt.Errorf("invalid hash length %d", len(b))
	}
	return BytesToHash(b), nil
}

// SetBytes sets the hash to the value of b. If b is larger than HashLength,
// b will be cropped from the left.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// Bytes returns a fresh copy of the hash contents.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashLength)
	copy(b, h[:])
	return b
}

// IsZero reports whether the hash is the all-zero value.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Hex returns the hash as a 0x-prefixed hexadecimal string.
func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

// String implements fmt.Stringer.
func (h Hash) String() string {
	return h.Hex()
}

// TerminalString formats the hash for console output during logging.
func (h Hash) TerminalString() string {
	return fmt.Sprintf("%x..%x", h[:3], h[29:])
}
