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

// Package crypto implements the hashing primitives of the protocol.
package crypto

import (
	"crypto/sha256"

	"github.com/vesperchain/go-vesper/common"
)

// DoubleSHA256 returns sha256(sha256(b)) as a Hash. This is the identifier
// hash for headers, transactions and merkle nodes.
func DoubleSHA256(b []byte) common.Hash {
	first := sha256.Sum256(b)
	return common.Hash(sha256.Sum256(first[:]))
}

// DoubleSHA256Pair hashes the 64-byte concatenation of left and right. Merkle
// interior nodes are computed this way.
func DoubleSHA256Pair(left, right common.Hash) common.Hash {
	var buf [2 * common.HashLength]byte
	copy(buf[:common.HashLength], left[:])
	copy(buf[common.HashLength:], right[:])
	return DoubleSHA256(buf[:])
}
