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
	"github.com/vesperchain/go-vesper/common"
	"github.com/vesperchain/go-vesper/core/types"
	"github.com/vesperchain/go-vesper/crypto"
)

// CalcMerkleRoot computes the merkle root over the transaction hashes. Each
// level pairs adjacent hashes with double-SHA256; an odd node at any level is
// paired with itself. An empty transaction list yields the zero hash.
func CalcMerkleRoot(txs []*types.Transaction) common.Hash {
	if len(txs) == 0 {
		return common.Hash{}
	}
	level := make([]common.Hash, len(txs))
	for i, tx := range txs {
		level[i] = tx.Hash()
	}
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := level[:len(level)/2]
		for i := range next {
			next[i] = crypto.DoubleSHA256Pair(level[2*i], level[2*i+1])
		}
		level = next
	}
	return level[0]
}
