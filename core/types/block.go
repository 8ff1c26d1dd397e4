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
	"fmt"
	"io"
	"sync/atomic"

	"github.com/vesperchain/go-vesper/binio"
	"github.com/vesperchain/go-vesper/common"
)

// MaxBlockSize is the hard cap on the serialized size of a block.
const MaxBlockSize = 1 << 22

// Block is a header plus the ordered transactions it commits to.
type Block struct {
	header BlockHeader
	txs    []*Transaction

	hash atomic.Pointer[common.Hash]
}

// NewBlock assembles a block from a header and its transactions. The
// transaction slice is copied; the transactions themselves are shared.
func NewBlock(header BlockHeader, txs []*Transaction) *Block {
	return &Block{header: header, txs: append([]*Transaction(nil), txs...)}
}

// Header returns a copy of the block header.
func (b *Block) Header() BlockHeader {
	return b.header
}

// Transactions returns the block's transactions in commitment order. The
// returned slice must not be mutated.
func (b *Block) Transactions() []*Transaction {
	return b.txs
}

// Hash returns the block identifier (the header hash), caching it on first
// use.
func (b *Block) Hash() common.Hash {
	if h := b.hash.Load(); h != nil {
		return *h
	}
	h := b.header.Hash()
	b.hash.Store(&h)
	return h
}

// SerializedLen returns the number of bytes Serialize emits.
func (b *Block) SerializedLen() int {
	n := HeaderLen + binio.CompactSizeLen(uint64(len(b.txs)))
	for _, tx := range b.txs {
		n += tx.SerializedLen()
	}
	return n
}

// Serialize writes the block wire form to w: the 80-byte header, a
// compact-size transaction count, then each transaction.
func (b *Block) Serialize(w io.Writer) error {
	if err := b.header.Serialize(w); err != nil {
		return err
	}
	if err := binio.WriteCompactSize(w, uint64(len(b.txs))); err != nil {
		return err
	}
	for _, tx := range b.txs {
		if err := tx.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize reads a block wire form from r into the receiver.
func (b *Block) Deserialize(r io.Reader) error {
	if err := b.header.Deserialize(r); err != nil {
		return err
	}
	count, err := binio.ReadCompactSize(r)
	if err != nil {
		return err
	}
	// Every transaction occupies at least one byte, so a count beyond the
	// block size cap cannot describe a valid block.
	if count > MaxBlockSize {
		return fmt.Errorf("transaction count %d exceeds block limit", count)
	}
	txs := make([]*Transaction, 0, count)
	for i := uint64(0); i < count; i++ {
		tx := new(Transaction)
		if err := tx.Deserialize(r); err != nil {
			return err
		}
		txs = append(txs, tx)
	}
	b.txs = txs
	b.hash.Store(nil)
	return nil
}
