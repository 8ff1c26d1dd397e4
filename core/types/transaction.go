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
	"github.com/vesperchain/go-vesper/crypto"
)

// Transaction carries an opaque payload through blocks. The chain core does
// not interpret payload contents; it frames them on the wire with a
// compact-size length prefix and identifies them by double-SHA256.
type Transaction struct {
	payload []byte

	hash atomic.Pointer[common.Hash]
}

// NewTransaction wraps payload in a Transaction. The payload is copied, the
// transaction is immutable afterwards.
func NewTransaction(payload []byte) *Transaction {
	p := make([]byte, len(payload))
	copy(p, payload)
	return &Transaction{payload: p}
}

// Payload returns a copy of the transaction payload.
func (tx *Transaction) Payload() []byte {
	p := make([]byte, len(tx.payload))
	copy(p, tx.payload)
	return p
}

// Hash returns the transaction identifier, caching it on first use.
func (tx *Transaction) Hash() common.Hash {
	if h := tx.hash.Load(); h != nil {
		return *h
	}
	h := crypto.DoubleSHA256(tx.payload)
	tx.hash.Store(&h)
	return h
}

// SerializedLen returns the number of bytes Serialize emits.
func (tx *Transaction) SerializedLen() int {
	return binio.CompactSizeLen(uint64(len(tx.payload))) + len(tx.payload)
}

// Serialize writes the length-prefixed payload to w.
func (tx *Transaction) Serialize(w io.Writer) error {
	if err := binio.WriteCompactSize(w, uint64(len(tx.payload))); err != nil {
		return err
	}
	_, err := w.Write(tx.payload)
	return err
}

// Deserialize reads a length-prefixed payload from r into the receiver. A
// length beyond MaxBlockSize is rejected before any allocation.
func (tx *Transaction) Deserialize(r io.Reader) error {
	size, err := binio.ReadCompactSize(r)
	if err != nil {
		return err
	}
	if size > MaxBlockSize {
		return fmt.Errorf("transaction payload of %d bytes exceeds block limit %d", size, MaxBlockSize)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return err
	}
	tx.payload = payload
	tx.hash.Store(nil)
	return nil
}
