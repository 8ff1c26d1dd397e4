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

// Package types contains the wire-level data types of the protocol: block
// headers, transactions, blocks and the proof-of-work target arithmetic.
package types

import (
	"bytes"
	"io"

	"github.com/vesperchain/go-vesper/binio"
	"github.com/vesperchain/go-vesper/common"
	"github.com/vesperchain/go-vesper/crypto"
)

// HeaderLen is the serialized size of a block header. The layout is fixed:
// version 4 bytes + prev block 32 bytes + merkle root 32 bytes + timestamp
// 4 bytes + bits 4 bytes + nonce 4 bytes.
const HeaderLen = 80

// BlockHeader describes a block to the proof-of-work and linkage rules.
type BlockHeader struct {
	// Version of the block. This is not the protocol version.
	Version int32

	// PrevBlock is the hash of the previous block header in the chain.
	PrevBlock common.Hash

	// MerkleRoot commits to the hashes of all transactions in the block.
	MerkleRoot common.Hash

	// Timestamp is the block creation time in seconds since the epoch. It is
	// a uint32 on the wire and therefore limited to 2106.
	Timestamp uint32

	// Bits is the compact encoding of the proof-of-work target.
	Bits uint32

	// Nonce is varied by miners to satisfy the target.
	Nonce uint32
}

// Serialize writes the 80-byte header form to w.
func (h *BlockHeader) Serialize(w io.Writer) error {
	if err := binio.WriteInt32(w, h.Version); err != nil {
		return err
	}
	if _, err := w.Write(h.PrevBlock[:]); err != nil {
		return err
	}
	if _, err := w.Write(h.MerkleRoot[:]); err != nil {
		return err
	}
	if err := binio.WriteUint32(w, h.Timestamp); err != nil {
		return err
	}
	if err := binio.WriteUint32(w, h.Bits); err != nil {
		return err
	}
	return binio.WriteUint32(w, h.Nonce)
}

// Deserialize reads the 80-byte header form from r into the receiver.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	var err error
	if h.Version, err = binio.ReadInt32(r); err != nil {
		return err
	}
	if _, err = io.ReadFull(r, h.PrevBlock[:]); err != nil {
		return err
	}
	if _, err = io.ReadFull(r, h.MerkleRoot[:]); err != nil {
		return err
	}
	if h.Timestamp, err = binio.ReadUint32(r); err != nil {
		return err
	}
	if h.Bits, err = binio.ReadUint32(r); err != nil {
		return err
	}
	h.Nonce, err = binio.ReadUint32(r)
	return err
}

// Bytes returns the serialized header. Serialization of a header into a
// memory buffer cannot fail.
func (h *BlockHeader) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, HeaderLen))
	_ = h.Serialize(buf)
	return buf.Bytes()
}

// Hash computes the header identifier: the double-SHA256 of the serialized
// form. The timechain caches this per stored header; the method itself
// recomputes on every call.
func (h *BlockHeader) Hash() common.Hash {
	return crypto.DoubleSHA256(h.Bytes())
}
