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

// Package binio implements the little-endian integer serialization used by the
// wire encoders and the block file format. All fixed-width values are encoded
// little-endian two's-complement regardless of host byte order.
package binio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrRange is returned when a decoded value does not fit the destination
// width. Callers match it with errors.Is.
var ErrRange = errors.New("binio: value out of range")

// ErrNonCanonical is returned when a compact-size integer uses more bytes
// than its value requires.
var ErrNonCanonical = errors.New("binio: non-canonical compact size")

// binaryFreeList defines a concurrent-safe free list of byte slices (of the
// maximum fixed integer width, 8 bytes) used to avoid allocating on every
// read and write. The shared instance below is bounded, so the zero state
// simply allocates when the list is drained.
type binaryFreeList chan []byte

const freeListMaxItems = 1024

var serializer binaryFreeList = make(chan []byte, freeListMaxItems)

// Borrow returns an 8-byte scratch buffer from the free list, allocating one
// if the list is empty.
func (l binaryFreeList) Borrow() []byte {
	var buf []byte
	select {
	case buf = <-l:
	default:
		buf = make([]byte, 8)
	}
	return buf
}

// Return puts the scratch buffer back on the free list, dropping it when the
// list is full.
func (l binaryFreeList) Return(buf []byte) {
	select {
	case l <- buf:
	default:
	}
}

// ReadUint8 reads a single byte from r.
func ReadUint8(r io.Reader) (uint8, error) {
	buf := serializer.Borrow()
	_, err := io.ReadFull(r, buf[:1])
	v := buf[0]
	serializer.Return(buf)
	return v, err
}

// ReadUint16 reads a little-endian uint16 from r.
func ReadUint16(r io.Reader) (uint16, error) {
	buf := serializer.Borrow()
	_, err := io.ReadFull(r, buf[:2])
	v := binary.LittleEndian.Uint16(buf[:2])
	serializer.Return(buf)
	return v, err
}

// ReadUint32 reads a little-endian uint32 from r.
func ReadUint32(r io.Reader) (uint32, error) {
	buf := serializer.Borrow()
	_, err := io.ReadFull(r, buf[:4])
	v := binary.LittleEndian.Uint32(buf[:4])
	serializer.Return(buf)
	return v, err
}

// ReadUint64 reads a little-endian uint64 from r.
func ReadUint64(r io.Reader) (uint64, error) {
	buf := serializer.Borrow()
	_, err := io.ReadFull(r, buf[:8])
	v := binary.LittleEndian.Uint64(buf[:8])
	serializer.Return(buf)
	return v, err
}

// ReadInt8 reads a single signed byte from r.
func ReadInt8(r io.Reader) (int8, error) {
	v, err := ReadUint8(r)
	return int8(v), err
}

// ReadInt16 reads a little-endian int16 from r.
func ReadInt16(r io.Reader) (int16, error) {
	v, err := ReadUint16(r)
	return int16(v), err
}

// ReadInt32 reads a little-endian int32 from r.
func ReadInt32(r io.Reader) (int32, error) {
	v, err := ReadUint32(r)
	return int32(v), err
}

// ReadInt64 reads a little-endian int64 from r.
func ReadInt64(r io.Reader) (int64, error) {
	v, err := ReadUint64(r)
	return int64(v), err
}

// WriteUint8 writes a single byte to w.
func WriteUint8(w io.Writer, v uint8) error {
	buf := serializer.Borrow()
	buf[0] = v
	_, err := w.Write(buf[:1])
	serializer.Return(buf)
	return err
}

// WriteUint16 writes v to w in little-endian byte order.
func WriteUint16(w io.Writer, v uint16) error {
	buf := serializer.Borrow()
	binary.LittleEndian.PutUint16(buf[:2], v)
	_, err := w.Write(buf[:2])
	serializer.Return(buf)
	return err
}

// WriteUint32 writes v to w in little-endian byte order.
func WriteUint32(w io.Writer, v uint32) error {
	buf := serializer.Borrow()
	binary.LittleEndian.PutUint32(buf[:4], v)
	_, err := w.Write(buf[:4])
	serializer.Return(buf)
	return err
}

// WriteUint64 writes v to w in little-endian byte order.
func WriteUint64(w io.Writer, v uint64) error {
	buf := serializer.Borrow()
	binary.LittleEndian.PutUint64(buf[:8], v)
	_, err := w.Write(buf[:8])
	serializer.Return(buf)
	return err
}

// WriteInt8 writes a single signed byte to w.
func WriteInt8(w io.Writer, v int8) error {
	return WriteUint8(w, uint8(v))
}

// WriteInt16 writes v to w as little-endian two's complement.
func WriteInt16(w io.Writer, v int16) error {
	return WriteUint16(w, uint16(v))
}

// WriteInt32 writes v to w as little-endian two's complement.
func WriteInt32(w io.Writer, v int32) error {
	return WriteUint32(w, uint32(v))
}

// WriteInt64 writes v to w as little-endian two's complement.
func WriteInt64(w io.Writer, v int64) error {
	return WriteUint64(w, uint64(v))
}

// ToInt narrows v to the platform int width, returning ErrRange when the
// value does not fit.
func ToInt(v uint64) (int, error) {
	if v > uint64(math.MaxInt) {
		return 0, fmt.Errorf("%w: %d does not fit int", ErrRange, v)
	}
	return int(v), nil
}

// ToUint32 narrows v to uint32, returning ErrRange when the value does not
// fit.
func ToUint32(v uint64) (uint32, error) {
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d does not fit uint32", ErrRange, v)
	}
	return uint32(v), nil
}

// ToUint16 narrows v to uint16, returning ErrRange when the value does not
// fit.
func ToUint16(v uint64) (uint16, error) {
	if v > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %d does not fit uint16", ErrRange, v)
	}
	return uint16(v), nil
}

// ToInt64 reinterprets v as a non-negative int64, returning ErrRange for
// values above MaxInt64.
func ToInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %d does not fit int64", ErrRange, v)
	}
	return int64(v), nil
}

// ReadCompactSize reads a variable-length integer from r. The encoding is the
// canonical compact-size form: values below 0xfd are a single byte, larger
// values carry a 0xfd/0xfe/0xff discriminator followed by a little-endian
// uint16/uint32/uint64. A value encoded with more bytes than necessary fails
// with ErrNonCanonical.
func ReadCompactSize(r io.Reader) (uint64, error) {
	discriminant, err := ReadUint8(r)
	if err != nil {
		return 0, err
	}
	var rv uint64
	switch discriminant {
	case 0xff:
		v, err := ReadUint64(r)
		if err != nil {
			return 0, err
		}
		rv = v
		if rv < 0x100000000 {
			return 0, fmt.Errorf("%w: %d encoded with 9 bytes", ErrNonCanonical, rv)
		}
	case 0xfe:
		v, err := ReadUint32(r)
		if err != nil {
			return 0, err
		}
		rv = uint64(v)
		if rv < 0x10000 {
			return 0, fmt.Errorf("%w: %d encoded with 5 bytes", ErrNonCanonical, rv)
		}
	case 0xfd:
		v, err := ReadUint16(r)
		if err != nil {
			return 0, err
		}
		rv = uint64(v)
		if rv < 0xfd {
			return 0, fmt.Errorf("%w: %d encoded with 3 bytes", ErrNonCanonical, rv)
		}
	default:
		rv = uint64(discriminant)
	}
	return rv, nil
}

// WriteCompactSize writes v to w using the canonical compact-size encoding.
func WriteCompactSize(w io.Writer, v uint64) error {
	switch {
	case v < 0xfd:
		return WriteUint8(w, uint8(v))
	case v <= math.MaxUint16:
		if err := WriteUint8(w, 0xfd); err != nil {
			return err
		}
		return WriteUint16(w, uint16(v))
	case v <= math.MaxUint32:
		if err := WriteUint8(w, 0xfe); err != nil {
			return err
		}
		return WriteUint32(w, uint32(v))
	default:
		if err := WriteUint8(w, 0xff); err != nil {
			return err
		}
		return WriteUint64(w, v)
	}
}

// CompactSizeLen returns the number of bytes WriteCompactSize emits for v.
func CompactSizeLen(v uint64) int {
	switch {
	case v < 0xfd:
		return 1
	case v <= math.MaxUint16:
		return 3
	case v <= math.MaxUint32:
		return 5
	default:
		return 9
	}
}
