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

package rawdb

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/vesperchain/go-vesper/common"
	"github.com/vesperchain/go-vesper/core/types"
)

func testBlock(nonce uint32, payloads ...[]byte) *types.Block {
	txs := make([]*types.Transaction, 0, len(payloads))
	for _, p := range payloads {
		txs = append(txs, types.NewTransaction(p))
	}
	header := types.BlockHeader{
		Version:    1,
		PrevBlock:  common.BytesToHash([]byte{byte(nonce)}),
		MerkleRoot: common.BytesToHash([]byte{0x01}),
		Timestamp:  1700000000 + nonce,
		Bits:       0x207fffff,
		Nonce:      nonce,
	}
	return types.NewBlock(header, txs)
}

func blockBytes(t *testing.T, b *types.Block) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, b.Serialize(&buf))
	return buf.Bytes()
}

func writeTestFile(t *testing.T, blocks ...*types.Block) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blocks.dat")
	w, err := NewBlockFileWriter(path)
	require.NoError(t, err)
	for _, b := range blocks {
		require.NoError(t, w.Append(b))
	}
	require.Equal(t, len(blocks), w.Count())
	require.NoError(t, w.Close())
	return path
}

func TestBlockFileRoundTrip(t *testing.T) {
	t.Parallel()
	blocks := []*types.Block{
		testBlock(0, []byte("b0 tx0"), []byte("b0 tx1")),
		testBlock(1, []byte("b1 only")),
		testBlock(2, nil, []byte("b2 tx1"), bytes.Repeat([]byte{0x7e}, 500)),
	}
	path := writeTestFile(t, blocks...)

	r, err := OpenBlockFile(path)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, 3, r.Size())
	got, err := r.Block(1)
	require.NoError(t, err)
	require.Equal(t, blockBytes(t, blocks[1]), blockBytes(t, got))

	// Random access out of order, then full iteration.
	for _, i := range []int{2, 0, 1} {
		got, err := r.Block(i)
		require.NoError(t, err)
		require.Equal(t, blockBytes(t, blocks[i]), blockBytes(t, got))
	}
	var seen []*types.Block
	it := r.Iterator()
	for it.Next() {
		seen = append(seen, it.Block())
	}
	require.NoError(t, it.Error())
	require.Len(t, seen, 3)
	for i, b := range seen {
		require.Equal(t, blocks[i].Hash(), b.Hash())
	}
}

func TestBlockFileLayout(t *testing.T) {
	t.Parallel()
	b0 := testBlock(0, []byte("alpha"))
	b1 := testBlock(1, []byte("beta"))
	path := writeTestFile(t, b0, b1)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	// Prefix: version 1 then the footer offset.
	require.Equal(t, uint32(1), binary.LittleEndian.Uint32(raw[0:4]))
	indexOffset := int64(binary.LittleEndian.Uint64(raw[4:12]))

	enc0, enc1 := blockBytes(t, b0), blockBytes(t, b1)
	require.Equal(t, int64(12+len(enc0)+len(enc1)), indexOffset)

	// Blocks are stored back to back, bit-exact.
	require.Equal(t, enc0, raw[12:12+len(enc0)])
	require.Equal(t, enc1, raw[12+len(enc0):indexOffset])

	// Footer: count then one offset per block.
	footer := raw[indexOffset:]
	require.Equal(t, uint32(2), binary.LittleEndian.Uint32(footer[0:4]))
	require.Equal(t, uint64(12), binary.LittleEndian.Uint64(footer[4:12]))
	require.Equal(t, uint64(12+len(enc0)), binary.LittleEndian.Uint64(footer[12:20]))
	require.Len(t, footer, 4+2*8)
}

func TestBlockFileEmpty(t *testing.T) {
	t.Parallel()
	path := writeTestFile(t)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, raw, 12+4)
	require.Equal(t, int64(12), int64(binary.LittleEndian.Uint64(raw[4:12])))

	r, err := OpenBlockFile(path)
	require.NoError(t, err)
	defer r.Close()
	require.Zero(t, r.Size())
	require.False(t, r.Iterator().Next())
	_, err = r.Block(0)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestBlockFileIndexOutOfRange(t *testing.T) {
	t.Parallel()
	path := writeTestFile(t, testBlock(0, []byte("x")))
	r, err := OpenBlockFile(path)
	require.NoError(t, err)
	defer r.Close()

	for _, i := range []int{-1, 1, 99} {
		_, err := r.Block(i)
		require.ErrorIs(t, err, ErrIndexOutOfRange, "index %d", i)
	}
}

func TestBlockFileUnsupportedVersion(t *testing.T) {
	t.Parallel()
	path := writeTestFile(t, testBlock(0, []byte("x")))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(raw[0:4], 2)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = OpenBlockFile(path)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestBlockFileCorruptOffsets(t *testing.T) {
	t.Parallel()
	b0 := testBlock(0, []byte("alpha"))
	b1 := testBlock(1, []byte("beta"))
	path := writeTestFile(t, b0, b1)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	indexOffset := int64(binary.LittleEndian.Uint64(raw[4:12]))

	t.Run("end position mismatch", func(t *testing.T) {
		// Shift block 1's start two bytes early: parsing then ends short of
		// the sentinel position.
		tampered := append([]byte(nil), raw...)
		off := binary.LittleEndian.Uint64(tampered[indexOffset+4+8:])
		binary.LittleEndian.PutUint64(tampered[indexOffset+4+8:], off-2)
		p := filepath.Join(t.TempDir(), "tampered.dat")
		require.NoError(t, os.WriteFile(p, tampered, 0o644))

		r, err := OpenBlockFile(p)
		require.NoError(t, err)
		defer r.Close()
		_, err = r.Block(1)
		require.ErrorIs(t, err, ErrCorruptFormat)
	})

	t.Run("offset out of order", func(t *testing.T) {
		tampered := append([]byte(nil), raw...)
		binary.LittleEndian.PutUint64(tampered[indexOffset+4:], uint64(indexOffset+100))
		p := filepath.Join(t.TempDir(), "tampered.dat")
		require.NoError(t, os.WriteFile(p, tampered, 0o644))

		_, err := OpenBlockFile(p)
		require.ErrorIs(t, err, ErrCorruptFormat)
	})

	t.Run("index offset inside prefix", func(t *testing.T) {
		tampered := append([]byte(nil), raw...)
		binary.LittleEndian.PutUint64(tampered[4:12], 3)
		p := filepath.Join(t.TempDir(), "tampered.dat")
		require.NoError(t, os.WriteFile(p, tampered, 0o644))

		_, err := OpenBlockFile(p)
		require.ErrorIs(t, err, ErrCorruptFormat)
	})
}

func TestBlockFileOpenMissing(t *testing.T) {
	t.Parallel()
	_, err := OpenBlockFile(filepath.Join(t.TempDir(), "missing.dat"))
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestBlockFileWriterExclusion(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "blocks.dat")
	w, err := NewBlockFileWriter(path)
	require.NoError(t, err)

	_, err = NewBlockFileWriter(path)
	require.Error(t, err, "second writer must not acquire the file lock")

	require.NoError(t, w.Close())
	w2, err := NewBlockFileWriter(path)
	require.NoError(t, err)
	require.NoError(t, w2.Close())
}

func TestBlockFileAppendAfterClose(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "blocks.dat")
	w, err := NewBlockFileWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.ErrorIs(t, w.Append(testBlock(0, []byte("x"))), ErrWriterClosed)
	// Close stays idempotent.
	require.NoError(t, w.Close())
}

func TestBlockFileUnfinalizedRefused(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "blocks.dat")
	w, err := NewBlockFileWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(testBlock(0, []byte("x"))))
	// Before Close the prefix is zeroed, so the version check fails.
	_, err = OpenBlockFile(path)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
	require.NoError(t, w.Close())
}

// TestBlockFileConcurrentReaders opens one reader per goroutine; independent
// readers need no locking.
func TestBlockFileConcurrentReaders(t *testing.T) {
	t.Parallel()
	blocks := make([]*types.Block, 8)
	for i := range blocks {
		blocks[i] = testBlock(uint32(i), bytes.Repeat([]byte{byte(i)}, 64))
	}
	path := writeTestFile(t, blocks...)

	var g errgroup.Group
	for n := 0; n < 4; n++ {
		g.Go(func() error {
			r, err := OpenBlockFile(path)
			if err != nil {
				return err
			}
			defer r.Close()
			for pass := 0; pass < 3; pass++ {
				for i := range blocks {
					b, err := r.Block(i)
					if err != nil {
						return err
					}
					if b.Hash() != blocks[i].Hash() {
						return ErrCorruptFormat
					}
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
