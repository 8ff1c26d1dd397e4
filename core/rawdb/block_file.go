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

// Package rawdb implements the on-disk block file: an append-only file of
// serialized blocks finalized with an index footer for random access.
//
// The layout is bit-exact across implementations:
//
//	offset 0:   int32  version      // == 1
//	offset 4:   int64  indexOffset  // byte offset of the footer
//	offset 12:  blocks, back to back, in insertion order
//	offset I:   uint32 count
//	            int64  offsets[count]  // start offset of each block
//
// All integers are little-endian. The writer seeds a zeroed 12-byte prefix
// and rewrites it with the real version and index offset on Close.
package rawdb

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/gofrs/flock"
	lru "github.com/hashicorp/golang-lru"

	"github.com/vesperchain/go-vesper/binio"
	"github.com/vesperchain/go-vesper/core/types"
	"github.com/vesperchain/go-vesper/log"
)

const (
	blockFileVersion = 1
	prefixLen        = 12

	// blockCacheLimit bounds the reader's cache of parsed blocks.
	blockCacheLimit = 64
)

var (
	// ErrUnsupportedVersion is returned when opening a file whose prefix
	// version is not blockFileVersion.
	ErrUnsupportedVersion = errors.New("unsupported block file version")

	// ErrIndexOutOfRange is returned for block ordinals outside [0, Size).
	ErrIndexOutOfRange = errors.New("block index out of range")

	// ErrCorruptFormat is returned when the offset table and the block
	// stream disagree.
	ErrCorruptFormat = errors.New("corrupt block file")

	// ErrWriterClosed is returned by Append after Close.
	ErrWriterClosed = errors.New("block file writer closed")
)

// BlockFileWriter appends blocks to a new block file. It is single-writer: a
// sibling lock file enforces exclusion between processes, and the write
// stream must not be shared between goroutines.
//
// Close finalizes the file; until then the prefix is zeroed and readers will
// refuse it. An abandoned writer is closed best-effort by a finalizer, with
// the error discarded; callers needing durability must call Close, which
// syncs the file, and check its result.
type BlockFileWriter struct {
	path    string
	f       *os.File
	fileLck *flock.Flock
	offsets []int64
	pos     int64
	closed  bool
	logger  log.Logger
}

// NewBlockFileWriter creates (or truncates) the block file at path and
// writes the placeholder prefix.
func NewBlockFileWriter(path string) (*BlockFileWriter, error) {
	fileLck := flock.New(path + ".lock")
	locked, err := fileLck.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock block file %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("block file %s is locked by another writer", path)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		_ = fileLck.Unlock()
		return nil, fmt.Errorf("open block file for writing: %w", err)
	}
	if _, err := f.Write(make([]byte, prefixLen)); err != nil {
		_ = f.Close()
		_ = fileLck.Unlock()
		return nil, err
	}
	w := &BlockFileWriter{
		path:    path,
		f:       f,
		fileLck: fileLck,
		pos:     prefixLen,
		logger:  log.New("module", "blockfile", "path", path),
	}
	runtime.SetFinalizer(w, (*BlockFileWriter).finalize)
	return w, nil
}

// Append serializes b at the end of the file and records its start offset.
func (w *BlockFileWriter) Append(b *types.Block) error {
	if w.closed {
		return ErrWriterClosed
	}
	if err := b.Serialize(w.f); err != nil {
		// Drop the partial tail so a later Append starts from a clean
		// offset.
		_, _ = w.f.Seek(w.pos, io.SeekStart)
		_ = w.f.Truncate(w.pos)
		return err
	}
	end, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	w.offsets = append(w.offsets, w.pos)
	w.pos = end
	return nil
}

// Count returns the number of blocks appended so far.
func (w *BlockFileWriter) Count() int {
	return len(w.offsets)
}

// Close writes the index footer, rewrites the prefix with the real version
// and index offset, flushes and closes the file. It is idempotent; only the
// first call does work.
func (w *BlockFileWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	runtime.SetFinalizer(w, nil)

	err := w.writeFooter()
	if serr := w.f.Sync(); err == nil {
		err = serr
	}
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	if uerr := w.fileLck.Unlock(); err == nil {
		err = uerr
	}
	if err == nil {
		w.logger.Debug("Block file finalized", "blocks", len(w.offsets), "bytes", w.pos)
	}
	return err
}

func (w *BlockFileWriter) writeFooter() error {
	indexOffset := w.pos
	if _, err := w.f.Seek(indexOffset, io.SeekStart); err != nil {
		return err
	}
	count, err := binio.ToUint32(uint64(len(w.offsets)))
	if err != nil {
		return err
	}
	if err := binio.WriteUint32(w.f, count); err != nil {
		return err
	}
	for _, off := range w.offsets {
		if err := binio.WriteInt64(w.f, off); err != nil {
			return err
		}
	}
	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := binio.WriteInt32(w.f, blockFileVersion); err != nil {
		return err
	}
	return binio.WriteInt64(w.f, indexOffset)
}

// finalize is the destructor safety net: close with the error discarded.
func (w *BlockFileWriter) finalize() {
	if !w.closed {
		w.logger.Warn("Block file writer abandoned without Close")
		_ = w.Close()
	}
}

// BlockFileReader provides random access to a finalized block file. Reads
// through one reader mutate the stream position (it is restored before
// returning), so concurrent use of a single reader requires external
// synchronization; independent readers on the same file are safe.
type BlockFileReader struct {
	f       *os.File
	offsets []int64 // count+1 entries; the sentinel equals indexOffset
	cache   *lru.Cache
}

// OpenBlockFile opens a finalized block file for reading and loads its
// index.
func OpenBlockFile(path string) (*BlockFileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open block file for reading: %w", err)
	}
	r, err := newReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

func newReader(f *os.File) (*BlockFileReader, error) {
	version, err := binio.ReadInt32(f)
	if err != nil {
		return nil, err
	}
	if version != blockFileVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	indexOffset, err := binio.ReadInt64(f)
	if err != nil {
		return nil, err
	}
	if indexOffset < prefixLen {
		return nil, fmt.Errorf("%w: index offset %d inside prefix", ErrCorruptFormat, indexOffset)
	}
	if _, err := f.Seek(indexOffset, io.SeekStart); err != nil {
		return nil, err
	}
	countWord, err := binio.ReadUint32(f)
	if err != nil {
		return nil, err
	}
	count, err := binio.ToInt(uint64(countWord))
	if err != nil {
		return nil, err
	}
	offsets := make([]int64, count+1)
	prev := int64(prefixLen)
	for i := 0; i < count; i++ {
		off, err := binio.ReadInt64(f)
		if err != nil {
			return nil, err
		}
		if off < prev || off >= indexOffset {
			return nil, fmt.Errorf("%w: offset %d of block %d out of order", ErrCorruptFormat, off, i)
		}
		offsets[i] = off
		prev = off
	}
	// The sentinel lets every block, the last included, check its end
	// position against the next start.
	offsets[count] = indexOffset
	if count == 0 && indexOffset != prefixLen {
		return nil, fmt.Errorf("%w: empty file with %d content bytes", ErrCorruptFormat, indexOffset-prefixLen)
	}
	cache, _ := lru.New(blockCacheLimit)
	return &BlockFileReader{f: f, offsets: offsets, cache: cache}, nil
}

// Size returns the number of blocks stored.
func (r *BlockFileReader) Size() int {
	return len(r.offsets) - 1
}

// Block parses and returns the block at ordinal i. The stream position held
// on entry is restored before returning. Parsed blocks are cached, so
// repeated reads of hot ordinals do not touch the file.
func (r *BlockFileReader) Block(i int) (*types.Block, error) {
	if i < 0 || i >= r.Size() {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, r.Size())
	}
	if cached, ok := r.cache.Get(i); ok {
		return cached.(*types.Block), nil
	}
	entry, err := r.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	defer func() { _, _ = r.f.Seek(entry, io.SeekStart) }()

	if _, err := r.f.Seek(r.offsets[i], io.SeekStart); err != nil {
		return nil, err
	}
	b := new(types.Block)
	if err := b.Deserialize(r.f); err != nil {
		return nil, fmt.Errorf("%w: block %d: %v", ErrCorruptFormat, i, err)
	}
	end, err := r.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	if end != r.offsets[i+1] {
		return nil, fmt.Errorf("%w: block %d ends at %d, want %d", ErrCorruptFormat, i, end, r.offsets[i+1])
	}
	r.cache.Add(i, b)
	return b, nil
}

// Iterator returns a lazy iterator over all blocks in stored order.
func (r *BlockFileReader) Iterator() *BlockIterator {
	return &BlockIterator{r: r}
}

// Close releases the underlying file.
func (r *BlockFileReader) Close() error {
	return r.f.Close()
}

// BlockIterator walks a block file lazily. The usual pattern:
//
//	it := r.Iterator()
//	for it.Next() {
//		use(it.Block())
//	}
//	if it.Error() != nil { ... }
type BlockIterator struct {
	r    *BlockFileReader
	next int
	cur  *types.Block
	err  error
}

// Next advances to the next block. It returns false when the file is
// exhausted or a read failed; Error distinguishes the two.
func (it *BlockIterator) Next() bool {
	if it.err != nil || it.next >= it.r.Size() {
		return false
	}
	it.cur, it.err = it.r.Block(it.next)
	if it.err != nil {
		return false
	}
	it.next++
	return true
}

// Block returns the block the iterator currently points at.
func (it *BlockIterator) Block() *types.Block {
	return it.cur
}

// Error returns the first read error encountered, if any.
func (it *BlockIterator) Error() error {
	return it.err
}
