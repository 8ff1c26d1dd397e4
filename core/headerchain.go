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

// Package core implements the header timechain: the in-memory branching store
// of every block header ever seen, with heaviest-chain tracking, reorgs and
// ancestry views for consensus validation.
package core

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/holiman/uint256"

	"github.com/vesperchain/go-vesper/common"
	"github.com/vesperchain/go-vesper/core/types"
	"github.com/vesperchain/go-vesper/log"
)

// HeaderContext is the immutable record the timechain keeps per header: the
// header itself, its cached hash, the work its target represents, the
// cumulative work from genesis, and its height. Contexts are never mutated
// after insertion.
type HeaderContext struct {
	Header    types.BlockHeader
	Hash      common.Hash
	Work      uint256.Int
	TotalWork uint256.Int
	Height    uint64
}

// MakeHeaderContext derives the context for header as a child of parent, or
// as a genesis when parent is nil. It computes the hash, per-header work and
// the cumulative totals the chain's insertion preconditions expect.
func MakeHeaderContext(header types.BlockHeader, parent *HeaderContext) HeaderContext {
	ctx := HeaderContext{
		Header: header,
		Hash:   header.Hash(),
		Work:   *types.WorkFromBits(header.Bits),
	}
	if parent != nil {
		ctx.TotalWork.Add(&parent.TotalWork, &ctx.Work)
		ctx.Height = parent.Height + 1
	} else {
		ctx.TotalWork = ctx.Work
	}
	return ctx
}

// headerNode wraps a context with its parent link. Nodes are heap-allocated
// once and never freed, so plain pointers double as stable handles.
type headerNode struct {
	ctx    HeaderContext
	parent *headerNode
}

// Handle is a stable opaque reference to a header stored in the chain. It
// stays valid for the lifetime of the chain; headers are never removed. The
// zero Handle is invalid.
type Handle struct {
	node *headerNode
}

// Valid reports whether the handle references a stored header.
func (h Handle) Valid() bool {
	return h.node != nil
}

// Height returns the height of the referenced header. It is zero for the
// invalid handle.
func (h Handle) Height() uint64 {
	if h.node == nil {
		return 0
	}
	return h.node.ctx.Height
}

// Context dereferences the handle. It returns nil for the invalid handle.
// The returned context must be treated as read-only.
func (h Handle) Context() *HeaderContext {
	if h.node == nil {
		return nil
	}
	return &h.node.ctx
}

// HeaderChain is the branching header store. It tracks every header inserted,
// designates the heaviest tip by cumulative work (first seen wins ties) and
// maintains a height-indexed view of the active chain for O(1) ancestry
// lookups.
//
// HeaderChain is not synchronized internally. The embedding node guards it
// with a priolock.Mutex: shared for every read path, exclusive for Add.
type HeaderChain struct {
	nodes  map[common.Hash]*headerNode
	root   *headerNode
	tip    *headerNode
	active []*headerNode // height -> node on the path from root to tip

	// leaves is the set of branch ends, the heaviest tip included. A node is
	// removed the moment it gains a child.
	leaves mapset.Set[*headerNode]

	logger log.Logger
}

// NewHeaderChain creates an empty chain. The first insertion must be a
// genesis via AddGenesis.
func NewHeaderChain() *HeaderChain {
	return &HeaderChain{
		nodes:  make(map[common.Hash]*headerNode),
		leaves: mapset.NewThreadUnsafeSet[*headerNode](),
		logger: log.New("module", "timechain"),
	}
}

// AddGenesis establishes the root of the chain and the initial heaviest tip.
// It may be called at most once.
func (hc *HeaderChain) AddGenesis(ctx HeaderContext) (Handle, error) {
	if hc.root != nil {
		return Handle{}, fmt.Errorf("%w: genesis already set", ErrPrecondition)
	}
	if ctx.Height != 0 {
		return Handle{}, fmt.Errorf("%w: genesis height %d", ErrPrecondition, ctx.Height)
	}
	if ctx.TotalWork.Cmp(&ctx.Work) != 0 {
		return Handle{}, fmt.Errorf("%w: genesis total work differs from own work", ErrPrecondition)
	}
	n := &headerNode{ctx: ctx}
	hc.nodes[ctx.Hash] = n
	hc.root = n
	hc.tip = n
	hc.active = append(hc.active, n)
	hc.leaves.Add(n)
	hc.logger.Info("Genesis header set", "hash", ctx.Hash.TerminalString(), "bits", ctx.Header.Bits)
	return Handle{n}, nil
}

// Add inserts a non-genesis header whose parent is already stored. The
// context must satisfy the linkage invariants: the header's previous hash
// equals the parent's hash, height is parent height plus one, and total work
// is the parent's total plus the header's own work. The new header becomes
// the heaviest tip iff its total work strictly exceeds the incumbent's.
func (hc *HeaderChain) Add(ctx HeaderContext, parent Handle) (Handle, error) {
	if !parent.Valid() {
		return Handle{}, fmt.Errorf("%w: %w", ErrPrecondition, ErrInvalidHandle)
	}
	if _, ok := hc.nodes[ctx.Hash]; ok {
		return Handle{}, fmt.Errorf("%w: %w: %s", ErrPrecondition, ErrKnownHeader, ctx.Hash.TerminalString())
	}
	p := parent.node
	if ctx.Header.PrevBlock != p.ctx.Hash {
		return Handle{}, fmt.Errorf("%w: previous hash %s does not match parent %s",
			ErrPrecondition, ctx.Header.PrevBlock.TerminalString(), p.ctx.Hash.TerminalString())
	}
	if ctx.Height != p.ctx.Height+1 {
		return Handle{}, fmt.Errorf("%w: height %d after parent height %d",
			ErrPrecondition, ctx.Height, p.ctx.Height)
	}
	var want uint256.Int
	want.Add(&p.ctx.TotalWork, &ctx.Work)
	if ctx.TotalWork.Cmp(&want) != 0 {
		return Handle{}, fmt.Errorf("%w: total work mismatch at height %d", ErrPrecondition, ctx.Height)
	}

	n := &headerNode{ctx: ctx, parent: p}
	hc.nodes[ctx.Hash] = n
	hc.leaves.Remove(p)
	hc.leaves.Add(n)

	if ctx.TotalWork.Cmp(&hc.tip.ctx.TotalWork) > 0 {
		hc.setTip(n)
	} else {
		hc.logger.Debug("Stored side header", "hash", ctx.Hash.TerminalString(), "height", ctx.Height)
	}
	return Handle{n}, nil
}

// setTip promotes n to heaviest tip and rebuilds the height-indexed active
// chain by walking n's ancestry down to the first node already on the path.
func (hc *HeaderChain) setTip(n *headerNode) {
	old := hc.tip
	oldLen := len(hc.active)
	need := int(n.ctx.Height) + 1
	if cap(hc.active) >= need {
		hc.active = hc.active[:need]
	} else {
		grown := make([]*headerNode, need)
		copy(grown, hc.active)
		hc.active = grown
	}
	var fork *headerNode
	for node := n; node != nil; node = node.parent {
		h := int(node.ctx.Height)
		// Entries at or above oldLen are left over from an earlier, longer
		// path (or nil), so only the old path below oldLen can hold the fork.
		if h < oldLen && hc.active[h] == node {
			fork = node
			break
		}
		hc.active[h] = node
	}
	hc.tip = n

	if fork != nil && fork != old {
		hc.logger.Info("Chain reorg executed",
			"oldtip", old.ctx.Hash.TerminalString(), "oldheight", old.ctx.Height,
			"newtip", n.ctx.Hash.TerminalString(), "newheight", n.ctx.Height,
			"fork", fork.ctx.Height)
	} else {
		hc.logger.Debug("Extended heaviest chain",
			"tip", n.ctx.Hash.TerminalString(), "height", n.ctx.Height)
	}
}

// Find looks up a header by hash. The handle is valid and the context
// non-nil iff the hash is stored. The context must be treated as read-only.
func (hc *HeaderChain) Find(hash common.Hash) (Handle, *HeaderContext) {
	n, ok := hc.nodes[hash]
	if !ok {
		return Handle{}, nil
	}
	return Handle{n}, &n.ctx
}

// HeaviestTip returns the context of the current heaviest tip, or nil before
// genesis.
func (hc *HeaderChain) HeaviestTip() *HeaderContext {
	if hc.tip == nil {
		return nil
	}
	return &hc.tip.ctx
}

// HeaviestTipHandle returns a handle to the current heaviest tip.
func (hc *HeaderChain) HeaviestTipHandle() Handle {
	return Handle{hc.tip}
}

// HeaviestTipHeight returns the height of the heaviest tip.
func (hc *HeaderChain) HeaviestTipHeight() uint64 {
	if hc.tip == nil {
		return 0
	}
	return hc.tip.ctx.Height
}

// HeaviestLength returns the length of the active chain, i.e. tip height
// plus one. It is zero before genesis.
func (hc *HeaderChain) HeaviestLength() uint64 {
	if hc.tip == nil {
		return 0
	}
	return hc.tip.ctx.Height + 1
}

// Len returns the number of headers stored across all branches.
func (hc *HeaderChain) Len() int {
	return len(hc.nodes)
}

// Tips returns the hashes of all branch ends, the heaviest tip included.
// Order is unspecified.
func (hc *HeaderChain) Tips() []common.Hash {
	out := make([]common.Hash, 0, hc.leaves.Cardinality())
	hc.leaves.Each(func(n *headerNode) bool {
		out = append(out, n.ctx.Hash)
		return false
	})
	return out
}

// ValidationView returns an immutable ancestry view rooted at the given tip
// handle. The view snapshots the path from root to tip; later insertions and
// reorgs do not affect it.
func (hc *HeaderChain) ValidationView(tip Handle) (*AncestryView, error) {
	if !tip.Valid() {
		return nil, ErrInvalidHandle
	}
	chain := make([]*headerNode, tip.node.ctx.Height+1)
	for node := tip.node; node != nil; node = node.parent {
		chain[node.ctx.Height] = node
	}
	return &AncestryView{chain: chain}, nil
}
