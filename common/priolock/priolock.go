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

// Package priolock provides a writer-preferring shared mutex.
//
// It differs from sync.RWMutex in two ways. First, writer preference is
// immediate: the moment a writer announces itself, new shared acquisitions
// block, even while earlier readers are still draining. Waiting readers can
// never overtake a waiting writer. Second, the exclusive side is reentrant:
// the goroutine holding the write lock may call Lock again, and the matching
// number of Unlock calls releases it.
//
// Shared reentrancy is NOT supported, nor is upgrading (RLock then Lock) or
// downgrading (Lock then RLock) on one goroutine; those combinations
// deadlock or corrupt the lock state and must be avoided by callers.
package priolock

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// Mutex is a shared/exclusive lock with writer preference and writer
// reentrancy. The zero value is an unlocked mutex. A Mutex must not be
// copied after first use.
//
// The release of the exclusive lock synchronizes-before every subsequent
// acquisition, shared or exclusive, so state written under Lock is visible
// to later holders.
type Mutex struct {
	mu         sync.Mutex
	readerGate *sync.Cond // readers park here while a writer is active or waiting
	writerGate *sync.Cond // writers park here for the flag and for readers to drain

	readers        int    // count of active shared holders
	writersWaiting int    // count of writers between announcement and acquisition
	writerActive   bool   // exclusive lock held
	owner          uint64 // goroutine id of the exclusive holder
	depth          int    // exclusive recursion depth
}

// init creates the condition variables on first use. Callers hold m.mu.
func (m *Mutex) init() {
	if m.readerGate == nil {
		m.readerGate = sync.NewCond(&m.mu)
		m.writerGate = sync.NewCond(&m.mu)
	}
}

// RLock acquires the lock for shared access. It blocks while a writer is
// active or waiting.
func (m *Mutex) RLock() {
	m.mu.Lock()
	m.init()
	for m.writerActive || m.writersWaiting > 0 {
		m.readerGate.Wait()
	}
	m.readers++
	m.mu.Unlock()
}

// TryRLock acquires the lock for shared access without blocking. It reports
// whether the lock was acquired.
func (m *Mutex) TryRLock() bool {
	m.mu.Lock()
	m.init()
	ok := !m.writerActive && m.writersWaiting == 0
	if ok {
		m.readers++
	}
	m.mu.Unlock()
	return ok
}

// RUnlock releases one shared acquisition. The last reader out wakes any
// writer waiting for the drain.
func (m *Mutex) RUnlock() {
	m.mu.Lock()
	if m.readers <= 0 {
		m.mu.Unlock()
		panic("priolock: RUnlock of unlocked Mutex")
	}
	m.readers--
	if m.readers == 0 && m.writerGate != nil {
		m.writerGate.Broadcast()
	}
	m.mu.Unlock()
}

// Lock acquires the lock for exclusive access. New shared acquisitions are
// blocked from the moment of the call; Lock then waits out any active writer
// and the draining readers. A goroutine already holding the exclusive lock
// may call Lock again; the matching number of Unlock calls releases it.
func (m *Mutex) Lock() {
	gid := goroutineID()
	m.mu.Lock()
	m.init()
	if m.writerActive && m.owner == gid {
		m.depth++
		m.mu.Unlock()
		return
	}
	m.writersWaiting++
	for m.writerActive {
		m.writerGate.Wait()
	}
	m.writerActive = true
	for m.readers > 0 {
		m.writerGate.Wait()
	}
	m.writersWaiting--
	m.owner = gid
	m.depth = 1
	m.mu.Unlock()
}

// Unlock releases one exclusive acquisition. The outermost Unlock clears the
// owner and wakes both waiting writers and waiting readers; waiting writers
// win because readers re-check the announcement before proceeding.
func (m *Mutex) Unlock() {
	m.mu.Lock()
	if !m.writerActive {
		m.mu.Unlock()
		panic("priolock: Unlock of unlocked Mutex")
	}
	m.depth--
	if m.depth == 0 {
		m.writerActive = false
		m.owner = 0
		m.writerGate.Broadcast()
		m.readerGate.Broadcast()
	}
	m.mu.Unlock()
}

// goroutineID extracts the numeric id of the calling goroutine from its
// stack header ("goroutine N [running]:"). The runtime offers no public
// accessor; writer reentrancy needs the identity, so the header parse is the
// portable route.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
