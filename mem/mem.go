// Copyright 2024 The starling Authors
// This file is part of the starling library.
//
// The starling library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The starling library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the starling library. If not, see <http://www.gnu.org/licenses/>.

// Package mem is the runtime's memory manager: a single indirect allocator
// callback feeding byte-accounting that drives GC scheduling.
package mem

import (
	"github.com/starling-lang/starling/internal/errs"
)

// AllocFunc is the host-supplied allocator: given ptr (nil for a fresh
// allocation), oldSize, and newSize (0 to free), it returns the
// (re)allocated block, or nil with ok=false to signal refusal.
type AllocFunc func(ptr []byte, oldSize, newSize int) (out []byte, ok bool)

// DefaultAlloc is a thin allocator over Go's own allocator; used when the
// host does not supply one. It never refuses, leaving allocation failure
// to the Go runtime rather than second-guessing it.
func DefaultAlloc(ptr []byte, oldSize, newSize int) ([]byte, bool) {
	if newSize == 0 {
		return nil, true
	}
	out := make([]byte, newSize)
	copy(out, ptr)
	return out, true
}

// Manager tracks total bytes in use and steps the GC when a threshold is
// crossed. It counts the bytes reported to it through Alloc, Account
// and Free; thread value stacks grow outside it and are not counted.
type Manager struct {
	alloc      AllocFunc
	total      int64 // bytes currently in use
	threshold  int64 // next GC step fires when total crosses this
	pause      int64 // percent: threshold = total * pause / 100 after a cycle
	stepMul    int64 // percent: work done per step is proportional to this
	onThreshold func(m *Manager)
}

// New creates a memory manager around alloc (or DefaultAlloc if nil).
func New(alloc AllocFunc) *Manager {
	if alloc == nil {
		alloc = DefaultAlloc
	}
	return &Manager{
		alloc:     alloc,
		pause:     200,
		stepMul:   200,
		threshold: 1 << 20,
	}
}

// SetGCStepCallback installs the function invoked whenever Total crosses
// Threshold; the gc package wires its Step method in here.
func (m *Manager) SetGCStepCallback(f func(m *Manager)) { m.onThreshold = f }

// Alloc requests newSize bytes, reusing ptr's backing storage (oldSize
// bytes of it) if possible. A refusal is reported as errs.ErrOutOfMemory,
// the runtime's dedicated memory-error kind.
func (m *Manager) Alloc(ptr []byte, oldSize, newSize int) ([]byte, error) {
	out, ok := m.alloc(ptr, oldSize, newSize)
	if !ok {
		return nil, errs.ErrOutOfMemory
	}
	m.total += int64(newSize) - int64(oldSize)
	if m.total < 0 {
		m.total = 0
	}
	if m.total >= m.threshold && m.onThreshold != nil {
		m.onThreshold(m)
	}
	return out, nil
}

// Account adjusts the byte counter by a signed delta without exchanging
// a buffer through the host allocator, for typed backing slices (table
// arrays, hash buckets, interned string bytes) that cannot be expressed
// as the []byte AllocFunc expects. It drives the same threshold-crossing
// GC step Alloc does.
func (m *Manager) Account(delta int64) {
	m.total += delta
	if m.total < 0 {
		m.total = 0
	}
	if m.total >= m.threshold && m.onThreshold != nil {
		m.onThreshold(m)
	}
}

// Free releases a block of n bytes previously accounted for by Alloc.
func (m *Manager) Free(n int) {
	m.total -= int64(n)
	if m.total < 0 {
		m.total = 0
	}
}

// SetThreshold is called by the collector after a full cycle to schedule
// the next one, applying the pause tunable: threshold = total * pause/100.
func (m *Manager) SetThreshold() {
	m.threshold = m.total * m.pause / 100
}

func (m *Manager) SetPause(p int64)       { m.pause = p }
func (m *Manager) SetStepMultiplier(p int64) { m.stepMul = p }
func (m *Manager) StepMultiplier() int64  { return m.stepMul }
func (m *Manager) Total() int64           { return m.total }

// Stats reports the memory counter the way the embedding API exposes it.
func (m *Manager) Stats() (kib int, rem int) {
	return int(m.total / 1024), int(m.total % 1024)
}
