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

// Package strtab hash-conses immutable byte strings into a single global
// table so that equal byte sequences share one heap object:
// intern(bytes) == intern(bytes) by pointer identity.
package strtab

import (
	"unsafe"

	lru "github.com/hashicorp/golang-lru"

	"github.com/starling-lang/starling/value"
)

// longStringThreshold: strings at or above this length are hashed by a
// sampled subset rather than every byte, matching the documented
// sampling stride below.
const longStringThreshold = 32

// sampleStride is the starting step used when sampling a long string's
// bytes for hashing; the value and the formula below must be reproduced
// exactly for two runtimes to agree on a string's hash.
const sampleStride = 1

// hashBytes computes the string hash. Short strings hash every byte;
// long strings hash a sampled subset, walking back from the last byte:
// the step starts at sampleStride and grows by len/32+1 after each
// sampled byte, so at most about ten bytes are touched whatever the
// length.
func hashBytes(b []byte) uint64 {
	var h uint64 = 14695981039346656037 // FNV-1a offset basis
	const prime uint64 = 1099511628211

	if len(b) < longStringThreshold {
		for _, c := range b {
			h ^= uint64(c)
			h *= prime
		}
		return h
	}
	step := sampleStride
	for i := len(b); i > 0; i -= step {
		h ^= uint64(b[i-1])
		h *= prime
		step += (len(b) >> 5) + 1
	}
	h ^= uint64(len(b))
	h *= prime
	return h
}

type bucket struct {
	str  *value.Str
	next *bucket
}

// Table is the global intern table: one per runtime instance, consulted
// by every string-producing operation (literals, concatenation,
// tostring, ...).
type Table struct {
	buckets []*bucket
	count   int
	// hashCache shadows hashBytes for long strings so repeated interning
	// probes (e.g. re-parsing the same source, or repeated concatenation
	// of a long accumulator) skip the sampling walk; sized generously
	// since a miss only costs a recompute, never correctness.
	hashCache *lru.Cache

	// OnAlloc, when set, is called for every newly interned string so the
	// collector can link it into the global object list. nil is a valid no-op default for tests.
	OnAlloc func(*value.Str)

	// Account, when set, is called with the signed byte delta for the
	// string's own backing bytes and for bucket-slice growth, so
	// package mem's byte counter reflects interning. nil is a valid
	// no-op default for tests.
	Account func(int64)
}

// New creates an empty intern table sized for an initial load factor.
func New() *Table {
	cache, _ := lru.New(1024)
	return &Table{buckets: make([]*bucket, 64), hashCache: cache}
}

func (t *Table) hashOf(b []byte) uint64 {
	if len(b) < longStringThreshold {
		return hashBytes(b)
	}
	key := string(b)
	if v, ok := t.hashCache.Get(key); ok {
		return v.(uint64)
	}
	h := hashBytes(b)
	t.hashCache.Add(key, h)
	return h
}

// Intern returns the canonical *value.Str for b, allocating and linking
// a new one on first sight.
func (t *Table) Intern(b []byte) *value.Str {
	h := t.hashOf(b)
	idx := int(h % uint64(len(t.buckets)))
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.str.Hash == h && bytesEqual(e.str.Bytes, b) {
			return e.str
		}
	}
	s := &value.Str{Bytes: append([]byte(nil), b...), Hash: h}
	t.link(idx, s)
	t.count++
	if t.Account != nil {
		t.Account(int64(len(s.Bytes)))
	}
	if t.OnAlloc != nil {
		t.OnAlloc(s)
	}
	if float64(t.count) > float64(len(t.buckets)) {
		t.grow()
	}
	return s
}

// InternFixed interns b and marks the result as fixed. The compiler
// (out of scope) is the expected caller; exposed here for hosts that
// pre-register identifiers.
func (t *Table) InternFixed(b []byte) *value.Str {
	s := t.Intern(b)
	s.Header().SetFlag(value.FlagFixed)
	return s
}

func (t *Table) link(idx int, s *value.Str) {
	t.buckets[idx] = &bucket{str: s, next: t.buckets[idx]}
}

func (t *Table) grow() {
	old := t.buckets
	t.buckets = make([]*bucket, len(old)*2)
	if t.Account != nil {
		t.Account(int64(len(t.buckets)-len(old)) * int64(unsafe.Sizeof((*bucket)(nil))))
	}
	for _, head := range old {
		for e := head; e != nil; e = e.next {
			idx := int(e.str.Hash % uint64(len(t.buckets)))
			t.link(idx, e.str)
		}
	}
}

// SweepWhite removes interned strings that the collector found
// unreachable during the current cycle's sweep phase, skipping fixed strings.
func (t *Table) SweepWhite(isWhite func(*value.Str) bool) {
	for i, head := range t.buckets {
		var kept *bucket
		e := head
		for e != nil {
			next := e.next
			if e.str.Header().HasFlag(value.FlagFixed) || !isWhite(e.str) {
				e.next = kept
				kept = e
			} else {
				t.count--
			}
			e = next
		}
		t.buckets[i] = kept
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Count returns the number of distinct interned strings.
func (t *Table) Count() int { return t.count }
