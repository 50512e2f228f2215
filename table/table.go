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

// Package table implements the runtime's hybrid array+hash container.
package table

import (
	"math"
	"reflect"
	"unsafe"

	"github.com/starling-lang/starling/internal/errs"
	"github.com/starling-lang/starling/value"
)

// uintptrOf extracts a stable identity hash from a GC object reference.
// Objects are never moved, so the
// underlying pointer value is stable for the object's lifetime.
func uintptrOf(o value.Object) uint64 {
	return uint64(reflect.ValueOf(o).Pointer())
}

// metaFlag bits cache which metamethods are known absent from this
// table's metatable, consulted by package meta.
const (
	FlagNoIndex    uint8 = 1 << 0
	FlagNoNewIndex uint8 = 1 << 1
	FlagNoEq       uint8 = 1 << 2
)

type hnode struct {
	key  value.Value
	val  value.Value
	next int // index into t.hash, -1 for end of chain; -2 for free/unused
}

// Table is the hybrid array+hash container. The array part holds dense
// integer keys 1..len(array); the hash part is an open-addressed,
// chained "main position" scheme.
type Table struct {
	hdr   value.Header
	array []value.Value
	hash  []hnode
	free  int // index of the next known-free hash slot to try, scanning downward
	meta  *Table
	Flags uint8

	// WeakKey/WeakValue mirror a __mode metatable entry ("k", "v", or
	// "kv"); when set, package gc's atomic phase clears entries on the
	// governed side once they are otherwise unreachable.
	WeakKey, WeakValue bool

	// GCHook, when set, is invoked once by the collector's finalize phase
	// before this table is reclaimed. It is run only when set directly:
	// nothing in the runtime sets it from a metatable's __gc entry.
	GCHook func(*Table) error

	// Account, when set, is called with the signed byte delta every time
	// the array or hash backing slice is (re)allocated, so package mem's
	// byte counter reflects table growth the same way it reflects
	// host-facing allocations. nil is a valid no-op default.
	Account func(int64)
}

func sizeofValue(n int) int64 { return int64(n) * int64(unsafe.Sizeof(value.Value{})) }
func sizeofHNode(n int) int64 { return int64(n) * int64(unsafe.Sizeof(hnode{})) }

func (t *Table) account(delta int64) {
	if t.Account != nil && delta != 0 {
		t.Account(delta)
	}
}

// ByteSize reports the current backing-slice footprint: array plus
// hash, not counting the elements they reference. Used to account for
// an initial allocation when Account is wired in after New returns.
func (t *Table) ByteSize() int64 {
	return sizeofValue(len(t.array)) + sizeofHNode(len(t.hash))
}

// Finalize satisfies gc.Finalizable.
func (t *Table) Finalize() error {
	if t.GCHook == nil {
		return nil
	}
	return t.GCHook(t)
}

// ClearWeak satisfies gc.WeakClearer: it drops array and hash entries
// whose governed side (per WeakKey/WeakValue) is a still-white object.
// Strings are never weak-governed here since interning already gives
// them cycle-independent lifetime via strtab's own sweep.
func (t *Table) ClearWeak(isWhite func(value.Object) bool) {
	if !t.WeakKey && !t.WeakValue {
		return
	}
	dead := func(v value.Value) bool { return v.Obj != nil && isWhite(v.Obj) }
	if t.WeakValue {
		for i, v := range t.array {
			if dead(v) {
				t.array[i] = value.Nil
			}
		}
	}
	for i := range t.hash {
		n := &t.hash[i]
		if n.next == -2 {
			continue
		}
		if (t.WeakKey && dead(n.key)) || (t.WeakValue && dead(n.val)) {
			n.key, n.val = value.Nil, value.Nil
		}
	}
}

func (t *Table) Header() *value.Header { return &t.hdr }

func (t *Table) Traverse(visit func(value.Object)) {
	for _, v := range t.array {
		traverseValue(v, visit)
	}
	for _, n := range t.hash {
		if n.next == -2 {
			continue
		}
		traverseValue(n.key, visit)
		traverseValue(n.val, visit)
	}
	if t.meta != nil {
		visit(t.meta)
	}
}

func traverseValue(v value.Value, visit func(value.Object)) {
	if v.Obj != nil {
		visit(v.Obj)
	}
	if v.Tag == value.KindString && v.S != nil {
		visit(v.S)
	}
}

// New creates an empty table, optionally pre-sized per NEWTABLE's B/C
// operands (array and hash size hints).
func New(arraySizeHint, hashSizeHint int) *Table {
	t := &Table{}
	if arraySizeHint > 0 {
		t.array = make([]value.Value, arraySizeHint)
		t.account(sizeofValue(arraySizeHint))
	}
	if hashSizeHint > 0 {
		n := nextPow2(hashSizeHint)
		t.hash = make([]hnode, n)
		t.account(sizeofHNode(n))
		t.resetFreeChain()
	}
	return t
}

func (t *Table) Metatable() *Table     { return t.meta }
func (t *Table) SetMetatable(m *Table) { t.meta = m; t.Flags = 0 }

// isValidKey rejects nil and NaN, the two keys a table may never store
//.
func isValidKey(k value.Value) error {
	if k.IsNil() {
		return errs.ErrNilKey
	}
	if k.Tag == value.KindNumber && math.IsNaN(k.N) {
		return errs.ErrNaNKey
	}
	return nil
}

func asArrayIndex(k value.Value) (int, bool) {
	if k.Tag != value.KindNumber {
		return 0, false
	}
	i := int(k.N)
	if float64(i) != k.N {
		return 0, false
	}
	return i, true
}

// Get performs a raw lookup.
func (t *Table) Get(k value.Value) value.Value {
	if i, ok := asArrayIndex(k); ok && i >= 1 && i <= len(t.array) {
		return t.array[i-1]
	}
	idx := t.mainPosition(k)
	if idx < 0 {
		return value.Nil
	}
	for n := &t.hash[idx]; ; {
		if n.next != -2 && value.RawEqual(n.key, k) {
			return n.val
		}
		if n.next < 0 {
			return value.Nil
		}
		n = &t.hash[n.next]
	}
}

// Set performs a raw assignment. Storing nil erases
// the key.
func (t *Table) Set(k, v value.Value) error {
	if err := isValidKey(k); err != nil {
		if v.IsNil() {
			return nil // erasing a never-present invalid key is a no-op
		}
		return err
	}
	if i, ok := asArrayIndex(k); ok && i >= 1 {
		if i <= len(t.array) {
			t.array[i-1] = v
			return nil
		}
		if i == len(t.array)+1 && !v.IsNil() {
			t.array = append(t.array, v)
			t.account(sizeofValue(1))
			t.absorbFromHash()
			return nil
		}
	}
	t.Flags = 0
	return t.hashSet(k, v)
}

// absorbFromHash pulls any integer keys now contiguous with the array's
// new tail out of the hash part and into the array, per invariant (ii):
// "integer keys in [1..array-length] reside in the array part after
// rehash" — kept true incrementally as well as after a full Rehash.
func (t *Table) absorbFromHash() {
	for {
		k := value.Number(float64(len(t.array) + 1))
		idx := t.mainPosition(k)
		if idx < 0 {
			return
		}
		prev := -1
		n := idx
		found := false
		for n >= 0 {
			if t.hash[n].next != -2 && value.RawEqual(t.hash[n].key, k) {
				found = true
				break
			}
			prev = n
			n = t.hash[n].next
		}
		if !found {
			return
		}
		v := t.hash[n].val
		t.removeChainNode(idx, prev, n)
		t.array = append(t.array, v)
	}
}

func (t *Table) removeChainNode(mainIdx, prev, n int) {
	if prev < 0 {
		if t.hash[n].next >= 0 {
			// Move the successor's payload into the main-position slot and
			// free the successor's old slot, preserving the chain.
			succ := t.hash[n].next
			t.hash[n].key = t.hash[succ].key
			t.hash[n].val = t.hash[succ].val
			t.hash[n].next = t.hash[succ].next
			t.hash[succ].next = -2
		} else {
			t.hash[n].next = -2
		}
	} else {
		t.hash[prev].next = t.hash[n].next
		t.hash[n].next = -2
	}
	_ = mainIdx
}

func (t *Table) hashSet(k, v value.Value) error {
	if len(t.hash) == 0 {
		if v.IsNil() {
			return nil
		}
		t.Rehash()
	}
	idx := t.mainPosition(k)
	prev := -1
	n := idx
	for n >= 0 {
		if t.hash[n].next != -2 && value.RawEqual(t.hash[n].key, k) {
			if v.IsNil() {
				t.removeChainNode(idx, prev, n)
			} else {
				t.hash[n].val = v
			}
			return nil
		}
		prev = n
		n = t.hash[n].next
	}
	if v.IsNil() {
		return nil
	}
	// New key. If its main position is free, claim it directly.
	if t.hash[idx].next == -2 {
		t.hash[idx].key = k
		t.hash[idx].val = v
		t.hash[idx].next = -1
		return nil
	}
	// Main position occupied. If the occupant is not at its own main
	// position, evict it into a free slot and claim the main position.
	occupantMain := t.mainPosition(t.hash[idx].key)
	free := t.findFreeSlot()
	if free < 0 {
		t.Rehash()
		return t.hashSet(k, v)
	}
	if occupantMain != idx {
		// Relink whoever points at idx to point at free instead, then move.
		p := occupantMain
		for t.hash[p].next != idx {
			p = t.hash[p].next
		}
		t.hash[p].next = free
		t.hash[free] = t.hash[idx]
		t.hash[idx] = hnode{key: k, val: v, next: -1}
		return nil
	}
	// Occupant is at its own main position: new key links into the chain.
	t.hash[free] = hnode{key: k, val: v, next: t.hash[idx].next}
	t.hash[idx].next = free
	return nil
}

func (t *Table) findFreeSlot() int {
	for t.free >= 0 {
		if t.hash[t.free].next == -2 {
			f := t.free
			t.free--
			return f
		}
		t.free--
	}
	return -1
}

func (t *Table) resetFreeChain() {
	for i := range t.hash {
		t.hash[i].next = -2
	}
	t.free = len(t.hash) - 1
}

func (t *Table) mainPosition(k value.Value) int {
	if len(t.hash) == 0 {
		return -1
	}
	h := hashValue(k)
	return int(h % uint64(len(t.hash)))
}

func hashValue(v value.Value) uint64 {
	switch v.Tag {
	case value.KindNumber:
		return floatHash(v.N)
	case value.KindBoolean:
		if v.B {
			return 1
		}
		return 0
	case value.KindString:
		return v.S.Hash
	default:
		return uintptrHash(v)
	}
}

func floatHash(f float64) uint64 {
	bits := math.Float64bits(f)
	return bits ^ (bits >> 32)
}

func uintptrHash(v value.Value) uint64 {
	if v.Obj == nil {
		return 0
	}
	return uintptrOf(v.Obj)
}

// Next implements stateless iteration: array part
// first in index order, then the hash part in storage order.
func (t *Table) Next(k value.Value) (value.Value, value.Value, bool) {
	start := 0
	if !k.IsNil() {
		if i, ok := asArrayIndex(k); ok && i >= 1 && i <= len(t.array) {
			start = i // resume just after array index i
		} else {
			return t.nextInHash(k)
		}
	}
	for i := start; i < len(t.array); i++ {
		if !t.array[i].IsNil() {
			return value.Number(float64(i + 1)), t.array[i], true
		}
	}
	return t.firstInHash()
}

func (t *Table) firstInHash() (value.Value, value.Value, bool) {
	for i := range t.hash {
		if t.hash[i].next != -2 {
			return t.hash[i].key, t.hash[i].val, true
		}
	}
	return value.Nil, value.Nil, false
}

func (t *Table) nextInHash(k value.Value) (value.Value, value.Value, bool) {
	idx := t.mainPosition(k)
	n := idx
	for n >= 0 {
		if t.hash[n].next != -2 && value.RawEqual(t.hash[n].key, k) {
			for i := n + 1; i < len(t.hash); i++ {
				if t.hash[i].next != -2 {
					return t.hash[i].key, t.hash[i].val, true
				}
			}
			return value.Nil, value.Nil, false
		}
		n = t.hash[n].next
	}
	return value.Nil, value.Nil, false
}

// Length returns a boundary n such that t[n] is non-nil and t[n+1] is
// nil, found by binary search over the array part,
// falling into the hash part only when the array's last slot is non-nil.
func (t *Table) Length() int {
	n := len(t.array)
	if n > 0 && t.array[n-1].IsNil() {
		lo, hi := 0, n
		for hi-lo > 1 {
			mid := (lo + hi) / 2
			if t.array[mid-1].IsNil() {
				hi = mid
			} else {
				lo = mid
			}
		}
		return lo
	}
	if len(t.hash) == 0 {
		return n
	}
	// Array is full (or empty); probe the hash part by doubling.
	i, j := n, n+1
	for !t.Get(value.Number(float64(j))).IsNil() {
		i = j
		if j > (1<<31)/2 {
			// Degenerate table: fall back to linear scan.
			for !t.Get(value.Number(float64(i+1))).IsNil() {
				i++
			}
			return i
		}
		j *= 2
	}
	for j-i > 1 {
		mid := (i + j) / 2
		if t.Get(value.Number(float64(mid))).IsNil() {
			j = mid
		} else {
			i = mid
		}
	}
	return i
}

// Rehash rebuilds the array and hash parts from scratch, sizing the
// array to the largest power of two P such that at least half of 1..P
// is populated.
func (t *Table) Rehash() {
	counts := make(map[int]int)
	add := func(i int) {
		p := 1
		for p <= i {
			p <<= 1
		}
		counts[p>>1]++
	}
	for i, v := range t.array {
		if !v.IsNil() {
			add(i + 1)
		}
	}
	type kv struct{ k, v value.Value }
	var overflow []kv
	for i := range t.hash {
		if t.hash[i].next == -2 {
			continue
		}
		if n, ok := asArrayIndex(t.hash[i].key); ok && n >= 1 {
			add(n)
		}
		overflow = append(overflow, kv{t.hash[i].key, t.hash[i].val})
	}

	best, bestCount := 0, 0
	running := 0
	for p := 1; p <= 1<<30; p <<= 1 {
		running += counts[p]
		if running*2 >= p {
			best, bestCount = p, running
		} else if p > 1<<20 && running*2 < p {
			break
		}
	}
	_ = bestCount

	newArray := make([]value.Value, best)
	var newHash []kv
	assign := func(k, v value.Value) {
		if i, ok := asArrayIndex(k); ok && i >= 1 && i <= best {
			newArray[i-1] = v
		} else {
			newHash = append(newHash, kv{k, v})
		}
	}
	for i, v := range t.array {
		if !v.IsNil() {
			assign(value.Number(float64(i+1)), v)
		}
	}
	for _, e := range overflow {
		assign(e.k, e.v)
	}

	t.account(sizeofValue(len(newArray)) - sizeofValue(len(t.array)))
	t.array = newArray
	size := nextPow2(len(newHash)*2 + 1)
	if size < 1 {
		size = 1
	}
	t.account(sizeofHNode(size) - sizeofHNode(len(t.hash)))
	t.hash = make([]hnode, size)
	t.resetFreeChain()
	for _, e := range newHash {
		_ = t.hashSet(e.k, e.v)
	}
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
