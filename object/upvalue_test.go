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

package object

import (
	"testing"

	"github.com/starling-lang/starling/value"
)

type fakeStack struct {
	slots []value.Value
}

func (s *fakeStack) Slot(i int) *value.Value { return &s.slots[i] }

func TestUpvalueOpenReadsThroughStack(t *testing.T) {
	st := &fakeStack{slots: []value.Value{value.Number(1), value.Number(2)}}
	uv := Open(st, 1)
	if !uv.IsOpen() {
		t.Fatal("a freshly Open'd upvalue must report IsOpen")
	}
	if got := uv.Get(); got.N != 2 {
		t.Fatalf("Get() = %v, want 2", got.N)
	}
	uv.Set(value.Number(42))
	if st.slots[1].N != 42 {
		t.Fatal("Set on an open upvalue must write through to the stack slot")
	}
}

func TestUpvalueCloseDetachesFromStack(t *testing.T) {
	st := &fakeStack{slots: []value.Value{value.Number(7)}}
	uv := Open(st, 0)
	uv.Close()
	if uv.IsOpen() {
		t.Fatal("Close must detach the upvalue from its stack")
	}
	if got := uv.Get(); got.N != 7 {
		t.Fatalf("Get() after Close = %v, want the last live value 7", got.N)
	}
	st.slots[0] = value.Number(999)
	if got := uv.Get(); got.N != 7 {
		t.Fatal("a closed upvalue must no longer observe writes to the old stack slot")
	}
	uv.Set(value.Number(100))
	if got := uv.Get(); got.N != 100 {
		t.Fatal("Set on a closed upvalue must update its own storage")
	}
}

func TestOpenListFindOrCreateSharesBySlot(t *testing.T) {
	st := &fakeStack{slots: make([]value.Value, 4)}
	var l OpenList
	a := l.FindOrCreate(st, 2, nil)
	b := l.FindOrCreate(st, 2, nil)
	if a != b {
		t.Fatal("FindOrCreate for the same slot must return the same Upvalue")
	}
	c := l.FindOrCreate(st, 0, nil)
	if c == a {
		t.Fatal("FindOrCreate for different slots must return distinct Upvalues")
	}
}

func TestOpenListCloseFromClosesContiguousPrefix(t *testing.T) {
	st := &fakeStack{slots: []value.Value{value.Number(0), value.Number(1), value.Number(2)}}
	var l OpenList
	low := l.FindOrCreate(st, 0, nil)
	mid := l.FindOrCreate(st, 1, nil)
	high := l.FindOrCreate(st, 2, nil)

	l.CloseFrom(1)

	if low.IsOpen() != true {
		t.Fatal("upvalue below the closed region must remain open")
	}
	if mid.IsOpen() || high.IsOpen() {
		t.Fatal("upvalues at or above the closed index must be closed")
	}

	var remaining []*Upvalue
	l.Traverse(func(u *Upvalue) { remaining = append(remaining, u) })
	if len(remaining) != 1 || remaining[0] != low {
		t.Fatalf("open list after CloseFrom should only retain the below-index upvalue, got %d entries", len(remaining))
	}
}
