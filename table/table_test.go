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

package table

import (
	"testing"

	"github.com/starling-lang/starling/internal/errs"
	"github.com/starling-lang/starling/value"
)

func TestGetSetArrayPart(t *testing.T) {
	tb := New(0, 0)
	for i := 1; i <= 4; i++ {
		if err := tb.Set(value.Number(float64(i)), value.Number(float64(i*10))); err != nil {
			t.Fatalf("Set(%d): %v", i, err)
		}
	}
	for i := 1; i <= 4; i++ {
		got := tb.Get(value.Number(float64(i)))
		if got.N != float64(i*10) {
			t.Fatalf("Get(%d) = %v, want %d", i, got.N, i*10)
		}
	}
}

func TestSetNilErasesKey(t *testing.T) {
	tb := New(0, 0)
	key := value.String(&value.Str{Bytes: []byte("k")})
	if err := tb.Set(key, value.Number(1)); err != nil {
		t.Fatal(err)
	}
	if tb.Get(key).IsNil() {
		t.Fatal("expected key to be present after Set")
	}
	if err := tb.Set(key, value.Nil); err != nil {
		t.Fatal(err)
	}
	if !tb.Get(key).IsNil() {
		t.Fatal("expected key to be erased after Set(k, nil)")
	}
}

func TestSetRejectsNilAndNaNKeys(t *testing.T) {
	tb := New(0, 0)
	if err := tb.Set(value.Nil, value.Number(1)); err != errs.ErrNilKey {
		t.Fatalf("Set(nil, 1) error = %v, want ErrNilKey", err)
	}
	if err := tb.Set(value.Number(0*1), value.Number(1)); err != nil {
		t.Fatalf("Set(0, 1) should succeed: %v", err)
	}
	nan := value.Number(nan())
	if err := tb.Set(nan, value.Number(1)); err != errs.ErrNaNKey {
		t.Fatalf("Set(NaN, 1) error = %v, want ErrNaNKey", err)
	}
	// Erasing a key that was never present is a silent no-op even when
	// the key itself is invalid.
	if err := tb.Set(nan, value.Nil); err != nil {
		t.Fatalf("Set(NaN, nil) should be a no-op, got %v", err)
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestHashPartCollisionsAndDeletion(t *testing.T) {
	tb := New(0, 0)
	keys := make([]*value.Str, 0, 32)
	for i := 0; i < 32; i++ {
		s := &value.Str{Bytes: []byte{byte(i)}, Hash: uint64(i % 4)} // force collisions
		keys = append(keys, s)
		if err := tb.Set(value.String(s), value.Number(float64(i))); err != nil {
			t.Fatalf("Set #%d: %v", i, err)
		}
	}
	for i, s := range keys {
		got := tb.Get(value.String(s))
		if got.N != float64(i) {
			t.Fatalf("Get(key %d) = %v, want %d", i, got.N, i)
		}
	}
	// Delete every other key and confirm survivors are still reachable.
	for i := 0; i < len(keys); i += 2 {
		if err := tb.Set(value.String(keys[i]), value.Nil); err != nil {
			t.Fatalf("delete #%d: %v", i, err)
		}
	}
	for i, s := range keys {
		got := tb.Get(value.String(s))
		if i%2 == 0 {
			if !got.IsNil() {
				t.Fatalf("key %d should have been deleted", i)
			}
		} else if got.N != float64(i) {
			t.Fatalf("surviving key %d = %v, want %d", i, got.N, i)
		}
	}
}

func TestLengthBoundary(t *testing.T) {
	tb := New(0, 0)
	if got := tb.Length(); got != 0 {
		t.Fatalf("Length() of empty table = %d, want 0", got)
	}
	for i := 1; i <= 5; i++ {
		tb.Set(value.Number(float64(i)), value.Number(1))
	}
	if got := tb.Length(); got != 5 {
		t.Fatalf("Length() = %d, want 5", got)
	}
	// A hole makes "a border" ambiguous, but whatever boundary Length
	// returns must satisfy t[n] ~= nil and t[n+1] == nil.
	tb.Set(value.Number(3), value.Nil)
	n := tb.Length()
	atN := tb.Get(value.Number(float64(n)))
	atN1 := tb.Get(value.Number(float64(n + 1)))
	if (n != 0 && atN.IsNil()) || !atN1.IsNil() {
		t.Fatalf("Length() = %d is not a valid border after a hole (t[n]=%v t[n+1]=%v)", n, atN, atN1)
	}
}

func TestNextIteratesArrayThenHash(t *testing.T) {
	tb := New(0, 0)
	tb.Set(value.Number(1), value.Number(10))
	tb.Set(value.Number(2), value.Number(20))
	strKey := value.String(&value.Str{Bytes: []byte("extra")})
	tb.Set(strKey, value.Number(30))

	seen := map[float64]bool{}
	k, v, ok := tb.Next(value.Nil)
	for ok {
		if k.Tag == value.KindNumber {
			seen[v.N] = true
		}
		k, v, ok = tb.Next(k)
	}
	if !seen[10] || !seen[20] {
		t.Fatalf("Next traversal missed array entries: %v", seen)
	}
	// The hash-part entry must also surface at some point.
	found := false
	k, v, ok = tb.Next(value.Nil)
	for ok {
		if value.RawEqual(k, strKey) && v.N == 30 {
			found = true
		}
		k, v, ok = tb.Next(k)
	}
	if !found {
		t.Fatal("Next traversal never surfaced the hash-part key")
	}
}

func TestRehashAbsorbsContiguousIntegerKeys(t *testing.T) {
	tb := New(0, 0)
	// Insert out of order so 2 lands in the hash part before 1 exists.
	tb.Set(value.Number(2), value.Number(200))
	tb.Set(value.Number(1), value.Number(100))
	tb.Rehash()
	if got := tb.Get(value.Number(1)); got.N != 100 {
		t.Fatalf("Get(1) after Rehash = %v, want 100", got.N)
	}
	if got := tb.Get(value.Number(2)); got.N != 200 {
		t.Fatalf("Get(2) after Rehash = %v, want 200", got.N)
	}
	if got := tb.Length(); got != 2 {
		t.Fatalf("Length() after Rehash = %d, want 2", got)
	}
}

func TestMetatable(t *testing.T) {
	tb := New(0, 0)
	if tb.Metatable() != nil {
		t.Fatal("fresh table must have no metatable")
	}
	mt := New(0, 0)
	tb.Flags = FlagNoIndex
	tb.SetMetatable(mt)
	if tb.Metatable() != mt {
		t.Fatal("SetMetatable did not take effect")
	}
	if tb.Flags != 0 {
		t.Fatal("SetMetatable must reset the cached metamethod-absence flags")
	}
}
