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

package value

import "testing"

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"nil", Nil, false},
		{"false", Bool(false), false},
		{"true", Bool(true), true},
		{"zero", Number(0), true},
		{"negated zero", Number(0 * -1), true},
		{"empty string", String(&Str{Bytes: nil}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Truthy(); got != tt.want {
				t.Errorf("Truthy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRawEqualIdentityForStrings(t *testing.T) {
	a := &Str{Bytes: []byte("foo")}
	b := &Str{Bytes: []byte("foo")}

	if !RawEqual(String(a), String(a)) {
		t.Fatal("same *Str must be RawEqual to itself")
	}
	if RawEqual(String(a), String(b)) {
		t.Fatal("distinct *Str with equal bytes must not be RawEqual without interning")
	}
}

func TestRawEqualAcrossKinds(t *testing.T) {
	if RawEqual(Number(0), Bool(false)) {
		t.Fatal("values of different Kind must never be RawEqual")
	}
	if RawEqual(Nil, Value{}) == false {
		t.Fatal("two zero-value Values are both KindNil and must be RawEqual")
	}
}

func TestRawEqualObjectsByIdentity(t *testing.T) {
	type obj struct{ Header }
	o1 := &obj{}
	o2 := &obj{}
	if RawEqual(Table(o1), Table(o2)) {
		t.Fatal("distinct table objects must not be RawEqual")
	}
	if !RawEqual(Table(o1), Table(o1)) {
		t.Fatal("a table object must be RawEqual to itself")
	}
}

func TestHeaderColor(t *testing.T) {
	var h Header
	if !h.IsWhite() {
		t.Fatal("a fresh Header defaults to white")
	}
	h.SetColor(ColorGray)
	if !h.IsGray() || h.IsWhite() || h.IsBlack() {
		t.Fatalf("SetColor(ColorGray) left color bits as %v", h.Color())
	}
	h.SetFlag(FlagFixed)
	if !h.HasFlag(FlagFixed) {
		t.Fatal("SetFlag did not set FlagFixed")
	}
	if !h.IsGray() {
		t.Fatal("SetFlag must not disturb the color bits")
	}
	h.ClearFlag(FlagFixed)
	if h.HasFlag(FlagFixed) {
		t.Fatal("ClearFlag did not clear FlagFixed")
	}
}

func TestKindString(t *testing.T) {
	if KindNumber.String() != "number" {
		t.Fatalf("KindNumber.String() = %q", KindNumber.String())
	}
	if KindThread.String() != "thread" {
		t.Fatalf("KindThread.String() = %q", KindThread.String())
	}
}
