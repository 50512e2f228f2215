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

package chunk

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/starling-lang/starling/object"
	"github.com/starling-lang/starling/strtab"
	"github.com/starling-lang/starling/value"
)

// valuesEqual compares two constant-pool values the way Load/Dump may
// legally round-trip them: strings are compared by content since a
// fresh strtab.Table interns independently of the one Dump's source
// Proto used.
func valuesEqual(a, b value.Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case value.KindNil:
		return true
	case value.KindBoolean:
		return a.B == b.B
	case value.KindNumber:
		return a.N == b.N
	case value.KindString:
		return a.S.String() == b.S.String()
	default:
		return false
	}
}

func samplePrototype() *object.Proto {
	return &object.Proto{
		Source:          "sample.star",
		LineDefined:     0,
		LastLineDefined: 10,
		NumParams:       2,
		IsVararg:        false,
		MaxStackSize:    4,
		Code:            []uint32{0x00000001, 0x00000002, 0x00000003},
		Constants: []value.Value{
			value.Nil,
			value.Bool(true),
			value.Number(3.5),
			value.String(&value.Str{Bytes: []byte("hello")}),
		},
		Protos: []*object.Proto{
			{
				Source:       "sample.star",
				LineDefined:  3,
				NumParams:    1,
				MaxStackSize: 2,
				Code:         []uint32{0x10},
				Upvalues: []object.UpvalDesc{
					{Name: "x", InStack: true, Index: 0},
				},
			},
		},
		LineInfo: []int{1, 1, 2},
		Upvalues: nil,
		LocalNames: []object.LocalVar{
			{Name: "a", StartPC: 0, EndPC: 3},
		},
	}
}

func TestDumpLoadRoundTrip(t *testing.T) {
	p := samplePrototype()

	var buf bytes.Buffer
	if err := Dump(&buf, p); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	strings := strtab.New()
	got, err := Load(&buf, strings)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	diff := cmp.Diff(p, got, cmp.Comparer(valuesEqual), cmpopts.EquateEmpty())
	if diff != "" {
		t.Fatalf("round-tripped prototype differs (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsBadSignature(t *testing.T) {
	strings := strtab.New()
	_, err := Load(bytes.NewReader([]byte("not a chunk")), strings)
	if err != ErrBadSignature {
		t.Fatalf("Load with garbage input error = %v, want ErrBadSignature", err)
	}
}

func TestLoadRejectsMismatchedHeader(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(signature)
	buf.WriteByte(0xFF) // bogus version
	buf.Write(make([]byte, 7)) // format, big-endian, sizeof(int/size_t/Instruction/Number), integral-flag

	strings := strtab.New()
	_, err := Load(&buf, strings)
	if err != ErrHeaderMismatch {
		t.Fatalf("Load with mismatched header error = %v, want ErrHeaderMismatch", err)
	}
}

func TestReadHeaderMatchesHost(t *testing.T) {
	var buf bytes.Buffer
	if err := Dump(&buf, &object.Proto{}); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	h, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h != HostHeader() {
		t.Fatalf("ReadHeader() = %+v, want host header %+v", h, HostHeader())
	}
}
