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

package interp

import (
	"testing"

	"github.com/starling-lang/starling/coroutine"
	"github.com/starling-lang/starling/meta"
	"github.com/starling-lang/starling/object"
	"github.com/starling-lang/starling/strtab"
	"github.com/starling-lang/starling/table"
	"github.com/starling-lang/starling/value"
)

// runScript wires a fresh thread around p (with no upvalues or
// parameters) and runs it to completion, returning the value left at
// the call's own result slot.
func runScript(t *testing.T, ip *Interp, p *object.Proto, env value.Value) value.Value {
	t.Helper()
	th := coroutine.New()
	th.EnsureStack(0)
	cl := object.NewScript(p, nil)
	cl.Env = &env
	th.Stack[0] = value.Function(cl)

	res, err := coroutine.Precall(th, 0, 0, -1)
	if err != nil {
		t.Fatalf("Precall: %v", err)
	}
	if res != coroutine.PCRLUA {
		t.Fatalf("Precall result = %v, want PCRLUA", res)
	}
	if err := ip.Run(th); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return th.Stack[0]
}

func TestRunArithmeticProgram(t *testing.T) {
	// local function: return 10 + 20
	p := &object.Proto{
		MaxStackSize: 3,
		Constants:    []value.Value{value.Number(10), value.Number(20)},
		Code: []uint32{
			EncodeBx(OpLoadK, 0, 0),
			EncodeBx(OpLoadK, 1, 1),
			Encode(OpAdd, 2, 0, 1),
			Encode(OpReturn, 2, 2, 0),
		},
	}
	ip := New(&meta.Registry{}, strtab.New(), nil, nil)
	got := runScript(t, ip, p, value.Table(table.New(0, 0)))
	if got.Tag != value.KindNumber || got.N != 30 {
		t.Fatalf("result = %v, want 30", got)
	}
}

func TestRunConditionalJump(t *testing.T) {
	// if 1 < 2 then return 111 else return 222 end.
	//
	// EQ/LT/LE always sit directly before a JMP: when the comparison
	// matches A, the following JMP's offset is applied; otherwise the
	// JMP is skipped over and execution falls through to whatever
	// comes after it (the "else" body).
	p := &object.Proto{
		MaxStackSize: 1,
		Constants:    []value.Value{value.Number(1), value.Number(2), value.Number(222), value.Number(111)},
		Code: []uint32{
			Encode(OpLt, 1, rk(0), rk(1)), // A=1 (expect true): 1 < 2
			EncodesBx(OpJmp, 0, 2),        // taken on match, lands on the LOADK 111 below
			EncodeBx(OpLoadK, 0, 2),       // else body: reg0 = 222
			EncodesBx(OpJmp, 0, 1),        // skip past the then body to RETURN
			EncodeBx(OpLoadK, 0, 3),       // then body: reg0 = 111
			Encode(OpReturn, 0, 2, 0),
		},
	}
	ip := New(&meta.Registry{}, strtab.New(), nil, nil)
	got := runScript(t, ip, p, value.Table(table.New(0, 0)))
	if got.N != 111 {
		t.Fatalf("result = %v, want 111 (true branch taken)", got.N)
	}
}

func rk(constIdx int) int { return constIdx | rkIsConst }

func TestRunCallsNativeGlobal(t *testing.T) {
	strs := strtab.New()
	key := value.String(strs.Intern([]byte("f")))
	globals := table.New(0, 0)
	native := object.NewNative(func(ctx interface{}) (int, error) {
		th := ctx.(*coroutine.Thread)
		nf := th.CurrentFrame()
		th.Stack[nf.Base] = value.Number(7)
		return 1, nil
	}, "f", nil)
	if err := globals.Set(key, value.Function(native)); err != nil {
		t.Fatal(err)
	}

	p := &object.Proto{
		MaxStackSize: 1,
		Constants:    []value.Value{key},
		Code: []uint32{
			EncodeBx(OpGetGlobal, 0, 0),
			Encode(OpCall, 0, 1, 2),
			Encode(OpReturn, 0, 2, 0),
		},
	}
	ip := New(&meta.Registry{}, strs, nil, nil)
	got := runScript(t, ip, p, value.Table(globals))
	if got.N != 7 {
		t.Fatalf("result = %v, want 7", got.N)
	}
}

func TestCompareNumbers(t *testing.T) {
	ip := New(&meta.Registry{}, strtab.New(), nil, nil)
	th := coroutine.New()

	lt, err := ip.Compare(th, "lt", value.Number(1), value.Number(2))
	if err != nil || !lt {
		t.Fatalf("Compare(lt, 1, 2) = (%v, %v), want (true, nil)", lt, err)
	}
	eq, err := ip.Compare(th, "eq", value.Number(2), value.Number(2))
	if err != nil || !eq {
		t.Fatalf("Compare(eq, 2, 2) = (%v, %v), want (true, nil)", eq, err)
	}
}

func TestConcat2JoinsStringsAndNumbers(t *testing.T) {
	strs := strtab.New()
	ip := New(&meta.Registry{}, strs, nil, nil)
	th := coroutine.New()

	v, err := ip.Concat2(th, []value.Value{
		value.String(strs.Intern([]byte("n="))),
		value.Number(42),
	})
	if err != nil {
		t.Fatalf("Concat2: %v", err)
	}
	if v.S.String() != "n=42" {
		t.Fatalf("Concat2 result = %q, want \"n=42\"", v.S.String())
	}
}

func TestLength2StringAndTable(t *testing.T) {
	strs := strtab.New()
	ip := New(&meta.Registry{}, strs, nil, nil)
	th := coroutine.New()

	sv := value.String(strs.Intern([]byte("hello")))
	lv, err := ip.Length2(th, sv)
	if err != nil || lv.N != 5 {
		t.Fatalf("Length2(string) = (%v, %v), want (5, nil)", lv, err)
	}

	tbl := table.New(0, 0)
	tbl.Set(value.Number(1), value.Bool(true))
	tbl.Set(value.Number(2), value.Bool(true))
	lv2, err := ip.Length2(th, value.Table(tbl))
	if err != nil || lv2.N != 2 {
		t.Fatalf("Length2(table) = (%v, %v), want (2, nil)", lv2, err)
	}
}

func TestIndex2AndNewIndex2RawTable(t *testing.T) {
	ip := New(&meta.Registry{}, strtab.New(), nil, nil)
	th := coroutine.New()
	tbl := table.New(0, 0)

	if err := ip.NewIndex2(th, value.Table(tbl), value.Number(1), value.Bool(true)); err != nil {
		t.Fatalf("NewIndex2: %v", err)
	}
	v, err := ip.Index2(th, value.Table(tbl), value.Number(1))
	if err != nil {
		t.Fatalf("Index2: %v", err)
	}
	if !v.Truthy() {
		t.Fatal("Index2 did not observe the value written by NewIndex2")
	}
}
