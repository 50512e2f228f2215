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

package api

import (
	"bytes"
	"errors"
	"testing"

	"github.com/starling-lang/starling/chunk"
	"github.com/starling-lang/starling/coroutine"
	"github.com/starling-lang/starling/internal/errs"
	"github.com/starling-lang/starling/object"
	"github.com/starling-lang/starling/value"
)

// newTestState wires a State with a synthetic native-call frame pushed
// onto its main thread, standing in for the frame a real native
// closure would be running under (operations below a protected
// boundary always execute with one).
func newTestState(t *testing.T) *State {
	t.Helper()
	s := New(nil)
	cl := object.NewScript(&object.Proto{MaxStackSize: 64}, nil)
	env := value.Table(s.Globals())
	cl.Env = &env
	s.Thread().EnsureStack(64)
	s.Thread().PushFrame(&coroutine.Frame{Closure: cl, Base: 0, Top: 0, AllowYield: true})
	return s
}

func TestPushPopAndTypes(t *testing.T) {
	s := newTestState(t)
	s.PushNil()
	s.PushBoolean(true)
	s.PushNumber(3.5)
	s.PushString([]byte("hi"))

	if got := s.GetTop(); got != 4 {
		t.Fatalf("GetTop() = %d, want 4", got)
	}
	if s.Type(1) != value.KindNil || s.Type(2) != value.KindBoolean || s.Type(3) != value.KindNumber || s.Type(4) != value.KindString {
		t.Fatalf("unexpected types: %v %v %v %v", s.Type(1), s.Type(2), s.Type(3), s.Type(4))
	}
	if !s.ToBoolean(2) {
		t.Fatal("ToBoolean(2) = false, want true")
	}
	if n, ok := s.ToNumber(3); !ok || n != 3.5 {
		t.Fatalf("ToNumber(3) = (%v, %v), want (3.5, true)", n, ok)
	}
	if b, ok := s.ToLString(4); !ok || string(b) != "hi" {
		t.Fatalf("ToLString(4) = (%q, %v), want (\"hi\", true)", b, ok)
	}

	s.Pop(2)
	if got := s.GetTop(); got != 2 {
		t.Fatalf("GetTop() after Pop(2) = %d, want 2", got)
	}
}

func TestSetTopPadsAndShrinks(t *testing.T) {
	s := newTestState(t)
	s.PushNumber(1)
	s.PushNumber(2)
	s.PushNumber(3)

	s.SetTop(1)
	if got := s.GetTop(); got != 1 {
		t.Fatalf("GetTop() after SetTop(1) = %d, want 1", got)
	}

	s.SetTop(3)
	if got := s.GetTop(); got != 3 {
		t.Fatalf("GetTop() after SetTop(3) = %d, want 3", got)
	}
	if s.Type(2) != value.KindNil || s.Type(3) != value.KindNil {
		t.Fatal("SetTop must pad freshly grown slots with nil")
	}
}

func TestInsertRemoveReplace(t *testing.T) {
	s := newTestState(t)
	s.PushNumber(10)
	s.PushNumber(20)
	s.PushNumber(30)

	s.Insert(1) // move 30 down to slot 1, shifting 10 and 20 up
	if n, _ := s.ToNumber(1); n != 30 {
		t.Fatalf("after Insert(1), slot 1 = %v, want 30", n)
	}
	if n, _ := s.ToNumber(2); n != 10 {
		t.Fatalf("after Insert(1), slot 2 = %v, want 10", n)
	}
	if n, _ := s.ToNumber(3); n != 20 {
		t.Fatalf("after Insert(1), slot 3 = %v, want 20", n)
	}

	s.Remove(2) // drop the 10
	if got := s.GetTop(); got != 2 {
		t.Fatalf("GetTop() after Remove(2) = %d, want 2", got)
	}
	if n, _ := s.ToNumber(2); n != 20 {
		t.Fatalf("after Remove(2), slot 2 = %v, want 20", n)
	}

	s.PushNumber(99)
	s.Replace(1) // pop 99 into slot 1
	if got := s.GetTop(); got != 2 {
		t.Fatalf("GetTop() after Replace(1) = %d, want 2", got)
	}
	if n, _ := s.ToNumber(1); n != 99 {
		t.Fatalf("after Replace(1), slot 1 = %v, want 99", n)
	}
}

func TestGlobalsGetSetField(t *testing.T) {
	s := newTestState(t)
	s.PushNumber(42)
	if err := s.SetField(GlobalsIndex, "x"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := s.GetField(GlobalsIndex, "x"); err != nil {
		t.Fatalf("GetField: %v", err)
	}
	if n, ok := s.ToNumber(-1); !ok || n != 42 {
		t.Fatalf("globals.x = (%v, %v), want (42, true)", n, ok)
	}
}

func TestRawTableOps(t *testing.T) {
	s := newTestState(t)
	s.CreateTable(0, 0)
	idx := s.GetTop()

	s.PushNumber(1)
	s.PushBoolean(true)
	if err := s.RawSet(idx); err != nil {
		t.Fatalf("RawSet: %v", err)
	}

	s.RawGetI(idx, 1)
	if !s.ToBoolean(-1) {
		t.Fatal("RawGetI(idx, 1) did not observe the value written by RawSet")
	}
}

func TestMetatableIndexChaining(t *testing.T) {
	s := newTestState(t)

	s.CreateTable(0, 0) // base table
	base := s.GetTop()
	s.PushString([]byte("greeting"))
	s.PushNumber(1)
	if err := s.RawSet(base); err != nil {
		t.Fatalf("RawSet(base): %v", err)
	}

	s.CreateTable(0, 0) // metatable
	mt := s.GetTop()
	s.PushString([]byte("__index"))
	s.PushValue(base)
	if err := s.RawSet(mt); err != nil {
		t.Fatalf("RawSet(mt): %v", err)
	}

	s.CreateTable(0, 0) // derived table
	derived := s.GetTop()
	s.PushValue(mt)
	if err := s.SetMetatable(derived); err != nil {
		t.Fatalf("SetMetatable: %v", err)
	}

	s.PushString([]byte("greeting"))
	if err := s.GetTable(derived); err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	if n, ok := s.ToNumber(-1); !ok || n != 1 {
		t.Fatalf("derived.greeting via __index = (%v, %v), want (1, true)", n, ok)
	}
}

func TestNextIteratesTable(t *testing.T) {
	s := newTestState(t)
	s.CreateTable(0, 0)
	idx := s.GetTop()
	s.PushNumber(1)
	s.PushBoolean(true)
	if err := s.RawSet(idx); err != nil {
		t.Fatalf("RawSet: %v", err)
	}

	s.PushNil()
	if !s.Next(idx) {
		t.Fatal("Next must yield the table's sole entry")
	}
	if n, ok := s.ToNumber(-2); !ok || n != 1 {
		t.Fatalf("Next key = (%v, %v), want (1, true)", n, ok)
	}
	if !s.ToBoolean(-1) {
		t.Fatal("Next value must be true")
	}

	s.Pop(1) // drop the value, keep the key for the next iteration
	if s.Next(idx) {
		t.Fatal("Next must report exhaustion after the sole entry")
	}
}

func TestPushClosureAndUpvalues(t *testing.T) {
	s := newTestState(t)
	s.PushNumber(10)
	fn := func(ctx interface{}) (int, error) { return 0, nil }
	s.PushClosure(fn, "myfn", 1)
	idx := s.GetTop()

	if name := s.GetUpvalue(idx, 1); name != "" {
		t.Fatalf("GetUpvalue name on a native closure = %q, want \"\"", name)
	}
	if n, ok := s.ToNumber(-1); !ok || n != 10 {
		t.Fatalf("upvalue 1 = (%v, %v), want (10, true)", n, ok)
	}
	s.Pop(1)

	s.PushNumber(20)
	s.SetUpvalue(idx, 1)
	s.GetUpvalue(idx, 1)
	if n, ok := s.ToNumber(-1); !ok || n != 20 {
		t.Fatalf("upvalue 1 after SetUpvalue = (%v, %v), want (20, true)", n, ok)
	}
}

func TestCallNativeClosure(t *testing.T) {
	s := newTestState(t)
	fn := func(ctx interface{}) (int, error) {
		th := ctx.(*coroutine.Thread)
		f := th.CurrentFrame()
		th.Stack[f.Base] = value.Number(99)
		return 1, nil
	}
	s.PushClosure(fn, "ninety-nine", 0)
	if err := s.Call(0, 1); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if n, ok := s.ToNumber(-1); !ok || n != 99 {
		t.Fatalf("Call result = (%v, %v), want (99, true)", n, ok)
	}
}

func TestPCallRecoversError(t *testing.T) {
	s := newTestState(t)
	fn := func(ctx interface{}) (int, error) { return 0, errors.New("boom") }
	s.PushClosure(fn, "boom", 0)

	status := s.PCall(0, 0, 0)
	if status != errs.StatusRuntimeError {
		t.Fatalf("PCall status = %v, want StatusRuntimeError", status)
	}
	if s.Type(1) != value.KindFunction {
		t.Fatal("PCall must leave the failed callee in place below the error value")
	}
	msg, ok := s.ToLString(2)
	if !ok || string(msg) != "boom" {
		t.Fatalf("PCall error value = (%q, %v), want (\"boom\", true)", msg, ok)
	}
}

func TestGCControls(t *testing.T) {
	s := newTestState(t)
	s.GCStop()
	s.GCStep() // must be a no-op while stopped; verified indirectly by not panicking
	s.GCRestart()
	s.GCCollect()

	if got := s.GCSetPause(150); got != 150 {
		t.Fatalf("GCSetPause returned %d, want 150", got)
	}
	if got := s.GCSetStepMultiplier(300); got != 300 {
		t.Fatalf("GCSetStepMultiplier returned %d, want 300", got)
	}
	if kib, rem := s.GCCount(); kib < 0 || rem < 0 {
		t.Fatalf("GCCount() = (%d, %d), want non-negative", kib, rem)
	}
}

func TestToStringMetaUsesHandler(t *testing.T) {
	s := newTestState(t)
	s.CreateTable(0, 0)
	idx := s.GetTop()

	handler := func(ctx interface{}) (int, error) {
		th := ctx.(*coroutine.Thread)
		f := th.CurrentFrame()
		th.Stack[f.Base] = value.String(s.Strings.Intern([]byte("custom")))
		return 1, nil
	}
	s.CreateTable(0, 0) // metatable
	mt := s.GetTop()
	s.PushString([]byte("__tostring"))
	s.PushClosure(handler, "tostring-handler", 0)
	if err := s.RawSet(mt); err != nil {
		t.Fatalf("RawSet(mt): %v", err)
	}
	s.PushValue(mt)
	if err := s.SetMetatable(idx); err != nil {
		t.Fatalf("SetMetatable: %v", err)
	}

	got, err := s.ToStringMeta(idx)
	if err != nil {
		t.Fatalf("ToStringMeta: %v", err)
	}
	if got != "custom" {
		t.Fatalf("ToStringMeta() = %q, want \"custom\" (from __tostring)", got)
	}
}

func TestLoadPushesClosureAndDumpRejectsNative(t *testing.T) {
	s := newTestState(t)
	fn := func(ctx interface{}) (int, error) { return 0, nil }
	s.PushClosure(fn, "native", 0)
	if err := s.Dump(s.GetTop(), &bytes.Buffer{}); err == nil {
		t.Fatal("Dump must reject a native closure")
	}

	p := &object.Proto{MaxStackSize: 1}
	var buf bytes.Buffer
	if err := chunk.Dump(&buf, p); err != nil {
		t.Fatalf("chunk.Dump: %v", err)
	}
	if err := s.Load("chunk", &buf); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Type(-1) != value.KindFunction {
		t.Fatal("Load must push a function")
	}
	if s.ToNativeFunction(-1) != nil {
		t.Fatal("a loaded chunk's closure must not be native")
	}
}
