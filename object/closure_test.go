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

func TestNewScriptClosureIsNotNative(t *testing.T) {
	p := &Proto{Upvalues: []UpvalDesc{{Name: "x"}}}
	st := &fakeStack{slots: []value.Value{value.Number(1)}}
	uv := Open(st, 0)
	cl := NewScript(p, []*Upvalue{uv})
	if cl.IsNative() {
		t.Fatal("a script closure must report IsNative() == false")
	}
	if got := cl.UpvalueName(0); got != "x" {
		t.Fatalf("UpvalueName(0) = %q, want \"x\"", got)
	}
}

func TestNewNativeClosureIsNative(t *testing.T) {
	fn := func(ctx interface{}) (int, error) { return 0, nil }
	cl := NewNative(fn, "myfunc", []value.Value{value.Number(1)})
	if !cl.IsNative() {
		t.Fatal("a native closure must report IsNative() == true")
	}
	if got := cl.UpvalueName(0); got != "" {
		t.Fatalf("UpvalueName on a native closure = %q, want \"\"", got)
	}
}

func TestClosureTraverseVisitsScriptUpvalues(t *testing.T) {
	st := &fakeStack{slots: []value.Value{value.Nil}}
	target := &Closure{} // stand-in heap object referenced by the upvalue
	st.slots[0] = value.Function(target)
	uv := Open(st, 0)
	cl := NewScript(&Proto{}, []*Upvalue{uv})

	var visited []value.Object
	cl.Traverse(func(o value.Object) { visited = append(visited, o) })

	found := false
	for _, o := range visited {
		if o == value.Object(uv) {
			found = true
		}
	}
	if !found {
		t.Fatal("Traverse on a script closure must visit its Upvals")
	}
}

func TestClosureTraverseVisitsNativeUpvalues(t *testing.T) {
	target := &Closure{}
	cl := NewNative(func(interface{}) (int, error) { return 0, nil }, "", []value.Value{value.Function(target)})

	var visited []value.Object
	cl.Traverse(func(o value.Object) { visited = append(visited, o) })

	if len(visited) != 1 || visited[0] != value.Object(target) {
		t.Fatal("Traverse on a native closure must visit its NativeUpvals' referenced objects")
	}
}

func TestClosureTraverseVisitsEnv(t *testing.T) {
	env := &Closure{}
	envVal := value.Function(env)
	cl := NewScript(&Proto{}, nil)
	cl.Env = &envVal

	var visited []value.Object
	cl.Traverse(func(o value.Object) { visited = append(visited, o) })

	if len(visited) != 1 || visited[0] != value.Object(env) {
		t.Fatal("Traverse must visit a non-nil Env")
	}
}
