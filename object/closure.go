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

import "github.com/starling-lang/starling/value"

// NativeFunc is a host callback wired into the embedding API. ctx is
// the calling *coroutine.Thread (passed as interface{} to avoid an
// import cycle between object and coroutine); the callback must write
// its results starting at its own frame's base (the slot just above
// the callee) and return how many it wrote.
type NativeFunc func(ctx interface{}) (nresults int, err error)

// Closure is the runtime instantiation of either a Proto (script
// closure) or a NativeFunc (native closure), carrying bound upvalues
// and an environment table reference.
type Closure struct {
	hdr value.Header

	Proto *Proto // nil for a native closure
	Upvals []*Upvalue

	Native       NativeFunc // nil for a script closure
	NativeUpvals []value.Value
	Name         string // best-effort name, for debug/closure-inspection

	Env *value.Value // environment table reference; nil uses the global default
}

func (c *Closure) Header() *value.Header { return &c.hdr }

func (c *Closure) Traverse(visit func(value.Object)) {
	if c.Proto != nil {
		for _, uv := range c.Upvals {
			visit(uv)
		}
	} else {
		for _, v := range c.NativeUpvals {
			if v.Obj != nil {
				visit(v.Obj)
			}
			if v.Tag == value.KindString && v.S != nil {
				visit(v.S)
			}
		}
	}
	if c.Env != nil && c.Env.Obj != nil {
		visit(c.Env.Obj)
	}
}

func (c *Closure) IsNative() bool { return c.Native != nil }

// NewScript builds a closure from a prototype and a resolved upvalue
// vector, as produced by the CLOSURE instruction.
func NewScript(p *Proto, upvals []*Upvalue) *Closure {
	return &Closure{Proto: p, Upvals: upvals}
}

// NewNative builds a closure around a host callback with N upvalues
// popped off the embedding stack.
func NewNative(fn NativeFunc, name string, upvals []value.Value) *Closure {
	return &Closure{Native: fn, Name: name, NativeUpvals: upvals}
}

// UpvalueName returns the closure's Nth upvalue name, or "" for a
// native closure.
func (c *Closure) UpvalueName(n int) string {
	if c.Proto == nil {
		return ""
	}
	if n < 0 || n >= len(c.Proto.Upvalues) {
		return ""
	}
	return c.Proto.Upvalues[n].Name
}
