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
	"github.com/starling-lang/starling/object"
	"github.com/starling-lang/starling/value"
)

// GetUpvalue pushes idx's nth upvalue (1-based) and returns its name,
// or returns "" without pushing anything if n is out of range. Native
// closures carry unnamed upvalues.
func (s *State) GetUpvalue(idx, n int) string {
	v := s.at(idx)
	if v.Tag != value.KindFunction {
		return ""
	}
	cl, ok := v.Obj.(*object.Closure)
	if !ok {
		return ""
	}
	if cl.IsNative() {
		if n < 1 || n > len(cl.NativeUpvals) {
			return ""
		}
		s.push(cl.NativeUpvals[n-1])
		return ""
	}
	if n < 1 || n > len(cl.Upvals) {
		return ""
	}
	s.push(cl.Upvals[n-1].Get())
	return cl.UpvalueName(n - 1)
}

// SetUpvalue pops the top of the stack into idx's nth upvalue.
func (s *State) SetUpvalue(idx, n int) string {
	v := s.at(idx)
	if v.Tag != value.KindFunction {
		return ""
	}
	cl, ok := v.Obj.(*object.Closure)
	if !ok {
		return ""
	}
	if cl.IsNative() {
		if n < 1 || n > len(cl.NativeUpvals) {
			return ""
		}
		val := s.at(-1)
		s.Pop(1)
		cl.NativeUpvals[n-1] = val
		return ""
	}
	if n < 1 || n > len(cl.Upvals) {
		return ""
	}
	val := s.at(-1)
	s.Pop(1)
	cl.Upvals[n-1].Set(val)
	return cl.UpvalueName(n - 1)
}
