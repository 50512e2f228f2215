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
	"fmt"
	"unsafe"

	"github.com/starling-lang/starling/coroutine"
	"github.com/starling-lang/starling/object"
	"github.com/starling-lang/starling/value"
)

// PushNil pushes nil.
func (s *State) PushNil() { s.push(value.Nil) }

// PushBoolean pushes a boolean.
func (s *State) PushBoolean(b bool) { s.push(value.Bool(b)) }

// PushNumber pushes a number.
func (s *State) PushNumber(n float64) { s.push(value.Number(n)) }

// PushInteger pushes a number holding an integral value (the runtime has
// a single number kind).
func (s *State) PushInteger(n int64) { s.push(value.Number(float64(n))) }

// PushString interns b and pushes the result.
func (s *State) PushString(b []byte) { s.push(value.String(s.Strings.Intern(b))) }

// PushFString formats like fmt.Sprintf and pushes the interned result.
func (s *State) PushFString(format string, args ...interface{}) {
	s.PushString([]byte(fmt.Sprintf(format, args...)))
}

// PushClosure pops n values off the stack as upvalues and pushes a new
// native closure around fn.
func (s *State) PushClosure(fn object.NativeFunc, name string, n int) {
	f := s.frame()
	top := s.top()
	ups := append([]value.Value(nil), s.current.Stack[top-n:top]...)
	if f != nil {
		f.Top -= n
	}
	cl := object.NewNative(fn, name, ups)
	cl.Env = envDefault(s)
	s.register(cl)
	s.push(value.Function(cl))
}

func envDefault(s *State) *value.Value {
	v := value.Table(s.globals)
	return &v
}

// PushLightUserData pushes an unmanaged pointer value.
func (s *State) PushLightUserData(p unsafe.Pointer) { s.push(value.LightUserData(p)) }

// PushThread pushes co, returning true if co is this State's main
// thread.
func (s *State) PushThread(co *coroutine.Thread) bool {
	s.push(value.Thread(co))
	return co == s.main
}
