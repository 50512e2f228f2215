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
	"github.com/starling-lang/starling/coroutine"
	"github.com/starling-lang/starling/internal/errs"
	"github.com/starling-lang/starling/object"
	"github.com/starling-lang/starling/value"
)

// NewThread pops a function off the top and pushes a fresh coroutine
// whose body is that function.
func (s *State) NewThread() *coroutine.Thread {
	fn := s.at(-1)
	s.Pop(1)
	cl, _ := fn.Obj.(*object.Closure)
	co := coroutine.Create(cl)
	s.register(co)
	s.push(value.Thread(co))
	return co
}

// Resume transfers control to co with nargs arguments taken off the
// top of the calling thread's stack, leaving co's yielded or returned
// results on the calling thread's stack instead.
func (s *State) Resume(co *coroutine.Thread, nargs int) errs.Status {
	top := s.top()
	args := append([]value.Value(nil), s.current.Stack[top-nargs:top]...)
	s.Pop(nargs)
	status, results := coroutine.Resume(s.current, co, s.Interp.Run, s.errToValue, args)
	for _, v := range results {
		s.push(v)
	}
	return status
}

// Yield suspends the currently running thread with nresults values
// taken off the top of the stack.
func (s *State) Yield(nresults int) error {
	top := s.top()
	results := append([]value.Value(nil), s.current.Stack[top-nresults:top]...)
	_, err := s.current.Yield(results)
	return err
}

// Status reports co's coroutine state relative to the calling thread.
func (s *State) Status(co *coroutine.Thread) coroutine.Status {
	return coroutine.StatusOf(co, s.current)
}
