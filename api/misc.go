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
	"github.com/starling-lang/starling/value"
)

// HookMaskCount re-exports coroutine.HookMaskCount so callers never
// need to import package coroutine just to call SetHook.
const HookMaskCount = coroutine.HookMaskCount

// SetHook installs an instruction-count debug hook on the currently
// running thread, firing every count instructions while mask has
// HookMaskCount set. A nil hook or a zero mask disables it.
func (s *State) SetHook(mask, count int, hook func(s *State, event string) error) {
	s.current.SetHook(mask, count, func(t *coroutine.Thread, event string) error {
		if hook == nil {
			return nil
		}
		return hook(s, event)
	})
}

// Error raises a runtime error with the value on top of the stack as
// the error object, unwinding through the nearest protected boundary
//.
func (s *State) Error() error {
	errVal := s.at(-1)
	s.Pop(1)
	return errs.New(errs.StatusRuntimeError, errVal)
}

// Concat pops n values off the top and pushes their metamethod-aware
// concatenation.
func (s *State) Concat(n int) error {
	if n == 0 {
		s.push(s.emptyString())
		return nil
	}
	top := s.top()
	vs := append([]value.Value(nil), s.current.Stack[top-n:top]...)
	s.Pop(n)
	v, err := s.Interp.Concat2(s.current, vs)
	if err != nil {
		return err
	}
	s.push(v)
	return nil
}

func (s *State) emptyString() value.Value {
	return value.String(s.Strings.Intern(nil))
}

// Length pushes idx's metamethod-aware length.
func (s *State) Length(idx int) error {
	v, err := s.Interp.Length2(s.current, s.at(idx))
	if err != nil {
		return err
	}
	s.push(v)
	return nil
}
