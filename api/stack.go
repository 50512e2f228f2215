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

import "github.com/starling-lang/starling/value"

// GetTop returns the index of the top-most slot of the current frame.
func (s *State) GetTop() int { return s.top() - s.base() }

// SetTop adjusts the stack top to idx, padding with nil when growing
// or discarding values when shrinking.
func (s *State) SetTop(idx int) {
	newTop := s.base() + idx
	if idx < 0 {
		newTop = s.top() + idx + 1
	}
	f := s.frame()
	if f == nil {
		return
	}
	if newTop > f.Top {
		s.current.EnsureStack(newTop - 1)
		for i := f.Top; i < newTop; i++ {
			s.current.Stack[i] = value.Nil
		}
	} else {
		for i := newTop; i < f.Top; i++ {
			s.current.Stack[i] = value.Nil
		}
	}
	f.Top = newTop
}

// Pop removes n values off the top, equivalent to SetTop(-n-1) (a
// convenience the reference implementation provides as a macro).
func (s *State) Pop(n int) { s.SetTop(-n - 1) }

// PushValue pushes a copy of the value at idx.
func (s *State) PushValue(idx int) { s.push(s.at(idx)) }

func (s *State) push(v value.Value) {
	f := s.frame()
	if f == nil {
		s.current.EnsureStack(0)
		s.current.Stack[0] = v
		return
	}
	s.current.EnsureStack(f.Top)
	s.current.Stack[f.Top] = v
	f.Top++
}

// Remove deletes the value at idx, shifting everything above it down.
func (s *State) Remove(idx int) {
	i := s.absIndex(idx)
	f := s.frame()
	if f == nil || i < 0 || i >= f.Top {
		return
	}
	copy(s.current.Stack[i:f.Top-1], s.current.Stack[i+1:f.Top])
	f.Top--
}

// Insert moves the top value down to idx, shifting everything at or
// above idx up by one.
func (s *State) Insert(idx int) {
	i := s.absIndex(idx)
	f := s.frame()
	if f == nil || i < 0 || i >= f.Top {
		return
	}
	v := s.current.Stack[f.Top-1]
	copy(s.current.Stack[i+1:f.Top], s.current.Stack[i:f.Top-1])
	s.current.Stack[i] = v
}

// Replace pops the top value and stores it at idx.
func (s *State) Replace(idx int) {
	v := s.at(-1)
	s.Pop(1)
	s.set(idx, v)
}

// CheckStack ensures n additional slots are available above the
// current top without erroring; the runtime's
// stack always grows on demand, so this always succeeds and returns
// true.
func (s *State) CheckStack(n int) bool {
	f := s.frame()
	top := len(s.current.Stack)
	if f != nil {
		top = f.Top
	}
	s.current.EnsureStack(top + n)
	return true
}

// XMove transfers n values from the top of from's stack to the top of
// to's stack.
func XMove(from, to *State, n int) {
	ff, tf := from.frame(), to.frame()
	if ff == nil || tf == nil {
		return
	}
	start := ff.Top - n
	vs := append([]value.Value(nil), from.current.Stack[start:ff.Top]...)
	from.SetTop(-n - 1)
	for _, v := range vs {
		to.push(v)
	}
}
