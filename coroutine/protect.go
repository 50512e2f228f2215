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

package coroutine

import (
	"github.com/starling-lang/starling/internal/errs"
	"github.com/starling-lang/starling/value"
)

// Boundary marks a protected-call entry point. Go's error
// returns thread the unwind through the call graph in place of the
// reference implementation's longjmp.
type Boundary struct {
	frameDepth int // len(t.Frames) at entry, for unwinding
	stackTop   int // t.Top() at entry, for restoring the value-stack top
}

// Mark records the thread's current depth/top as an unwind target.
func (t *Thread) Mark() Boundary {
	return Boundary{frameDepth: len(t.Frames), stackTop: t.Top()}
}

// Unwind pops frames back down to b, closing every open upvalue in the
// abandoned region, and restores the value-stack top.
func (t *Thread) Unwind(b Boundary) {
	for len(t.Frames) > b.frameDepth {
		t.PopFrame()
	}
	t.OpenUV.CloseFrom(b.stackTop)
	if b.stackTop <= len(t.Stack) {
		for i := b.stackTop; i < len(t.Stack); i++ {
			t.Stack[i] = value.Nil
		}
	}
}

// Protect runs fn under a fresh boundary. On error, the stack is
// unwound back to the boundary and the error object is left at
// t.Stack[mark.stackTop] with the stack top set to stackTop+1. errHandler, if non-nil, is invoked with the error object
// BEFORE unwinding and its result replaces the error — except for
// memory errors.
func Protect(t *Thread, errToValue func(error) value.Value, errHandler func(value.Value) value.Value, fn func() error) errs.Status {
	mark := t.Mark()
	err := fn()
	if err == nil {
		return errs.StatusOK
	}
	if err == ErrYield {
		// A yield leaves the frame/PC state exactly as the interpreter
		// left it, so a later Resume can pick up where it stopped; unlike
		// an error, this must not unwind anything.
		return errs.StatusYield
	}

	status, errVal := classify(err, errToValue)
	if errHandler != nil && status != errs.StatusMemoryError {
		func() {
			defer func() {
				if r := recover(); r != nil {
					status = errs.StatusErrorHandlerError
				}
			}()
			errVal = errHandler(errVal)
		}()
	}
	t.Unwind(mark)
	t.EnsureStack(mark.stackTop)
	if len(t.Stack) <= mark.stackTop {
		grown := make([]value.Value, mark.stackTop+1)
		copy(grown, t.Stack)
		t.Stack = grown
	}
	t.Stack[mark.stackTop] = errVal
	if f := t.CurrentFrame(); f != nil && mark.stackTop+1 > f.Top {
		f.Top = mark.stackTop + 1
	}
	return status
}

func classify(err error, errToValue func(error) value.Value) (errs.Status, value.Value) {
	if err == errs.ErrOutOfMemory {
		return errs.StatusMemoryError, errToValue(err)
	}
	if re, ok := err.(*errs.RuntimeError); ok {
		if s, ok2 := re.Value.(value.Value); ok2 {
			return re.Status, s
		}
		return re.Status, errToValue(err)
	}
	return errs.StatusRuntimeError, errToValue(err)
}
