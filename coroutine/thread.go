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

// Package coroutine implements the runtime's thread/coroutine value and its
// call-frame stack. A thread IS the unit of call/return machinery: its
// value stack and call-info stack interleave host (native) frames with
// script frames, and exactly one thread per runtime instance ever runs
// at a time.
package coroutine

import (
	"github.com/starling-lang/starling/internal/errs"
	"github.com/starling-lang/starling/object"
	"github.com/starling-lang/starling/value"
)

// Status is a thread's coroutine state.
type Status int

const (
	StatusSuspended Status = iota
	StatusRunning
	StatusNormal // running but currently resumed another coroutine
	StatusDead
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusSuspended:
		return "suspended"
	case StatusRunning:
		return "running"
	case StatusNormal:
		return "normal"
	case StatusDead:
		return "dead"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Frame is one active call.
type Frame struct {
	Closure    *object.Closure
	Base       int // first register slot, an index into Thread.Stack
	Top        int // one past the last live register this frame uses
	PC         int // saved instruction pointer, valid for script closures
	NResults   int // results the caller asked for; -1 means "all of them"
	TailCalls  int // number of tail calls folded into this frame
	IsNative   bool
	// AllowYield is false for a native frame that did not opt in to
	// being yielded across.
	AllowYield bool
}

// Thread owns a growable value stack and a parallel frame stack, plus
// its own open-upvalue list.
type Thread struct {
	hdr value.Header

	Stack  []value.Value
	Frames []*Frame
	OpenUV object.OpenList
	Status Status

	// HookMask/HookCount configure the debug-hook instruction-count
	// cancellation pattern.
	HookMask   int
	HookCount  int
	hookPeriod int
	Hook       func(t *Thread, event string) error

	// CCallDepth counts nested native-frame recursion, used to cap
	// reentrant host calls ("too many nested calls" is a runtime-error
	// kind).
	CCallDepth int

	// yieldResults/resumeArgs are the sole channel by which resume and
	// yield hand values to each other across the protected boundary.
	yieldResults []value.Value
	resumeArgs   []value.Value
	pendingErr   error
}

func (t *Thread) Header() *value.Header { return &t.hdr }

func (t *Thread) Traverse(visit func(value.Object)) {
	for _, v := range t.Stack {
		if v.Obj != nil {
			visit(v.Obj)
		}
		if v.Tag == value.KindString && v.S != nil {
			visit(v.S)
		}
	}
	for _, f := range t.Frames {
		if f.Closure != nil {
			visit(f.Closure)
		}
	}
	t.OpenUV.Traverse(func(uv *object.Upvalue) { visit(uv) })
}

// New creates a fresh thread with an empty stack, matching coroutine
// create's initial state.
func New() *Thread {
	return &Thread{Stack: make([]value.Value, 0, 64), Status: StatusSuspended}
}

// Slot implements object.Stack for upvalues opened against this thread.
func (t *Thread) Slot(i int) *value.Value { return &t.Stack[i] }

// EnsureStack grows the value stack so index i is addressable, stored as
// indices rather than raw pointers so growth never invalidates retained
// offsets.
func (t *Thread) EnsureStack(i int) {
	if i < len(t.Stack) {
		return
	}
	grown := make([]value.Value, i+1, (i+1)*2)
	copy(grown, t.Stack)
	t.Stack = grown
}

// Top returns the current top-of-stack index (one past the last live
// slot of the innermost frame, or 0 with no frames).
func (t *Thread) Top() int {
	if len(t.Frames) == 0 {
		return 0
	}
	return t.Frames[len(t.Frames)-1].Top
}

// CurrentFrame returns the innermost active frame, or nil.
func (t *Thread) CurrentFrame() *Frame {
	if len(t.Frames) == 0 {
		return nil
	}
	return t.Frames[len(t.Frames)-1]
}

// PushFrame installs a new innermost frame.
func (t *Thread) PushFrame(f *Frame) { t.Frames = append(t.Frames, f) }

// PopFrame removes and returns the innermost frame, closing any open
// upvalues pointing into the region it owned.
func (t *Thread) PopFrame() *Frame {
	n := len(t.Frames)
	f := t.Frames[n-1]
	t.Frames = t.Frames[:n-1]
	t.OpenUV.CloseFrom(f.Base)
	return f
}

// HookMaskCount enables the instruction-count debug hook: Hook fires
// every HookCount instructions dispatched.
const HookMaskCount = 1 << 0

// SetHook installs the debug hook and the instruction period it fires
// at under HookMaskCount; the period is reloaded into HookCount each
// time the hook fires, matching lua_sethook's count-hook semantics.
func (t *Thread) SetHook(mask, count int, hook func(t *Thread, event string) error) {
	t.HookMask = mask
	t.HookCount = count
	t.hookPeriod = count
	t.Hook = hook
}

// ResetHookCount reloads HookCount from the period passed to the last
// SetHook call.
func (t *Thread) ResetHookCount() { t.HookCount = t.hookPeriod }

// CheckCallDepth enforces a hard ceiling on frame depth, the spec's "wrong
// number of C stack levels" error kind realized as an overflow check.
const maxCallDepth = 4096

func (t *Thread) CheckCallDepth() error {
	if len(t.Frames) >= maxCallDepth {
		return errs.ErrStackOverflow
	}
	return nil
}
