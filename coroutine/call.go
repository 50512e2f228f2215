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
	"github.com/starling-lang/starling/object"
	"github.com/starling-lang/starling/value"
)

// PrecallResult tells the interpreter how to continue after Precall.
type PrecallResult int

const (
	// PCRC: a native function ran to completion; its results are already
	// in place and the caller's frame is unchanged.
	PCRC PrecallResult = iota
	// PCRLUA: a script frame was pushed; the interpreter loop must
	// restart dispatch in the new frame.
	PCRLUA
	// PCRNotCallable: callee has neither a native nor script body; the
	// caller (interp, via package meta) must try __call.
	PCRNotCallable
)

// frameExtra is attached to a script frame when its prototype is variadic
// and more arguments were supplied than fixed parameters; VARARG
// reads from here rather than from extra registers.
type frameExtra struct {
	varargs []value.Value
}

var extras = map[*Frame]*frameExtra{}

func (f *Frame) varargsSlice() []value.Value {
	if e, ok := extras[f]; ok {
		return e.varargs
	}
	return nil
}

// Varargs returns the extra arguments a variadic frame received beyond
// its fixed parameters, consumed by the VARARG instruction.
func (f *Frame) Varargs() []value.Value { return f.varargsSlice() }

// Precall begins a call to the value at t.Stack[calleeIdx], with
// nargs arguments already placed at calleeIdx+1..calleeIdx+nargs, and
// nresults requested by the caller (-1 for "all").
func Precall(t *Thread, calleeIdx, nargs, nresults int) (PrecallResult, error) {
	callee := t.Stack[calleeIdx]
	if callee.Tag != value.KindFunction {
		return PCRNotCallable, nil
	}
	cl := callee.Obj.(*object.Closure)

	if cl.IsNative() {
		if err := t.CheckCallDepth(); err != nil {
			return PCRC, err
		}
		base := calleeIdx + 1
		f := &Frame{Closure: cl, Base: base, Top: base + nargs, IsNative: true, NResults: nresults, AllowYield: false}
		t.PushFrame(f)
		t.CCallDepth++
		n, err := cl.Native(t)
		t.CCallDepth--
		t.PopFrame()
		if err != nil {
			return PCRC, err
		}
		poscall(t, calleeIdx, base+n, nresults)
		return PCRC, nil
	}

	if err := t.CheckCallDepth(); err != nil {
		return PCRC, err
	}
	p := cl.Proto
	base := calleeIdx + 1
	var va []value.Value
	if p.IsVararg && nargs > p.NumParams {
		va = append(va, t.Stack[base+p.NumParams:base+nargs]...)
	}
	t.EnsureStack(base + p.MaxStackSize)
	for i := nargs; i < p.NumParams; i++ {
		t.Stack[base+i] = value.Nil
	}
	for i := p.NumParams; i < p.MaxStackSize; i++ {
		if base+i < len(t.Stack) {
			t.Stack[base+i] = value.Nil
		}
	}
	f := &Frame{Closure: cl, Base: base, Top: base + p.MaxStackSize, PC: 0, NResults: nresults, AllowYield: true}
	if va != nil {
		extras[f] = &frameExtra{varargs: va}
	}
	t.PushFrame(f)
	return PCRLUA, nil
}

// poscall moves a native call's results down into the caller's frame
// and pads with nil. Native functions leave their
// n results at t.Stack[base:base+n]; base is resultsEnd-n is not known
// here directly, so callers pass resultsEnd = base+n and we infer
// count from resultsEnd - base.
func poscall(t *Thread, calleeIdx, resultsEnd, nresults int) {
	base := calleeIdx + 1
	n := resultsEnd - base
	results := append([]value.Value(nil), t.Stack[base:resultsEnd]...)
	want := nresults
	if want < 0 {
		want = n
	}
	t.EnsureStack(calleeIdx + want)
	for i := 0; i < want; i++ {
		if i < n {
			t.Stack[calleeIdx+i] = results[i]
		} else {
			t.Stack[calleeIdx+i] = value.Nil
		}
	}
	if parent := t.CurrentFrame(); parent != nil {
		top := calleeIdx + want
		if top > parent.Top {
			parent.Top = top
		}
	}
}

// Return implements the RETURN instruction's half of poscall for script
// frames: results at [retBase, retBase+n) are relocated to the call's
// own base (calleeIdx), then the frame is popped.
func Return(t *Thread, results []value.Value) {
	f := t.PopFrame()
	delete(extras, f)
	calleeIdx := f.Base - 1
	n := len(results)
	want := f.NResults
	if want < 0 {
		want = n
	}
	t.EnsureStack(calleeIdx + want)
	for i := 0; i < want; i++ {
		if i < n {
			t.Stack[calleeIdx+i] = results[i]
		} else {
			t.Stack[calleeIdx+i] = value.Nil
		}
	}
	if parent := t.CurrentFrame(); parent != nil {
		top := calleeIdx + want
		if top > parent.Top {
			parent.Top = top
		}
	}
}
