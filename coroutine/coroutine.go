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
	"github.com/starling-lang/starling/object"
	"github.com/starling-lang/starling/value"
)

// ErrYield is the sentinel a running body returns (via Yield) to signal
// suspension. It reaches the interpreter loop (package interp) as the
// error of a native call that yielded; Protect recognizes it specially
// and does not unwind on it.
var ErrYield = errs.New(errs.StatusYield, nil)

// Run executes one thread's frames until it returns, yields, or errors.
// It is supplied by package interp at wiring time to avoid a coroutine
// -> interp import cycle (interp already imports coroutine for Thread).
type Runner func(t *Thread) error

// Create allocates a fresh thread with f pushed as its body.
func Create(f *object.Closure) *Thread {
	t := New()
	t.EnsureStack(0)
	t.Stack[0] = value.Function(f)
	return t
}

// Resume transfers control to co. current is the
// resuming thread, used only to flip its status to Normal for the
// duration of the call; run is the interpreter entry point.
func Resume(current, co *Thread, run Runner, errToValue func(error) value.Value, args []value.Value) (errs.Status, []value.Value) {
	if co.Status != StatusSuspended {
		return errs.StatusRuntimeError, []value.Value{errToValue(errs.ErrNotSuspended)}
	}
	if current != nil {
		current.Status = StatusNormal
	}
	co.resumeArgs = args
	co.Status = StatusRunning

	firstResume := len(co.Frames) == 0
	if firstResume {
		// args land right after the body closure at Stack[0].
		co.EnsureStack(len(args))
		copy(co.Stack[1:], args)
		st, err := precallBody(co, args)
		if err != nil {
			co.Status = StatusErrored
			return errs.StatusRuntimeError, []value.Value{errToValue(err)}
		}
		if st == PCRC {
			// A native body completed synchronously with no script frame
			// to run; treat its pushed results as the return values.
			co.Status = StatusDead
			return errs.StatusOK, co.yieldResults
		}
	} else {
		deliverResumeArgs(co, args)
	}

	entry := co.Top()
	status := Protect(co, errToValue, nil, func() error { return run(co) })
	switch status {
	case errs.StatusYield:
		co.Status = StatusSuspended
		if current != nil {
			current.Status = StatusRunning
		}
		return errs.StatusYield, co.yieldResults
	case errs.StatusOK:
		co.Status = StatusDead
		if current != nil {
			current.Status = StatusRunning
		}
		return errs.StatusOK, co.yieldResults
	default:
		co.Status = StatusErrored
		if current != nil {
			current.Status = StatusRunning
		}
		return status, []value.Value{co.Stack[entry]}
	}
}

func precallBody(co *Thread, args []value.Value) (PrecallResult, error) {
	cl, _ := co.Stack[0].Obj.(*object.Closure)
	if cl == nil || !cl.IsNative() {
		return Precall(co, 0, len(args), -1)
	}
	// A native body runs here in a frame based just above Stack[0]; the
	// n values it leaves at its base become the coroutine's results.
	co.EnsureStack(len(args) + 1)
	co.PushFrame(&Frame{Closure: cl, Base: 1, Top: 1 + len(args), IsNative: true, NResults: -1})
	n, err := cl.Native(co)
	co.PopFrame()
	if err != nil {
		return PCRC, err
	}
	co.EnsureStack(n)
	co.yieldResults = append([]value.Value(nil), co.Stack[1:1+n]...)
	return PCRC, nil
}

// deliverResumeArgs hands a subsequent resume's arguments back to the
// coroutine.yield call site that is suspended waiting for them.
func deliverResumeArgs(co *Thread, args []value.Value) { co.resumeArgs = args }

// Yield suspends the current thread with results. The
// interpreter's PC was already saved by the normal dispatch loop before
// calling Yield, since Yield is invoked as an ordinary native-style call.
func (t *Thread) Yield(results []value.Value) ([]value.Value, error) {
	f := t.CurrentFrame()
	if f == nil || !f.AllowYield {
		return nil, errs.ErrYieldAcrossCBoundary
	}
	t.yieldResults = results
	return nil, ErrYield
}

// ResumeArgs returns the values most recently delivered by Resume,
// consumed by the interpreter immediately after a yield point resumes
// (i.e. what coroutine.yield(...) "returns" to script code).
func (t *Thread) ResumeArgs() []value.Value { return t.resumeArgs }

// StatusOf classifies co by comparing it to the running thread and,
// failing that, inspecting its own internal status word.
func StatusOf(co, running *Thread) Status {
	if co == running {
		return StatusRunning
	}
	return co.Status
}
