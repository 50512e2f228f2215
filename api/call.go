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
	"io"

	"github.com/starling-lang/starling/chunk"
	"github.com/starling-lang/starling/coroutine"
	"github.com/starling-lang/starling/internal/errs"
	"github.com/starling-lang/starling/object"
	"github.com/starling-lang/starling/value"
)

// Call invokes the function nargs+1 slots below the top (pushed
// before its arguments) with the nargs values above it, and replaces
// all of that with nresults return values, or every result if nresults
// is MultRet. Call panics the runtime (via the panic
// callback) on error, since it runs unprotected; use PCall for a
// protected call.
const MultRet = -1

func (s *State) Call(nargs, nresults int) error {
	top := s.top()
	calleeIdx := top - nargs - 1
	entry := s.current.Top()
	status := coroutine.Protect(s.current, s.errToValue, nil, func() error {
		return s.doCall(calleeIdx, nargs, nresults)
	})
	if status != errs.StatusOK {
		errVal := s.current.Stack[entry]
		if s.panicFn != nil {
			s.panicFn(s, errVal)
		}
		return errs.New(status, errVal)
	}
	return nil
}

func (s *State) doCall(calleeIdx, nargs, nresults int) error {
	res, err := coroutine.Precall(s.current, calleeIdx, nargs, nresults)
	if err != nil {
		return err
	}
	switch res {
	case coroutine.PCRLUA:
		return s.Interp.Run(s.current)
	case coroutine.PCRNotCallable:
		return s.runtimeErr("attempt to call a %s value", s.current.Stack[calleeIdx].Tag.String())
	default:
		return nil
	}
}

// PCall is Call under a protected boundary with its own error handler
//: on failure, the
// stack is unwound to the call's entry top plus one error value, and
// errFunc (0 for none) names the handler's stack slot at call time.
func (s *State) PCall(nargs, nresults, errFunc int) errs.Status {
	var handler func(value.Value) value.Value
	if errFunc != 0 {
		h := s.at(errFunc)
		handler = func(errVal value.Value) value.Value {
			res, err := s.Interp.CallValue2(s.current, h, []value.Value{errVal}, 1)
			if err != nil || len(res) == 0 {
				return errVal
			}
			return res[0]
		}
	}
	top := s.top()
	calleeIdx := top - nargs - 1
	return coroutine.Protect(s.current, s.errToValue, handler, func() error {
		return s.doCall(calleeIdx, nargs, nresults)
	})
}

// CPCall runs a native Go function in protected mode with no
// arguments prepared on the stack beyond what fn itself pushes.
func (s *State) CPCall(fn object.NativeFunc) errs.Status {
	top := s.top()
	return coroutine.Protect(s.current, s.errToValue, nil, func() error {
		n, err := fn(s.current)
		if err != nil {
			return err
		}
		if f := s.frame(); f != nil {
			f.Top = top + n
		}
		return nil
	})
}

func (s *State) errToValue(err error) value.Value {
	if re, ok := err.(*errs.RuntimeError); ok {
		if v, ok := re.Value.(value.Value); ok {
			return v
		}
	}
	return value.String(s.Strings.Intern([]byte(err.Error())))
}

// Load reads a chunk via r and pushes the resulting closure. The loaded prototype shares this
// runtime's string table, and the closure's environment defaults to
// the globals table.
//
// name identifies the chunk being loaded (a file path, a registry
// module key, whatever the host addresses it by). When non-empty, a
// decode already cached under that name is reused, and concurrent
// Loads of the same name — as happens when several coroutines resumed
// re-entrantly by a host callback race to load the same module — are
// collapsed into a single chunk.Load call; each caller still gets its
// own Closure instance around the shared Proto.
func (s *State) Load(name string, r io.Reader) error {
	var p *object.Proto
	if name != "" {
		if cached, ok := s.protoCache[name]; ok {
			p = cached
		} else {
			v, err, _ := s.loadGroup.Do(name, func() (interface{}, error) {
				return chunk.Load(r, s.Strings)
			})
			if err != nil {
				return err
			}
			p = v.(*object.Proto)
			s.protoCache[name] = p
		}
	} else {
		var err error
		p, err = chunk.Load(r, s.Strings)
		if err != nil {
			return err
		}
	}
	cl := object.NewScript(p, nil)
	env := value.Table(s.globals)
	cl.Env = &env
	s.register(cl)
	s.push(value.Function(cl))
	return nil
}

// Dump writes idx's prototype as a chunk to w.
func (s *State) Dump(idx int, w io.Writer) error {
	v := s.at(idx)
	if v.Tag != value.KindFunction {
		return s.runtimeErr("attempt to dump a %s value", v.Tag.String())
	}
	cl := v.Obj.(*object.Closure)
	if cl.IsNative() {
		return s.runtimeErr("unable to dump given function")
	}
	return chunk.Dump(w, cl.Proto)
}
