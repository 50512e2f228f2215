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

// Package api is the stack-oriented embedding surface: one
// State wraps a runtime instance (memory manager, collector, string
// table, metamethod registry, interpreter) plus whichever coroutine is
// currently running, and every operation addresses that coroutine's
// value stack through 1-based, negative, or pseudo indices.
package api

import (
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/starling-lang/starling/coroutine"
	"github.com/starling-lang/starling/gc"
	"github.com/starling-lang/starling/interp"
	"github.com/starling-lang/starling/internal/errs"
	"github.com/starling-lang/starling/internal/log"
	"github.com/starling-lang/starling/internal/rtconfig"
	"github.com/starling-lang/starling/mem"
	"github.com/starling-lang/starling/meta"
	"github.com/starling-lang/starling/object"
	"github.com/starling-lang/starling/strtab"
	"github.com/starling-lang/starling/table"
	"github.com/starling-lang/starling/value"
)

// Pseudo-indices, chosen far outside any realistic stack depth so they
// never collide with a real positive or negative index.
const (
	RegistryIndex = -1000000
	GlobalsIndex  = -1000001
	EnvironIndex  = -1000002
	firstUpvalue  = -1000100
)

// UpvalueIndex returns the pseudo-index for the running native
// closure's nth upvalue (1-based), mirroring lua_upvalueindex.
func UpvalueIndex(n int) int { return firstUpvalue - (n - 1) }

// PanicFunc is invoked when an error escapes every protected boundary.
type PanicFunc func(s *State, errVal value.Value)

// State is one runtime instance together with its currently running
// thread.
type State struct {
	Mem     *mem.Manager
	GC      *gc.Collector
	Strings *strtab.Table
	Reg     *meta.Registry
	Interp  *interp.Interp
	Log     *log.Logger

	globals *table.Table
	registry *table.Table

	main    *coroutine.Thread
	current *coroutine.Thread

	panicFn PanicFunc

	// loadGroup collapses concurrent Load calls that share a chunk
	// name into a single chunk.Load decode, for hosts where several
	// re-entrantly resumed coroutines race to load the same named
	// chunk (e.g. a callback-driven module cache keyed by chunk name).
	loadGroup singleflight.Group
	protoCache map[string]*object.Proto
}

// New creates a runtime instance. A nil alloc uses mem.DefaultAlloc.
func New(alloc mem.AllocFunc) *State {
	m := mem.New(alloc)
	collector := gc.New(m)
	strings := strtab.New()
	strings.OnAlloc = func(s *value.Str) { collector.Register(s) }
	strings.Account = m.Account
	reg := &meta.Registry{InternKey: func(s string) value.Value { return value.String(strings.Intern([]byte(s))) }}

	s := &State{
		Mem:      m,
		GC:       collector,
		Strings:  strings,
		Reg:      reg,
		Interp:   interp.New(reg, strings, collector.Register, m.Account),
		Log:      log.Root().New("component", "api"),
		globals:  table.New(0, 0),
		registry: table.New(0, 0),
		protoCache: make(map[string]*object.Proto),
	}
	s.globals.Account = m.Account
	s.registry.Account = m.Account
	m.Account(s.globals.ByteSize() + s.registry.ByteSize())
	collector.Register(s.globals)
	collector.Register(s.registry)

	s.main = coroutine.New()
	collector.Register(s.main)
	s.current = s.main

	collector.StringSweep = strings.SweepWhite
	collector.Roots = func() []value.Object {
		roots := []value.Object{s.main, s.globals, s.registry}
		for k := range [int(value.KindThread) + 1]struct{}{} {
			if mt := reg.Default(value.Kind(k)); mt != nil {
				roots = append(roots, mt)
			}
		}
		return roots
	}
	return s
}

// NewFromConfig creates a runtime instance and immediately applies
// cfg's GC tunables, the
// way cmd/gprobe's makeConfigNode layers a decoded rtconfig.Config
// onto a freshly constructed node.
func NewFromConfig(alloc mem.AllocFunc, cfg rtconfig.Config) *State {
	s := New(alloc)
	if cfg.GC.Pause > 0 {
		s.GCSetPause(cfg.GC.Pause)
	}
	if cfg.GC.StepMultiplier > 0 {
		s.GCSetStepMultiplier(cfg.GC.StepMultiplier)
	}
	return s
}

// SetPanic installs the callback invoked when an error escapes every
// protected boundary.
func (s *State) SetPanic(f PanicFunc) { s.panicFn = f }

// SetAllocator swaps the underlying byte allocator.
func (s *State) SetAllocator(alloc mem.AllocFunc) {
	*s.Mem = *mem.New(alloc)
}

// Close releases the runtime. The runtime has no process-level resources
// beyond Go-managed memory, so Close exists for embedding-API parity
// and as a hook future resource types (e.g. mem.Arena-backed runtimes)
// can use.
func (s *State) Close() {}

// Globals returns the runtime's shared globals table, the default
// environment new closures and coroutines are born with.
func (s *State) Globals() *table.Table { return s.globals }

// Registry returns the host-private table addressed by RegistryIndex.
func (s *State) Registry() *table.Table { return s.registry }

// Thread returns the State's currently running coroutine.
func (s *State) Thread() *coroutine.Thread { return s.current }

func (s *State) frame() *coroutine.Frame { return s.current.CurrentFrame() }

// base is the current frame's first addressable register, the origin
// for 1-based positive indices.
func (s *State) base() int {
	if f := s.frame(); f != nil {
		return f.Base
	}
	return 0
}

func (s *State) top() int {
	if f := s.frame(); f != nil {
		return f.Top
	}
	return len(s.current.Stack)
}

// absIndex resolves a 1-based/negative API index to an absolute slot
// in s.current.Stack, or -1 for a pseudo-index (handled separately).
func (s *State) absIndex(idx int) int {
	if idx > 0 {
		return s.base() + idx - 1
	}
	if idx <= firstUpvalue || idx == RegistryIndex || idx == GlobalsIndex || idx == EnvironIndex {
		return -1
	}
	return s.top() + idx
}

// at dereferences idx, returning value.Nil for anything out of range
// rather than erroring, matching the reference implementation's
// permissive lua_type/lua_is* behavior on invalid acceptable indices.
func (s *State) at(idx int) value.Value {
	switch idx {
	case RegistryIndex:
		return value.Table(s.registry)
	case GlobalsIndex:
		return value.Table(s.globals)
	case EnvironIndex:
		f := s.frame()
		if f == nil || f.Closure.Env == nil {
			return value.Nil
		}
		return *f.Closure.Env
	}
	if idx <= firstUpvalue {
		f := s.frame()
		if f == nil {
			return value.Nil
		}
		n := firstUpvalue - idx
		if n < 0 || n >= len(f.Closure.Upvals) {
			return value.Nil
		}
		return f.Closure.Upvals[n].Get()
	}
	i := s.absIndex(idx)
	if i < 0 || i >= len(s.current.Stack) {
		return value.Nil
	}
	return s.current.Stack[i]
}

// set stores v at idx, growing the stack if idx is a fresh positive
// slot within the current frame's bounds.
func (s *State) set(idx int, v value.Value) {
	switch idx {
	case RegistryIndex, GlobalsIndex, EnvironIndex:
		return
	}
	if idx <= firstUpvalue {
		f := s.frame()
		if f == nil {
			return
		}
		n := firstUpvalue - idx
		if n >= 0 && n < len(f.Closure.Upvals) {
			f.Closure.Upvals[n].Set(v)
		}
		return
	}
	i := s.absIndex(idx)
	if i < 0 {
		return
	}
	s.current.EnsureStack(i)
	s.current.Stack[i] = v
	if f := s.frame(); f != nil && i+1 > f.Top {
		f.Top = i + 1
	}
}

func (s *State) runtimeErr(format string, args ...interface{}) error {
	return errs.New(errs.StatusRuntimeError, value.String(s.Strings.Intern([]byte(fmt.Sprintf(format, args...)))))
}

// register centralizes GC registration so every package constructor
// (table.New, object.NewNative, ...) is followed by exactly one
// Register call.
func (s *State) register(o value.Object) value.Object {
	s.GC.Register(o)
	return o
}
