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

// Package gc implements the incremental tri-color mark-and-sweep
// collector: mark-root, propagate, atomic, sweep-string,
// sweep, and finalize phases, with forward and backward write barriers.
package gc

import (
	mapset "github.com/deckarep/golang-set"

	"github.com/starling-lang/starling/internal/log"
	"github.com/starling-lang/starling/mem"
	"github.com/starling-lang/starling/value"
)

// Phase is the collector's current position in one incremental cycle.
type Phase int

const (
	PhasePause Phase = iota
	PhasePropagate
	PhaseAtomic
	PhaseSweepString
	PhaseSweep
	PhaseFinalize
)

// Finalizable is implemented by objects that may carry a __gc
// metamethod (tables and userdata).
type Finalizable interface {
	value.Object
	Finalize() error
}

// Collector drives one runtime instance's GC state. It is not
// goroutine-safe; the embedding single-threaded model makes
// that unnecessary.
type Collector struct {
	mem *mem.Manager
	log *log.Logger

	all   []value.Object // every GC object ever allocated, in allocation order
	swept []value.Object // survivors accumulated by an in-progress sweepStep
	white value.Color    // the "current" white; the other white is garbage from last cycle
	dead  value.Color    // the white that was current immediately before the last atomic flip; sweep frees only this one

	gray      mapset.Set // value.Object pending propagation
	grayAgain mapset.Set // tables revisited atomically (backward-barrier targets)
	weak      []WeakClearer

	finalizePending []Finalizable

	phase    Phase
	sweepIdx int // resume point for an incremental sweepStep

	stopped bool // true between gc("stop") and gc("restart"); Collect() ignores this

	// Roots supplies the collector's current root set: the main thread,
	// the registry, and the type-default metatables.
	Roots func() []value.Object

	// StringSweep is invoked during phase 4 to free white interned
	// strings, keeping package strtab decoupled from package gc.
	StringSweep func(isWhite func(*value.Str) bool)
}

// New creates a collector over the given memory manager, wiring the
// manager's threshold callback to Step.
func New(m *mem.Manager) *Collector {
	c := &Collector{
		mem:       m,
		log:       log.Root().New("component", "gc"),
		white:     value.ColorWhite0,
		gray:      mapset.NewThreadUnsafeSet(),
		grayAgain: mapset.NewThreadUnsafeSet(),
	}
	m.SetGCStepCallback(func(*mem.Manager) { c.Step() })
	return c
}

// Register links a freshly allocated object into the global object
// list, born white.
func (c *Collector) Register(o value.Object) {
	o.Header().SetColor(c.white)
	c.all = append(c.all, o)
}

func (c *Collector) otherWhite() value.Color {
	if c.white == value.ColorWhite0 {
		return value.ColorWhite1
	}
	return value.ColorWhite0
}

// MarkObject colors a white object gray and enqueues it for
// propagation; black and already-gray objects are left untouched. This
// is the entry point roots and barriers use to make an object
// reachable.
func (c *Collector) MarkObject(o value.Object) {
	if o == nil {
		return
	}
	h := o.Header()
	if !h.IsWhite() {
		return
	}
	h.SetColor(value.ColorGray)
	c.gray.Add(o)
}

func (c *Collector) markValue(v value.Value) {
	if v.Obj != nil {
		c.MarkObject(v.Obj)
	}
	if v.Tag == value.KindString && v.S != nil {
		c.MarkObject(v.S)
	}
}

// markRoot begins a new cycle: every root is colored gray.
func (c *Collector) markRoot() {
	if c.Roots == nil {
		return
	}
	for _, r := range c.Roots() {
		c.MarkObject(r)
	}
}

// propagateOne pops one gray object, colors it black, and grays its
// children. Returns false when the gray set is
// empty.
func (c *Collector) propagateOne() bool {
	if c.gray.Cardinality() == 0 {
		return false
	}
	var o value.Object
	for v := range c.gray.Iter() {
		o = v.(value.Object)
		break
	}
	c.gray.Remove(o)
	o.Header().SetColor(value.ColorBlack)
	o.Traverse(c.MarkObject)
	return true
}

// Step performs a bounded amount of incremental work, proportional to
// the memory manager's step-multiplier. It may
// advance through several phases if their own work is already
// exhausted (e.g. atomic is always run to completion once reached,
// since it must be indivisible).
func (c *Collector) Step() {
	if c.stopped {
		return
	}
	budget := int(c.mem.StepMultiplier())
	if budget <= 0 {
		budget = 100
	}
	switch c.phase {
	case PhasePause:
		c.markRoot()
		c.phase = PhasePropagate
	case PhasePropagate:
		for i := 0; i < budget; i++ {
			if !c.propagateOne() {
				c.atomic()
				return
			}
		}
	case PhaseAtomic:
		c.atomic()
	case PhaseSweepString:
		c.sweepStrings()
	case PhaseSweep:
		c.sweepStep(budget)
	case PhaseFinalize:
		c.finalizeStep()
	}
}

// Stop disables automatic incremental stepping; Collect still forces a full cycle on request.
func (c *Collector) Stop() { c.stopped = true }

// Restart re-enables automatic stepping.
func (c *Collector) Restart() { c.stopped = false }

// Collect forces one full cycle to completion, used by the embedding
// API's gc("collect").
func (c *Collector) Collect() {
	if c.phase == PhasePause {
		c.markRoot()
		c.phase = PhasePropagate
	}
	for c.propagateOne() {
	}
	if c.phase != PhasePause {
		c.atomic()
	}
	c.sweepStrings()
	for c.sweepStep(1 << 30) {
	}
	c.finalizeStep()
	c.phase = PhasePause
	c.mem.SetThreshold()
}

// atomic revisits grayAgain (tables deferred by the backward barrier),
// finishes propagation, and flips the current white.
func (c *Collector) atomic() {
	for v := range c.grayAgain.Iter() {
		o := v.(value.Object)
		if o.Header().IsGray() {
			c.gray.Add(o)
		} else if o.Header().IsWhite() {
			c.MarkObject(o)
		}
	}
	c.grayAgain.Clear()
	for c.propagateOne() {
	}
	c.clearWeakTables()
	c.dead = c.white
	c.white = c.otherWhite()
	c.phase = PhaseSweepString
}

func (c *Collector) sweepStrings() {
	if c.StringSweep != nil {
		deadmask := c.dead
		c.StringSweep(func(s *value.Str) bool { return s.Header().Color() == deadmask })
	}
	c.phase = PhaseSweep
	c.sweepIdx = 0
}

// sweepStep walks a bounded slice of the global object list, freeing
// white objects and re-whitening survivors for the next cycle. Objects with a pending finalizer are deferred into
// finalizePending instead of being freed immediately.
func (c *Collector) sweepStep(budget int) bool {
	if c.sweepIdx == 0 {
		c.swept = c.swept[:0]
	}
	done := 0
	i := c.sweepIdx
	deadmask := c.dead
	for ; i < len(c.all) && done < budget; i++ {
		o := c.all[i]
		h := o.Header()
		done++
		if h.Color() == deadmask && !h.HasFlag(value.FlagFixed) {
			if f, ok := o.(Finalizable); ok && !h.HasFlag(value.FlagFinalized) {
				h.SetFlag(value.FlagFinalized)
				h.SetFlag(value.FlagSeparated)
				h.SetColor(c.white) // keep alive one more cycle for finalization
				c.swept = append(c.swept, o)
				c.finalizePending = append(c.finalizePending, f)
				continue
			}
			continue // freed: dropped
		}
		h.SetColor(c.white)
		c.swept = append(c.swept, o)
	}
	c.sweepIdx = i
	if i >= len(c.all) {
		c.all = c.swept
		c.swept = nil
		c.sweepIdx = 0
		c.phase = PhaseFinalize
		return false
	}
	return true
}

func (c *Collector) finalizeStep() {
	for _, f := range c.finalizePending {
		if err := f.Finalize(); err != nil {
			c.log.Error("finalizer failed", "err", err)
		}
	}
	c.finalizePending = nil
	c.phase = PhasePause
}
