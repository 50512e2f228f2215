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

package gc

import "github.com/starling-lang/starling/value"

// BarrierForward preserves the tri-color invariant for a black
// container receiving a pointer to a white object: the target is
// recolored gray rather than left white under a black object. Used for upvalues, prototypes, and most
// direct single-pointer fields.
func (c *Collector) BarrierForward(container, target value.Object) {
	if container == nil || target == nil {
		return
	}
	if container.Header().IsBlack() && target.Header().IsWhite() {
		c.MarkObject(target)
	}
}

// BarrierBack preserves the invariant the opposite way for containers
// that are expensive to re-traverse eagerly (tables): instead of
// graying the target immediately, the container itself reverts to gray
// and is queued for a full rescan in the atomic phase.
func (c *Collector) BarrierBack(container value.Object) {
	if container == nil {
		return
	}
	h := container.Header()
	if h.IsBlack() {
		h.SetColor(value.ColorGray)
		c.grayAgain.Add(container)
	}
}

// BarrierValue is a convenience wrapper applying BarrierForward to
// whichever GC object (if any) a Value references — used at every
// script-visible write into a black object that is not a table.
func (c *Collector) BarrierValue(container value.Object, v value.Value) {
	if v.Obj != nil {
		c.BarrierForward(container, v.Obj)
	}
	if v.Tag == value.KindString && v.S != nil {
		c.BarrierForward(container, v.S)
	}
}
