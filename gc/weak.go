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

// WeakClearer is implemented by tables whose metatable carries __mode
//. It drops
// any entry whose governed side (key, value, or either) is still white
// once the collector has finished propagation.
type WeakClearer interface {
	value.Object
	ClearWeak(isWhite func(value.Object) bool)
}

// RegisterWeak adds t to the set of tables consulted during the atomic
// phase. A weak table's identity is
// decided by the table implementation; gc only drives the timing.
func (c *Collector) RegisterWeak(t WeakClearer) {
	c.weak = append(c.weak, t)
}

// clearWeakTables runs each registered weak table's clearer using the
// pre-flip white as the "unreachable this cycle" predicate, and is
// called from atomic() before the current white is flipped.
func (c *Collector) clearWeakTables() {
	isWhite := func(o value.Object) bool { return o != nil && o.Header().IsWhite() }
	kept := c.weak[:0]
	for _, w := range c.weak {
		if w.Header().IsWhite() {
			continue // the weak table itself died; nothing to clear
		}
		w.ClearWeak(isWhite)
		kept = append(kept, w)
	}
	c.weak = kept
}
