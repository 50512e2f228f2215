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

// Package meta implements tag-method (metamethod) lookup and dispatch
//: __index/__newindex chaining, the absence-flag cache, and
// the same-metamethod-identity rule for comparisons.
package meta

import (
	"github.com/starling-lang/starling/internal/errs"
	"github.com/starling-lang/starling/object"
	"github.com/starling-lang/starling/table"
	"github.com/starling-lang/starling/value"
)

// Event names, the fixed set of tag methods the runtime dispatches on.
const (
	Index    = "__index"
	NewIndex = "__newindex"
	Call     = "__call"
	Add      = "__add"
	Sub      = "__sub"
	Mul      = "__mul"
	Div      = "__div"
	Mod      = "__mod"
	Pow      = "__pow"
	Unm      = "__unm"
	Concat   = "__concat"
	Len      = "__len"
	Eq       = "__eq"
	Lt       = "__lt"
	Le       = "__le"
	GC       = "__gc"
	Mode     = "__mode"
	ToString = "__tostring"
	Name     = "__name"
)

var flagFor = map[string]uint8{
	Index:    table.FlagNoIndex,
	NewIndex: table.FlagNoNewIndex,
	Eq:       table.FlagNoEq,
}

// indexChainLimit bounds chained __index lookups to break cycles.
const indexChainLimit = 100

// Registry supplies the type-default metatables consulted for
// non-table, non-userdata values. One Registry per runtime instance.
type Registry struct {
	byKind [int(value.KindThread) + 1]*table.Table
	// InternKey turns an event name into the Value used as a table key;
	// each runtime instance wires its own strtab.Table here.
	InternKey func(string) value.Value
}

func (r *Registry) SetDefault(k value.Kind, mt *table.Table) { r.byKind[k] = mt }
func (r *Registry) Default(k value.Kind) *table.Table        { return r.byKind[k] }

func (r *Registry) key(s string) value.Value {
	if r.InternKey == nil {
		return value.Nil
	}
	return r.InternKey(s)
}

// MetatableOf returns v's governing metatable, or nil.
func MetatableOf(reg *Registry, v value.Value) *table.Table {
	switch v.Tag {
	case value.KindTable:
		return v.Obj.(*table.Table).Metatable()
	case value.KindUserData:
		return v.Obj.(*object.UserData).Meta
	default:
		return reg.Default(v.Tag)
	}
}

// Lookup finds event's handler on v's metatable, honoring the
// table.Table flags-byte absence cache for the events it tracks.
func Lookup(reg *Registry, v value.Value, event string) value.Value {
	mt := MetatableOf(reg, v)
	if mt == nil {
		return value.Nil
	}
	if flag, tracked := flagFor[event]; tracked {
		if mt.Flags&flag != 0 {
			return value.Nil
		}
		h := mt.Get(reg.key(event))
		if h.IsNil() {
			mt.Flags |= flag
		}
		return h
	}
	return mt.Get(reg.key(event))
}

// Index resolves t[k] with metamethod chaining; a table's own entry is
// read raw with table.Table.Get, and call performs a protected call to
// a __index *function*.
func Index(reg *Registry, t value.Value, k value.Value, call func(fn, arg0, arg1 value.Value) (value.Value, error)) (value.Value, error) {
	cur := t
	for i := 0; i < indexChainLimit; i++ {
		if cur.Tag == value.KindTable {
			raw := cur.Obj.(*table.Table).Get(k)
			if !raw.IsNil() {
				return raw, nil
			}
		}
		h := Lookup(reg, cur, Index)
		if h.IsNil() {
			if cur.Tag == value.KindTable {
				return value.Nil, nil
			}
			return value.Nil, errs.New(errs.StatusRuntimeError, "attempt to index a "+cur.Tag.String()+" value")
		}
		if h.Tag == value.KindFunction {
			return call(h, cur, k)
		}
		cur = h // __index is itself a table: chain into it
	}
	return value.Nil, errs.New(errs.StatusRuntimeError, "'__index' chain too long; possible loop")
}

// NewIndex resolves t[k] = v with metamethod chaining.
func NewIndex(reg *Registry, t value.Value, k, v value.Value, call func(fn, arg0, arg1, arg2 value.Value) error) error {
	cur := t
	for i := 0; i < indexChainLimit; i++ {
		if cur.Tag == value.KindTable {
			tbl := cur.Obj.(*table.Table)
			if !tbl.Get(k).IsNil() {
				return tbl.Set(k, v)
			}
		}
		h := Lookup(reg, cur, NewIndex)
		if h.IsNil() {
			if cur.Tag == value.KindTable {
				return cur.Obj.(*table.Table).Set(k, v)
			}
			return errs.New(errs.StatusRuntimeError, "attempt to index a "+cur.Tag.String()+" value")
		}
		if h.Tag == value.KindFunction {
			return call(h, cur, k, v)
		}
		cur = h
	}
	return errs.New(errs.StatusRuntimeError, "'__newindex' chain too long; possible loop")
}

// SameHandler checks the spec's identity rule for comparison
// metamethods: "Comparison metamethods are consulted only when both
// operands expose the SAME metamethod (identity of the tag-method
// value, not merely both non-nil)".
func SameHandler(reg *Registry, a, b value.Value, event string) (value.Value, bool) {
	ha := Lookup(reg, a, event)
	if ha.IsNil() {
		return value.Nil, false
	}
	hb := Lookup(reg, b, event)
	if hb.IsNil() || !value.RawEqual(ha, hb) {
		return value.Nil, false
	}
	return ha, true
}
