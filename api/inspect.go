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
	"fmt"
	"strconv"
	"unsafe"

	"github.com/starling-lang/starling/coroutine"
	"github.com/starling-lang/starling/meta"
	"github.com/starling-lang/starling/object"
	"github.com/starling-lang/starling/table"
	"github.com/starling-lang/starling/value"
)

// Type returns idx's kind tag.
func (s *State) Type(idx int) value.Kind { return s.at(idx).Tag }

func (s *State) IsNil(idx int) bool      { return s.at(idx).Tag == value.KindNil }
func (s *State) IsBoolean(idx int) bool  { return s.at(idx).Tag == value.KindBoolean }
func (s *State) IsNumber(idx int) bool   { _, ok := toNumber(s.at(idx)); return ok }
func (s *State) IsString(idx int) bool   { v := s.at(idx); return v.Tag == value.KindString || v.Tag == value.KindNumber }
func (s *State) IsTable(idx int) bool    { return s.at(idx).Tag == value.KindTable }
func (s *State) IsFunction(idx int) bool { return s.at(idx).Tag == value.KindFunction }
func (s *State) IsUserData(idx int) bool { return s.at(idx).Tag == value.KindUserData }
func (s *State) IsThread(idx int) bool   { return s.at(idx).Tag == value.KindThread }
// IsNone reports whether idx names a slot beyond the current stack
// top: distinct from IsNil, which is also true for an
// in-range slot explicitly holding nil.
func (s *State) IsNone(idx int) bool {
	switch idx {
	case RegistryIndex, GlobalsIndex, EnvironIndex:
		return false
	}
	if idx <= firstUpvalue {
		f := s.frame()
		if f == nil {
			return true
		}
		n := firstUpvalue - idx
		return n < 0 || n >= len(f.Closure.Upvals)
	}
	i := s.absIndex(idx)
	return i < s.base() || i >= s.top()
}

// ToNumber coerces idx to a number, honoring string->number coercion.
func (s *State) ToNumber(idx int) (float64, bool) { return toNumber(s.at(idx)) }

// ToInteger truncates ToNumber's result toward zero.
func (s *State) ToInteger(idx int) (int64, bool) {
	n, ok := toNumber(s.at(idx))
	if !ok {
		return 0, false
	}
	return int64(n), true
}

func toNumber(v value.Value) (float64, bool) {
	switch v.Tag {
	case value.KindNumber:
		return v.N, true
	case value.KindString:
		n, err := strconv.ParseFloat(v.S.String(), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// ToBoolean reads idx's truthiness: everything
// but nil and false is true.
func (s *State) ToBoolean(idx int) bool { return s.at(idx).Truthy() }

// ToLString returns idx as a byte slice, coercing (and replacing) an
// in-place number the way the reference lua_tolstring does.
func (s *State) ToLString(idx int) ([]byte, bool) {
	v := s.at(idx)
	switch v.Tag {
	case value.KindString:
		return v.S.Bytes, true
	case value.KindNumber:
		str := s.Strings.Intern([]byte(numToStr(v.N)))
		s.set(idx, value.String(str))
		return str.Bytes, true
	default:
		return nil, false
	}
}

func numToStr(n float64) string { return strconv.FormatFloat(n, 'g', 14, 64) }

// ToNativeFunction returns idx's native callback, or nil if idx is not
// a native closure.
func (s *State) ToNativeFunction(idx int) object.NativeFunc {
	v := s.at(idx)
	if v.Tag != value.KindFunction {
		return nil
	}
	return v.Obj.(*object.Closure).Native
}

// ToUserData returns idx's host payload, or nil.
func (s *State) ToUserData(idx int) interface{} {
	v := s.at(idx)
	if v.Tag != value.KindUserData {
		return nil
	}
	return v.Obj.(*object.UserData).Data
}

// ToThread returns idx as a thread, or nil.
func (s *State) ToThread(idx int) *coroutine.Thread {
	v := s.at(idx)
	if v.Tag != value.KindThread {
		return nil
	}
	return v.Obj.(*coroutine.Thread)
}

// ToPointer returns an opaque identity pointer for any heap-allocated
// value, for host-side equality/logging only.
func (s *State) ToPointer(idx int) unsafe.Pointer {
	v := s.at(idx)
	switch v.Tag {
	case value.KindLightUserData:
		return v.P
	case value.KindString:
		return unsafe.Pointer(v.S)
	default:
		if v.Obj != nil {
			return objPointer(v.Obj)
		}
		return nil
	}
}

// ObjLen returns idx's length the raw way table.Table.Length and
// string length define it, without consulting __len.
func (s *State) ObjLen(idx int) int {
	v := s.at(idx)
	switch v.Tag {
	case value.KindString:
		return len(v.S.Bytes)
	case value.KindTable:
		return v.Obj.(*table.Table).Length()
	default:
		return 0
	}
}

// RawEqual compares two indices by identity, no metamethods.
func (s *State) RawEqual(idx1, idx2 int) bool { return value.RawEqual(s.at(idx1), s.at(idx2)) }

// Equal compares two indices, consulting __eq where applicable.
func (s *State) Equal(idx1, idx2 int) (bool, error) {
	return s.Interp.Compare(s.current, "eq", s.at(idx1), s.at(idx2))
}

// LessThan compares two indices, consulting __lt.
func (s *State) LessThan(idx1, idx2 int) (bool, error) {
	return s.Interp.Compare(s.current, "lt", s.at(idx1), s.at(idx2))
}

// ToStringMeta renders idx the way the base library's tostring would:
// it calls a governing __tostring handler if one is set, falls back to
// a metatable's __name field to label an otherwise-opaque table or
// userdata, and only then drops to the plain to-lstring/kind-and-
// pointer rendering.
func (s *State) ToStringMeta(idx int) (string, error) {
	v := s.at(idx)
	if handler := meta.Lookup(s.Reg, v, "__tostring"); !handler.IsNil() {
		res, err := s.Interp.CallValue2(s.current, handler, []value.Value{v}, 1)
		if err != nil {
			return "", err
		}
		if len(res) > 0 && res[0].Tag == value.KindString {
			return res[0].S.String(), nil
		}
		return "", s.runtimeErr("'__tostring' must return a string")
	}
	if mt := meta.MetatableOf(s.Reg, v); mt != nil {
		if nameVal := mt.Get(s.nameKey()); nameVal.Tag == value.KindString {
			return fmt.Sprintf("%s: %p", nameVal.S.String(), objPointer(v.Obj)), nil
		}
	}
	if b, ok := s.ToLString(idx); ok {
		return string(b), nil
	}
	if v.Obj != nil {
		return fmt.Sprintf("%s: %p", v.Tag, objPointer(v.Obj)), nil
	}
	return v.Tag.String(), nil
}

func (s *State) nameKey() value.Value { return value.String(s.Strings.Intern([]byte("__name"))) }
