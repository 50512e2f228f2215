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
	"github.com/starling-lang/starling/object"
	"github.com/starling-lang/starling/table"
	"github.com/starling-lang/starling/value"
)

// GetTable reads t[k] with metamethod dispatch, t from idx and k
// popped off the top of the stack; the result replaces k.
func (s *State) GetTable(idx int) error {
	t := s.at(idx)
	k := s.at(-1)
	v, err := s.Interp.Index2(s.current, t, k)
	if err != nil {
		return err
	}
	s.set(-1, v)
	return nil
}

// SetTable assigns t[k] = v, with t from idx and k, v popped off the
// top two stack slots.
func (s *State) SetTable(idx int) error {
	t := s.at(idx)
	k := s.at(-2)
	v := s.at(-1)
	s.Pop(2)
	return s.Interp.NewIndex2(s.current, t, k, v)
}

// GetField is GetTable with the key pushed from a Go string.
func (s *State) GetField(idx int, key string) error {
	s.PushString([]byte(key))
	return s.GetTable(idx)
}

// SetField is SetTable with the key pushed from a Go string; the value must already be on top of the stack.
func (s *State) SetField(idx int, key string) error {
	v := s.at(-1)
	s.Pop(1)
	s.PushString([]byte(key))
	s.push(v)
	return s.SetTable(idx)
}

// RawGet reads t[k] with no metamethod dispatch, k popped off the top.
func (s *State) RawGet(idx int) {
	t, ok := s.at(idx).Obj.(*table.Table)
	k := s.at(-1)
	if !ok {
		s.set(-1, value.Nil)
		return
	}
	s.set(-1, t.Get(k))
}

// RawSet assigns t[k] = v raw, k and v popped off the top two slots.
func (s *State) RawSet(idx int) error {
	t, ok := s.at(idx).Obj.(*table.Table)
	k, v := s.at(-2), s.at(-1)
	s.Pop(2)
	if !ok {
		return s.runtimeErr("attempt to index a %s value", s.at(idx).Tag.String())
	}
	return t.Set(k, v)
}

// RawGetI is RawGet specialized for an integer key.
func (s *State) RawGetI(idx, n int) {
	t, ok := s.at(idx).Obj.(*table.Table)
	if !ok {
		s.push(value.Nil)
		return
	}
	s.push(t.Get(value.Number(float64(n))))
}

// RawSetI is RawSet specialized for an integer key, the value popped
// off the top.
func (s *State) RawSetI(idx, n int) error {
	t, ok := s.at(idx).Obj.(*table.Table)
	v := s.at(-1)
	s.Pop(1)
	if !ok {
		return s.runtimeErr("attempt to index a %s value", s.at(idx).Tag.String())
	}
	return t.Set(value.Number(float64(n)), v)
}

// CreateTable pushes a new table pre-sized for narr array slots and
// nrec hash slots.
func (s *State) CreateTable(narr, nrec int) {
	tbl := table.New(narr, nrec)
	tbl.Account = s.Mem.Account
	s.Mem.Account(tbl.ByteSize())
	s.register(tbl)
	s.push(value.Table(tbl))
}

// NewUserData allocates a full userdata wrapping data and pushes it.
func (s *State) NewUserData(data interface{}) *object.UserData {
	u := object.New(data)
	s.register(u)
	s.push(value.UserData(u))
	return u
}

// GetMetatable pushes idx's metatable and returns true, or pushes
// nothing and returns false if it has none.
func (s *State) GetMetatable(idx int) bool {
	v := s.at(idx)
	var mt *table.Table
	switch v.Tag {
	case value.KindTable:
		mt = v.Obj.(*table.Table).Metatable()
	case value.KindUserData:
		mt = v.Obj.(*object.UserData).Meta
	default:
		mt = s.Reg.Default(v.Tag)
	}
	if mt == nil {
		return false
	}
	s.push(value.Table(mt))
	return true
}

// SetMetatable pops a table (or nil) off the top and installs it as
// idx's metatable.
func (s *State) SetMetatable(idx int) error {
	mtv := s.at(-1)
	s.Pop(1)
	var mt *table.Table
	if mtv.Tag == value.KindTable {
		mt = mtv.Obj.(*table.Table)
	} else if !mtv.IsNil() {
		return s.runtimeErr("bad argument (nil or table expected)")
	}
	v := s.at(idx)
	switch v.Tag {
	case value.KindTable:
		v.Obj.(*table.Table).SetMetatable(mt)
	case value.KindUserData:
		v.Obj.(*object.UserData).Meta = mt
	default:
		s.Reg.SetDefault(v.Tag, mt)
	}
	return nil
}

// GetFEnv pushes idx's environment table.
func (s *State) GetFEnv(idx int) {
	v := s.at(idx)
	switch v.Tag {
	case value.KindFunction:
		env := v.Obj.(*object.Closure).Env
		if env == nil {
			s.push(value.Table(s.globals))
			return
		}
		s.push(*env)
	case value.KindUserData:
		env := v.Obj.(*object.UserData).Env
		if env == nil {
			s.push(value.Nil)
			return
		}
		s.push(*env)
	default:
		s.push(value.Nil)
	}
}

// SetFEnv pops a table off the top and installs it as idx's
// environment.
func (s *State) SetFEnv(idx int) bool {
	env := s.at(-1)
	s.Pop(1)
	if env.Tag != value.KindTable {
		return false
	}
	v := s.at(idx)
	switch v.Tag {
	case value.KindFunction:
		v.Obj.(*object.Closure).Env = &env
		return true
	case value.KindUserData:
		v.Obj.(*object.UserData).Env = &env
		return true
	default:
		return false
	}
}

// Next advances iteration over the table at idx: k is popped off the
// top and the next key (and its value) are pushed, or nothing is
// pushed and false is returned when iteration is complete.
func (s *State) Next(idx int) bool {
	t, ok := s.at(idx).Obj.(*table.Table)
	if !ok {
		s.Pop(1)
		return false
	}
	k := s.at(-1)
	s.Pop(1)
	nk, nv, ok := t.Next(k)
	if !ok {
		return false
	}
	s.push(nk)
	s.push(nv)
	return true
}
