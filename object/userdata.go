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

package object

import (
	"github.com/starling-lang/starling/table"
	"github.com/starling-lang/starling/value"
)

// UserData is an opaque host-allocated block that participates in GC
// and may carry a finalizer.
type UserData struct {
	hdr  value.Header
	Data interface{}
	Env  *value.Value
	Meta *table.Table

	// GCHook mirrors table.Table.GCHook: Finalize runs it when set, and
	// nothing in the runtime sets it from the metatable's __gc entry.
	GCHook func(*UserData) error
}

func (u *UserData) Header() *value.Header { return &u.hdr }

// Finalize satisfies gc.Finalizable.
func (u *UserData) Finalize() error {
	if u.GCHook == nil {
		return nil
	}
	return u.GCHook(u)
}

func (u *UserData) Traverse(visit func(value.Object)) {
	if u.Env != nil && u.Env.Obj != nil {
		visit(u.Env.Obj)
	}
	if u.Meta != nil {
		visit(u.Meta)
	}
}

// New allocates a full userdata wrapping an arbitrary host value.
func New(data interface{}) *UserData {
	return &UserData{Data: data}
}
