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

import "github.com/starling-lang/starling/value"

// Stack is the minimal view of a thread's value stack that an open
// upvalue needs: read/write by absolute index. coroutine.Thread
// implements this.
type Stack interface {
	Slot(i int) *value.Value
}

// Upvalue is a mutable cell shared by zero or more closures. Open, it aliases a live frame's stack slot; closed, it
// owns its storage. Multiple closures that captured the same enclosing
// local share one Upvalue by identity.
type Upvalue struct {
	hdr    value.Header
	stack  Stack // non-nil while open
	index  int   // slot index while open
	closed value.Value
	next   *Upvalue // intrusive list, sorted by stack index, owned by the thread
}

func (u *Upvalue) Header() *value.Header { return &u.hdr }

func (u *Upvalue) Traverse(visit func(value.Object)) {
	v := u.Get()
	if v.Obj != nil {
		visit(v.Obj)
	}
	if v.Tag == value.KindString && v.S != nil {
		visit(v.S)
	}
}

// Open creates an upvalue pointing at stack slot index of the given
// stack.
func Open(stack Stack, index int) *Upvalue {
	return &Upvalue{stack: stack, index: index}
}

func (u *Upvalue) IsOpen() bool { return u.stack != nil }
func (u *Upvalue) Index() int   { return u.index }

// Get reads the upvalue's current value, from the live stack slot if
// open, from its own storage if closed.
func (u *Upvalue) Get() value.Value {
	if u.stack != nil {
		return *u.stack.Slot(u.index)
	}
	return u.closed
}

// Set writes through to the live stack slot (open) or own storage
// (closed); all closures sharing this Upvalue observe the write.
func (u *Upvalue) Set(v value.Value) {
	if u.stack != nil {
		*u.stack.Slot(u.index) = v
		return
	}
	u.closed = v
}

// Close copies the current stack value into the upvalue's own storage
// and detaches it from the stack, done when the stack region it points
// into is abandoned.
func (u *Upvalue) Close() {
	if u.stack == nil {
		return
	}
	u.closed = *u.stack.Slot(u.index)
	u.stack = nil
	u.next = nil
}

// OpenList is a thread's ordered (by descending stack index, so the
// region being abandoned is a contiguous prefix) singly-linked list of
// open upvalues.
type OpenList struct {
	head *Upvalue
}

// FindOrCreate returns the existing open upvalue for stack slot index
// if one exists (so upvalues pointing at the same slot are shared by
// identity), else creates, links, and returns a new one. register, if
// non-nil, is called exactly when a new Upvalue is created, so the
// collector can see it; it is not called for a shared, pre-existing one.
func (l *OpenList) FindOrCreate(stack Stack, index int, register func(*Upvalue)) *Upvalue {
	var prev *Upvalue
	cur := l.head
	for cur != nil && cur.index > index {
		prev = cur
		cur = cur.next
	}
	if cur != nil && cur.index == index {
		return cur
	}
	uv := Open(stack, index)
	uv.next = cur
	if prev == nil {
		l.head = uv
	} else {
		prev.next = uv
	}
	if register != nil {
		register(uv)
	}
	return uv
}

// CloseFrom closes every open upvalue at or above index, unlinking it
// from the list, matching "when a stack region is abandoned ... all
// open upvalues pointing into that region are closed".
func (l *OpenList) CloseFrom(index int) {
	cur := l.head
	for cur != nil && cur.index >= index {
		next := cur.next
		cur.Close()
		cur = next
	}
	l.head = cur
}

// Traverse visits every still-open upvalue, for the collector's root
// scan of a thread.
func (l *OpenList) Traverse(visit func(*Upvalue)) {
	for cur := l.head; cur != nil; cur = cur.next {
		visit(cur)
	}
}
