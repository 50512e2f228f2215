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

// Package value defines the runtime's tagged value cell and the heap-object
// header shared by every garbage-collected type.
package value

import (
	"fmt"
	"unsafe"

	"github.com/davecgh/go-spew/spew"
)

// Kind is the value cell's type tag.
type Kind uint8

const (
	KindNil Kind = iota
	KindBoolean
	KindNumber
	KindString
	KindTable
	KindFunction
	KindUserData
	KindLightUserData
	KindThread
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindTable:
		return "table"
	case KindFunction:
		return "function"
	case KindUserData:
		return "userdata"
	case KindLightUserData:
		return "light-userdata"
	case KindThread:
		return "thread"
	default:
		return "unknown"
	}
}

// Color is the tri-color mark used by the collector. Two
// whites alternate across cycles so current-cycle survivors are
// distinguishable from stale garbage.
type Color uint8

const (
	ColorWhite0 Color = iota
	ColorWhite1
	ColorGray
	ColorBlack
)

// Mark flag bits, packed alongside the two color bits in Header.Mark.
const (
	FlagFixed     uint8 = 1 << 2 // never collected (interned reserved strings, etc)
	FlagFinalized uint8 = 1 << 3 // __gc has already run, pending reclamation
	FlagSeparated uint8 = 1 << 4 // linked into the to-be-finalized list
	colorMask     uint8 = 0x3
)

// Header is embedded by every heap-managed object: strings, tables,
// closures, userdata, and threads.
type Header struct {
	Next Object // intrusive singly-linked GC object list
	Tag  Kind
	Mark uint8
}

// Color extracts the color bits from Mark.
func (h *Header) Color() Color { return Color(h.Mark & colorMask) }

// SetColor replaces the color bits in Mark, preserving flag bits.
func (h *Header) SetColor(c Color) { h.Mark = (h.Mark &^ colorMask) | uint8(c) }

func (h *Header) IsWhite() bool { c := h.Color(); return c == ColorWhite0 || c == ColorWhite1 }
func (h *Header) IsGray() bool  { return h.Color() == ColorGray }
func (h *Header) IsBlack() bool { return h.Color() == ColorBlack }

func (h *Header) HasFlag(f uint8) bool { return h.Mark&f != 0 }
func (h *Header) SetFlag(f uint8)      { h.Mark |= f }
func (h *Header) ClearFlag(f uint8)    { h.Mark &^= f }

// Object is implemented by every heap-allocated, GC-traced type.
type Object interface {
	Header() *Header
	// Traverse calls visit for every Value/Object this object references,
	// used by the collector's propagate phase.
	Traverse(visit func(Object))
}

// Value is the fixed-size tagged union every register and stack slot
// holds. Go has no native union type, so the cell is a small struct with
// one active field selected by Tag; this costs a little memory over a
// true union but keeps the representation safe and GC-friendly (no
// unsafe reinterpretation of live pointers).
type Value struct {
	Tag Kind
	N   float64        // KindNumber
	B   bool           // KindBoolean
	S   *Str           // KindString
	Obj Object         // KindTable, KindFunction, KindUserData, KindThread
	P   unsafe.Pointer // KindLightUserData: raw host pointer, not GC-managed
}

// Str is the heap string object; defined here rather
// than in strtab so Value can reference it without an import cycle.
type Str struct {
	hdr   Header
	Bytes []byte
	Hash  uint64
}

func (s *Str) Header() *Header             { return &s.hdr }
func (s *Str) Traverse(visit func(Object)) {} // strings carry no outgoing references
func (s *Str) String() string              { return string(s.Bytes) }

var Nil = Value{Tag: KindNil}

func Bool(b bool) Value   { return Value{Tag: KindBoolean, B: b} }
func Number(n float64) Value { return Value{Tag: KindNumber, N: n} }
func String(s *Str) Value { return Value{Tag: KindString, S: s} }
func Table(o Object) Value    { return Value{Tag: KindTable, Obj: o} }
func Function(o Object) Value { return Value{Tag: KindFunction, Obj: o} }
func UserData(o Object) Value { return Value{Tag: KindUserData, Obj: o} }
func Thread(o Object) Value   { return Value{Tag: KindThread, Obj: o} }
func LightUserData(p unsafe.Pointer) Value { return Value{Tag: KindLightUserData, P: p} }

func (v Value) IsNil() bool  { return v.Tag == KindNil }
func (v Value) Truthy() bool { return !(v.Tag == KindNil || (v.Tag == KindBoolean && !v.B)) }

// RawEqual implements identity-based equality; it never consults __eq.
func RawEqual(a, b Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case KindNil:
		return true
	case KindBoolean:
		return a.B == b.B
	case KindNumber:
		return a.N == b.N
	case KindString:
		return a.S == b.S // interning makes pointer equality valid
	case KindLightUserData:
		return a.P == b.P
	default:
		return a.Obj == b.Obj
	}
}

// GoString renders a Value for debuggers and test failures, using spew
// for the recursive, GC-header-aware object cases.
func (v Value) GoString() string {
	switch v.Tag {
	case KindNil:
		return "nil"
	case KindBoolean:
		return fmt.Sprintf("%v", v.B)
	case KindNumber:
		return fmt.Sprintf("%v", v.N)
	case KindString:
		return fmt.Sprintf("%q", v.S.String())
	case KindLightUserData:
		return fmt.Sprintf("lightuserdata(%p)", v.P)
	default:
		cfg := spew.ConfigState{Indent: "  ", DisableMethods: true, MaxDepth: 3}
		return fmt.Sprintf("%s: %s", v.Tag, cfg.Sdump(v.Obj))
	}
}
