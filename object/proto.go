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

// Package object holds function prototypes, closures, and upvalues
//. Prototypes are produced by the compiler,
// an external collaborator; this package only
// defines their shape and how closures are built from them.
package object

import "github.com/starling-lang/starling/value"

// UpvalDesc describes, per the enclosing prototype, where a closure's
// upvalue is captured from.
type UpvalDesc struct {
	Name    string
	InStack bool // true: a local of the enclosing frame; false: an upvalue of it
	Index   int
}

// Proto is an immutable compiled function body.
// Nothing in this package mutates a Proto after the compiler hands it
// over.
type Proto struct {
	Source         string
	LineDefined    int
	LastLineDefined int
	NumParams      int
	IsVararg       bool
	MaxStackSize   int
	Code           []uint32
	Constants      []value.Value
	Protos         []*Proto
	LineInfo       []int // one source line per instruction, parallel to Code
	Upvalues       []UpvalDesc
	LocalNames     []LocalVar // debug info
}

// LocalVar is debug info naming a local variable's live register range.
type LocalVar struct {
	Name    string
	StartPC int
	EndPC   int
}
