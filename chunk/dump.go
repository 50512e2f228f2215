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

package chunk

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/starling-lang/starling/object"
	"github.com/starling-lang/starling/value"
)

// Dump writes p and everything it transitively references as a chunk
// under the host's platform profile. w is typically wrapped around the caller's own writer
// callback by package api.
func Dump(w io.Writer, p *object.Proto) error {
	bw := bufio.NewWriter(w)
	d := &dumper{w: bw}
	d.header()
	d.proto(p)
	if d.err != nil {
		return d.err
	}
	return bw.Flush()
}

type dumper struct {
	w   *bufio.Writer
	err error
}

func (d *dumper) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *dumper) bytes(b []byte) {
	if d.err != nil {
		return
	}
	_, err := d.w.Write(b)
	d.fail(err)
}

func (d *dumper) byte(b byte) { d.bytes([]byte{b}) }

func (d *dumper) uint32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	d.bytes(buf[:])
}

func (d *dumper) int(v int) { d.uint32(uint32(v)) }

func (d *dumper) size(v int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	d.bytes(buf[:])
}

func (d *dumper) number(v float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	d.bytes(buf[:])
}

// string writes a length-prefixed string: its length as a size, then
// its bytes.
func (d *dumper) string(s string) {
	d.size(len(s))
	d.bytes([]byte(s))
}

func (d *dumper) header() {
	d.bytes([]byte(signature))
	h := HostHeader()
	d.byte(h.Version)
	d.byte(h.Format)
	d.byte(boolByte(h.BigEndian))
	d.byte(h.SizeInt)
	d.byte(h.SizeSizeT)
	d.byte(h.SizeInstr)
	d.byte(h.SizeNumber)
	d.byte(boolByte(h.IntegralNum))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (d *dumper) proto(p *object.Proto) {
	d.string(p.Source)
	d.int(p.LineDefined)
	d.int(p.LastLineDefined)
	d.byte(byte(len(p.Upvalues)))
	d.byte(byte(p.NumParams))
	d.byte(boolByte(p.IsVararg))
	d.byte(byte(p.MaxStackSize))

	d.int(len(p.Code))
	for _, instr := range p.Code {
		d.uint32(instr)
	}

	d.int(len(p.Constants))
	for _, k := range p.Constants {
		d.constant(k)
	}

	d.int(len(p.Protos))
	for _, sub := range p.Protos {
		d.proto(sub)
	}

	// Upvalue sources: in the reference wire format these are carried as
	// pseudo-instructions following CLOSURE; this format
	// lists them explicitly instead since object.Proto already stores
	// them decoded.
	for _, uv := range p.Upvalues {
		d.byte(boolByte(uv.InStack))
		d.byte(byte(uv.Index))
	}

	d.int(len(p.LineInfo))
	for _, l := range p.LineInfo {
		d.int(l)
	}

	d.int(len(p.LocalNames))
	for _, lv := range p.LocalNames {
		d.string(lv.Name)
		d.int(lv.StartPC)
		d.int(lv.EndPC)
	}

	d.int(len(p.Upvalues))
	for _, uv := range p.Upvalues {
		d.string(uv.Name)
	}
}

func (d *dumper) constant(v value.Value) {
	switch v.Tag {
	case value.KindNil:
		d.byte(typeNil)
	case value.KindBoolean:
		d.byte(typeBoolean)
		d.byte(boolByte(v.B))
	case value.KindNumber:
		d.byte(typeNumber)
		d.number(v.N)
	case value.KindString:
		d.byte(typeString)
		d.string(v.S.String())
	default:
		d.fail(errUndumpableConstant)
	}
}
