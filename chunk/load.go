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
	"github.com/starling-lang/starling/strtab"
	"github.com/starling-lang/starling/value"
)

// Load reads a chunk dumped by Dump and reconstructs its prototype
// tree, interning every string constant (and source name) through
// strings so they participate in the runtime's single intern table
//. It refuses a chunk whose
// header does not match HostHeader, since the body layout is
// platform-specific by design.
func Load(r io.Reader, strings *strtab.Table) (*object.Proto, error) {
	l := &loader{r: bufio.NewReader(r), strings: strings}
	if err := l.header(); err != nil {
		return nil, err
	}
	p := l.proto()
	if l.err != nil {
		return nil, l.err
	}
	return p, nil
}

type loader struct {
	r       *bufio.Reader
	strings *strtab.Table
	err     error
}

func (l *loader) fail(err error) {
	if l.err == nil {
		l.err = err
	}
}

func (l *loader) bytes(n int) []byte {
	if l.err != nil {
		return make([]byte, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(l.r, buf); err != nil {
		l.fail(err)
	}
	return buf
}

func (l *loader) byte() byte           { return l.bytes(1)[0] }
func (l *loader) uint32() uint32       { return binary.LittleEndian.Uint32(l.bytes(4)) }
func (l *loader) int() int             { return int(l.uint32()) }
func (l *loader) size() int            { return int(binary.LittleEndian.Uint64(l.bytes(8))) }
func (l *loader) number() float64      { return math.Float64frombits(binary.LittleEndian.Uint64(l.bytes(8))) }
func (l *loader) boolean() bool        { return l.byte() != 0 }

func (l *loader) rawString() string {
	n := l.size()
	if n == 0 {
		return ""
	}
	return string(l.bytes(n))
}

// ReadHeader reads and validates just a chunk's header, for tools that
// report on a chunk's platform profile without decoding its body.
func ReadHeader(r io.Reader) (Header, error) {
	l := &loader{r: bufio.NewReader(r)}
	sig := l.bytes(4)
	if l.err != nil {
		return Header{}, l.err
	}
	if string(sig) != signature {
		return Header{}, ErrBadSignature
	}
	h := Header{
		Version:     l.byte(),
		Format:      l.byte(),
		BigEndian:   l.boolean(),
		SizeInt:     l.byte(),
		SizeSizeT:   l.byte(),
		SizeInstr:   l.byte(),
		SizeNumber:  l.byte(),
		IntegralNum: l.boolean(),
	}
	if l.err != nil {
		return Header{}, l.err
	}
	return h, nil
}

func (l *loader) header() error {
	sig := l.bytes(4)
	if l.err != nil {
		return l.err
	}
	if string(sig) != signature {
		return ErrBadSignature
	}
	got := Header{
		Version:     l.byte(),
		Format:      l.byte(),
		BigEndian:   l.boolean(),
		SizeInt:     l.byte(),
		SizeSizeT:   l.byte(),
		SizeInstr:   l.byte(),
		SizeNumber:  l.byte(),
		IntegralNum: l.boolean(),
	}
	if l.err != nil {
		return l.err
	}
	if got != HostHeader() {
		return ErrHeaderMismatch
	}
	return nil
}

func (l *loader) proto() *object.Proto {
	p := &object.Proto{}
	p.Source = l.rawString()
	p.LineDefined = l.int()
	p.LastLineDefined = l.int()
	nups := int(l.byte())
	p.NumParams = int(l.byte())
	p.IsVararg = l.boolean()
	p.MaxStackSize = int(l.byte())

	p.Code = make([]uint32, l.int())
	for i := range p.Code {
		p.Code[i] = l.uint32()
	}

	p.Constants = make([]value.Value, l.int())
	for i := range p.Constants {
		p.Constants[i] = l.constant()
	}

	p.Protos = make([]*object.Proto, l.int())
	for i := range p.Protos {
		p.Protos[i] = l.proto()
	}

	p.Upvalues = make([]object.UpvalDesc, nups)
	for i := range p.Upvalues {
		p.Upvalues[i].InStack = l.boolean()
		p.Upvalues[i].Index = int(l.byte())
	}

	p.LineInfo = make([]int, l.int())
	for i := range p.LineInfo {
		p.LineInfo[i] = l.int()
	}

	p.LocalNames = make([]object.LocalVar, l.int())
	for i := range p.LocalNames {
		p.LocalNames[i].Name = l.rawString()
		p.LocalNames[i].StartPC = l.int()
		p.LocalNames[i].EndPC = l.int()
	}

	for i := range p.Upvalues {
		p.Upvalues[i].Name = l.rawString()
	}

	return p
}

func (l *loader) constant() value.Value {
	switch l.byte() {
	case typeNil:
		return value.Nil
	case typeBoolean:
		return value.Bool(l.boolean())
	case typeNumber:
		return value.Number(l.number())
	case typeString:
		return value.String(l.strings.Intern([]byte(l.rawString())))
	default:
		l.fail(errUndumpableConstant)
		return value.Nil
	}
}
