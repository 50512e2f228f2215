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

// Package chunk implements the bytecode chunk wire format: a
// little-endian header identifying the platform profile a chunk was
// dumped on, followed by a recursive prototype body. The compiler that produces an in-memory
// object.Proto is an external collaborator; this package only owns the
// on-disk encoding and the requirement that a loader be bit-exact
// against its matching dumper on the same platform.
package chunk

import "errors"

// errUndumpableConstant: the runtime's constant pool may only ever hold
// nil/boolean/number/string in the on-disk chunk format; anything else
// reaching Dump indicates a malformed Proto.
var errUndumpableConstant = errors.New("chunk: constant pool entry is not dumpable")

// ErrHeaderMismatch is returned by Load when a chunk's platform
// profile does not match this host's.
var ErrHeaderMismatch = errors.New("chunk: header does not match host platform profile")

// ErrBadSignature is returned by Load when the leading 4 bytes are not
// the expected signature.
var ErrBadSignature = errors.New("chunk: bad signature")

const (
	signature = "\x1bLua"

	formatVersion = 0x51 // major.minor packed as one byte, matching the header's version slot
	formatOfficial = 0

	typeNil     = 0
	typeBoolean = 1
	typeNumber  = 3
	typeString  = 4
)

// Header describes the platform profile a chunk was dumped under
//. Load refuses to proceed against a
// mismatched Header, since the body's binary layout depends on it.
type Header struct {
	Version     byte
	Format      byte
	BigEndian   bool
	SizeInt     byte
	SizeSizeT   byte
	SizeInstr   byte
	SizeNumber  byte
	IntegralNum bool
}

// HostHeader is this package's own platform profile, used both as the
// default a Dump writes and as the profile Load checks an incoming
// chunk against.
func HostHeader() Header {
	return Header{
		Version:     formatVersion,
		Format:      formatOfficial,
		BigEndian:   false,
		SizeInt:     4,
		SizeSizeT:   8,
		SizeInstr:   4,
		SizeNumber:  8,
		IntegralNum: false,
	}
}
