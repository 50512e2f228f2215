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

// Package interp is the register-based bytecode dispatch loop: fixed-width 32-bit instructions with fields A (8 bits), B (9
// bits), C (9 bits), Bx (18 bits unsigned), sBx (Bx biased for signed
// jumps). It consumes object.Proto/object.Closure produced elsewhere
// (compilation is out of scope here) and drives coroutine.Thread,
// table.Table and package meta to execute them.
package interp

// Opcode identifies one of the runtime's bytecode instructions.
type Opcode uint8

const (
	OpMove Opcode = iota
	OpLoadK
	OpLoadBool
	OpLoadNil
	OpGetUpval
	OpSetUpval
	OpGetGlobal
	OpSetGlobal
	OpGetTable
	OpSetTable
	OpNewTable
	OpSelf
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpUnm
	OpNot
	OpLen
	OpConcat
	OpJmp
	OpEq
	OpLt
	OpLe
	OpTest
	OpTestSet
	OpCall
	OpTailCall
	OpReturn
	OpForPrep
	OpForLoop
	OpTForLoop
	OpSetList
	OpClose
	OpClosure
	OpVararg
	opCount
)

var opNames = [opCount]string{
	OpMove: "MOVE", OpLoadK: "LOADK", OpLoadBool: "LOADBOOL", OpLoadNil: "LOADNIL",
	OpGetUpval: "GETUPVAL", OpSetUpval: "SETUPVAL", OpGetGlobal: "GETGLOBAL", OpSetGlobal: "SETGLOBAL",
	OpGetTable: "GETTABLE", OpSetTable: "SETTABLE", OpNewTable: "NEWTABLE", OpSelf: "SELF",
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV", OpMod: "MOD", OpPow: "POW",
	OpUnm: "UNM", OpNot: "NOT", OpLen: "LEN", OpConcat: "CONCAT", OpJmp: "JMP",
	OpEq: "EQ", OpLt: "LT", OpLe: "LE", OpTest: "TEST", OpTestSet: "TESTSET",
	OpCall: "CALL", OpTailCall: "TAILCALL", OpReturn: "RETURN",
	OpForPrep: "FORPREP", OpForLoop: "FORLOOP", OpTForLoop: "TFORLOOP",
	OpSetList: "SETLIST", OpClose: "CLOSE", OpClosure: "CLOSURE", OpVararg: "VARARG",
}

func (op Opcode) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "UNKNOWN"
}

// Field widths and the RK/constant-pool encoding. Layout,
// most-significant bits first: op(6) A(8) C(9) B(9); Bx replaces B|C as
// one 18-bit unsigned field, sBx is Bx biased by half its range.
const (
	sizeOp = 6
	sizeA  = 8
	sizeB  = 9
	sizeC  = 9
	sizeBx = sizeB + sizeC

	posOp = 0
	posA  = posOp + sizeOp
	posC  = posA + sizeA
	posB  = posC + sizeC
	posBx = posC

	maxArgBx  = 1<<sizeBx - 1
	sBxBias   = maxArgBx >> 1
	rkIsConst = 1 << (sizeB - 1) // top bit of a 9-bit B/C field
	maxIndexRK = rkIsConst - 1
)

func mask1(n, p uint) uint32  { return ((1<<n)-1) << p }
func getArg(i uint32, p, n uint) int { return int((i >> p) & ((1 << n) - 1)) }

// Encode packs an ABC-form instruction.
func Encode(op Opcode, a, b, c int) uint32 {
	return uint32(op)<<posOp | uint32(a)<<posA | uint32(b)<<posB | uint32(c)<<posC
}

// EncodeBx packs an ABx-form instruction.
func EncodeBx(op Opcode, a, bx int) uint32 {
	return uint32(op)<<posOp | uint32(a)<<posA | uint32(bx)<<posBx
}

// EncodesBx packs an AsBx-form instruction.
func EncodesBx(op Opcode, a, sbx int) uint32 {
	return EncodeBx(op, a, sbx+sBxBias)
}

func decodeOp(i uint32) Opcode { return Opcode(getArg(i, posOp, sizeOp)) }
func decodeA(i uint32) int     { return getArg(i, posA, sizeA) }
func decodeB(i uint32) int     { return getArg(i, posB, sizeB) }
func decodeC(i uint32) int     { return getArg(i, posC, sizeC) }
func decodeBx(i uint32) int    { return getArg(i, posBx, sizeBx) }
func decodesBx(i uint32) int   { return decodeBx(i) - sBxBias }

// isConstRK reports whether a raw 9-bit B/C field names a constant-pool
// slot rather than a register.
func isConstRK(rk int) bool { return rk&rkIsConst != 0 }
func constIndexRK(rk int) int { return rk &^ rkIsConst }

// Decode unpacks a raw instruction's opcode and all three field
// encodings at once, for tools that disassemble code without running
// it (e.g. cmd/starlingdump).
func Decode(i uint32) (op Opcode, a, b, c, bx, sbx int) {
	return decodeOp(i), decodeA(i), decodeB(i), decodeC(i), decodeBx(i), decodesBx(i)
}

// IsConstRK and ConstIndexRK expose the RK encoding to disassembly
// tools outside this package.
func IsConstRK(rk int) bool    { return isConstRK(rk) }
func ConstIndexRK(rk int) int  { return constIndexRK(rk) }
