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

package interp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unsafe"

	"github.com/starling-lang/starling/coroutine"
	"github.com/starling-lang/starling/internal/errs"
	"github.com/starling-lang/starling/meta"
	"github.com/starling-lang/starling/object"
	"github.com/starling-lang/starling/strtab"
	"github.com/starling-lang/starling/table"
	"github.com/starling-lang/starling/value"
)

// Interp is the dispatch loop's fixed set of collaborators: the
// metamethod registry and the string table used to materialize new
// string values (CONCAT's number-to-string coercion, error messages).
// One Interp per runtime instance, wired by package api.
type Interp struct {
	Reg     *meta.Registry
	Strings *strtab.Table

	// Register is called for every table, closure, and upvalue the
	// dispatch loop allocates directly (NEWTABLE, CLOSURE), so the
	// collector sees them the same way it sees host-facing allocations.
	// nil is a valid no-op default for tests that run without a collector.
	Register func(value.Object)

	// Account is called with the signed byte delta for memory the loop
	// allocates directly (a NEWTABLE table's backing slices and later
	// growth, a closure's own upvalue slice), mirroring package mem's byte
	// counter for bytecode-driven allocation. nil is a valid no-op default.
	Account func(int64)
}

// New wires a dispatch loop against a runtime's registry and string
// table. register and account are invoked for every object/byte-delta the
// loop allocates directly; pass nil for either where no collector or
// memory manager is wired (e.g. standalone tests).
func New(reg *meta.Registry, strings *strtab.Table, register func(value.Object), account func(int64)) *Interp {
	return &Interp{Reg: reg, Strings: strings, Register: register, Account: account}
}

// register links o into the collector's object list if one is wired,
// a no-op otherwise.
func (ip *Interp) register(o value.Object) {
	if ip.Register != nil {
		ip.Register(o)
	}
}

func (ip *Interp) account(delta int64) {
	if ip.Account != nil {
		ip.Account(delta)
	}
}

// Run executes t's frames until the frame active when Run was called
// returns, satisfying coroutine.Runner. It re-enters in place for script-to-script
// CALL/TAILCALL/RETURN rather than recursing in Go; metamethod callbacks
// that themselves invoke a function value do recurse one Go frame,
// mirroring an ordinary protected call.
func (ip *Interp) Run(t *coroutine.Thread) error {
	target := len(t.Frames) - 1
	for len(t.Frames) > target {
		if err := ip.step(t); err != nil {
			return err
		}
		if t.HookMask&coroutine.HookMaskCount != 0 && t.Hook != nil {
			t.HookCount--
			if t.HookCount <= 0 {
				if err := t.Hook(t, "count"); err != nil {
					return err
				}
				t.ResetHookCount()
			}
		}
	}
	return nil
}

func (ip *Interp) rt(format string, args ...interface{}) error {
	return errs.New(errs.StatusRuntimeError, value.String(ip.Strings.Intern([]byte(fmt.Sprintf(format, args...)))))
}

// step decodes and executes exactly one instruction of the current
// frame. For a script-to-script CALL/TAILCALL/RETURN it only pushes or
// pops a frame; Run's loop then continues in the new current frame.
func (ip *Interp) step(t *coroutine.Thread) error {
	f := t.CurrentFrame()
	if f.IsNative {
		// A native frame at the top only happens transiently inside
		// Precall, which fully resolves it before returning; Run never
		// observes one directly.
		return ip.rt("attempt to execute a native frame")
	}
	p := f.Closure.Proto
	if f.PC >= len(p.Code) {
		coroutine.Return(t, nil)
		return nil
	}
	i := p.Code[f.PC]
	f.PC++
	reg := t.Stack[f.Base:]
	rk := func(raw int) value.Value {
		if isConstRK(raw) {
			return p.Constants[constIndexRK(raw)]
		}
		return reg[raw]
	}

	switch decodeOp(i) {
	case OpMove:
		reg[decodeA(i)] = reg[decodeB(i)]

	case OpLoadK:
		reg[decodeA(i)] = p.Constants[decodeBx(i)]

	case OpLoadBool:
		a, b, c := decodeA(i), decodeB(i), decodeC(i)
		reg[a] = value.Bool(b != 0)
		if c != 0 {
			f.PC++
		}

	case OpLoadNil:
		a, b := decodeA(i), decodeB(i)
		for j := a; j <= b; j++ {
			reg[j] = value.Nil
		}

	case OpGetUpval:
		reg[decodeA(i)] = f.Closure.Upvals[decodeB(i)].Get()

	case OpSetUpval:
		f.Closure.Upvals[decodeB(i)].Set(reg[decodeA(i)])

	case OpGetGlobal:
		env, err := ip.envOf(f.Closure)
		if err != nil {
			return err
		}
		v, err := ip.index(t, env, p.Constants[decodeBx(i)])
		if err != nil {
			return err
		}
		reg[decodeA(i)] = v

	case OpSetGlobal:
		env, err := ip.envOf(f.Closure)
		if err != nil {
			return err
		}
		if err := ip.newindex(t, env, p.Constants[decodeBx(i)], reg[decodeA(i)]); err != nil {
			return err
		}

	case OpGetTable:
		a, b, c := decodeA(i), decodeB(i), decodeC(i)
		v, err := ip.index(t, reg[b], rk(c))
		if err != nil {
			return err
		}
		reg[a] = v

	case OpSetTable:
		a, b, c := decodeA(i), decodeB(i), decodeC(i)
		if err := ip.newindex(t, reg[a], rk(b), rk(c)); err != nil {
			return err
		}

	case OpNewTable:
		a, b, c := decodeA(i), decodeB(i), decodeC(i)
		nt := table.New(fb2int(b), fb2int(c))
		nt.Account = ip.Account
		ip.account(nt.ByteSize())
		ip.register(nt)
		reg[a] = value.Table(nt)

	case OpSelf:
		a, b, c := decodeA(i), decodeB(i), decodeC(i)
		self := reg[b]
		reg[a+1] = self
		v, err := ip.index(t, self, rk(c))
		if err != nil {
			return err
		}
		reg[a] = v

	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpPow:
		a, b, c := decodeA(i), decodeB(i), decodeC(i)
		v, err := ip.arith(t, decodeOp(i), rk(b), rk(c))
		if err != nil {
			return err
		}
		reg[a] = v

	case OpUnm:
		a, b := decodeA(i), decodeB(i)
		n, ok := toNumber(reg[b])
		if ok {
			reg[a] = value.Number(-n)
			break
		}
		v, err := ip.metaBinOp(t, meta.Unm, reg[b], reg[b])
		if err != nil {
			return err
		}
		reg[a] = v

	case OpNot:
		a, b := decodeA(i), decodeB(i)
		reg[a] = value.Bool(!reg[b].Truthy())

	case OpLen:
		a, b := decodeA(i), decodeB(i)
		v, err := ip.length(t, reg[b])
		if err != nil {
			return err
		}
		reg[a] = v

	case OpConcat:
		a, b, c := decodeA(i), decodeB(i), decodeC(i)
		v, err := ip.concat(t, reg[b:c+1])
		if err != nil {
			return err
		}
		reg[a] = v

	case OpJmp:
		f.PC += decodesBx(i)

	case OpEq, OpLt, OpLe:
		a, b, c := decodeA(i), decodeB(i), decodeC(i)
		ok, err := ip.compare(t, decodeOp(i), rk(b), rk(c))
		if err != nil {
			return err
		}
		if ok == (a != 0) {
			f.PC += decodesBx(p.Code[f.PC])
		}
		f.PC++

	case OpTest:
		a, c := decodeA(i), decodeC(i)
		if reg[a].Truthy() != (c != 0) {
			f.PC += decodesBx(p.Code[f.PC])
		}
		f.PC++

	case OpTestSet:
		a, b, c := decodeA(i), decodeB(i), decodeC(i)
		if reg[b].Truthy() == (c != 0) {
			reg[a] = reg[b]
			f.PC += decodesBx(p.Code[f.PC])
		}
		f.PC++

	case OpCall:
		a, b, c := decodeA(i), decodeB(i), decodeC(i)
		return ip.call(t, f.Base+a, callNArgs(f, a, b), callNResults(c))

	case OpTailCall:
		a, b, c := decodeA(i), decodeB(i), decodeC(i)
		_ = c
		return ip.tailcall(t, f, f.Base+a, callNArgs(f, a, b))

	case OpReturn:
		a, b := decodeA(i), decodeB(i)
		var results []value.Value
		if b == 0 {
			results = append([]value.Value(nil), reg[a:f.Top-f.Base]...)
		} else {
			results = append([]value.Value(nil), reg[a:a+b-1]...)
		}
		coroutine.Return(t, results)

	case OpForPrep:
		a, sbx := decodeA(i), decodesBx(i)
		init, ok1 := toNumber(reg[a])
		limit, ok2 := toNumber(reg[a+1])
		step, ok3 := toNumber(reg[a+2])
		if !ok1 || !ok2 || !ok3 {
			return ip.rt("'for' initial value must be a number")
		}
		reg[a], reg[a+1], reg[a+2] = value.Number(init-step), value.Number(limit), value.Number(step)
		f.PC += sbx

	case OpForLoop:
		a, sbx := decodeA(i), decodesBx(i)
		init := reg[a].N + reg[a+2].N
		step := reg[a+2].N
		limit := reg[a+1].N
		cont := (step > 0 && init <= limit) || (step <= 0 && init >= limit)
		reg[a] = value.Number(init)
		if cont {
			reg[a+3] = value.Number(init)
			f.PC += sbx
		}

	case OpTForLoop:
		a, c := decodeA(i), decodeC(i)
		if err := ip.call(t, f.Base+a, 2, c); err != nil {
			return err
		}
		if !reg[a+3].IsNil() {
			reg[a+2] = reg[a+3]
			f.PC += decodesBx(p.Code[f.PC])
		}
		f.PC++

	case OpSetList:
		a, b, c := decodeA(i), decodeB(i), decodeC(i)
		if c == 0 {
			c = decodeBx(p.Code[f.PC])
			f.PC++
		}
		tbl := reg[a].Obj.(*table.Table)
		n := b
		if n == 0 {
			n = f.Top - f.Base - a - 1
		}
		for j := 1; j <= n; j++ {
			if err := tbl.Set(value.Number(float64((c-1)*50+j)), reg[a+j]); err != nil {
				return err
			}
		}

	case OpClose:
		a := decodeA(i)
		t.OpenUV.CloseFrom(f.Base + a)

	case OpClosure:
		a, bx := decodeA(i), decodeBx(i)
		proto := p.Protos[bx]
		upvals := make([]*object.Upvalue, len(proto.Upvalues))
		for idx, ud := range proto.Upvalues {
			if ud.InStack {
				upvals[idx] = t.OpenUV.FindOrCreate(t, f.Base+ud.Index, func(uv *object.Upvalue) { ip.register(uv) })
			} else {
				upvals[idx] = f.Closure.Upvals[ud.Index]
			}
		}
		ip.account(int64(len(upvals)) * int64(unsafe.Sizeof((*object.Upvalue)(nil))))
		cl := object.NewScript(proto, upvals)
		cl.Env = f.Closure.Env
		ip.register(cl)
		reg[a] = value.Function(cl)

	case OpVararg:
		a, b := decodeA(i), decodeB(i)
		va := f.Varargs()
		n := b - 1
		if b == 0 {
			n = len(va)
			t.EnsureStack(f.Base + a + n)
			reg = t.Stack[f.Base:]
			if f.Top < f.Base+a+n {
				f.Top = f.Base + a + n
			}
		}
		for j := 0; j < n; j++ {
			if j < len(va) {
				reg[a+j] = va[j]
			} else {
				reg[a+j] = value.Nil
			}
		}

	default:
		return ip.rt("illegal instruction")
	}
	return nil
}

func callNArgs(f *coroutine.Frame, a, b int) int {
	if b == 0 {
		return f.Top - f.Base - a - 1
	}
	return b - 1
}

func callNResults(c int) int {
	if c == 0 {
		return -1
	}
	return c - 1
}

// call drives a CALL instruction: Precall either runs a native closure
// to completion synchronously or pushes a script frame that the outer
// Run loop picks up on its next iteration.
func (ip *Interp) call(t *coroutine.Thread, calleeIdx, nargs, nresults int) error {
	res, err := coroutine.Precall(t, calleeIdx, nargs, nresults)
	if err != nil {
		return err
	}
	if res == coroutine.PCRNotCallable {
		return ip.callNotCallable(t, calleeIdx, nargs, nresults)
	}
	return nil
}

// callNotCallable retries through __call: the
// metamethod is inserted as the new callee ahead of the original value
// and its arguments.
func (ip *Interp) callNotCallable(t *coroutine.Thread, calleeIdx, nargs, nresults int) error {
	callee := t.Stack[calleeIdx]
	h := meta.Lookup(ip.Reg, callee, meta.Call)
	if h.IsNil() {
		return ip.rt("attempt to call a %s value", callee.Tag.String())
	}
	t.EnsureStack(calleeIdx + nargs + 1)
	for i := calleeIdx + nargs + 1; i > calleeIdx; i-- {
		t.Stack[i] = t.Stack[i-1]
	}
	t.Stack[calleeIdx] = h
	if f := t.CurrentFrame(); f != nil && calleeIdx+nargs+2 > f.Top {
		f.Top = calleeIdx + nargs + 2
	}
	return ip.call(t, calleeIdx, nargs+1, nresults)
}

// tailcall implements TAILCALL: a script callee reuses the
// current call depth (close upvalues, pop, then precall at the vacated
// slot) instead of growing the frame stack; anything else degenerates
// to an ordinary CALL.
func (ip *Interp) tailcall(t *coroutine.Thread, f *coroutine.Frame, calleeIdx, nargs int) error {
	callee := t.Stack[calleeIdx]
	cl, ok := callee.Obj.(*object.Closure)
	if !ok || callee.Tag != value.KindFunction || cl.IsNative() {
		return ip.call(t, calleeIdx, nargs, callNResults(0))
	}
	nresults := f.NResults
	calls := f.TailCalls
	t.OpenUV.CloseFrom(f.Base)
	dst := f.Base - 1
	for j := 0; j < nargs+1; j++ {
		t.Stack[dst+j] = t.Stack[calleeIdx+j]
	}
	t.PopFrame()
	res, err := coroutine.Precall(t, dst, nargs, nresults)
	if err != nil {
		return err
	}
	if res == coroutine.PCRNotCallable {
		return ip.rt("attempt to call a %s value", callee.Tag.String())
	}
	if nf := t.CurrentFrame(); nf != nil && res == coroutine.PCRLUA {
		nf.TailCalls = calls + 1
	}
	return nil
}

func (ip *Interp) envOf(cl *object.Closure) (value.Value, error) {
	if cl.Env == nil || cl.Env.IsNil() {
		return value.Nil, ip.rt("attempt to access a nil environment")
	}
	return *cl.Env, nil
}

// Index2 exposes metamethod-aware table/userdata reads to package api
//.
func (ip *Interp) Index2(t *coroutine.Thread, container, key value.Value) (value.Value, error) {
	return ip.index(t, container, key)
}

// NewIndex2 exposes metamethod-aware table/userdata writes to package
// api.
func (ip *Interp) NewIndex2(t *coroutine.Thread, container, key, v value.Value) error {
	return ip.newindex(t, container, key, v)
}

func (ip *Interp) index(t *coroutine.Thread, container, key value.Value) (value.Value, error) {
	return meta.Index(ip.Reg, container, key, func(fn, arg0, arg1 value.Value) (value.Value, error) {
		results, err := ip.callValue(t, fn, []value.Value{arg0, arg1}, 1)
		if err != nil {
			return value.Nil, err
		}
		return first(results), nil
	})
}

func (ip *Interp) newindex(t *coroutine.Thread, container, key, v value.Value) error {
	return meta.NewIndex(ip.Reg, container, key, v, func(fn, arg0, arg1, arg2 value.Value) error {
		_, err := ip.callValue(t, fn, []value.Value{arg0, arg1, arg2}, 0)
		return err
	})
}

// CallValue2 exposes a synchronous nested call to package api, used by
// pcall's error-handler invocation.
func (ip *Interp) CallValue2(t *coroutine.Thread, fn value.Value, args []value.Value, nresults int) ([]value.Value, error) {
	return ip.callValue(t, fn, args, nresults)
}

// callValue performs a synchronous nested call used by metamethod
// dispatch: push fn+args above the current frame's top, run it to
// completion (recursing one Go frame if it is a script closure), and
// collect its results.
func (ip *Interp) callValue(t *coroutine.Thread, fn value.Value, args []value.Value, nresults int) ([]value.Value, error) {
	base := t.Top()
	t.EnsureStack(base + len(args))
	t.Stack[base] = fn
	copy(t.Stack[base+1:], args)
	if cf := t.CurrentFrame(); cf != nil && base+len(args)+1 > cf.Top {
		cf.Top = base + len(args) + 1
	}
	res, err := coroutine.Precall(t, base, len(args), nresults)
	if err != nil {
		return nil, err
	}
	if res == coroutine.PCRNotCallable {
		if err := ip.callNotCallable(t, base, len(args), nresults); err != nil {
			return nil, err
		}
	} else if res == coroutine.PCRLUA {
		if err := ip.Run(t); err != nil {
			return nil, err
		}
	}
	want := nresults
	if want < 0 {
		want = t.Top() - base
	}
	out := append([]value.Value(nil), t.Stack[base:base+want]...)
	return out, nil
}

func first(vs []value.Value) value.Value {
	if len(vs) == 0 {
		return value.Nil
	}
	return vs[0]
}

func (ip *Interp) arith(t *coroutine.Thread, op Opcode, a, b value.Value) (value.Value, error) {
	if na, ok := toNumber(a); ok {
		if nb, ok := toNumber(b); ok {
			return value.Number(applyArith(op, na, nb)), nil
		}
	}
	event := arithEvent(op)
	return ip.metaBinOp(t, event, a, b)
}

func applyArith(op Opcode, a, b float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / b
	case OpMod:
		return a - math.Floor(a/b)*b
	case OpPow:
		return math.Pow(a, b)
	}
	return 0
}

func arithEvent(op Opcode) string {
	switch op {
	case OpAdd:
		return meta.Add
	case OpSub:
		return meta.Sub
	case OpMul:
		return meta.Mul
	case OpDiv:
		return meta.Div
	case OpMod:
		return meta.Mod
	case OpPow:
		return meta.Pow
	}
	return meta.Add
}

func (ip *Interp) metaBinOp(t *coroutine.Thread, event string, a, b value.Value) (value.Value, error) {
	h := meta.Lookup(ip.Reg, a, event)
	if h.IsNil() {
		h = meta.Lookup(ip.Reg, b, event)
	}
	if h.IsNil() {
		bad := a
		if _, ok := toNumber(a); ok {
			bad = b
		}
		return value.Nil, ip.rt("attempt to perform arithmetic on a %s value", bad.Tag.String())
	}
	res, err := ip.callValue(t, h, []value.Value{a, b}, 1)
	if err != nil {
		return value.Nil, err
	}
	return first(res), nil
}

func (ip *Interp) length(t *coroutine.Thread, v value.Value) (value.Value, error) {
	switch v.Tag {
	case value.KindString:
		return value.Number(float64(len(v.S.Bytes))), nil
	case value.KindTable:
		tbl := v.Obj.(*table.Table)
		h := meta.Lookup(ip.Reg, v, meta.Len)
		if h.IsNil() {
			return value.Number(float64(tbl.Length())), nil
		}
		res, err := ip.callValue(t, h, []value.Value{v}, 1)
		if err != nil {
			return value.Nil, err
		}
		return first(res), nil
	default:
		return value.Nil, ip.rt("attempt to get length of a %s value", v.Tag.String())
	}
}

func (ip *Interp) concat(t *coroutine.Thread, vs []value.Value) (value.Value, error) {
	if len(vs) == 0 {
		return value.String(ip.Strings.Intern(nil)), nil
	}
	// Right-associative: fold from the rightmost pair outward.
	acc := vs[len(vs)-1]
	for i := len(vs) - 2; i >= 0; i-- {
		v, err := ip.concat2(t, vs[i], acc)
		if err != nil {
			return value.Nil, err
		}
		acc = v
	}
	return acc, nil
}

func (ip *Interp) concat2(t *coroutine.Thread, a, b value.Value) (value.Value, error) {
	as, aok := concatString(a)
	bs, bok := concatString(b)
	if aok && bok {
		return value.String(ip.Strings.Intern([]byte(as + bs))), nil
	}
	h := meta.Lookup(ip.Reg, a, meta.Concat)
	if h.IsNil() {
		h = meta.Lookup(ip.Reg, b, meta.Concat)
	}
	if h.IsNil() {
		bad := a
		if aok {
			bad = b
		}
		return value.Nil, ip.rt("attempt to concatenate a %s value", bad.Tag.String())
	}
	res, err := ip.callValue(t, h, []value.Value{a, b}, 1)
	if err != nil {
		return value.Nil, err
	}
	return first(res), nil
}

func concatString(v value.Value) (string, bool) {
	switch v.Tag {
	case value.KindString:
		return v.S.String(), true
	case value.KindNumber:
		return numToStr(v.N), true
	default:
		return "", false
	}
}

// Compare exposes EQ/LT/LE dispatch to package api's metamethod-aware
// equal/less-than operations.
func (ip *Interp) Compare(t *coroutine.Thread, op string, a, b value.Value) (bool, error) {
	switch op {
	case "eq":
		return ip.compare(t, OpEq, a, b)
	case "lt":
		return ip.compare(t, OpLt, a, b)
	case "le":
		return ip.compare(t, OpLe, a, b)
	default:
		return false, ip.rt("unknown comparison %q", op)
	}
}

// Concat2 exposes metamethod-aware concatenation to package api's
// top-N-values concat operation.
func (ip *Interp) Concat2(t *coroutine.Thread, vs []value.Value) (value.Value, error) {
	return ip.concat(t, vs)
}

// Length2 exposes metamethod-aware length to package api.
func (ip *Interp) Length2(t *coroutine.Thread, v value.Value) (value.Value, error) {
	return ip.length(t, v)
}

func (ip *Interp) compare(t *coroutine.Thread, op Opcode, a, b value.Value) (bool, error) {
	switch op {
	case OpEq:
		if value.RawEqual(a, b) {
			return true, nil
		}
		if a.Tag != b.Tag {
			return false, nil
		}
		if a.Tag != value.KindTable && a.Tag != value.KindUserData {
			return false, nil
		}
		h, ok := meta.SameHandler(ip.Reg, a, b, meta.Eq)
		if !ok {
			return false, nil
		}
		res, err := ip.callValue(t, h, []value.Value{a, b}, 1)
		if err != nil {
			return false, err
		}
		return first(res).Truthy(), nil

	case OpLt:
		return ip.lessThan(t, a, b)

	case OpLe:
		lt, err := ip.lessEqual(t, a, b)
		return lt, err
	}
	return false, nil
}

func (ip *Interp) lessThan(t *coroutine.Thread, a, b value.Value) (bool, error) {
	if a.Tag == value.KindNumber && b.Tag == value.KindNumber {
		return a.N < b.N, nil
	}
	if a.Tag == value.KindString && b.Tag == value.KindString {
		return a.S.String() < b.S.String(), nil
	}
	h, ok := meta.SameHandler(ip.Reg, a, b, meta.Lt)
	if !ok {
		return false, ip.rt("attempt to compare two %s values", a.Tag.String())
	}
	res, err := ip.callValue(t, h, []value.Value{a, b}, 1)
	if err != nil {
		return false, err
	}
	return first(res).Truthy(), nil
}

func (ip *Interp) lessEqual(t *coroutine.Thread, a, b value.Value) (bool, error) {
	if a.Tag == value.KindNumber && b.Tag == value.KindNumber {
		return a.N <= b.N, nil
	}
	if a.Tag == value.KindString && b.Tag == value.KindString {
		return a.S.String() <= b.S.String(), nil
	}
	h, ok := meta.SameHandler(ip.Reg, a, b, meta.Le)
	if ok {
		res, err := ip.callValue(t, h, []value.Value{a, b}, 1)
		if err != nil {
			return false, err
		}
		return first(res).Truthy(), nil
	}
	// __le falls back to not __lt(swap) when no __le handler exists.
	lt, err := ip.lessThan(t, b, a)
	if err != nil {
		return false, err
	}
	return !lt, nil
}

func toNumber(v value.Value) (float64, bool) {
	switch v.Tag {
	case value.KindNumber:
		return v.N, true
	case value.KindString:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.S.String()), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func numToStr(n float64) string { return strconv.FormatFloat(n, 'g', 14, 64) }

// fb2int decodes the "floating point byte" size hint NEWTABLE's B/C
// fields carry: values below 8
// are literal; above that, a 3-bit mantissa and a 5-bit exponent.
func fb2int(x int) int {
	if x < 8 {
		return x
	}
	return ((x & 7) + 8) << uint((x>>3)-1)
}


