// Copyright 2024 The starling Authors
// This file is part of the starling library.
//
// Starlingdump is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Starlingdump is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with starlingdump. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/starling-lang/starling/chunk"
	"github.com/starling-lang/starling/interp"
	"github.com/starling-lang/starling/object"
	"github.com/starling-lang/starling/strtab"
)

func loadProtoFile(path string) (*object.Proto, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	// A throwaway table is enough here: this tool only reads strings
	// back out for display, it never interns across chunks.
	strings := strtab.New()
	return chunk.Load(f, strings)
}

func printHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	h, err := chunk.ReadHeader(f)
	if err != nil {
		return err
	}
	host := chunk.HostHeader()
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"field", "value"})
	table.Append([]string{"version", fmt.Sprintf("0x%02x", h.Version)})
	table.Append([]string{"format", fmt.Sprintf("%d", h.Format)})
	table.Append([]string{"big-endian", fmt.Sprintf("%v", h.BigEndian)})
	table.Append([]string{"sizeof(int)", fmt.Sprintf("%d", h.SizeInt)})
	table.Append([]string{"sizeof(size_t)", fmt.Sprintf("%d", h.SizeSizeT)})
	table.Append([]string{"sizeof(Instruction)", fmt.Sprintf("%d", h.SizeInstr)})
	table.Append([]string{"sizeof(Number)", fmt.Sprintf("%d", h.SizeNumber)})
	table.Append([]string{"integral Number", fmt.Sprintf("%v", h.IntegralNum)})
	table.Append([]string{"matches host", fmt.Sprintf("%v", h == host)})
	table.Render()
	return nil
}

// listProto prints one luac-style disassembly line per instruction in
// p and then recurses into its nested prototypes.
func listProto(p *object.Proto, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	kind := "function"
	if p.IsVararg {
		kind = "vararg function"
	}
	fmt.Printf("%s%s <%s:%d,%d> (%d instructions, %d params, %d upvalues, %d slots)\n",
		indent, kind, p.Source, p.LineDefined, p.LastLineDefined,
		len(p.Code), p.NumParams, len(p.Upvalues), p.MaxStackSize)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"pc", "line", "op", "A", "B", "C", "comment"})
	table.SetAutoWrapText(false)
	for pc, instr := range p.Code {
		op, a, b, c, bx, sbx := interp.Decode(instr)
		line := ""
		if pc < len(p.LineInfo) {
			line = strconv.Itoa(p.LineInfo[pc])
		}
		comment := comment(p, op, b, c, bx, sbx)
		table.Append([]string{
			strconv.Itoa(pc), line, op.String(),
			strconv.Itoa(a), strconv.Itoa(b), strconv.Itoa(c), comment,
		})
	}
	table.Render()

	printConstants(p)
	for i, nested := range p.Protos {
		fmt.Printf("%s-- nested prototype %d --\n", indent, i)
		listProto(nested, depth+1)
	}
}

func comment(p *object.Proto, op interp.Opcode, b, c, bx, sbx int) string {
	switch op {
	case interp.OpLoadK:
		return constComment(p, bx)
	case interp.OpGetGlobal, interp.OpSetGlobal:
		return constComment(p, bx)
	case interp.OpJmp, interp.OpForPrep, interp.OpForLoop:
		return fmt.Sprintf("to %d", sbx)
	case interp.OpGetTable, interp.OpSelf:
		return rkComment(p, c)
	case interp.OpSetTable, interp.OpAdd, interp.OpSub,
		interp.OpMul, interp.OpDiv, interp.OpMod, interp.OpPow, interp.OpEq, interp.OpLt, interp.OpLe:
		return rkComment(p, b) + " " + rkComment(p, c)
	default:
		return ""
	}
}

func rkComment(p *object.Proto, rk int) string {
	if !interp.IsConstRK(rk) {
		return ""
	}
	return constComment(p, interp.ConstIndexRK(rk))
}

func constComment(p *object.Proto, idx int) string {
	if idx < 0 || idx >= len(p.Constants) {
		return ""
	}
	return p.Constants[idx].GoString()
}

func printConstants(p *object.Proto) {
	if len(p.Constants) == 0 {
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"const", "value"})
	for i, k := range p.Constants {
		table.Append([]string{strconv.Itoa(i), k.GoString()})
	}
	table.Render()
}
