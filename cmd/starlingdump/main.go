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

// Command starlingdump inspects compiled chunks on disk: it is a
// debugging aid for the chunk format and bytecode layout, not a
// language host (compiling and running source is out of scope for
// this repository; see the chunk package's doc comment).
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"gopkg.in/urfave/cli.v1"

	"github.com/starling-lang/starling/internal/rtconfig"
	"github.com/starling-lang/starling/object"
)

var app = cli.NewApp()

var configFlag = cli.StringFlag{
	Name:  "config",
	Usage: "TOML config file supplying defaults (dump.defaultchunk, dump.historyfile)",
}

func init() {
	app.Name = "starlingdump"
	app.Usage = "inspect compiled starling chunks"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{configFlag}
	app.Commands = []cli.Command{
		listCommand,
		headerCommand,
		browseCommand,
	}
}

// loadedConfig returns rtconfig.Default() when --config is absent, or
// the decoded file otherwise.
func loadedConfig(ctx *cli.Context) (rtconfig.Config, error) {
	path := ctx.GlobalString(configFlag.Name)
	if path == "" {
		return rtconfig.Default(), nil
	}
	return rtconfig.Load(path)
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "starlingdump:", err)
		os.Exit(1)
	}
}

var listCommand = cli.Command{
	Name:      "list",
	Usage:     "disassemble every prototype in a chunk",
	ArgsUsage: "<chunk-file>",
	Action: func(ctx *cli.Context) error {
		p, err := loadProtoArg(ctx)
		if err != nil {
			return err
		}
		listProto(p, 0)
		return nil
	},
}

var headerCommand = cli.Command{
	Name:      "header",
	Usage:     "print a chunk's platform header",
	ArgsUsage: "<chunk-file>",
	Action: func(ctx *cli.Context) error {
		path, err := chunkPathArg(ctx)
		if err != nil {
			return err
		}
		return printHeader(path)
	},
}

var browseCommand = cli.Command{
	Name:      "browse",
	Usage:     "interactively walk a chunk's nested prototypes",
	ArgsUsage: "<chunk-file>",
	Action: func(ctx *cli.Context) error {
		p, err := loadProtoArg(ctx)
		if err != nil {
			return err
		}
		cfg, err := loadedConfig(ctx)
		if err != nil {
			return err
		}
		return browse(p, cfg.Dump.HistoryFile)
	},
}

func chunkPathArg(ctx *cli.Context) (string, error) {
	if ctx.NArg() == 1 {
		return ctx.Args().Get(0), nil
	}
	if ctx.NArg() == 0 {
		cfg, err := loadedConfig(ctx)
		if err == nil && cfg.Dump.DefaultChunk != "" {
			return cfg.Dump.DefaultChunk, nil
		}
	}
	return "", cli.NewExitError("expected exactly one chunk file argument", 1)
}

func loadProtoArg(ctx *cli.Context) (*object.Proto, error) {
	path, err := chunkPathArg(ctx)
	if err != nil {
		return nil, err
	}
	return loadProtoFile(path)
}

// browse is a small liner-driven REPL for stepping into nested
// prototypes by index, listing constants, or printing disassembly for
// whichever prototype is currently selected.
func browse(root *object.Proto, historyFile string) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(historyFile); err == nil {
				line.WriteHistory(f)
				f.Close()
			}
		}()
	}

	stack := []*object.Proto{root}
	for {
		cur := stack[len(stack)-1]
		prompt := fmt.Sprintf("starlingdump(%d)> ", len(stack)-1)
		input, err := line.Prompt(prompt)
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				return nil
			}
			return err
		}
		line.AppendHistory(input)

		fields := strings.Fields(input)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit", "exit":
			return nil
		case "list":
			listProto(cur, 0)
		case "consts":
			printConstants(cur)
		case "up":
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case "into":
			if len(fields) != 2 {
				fmt.Println("usage: into <proto-index>")
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 0 || n >= len(cur.Protos) {
				fmt.Println("no such nested prototype")
				continue
			}
			stack = append(stack, cur.Protos[n])
		case "help":
			fmt.Println("commands: list, consts, into <n>, up, quit")
		default:
			fmt.Printf("unknown command %q (try help)\n", fields[0])
		}
	}
}
