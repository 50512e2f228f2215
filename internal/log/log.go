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

// Package log provides the runtime's key/value logger: package-level
// Info/Warn/Error/Debug/Crit helpers, call-site decoration, and an
// ANSI-colored terminal format.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level is the severity of a log record, ordered from most to least severe.
type Level int

const (
	LvlCrit Level = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
)

var lvlNames = map[Level]string{
	LvlCrit:  "CRIT",
	LvlError: "ERROR",
	LvlWarn:  "WARN",
	LvlInfo:  "INFO",
	LvlDebug: "DEBUG",
}

var lvlColor = map[Level]*color.Color{
	LvlCrit:  color.New(color.FgMagenta, color.Bold),
	LvlError: color.New(color.FgRed),
	LvlWarn:  color.New(color.FgYellow),
	LvlInfo:  color.New(color.FgGreen),
	LvlDebug: color.New(color.FgCyan),
}

// Logger writes leveled, key/value-annotated records to an output stream.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	level  Level
	color  bool
	ctx    []interface{}
}

var root = New(colorable.NewColorableStderr())

// Root returns the runtime-wide default logger.
func Root() *Logger { return root }

// New creates a logger writing to w at LvlInfo, with color enabled
// only when w is a file descriptor isatty recognizes as a terminal.
func New(w io.Writer) *Logger {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Logger{out: w, level: LvlInfo, color: color}
}

// SetLevel changes the minimum severity that is emitted.
func (l *Logger) SetLevel(lvl Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = lvl
}

// New returns a child logger with additional persistent key/value context.
func (l *Logger) New(ctx ...interface{}) *Logger {
	child := &Logger{out: l.out, level: l.level, color: l.color}
	child.ctx = append(append([]interface{}{}, l.ctx...), ctx...)
	return child
}

func (l *Logger) write(lvl Level, msg string, ctx []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lvl > l.level {
		return
	}
	// Skip write, New, and the Info/Warn/... wrapper to find the real caller.
	call := stack.Caller(3)
	ts := time.Now().Format("15:04:05.000")
	name := lvlNames[lvl]
	if l.color {
		if c, ok := lvlColor[lvl]; ok {
			name = c.Sprint(name)
		}
	}
	fmt.Fprintf(l.out, "%s [%-5s] %-40s", ts, name, msg)
	all := append(append([]interface{}{}, l.ctx...), ctx...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(l.out, " %v=%v", all[i], all[i+1])
	}
	fmt.Fprintf(l.out, " caller=%v\n", call)
}

func (l *Logger) Crit(msg string, ctx ...interface{}) {
	l.write(LvlCrit, msg, ctx)
	os.Exit(1)
}
func (l *Logger) Error(msg string, ctx ...interface{}) { l.write(LvlError, msg, ctx) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.write(LvlWarn, msg, ctx) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.write(LvlInfo, msg, ctx) }
func (l *Logger) Debug(msg string, ctx ...interface{}) { l.write(LvlDebug, msg, ctx) }

// Package-level helpers delegate to Root(), giving call sites the
// `log.Info("message", "k1", v1, "k2", v2)` convention without needing a
// Logger in scope.
func Crit(msg string, ctx ...interface{})  { Root().write(LvlCrit, msg, ctx); os.Exit(1) }
func Error(msg string, ctx ...interface{}) { Root().write(LvlError, msg, ctx) }
func Warn(msg string, ctx ...interface{})  { Root().write(LvlWarn, msg, ctx) }
func Info(msg string, ctx ...interface{})  { Root().write(LvlInfo, msg, ctx) }
func Debug(msg string, ctx ...interface{}) { Root().write(LvlDebug, msg, ctx) }
