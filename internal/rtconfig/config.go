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

// Package rtconfig holds the TOML-backed configuration for GC
// tunables and debug-tool defaults, read the same way cmd/gprobe reads
// its node configuration: a tomlSettings Config with strict field
// names and a MissingField hook that only warns on fields the runtime
// has deliberately deprecated.
package rtconfig

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"
)

var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		if deprecated(field) {
			return nil
		}
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// deprecatedFields names TOML keys that older config files may still
// carry; Config.Load tolerates them instead of failing the decode.
var deprecatedFields = map[string]bool{}

func deprecated(field string) bool { return deprecatedFields[field] }

// GCConfig mirrors the tunables exposed by gc.Collector/mem.Manager.
type GCConfig struct {
	Pause          int64 `toml:",omitempty"` // percent of live bytes before the next cycle starts
	StepMultiplier int64 `toml:",omitempty"` // percent of bytes allocated converted into GC work
}

// DumpConfig is cmd/starlingdump's own defaults: which chunk file to
// open when none is given on the command line, and whether the browse
// subcommand starts with its history file preloaded.
type DumpConfig struct {
	DefaultChunk string `toml:",omitempty"`
	HistoryFile  string `toml:",omitempty"`
}

// Config is the top-level document a TOML config file decodes into.
type Config struct {
	GC   GCConfig
	Dump DumpConfig
}

// Default returns a Config with the reference implementation's stock
// GC tunables.
func Default() Config {
	return Config{
		GC: GCConfig{Pause: 200, StepMultiplier: 200},
	}
}

// Load reads and decodes a TOML file into cfg, starting from
// Default() and overwriting whatever the file specifies.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg)
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(path + ", " + err.Error())
	}
	return cfg, err
}
