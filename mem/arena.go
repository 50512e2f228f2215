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

package mem

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/fjl/memsize"
)

// Arena is an optional allocator backend for hosts that want one large,
// page-backed reservation for value stacks and table arrays instead of
// many small Go heap allocations. It still honors the AllocFunc contract:
// it is a drop-in for Manager.alloc, not a separate API.
type Arena struct {
	file   *os.File
	region mmap.MMap
	offset int
}

// NewArena reserves size bytes of anonymous, page-backed memory via a
// temporary file and mmap.Map, suited to large flat byte regions
// (fastcache-style memory-mapped tables).
func NewArena(size int) (*Arena, error) {
	f, err := os.CreateTemp("", "starling-arena-*")
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	region, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	return &Arena{file: f, region: region}, nil
}

// Close unmaps and removes the backing file.
func (a *Arena) Close() error {
	name := a.file.Name()
	err := a.region.Unmap()
	a.file.Close()
	os.Remove(name)
	return err
}

// Alloc satisfies AllocFunc by bump-allocating within the reserved region.
// Frees are no-ops: the arena is reclaimed wholesale on Close, trading
// fine-grained reuse for allocation speed on short-lived runtimes (e.g.
// one-shot script evaluation in a CLI tool).
func (a *Arena) Alloc(ptr []byte, oldSize, newSize int) ([]byte, bool) {
	if newSize == 0 {
		return nil, true
	}
	if a.offset+newSize > len(a.region) {
		return nil, false
	}
	out := a.region[a.offset : a.offset+newSize]
	copy(out, ptr)
	a.offset += newSize
	return out, true
}

// HeapReport renders a human-readable breakdown of a value graph's
// in-memory footprint, in the spirit of a node reporting its cache sizes.
// Intended for cmd/starlingdump and GC diagnostics, not the hot path.
func HeapReport(root interface{}) string {
	r := memsize.Scan(root)
	return fmt.Sprintf("total=%s", r.Total)
}
