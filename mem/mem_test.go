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
	"testing"

	"github.com/starling-lang/starling/internal/errs"
)

func TestAllocTracksTotal(t *testing.T) {
	m := New(nil)
	if _, err := m.Alloc(nil, 0, 100); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if got := m.Total(); got != 100 {
		t.Fatalf("Total() = %d, want 100", got)
	}
	if _, err := m.Alloc(make([]byte, 100), 100, 40); err != nil {
		t.Fatalf("shrinking Alloc: %v", err)
	}
	if got := m.Total(); got != 40 {
		t.Fatalf("Total() after shrink = %d, want 40", got)
	}
}

func TestFreeNeverGoesNegative(t *testing.T) {
	m := New(nil)
	m.Free(50)
	if got := m.Total(); got != 0 {
		t.Fatalf("Total() after over-freeing = %d, want 0 (clamped)", got)
	}
}

func TestAllocRefusalReturnsOutOfMemory(t *testing.T) {
	refusing := func(ptr []byte, oldSize, newSize int) ([]byte, bool) { return nil, false }
	m := New(refusing)
	_, err := m.Alloc(nil, 0, 16)
	if err != errs.ErrOutOfMemory {
		t.Fatalf("Alloc error = %v, want ErrOutOfMemory", err)
	}
}

func TestThresholdCallback(t *testing.T) {
	m := New(nil)
	fired := false
	m.SetGCStepCallback(func(*Manager) { fired = true })
	// Manager is constructed with a 1MiB threshold; push past it.
	if _, err := m.Alloc(nil, 0, 2<<20); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if !fired {
		t.Fatal("onThreshold callback did not fire after crossing the threshold")
	}
}

func TestSetThresholdUsesPause(t *testing.T) {
	m := New(nil)
	m.SetPause(150)
	if _, err := m.Alloc(nil, 0, 1000); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	m.SetThreshold()
	// threshold = total * pause / 100 = 1000 * 150 / 100 = 1500
	if _, err := m.Alloc(nil, 0, 400); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	fired := false
	m.SetGCStepCallback(func(*Manager) { fired = true })
	if _, err := m.Alloc(nil, 0, 200); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if !fired {
		t.Fatal("expected threshold crossing at total=1600 > 1500")
	}
}

func TestStatsSplitsKibibytesAndRemainder(t *testing.T) {
	m := New(nil)
	if _, err := m.Alloc(nil, 0, 1024+7); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	kib, rem := m.Stats()
	if kib != 1 || rem != 7 {
		t.Fatalf("Stats() = (%d, %d), want (1, 7)", kib, rem)
	}
}

func TestDefaultAllocCopiesOldContent(t *testing.T) {
	orig := []byte{1, 2, 3}
	out, ok := DefaultAlloc(orig, 3, 5)
	if !ok {
		t.Fatal("DefaultAlloc refused")
	}
	if len(out) != 5 || out[0] != 1 || out[1] != 2 || out[2] != 3 {
		t.Fatalf("DefaultAlloc(%v, 3, 5) = %v, want old content preserved", orig, out)
	}
}

func TestDefaultAllocFreeReturnsNil(t *testing.T) {
	out, ok := DefaultAlloc([]byte{1}, 1, 0)
	if !ok || out != nil {
		t.Fatalf("DefaultAlloc freeing = (%v, %v), want (nil, true)", out, ok)
	}
}
