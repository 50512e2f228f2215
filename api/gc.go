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

package api

// GCStop disables automatic incremental GC stepping.
func (s *State) GCStop() { s.GC.Stop() }

// GCRestart re-enables automatic stepping.
func (s *State) GCRestart() { s.GC.Restart() }

// GCCollect forces one full collection cycle.
func (s *State) GCCollect() { s.GC.Collect() }

// GCCount returns the memory counter as kibibytes plus remainder bytes.
func (s *State) GCCount() (kib, rem int) { return s.Mem.Stats() }

// GCStep performs one bounded unit of incremental work.
func (s *State) GCStep() { s.GC.Step() }

// GCSetPause sets the percent-of-live-bytes threshold for the next
// cycle.
func (s *State) GCSetPause(percent int64) int64 {
	s.Mem.SetPause(percent)
	return percent
}

// GCSetStepMultiplier sets how much work a single Step performs,
// proportional to bytes allocated.
func (s *State) GCSetStepMultiplier(percent int64) int64 {
	s.Mem.SetStepMultiplier(percent)
	return percent
}
