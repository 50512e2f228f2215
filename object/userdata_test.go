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

package object

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starling-lang/starling/table"
	"github.com/starling-lang/starling/value"
)

func TestUserDataWrapsArbitraryPayload(t *testing.T) {
	u := New(42)
	require.Equal(t, 42, u.Data)
	require.Nil(t, u.Meta)
	require.Nil(t, u.Env)
}

func TestUserDataFinalizeRunsGCHookWhenSet(t *testing.T) {
	u := New(nil)
	require.NoError(t, u.Finalize(), "a userdata with no GCHook must finalize as a no-op")

	called := false
	u.GCHook = func(ud *UserData) error {
		called = true
		require.Same(t, u, ud)
		return nil
	}
	require.NoError(t, u.Finalize())
	require.True(t, called, "Finalize must invoke a non-nil GCHook")
}

func TestUserDataTraverseVisitsEnvAndMetatable(t *testing.T) {
	u := New("payload")
	mt := table.New(0, 0)
	u.Meta = mt
	envTarget := table.New(0, 0)
	env := value.Table(envTarget)
	u.Env = &env

	var visited []value.Object
	u.Traverse(func(o value.Object) { visited = append(visited, o) })

	require.ElementsMatch(t, []value.Object{value.Object(mt), value.Object(envTarget)}, visited)
}

func TestUserDataTraverseSkipsNilEnvAndMetatable(t *testing.T) {
	u := New(nil)
	var visited []value.Object
	u.Traverse(func(o value.Object) { visited = append(visited, o) })
	require.Empty(t, visited)
}
