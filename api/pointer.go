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

import (
	"reflect"
	"unsafe"

	"github.com/starling-lang/starling/value"
)

// objPointer extracts a heap object's identity address for ToPointer,
// the same reflect-based approach table.Table uses for its identity
// hash (table/table.go's uintptrOf).
func objPointer(o value.Object) unsafe.Pointer {
	return unsafe.Pointer(reflect.ValueOf(o).Pointer())
}
