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

// Package errs holds the runtime's sentinel errors and status codes.
package errs

import "errors"

// Status is the outcome of a protected call.
type Status int

const (
	StatusOK Status = iota
	StatusYield
	StatusRuntimeError
	StatusSyntaxError
	StatusMemoryError
	StatusErrorHandlerError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusYield:
		return "yield"
	case StatusRuntimeError:
		return "runtime-error"
	case StatusSyntaxError:
		return "syntax-error"
	case StatusMemoryError:
		return "memory-error"
	case StatusErrorHandlerError:
		return "error-handler-error"
	default:
		return "unknown-status"
	}
}

var (
	// ErrOutOfMemory is reported when the allocator callback refuses a request.
	ErrOutOfMemory = errors.New("starling: out of memory")
	// ErrStackOverflow is reported when the value stack or call-info stack
	// would grow past its configured limit.
	ErrStackOverflow = errors.New("starling: stack overflow")
	// ErrNotSuspended is returned by resume on a thread that is not suspended.
	ErrNotSuspended = errors.New("starling: cannot resume non-suspended coroutine")
	// ErrYieldAcrossCBoundary is returned by yield when the current frame
	// sits below a native call that did not permit yielding.
	ErrYieldAcrossCBoundary = errors.New("starling: attempt to yield across a C-call boundary")
	// ErrNaNKey is returned when a table key is NaN.
	ErrNaNKey = errors.New("starling: table index is NaN")
	// ErrNilKey is returned when a table key is nil.
	ErrNilKey = errors.New("starling: table index is nil")
	// ErrInvalidChunkHeader is returned by the chunk loader on a signature
	// or platform-profile mismatch.
	ErrInvalidChunkHeader = errors.New("starling: invalid or incompatible chunk header")
)

// RuntimeError augments an error with the runtime's error kind
// classification (runtime, memory, syntax, error-in-handler).
type RuntimeError struct {
	Status Status
	Value  interface{} // the error object, usually a string
}

func (e *RuntimeError) Error() string {
	if s, ok := e.Value.(string); ok {
		return s
	}
	return e.Status.String()
}

// New wraps a value as a runtime error with the given status.
func New(status Status, value interface{}) *RuntimeError {
	return &RuntimeError{Status: status, Value: value}
}
