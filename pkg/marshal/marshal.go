// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package marshal defines the Marshallable interface for serialize/deserializing
// Go data structures to/from memory, according to the user ABI.
package marshal

import (
	"ukern.dev/ukern/pkg/hostarch"
)

// CopyContext defines the memory operations required to marshal to and from
// user memory. Typically, kernel.Task or mm.UserPointer is used to provide
// implementations for these operations.
type CopyContext interface {
	// CopyInBytes copies data from the user address space into dst, starting
	// at addr.
	CopyInBytes(addr hostarch.Addr, dst []byte) (int, error)

	// CopyOutBytes copies data from src to the user address space, starting
	// at addr.
	CopyOutBytes(addr hostarch.Addr, src []byte) (int, error)
}

// Marshallable represents operations on a type that can be marshalled to and
// from memory.
//
// Every type crossing the user/kernel boundary implements Marshallable by
// hand, field by field, in the ABI byte order. Raw Go memory is never copied
// to user space.
type Marshallable interface {
	// SizeBytes is the size of the memory representation of a type in
	// marshalled form.
	SizeBytes() int

	// MarshalBytes serializes a copy of a type to dst.
	// Precondition: dst must be at least SizeBytes() in length.
	MarshalBytes(dst []byte)

	// UnmarshalBytes deserializes a type from src.
	// Precondition: src must be at least SizeBytes() in length.
	UnmarshalBytes(src []byte)
}

// CopyOut marshals m and copies it to addr in cc.
func CopyOut(cc CopyContext, addr hostarch.Addr, m Marshallable) (int, error) {
	buf := make([]byte, m.SizeBytes())
	m.MarshalBytes(buf)
	return cc.CopyOutBytes(addr, buf)
}

// CopyIn copies SizeBytes() bytes from addr in cc and unmarshals them into m.
func CopyIn(cc CopyContext, addr hostarch.Addr, m Marshallable) (int, error) {
	buf := make([]byte, m.SizeBytes())
	n, err := cc.CopyInBytes(addr, buf)
	if err != nil {
		return n, err
	}
	m.UnmarshalBytes(buf)
	return n, nil
}
