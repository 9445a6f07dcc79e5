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

// Package primitive defines marshal.Marshallable implementations for
// primitive types.
package primitive

import (
	"ukern.dev/ukern/pkg/hostarch"
	"ukern.dev/ukern/pkg/marshal"
)

// Int32 is a marshal.Marshallable implementation for int32.
type Int32 int32

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (*Int32) SizeBytes() int {
	return 4
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (i *Int32) MarshalBytes(dst []byte) {
	hostarch.ByteOrder.PutUint32(dst[:4], uint32(*i))
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (i *Int32) UnmarshalBytes(src []byte) {
	*i = Int32(int32(hostarch.ByteOrder.Uint32(src[:4])))
}

// Uint32 is a marshal.Marshallable implementation for uint32.
type Uint32 uint32

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (*Uint32) SizeBytes() int {
	return 4
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (i *Uint32) MarshalBytes(dst []byte) {
	hostarch.ByteOrder.PutUint32(dst[:4], uint32(*i))
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (i *Uint32) UnmarshalBytes(src []byte) {
	*i = Uint32(hostarch.ByteOrder.Uint32(src[:4]))
}

// CopyInt32In is a convenient wrapper for copying in an int32 from the user's
// address space.
func CopyInt32In(cc marshal.CopyContext, addr hostarch.Addr) (int32, error) {
	var tmp Int32
	if _, err := marshal.CopyIn(cc, addr, &tmp); err != nil {
		return 0, err
	}
	return int32(tmp), nil
}

// CopyUint32In is a convenient wrapper for copying in a uint32 from the user's
// address space.
func CopyUint32In(cc marshal.CopyContext, addr hostarch.Addr) (uint32, error) {
	var tmp Uint32
	if _, err := marshal.CopyIn(cc, addr, &tmp); err != nil {
		return 0, err
	}
	return uint32(tmp), nil
}

// CopyUint32Out is a convenient wrapper for copying out a uint32 to the user's
// address space.
func CopyUint32Out(cc marshal.CopyContext, addr hostarch.Addr, src uint32) (int, error) {
	srcP := Uint32(src)
	return marshal.CopyOut(cc, addr, &srcP)
}
