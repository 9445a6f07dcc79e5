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

package uapi

import (
	"bytes"
	"fmt"

	"ukern.dev/ukern/pkg/hostarch"
)

// ProcState is the state code of a process table slot.
type ProcState int32

// Process states, in ABI order.
const (
	UNUSED ProcState = iota
	EMBRYO
	SLEEPING
	RUNNABLE
	RUNNING
	ZOMBIE
)

var procStateNames = [...]string{
	UNUSED:   "unused",
	EMBRYO:   "embryo",
	SLEEPING: "sleep",
	RUNNABLE: "runble",
	RUNNING:  "run",
	ZOMBIE:   "zombie",
}

// String implements fmt.Stringer.String.
func (s ProcState) String() string {
	if s >= 0 && int(s) < len(procStateNames) {
		return procStateNames[s]
	}
	return fmt.Sprintf("ProcState(%d)", int32(s))
}

// ProcNameLen is the size of the name field of ProcInfo, including NUL
// padding.
const ProcNameLen = 16

// SizeofProcInfo is the size of ProcInfo in user memory.
const SizeofProcInfo = 40

// ProcInfo is the snapshot of one process table slot returned by getprocinfo.
// It never carries kernel addresses: the sleep channel is reduced to
// IsBlocked and the parent pointer to ParentPID.
type ProcInfo struct {
	Name      [ProcNameLen]byte
	PID       int32
	ParentPID int32
	Size      uint32
	State     ProcState
	IsBlocked int32
	IsKilled  int32
}

// NameString returns Name up to the first NUL byte.
func (p *ProcInfo) NameString() string {
	if i := bytes.IndexByte(p.Name[:], 0); i >= 0 {
		return string(p.Name[:i])
	}
	return string(p.Name[:])
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (p *ProcInfo) SizeBytes() int {
	return SizeofProcInfo
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (p *ProcInfo) MarshalBytes(dst []byte) {
	dst = dst[:SizeofProcInfo]
	copy(dst[:ProcNameLen], p.Name[:])
	hostarch.ByteOrder.PutUint32(dst[16:], uint32(p.PID))
	hostarch.ByteOrder.PutUint32(dst[20:], uint32(p.ParentPID))
	hostarch.ByteOrder.PutUint32(dst[24:], p.Size)
	hostarch.ByteOrder.PutUint32(dst[28:], uint32(p.State))
	hostarch.ByteOrder.PutUint32(dst[32:], uint32(p.IsBlocked))
	hostarch.ByteOrder.PutUint32(dst[36:], uint32(p.IsKilled))
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (p *ProcInfo) UnmarshalBytes(src []byte) {
	src = src[:SizeofProcInfo]
	copy(p.Name[:], src[:ProcNameLen])
	p.PID = int32(hostarch.ByteOrder.Uint32(src[16:]))
	p.ParentPID = int32(hostarch.ByteOrder.Uint32(src[20:]))
	p.Size = hostarch.ByteOrder.Uint32(src[24:])
	p.State = ProcState(hostarch.ByteOrder.Uint32(src[28:]))
	p.IsBlocked = int32(hostarch.ByteOrder.Uint32(src[32:]))
	p.IsKilled = int32(hostarch.ByteOrder.Uint32(src[36:]))
}
