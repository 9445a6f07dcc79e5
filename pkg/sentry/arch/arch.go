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

// Package arch provides abstractions around architecture-dependent details,
// such as syscall calling conventions, the saved register set and the layout
// of user stack frames.
//
// The only supported architecture is 32-bit x86 with the cdecl calling
// convention: arguments are pushed right to left, the caller pushes the
// return address, and the callee's prologue pushes ebp and points ebp at the
// saved value.
package arch

import (
	"fmt"
	"io"
)

// Segment selectors and flags of a task running in user mode.
const (
	// UserCS selects the user code segment at privilege level 3.
	UserCS = 3<<3 | 3

	// UserDS selects the user data segment at privilege level 3.
	UserDS = 4<<3 | 3

	// FlagIF enables interrupts.
	FlagIF = 0x200
)

// Registers is the saved trap frame of a task, in the order the trap entry
// code pushes it.
type Registers struct {
	// Pushed by pusha.
	Edi  uint32
	Esi  uint32
	Ebp  uint32
	Oesp uint32 // Ignored by popa.
	Ebx  uint32
	Edx  uint32
	Ecx  uint32
	Eax  uint32

	// Segment selectors and trap number, pushed by the trap vector.
	Gs     uint32
	Fs     uint32
	Es     uint32
	Ds     uint32
	Trapno uint32

	// Pushed by the processor.
	Err    uint32
	Eip    uint32
	Cs     uint32
	Eflags uint32
	Esp    uint32
	Ss     uint32
}

// NewUserRegisters returns registers for a task entering user mode with
// interrupts enabled. Instruction and stack pointers are left zero.
func NewUserRegisters() Registers {
	return Registers{
		Cs:     UserCS,
		Ds:     UserDS,
		Es:     UserDS,
		Ss:     UserDS,
		Eflags: FlagIF,
	}
}

// SyscallNo returns the syscall number the task trapped with.
func (r *Registers) SyscallNo() uintptr {
	return uintptr(r.Eax)
}

// SetReturn sets the syscall return value.
func (r *Registers) SetReturn(value uintptr) {
	r.Eax = uint32(value)
}

// Return returns the current syscall return value.
func (r *Registers) Return() uintptr {
	return uintptr(r.Eax)
}

// IP returns the current instruction pointer.
func (r *Registers) IP() uintptr {
	return uintptr(r.Eip)
}

// SetIP sets the current instruction pointer.
func (r *Registers) SetIP(value uintptr) {
	r.Eip = uint32(value)
}

// Stack returns the current stack pointer.
func (r *Registers) Stack() uintptr {
	return uintptr(r.Esp)
}

// SetStack sets the current stack pointer.
func (r *Registers) SetStack(value uintptr) {
	r.Esp = uint32(value)
}

// FramePointer returns the current frame pointer.
func (r *Registers) FramePointer() uintptr {
	return uintptr(r.Ebp)
}

// Fork returns a copy of r, as seen by a new task created from r: the
// syscall return value is 0.
func (r *Registers) Fork() Registers {
	c := *r
	c.Eax = 0
	return c
}

// Dump writes one "name:0xvalue" line per register to w.
func (r *Registers) Dump(w io.Writer) error {
	for _, reg := range []struct {
		name  string
		value uint32
	}{
		{"eax", r.Eax},
		{"ebx", r.Ebx},
		{"ecx", r.Ecx},
		{"edx", r.Edx},
		{"edi", r.Edi},
		{"esi", r.Esi},
		{"cs", r.Cs},
		{"ds", r.Ds},
		{"es", r.Es},
		{"fs", r.Fs},
		{"gs", r.Gs},
		{"ss", r.Ss},
		{"eflags", r.Eflags},
		{"err", r.Err},
		{"esp", r.Esp},
		{"eip", r.Eip},
		{"ebp", r.Ebp},
	} {
		if _, err := fmt.Fprintf(w, "%s:0x%x\n", reg.name, reg.value); err != nil {
			return err
		}
	}
	return nil
}
