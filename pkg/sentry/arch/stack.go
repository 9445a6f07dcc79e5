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

package arch

import (
	"ukern.dev/ukern/pkg/errors/linuxerr"
	"ukern.dev/ukern/pkg/hostarch"
	"ukern.dev/ukern/pkg/marshal/primitive"
	"ukern.dev/ukern/pkg/usermem"
)

// StackBottomMagic is the return address stored in the outermost frame of a
// user stack. It is never a valid instruction address, so a stack walk that
// reads it has reached the bottom.
const StackBottomMagic uint32 = 0xffffffff

// Stack is a simple wrapper around a usermem.IO and an address. Stack
// implements marshal.CopyContext, and marshallable values can be pushed or
// popped from the stack through the marshal.Marshallable interface.
//
// Stack is not thread-safe.
type Stack struct {
	IO usermem.IO

	// Bottom is the lowest address of the data pushed so far; the stack
	// pointer.
	Bottom hostarch.Addr

	// Limit is the lowest address the stack may grow down to.
	Limit hostarch.Addr
}

// CopyOutBytes implements marshal.CopyContext.CopyOutBytes. CopyOutBytes
// pushes src onto the stack. The addr argument is ignored.
func (s *Stack) CopyOutBytes(_ hostarch.Addr, src []byte) (int, error) {
	if hostarch.Addr(len(src)) > s.Bottom-s.Limit || s.Bottom < s.Limit {
		return 0, linuxerr.EFAULT
	}
	sp := s.Bottom - hostarch.Addr(len(src))
	n, err := s.IO.CopyOut(sp, src)
	if err != nil {
		return n, err
	}
	s.Bottom = sp
	return n, nil
}

// CopyInBytes implements marshal.CopyContext.CopyInBytes. CopyInBytes pops
// len(dst) bytes off the stack into dst. The addr argument is ignored.
func (s *Stack) CopyInBytes(_ hostarch.Addr, dst []byte) (int, error) {
	n, err := s.IO.CopyIn(s.Bottom, dst)
	if err != nil {
		return n, err
	}
	s.Bottom += hostarch.Addr(n)
	return n, nil
}

// Push pushes a word onto the stack.
func (s *Stack) Push(v uint32) error {
	_, err := primitive.CopyUint32Out(s, 0, v)
	return err
}

// Pop pops a word off the stack.
func (s *Stack) Pop() (uint32, error) {
	return primitive.CopyUint32In(s, 0)
}

// Prologue runs the standard function prologue on regs and user memory:
//
//	push ebp
//	mov ebp, esp
func Prologue(io usermem.IO, regs *Registers, limit hostarch.Addr) error {
	s := Stack{IO: io, Bottom: hostarch.Addr(regs.Esp), Limit: limit}
	if err := s.Push(regs.Ebp); err != nil {
		return err
	}
	regs.Esp = uint32(s.Bottom)
	regs.Ebp = regs.Esp
	return nil
}

// EnterFrame runs the effects of a call whose return address is retAddr,
// followed by the callee's Prologue:
//
//	push retAddr   (call)
//	push ebp
//	mov ebp, esp
func EnterFrame(io usermem.IO, regs *Registers, limit hostarch.Addr, retAddr uint32) error {
	s := Stack{IO: io, Bottom: hostarch.Addr(regs.Esp), Limit: limit}
	if err := s.Push(retAddr); err != nil {
		return err
	}
	saved := regs.Esp
	regs.Esp = uint32(s.Bottom)
	if err := Prologue(io, regs, limit); err != nil {
		regs.Esp = saved
		return err
	}
	return nil
}

// LeaveFrame undoes EnterFrame: it runs the epilogue and ret of the current
// function and returns the return address.
//
//	mov esp, ebp
//	pop ebp
//	ret
func LeaveFrame(io usermem.IO, regs *Registers) (uint32, error) {
	s := Stack{IO: io, Bottom: hostarch.Addr(regs.Ebp)}
	ebp, err := s.Pop()
	if err != nil {
		return 0, err
	}
	ret, err := s.Pop()
	if err != nil {
		return 0, err
	}
	regs.Ebp = ebp
	regs.Esp = uint32(s.Bottom)
	return ret, nil
}
