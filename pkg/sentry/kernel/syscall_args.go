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

package kernel

import (
	"ukern.dev/ukern/pkg/hostarch"
	"ukern.dev/ukern/pkg/sentry/mm"
)

// SyscallArguments gives a syscall handler access to its arguments. The user
// side of a syscall pushes the arguments right to left, followed by the
// return address of the stub, before trapping; argument n is therefore the
// word at esp+4+4n.
//
// Every read is checked against the calling task's address space. A handler
// never sees an address it has not validated.
type SyscallArguments struct {
	t *Task
}

// Word returns argument n as an unsigned word. It returns EINVAL if the
// argument slot itself lies outside the caller's address space.
func (a SyscallArguments) Word(n int) (uint32, error) {
	if n < 0 {
		return 0, errBadArgIndex
	}
	addr := hostarch.Addr(a.t.regs.Esp) + hostarch.WordSize*hostarch.Addr(n+1)
	p, err := a.t.mm.CheckPointer(addr, hostarch.WordSize)
	if err != nil {
		return 0, err
	}
	return p.ReadWord(0)
}

// Int returns argument n as a signed integer.
func (a SyscallArguments) Int(n int) (int32, error) {
	v, err := a.Word(n)
	return int32(v), err
}

// Pointer returns argument n as a pointer to size bytes of user memory. It
// returns EINVAL unless all of [ptr, ptr+size) lies in the caller's address
// space.
func (a SyscallArguments) Pointer(n int, size int64) (mm.UserPointer, error) {
	v, err := a.Word(n)
	if err != nil {
		return mm.UserPointer{}, err
	}
	return a.t.mm.CheckPointer(hostarch.Addr(v), size)
}
