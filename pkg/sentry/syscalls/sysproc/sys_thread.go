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

package sysproc

import (
	"ukern.dev/ukern/pkg/abi/uapi"
	"ukern.dev/ukern/pkg/hostarch"
	"ukern.dev/ukern/pkg/sentry/kernel"
)

// ThreadCreate implements thread_create(entry, arg, stack).
//
// entry must be an address in the caller's address space and stack a page of
// it; arg is passed to the thread as is. The new thread sees a return value
// of 0 and the caller the pid of the thread.
func ThreadCreate(t *kernel.Task, args kernel.SyscallArguments) (uintptr, error) {
	entry, err := args.Pointer(0, 1)
	if err != nil {
		return 0, err
	}
	arg, err := args.Word(1)
	if err != nil {
		return 0, err
	}
	stack, err := args.Pointer(2, hostarch.PageSize)
	if err != nil {
		return 0, err
	}
	pid, err := t.Kernel().CreateThread(t, entry, arg, stack)
	return uintptr(pid), err
}

// GetProcInfo implements getprocinfo(index, buf). It fills buf with the
// snapshot of one process table slot, and returns 1 if the slot is unused.
func GetProcInfo(t *kernel.Task, args kernel.SyscallArguments) (uintptr, error) {
	index, err := args.Int(0)
	if err != nil {
		return 0, err
	}
	buf, err := args.Pointer(1, uapi.SizeofProcInfo)
	if err != nil {
		return 0, err
	}
	info, err := t.Kernel().ProcInfo(index)
	if err != nil {
		return 0, err
	}
	_, err = buf.CopyOutObject(&info)
	return 0, err
}

// Backtrace implements backtrace. It prints the caller's registers and call
// chain to the console.
func Backtrace(t *kernel.Task, args kernel.SyscallArguments) (uintptr, error) {
	return 0, t.Kernel().Backtrace(t)
}
