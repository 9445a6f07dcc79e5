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
	"ukern.dev/ukern/pkg/abi/uapi"
	"ukern.dev/ukern/pkg/cleanup"
	"ukern.dev/ukern/pkg/errors/linuxerr"
	"ukern.dev/ukern/pkg/hostarch"
	"ukern.dev/ukern/pkg/sentry/arch"
	"ukern.dev/ukern/pkg/sentry/mm"
)

// CreateThread creates a task that shares t's address space, open files and
// working directory, and starts executing at entry with arg as its only
// argument, on stack. It returns the pid of the new task, or EAGAIN if the
// process table is full.
//
// entry and stack must have been checked against t's address space, which
// also means the new thread can only run code and use a stack that t could.
// In the new task the syscall returns 0.
//
// CreateThread does nothing to synchronize the threads that share an address
// space. The address space is released when the last task using it is
// reaped.
func (k *Kernel) CreateThread(t *Task, entry mm.UserPointer, arg uint32, stack mm.UserPointer) (int32, error) {
	if !entry.In(t.mm) || !stack.In(t.mm) || stack.Len() < 2*hostarch.WordSize {
		return 0, linuxerr.EINVAL
	}

	nt, err := k.tasks.alloc()
	if err != nil {
		return 0, err
	}
	cu := cleanup.Make(func() { k.tasks.free(nt) })
	defer cu.Clean()

	regs, err := arch.NewThreadFrame(&t.regs, t.mm, stack.Range(), uint32(entry.Addr()), arg)
	if err != nil {
		return 0, err
	}
	nt.regs = regs
	nt.files, nt.cwd = t.dupFiles()

	pt := k.tasks
	pt.mu.Lock()
	t.mm.IncRef()
	nt.mm = t.mm
	nt.parent = t
	nt.isThread = true
	nt.threadStack = stack.Range()
	nt.name = t.name
	nt.state = uapi.RUNNABLE
	pt.mu.Unlock()
	cu.Release()

	t.Debugf("thread_create: created %v at %#x, stack %v", nt, regs.Eip, nt.threadStack)
	return nt.PID(), nil
}
