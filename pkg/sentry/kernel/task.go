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
	"bytes"
	"fmt"
	"sync/atomic"

	"ukern.dev/ukern/pkg/abi/uapi"
	"ukern.dev/ukern/pkg/hostarch"
	"ukern.dev/ukern/pkg/log"
	"ukern.dev/ukern/pkg/sentry/arch"
	"ukern.dev/ukern/pkg/sentry/mm"
)

// Task represents one slot of the process table: a process, or a thread
// sharing the address space of another task.
type Task struct {
	k *Kernel

	// slot is the index of the Task in ProcessTable.slots. slot is
	// immutable.
	slot int

	// pid is the task's process ID, 0 while the slot is unused. pid is
	// only written with ProcessTable.mu locked for writing, but may be
	// read without it.
	pid atomic.Int32

	// name is the NUL-padded display name.
	name [uapi.ProcNameLen]byte

	// state is the task's scheduling state.
	state uapi.ProcState

	// parent is the task that created this one, or nil for the init task.
	// parent does not hold a reference; exit reparents children to the
	// init task before a parent can be reaped.
	parent *Task

	// sleepCh is the value the task is sleeping on, or nil.
	sleepCh any

	// killed is set by Kernel.Kill and polled at every suspension point.
	// killed is accessed using atomic memory operations so that loops
	// holding only TickClock.mu can poll it.
	killed atomic.Bool

	// mm is the task's address space, shared with its threads.
	mm *mm.MemoryManager

	// isThread is true if mm was shared at creation rather than copied.
	isThread bool

	// threadStack is the stack a thread was created on. It is empty for
	// processes.
	threadStack hostarch.AddrRange

	// regs is the saved trap frame. regs is owned by the task goroutine.
	regs arch.Registers

	// files is the open file table. files and cwd are only accessed by
	// the task goroutine.
	files []*File

	// cwd is the working directory.
	cwd *Inode
}

// reset returns t to the unused state.
//
// Preconditions: The ProcessTable lock must be locked for writing.
func (t *Task) reset() {
	t.pid.Store(0)
	t.name = [uapi.ProcNameLen]byte{}
	t.state = uapi.UNUSED
	t.parent = nil
	t.sleepCh = nil
	t.killed.Store(false)
	t.mm = nil
	t.isThread = false
	t.threadStack = hostarch.AddrRange{}
	t.regs = arch.Registers{}
	t.files = nil
	t.cwd = nil
}

// PID returns the task's process ID.
func (t *Task) PID() int32 {
	return t.pid.Load()
}

// Name returns the task's display name.
func (t *Task) Name() string {
	t.k.tasks.mu.RLock()
	defer t.k.tasks.mu.RUnlock()
	return t.nameLocked()
}

func (t *Task) nameLocked() string {
	if i := bytes.IndexByte(t.name[:], 0); i >= 0 {
		return string(t.name[:i])
	}
	return string(t.name[:])
}

// setName sets the display name, truncating it so that it stays
// NUL-terminated.
//
// Preconditions: The ProcessTable lock must be locked for writing.
func (t *Task) setName(name string) {
	t.name = [uapi.ProcNameLen]byte{}
	copy(t.name[:uapi.ProcNameLen-1], name)
}

// State returns the task's scheduling state.
func (t *Task) State() uapi.ProcState {
	t.k.tasks.mu.RLock()
	defer t.k.tasks.mu.RUnlock()
	return t.state
}

// Parent returns the task's parent, or nil for the init task.
func (t *Task) Parent() *Task {
	t.k.tasks.mu.RLock()
	defer t.k.tasks.mu.RUnlock()
	return t.parent
}

// Killed returns true if the task has been killed.
func (t *Task) Killed() bool {
	return t.killed.Load()
}

// IsThread returns true if the task shares its address space with the task
// that created it.
func (t *Task) IsThread() bool {
	t.k.tasks.mu.RLock()
	defer t.k.tasks.mu.RUnlock()
	return t.isThread
}

// MemoryManager returns the task's address space.
func (t *Task) MemoryManager() *mm.MemoryManager {
	t.k.tasks.mu.RLock()
	defer t.k.tasks.mu.RUnlock()
	return t.mm
}

// Registers returns a pointer to the task's saved registers. It may only be
// used by the task goroutine.
func (t *Task) Registers() *arch.Registers {
	return &t.regs
}

// Kernel returns the kernel t belongs to.
func (t *Task) Kernel() *Kernel {
	return t.k
}

// File returns the open file at fd, or nil.
func (t *Task) File(fd int) *File {
	if fd < 0 || fd >= len(t.files) {
		return nil
	}
	return t.files[fd]
}

// Cwd returns the task's working directory.
func (t *Task) Cwd() *Inode {
	return t.cwd
}

// String implements fmt.Stringer.String.
func (t *Task) String() string {
	return fmt.Sprintf("task %d", t.PID())
}

// Debugf creates a debug log on the task's behalf.
func (t *Task) Debugf(format string, v ...any) {
	if log.IsLogging(log.Debug) {
		log.Log().DebugfAtDepth(1, t.logPrefix()+format, v...)
	}
}

// Infof logs an informational message on the task's behalf.
func (t *Task) Infof(format string, v ...any) {
	if log.IsLogging(log.Info) {
		log.Log().InfofAtDepth(1, t.logPrefix()+format, v...)
	}
}

// Warningf logs a warning on the task's behalf.
func (t *Task) Warningf(format string, v ...any) {
	log.Log().WarningfAtDepth(1, t.logPrefix()+format, v...)
}

func (t *Task) logPrefix() string {
	return fmt.Sprintf("[%4d] ", t.pid.Load())
}

// dupFiles returns a copy of t's file table and working directory with a new
// reference on every entry.
func (t *Task) dupFiles() ([]*File, *Inode) {
	files := make([]*File, len(t.files))
	for fd, f := range t.files {
		if f != nil {
			f.IncRef()
			files[fd] = f
		}
	}
	if t.cwd != nil {
		t.cwd.IncRef()
	}
	return files, t.cwd
}

// closeFiles drops t's references on its files and working directory.
func (t *Task) closeFiles() {
	for fd, f := range t.files {
		if f != nil {
			f.DecRef()
			t.files[fd] = nil
		}
	}
	if t.cwd != nil {
		t.cwd.DecRef()
		t.cwd = nil
	}
}
