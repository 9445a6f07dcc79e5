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

// Package kernel provides an emulation of the process-management half of a
// small Unix-like kernel: the process table, sleep and wakeup, the tick
// clock, and the syscall boundary that user code crosses to reach them.
//
// Lock order:
//
//	TickClock.mu
//		ProcessTable.mu
//			mm.MemoryManager.mu
//
// A Task's registers belong to the goroutine that runs the task and are not
// protected by any lock. All other mutable Task fields are protected by
// ProcessTable.mu unless documented otherwise.
package kernel

import (
	"fmt"
	"io"
	"sync"
	"time"

	"ukern.dev/ukern/pkg/abi/uapi"
	"ukern.dev/ukern/pkg/cleanup"
	"ukern.dev/ukern/pkg/hostarch"
	"ukern.dev/ukern/pkg/log"
	"ukern.dev/ukern/pkg/sentry/arch"
	"ukern.dev/ukern/pkg/sentry/mm"
)

// InitPID is the pid of the first task, the root of the process tree.
const InitPID = 1

// InitKernelArgs holds arguments to Init.
type InitKernelArgs struct {
	// MaxTasks is the capacity of the process table.
	MaxTasks int

	// MaxFiles is the size of each task's open file table.
	MaxFiles int

	// InitMemory is the size of the first task's address space.
	InitMemory uint64

	// MaxMemory is the largest address space a task may grow to.
	MaxMemory uint64

	// MaxBacktraceDepth bounds the number of frames printed by Backtrace.
	MaxBacktraceDepth int

	// Console receives diagnostic output. If nil, output is discarded.
	Console io.Writer

	// SyscallTable is the table used to dispatch syscalls.
	SyscallTable *SyscallTable
}

// Kernel represents an emulated kernel.
type Kernel struct {
	maxFiles          int
	maxMemory         uint64
	maxBacktraceDepth int

	// tasks is the process table.
	tasks *ProcessTable

	// ticks counts timer interrupts.
	ticks TickClock

	syscalls *SyscallTable

	// consoleMu serializes writes to console so that a single diagnostic
	// dump is never interleaved with another.
	consoleMu sync.Mutex
	console   io.Writer

	// init is the first task. It is immutable after Init.
	init *Task

	// badArgs reports syscalls rejected at argument validation. User code
	// controls how often this happens, so it is rate limited.
	badArgs log.Logger
}

// Init initializes the Kernel with no tasks but the first.
//
// Callers must manually set Kernel fields before Init.
func (k *Kernel) Init(args InitKernelArgs) error {
	switch {
	case args.MaxTasks <= 0:
		return fmt.Errorf("MaxTasks must be positive, got %d", args.MaxTasks)
	case args.MaxFiles < 3:
		return fmt.Errorf("MaxFiles must be at least 3, got %d", args.MaxFiles)
	case args.InitMemory < 2*hostarch.PageSize:
		return fmt.Errorf("InitMemory must be at least %d bytes, got %d", 2*hostarch.PageSize, args.InitMemory)
	case args.InitMemory > args.MaxMemory:
		return fmt.Errorf("InitMemory (%d) exceeds MaxMemory (%d)", args.InitMemory, args.MaxMemory)
	case args.MaxBacktraceDepth <= 0:
		return fmt.Errorf("MaxBacktraceDepth must be positive, got %d", args.MaxBacktraceDepth)
	case args.SyscallTable == nil:
		return fmt.Errorf("SyscallTable is nil")
	}
	k.maxFiles = args.MaxFiles
	k.maxMemory = args.MaxMemory
	k.maxBacktraceDepth = args.MaxBacktraceDepth
	k.syscalls = args.SyscallTable
	k.syscalls.Init()
	k.console = args.Console
	if k.console == nil {
		k.console = io.Discard
	}
	k.tasks = newProcessTable(k, args.MaxTasks)
	k.badArgs = log.BasicRateLimitedLogger(time.Second)

	t, err := k.newInitTask(args.InitMemory)
	if err != nil {
		return fmt.Errorf("creating init task: %w", err)
	}
	k.init = t
	log.Infof("Kernel initialized: %d task slots, init %v", args.MaxTasks, t)
	return nil
}

// newInitTask creates the first task. Its address space has the user stack
// at the top, holding a terminating frame. The task starts as if its entry
// function had been called from that frame and had run its prologue, so a
// stack walk started from it prints the StackBottomMagic frame and stops.
func (k *Kernel) newInitTask(size uint64) (*Task, error) {
	t, err := k.tasks.alloc()
	if err != nil {
		return nil, err
	}
	cu := cleanup.Make(func() { k.tasks.free(t) })
	defer cu.Clean()

	m, err := mm.NewMemoryManager(size, k.maxMemory)
	if err != nil {
		return nil, err
	}
	cu.Add(m.DecRef)

	stack := hostarch.AddrRange{Start: hostarch.Addr(size) - hostarch.PageSize, End: hostarch.Addr(size)}
	base := arch.NewUserRegisters()
	regs, err := arch.NewThreadFrame(&base, m, stack, 0, 0)
	if err != nil {
		return nil, err
	}
	if err := arch.Prologue(m, &regs, stack.Start); err != nil {
		return nil, err
	}
	t.regs = regs

	console := newConsoleFile(k)
	t.files = make([]*File, k.maxFiles)
	t.files[0] = console
	console.IncRef()
	t.files[1] = console
	console.IncRef()
	t.files[2] = console
	t.cwd = newRootInode()

	k.tasks.mu.Lock()
	t.mm = m
	t.setName("initcode")
	t.state = uapi.RUNNABLE
	k.tasks.mu.Unlock()
	cu.Release()
	return t, nil
}

// InitTask returns the first task.
func (k *Kernel) InitTask() *Task {
	return k.init
}

// TaskByPID returns the live task with the given pid, or nil.
func (k *Kernel) TaskByPID(pid int32) *Task {
	k.tasks.mu.RLock()
	defer k.tasks.mu.RUnlock()
	return k.tasks.lookupLocked(pid)
}

// MaxTasks returns the capacity of the process table.
func (k *Kernel) MaxTasks() int {
	return len(k.tasks.slots)
}

// writeConsole writes b to the console as a single unit.
func (k *Kernel) writeConsole(b []byte) error {
	k.consoleMu.Lock()
	defer k.consoleMu.Unlock()
	_, err := k.console.Write(b)
	return err
}
