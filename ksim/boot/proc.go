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

package boot

import (
	"fmt"

	"ukern.dev/ukern/pkg/abi/uapi"
	"ukern.dev/ukern/pkg/hostarch"
	"ukern.dev/ukern/pkg/log"
	"ukern.dev/ukern/pkg/sentry/arch"
	"ukern.dev/ukern/pkg/sentry/kernel"
)

// Proc is the user side of a running task: the syscall stubs a program
// calls. A Proc may only be used by the goroutine running its program.
type Proc struct {
	l *Loader
	t *kernel.Task

	// exited is set once exit succeeded. t may be reaped and its slot
	// reused after that.
	exited bool
}

// Task returns the task p runs as.
func (p *Proc) Task() *kernel.Task {
	return p.t
}

// Loader returns the loader that started p.
func (p *Proc) Loader() *Loader {
	return p.l
}

// Syscall traps into the kernel and returns the value left in eax. Once the
// task has exited, Syscall returns -1.
func (p *Proc) Syscall(sysno uintptr, args ...uint32) int32 {
	if p.exited {
		return -1
	}
	rval, err := p.l.k.Invoke(p.t, sysno, args...)
	if err != nil {
		log.Warningf("%v: syscall %d: %v", p.t, sysno, err)
		return -1
	}
	if sysno == uapi.SYS_EXIT && rval == 0 {
		p.exited = true
	}
	return int32(rval)
}

// Getpid returns the pid of the task.
func (p *Proc) Getpid() int32 {
	return p.Syscall(uapi.SYS_GETPID)
}

// Fork creates a child process running child. It returns the child's pid,
// or -1.
func (p *Proc) Fork(child Program) int32 {
	pid := p.Syscall(uapi.SYS_FORK)
	if pid > 0 {
		p.l.start(p.l.k.TaskByPID(pid), child, true)
	}
	return pid
}

// ThreadCreate creates a thread that starts at entry with arg, using the page
// at stack as its stack. The thread runs the program registered at entry.
// It returns the thread's pid, or -1.
func (p *Proc) ThreadCreate(entry, arg, stack uint32) int32 {
	pid := p.Syscall(uapi.SYS_THREAD_CREATE, entry, arg, stack)
	if pid <= 0 {
		return pid
	}
	nt := p.l.k.TaskByPID(pid)
	prog, ok := p.l.program(entry)
	if !ok {
		prog = func(*Proc) error {
			return fmt.Errorf("no program at entry %#x", entry)
		}
	}
	p.l.start(nt, func(np *Proc) error {
		// Every function starts with the standard prologue.
		if err := arch.Prologue(nt.MemoryManager(), nt.Registers(), nt.StackRegion().Start); err != nil {
			return fmt.Errorf("entering %#x: %w", entry, err)
		}
		return prog(np)
	}, true)
	return pid
}

// Arg returns the first argument of the current function.
func (p *Proc) Arg() (uint32, error) {
	return p.t.MemoryManager().ReadWord(hostarch.Addr(p.t.Registers().FramePointer()) + 2*hostarch.WordSize)
}

// Call runs fn as a function called from retAddr: fn's frame is linked
// into the call chain while it runs.
func (p *Proc) Call(retAddr uint32, fn func() error) error {
	regs := p.t.Registers()
	if err := arch.EnterFrame(p.t.MemoryManager(), regs, p.t.StackRegion().Start, retAddr); err != nil {
		return err
	}
	fnErr := fn()
	if _, err := arch.LeaveFrame(p.t.MemoryManager(), regs); err != nil {
		return err
	}
	return fnErr
}

// Exit ends the process. A program may also just return.
func (p *Proc) Exit() int32 {
	return p.Syscall(uapi.SYS_EXIT)
}

// Wait waits for a child to exit and returns its pid, or -1.
func (p *Proc) Wait() int32 {
	return p.Syscall(uapi.SYS_WAIT)
}

// Kill marks the process with the given pid killed.
func (p *Proc) Kill(pid int32) int32 {
	return p.Syscall(uapi.SYS_KILL, uint32(pid))
}

// Sbrk grows the address space by n bytes and returns the old size, or -1.
func (p *Proc) Sbrk(n int32) int32 {
	return p.Syscall(uapi.SYS_SBRK, uint32(n))
}

// Sleep sleeps for n ticks.
func (p *Proc) Sleep(n int32) int32 {
	return p.Syscall(uapi.SYS_SLEEP, uint32(n))
}

// Uptime returns the number of ticks since boot.
func (p *Proc) Uptime() uint32 {
	return uint32(p.Syscall(uapi.SYS_UPTIME))
}

// Backtrace prints the registers and call chain to the console.
func (p *Proc) Backtrace() int32 {
	return p.Syscall(uapi.SYS_BACKTRACE)
}

// GetProcInfo fills the ProcInfo at buf with the process table slot index
// and returns it along with the syscall result: 0, 1 if the slot is unused,
// or -1.
func (p *Proc) GetProcInfo(index int32, buf uint32) (uapi.ProcInfo, int32) {
	var info uapi.ProcInfo
	rval := p.Syscall(uapi.SYS_GETPROCINFO, uint32(index), buf)
	if rval != 0 {
		return info, rval
	}
	b := make([]byte, uapi.SizeofProcInfo)
	if _, err := p.t.MemoryManager().CopyIn(hostarch.Addr(buf), b); err != nil {
		log.Warningf("%v: reading ProcInfo at %#x: %v", p.t, buf, err)
		return info, -1
	}
	info.UnmarshalBytes(b)
	return info, rval
}

// ProcTable returns a snapshot of every used process table slot, using the
// ProcInfo-sized buffer at buf.
func (p *Proc) ProcTable(buf uint32) ([]uapi.ProcInfo, error) {
	var infos []uapi.ProcInfo
	for i := 0; i < p.l.k.MaxTasks(); i++ {
		switch info, rval := p.GetProcInfo(int32(i), buf); rval {
		case 0:
			infos = append(infos, info)
		case 1:
		default:
			return nil, fmt.Errorf("getprocinfo(%d) = %d", i, rval)
		}
	}
	return infos, nil
}
