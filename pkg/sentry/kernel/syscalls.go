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
	"errors"
	"fmt"

	"ukern.dev/ukern/pkg/abi/uapi"
	"ukern.dev/ukern/pkg/errors/linuxerr"
	"ukern.dev/ukern/pkg/hostarch"
	"ukern.dev/ukern/pkg/log"
	"ukern.dev/ukern/pkg/sentry/arch"
)

// maxSyscallNum is the highest supported syscall number.
const maxSyscallNum = 255

var errBadArgIndex = fmt.Errorf("negative syscall argument index: %w", linuxerr.EINVAL)

// SyscallFn is a syscall implementation.
type SyscallFn func(t *Task, args SyscallArguments) (uintptr, error)

// Syscall includes the syscall implementation and its name.
type Syscall struct {
	// Name is the syscall name.
	Name string

	// Fn is the implementation of the syscall.
	Fn SyscallFn
}

// SyscallTable is a lookup table of system calls.
type SyscallTable struct {
	// Table is the collection of functions.
	Table map[uintptr]Syscall

	// lookup is a fixed-size array that holds the syscalls (indexed by
	// their numbers). It is used for fast look ups.
	lookup []SyscallFn

	// Stracer traces this syscall table, if not nil.
	Stracer Stracer
}

// Stracer traces syscall execution.
type Stracer interface {
	// SyscallEnter is called on syscall entry, before arguments are
	// checked. The return value is passed to SyscallExit.
	SyscallEnter(t *Task, sysno uintptr, args SyscallArguments) any

	// SyscallExit is called on syscall exit, before the result is stored
	// in eax.
	SyscallExit(info any, t *Task, sysno, rval uintptr, err error)
}

// Init initializes the syscall table. It is called by Kernel.Init and may be
// called again.
func (s *SyscallTable) Init() {
	max := uintptr(0)
	for num := range s.Table {
		if num > max {
			max = num
		}
	}
	if max > maxSyscallNum {
		panic(fmt.Sprintf("syscall %d exceeds the maximum of %d", max, maxSyscallNum))
	}
	s.lookup = make([]SyscallFn, max+1)
	for num, sc := range s.Table {
		s.lookup[num] = sc.Fn
	}
}

// Lookup returns the syscall implementation, if one exists.
func (s *SyscallTable) Lookup(sysno uintptr) SyscallFn {
	if sysno < uintptr(len(s.lookup)) {
		return s.lookup[sysno]
	}
	return nil
}

// Name returns the name of sysno, or "unknown".
func (s *SyscallTable) Name(sysno uintptr) string {
	if sc, ok := s.Table[sysno]; ok {
		return sc.Name
	}
	return "unknown"
}

// errorReturn is the syscall return value of a failed call: -1.
const errorReturn = ^uintptr(0)

// notPresentReturn is the syscall return value for ErrNotPresent.
const notPresentReturn = 1

// ErrExited is returned by a syscall implementation after which the calling
// task is a zombie. Its parent may reap it at any time, so nothing is
// written back to the task.
var ErrExited = errors.New("task exited")

// Syscall handles the syscall t trapped with: it dispatches on eax and stores
// the result back in eax. Errors are returned to user code as -1, except
// ErrNotPresent, which becomes 1.
//
// Syscall returns true if t exited. t must not be used again in that case.
func (t *Task) Syscall() (exited bool) {
	sysno := t.regs.SyscallNo()
	st := t.k.syscalls
	args := SyscallArguments{t: t}

	var (
		rval  uintptr
		err   error
		trace any
	)
	if st.Stracer != nil {
		trace = st.Stracer.SyscallEnter(t, sysno, args)
	}
	if fn := st.Lookup(sysno); fn != nil {
		rval, err = fn(t, args)
	} else {
		t.Warningf("%s: unknown sys call %d at eip %#x", t.Name(), sysno, t.regs.IP())
		err = linuxerr.ENOSYS
	}
	if errors.Is(err, ErrExited) {
		return true
	}
	if st.Stracer != nil {
		st.Stracer.SyscallExit(trace, t, sysno, rval, err)
	}

	if log.IsLogging(log.Debug) {
		t.Debugf("%s = %#x, err %v", st.Name(sysno), rval, err)
	}
	if errors.Is(err, linuxerr.EINVAL) {
		t.k.badArgs.Warningf("[%4d] %s: invalid argument", t.PID(), st.Name(sysno))
	}
	t.regs.SetReturn(syscallReturn(rval, err))
	return false
}

func syscallReturn(rval uintptr, err error) uintptr {
	switch {
	case err == nil:
		return rval
	case errors.Is(err, ErrNotPresent):
		return notPresentReturn
	default:
		return errorReturn
	}
}

// fakeReturnAddr is the return address Invoke pushes for the syscall stub.
const fakeReturnAddr = 0

// Invoke makes the syscall sysno on behalf of t as the user-side stub would:
// it pushes args right to left and a return address onto t's user stack,
// places sysno in eax and traps. It returns the value left in eax once the
// stack has been popped again.
//
// Invoke may only be called by the goroutine running t. It returns an error
// only if the arguments could not be pushed. If t exits, Invoke returns 0 and
// t must not be used again.
func (k *Kernel) Invoke(t *Task, sysno uintptr, args ...uint32) (uintptr, error) {
	pt := k.tasks
	pt.mu.Lock()
	if t.state == uapi.RUNNABLE {
		t.state = uapi.RUNNING
	}
	pt.mu.Unlock()
	exited := false
	defer func() {
		if exited {
			return
		}
		pt.mu.Lock()
		if t.state == uapi.RUNNING {
			t.state = uapi.RUNNABLE
		}
		pt.mu.Unlock()
	}()

	sp := t.regs.Stack()
	s := arch.Stack{IO: t.mm, Bottom: hostarch.Addr(sp)}
	for i := len(args) - 1; i >= 0; i-- {
		if err := s.Push(args[i]); err != nil {
			return errorReturn, fmt.Errorf("pushing syscall argument %d: %w", i, err)
		}
	}
	if err := s.Push(fakeReturnAddr); err != nil {
		return errorReturn, fmt.Errorf("pushing return address: %w", err)
	}

	t.regs.SetStack(uintptr(s.Bottom))
	t.regs.SetReturn(sysno)
	if exited = t.Syscall(); exited {
		return 0, nil
	}
	t.regs.SetStack(sp)
	return t.regs.Return(), nil
}
