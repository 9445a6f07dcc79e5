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

// Package boot loads a kernel from a configuration and runs user programs on
// it. Each task runs on its own goroutine and enters the kernel only through
// syscalls, the way user code would.
package boot

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/mohae/deepcopy"
	"golang.org/x/sync/errgroup"
	"ukern.dev/ukern/ksim/config"
	"ukern.dev/ukern/pkg/abi/uapi"
	"ukern.dev/ukern/pkg/hostarch"
	"ukern.dev/ukern/pkg/log"
	"ukern.dev/ukern/pkg/sentry/kernel"
	"ukern.dev/ukern/pkg/sentry/strace"
	"ukern.dev/ukern/pkg/sentry/syscalls/sysproc"
)

// Program is user code run by a task. A task other than init exits when its
// program returns.
type Program func(p *Proc) error

// Loader keeps state needed to start the kernel and run user programs.
type Loader struct {
	// conf is a private copy of the configuration the kernel was built with.
	conf *config.Config

	k *kernel.Kernel

	// mu protects programs.
	mu sync.Mutex

	// programs maps entry addresses passed to thread_create to the code
	// found there.
	programs map[uint32]Program

	// tasks runs one goroutine per live user task.
	tasks errgroup.Group
}

// New initializes a kernel from conf. Console output goes to console.
func New(conf *config.Config, console io.Writer) (*Loader, error) {
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	// Later changes to conf don't reach the running kernel.
	c := deepcopy.Copy(conf).(*config.Config)

	table := sysproc.NewTable()
	if c.Strace {
		strace.Enable(table)
	}
	k := &kernel.Kernel{}
	if err := k.Init(kernel.InitKernelArgs{
		MaxTasks:          c.NumProcs,
		MaxFiles:          c.NumFiles,
		InitMemory:        uint64(c.InitMemory),
		MaxMemory:         uint64(c.MaxMemory),
		MaxBacktraceDepth: c.MaxBacktraceDepth,
		Console:           console,
		SyscallTable:      table,
	}); err != nil {
		return nil, fmt.Errorf("initializing kernel: %w", err)
	}
	return &Loader{
		conf:     c,
		k:        k,
		programs: make(map[uint32]Program),
	}, nil
}

// Kernel returns the loaded kernel.
func (l *Loader) Kernel() *kernel.Kernel {
	return l.k
}

// Config returns the configuration the kernel was loaded with.
func (l *Loader) Config() *config.Config {
	return l.conf
}

// Register places prog at entry, so that threads created with entry as their
// start address run it.
func (l *Loader) Register(entry uint32, prog Program) error {
	if _, err := l.k.InitTask().MemoryManager().CheckPointer(hostarch.Addr(entry), 1); err != nil {
		return fmt.Errorf("entry %#x is outside the user address space: %w", entry, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.programs[entry]; ok {
		return fmt.Errorf("a program is already registered at %#x", entry)
	}
	l.programs[entry] = prog
	return nil
}

func (l *Loader) program(entry uint32) (Program, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	prog, ok := l.programs[entry]
	return prog, ok
}

// Run runs init as the program of the first task, and drives the timer
// interrupt until every task started from it has returned. If ctx is
// canceled first, all tasks are killed; blocked ones return EINTR.
//
// Run returns the first error returned by a program.
func (l *Loader) Run(ctx context.Context, init Program) error {
	done := make(chan struct{})
	var timer errgroup.Group
	timer.Go(func() error {
		l.tick(ctx, done)
		return nil
	})

	l.start(l.k.InitTask(), init, false)
	err := l.tasks.Wait()
	close(done)
	_ = timer.Wait()
	return err
}

// tick runs the timer interrupt until done is closed.
func (l *Loader) tick(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(time.Duration(l.conf.TickInterval))
	defer ticker.Stop()
	canceled := ctx.Done()
	for {
		select {
		case <-done:
			return
		case <-canceled:
			log.Infof("Run canceled, killing all tasks: %v", ctx.Err())
			for _, pid := range l.k.Pids() {
				if err := l.k.Kill(pid); err != nil {
					log.Debugf("Kill(%d): %v", pid, err)
				}
			}
			// Keep ticking so killed tasks can finish their syscalls.
			canceled = nil
		case <-ticker.C:
			l.k.Tick()
		}
	}
}

// start runs prog for t on a new goroutine. If exit is true, t exits when
// prog returns.
func (l *Loader) start(t *kernel.Task, prog Program, exit bool) {
	pid := t.PID()
	l.tasks.Go(func() error {
		p := &Proc{l: l, t: t}
		err := prog(p)
		if exit && !p.exited {
			if rval := p.Syscall(uapi.SYS_EXIT); rval != 0 {
				log.Warningf("task %d: exit returned %d", pid, rval)
			}
		}
		if err != nil {
			return fmt.Errorf("task %d: %w", pid, err)
		}
		return nil
	})
}

// WaitForState waits until the task with the given pid is in state want, or
// ctx is done.
func (l *Loader) WaitForState(ctx context.Context, pid int32, want uapi.ProcState) error {
	op := func() error {
		t := l.k.TaskByPID(pid)
		if t == nil {
			return backoff.Permanent(fmt.Errorf("no task with pid %d", pid))
		}
		if got := t.State(); got != want {
			return fmt.Errorf("task %d is %v, want %v", pid, got, want)
		}
		return nil
	}
	b := backoff.WithContext(backoff.NewConstantBackOff(time.Millisecond), ctx)
	return backoff.Retry(op, b)
}
