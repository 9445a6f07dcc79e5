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

package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"ukern.dev/ukern/ksim/boot"
	"ukern.dev/ukern/ksim/config"
	"ukern.dev/ukern/pkg/hostarch"
	"ukern.dev/ukern/pkg/log"
)

// threadEntry is where the thread program is placed in user memory.
const threadEntry = 0x100

// procInfoBuf is the user buffer init hands to getprocinfo.
const procInfoBuf = 0x200

// Run implements subcommands.Command for the "run" command.
type Run struct {
	threads int
	ticks   int
	nested  int
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "boot a kernel and run threads that sleep and print backtraces"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return `run [flags]

Boots a kernel whose init creates threads with thread_create. Each thread
sleeps for its argument in ticks, makes nested calls and prints a backtrace
to stdout. init then waits for the threads and prints the process table.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.IntVar(&r.threads, "threads", 2, "number of threads to create.")
	f.IntVar(&r.ticks, "ticks", 5, "ticks the first thread sleeps; each later thread sleeps that much longer.")
	f.IntVar(&r.nested, "nested", 1, "number of nested calls each thread makes before its backtrace.")
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 || r.threads < 0 || r.ticks < 0 || r.nested < 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	setup := func(l *boot.Loader) error {
		return l.Register(threadEntry, r.thread)
	}
	if err := bootAndRun(ctx, conf, os.Stdout, setup, r.init); err != nil {
		Fatalf("run failed: %v", err)
	}
	return subcommands.ExitSuccess
}

func (r *Run) init(p *boot.Proc) error {
	start := p.Uptime()
	for i := 0; i < r.threads; i++ {
		stack := p.Sbrk(hostarch.PageSize)
		if stack < 0 {
			return errors.New("sbrk failed")
		}
		ticks := uint32(r.ticks * (i + 1))
		pid := p.ThreadCreate(threadEntry, ticks, uint32(stack))
		if pid < 0 {
			return fmt.Errorf("thread_create of thread %d failed", i)
		}
		log.Infof("Created thread %d sleeping %d ticks", pid, ticks)
	}

	if err := printProcTable(os.Stdout, p, procInfoBuf); err != nil {
		return err
	}
	for i := 0; i < r.threads; i++ {
		if pid := p.Wait(); pid < 0 {
			return errors.New("wait failed")
		}
	}
	fmt.Printf("all threads done after %d ticks\n", p.Uptime()-start)
	return nil
}

func (r *Run) thread(p *boot.Proc) error {
	ticks, err := p.Arg()
	if err != nil {
		return err
	}
	if rval := p.Sleep(int32(ticks)); rval != 0 {
		return fmt.Errorf("sleep(%d) = %d", ticks, rval)
	}
	return r.call(p, r.nested)
}

// call makes depth nested calls, then prints a backtrace.
func (r *Run) call(p *boot.Proc, depth int) error {
	if depth == 0 {
		if rval := p.Backtrace(); rval != 0 {
			return fmt.Errorf("backtrace = %d", rval)
		}
		return nil
	}
	// The return addresses are made up; they only need to differ per level.
	return p.Call(uint32(threadEntry+0x10*depth), func() error {
		return r.call(p, depth-1)
	})
}
