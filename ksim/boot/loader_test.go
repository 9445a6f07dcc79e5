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
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"ukern.dev/ukern/ksim/config"
	"ukern.dev/ukern/pkg/abi/uapi"
	"ukern.dev/ukern/pkg/hostarch"
)

const (
	threadEntry = 0x100
	infoBuf     = 0x200
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig() *config.Config {
	c := config.Default()
	c.NumProcs = 8
	c.TickInterval = config.Duration(time.Millisecond)
	return c
}

func newLoader(t *testing.T) (*Loader, *syncBuffer) {
	t.Helper()
	console := &syncBuffer{}
	l, err := New(testConfig(), console)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return l, console
}

func run(t *testing.T, l *Loader, init Program) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := l.Run(ctx, init); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestNew(t *testing.T) {
	conf := testConfig()
	l, err := New(conf, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	conf.NumProcs = 1
	if got := l.Config().NumProcs; got != 8 {
		t.Errorf("loader config changed with the caller's: NumProcs = %d, want 8", got)
	}
	if got := l.Kernel().MaxTasks(); got != 8 {
		t.Errorf("MaxTasks() = %d, want 8", got)
	}

	conf.NumFiles = 0
	if _, err := New(conf, nil); err == nil {
		t.Errorf("New with an invalid config succeeded")
	}
}

func TestRegister(t *testing.T) {
	l, _ := newLoader(t)
	nop := func(*Proc) error { return nil }
	if err := l.Register(threadEntry, nop); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := l.Register(threadEntry, nop); err == nil {
		t.Errorf("Register at a used entry succeeded")
	}
	if err := l.Register(uint32(l.Config().InitMemory), nop); err == nil {
		t.Errorf("Register past the end of the address space succeeded")
	}
}

func TestRunThreads(t *testing.T) {
	l, console := newLoader(t)
	var (
		mu   sync.Mutex
		args []uint32
	)
	if err := l.Register(threadEntry, func(p *Proc) error {
		arg, err := p.Arg()
		if err != nil {
			return err
		}
		mu.Lock()
		args = append(args, arg)
		mu.Unlock()
		if rval := p.Sleep(int32(arg)); rval != 0 {
			return errors.New("sleep failed")
		}
		if rval := p.Backtrace(); rval != 0 {
			return errors.New("backtrace failed")
		}
		return nil
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	const threads = 3
	run(t, l, func(p *Proc) error {
		for i := 0; i < threads; i++ {
			stack := p.Sbrk(hostarch.PageSize)
			if stack < 0 {
				return errors.New("sbrk failed")
			}
			if pid := p.ThreadCreate(threadEntry, uint32(i+1), uint32(stack)); pid <= 0 {
				return errors.New("thread_create failed")
			}
		}
		for i := 0; i < threads; i++ {
			if pid := p.Wait(); pid <= 0 {
				return errors.New("wait failed")
			}
		}
		return nil
	})

	if len(args) != threads {
		t.Errorf("threads saw args %v, want %d of them", args, threads)
	}
	if got := strings.Count(console.String(), "0#  0xffffffff\n"); got != threads {
		t.Errorf("console shows %d terminal frames, want %d:\n%s", got, threads, console.String())
	}
	if got := strings.Count(console.String(), "1#"); got != 0 {
		t.Errorf("thread backtraces show more than one frame:\n%s", console.String())
	}
}

func TestRunInitBacktrace(t *testing.T) {
	l, console := newLoader(t)
	run(t, l, func(p *Proc) error {
		if arg, err := p.Arg(); err != nil || arg != 0 {
			return fmt.Errorf("init arg = (%#x, %v), want 0", arg, err)
		}
		if rval := p.Backtrace(); rval != 0 {
			return errors.New("backtrace failed")
		}
		// A forked child starts on a copy of the same frame.
		if pid := p.Fork(func(c *Proc) error {
			if rval := c.Backtrace(); rval != 0 {
				return errors.New("child backtrace failed")
			}
			return nil
		}); pid <= 0 {
			return errors.New("fork failed")
		}
		if pid := p.Wait(); pid <= 0 {
			return errors.New("wait failed")
		}
		return nil
	})

	var frames []string
	for _, line := range strings.Split(console.String(), "\n") {
		if strings.Contains(line, "#  ") {
			frames = append(frames, line)
		}
	}
	if diff := cmp.Diff([]string{"0#  0xffffffff", "0#  0xffffffff"}, frames); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
}

func TestRunNestedCall(t *testing.T) {
	l, console := newLoader(t)
	if err := l.Register(threadEntry, func(p *Proc) error {
		return p.Call(0x1234, func() error {
			if rval := p.Backtrace(); rval != 0 {
				return errors.New("backtrace failed")
			}
			return nil
		})
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	run(t, l, func(p *Proc) error {
		stack := p.Sbrk(hostarch.PageSize)
		if pid := p.ThreadCreate(threadEntry, 0, uint32(stack)); pid <= 0 {
			return errors.New("thread_create failed")
		}
		p.Wait()
		return nil
	})

	var frames []string
	for _, line := range strings.Split(console.String(), "\n") {
		if strings.Contains(line, "#  ") {
			frames = append(frames, line)
		}
	}
	if diff := cmp.Diff([]string{"0#  0x1234", "1#  0xffffffff"}, frames); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
}

func TestRunUnknownEntry(t *testing.T) {
	l, _ := newLoader(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := l.Run(ctx, func(p *Proc) error {
		stack := p.Sbrk(hostarch.PageSize)
		if pid := p.ThreadCreate(threadEntry, 0, uint32(stack)); pid <= 0 {
			return errors.New("thread_create failed")
		}
		p.Wait()
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "no program at entry") {
		t.Errorf("Run = %v, want an error about the missing program", err)
	}
}

func TestProcTable(t *testing.T) {
	l, _ := newLoader(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var infos []uapi.ProcInfo
	run(t, l, func(p *Proc) error {
		var pids []int32
		for i := 0; i < 2; i++ {
			pid := p.Fork(func(c *Proc) error {
				c.Sleep(1 << 30)
				return nil
			})
			if pid <= 0 {
				return errors.New("fork failed")
			}
			pids = append(pids, pid)
		}
		for _, pid := range pids {
			if err := l.WaitForState(ctx, pid, uapi.SLEEPING); err != nil {
				return err
			}
		}

		var err error
		if infos, err = p.ProcTable(infoBuf); err != nil {
			return err
		}

		for _, pid := range pids {
			p.Kill(pid)
		}
		for range pids {
			p.Wait()
		}
		return nil
	})

	type row struct {
		PID, ParentPID int32
		State          uapi.ProcState
		IsBlocked      int32
	}
	var got []row
	for _, info := range infos {
		got = append(got, row{info.PID, info.ParentPID, info.State, info.IsBlocked})
	}
	want := []row{
		{1, 0, uapi.RUNNING, 0},
		{2, 1, uapi.SLEEPING, 1},
		{3, 1, uapi.SLEEPING, 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("process table mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCanceled(t *testing.T) {
	l, _ := newLoader(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sleepRval int32
	done := make(chan error, 1)
	go func() {
		done <- l.Run(ctx, func(p *Proc) error {
			pid := p.Fork(func(c *Proc) error {
				sleepRval = c.Sleep(1 << 30)
				return nil
			})
			if err := l.WaitForState(context.Background(), pid, uapi.SLEEPING); err != nil {
				return err
			}
			cancel()
			p.Wait()
			return nil
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	case <-time.After(30 * time.Second):
		t.Fatalf("Run did not return after cancellation")
	}
	if sleepRval != -1 {
		t.Errorf("sleep of a killed task = %d, want -1", sleepRval)
	}
}

func TestWaitForStateUnknownPID(t *testing.T) {
	l, _ := newLoader(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := l.WaitForState(ctx, 1000, uapi.SLEEPING); err == nil {
		t.Errorf("WaitForState of an unknown pid succeeded")
	}
}
