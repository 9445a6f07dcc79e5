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

package strace

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"ukern.dev/ukern/pkg/abi/uapi"
	"ukern.dev/ukern/pkg/hostarch"
	"ukern.dev/ukern/pkg/log"
	"ukern.dev/ukern/pkg/sentry/kernel"
	"ukern.dev/ukern/pkg/sentry/syscalls/sysproc"
)

type lineEmitter struct {
	mu    sync.Mutex
	lines []string
}

func (e *lineEmitter) Emit(_ int, _ log.Level, _ time.Time, format string, v ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lines = append(e.lines, fmt.Sprintf(format, v...))
}

func (e *lineEmitter) find(substr string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, line := range e.lines {
		if strings.Contains(line, substr) {
			return line, true
		}
	}
	return "", false
}

// traceKernel returns a kernel with a traced syscall table whose trace
// output is captured.
func traceKernel(t *testing.T) (*kernel.Kernel, *lineEmitter) {
	t.Helper()
	e := &lineEmitter{}
	old := log.Log()
	log.SetTarget(e)
	t.Cleanup(func() { log.SetTarget(old.Emitter) })

	table := sysproc.NewTable()
	Enable(table)
	k := &kernel.Kernel{}
	if err := k.Init(kernel.InitKernelArgs{
		MaxTasks:          4,
		MaxFiles:          16,
		InitMemory:        4 * hostarch.PageSize,
		MaxMemory:         8 * hostarch.PageSize,
		MaxBacktraceDepth: 16,
		SyscallTable:      table,
	}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return k, e
}

func TestFormatWord(t *testing.T) {
	for _, tc := range []struct {
		f    FormatSpecifier
		w    uint32
		want string
	}{
		{Hex, 0x1234, "0x1234"},
		{Int, 0xffffffff, "-1"},
		{PID, 3, "3"},
		{Ticks, 10, "10 ticks"},
		{Pointer, 0x1000, "0x1000"},
	} {
		if got := formatWord(tc.f, tc.w); got != tc.want {
			t.Errorf("formatWord(%d, %#x) = %q, want %q", tc.f, tc.w, got, tc.want)
		}
	}
}

func TestTraceThreadCreate(t *testing.T) {
	k, e := traceKernel(t)
	init := k.InitTask()
	if _, err := k.Invoke(init, uapi.SYS_THREAD_CREATE, 0x100, 0x1234, hostarch.PageSize); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if line, ok := e.find("E thread_create(0x100, 0x1234, 0x1000)"); !ok {
		t.Errorf("no entry trace for thread_create: %q", e.lines)
	} else if !strings.HasPrefix(line, "[   1] initcode") {
		t.Errorf("entry trace %q does not name the task", line)
	}
	if _, ok := e.find("X thread_create(0x100, 0x1234, 0x1000) = 0x2 ("); !ok {
		t.Errorf("no exit trace for thread_create: %q", e.lines)
	}
}

func TestTraceGetProcInfo(t *testing.T) {
	k, e := traceKernel(t)
	init := k.InitTask()
	if _, err := k.Invoke(init, uapi.SYS_GETPROCINFO, 0, 0x200); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	want := `X getprocinfo(0, 0x200 {pid=1, ppid=0, name="initcode", state=run, size=16384, blocked=0, killed=0}) = 0x0`
	if _, ok := e.find(want); !ok {
		t.Errorf("no exit trace %q in %q", want, e.lines)
	}

	if _, err := k.Invoke(init, uapi.SYS_GETPROCINFO, 1, 0x200); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if _, ok := e.find("X getprocinfo(1, 0x200) = 0x0 (process table slot is unused)"); !ok {
		t.Errorf("no exit trace for an unused slot in %q", e.lines)
	}
}

func TestTraceUnknown(t *testing.T) {
	k, e := traceKernel(t)
	if _, err := k.Invoke(k.InitTask(), 99, 7); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if _, ok := e.find("E sys_99(0x7, "); !ok {
		t.Errorf("no entry trace for an unknown syscall in %q", e.lines)
	}
}

func TestDisable(t *testing.T) {
	table := sysproc.NewTable()
	Enable(table)
	Disable(table)
	if table.Stracer != nil {
		t.Errorf("Stracer = %v after Disable, want nil", table.Stracer)
	}
}

func TestProcInfoAddress(t *testing.T) {
	k, _ := traceKernel(t)
	init := k.InitTask()
	if got := procInfo(init, 0x200); !strings.HasPrefix(got, "0x200 {pid=1, ") {
		t.Errorf("procInfo(0x200) = %q, want it to start with %q", got, "0x200 {pid=1, ")
	}
	end := hostarch.Addr(init.MemoryManager().Size())
	want := fmt.Sprintf("%#x {error reading procinfo: ", uint32(end))
	if got := procInfo(init, end); !strings.HasPrefix(got, want) {
		t.Errorf("procInfo(%#x) = %q, want it to start with %q", uint32(end), got, want)
	}
}
