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

// Package strace implements the logic to print out the input and the return
// value of each traced syscall.
package strace

import (
	"fmt"
	"strings"
	"time"

	"ukern.dev/ukern/pkg/abi/uapi"
	"ukern.dev/ukern/pkg/hostarch"
	"ukern.dev/ukern/pkg/sentry/kernel"
)

// syscallEvent is the state carried from SyscallEnter to SyscallExit.
type syscallEvent struct {
	info  SyscallInfo
	args  kernel.SyscallArguments
	start time.Time
}

// Enable turns on tracing of every syscall in table.
func Enable(table *kernel.SyscallTable) {
	table.Stracer = Lookup()
}

// Disable turns off tracing of table.
func Disable(table *kernel.SyscallTable) {
	table.Stracer = nil
}

func (s SyscallMap) info(sysno uintptr) SyscallInfo {
	if info, ok := s[sysno]; ok {
		return info
	}
	return SyscallInfo{
		name:   fmt.Sprintf("sys_%d", sysno),
		format: defaultFormat,
	}
}

// SyscallEnter implements kernel.Stracer.SyscallEnter. It logs the syscall
// entry trace.
func (s SyscallMap) SyscallEnter(t *kernel.Task, sysno uintptr, args kernel.SyscallArguments) any {
	info := s.info(sysno)
	t.Infof("%s E %s(%s)", t.Name(), info.name, strings.Join(info.pre(args), ", "))
	return &syscallEvent{
		info:  info,
		args:  args,
		start: time.Now(),
	}
}

// SyscallExit implements kernel.Stracer.SyscallExit. It logs the syscall
// exit trace.
func (s SyscallMap) SyscallExit(v any, t *kernel.Task, sysno, rval uintptr, err error) {
	e, ok := v.(*syscallEvent)
	if !ok {
		return
	}
	elapsed := time.Since(e.start)
	output := strings.Join(e.info.post(t, e.args, rval, err), ", ")
	if err != nil {
		t.Infof("%s X %s(%s) = %#x (%v) (%v)", t.Name(), e.info.name, output, rval, err, elapsed)
		return
	}
	t.Infof("%s X %s(%s) = %#x (%v)", t.Name(), e.info.name, output, rval, elapsed)
}

// pre returns the formatted arguments of a syscall on entry.
func (i *SyscallInfo) pre(args kernel.SyscallArguments) []string {
	output := make([]string, 0, len(i.format))
	for arg, f := range i.format {
		w, err := args.Word(arg)
		if err != nil {
			output = append(output, "<bad>")
			continue
		}
		output = append(output, formatWord(f, w))
	}
	return output
}

// post returns the formatted arguments of a syscall on exit. Arguments that
// are only meaningful after execution are filled in.
func (i *SyscallInfo) post(t *kernel.Task, args kernel.SyscallArguments, rval uintptr, err error) []string {
	output := i.pre(args)
	for arg, f := range i.format {
		if f != PostProcInfo || err != nil {
			continue
		}
		w, werr := args.Word(arg)
		if werr != nil {
			continue
		}
		output[arg] = procInfo(t, hostarch.Addr(w))
	}
	return output
}

func formatWord(f FormatSpecifier, w uint32) string {
	switch f {
	case Int, PID:
		return fmt.Sprintf("%d", int32(w))
	case Ticks:
		return fmt.Sprintf("%d ticks", int32(w))
	default:
		return fmt.Sprintf("%#x", w)
	}
}

func procInfo(t *kernel.Task, addr hostarch.Addr) string {
	b := make([]byte, uapi.SizeofProcInfo)
	if _, err := t.MemoryManager().CopyIn(addr, b); err != nil {
		return fmt.Sprintf("%#x {error reading procinfo: %v}", uint32(addr), err)
	}
	var info uapi.ProcInfo
	info.UnmarshalBytes(b)
	return fmt.Sprintf("%#x {pid=%d, ppid=%d, name=%q, state=%v, size=%d, blocked=%d, killed=%d}",
		uint32(addr), info.PID, info.ParentPID, info.NameString(), info.State, info.Size, info.IsBlocked, info.IsKilled)
}
