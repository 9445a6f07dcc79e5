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

// Package sysproc provides the syscall table of the process-management
// syscalls.
package sysproc

import (
	"ukern.dev/ukern/pkg/abi/uapi"
	"ukern.dev/ukern/pkg/sentry/kernel"
	"ukern.dev/ukern/pkg/sentry/syscalls"
)

// NewTable returns a new syscall table. Numbers are part of the user ABI and
// defined in package uapi.
//
// Each call returns a fresh table, since a kernel initializes the table it is
// given.
func NewTable() *kernel.SyscallTable {
	return &kernel.SyscallTable{
		Table: map[uintptr]kernel.Syscall{
			uapi.SYS_FORK:          syscalls.Supported("fork", Fork),
			uapi.SYS_EXIT:          syscalls.Supported("exit", Exit),
			uapi.SYS_WAIT:          syscalls.Supported("wait", Wait),
			uapi.SYS_KILL:          syscalls.Supported("kill", Kill),
			uapi.SYS_GETPID:        syscalls.Supported("getpid", Getpid),
			uapi.SYS_SBRK:          syscalls.Supported("sbrk", Sbrk),
			uapi.SYS_SLEEP:         syscalls.Supported("sleep", Sleep),
			uapi.SYS_UPTIME:        syscalls.Supported("uptime", Uptime),
			uapi.SYS_BACKTRACE:     syscalls.Supported("backtrace", Backtrace),
			uapi.SYS_GETPROCINFO:   syscalls.Supported("getprocinfo", GetProcInfo),
			uapi.SYS_THREAD_CREATE: syscalls.Supported("thread_create", ThreadCreate),
		},
	}
}
