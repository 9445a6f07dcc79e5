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

import "ukern.dev/ukern/pkg/abi/uapi"

// procSyscalls is the set of process syscalls.
var procSyscalls = SyscallMap{
	uapi.SYS_FORK:          makeSyscallInfo("fork"),
	uapi.SYS_EXIT:          makeSyscallInfo("exit"),
	uapi.SYS_WAIT:          makeSyscallInfo("wait"),
	uapi.SYS_KILL:          makeSyscallInfo("kill", PID),
	uapi.SYS_GETPID:        makeSyscallInfo("getpid"),
	uapi.SYS_SBRK:          makeSyscallInfo("sbrk", Int),
	uapi.SYS_SLEEP:         makeSyscallInfo("sleep", Ticks),
	uapi.SYS_UPTIME:        makeSyscallInfo("uptime"),
	uapi.SYS_BACKTRACE:     makeSyscallInfo("backtrace"),
	uapi.SYS_GETPROCINFO:   makeSyscallInfo("getprocinfo", Int, PostProcInfo),
	uapi.SYS_THREAD_CREATE: makeSyscallInfo("thread_create", Pointer, Hex, Pointer),
}
