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

// Package uapi contains the constants and types of the user/kernel ABI.
//
// Every type here has a fixed little-endian layout. Types that are copied to
// user memory implement marshal.Marshallable by hand.
package uapi

// Syscall numbers. A user program places the number in eax before trapping.
const (
	SYS_FORK          = 1
	SYS_EXIT          = 2
	SYS_WAIT          = 3
	SYS_KILL          = 6
	SYS_GETPID        = 11
	SYS_SBRK          = 12
	SYS_SLEEP         = 13
	SYS_UPTIME        = 14
	SYS_BACKTRACE     = 22
	SYS_GETPROCINFO   = 23
	SYS_THREAD_CREATE = 24
)
