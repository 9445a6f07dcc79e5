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

package sysproc

import (
	"ukern.dev/ukern/pkg/sentry/kernel"
)

// Fork implements fork.
func Fork(t *kernel.Task, args kernel.SyscallArguments) (uintptr, error) {
	pid, err := t.Kernel().Fork(t)
	return uintptr(pid), err
}

// Exit implements exit. It does not return to user code on success.
func Exit(t *kernel.Task, args kernel.SyscallArguments) (uintptr, error) {
	if err := t.Kernel().Exit(t); err != nil {
		return 0, err
	}
	return 0, kernel.ErrExited
}

// Wait implements wait.
func Wait(t *kernel.Task, args kernel.SyscallArguments) (uintptr, error) {
	pid, err := t.Kernel().Wait(t)
	return uintptr(pid), err
}

// Kill implements kill.
func Kill(t *kernel.Task, args kernel.SyscallArguments) (uintptr, error) {
	pid, err := args.Int(0)
	if err != nil {
		return 0, err
	}
	return 0, t.Kernel().Kill(pid)
}

// Getpid implements getpid.
func Getpid(t *kernel.Task, args kernel.SyscallArguments) (uintptr, error) {
	return uintptr(t.PID()), nil
}

// Sbrk implements sbrk. It returns the old end of the address space.
func Sbrk(t *kernel.Task, args kernel.SyscallArguments) (uintptr, error) {
	n, err := args.Int(0)
	if err != nil {
		return 0, err
	}
	old, err := t.Kernel().GrowProc(t, n)
	return uintptr(old), err
}
