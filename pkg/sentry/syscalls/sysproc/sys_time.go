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

// Sleep implements sleep. It blocks for the given number of ticks, and fails
// if the task is killed first.
func Sleep(t *kernel.Task, args kernel.SyscallArguments) (uintptr, error) {
	n, err := args.Int(0)
	if err != nil {
		return 0, err
	}
	return 0, t.Kernel().SleepTicks(t, n)
}

// Uptime implements uptime. It returns the number of ticks since boot.
func Uptime(t *kernel.Task, args kernel.SyscallArguments) (uintptr, error) {
	return uintptr(t.Kernel().Uptime()), nil
}
