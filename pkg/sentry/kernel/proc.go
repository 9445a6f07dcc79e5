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

package kernel

import (
	"ukern.dev/ukern/pkg/abi/uapi"
	"ukern.dev/ukern/pkg/errors/linuxerr"
)

// Fork creates a new process that is a copy of t, with its own copy of t's
// address space, and returns its pid. In the child the syscall returns 0.
func (k *Kernel) Fork(t *Task) (int32, error) {
	child, err := k.tasks.alloc()
	if err != nil {
		return 0, err
	}

	m := t.mm.Fork()
	child.regs = t.regs.Fork()
	child.files, child.cwd = t.dupFiles()

	pt := k.tasks
	pt.mu.Lock()
	child.mm = m
	child.parent = t
	child.name = t.name
	child.state = uapi.RUNNABLE
	pt.mu.Unlock()

	t.Debugf("fork: created %v", child)
	return child.PID(), nil
}

// Exit terminates t. t stays in the table as a zombie until its parent reaps
// it with Wait; its children are given to the init task. The init task may
// not exit.
func (k *Kernel) Exit(t *Task) error {
	if t == k.init {
		return linuxerr.EPERM
	}
	t.closeFiles()

	pt := k.tasks
	pt.mu.Lock()
	defer pt.mu.Unlock()

	// The parent might be sleeping in Wait.
	k.wakeupLocked(t.parent)

	pt.liveLocked(func(c *Task) bool {
		if c.parent == t {
			c.parent = k.init
			if c.state == uapi.ZOMBIE {
				k.wakeupLocked(k.init)
			}
		}
		return true
	})

	t.state = uapi.ZOMBIE
	return nil
}

// Wait waits for a child of t to exit, reaps it and returns its pid. It
// returns ECHILD if t has no children and EINTR if t is killed while waiting.
func (k *Kernel) Wait(t *Task) (int32, error) {
	pt := k.tasks
	pt.mu.Lock()
	defer pt.mu.Unlock()
	for {
		haveKids := false
		var zombie *Task
		pt.liveLocked(func(c *Task) bool {
			if c.parent != t {
				return true
			}
			haveKids = true
			if c.state == uapi.ZOMBIE {
				zombie = c
				return false
			}
			return true
		})
		if zombie != nil {
			pid := zombie.PID()
			zombie.mm.DecRef()
			pt.freeLocked(zombie)
			return pid, nil
		}
		if !haveKids {
			return 0, linuxerr.ECHILD
		}
		if t.Killed() {
			return 0, linuxerr.EINTR
		}
		// Exit wakes the parent using the parent itself as the channel.
		k.Sleep(t, t, &pt.mu)
	}
}

// GrowProc grows t's address space by n bytes, or shrinks it if n is
// negative, and returns the previous size. Threads share the change.
func (k *Kernel) GrowProc(t *Task, n int32) (uint32, error) {
	old, err := t.mm.Grow(int64(n))
	if err != nil {
		t.Debugf("sbrk(%d): size %d, limit %d: %v", n, t.mm.Size(), t.mm.MaxSize(), err)
		return 0, linuxerr.ENOMEM
	}
	return uint32(old), nil
}
