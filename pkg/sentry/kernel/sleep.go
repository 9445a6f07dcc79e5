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
	"sync"

	"ukern.dev/ukern/pkg/abi/uapi"
	"ukern.dev/ukern/pkg/errors/linuxerr"
)

// Sleep atomically releases lk and suspends t until a Wakeup on ch, then
// reacquires lk before returning. ch must be comparable; tasks use pointers
// to the object they wait on.
//
// lk may be the process table lock itself, which is then held on entry and on
// return.
//
// Sleep does not check t.Killed(). Callers loop on their condition and check
// it themselves.
func (k *Kernel) Sleep(t *Task, ch any, lk sync.Locker) {
	pt := k.tasks
	held := lk == sync.Locker(&pt.mu)
	if !held {
		// Once the table lock is held no Wakeup can run, so lk may be
		// released without missing one.
		pt.mu.Lock()
		lk.Unlock()
	}

	t.sleepCh = ch
	t.state = uapi.SLEEPING
	for t.state == uapi.SLEEPING {
		pt.cond.Wait()
	}
	t.sleepCh = nil
	t.state = uapi.RUNNING

	if !held {
		pt.mu.Unlock()
		lk.Lock()
	}
}

// Wakeup makes every task sleeping on ch runnable.
func (k *Kernel) Wakeup(ch any) {
	k.tasks.mu.Lock()
	defer k.tasks.mu.Unlock()
	k.wakeupLocked(ch)
}

// Preconditions: k.tasks.mu must be locked for writing.
func (k *Kernel) wakeupLocked(ch any) {
	woke := false
	k.tasks.liveLocked(func(t *Task) bool {
		if t.state == uapi.SLEEPING && t.sleepCh == ch {
			t.state = uapi.RUNNABLE
			woke = true
		}
		return true
	})
	if woke {
		k.tasks.cond.Broadcast()
	}
}

// Kill marks the task with the given pid as killed and wakes it if it is
// sleeping. The task notices at its next suspension point or return to user
// mode. Kill returns ESRCH if no task has that pid.
func (k *Kernel) Kill(pid int32) error {
	pt := k.tasks
	pt.mu.Lock()
	defer pt.mu.Unlock()
	t := pt.lookupLocked(pid)
	if t == nil {
		return linuxerr.ESRCH
	}
	t.killed.Store(true)
	if t.state == uapi.SLEEPING {
		t.state = uapi.RUNNABLE
		pt.cond.Broadcast()
	}
	return nil
}
