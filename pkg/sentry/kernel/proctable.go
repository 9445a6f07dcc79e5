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

	"github.com/google/btree"
	"ukern.dev/ukern/pkg/abi/uapi"
	"ukern.dev/ukern/pkg/errors/linuxerr"
)

// pidEntry is an element of ProcessTable.pids.
type pidEntry struct {
	pid  int32
	task *Task
}

func pidLess(a, b pidEntry) bool {
	return a.pid < b.pid
}

// ProcessTable is the fixed-capacity table of all tasks.
type ProcessTable struct {
	// mu protects all fields of every Task in slots except those
	// documented otherwise, and the fields below.
	mu sync.RWMutex

	// cond is signalled whenever a sleeping task is made runnable. cond.L
	// is the write side of mu.
	cond *sync.Cond

	// slots is the process table. Its length is fixed at creation, and
	// unused slots have state UNUSED.
	slots []*Task

	// pids indexes the live tasks by pid.
	pids *btree.BTreeG[pidEntry]

	// nextPID is the pid of the next task to be allocated.
	nextPID int32
}

func newProcessTable(k *Kernel, n int) *ProcessTable {
	pt := &ProcessTable{
		slots:   make([]*Task, n),
		pids:    btree.NewG(2, pidLess),
		nextPID: InitPID,
	}
	for i := range pt.slots {
		pt.slots[i] = &Task{k: k, slot: i}
	}
	pt.cond = sync.NewCond(&pt.mu)
	return pt
}

// alloc claims an unused slot and returns it in the EMBRYO state with a fresh
// pid. It returns EAGAIN if the table is full.
func (pt *ProcessTable) alloc() (*Task, error) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	for _, t := range pt.slots {
		if t.state != uapi.UNUSED {
			continue
		}
		t.state = uapi.EMBRYO
		t.pid.Store(pt.nextPID)
		pt.nextPID++
		pt.pids.ReplaceOrInsert(pidEntry{pid: t.PID(), task: t})
		return t, nil
	}
	return nil, linuxerr.EAGAIN
}

// free returns t's slot to the table.
func (pt *ProcessTable) free(t *Task) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.freeLocked(t)
}

// Preconditions: pt.mu must be locked for writing.
func (pt *ProcessTable) freeLocked(t *Task) {
	pt.pids.Delete(pidEntry{pid: t.PID()})
	t.reset()
}

// lookupLocked returns the live task with the given pid, or nil.
//
// Preconditions: pt.mu must be locked.
func (pt *ProcessTable) lookupLocked(pid int32) *Task {
	e, ok := pt.pids.Get(pidEntry{pid: pid})
	if !ok {
		return nil
	}
	return e.task
}

// liveLocked calls fn for every task that is not UNUSED, in slot order, until
// fn returns false.
//
// Preconditions: pt.mu must be locked.
func (pt *ProcessTable) liveLocked(fn func(t *Task) bool) {
	for _, t := range pt.slots {
		if t.state == uapi.UNUSED {
			continue
		}
		if !fn(t) {
			return
		}
	}
}

// Pids returns the pids of all live tasks in ascending order.
func (k *Kernel) Pids() []int32 {
	pt := k.tasks
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	pids := make([]int32, 0, pt.pids.Len())
	pt.pids.Ascend(func(e pidEntry) bool {
		pids = append(pids, e.pid)
		return true
	})
	return pids
}
