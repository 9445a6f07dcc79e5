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
	"errors"

	"ukern.dev/ukern/pkg/abi/uapi"
	"ukern.dev/ukern/pkg/errors/linuxerr"
)

// ErrNotPresent is returned by ProcInfo for a slot that holds no task. The
// getprocinfo syscall returns 1 for it, distinct from both success and
// failure.
var ErrNotPresent = errors.New("process table slot is unused")

// ProcInfo returns a snapshot of the process table slot at index. It returns
// EINVAL if index is out of range and ErrNotPresent if the slot is unused.
//
// The snapshot is taken with the table locked, so it is consistent with
// respect to concurrent forks, exits and reaps. The init task reports a
// parent pid of 0.
func (k *Kernel) ProcInfo(index int32) (uapi.ProcInfo, error) {
	pt := k.tasks
	if index < 0 || int(index) >= len(pt.slots) {
		return uapi.ProcInfo{}, linuxerr.EINVAL
	}
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	t := pt.slots[index]
	if t.state == uapi.UNUSED {
		return uapi.ProcInfo{}, ErrNotPresent
	}

	info := uapi.ProcInfo{
		Name:  t.name,
		PID:   t.PID(),
		State: t.state,
	}
	if t.PID() != InitPID && t.parent != nil {
		info.ParentPID = t.parent.PID()
	}
	if t.mm != nil {
		info.Size = uint32(t.mm.Size())
	}
	if t.sleepCh != nil {
		info.IsBlocked = 1
	}
	if t.Killed() {
		info.IsKilled = 1
	}
	return info, nil
}
