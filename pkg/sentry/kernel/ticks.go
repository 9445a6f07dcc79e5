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

	"ukern.dev/ukern/pkg/errors/linuxerr"
)

// TickClock counts timer interrupts since boot.
type TickClock struct {
	// mu protects ticks. mu is also the lock that tasks in SleepTicks
	// sleep with, so that an increment cannot be missed between a check
	// and the sleep.
	mu    sync.Mutex
	ticks uint32
}

// Tick is the timer interrupt. It advances the clock by one and wakes every
// task sleeping on it.
func (k *Kernel) Tick() {
	c := &k.ticks
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	k.Wakeup(c)
}

// Uptime returns the number of ticks since boot.
func (k *Kernel) Uptime() uint32 {
	c := &k.ticks
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// SleepTicks blocks t until n ticks have passed. It returns EINTR if t is
// killed first, and EINVAL if n is negative.
func (k *Kernel) SleepTicks(t *Task, n int32) error {
	if n < 0 {
		return linuxerr.EINVAL
	}
	c := &k.ticks
	c.mu.Lock()
	defer c.mu.Unlock()
	ticks0 := c.ticks
	for c.ticks-ticks0 < uint32(n) {
		if t.Killed() {
			return linuxerr.EINTR
		}
		k.Sleep(t, c, &c.mu)
	}
	return nil
}
