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
	"bytes"
	"fmt"

	"ukern.dev/ukern/pkg/errors/linuxerr"
	"ukern.dev/ukern/pkg/hostarch"
	"ukern.dev/ukern/pkg/sentry/arch"
)

// Backtrace writes t's saved registers to its standard output, followed by
// the return addresses found by walking t's frame pointers:
//
//	eax:0x0
//	...
//	ebp:0x1ff4
//	0#  0x1010
//	1#  0xffffffff
//
// The walk stops after the frame that returns to arch.StackBottomMagic. It
// never reads outside t's stack, which is the thread stack for threads and
// the whole address space otherwise, and prints at most MaxBacktraceDepth
// frames. A walk that stops early is logged and is not an error.
func (k *Kernel) Backtrace(t *Task) error {
	out := t.File(stdout)
	if out == nil {
		return linuxerr.EBADF
	}
	var b bytes.Buffer
	if err := t.regs.Dump(&b); err != nil {
		return err
	}
	it := arch.NewFrameIterator(t.mm, t.StackRegion(), uint32(t.regs.FramePointer()), k.maxBacktraceDepth)
	for f, ok := it.Next(); ok; f, ok = it.Next() {
		fmt.Fprintf(&b, "%d#  0x%x\n", f.Index, f.ReturnAddr)
	}
	if err := it.Err(); err != nil {
		t.Warningf("backtrace stopped: %v", err)
	}
	if _, err := out.Write(b.Bytes()); err != nil {
		return fmt.Errorf("writing backtrace to %s: %w", out.Name(), err)
	}
	return nil
}

// StackRegion returns the memory a stack walk of t may read: the stack given
// to thread_create for threads, and the whole address space otherwise.
func (t *Task) StackRegion() hostarch.AddrRange {
	t.k.tasks.mu.RLock()
	defer t.k.tasks.mu.RUnlock()
	if t.isThread {
		return t.threadStack
	}
	return hostarch.AddrRange{Start: 0, End: hostarch.Addr(t.mm.Size())}
}
