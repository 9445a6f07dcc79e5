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

// Package mm provides a memory management subsystem.
//
// A MemoryManager is the address space of a process: a contiguous range of
// bytes [0, Size()). There is no paging. Fork copies the whole range, and
// threads share one MemoryManager by reference count.
//
// Lock order:
//
//	kernel.ProcessTable.mu
//		MemoryManager.mu
package mm

import (
	"fmt"
	"sync"

	"ukern.dev/ukern/pkg/errors/linuxerr"
	"ukern.dev/ukern/pkg/hostarch"
	"ukern.dev/ukern/pkg/refs"
	"ukern.dev/ukern/pkg/usermem"
)

// MemoryManager implements a virtual address space.
type MemoryManager struct {
	refs.AtomicRefCount

	// maxSize is the largest Size that Grow permits. maxSize is immutable.
	maxSize uint64

	// mu protects mem.
	mu sync.RWMutex

	// mem backs the address space. len(mem.Bytes) is the size of the
	// address space. mem.Bytes is nil once the last reference is dropped.
	mem usermem.BytesIO
}

// NewMemoryManager returns a MemoryManager of the given size, which may grow
// up to maxSize bytes. The caller holds the only reference.
func NewMemoryManager(size, maxSize uint64) (*MemoryManager, error) {
	if size > maxSize || maxSize > uint64(hostarch.MaxAddr) {
		return nil, fmt.Errorf("address space of %d bytes (max %d): %w", size, maxSize, linuxerr.ENOMEM)
	}
	return &MemoryManager{
		maxSize: maxSize,
		mem:     usermem.BytesIO{Bytes: make([]byte, size)},
	}, nil
}

// Size returns the number of valid bytes in the address space.
func (mm *MemoryManager) Size() uint64 {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return uint64(len(mm.mem.Bytes))
}

// MaxSize returns the size limit of the address space.
func (mm *MemoryManager) MaxSize() uint64 {
	return mm.maxSize
}

// Grow changes the size of the address space by n bytes and returns the old
// size. New bytes are zeroed. A negative n shrinks the space.
func (mm *MemoryManager) Grow(n int64) (uint64, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	old := uint64(len(mm.mem.Bytes))
	switch {
	case n > 0:
		if uint64(n) > mm.maxSize-old {
			return old, linuxerr.ENOMEM
		}
		mm.mem.Bytes = append(mm.mem.Bytes, make([]byte, n)...)
	case n < 0:
		if uint64(-n) > old {
			return old, linuxerr.ENOMEM
		}
		mm.mem.Bytes = mm.mem.Bytes[:old-uint64(-n)]
	}
	return old, nil
}

// Fork creates a copy of mm with one reference held by the caller.
func (mm *MemoryManager) Fork() *MemoryManager {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return &MemoryManager{
		maxSize: mm.maxSize,
		mem:     usermem.BytesIO{Bytes: append([]byte(nil), mm.mem.Bytes...)},
	}
}

// DecRef drops a reference on mm. The backing memory is released with the
// last reference.
func (mm *MemoryManager) DecRef() {
	mm.DecRefWithDestructor(func() {
		mm.mu.Lock()
		mm.mem.Bytes = nil
		mm.mu.Unlock()
	})
}
