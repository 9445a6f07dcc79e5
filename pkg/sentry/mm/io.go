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

package mm

import (
	"ukern.dev/ukern/pkg/errors/linuxerr"
	"ukern.dev/ukern/pkg/hostarch"
	"ukern.dev/ukern/pkg/marshal/primitive"
	"ukern.dev/ukern/pkg/usermem"
)

// CheckIORange is similar to hostarch.Addr.ToRange, but also requires the
// range to lie within [0, Size()).
//
// Preconditions: length >= 0.
func (mm *MemoryManager) CheckIORange(addr hostarch.Addr, length int64) (hostarch.AddrRange, bool) {
	ar, ok := addr.ToRange(uint64(length))
	return ar, ok && uint64(ar.End) <= mm.Size()
}

// CheckPointer validates that [addr, addr+length) lies inside the address
// space and returns a UserPointer for it. It is the only way to obtain a
// UserPointer.
func (mm *MemoryManager) CheckPointer(addr hostarch.Addr, length int64) (UserPointer, error) {
	if length < 0 {
		return UserPointer{}, linuxerr.EINVAL
	}
	ar, ok := mm.CheckIORange(addr, length)
	if !ok {
		return UserPointer{}, linuxerr.EINVAL
	}
	return UserPointer{mm: mm, ar: ar}, nil
}

// CopyOut implements usermem.IO.CopyOut.
func (mm *MemoryManager) CopyOut(addr hostarch.Addr, src []byte) (int, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return mm.mem.CopyOut(addr, src)
}

// CopyIn implements usermem.IO.CopyIn.
func (mm *MemoryManager) CopyIn(addr hostarch.Addr, dst []byte) (int, error) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.mem.CopyIn(addr, dst)
}

// ZeroOut implements usermem.IO.ZeroOut.
func (mm *MemoryManager) ZeroOut(addr hostarch.Addr, toZero int64) (int64, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return mm.mem.ZeroOut(addr, toZero)
}

// ReadWord reads the 4-byte word at addr.
func (mm *MemoryManager) ReadWord(addr hostarch.Addr) (uint32, error) {
	return primitive.CopyUint32In(usermem.IOCopyContext{IO: mm}, addr)
}

// WriteWord writes the 4-byte word v at addr.
func (mm *MemoryManager) WriteWord(addr hostarch.Addr, v uint32) error {
	_, err := primitive.CopyUint32Out(usermem.IOCopyContext{IO: mm}, addr, v)
	return err
}
