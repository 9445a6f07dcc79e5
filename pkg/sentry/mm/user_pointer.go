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
	"ukern.dev/ukern/pkg/marshal"
)

// UserPointer is a range of user memory that has been bounds-checked against
// its address space. Syscall handlers copy to and from user memory only
// through a UserPointer, and only MemoryManager.CheckPointer creates one.
//
// The zero value is an empty range with no address space and refuses all
// copies.
type UserPointer struct {
	mm *MemoryManager
	ar hostarch.AddrRange
}

// Addr returns the start of the range.
func (p UserPointer) Addr() hostarch.Addr {
	return p.ar.Start
}

// Range returns the checked range.
func (p UserPointer) Range() hostarch.AddrRange {
	return p.ar
}

// Len returns the length of the range in bytes.
func (p UserPointer) Len() int {
	return int(p.ar.Length())
}

// check returns the subrange [off, off+length) of p, or EFAULT if it falls
// outside p.
func (p UserPointer) check(off, length int) (hostarch.Addr, error) {
	if p.mm == nil || off < 0 || length < 0 || off > p.Len() || length > p.Len()-off {
		return 0, linuxerr.EFAULT
	}
	return p.ar.Start + hostarch.Addr(off), nil
}

// CopyIn copies len(dst) bytes from the start of the range into dst.
func (p UserPointer) CopyIn(dst []byte) (int, error) {
	addr, err := p.check(0, len(dst))
	if err != nil {
		return 0, err
	}
	return p.mm.CopyIn(addr, dst)
}

// CopyOut copies src to the start of the range.
func (p UserPointer) CopyOut(src []byte) (int, error) {
	addr, err := p.check(0, len(src))
	if err != nil {
		return 0, err
	}
	return p.mm.CopyOut(addr, src)
}

// CopyOutObject marshals m to the start of the range.
func (p UserPointer) CopyOutObject(m marshal.Marshallable) (int, error) {
	buf := make([]byte, m.SizeBytes())
	m.MarshalBytes(buf)
	return p.CopyOut(buf)
}

// ReadWord reads the word at byte offset off within the range.
func (p UserPointer) ReadWord(off int) (uint32, error) {
	addr, err := p.check(off, hostarch.WordSize)
	if err != nil {
		return 0, err
	}
	return p.mm.ReadWord(addr)
}

// WriteWord writes v at byte offset off within the range.
func (p UserPointer) WriteWord(off int, v uint32) error {
	addr, err := p.check(off, hostarch.WordSize)
	if err != nil {
		return err
	}
	return p.mm.WriteWord(addr, v)
}

// In returns true if p was checked against m.
func (p UserPointer) In(m *MemoryManager) bool {
	return p.mm != nil && p.mm == m
}
