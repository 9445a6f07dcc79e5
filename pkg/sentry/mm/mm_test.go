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
	"bytes"
	"testing"

	"ukern.dev/ukern/pkg/abi/uapi"
	"ukern.dev/ukern/pkg/errors/linuxerr"
	"ukern.dev/ukern/pkg/hostarch"
)

func testMemoryManager(t *testing.T, size uint64) *MemoryManager {
	t.Helper()
	mm, err := NewMemoryManager(size, 4*hostarch.PageSize)
	if err != nil {
		t.Fatalf("NewMemoryManager(%d) failed: %v", size, err)
	}
	return mm
}

func TestCheckPointer(t *testing.T) {
	mm := testMemoryManager(t, hostarch.PageSize)
	defer mm.DecRef()

	for _, tc := range []struct {
		name   string
		addr   hostarch.Addr
		length int64
		ok     bool
	}{
		{name: "whole space", addr: 0, length: hostarch.PageSize, ok: true},
		{name: "last word", addr: hostarch.PageSize - 4, length: 4, ok: true},
		{name: "empty at end", addr: hostarch.PageSize, length: 0, ok: true},
		{name: "straddles end", addr: hostarch.PageSize - 2, length: 4},
		{name: "past end", addr: hostarch.PageSize, length: 1},
		{name: "wraps", addr: hostarch.MaxAddr - 2, length: 4},
		{name: "negative length", addr: 0, length: -1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p, err := mm.CheckPointer(tc.addr, tc.length)
			if !tc.ok {
				if err != linuxerr.EINVAL {
					t.Errorf("CheckPointer(%#x, %d) = %v, want %v", tc.addr, tc.length, err, linuxerr.EINVAL)
				}
				return
			}
			if err != nil {
				t.Fatalf("CheckPointer(%#x, %d) failed: %v", tc.addr, tc.length, err)
			}
			if p.Addr() != tc.addr || int64(p.Len()) != tc.length {
				t.Errorf("got range %v, want [%#x, +%d)", p.Range(), tc.addr, tc.length)
			}
		})
	}
}

func TestUserPointerCopy(t *testing.T) {
	mm := testMemoryManager(t, hostarch.PageSize)
	defer mm.DecRef()

	p, err := mm.CheckPointer(0x100, 8)
	if err != nil {
		t.Fatalf("CheckPointer failed: %v", err)
	}
	if err := p.WriteWord(4, 0x1234); err != nil {
		t.Fatalf("WriteWord failed: %v", err)
	}
	if v, err := mm.ReadWord(0x104); err != nil || v != 0x1234 {
		t.Errorf("ReadWord(0x104) = (%#x, %v), want (0x1234, nil)", v, err)
	}
	if err := p.WriteWord(6, 0); err != linuxerr.EFAULT {
		t.Errorf("WriteWord past the checked range = %v, want %v", err, linuxerr.EFAULT)
	}
	if _, err := p.CopyOut(make([]byte, 9)); err != linuxerr.EFAULT {
		t.Errorf("CopyOut larger than the checked range = %v, want %v", err, linuxerr.EFAULT)
	}

	var zero UserPointer
	if _, err := zero.CopyIn(make([]byte, 1)); err != linuxerr.EFAULT {
		t.Errorf("CopyIn through zero UserPointer = %v, want %v", err, linuxerr.EFAULT)
	}
}

func TestUserPointerCopyOutObject(t *testing.T) {
	mm := testMemoryManager(t, hostarch.PageSize)
	defer mm.DecRef()

	p, err := mm.CheckPointer(0x200, uapi.SizeofProcInfo)
	if err != nil {
		t.Fatalf("CheckPointer failed: %v", err)
	}
	info := uapi.ProcInfo{PID: 7, State: uapi.SLEEPING}
	if _, err := p.CopyOutObject(&info); err != nil {
		t.Fatalf("CopyOutObject failed: %v", err)
	}
	buf := make([]byte, uapi.SizeofProcInfo)
	if _, err := mm.CopyIn(0x200, buf); err != nil {
		t.Fatalf("CopyIn failed: %v", err)
	}
	var got uapi.ProcInfo
	got.UnmarshalBytes(buf)
	if got != info {
		t.Errorf("got %+v, want %+v", got, info)
	}
}

func TestGrow(t *testing.T) {
	mm := testMemoryManager(t, hostarch.PageSize)
	defer mm.DecRef()

	if old, err := mm.Grow(hostarch.PageSize); err != nil || old != hostarch.PageSize {
		t.Fatalf("Grow(+page) = (%d, %v), want (%d, nil)", old, err, hostarch.PageSize)
	}
	if got := mm.Size(); got != 2*hostarch.PageSize {
		t.Errorf("Size() = %d, want %d", got, 2*hostarch.PageSize)
	}
	if _, err := mm.Grow(3 * hostarch.PageSize); err != linuxerr.ENOMEM {
		t.Errorf("Grow beyond max = %v, want %v", err, linuxerr.ENOMEM)
	}
	if _, err := mm.Grow(-3 * hostarch.PageSize); err != linuxerr.ENOMEM {
		t.Errorf("Grow below zero = %v, want %v", err, linuxerr.ENOMEM)
	}
	if old, err := mm.Grow(-hostarch.PageSize); err != nil || old != 2*hostarch.PageSize {
		t.Errorf("Grow(-page) = (%d, %v), want (%d, nil)", old, err, 2*hostarch.PageSize)
	}
}

func TestGrowToMaxSize(t *testing.T) {
	mm := testMemoryManager(t, hostarch.PageSize)
	defer mm.DecRef()

	room := int64(mm.MaxSize() - mm.Size())
	if _, err := mm.Grow(room); err != nil {
		t.Fatalf("Grow(%d) = %v, want nil", room, err)
	}
	if got := mm.Size(); got != mm.MaxSize() {
		t.Errorf("Size() = %d, want MaxSize() = %d", got, mm.MaxSize())
	}
	if _, err := mm.Grow(1); err != linuxerr.ENOMEM {
		t.Errorf("Grow past MaxSize = %v, want %v", err, linuxerr.ENOMEM)
	}
}

func TestForkCopies(t *testing.T) {
	mm := testMemoryManager(t, hostarch.PageSize)
	defer mm.DecRef()
	if _, err := mm.CopyOut(0, []byte("parent")); err != nil {
		t.Fatalf("CopyOut failed: %v", err)
	}

	child := mm.Fork()
	defer child.DecRef()
	if _, err := child.CopyOut(0, []byte("child!")); err != nil {
		t.Fatalf("CopyOut failed: %v", err)
	}

	buf := make([]byte, 6)
	if _, err := mm.CopyIn(0, buf); err != nil || !bytes.Equal(buf, []byte("parent")) {
		t.Errorf("parent memory = (%q, %v) after child write, want %q", buf, err, "parent")
	}
	if child.ReadRefs() != 1 {
		t.Errorf("child.ReadRefs() = %d, want 1", child.ReadRefs())
	}
}

func TestDecRefReleasesMemory(t *testing.T) {
	mm := testMemoryManager(t, hostarch.PageSize)
	mm.IncRef()
	mm.DecRef()
	if mm.Size() != hostarch.PageSize {
		t.Fatalf("memory released with a reference still held")
	}
	mm.DecRef()
	if mm.Size() != 0 {
		t.Errorf("Size() = %d after last DecRef, want 0", mm.Size())
	}
}
