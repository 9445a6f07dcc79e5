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

package arch

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"ukern.dev/ukern/pkg/errors/linuxerr"
	"ukern.dev/ukern/pkg/hostarch"
	"ukern.dev/ukern/pkg/usermem"
)

const (
	testEntry = 0x1000
	testArg   = 0x1234
)

func testStack() (*usermem.BytesIO, hostarch.AddrRange) {
	io := &usermem.BytesIO{Bytes: make([]byte, 2*hostarch.PageSize)}
	return io, hostarch.AddrRange{Start: hostarch.PageSize, End: 2 * hostarch.PageSize}
}

func word(t *testing.T, io usermem.IO, addr hostarch.Addr) uint32 {
	t.Helper()
	var b [4]byte
	if _, err := io.CopyIn(addr, b[:]); err != nil {
		t.Fatalf("CopyIn(%v) failed: %v", addr, err)
	}
	return hostarch.ByteOrder.Uint32(b[:])
}

func TestNewThreadFrame(t *testing.T) {
	io, stack := testStack()
	base := Registers{Eax: 24, Ebx: 7, Eip: 0x42, Esp: 0x800, Ebp: 0x810}

	regs, err := NewThreadFrame(&base, io, stack, testEntry, testArg)
	if err != nil {
		t.Fatalf("NewThreadFrame failed: %v", err)
	}
	if got := word(t, io, stack.End-8); got != StackBottomMagic {
		t.Errorf("[top-8] = %#x, want %#x", got, StackBottomMagic)
	}
	if got := word(t, io, stack.End-4); got != testArg {
		t.Errorf("[top-4] = %#x, want %#x", got, testArg)
	}

	want := base
	want.Eax = 0
	want.Eip = testEntry
	want.Esp = uint32(stack.End - 8)
	want.Ebp = uint32(stack.End - 8)
	if diff := cmp.Diff(want, regs); diff != "" {
		t.Errorf("registers mismatch (-want +got):\n%s", diff)
	}
	if base.Eax != 24 {
		t.Errorf("base registers modified")
	}
}

func TestNewThreadFrameTooSmall(t *testing.T) {
	io, _ := testStack()
	for _, stack := range []hostarch.AddrRange{
		{Start: 0x100, End: 0x104},
		{Start: 0x100, End: 0x80},
	} {
		if _, err := NewThreadFrame(&Registers{}, io, stack, testEntry, testArg); err != linuxerr.EINVAL {
			t.Errorf("NewThreadFrame(%v) = %v, want %v", stack, err, linuxerr.EINVAL)
		}
	}
	if !bytes.Equal(io.Bytes, make([]byte, len(io.Bytes))) {
		t.Errorf("failed NewThreadFrame wrote to memory")
	}
}

func TestThreadEntryBacktrace(t *testing.T) {
	io, stack := testStack()
	regs, err := NewThreadFrame(&Registers{}, io, stack, testEntry, testArg)
	if err != nil {
		t.Fatalf("NewThreadFrame failed: %v", err)
	}

	if err := Prologue(io, &regs, stack.Start); err != nil {
		t.Fatalf("Prologue failed: %v", err)
	}

	it := NewFrameIterator(io, stack, regs.Ebp, 64)
	var frames []Frame
	for f, ok := it.Next(); ok; f, ok = it.Next() {
		frames = append(frames, f)
	}
	if err := it.Err(); err != nil {
		t.Fatalf("walk failed: %v", err)
	}
	want := []Frame{{Index: 0, FramePointer: hostarch.Addr(regs.Ebp), ReturnAddr: StackBottomMagic}}
	if diff := cmp.Diff(want, frames); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
	if _, ok := it.Next(); ok {
		t.Errorf("Next returned a frame after the bottom of the stack")
	}
}

func TestFrameIteratorChain(t *testing.T) {
	io, stack := testStack()
	regs, err := NewThreadFrame(&Registers{}, io, stack, testEntry, testArg)
	if err != nil {
		t.Fatalf("NewThreadFrame failed: %v", err)
	}
	// entry's own frame, then two nested calls.
	if err := Prologue(io, &regs, stack.Start); err != nil {
		t.Fatalf("Prologue failed: %v", err)
	}
	for _, ret := range []uint32{0x1010, 0x1020} {
		if err := EnterFrame(io, &regs, stack.Start, ret); err != nil {
			t.Fatalf("EnterFrame(%#x) failed: %v", ret, err)
		}
	}

	it := NewFrameIterator(io, stack, regs.Ebp, 64)
	var got []uint32
	for f, ok := it.Next(); ok; f, ok = it.Next() {
		got = append(got, f.ReturnAddr)
	}
	if err := it.Err(); err != nil {
		t.Fatalf("walk failed: %v", err)
	}
	if diff := cmp.Diff([]uint32{0x1020, 0x1010, StackBottomMagic}, got); diff != "" {
		t.Errorf("return addresses mismatch (-want +got):\n%s", diff)
	}

	// Unwind one level.
	ret, err := LeaveFrame(io, &regs)
	if err != nil || ret != 0x1020 {
		t.Fatalf("LeaveFrame = (%#x, %v), want (0x1020, nil)", ret, err)
	}
	it = NewFrameIterator(io, stack, regs.Ebp, 64)
	n := 0
	for _, ok := it.Next(); ok; _, ok = it.Next() {
		n++
	}
	if n != 2 {
		t.Errorf("got %d frames after LeaveFrame, want 2", n)
	}
}

func TestFrameIteratorBounded(t *testing.T) {
	io, stack := testStack()

	// A frame that points at itself never reaches the bottom.
	fp := stack.End - 16
	if _, err := io.CopyOut(fp, []byte{byte(fp), byte(fp >> 8), 0, 0, 0x10, 0, 0, 0}); err != nil {
		t.Fatalf("CopyOut failed: %v", err)
	}
	it := NewFrameIterator(io, stack, uint32(fp), 5)
	n := 0
	for _, ok := it.Next(); ok; _, ok = it.Next() {
		n++
	}
	if n != 5 || !errors.Is(it.Err(), ErrMaxDepth) {
		t.Errorf("got %d frames and %v, want 5 frames and %v", n, it.Err(), ErrMaxDepth)
	}

	for _, fp := range []uint32{0, uint32(stack.End - 4), 0xfffffffc} {
		it := NewFrameIterator(io, stack, fp, 5)
		if _, ok := it.Next(); ok {
			t.Errorf("Next with ebp %#x outside the stack returned a frame", fp)
		}
		if !errors.Is(it.Err(), ErrFrameOutOfRange) {
			t.Errorf("Err() = %v with ebp %#x, want %v", it.Err(), fp, ErrFrameOutOfRange)
		}
	}
}

func TestRegisterDump(t *testing.T) {
	r := Registers{Eax: 0x18, Eip: 0x1000, Esp: 0x1ff8, Ebp: 0x1ff4, Eflags: 0x202}
	var b strings.Builder
	if err := r.Dump(&b); err != nil {
		t.Fatalf("Dump failed: %v", err)
	}
	want := strings.Join([]string{
		"eax:0x18",
		"ebx:0x0",
		"ecx:0x0",
		"edx:0x0",
		"edi:0x0",
		"esi:0x0",
		"cs:0x0",
		"ds:0x0",
		"es:0x0",
		"fs:0x0",
		"gs:0x0",
		"ss:0x0",
		"eflags:0x202",
		"err:0x0",
		"esp:0x1ff8",
		"eip:0x1000",
		"ebp:0x1ff4",
	}, "\n") + "\n"
	if diff := cmp.Diff(want, b.String()); diff != "" {
		t.Errorf("Dump mismatch (-want +got):\n%s", diff)
	}
}
